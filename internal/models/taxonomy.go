package models

import "time"

type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" form:"name"`
	Slug      string    `gorm:"size:255;uniqueIndex;not null" json:"slug" form:"slug"`
	CreatedAt time.Time `json:"timestamp"`
}

type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" form:"name"`
	Slug      string    `gorm:"size:255;uniqueIndex;not null" json:"slug" form:"slug"`
	CreatedAt time.Time `json:"timestamp"`
}

// CategoryCount is a category annotated with the number of its public posts.
type CategoryCount struct {
	Category
	NumPosts int64 `json:"num_posts"`
}

// TagCount is a tag annotated with the number of its public posts.
type TagCount struct {
	Tag
	NumPosts int64 `json:"num_posts"`
}
