package models

import (
	"html/template"
	"time"

	"gorm.io/gorm"
)

type Post struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CategoryID    uint           `gorm:"not null;index" json:"category_id" form:"category_id"`
	Category      Category       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category"`
	Tags          []Tag          `gorm:"many2many:post_tags;" json:"tags"`
	Title         string         `gorm:"size:255;not null" json:"title" form:"title"`
	Content       string         `gorm:"type:text;not null" json:"content" form:"content"`
	Description   string         `gorm:"type:text" json:"description" form:"description"`
	Image         string         `gorm:"size:255" json:"image"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	PublishedAt   *time.Time     `json:"published_at"`
	IsPublic      bool           `gorm:"default:false;index" json:"is_public" form:"is_public"`
	ContentImages []ContentImage `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"content_images,omitempty"`
	Comments      []Comment      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments,omitempty"`
}

// BeforeSave stamps PublishedAt the first time a post is saved as public.
// An existing PublishedAt is never touched.
func (p *Post) BeforeSave(tx *gorm.DB) error {
	if p.IsPublic && p.PublishedAt == nil {
		now := time.Now()
		p.PublishedAt = &now
	}
	return nil
}

// ContentImage is an inline media file referenced from a post body.
type ContentImage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Image     string    `gorm:"size:255;not null" json:"image"`
	CreatedAt time.Time `json:"created_at"`
}

// RenderedPost is a view model for displaying a post with rendered HTML content.
type RenderedPost struct {
	ID            uint
	Title         string
	Description   string
	Excerpt       string
	Content       template.HTML // Use template.HTML to prevent escaping
	ImageURL      string
	ContentImages []RenderedImage
	Category      Category
	Tags          []Tag
	Comments      []Comment
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PublishedAt   *time.Time
	IsPublic      bool
}

type RenderedImage struct {
	ID  uint
	URL string
}
