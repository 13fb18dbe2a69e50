package models

import "time"

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Author    string    `gorm:"size:50;not null" json:"author" form:"author"`
	Text      string    `gorm:"type:text;not null" json:"text" form:"text"`
	Timestamp time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
	Approved  bool      `gorm:"default:false" json:"approved"`
	Replies   []Reply   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"replies,omitempty"`
}

type Reply struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"not null;index" json:"comment_id"`
	Author    string    `gorm:"size:50;not null" json:"author" form:"author"`
	Text      string    `gorm:"type:text;not null" json:"text" form:"text"`
	Timestamp time.Time `gorm:"autoCreateTime" json:"timestamp"`
	Approved  bool      `gorm:"default:false" json:"approved"`
}
