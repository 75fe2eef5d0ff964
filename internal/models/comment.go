package models

import "time"

// Comment represents a comment on a post
type Comment struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	Text     string    `json:"text" gorm:"type:text;not null"`
	Created  time.Time `json:"created" gorm:"autoCreateTime;index;<-:create"`
	AuthorID uint      `json:"author_id" gorm:"not null;index"`
	Author   User      `json:"author" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	PostID   uint      `json:"post_id" gorm:"not null;index"`
	Post     Post      `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// CommentForm defines the form body for adding a comment
type CommentForm struct {
	Text string `form:"text" validate:"required"`
}
