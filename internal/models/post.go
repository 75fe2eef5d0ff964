package models

import (
	"time"
)

// Post is a user-authored entry. PubDate is assigned on insert and never
// written again; Group is cleared when its group is deleted.
type Post struct {
	ID       uint      `json:"id" gorm:"primaryKey"`
	Text     string    `json:"text" gorm:"type:text;not null"`
	PubDate  time.Time `json:"pub_date" gorm:"autoCreateTime;index;<-:create"`
	AuthorID uint      `json:"author_id" gorm:"not null;index"`
	Author   User      `json:"author" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	GroupID  *uint     `json:"group_id" gorm:"index"`
	Group    *Group    `json:"group,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Image    string    `json:"image,omitempty" gorm:"size:255"` // media storage key, e.g. posts/<uuid>.gif
}

// Excerpt is the first 15 characters of the text, used as a title.
func (p Post) Excerpt() string {
	r := []rune(p.Text)
	if len(r) > 15 {
		return string(r[:15])
	}
	return p.Text
}

// PostForm is the create/edit form. The image file travels separately as a
// multipart part named "image".
type PostForm struct {
	Text  string `form:"text" validate:"required"`
	Group string `form:"group" validate:"omitempty,numeric"`
}
