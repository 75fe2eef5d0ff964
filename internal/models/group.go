package models

// Group is a community posts can be published into. Slug is the URL identifier.
type Group struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"size:200;not null"`
	Slug        string `json:"slug" gorm:"size:50;uniqueIndex;not null"`
	Description string `json:"description" gorm:"type:text"`
}

func (g Group) String() string { return g.Title }
