package models

import (
	"github.com/pageza/foodgram/backend/internal/slug"
	"gorm.io/gorm"
)

const ContentMaxLength = 200

type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:200;not null" json:"name"`
	Color string `gorm:"size:7;not null;uniqueIndex" json:"color"`
	Slug  string `gorm:"size:200;not null;uniqueIndex" json:"slug"`
}

// BeforeCreate derives the slug from the name when none was given.
func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.Slug == "" {
		t.Slug = slug.Make(t.Name, ContentMaxLength)
	}
	return nil
}
