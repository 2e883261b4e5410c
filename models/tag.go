package models

import (
	"strings"
	"time"
)

// UserTag ist ein freies Label, unabhängig von der Disziplin-Taxonomie.
type UserTag struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	CreatedAt      time.Time `json:"created_at"`
	Name           string    `json:"name" gorm:"size:255;not null"`
	NormalizedName string    `json:"normalized_name" gorm:"size:255;uniqueIndex;not null"`
}

func (UserTag) TableName() string { return "user_tags" }

// NormalizeTagName liefert den natürlichen Schlüssel eines Tags.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
