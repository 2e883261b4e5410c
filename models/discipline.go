package models

import "time"

// DisciplineCategory ist ein Fachgebiet, unter dem Werke abgelegt und exportiert werden.
type DisciplineCategory struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Code      string `json:"code" gorm:"size:50;uniqueIndex;not null"`
	Name      string `json:"name" gorm:"size:255;not null"`
	Version   string `json:"version" gorm:"size:50;not null"`
	SortOrder int    `json:"sort_order" gorm:"not null;index"`
	Active    bool   `json:"active" gorm:"not null"`
}

// TableName gibt explizit den Tabellennamen an.
func (DisciplineCategory) TableName() string {
	return "discipline_categories"
}
