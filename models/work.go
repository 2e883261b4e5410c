package models

import "time"

// Work repräsentiert ein Dokument unabhängig von seinen Ausgaben (z.B. eine Verordnung).
type Work struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Authority  string `json:"authority" gorm:"size:50;not null;index"`
	Identifier string `json:"identifier" gorm:"size:255;uniqueIndex;not null"`
	// Kleingeschrieben, ohne Leerzeichen; Schlüssel für den Identifier-Abgleich
	IdentifierNorm string  `json:"-" gorm:"size:255;index;not null;default:''"`
	Title          string  `json:"title" gorm:"size:512;not null"`
	Abstract       *string `json:"abstract,omitempty" gorm:"type:text"`

	PrimaryDisciplineID *uint               `json:"primary_discipline_id,omitempty" gorm:"index"`
	PrimaryDiscipline   *DisciplineCategory `json:"-" gorm:"foreignKey:PrimaryDisciplineID"`

	SecondaryDisciplines []WorkDiscipline `json:"-" gorm:"foreignKey:WorkID"`
	Tags                 []WorkTag        `json:"-" gorm:"foreignKey:WorkID"`
	Editions             []Edition        `json:"-" gorm:"foreignKey:WorkID"`
}

func (Work) TableName() string { return "document_works" }

// SecondaryDisciplineIDs liefert die IDs der vorgeladenen Sekundär-Disziplinen.
func (w *Work) SecondaryDisciplineIDs() []uint {
	ids := make([]uint, 0, len(w.SecondaryDisciplines))
	for _, wd := range w.SecondaryDisciplines {
		ids = append(ids, wd.DisciplineID)
	}
	return ids
}

// WorkDiscipline verknüpft ein Werk mit einer Sekundär-Disziplin.
type WorkDiscipline struct {
	WorkID       uint `json:"work_id" gorm:"primaryKey;autoIncrement:false"`
	DisciplineID uint `json:"discipline_id" gorm:"primaryKey;autoIncrement:false"`
}

func (WorkDiscipline) TableName() string { return "work_disciplines" }

// WorkTag verknüpft ein Werk mit einem Tag.
type WorkTag struct {
	WorkID uint `json:"work_id" gorm:"primaryKey;autoIncrement:false"`
	TagID  uint `json:"tag_id" gorm:"primaryKey;autoIncrement:false"`
}

func (WorkTag) TableName() string { return "work_tags" }
