package models

import "time"

// Bekannte Ausgabe-Status.
const (
	StatusUnknown   = "unknown"
	StatusInForce   = "in_force"
	StatusAbrogated = "abrogated"
)

// Edition ist eine datierte bzw. versionierte Ausgabe eines Werks.
type Edition struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`

	WorkID uint `json:"work_id" gorm:"not null;index"`
	Work   Work `json:"work,omitempty" gorm:"foreignKey:WorkID"`

	EditionLabel       string     `json:"edition_label" gorm:"size:100;not null"`
	PublicationDate    *time.Time `json:"publication_date,omitempty" gorm:"type:date;index"`
	Status             string     `json:"status" gorm:"size:50;not null;index"`
	ValidFrom          *time.Time `json:"valid_from,omitempty" gorm:"type:date"`
	ValidTo            *time.Time `json:"valid_to,omitempty" gorm:"type:date"`
	SourceCanonicalURL *string    `json:"source_canonical_url,omitempty" gorm:"size:1024;index"`
}

func (Edition) TableName() string { return "document_editions" }

// EditionRelation modelliert eine gerichtete, typisierte Kante zwischen zwei Ausgaben.
type EditionRelation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	FromEditionID uint    `json:"from_edition_id" gorm:"not null;uniqueIndex:idx_edition_relations_edge,priority:1"`
	ToEditionID   uint    `json:"to_edition_id" gorm:"not null;index;uniqueIndex:idx_edition_relations_edge,priority:2"`
	Type          string  `json:"type" gorm:"size:50;not null;uniqueIndex:idx_edition_relations_edge,priority:3"`
	Confidence    float64 `json:"confidence" gorm:"not null;check:ck_edition_relations_confidence,confidence >= 0 AND confidence <= 1"`
	Source        string  `json:"source,omitempty" gorm:"size:100"`
}

func (EditionRelation) TableName() string { return "edition_relations" }

// RelationRelated ist der Typ für abgeleitete Verwandtschaft zwischen Ausgaben.
const RelationRelated = "related"
