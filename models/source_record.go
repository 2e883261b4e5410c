package models

import "time"

// SourceRecord ist die Brücke zwischen Provider-IDs und Katalog-Entitäten.
type SourceRecord struct {
	ID uint `json:"id" gorm:"primaryKey"`

	Provider     string    `json:"provider" gorm:"size:100;not null;uniqueIndex:idx_source_records_external,priority:1"`
	ExternalID   string    `json:"external_id" gorm:"size:255;not null;uniqueIndex:idx_source_records_external,priority:2"`
	PayloadHash  string    `json:"payload_hash" gorm:"size:128;not null"`
	FetchedAt    time.Time `json:"fetched_at" gorm:"not null;index"`
	RawReference *string   `json:"raw_reference,omitempty" gorm:"size:1024"`

	WorkID    *uint `json:"work_id,omitempty" gorm:"index"`
	EditionID *uint `json:"edition_id,omitempty" gorm:"index"`
}

func (SourceRecord) TableName() string { return "source_records" }
