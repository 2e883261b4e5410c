package models

import "time"

// LocalAttachment beschreibt eine zu einer Ausgabe hochgeladene Datei.
type LocalAttachment struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UploadedAt time.Time `json:"uploaded_at" gorm:"autoCreateTime;index"`

	EditionID  uint   `json:"edition_id" gorm:"not null;index"`
	Filename   string `json:"filename" gorm:"size:255;not null"`
	MimeType   string `json:"mime_type" gorm:"size:100;not null"`
	SizeBytes  int64  `json:"size_bytes" gorm:"not null"`
	SHA256     string `json:"sha256" gorm:"column:sha256;size:64;not null;index"`
	StorageKey string `json:"-" gorm:"size:1024;not null"`
}

func (LocalAttachment) TableName() string { return "local_attachments" }
