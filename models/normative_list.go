package models

import (
	"time"

	"gorm.io/datatypes"
)

// Regenerierungsmodi einer Liste.
const (
	ModeDynamic = "dynamic"
	ModeStatic  = "static"
)

// Gründe für die Mitgliedschaft eines Listeneintrags.
const (
	ReasonAuto          = "auto"
	ReasonManualInclude = "manual_include"
	ReasonManualExclude = "manual_exclude"
)

// NormativeList ist eine benannte, filterdefinierte und optional händisch bearbeitete Sicht auf den Katalog.
type NormativeList struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string  `json:"name" gorm:"size:255;not null"`
	Description *string `json:"description,omitempty" gorm:"type:text"`
	Status      string  `json:"status" gorm:"size:50;not null"`

	SourceFilter      datatypes.JSONType[ListFilters] `json:"source_filter_json"`
	RegenerationMode  string                          `json:"regeneration_mode" gorm:"size:50;not null;index"`
	PreserveOverrides bool                            `json:"preserve_overrides" gorm:"not null"`

	Items []NormativeListItem `json:"-" gorm:"foreignKey:ListID"`
}

func (NormativeList) TableName() string { return "normative_lists" }

// Filters liefert den gespeicherten Filter-Snapshot.
func (l *NormativeList) Filters() ListFilters {
	return l.SourceFilter.Data()
}

// NormativeListItem verknüpft eine Liste mit einer Ausgabe. Der Disziplin-Snapshot wird beim
// Einfügen eingefroren und später nie an das Live-Werk angepasst.
type NormativeListItem struct {
	ID      uint      `json:"id" gorm:"primaryKey"`
	AddedAt time.Time `json:"added_at" gorm:"autoCreateTime;index"`

	ListID    uint    `json:"list_id" gorm:"not null;uniqueIndex:idx_normative_list_items_edition,priority:1"`
	EditionID uint    `json:"edition_id" gorm:"not null;index;uniqueIndex:idx_normative_list_items_edition,priority:2"`
	Edition   Edition `json:"edition,omitempty" gorm:"foreignKey:EditionID"`

	Included bool    `json:"included" gorm:"not null"`
	Reason   string  `json:"reason" gorm:"size:50;not null"`
	Note     *string `json:"note,omitempty" gorm:"type:text"`

	PrimaryDisciplineIDAtTime    *uint                     `json:"primary_discipline_id_at_time,omitempty"`
	SecondaryDisciplineIDsAtTime datatypes.JSONSlice[uint] `json:"secondary_discipline_ids_at_time"`
}

func (NormativeListItem) TableName() string { return "normative_list_items" }

// IsManual meldet, ob der Eintrag durch eine Benutzeraktion festgelegt wurde.
func (i *NormativeListItem) IsManual() bool {
	return i.Reason == ReasonManualInclude || i.Reason == ReasonManualExclude
}
