package models

// ListFilters ist die Filterspezifikation einer Liste. Alle gesetzten Prädikate werden UND-verknüpft.
// Datumsangaben sind ISO-8601-Strings (Publikation: YYYY-MM-DD, Aktualisierung: RFC 3339 oder YYYY-MM-DD).
type ListFilters struct {
	Query               string   `json:"query,omitempty"`
	Authority           []string `json:"authority,omitempty"`
	Status              []string `json:"status,omitempty"`
	PublicationDateFrom string   `json:"publication_date_from,omitempty"`
	PublicationDateTo   string   `json:"publication_date_to,omitempty"`
	UpdatedFrom         string   `json:"updated_from,omitempty"`
	UpdatedTo           string   `json:"updated_to,omitempty"`
	DisciplineIDs       []uint   `json:"discipline_ids,omitempty"`
	TagIDs              []uint   `json:"tag_ids,omitempty"`
	OnlyLatestInForce   bool     `json:"only_latest_in_force,omitempty"`
	HasAttachment       *bool    `json:"has_attachment,omitempty"`
	HasOfficialLink     *bool    `json:"has_official_link,omitempty"`
	IncludeRelated      bool     `json:"include_related,omitempty"`
}
