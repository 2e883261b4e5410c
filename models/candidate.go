package models

import "time"

// Candidate ist die normalisierte, providerunabhängige Form eines Rohdatensatzes.
type Candidate struct {
	ExternalID string              `json:"external_id"`
	Work       CandidateWork       `json:"work"`
	Edition    CandidateEdition    `json:"edition"`
	Relations  []CandidateRelation `json:"relations"`
	Categories []string            `json:"categories,omitempty"`
	Keywords   []string            `json:"keywords,omitempty"`
}

// CandidateWork enthält die Werk-Felder eines Kandidaten. Nil bedeutet "nicht geliefert".
type CandidateWork struct {
	Authority           string  `json:"authority"`
	Identifier          string  `json:"identifier"`
	Title               string  `json:"title"`
	Abstract            *string `json:"abstract,omitempty"`
	PrimaryDisciplineID *uint   `json:"primary_discipline_id,omitempty"`
	// nil = nicht geliefert, leere Slice = Verknüpfungen leeren
	SecondaryDisciplineIDs []uint `json:"secondary_discipline_ids,omitempty"`
	TagIDs                 []uint `json:"tag_ids,omitempty"`
}

// CandidateEdition enthält die Ausgabe-Felder eines Kandidaten.
type CandidateEdition struct {
	EditionLabel       string     `json:"edition_label"`
	PublicationDate    *time.Time `json:"publication_date,omitempty"`
	Status             *string    `json:"status,omitempty"`
	ValidFrom          *time.Time `json:"valid_from,omitempty"`
	ValidTo            *time.Time `json:"valid_to,omitempty"`
	SourceCanonicalURL *string    `json:"source_canonical_url,omitempty"`
}

// CandidateRelation verweist über die externe ID auf eine andere Ausgabe desselben Providers.
type CandidateRelation struct {
	ToExternalID string  `json:"to_external_id"`
	Type         string  `json:"type"`
	Confidence   float64 `json:"confidence"`
	Source       string  `json:"source,omitempty"`
}

// AddRelation hängt eine Relation an, sofern für Ziel und Typ noch keine existiert.
func (c *Candidate) AddRelation(rel CandidateRelation) bool {
	for _, existing := range c.Relations {
		if existing.ToExternalID == rel.ToExternalID && existing.Type == rel.Type {
			return false
		}
	}
	c.Relations = append(c.Relations, rel)
	return true
}
