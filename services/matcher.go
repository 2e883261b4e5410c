package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"standarr/models"
	"standarr/providers"
)

// RelationSourceMatch kennzeichnet Relationen, die der Matcher ableitet.
const RelationSourceMatch = "match_and_merge"

// Matcher löst Kandidaten gegen bestehende Werke und Ausgaben auf.
type Matcher struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

var _ providers.Matcher = (*Matcher)(nil)

// NewMatcher erstellt einen Matcher auf einer (Transaktions-)Verbindung.
func NewMatcher(db *gorm.DB, logger *zap.Logger) *Matcher {
	return &Matcher{DB: db, Logger: logger}
}

// Match sucht zu einem Kandidaten das bestehende Werk bzw. die bestehende Ausgabe. Reihenfolge:
// bekannter SourceRecord, normalisierter Identifier, exakte kanonische URL. Gefundene Werte
// ersetzen die Kandidatenwerte, damit der Upsert auf dieselben Zeilen zielt.
func (m *Matcher) Match(ctx context.Context, provider string, candidate *models.Candidate) (*models.Candidate, error) {
	db := m.DB.WithContext(ctx)
	var (
		work    *models.Work
		edition *models.Edition
	)

	var record models.SourceRecord
	err := db.Where("provider = ? AND external_id = ?", provider, candidate.ExternalID).First(&record).Error
	switch {
	case err == nil:
		if record.WorkID != nil {
			if work, err = m.findWork(db, "id = ?", *record.WorkID); err != nil {
				return nil, err
			}
		}
		if record.EditionID != nil {
			if edition, err = m.findEdition(db, "id = ?", *record.EditionID); err != nil {
				return nil, err
			}
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("lookup source record: %w", err)
	}

	if work == nil && candidate.Work.Identifier != "" {
		key := models.NormalizeIdentifier(candidate.Work.Identifier)
		if work, err = m.findWork(db, "identifier_norm = ?", key); err != nil {
			return nil, err
		}
	}

	if edition == nil && candidate.Edition.SourceCanonicalURL != nil && *candidate.Edition.SourceCanonicalURL != "" {
		byURL, err := m.findEdition(db, "source_canonical_url = ?", *candidate.Edition.SourceCanonicalURL)
		if err != nil {
			return nil, err
		}
		// Eine URL-Übereinstimmung darf nie zwei verschiedene Werke verschmelzen.
		if byURL != nil && (work == nil || work.ID == byURL.WorkID) {
			edition = byURL
			if work == nil {
				if work, err = m.findWork(db, "id = ?", byURL.WorkID); err != nil {
					return nil, err
				}
			}
		}
	}

	if work != nil {
		candidate.Work.Identifier = work.Identifier
	}
	if edition != nil {
		candidate.Edition.EditionLabel = edition.EditionLabel
		candidate.Edition.PublicationDate = edition.PublicationDate
		return candidate, nil
	}
	if work == nil {
		return candidate, nil
	}

	if edition, err = findEditionByKey(db, work.ID, candidate.Edition.EditionLabel, candidate.Edition.PublicationDate); err != nil {
		return nil, err
	}
	if edition != nil {
		return candidate, nil
	}

	// Neue Ausgabe eines bekannten Werks: mit der zuletzt gesehenen Ausgabe desselben Providers verknüpfen.
	latest, err := m.latestSourceRecord(db, provider, work.ID)
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.ExternalID != candidate.ExternalID {
		if candidate.AddRelation(models.CandidateRelation{
			ToExternalID: latest.ExternalID,
			Type:         models.RelationRelated,
			Confidence:   1.0,
			Source:       RelationSourceMatch,
		}) {
			m.Logger.Debug("Relation zur Vorgänger-Ausgabe abgeleitet",
				zap.String("provider", provider),
				zap.String("from", candidate.ExternalID),
				zap.String("to", latest.ExternalID))
		}
	}
	return candidate, nil
}

func (m *Matcher) findWork(db *gorm.DB, query string, args ...any) (*models.Work, error) {
	var work models.Work
	err := db.Where(query, args...).Order("id").First(&work).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup work: %w", err)
	}
	return &work, nil
}

func (m *Matcher) findEdition(db *gorm.DB, query string, args ...any) (*models.Edition, error) {
	var edition models.Edition
	err := db.Where(query, args...).Order("id").First(&edition).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup edition: %w", err)
	}
	return &edition, nil
}

// latestSourceRecord liefert den zuletzt gesehenen SourceRecord eines Providers unter einem Werk.
func (m *Matcher) latestSourceRecord(db *gorm.DB, provider string, workID uint) (*models.SourceRecord, error) {
	var record models.SourceRecord
	err := db.Model(&models.SourceRecord{}).
		Select("source_records.*").
		Joins("JOIN document_editions ON document_editions.id = source_records.edition_id").
		Where("source_records.provider = ? AND document_editions.work_id = ?", provider, workID).
		Order("document_editions.publication_date IS NULL").
		Order("document_editions.publication_date DESC").
		Order("source_records.fetched_at DESC").
		Order("source_records.id DESC").
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup latest source record: %w", err)
	}
	return &record, nil
}
