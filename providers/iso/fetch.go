package iso

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"standarr/models"
	"standarr/providers"
)

// Name ist der Registry-Name dieses Providers.
const Name = "iso"

// Fetcher implementiert das Provider-Interface für ISO-Normen.
type Fetcher struct {
	providers.Base
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen ISO Fetcher.
func NewFetcher(source providers.Source, logger *zap.Logger) *Fetcher {
	return &Fetcher{Base: providers.Base{Source: source}, Logger: logger}
}

func (f *Fetcher) Name() string {
	return Name
}

func (f *Fetcher) FetchChanges(ctx context.Context, since *time.Time) ([]providers.RawRecord, error) {
	records, err := f.Records(ctx, Name)
	if err != nil {
		return nil, err
	}
	changed := providers.ChangedSince(records, since)
	f.Logger.Debug("ISO changes loaded", zap.Int("total", len(records)), zap.Int("changed", len(changed)))
	return changed, nil
}

func (f *Fetcher) GetDetails(ctx context.Context, externalID string) (providers.RawRecord, error) {
	records, err := f.Records(ctx, Name)
	if err != nil {
		return nil, err
	}
	return providers.FindByExternalID(records, externalID)
}

// Normalize konvertiert einen ISO-Datensatz; Kategorien und Schlagworte speisen die Klassifikation.
func (f *Fetcher) Normalize(record providers.RawRecord) (*models.Candidate, error) {
	externalID, err := record.Require("external_id")
	if err != nil {
		return nil, err
	}
	identifier, err := record.Require("identifier")
	if err != nil {
		return nil, err
	}
	title, err := record.Require("title")
	if err != nil {
		return nil, err
	}
	published, err := models.ParseDate(record["publication_date"])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", externalID, err)
	}

	authority := record.String("authority")
	if authority == "" {
		authority = "ISO"
	}
	return &models.Candidate{
		ExternalID: externalID,
		Work: models.CandidateWork{
			Authority:           authority,
			Identifier:          identifier,
			Title:               title,
			Abstract:            record.OptString("abstract"),
			PrimaryDisciplineID: record.OptUint("primary_discipline_id"),
		},
		Edition: models.CandidateEdition{
			EditionLabel:       providers.EditionLabelOr(record, "edition_label"),
			PublicationDate:    published,
			Status:             record.OptString("status"),
			SourceCanonicalURL: record.OptString("source_url"),
		},
		Categories: record.Strings("categories"),
		Keywords:   record.Strings("keywords"),
	}, nil
}

func (f *Fetcher) MatchAndMerge(ctx context.Context, candidate *models.Candidate, matcher providers.Matcher) (*models.Candidate, error) {
	return providers.MatchAndMerge(ctx, Name, candidate, matcher)
}

// SampleRecords liefert die eingebauten Beispieldatensätze.
func SampleRecords() []providers.RawRecord {
	return []providers.RawRecord{
		{
			"external_id":      "iso:9001:2015",
			"title":            "Quality management systems — Requirements",
			"publication_date": "2015-09-15",
			"status":           models.StatusInForce,
			"source_url":       "https://www.iso.org/standard/62085.html",
			"authority":        "ISO",
			"identifier":       "ISO 9001:2015",
			"categories":       []any{"quality management"},
			"keywords":         []any{"QMS", "quality"},
		},
	}
}
