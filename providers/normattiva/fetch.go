package normattiva

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"standarr/models"
	"standarr/providers"
)

// Name ist der Registry-Name dieses Providers.
const Name = "normattiva"

// Fetcher implementiert das Provider-Interface für Normattiva (URN:NIR-Datensätze).
type Fetcher struct {
	providers.Base
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen Normattiva Fetcher.
func NewFetcher(source providers.Source, logger *zap.Logger) *Fetcher {
	return &Fetcher{Base: providers.Base{Source: source}, Logger: logger}
}

func (f *Fetcher) Name() string {
	return Name
}

// FetchChanges liefert die seit since geänderten Akte.
func (f *Fetcher) FetchChanges(ctx context.Context, since *time.Time) ([]providers.RawRecord, error) {
	records, err := f.Records(ctx, Name)
	if err != nil {
		return nil, err
	}
	changed := providers.ChangedSince(records, since)
	f.Logger.Debug("Normattiva changes loaded", zap.Int("total", len(records)), zap.Int("changed", len(changed)))
	return changed, nil
}

func (f *Fetcher) GetDetails(ctx context.Context, externalID string) (providers.RawRecord, error) {
	records, err := f.Records(ctx, Name)
	if err != nil {
		return nil, err
	}
	return providers.FindByExternalID(records, externalID)
}

// Normalize konvertiert einen Normattiva-Datensatz. Die URN ist zugleich Identifier des Werks.
func (f *Fetcher) Normalize(record providers.RawRecord) (*models.Candidate, error) {
	externalID, err := record.Require("external_id")
	if err != nil {
		return nil, err
	}
	urn, err := record.Require("urn")
	if err != nil {
		return nil, err
	}
	title, err := record.Require("titolo")
	if err != nil {
		return nil, err
	}
	published, err := models.ParseDate(record["data_gu"])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", externalID, err)
	}
	validFrom, err := models.ParseDate(record["vigenza_dal"])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", externalID, err)
	}

	return &models.Candidate{
		ExternalID: externalID,
		Work: models.CandidateWork{
			Authority:           "IT",
			Identifier:          urn,
			Title:               title,
			PrimaryDisciplineID: record.OptUint("primary_discipline_id"),
		},
		Edition: models.CandidateEdition{
			EditionLabel:       providers.EditionLabelOr(record, "versione"),
			PublicationDate:    published,
			Status:             statusOf(record.String("stato")),
			ValidFrom:          validFrom,
			SourceCanonicalURL: record.OptString("url"),
		},
		Categories: record.Strings("materie"),
	}, nil
}

func (f *Fetcher) MatchAndMerge(ctx context.Context, candidate *models.Candidate, matcher providers.Matcher) (*models.Candidate, error) {
	return providers.MatchAndMerge(ctx, Name, candidate, matcher)
}

// statusOf bildet das Feld "stato" ab; ohne Angabe bleibt der Status offen.
func statusOf(stato string) *string {
	status := models.StatusUnknown
	switch strings.ToLower(strings.TrimSpace(stato)) {
	case "":
		return nil
	case "vigente", "in vigore":
		status = models.StatusInForce
	case "abrogato", "abrogata":
		status = models.StatusAbrogated
	}
	return &status
}

// SampleRecords liefert die eingebauten Beispieldatensätze.
func SampleRecords() []providers.RawRecord {
	return []providers.RawRecord{
		{
			"external_id": "normattiva:urn:nir:stato:legge:1990-08-07;241",
			"urn":         "urn:nir:stato:legge:1990-08-07;241",
			"titolo":      "Nuove norme in materia di procedimento amministrativo",
			"data_gu":     "1990-08-07",
			"stato":       "vigente",
			"url":         "https://www.normattiva.it/urn:nir:stato:legge:1990-08-07;241",
			"materie":     []any{"procedimento amministrativo"},
		},
	}
}
