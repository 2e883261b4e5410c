package eurlex

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"standarr/models"
	"standarr/providers"
)

// Name ist der Registry-Name dieses Providers.
const Name = "eurlex"

// Fetcher implementiert das Provider-Interface für EUR-Lex (CELEX-Datensätze).
type Fetcher struct {
	providers.Base
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen EUR-Lex Fetcher.
func NewFetcher(source providers.Source, logger *zap.Logger) *Fetcher {
	return &Fetcher{Base: providers.Base{Source: source}, Logger: logger}
}

// Name gibt den Namen des Providers zurück.
func (f *Fetcher) Name() string {
	return Name
}

// FetchChanges liefert die seit since geänderten CELEX-Datensätze.
func (f *Fetcher) FetchChanges(ctx context.Context, since *time.Time) ([]providers.RawRecord, error) {
	records, err := f.Records(ctx, Name)
	if err != nil {
		return nil, err
	}
	changed := providers.ChangedSince(records, since)
	f.Logger.Debug("EUR-Lex changes loaded", zap.Int("total", len(records)), zap.Int("changed", len(changed)))
	return changed, nil
}

// GetDetails liefert einen einzelnen CELEX-Datensatz.
func (f *Fetcher) GetDetails(ctx context.Context, externalID string) (providers.RawRecord, error) {
	records, err := f.Records(ctx, Name)
	if err != nil {
		return nil, err
	}
	return providers.FindByExternalID(records, externalID)
}

// Normalize konvertiert einen EUR-Lex-Datensatz in unser internes Kandidaten-Modell.
func (f *Fetcher) Normalize(record providers.RawRecord) (*models.Candidate, error) {
	externalID, err := record.Require("external_id")
	if err != nil {
		return nil, err
	}
	celex, err := record.Require("celex")
	if err != nil {
		return nil, err
	}
	title, err := record.Require("title")
	if err != nil {
		return nil, err
	}
	published, err := models.ParseDate(record["date_document"])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", externalID, err)
	}

	candidate := &models.Candidate{
		ExternalID: externalID,
		Work: models.CandidateWork{
			Authority:           "EU",
			Identifier:          "CELEX:" + celex,
			Title:               title,
			Abstract:            record.OptString("summary"),
			PrimaryDisciplineID: record.OptUint("primary_discipline_id"),
		},
		Edition: models.CandidateEdition{
			EditionLabel:       providers.EditionLabelOr(record, "consolidated_version"),
			PublicationDate:    published,
			Status:             statusOf(record),
			SourceCanonicalURL: record.OptString("eli"),
		},
		Categories: record.Strings("subject_matters"),
		Keywords:   record.Strings("eurovoc"),
	}
	return candidate, nil
}

// MatchAndMerge gleicht den Kandidaten gegen den Katalog ab.
func (f *Fetcher) MatchAndMerge(ctx context.Context, candidate *models.Candidate, matcher providers.Matcher) (*models.Candidate, error) {
	return providers.MatchAndMerge(ctx, Name, candidate, matcher)
}

// statusOf übersetzt das EUR-Lex-Flag "in_force" in einen Katalog-Status.
// Fehlt das Flag, bleibt der Status offen.
func statusOf(record providers.RawRecord) *string {
	v, ok := record["in_force"].(bool)
	if !ok {
		return nil
	}
	status := models.StatusAbrogated
	if v {
		status = models.StatusInForce
	}
	return &status
}

// SampleRecords liefert die eingebauten Beispieldatensätze.
func SampleRecords() []providers.RawRecord {
	return []providers.RawRecord{
		{
			"external_id":     "eurlex:32016R0679",
			"celex":           "32016R0679",
			"title":           "General Data Protection Regulation",
			"date_document":   "2016-04-27",
			"in_force":        true,
			"eli":             "https://eur-lex.europa.eu/legal-content/EN/TXT/?uri=CELEX:32016R0679",
			"subject_matters": []any{"data protection", "free movement of persons"},
			"eurovoc":         []any{"personal data", "GDPR"},
		},
	}
}
