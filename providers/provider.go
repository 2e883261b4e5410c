package providers

import (
	"context"
	"time"

	"standarr/models"
)

// RawRecord ist ein freier, providerspezifischer Datensatz.
type RawRecord map[string]any

// Matcher löst einen Kandidaten gegen den bestehenden Katalog auf.
type Matcher interface {
	Match(ctx context.Context, provider string, candidate *models.Candidate) (*models.Candidate, error)
}

// Provider ist das Interface, das jede Quelle (z.B. EUR-Lex, Normattiva, ISO) implementieren muss.
type Provider interface {
	// Name gibt den eindeutigen Namen des Providers zurück (z.B. "eurlex").
	Name() string

	// FetchChanges liefert alle seit since geänderten Rohdatensätze; since == nil bedeutet alle.
	FetchChanges(ctx context.Context, since *time.Time) ([]RawRecord, error)

	// GetDetails liefert den vollständigen Rohdatensatz zu einer externen ID.
	GetDetails(ctx context.Context, externalID string) (RawRecord, error)

	// Normalize überführt einen Rohdatensatz in die interne Kandidatenform.
	Normalize(record RawRecord) (*models.Candidate, error)

	// MatchAndMerge reichert den Kandidaten mit kanonischen Katalogwerten an.
	MatchAndMerge(ctx context.Context, candidate *models.Candidate, matcher Matcher) (*models.Candidate, error)
}

// Base implementiert die gemeinsamen Fähigkeiten, die jede Provider-Variante einbettet.
type Base struct {
	Source Source
}

// Records lädt alle Datensätze eines Providers aus der Quelle.
func (b Base) Records(ctx context.Context, provider string) ([]RawRecord, error) {
	if b.Source == nil {
		return nil, nil
	}
	return b.Source.Records(ctx, provider)
}

// MatchAndMerge delegiert an den katalogweiten Matcher.
func MatchAndMerge(ctx context.Context, provider string, candidate *models.Candidate, matcher Matcher) (*models.Candidate, error) {
	if matcher == nil {
		return candidate, nil
	}
	return matcher.Match(ctx, provider, candidate)
}

// EditionLabelOr liefert das Ausgabe-Label eines Datensatzes oder "original".
func EditionLabelOr(r RawRecord, key string) string {
	if label := r.String(key); label != "" {
		return label
	}
	return "original"
}
