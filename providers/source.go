package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrRecordNotFound signalisiert, dass eine Quelle keinen Datensatz mit der externen ID kennt.
var ErrRecordNotFound = errors.New("record not found")

// Source ist die austauschbare Datenquelle hinter einem Provider.
type Source interface {
	Records(ctx context.Context, provider string) ([]RawRecord, error)
}

// StaticSource hält Datensätze pro Provider im Speicher.
type StaticSource struct {
	mu      sync.RWMutex
	records map[string][]RawRecord
}

// NewStaticSource erstellt eine leere StaticSource.
func NewStaticSource() *StaticSource {
	return &StaticSource{records: make(map[string][]RawRecord)}
}

// Set ersetzt die Datensätze eines Providers.
func (s *StaticSource) Set(provider string, records ...RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[provider] = records
}

// Records gibt eine Kopie der Datensätze eines Providers zurück.
func (s *StaticSource) Records(_ context.Context, provider string) ([]RawRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RawRecord, 0, len(s.records[provider]))
	for _, r := range s.records[provider] {
		out = append(out, cloneRecord(r))
	}
	return out, nil
}

// FileSource liest <Dir>/<provider>.json, ein JSON-Array von Objekten.
type FileSource struct {
	Dir string
}

func (s FileSource) Records(_ context.Context, provider string) ([]RawRecord, error) {
	path := filepath.Join(s.Dir, provider+".json")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var records []RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return records, nil
}

// ChangedSince filtert Datensätze anhand des optionalen Feldes "updated_at".
// Datensätze ohne (lesbares) updated_at gelten immer als geändert.
func ChangedSince(records []RawRecord, since *time.Time) []RawRecord {
	if since == nil {
		return records
	}
	var out []RawRecord
	for _, r := range records {
		raw, _ := r["updated_at"].(string)
		updated, err := time.Parse(time.RFC3339, raw)
		if err != nil || updated.After(*since) {
			out = append(out, r)
		}
	}
	return out
}

// FindByExternalID sucht einen Datensatz über sein Feld "external_id".
func FindByExternalID(records []RawRecord, externalID string) (RawRecord, error) {
	for _, r := range records {
		if id, _ := r["external_id"].(string); id == externalID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", externalID, ErrRecordNotFound)
}

func cloneRecord(r RawRecord) RawRecord {
	out := make(RawRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
