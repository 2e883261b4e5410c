// Package registry bildet Provider-Namen auf die feste Menge der Provider-Varianten ab.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"standarr/providers"
	"standarr/providers/eurlex"
	"standarr/providers/iso"
	"standarr/providers/normattiva"
)

// Names listet alle bekannten Provider, sortiert.
func Names() []string {
	names := []string{eurlex.Name, iso.Name, normattiva.Name}
	sort.Strings(names)
	return names
}

// UnknownProviderError wird für nicht registrierte Provider-Namen geliefert.
type UnknownProviderError struct {
	Name string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider '%s'. Available: %s", e.Name, strings.Join(Names(), ", "))
}

// Registry erzeugt Provider-Varianten über einer gemeinsamen Datenquelle.
type Registry struct {
	source providers.Source
	logger *zap.Logger
}

// New erstellt eine Registry. Ist source nil, werden die eingebauten Beispieldatensätze verwendet.
func New(source providers.Source, logger *zap.Logger) *Registry {
	if source == nil {
		source = DefaultSource()
	}
	return &Registry{source: source, logger: logger}
}

// Lookup liefert die Provider-Variante zu einem Namen (Groß-/Kleinschreibung egal).
func (r *Registry) Lookup(name string) (providers.Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	log := r.logger.With(zap.String("provider", key))
	switch key {
	case eurlex.Name:
		return eurlex.NewFetcher(r.source, log), nil
	case normattiva.Name:
		return normattiva.NewFetcher(r.source, log), nil
	case iso.Name:
		return iso.NewFetcher(r.source, log), nil
	default:
		return nil, &UnknownProviderError{Name: name}
	}
}

// DefaultSource liefert die eingebauten Beispieldatensätze aller Provider.
func DefaultSource() *providers.StaticSource {
	src := providers.NewStaticSource()
	src.Set(eurlex.Name, eurlex.SampleRecords()...)
	src.Set(normattiva.Name, normattiva.SampleRecords()...)
	src.Set(iso.Name, iso.SampleRecords()...)
	return src
}
