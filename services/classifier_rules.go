package services

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DisciplineRule ordnet Schlagworte einer Disziplin zu.
type DisciplineRule struct {
	Code     string   `yaml:"code"`
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Rules sind die Klassifikationsregeln. Disziplinen sind geordnet, Tags nicht.
type Rules struct {
	Disciplines []DisciplineRule    `yaml:"disciplines"`
	Tags        map[string][]string `yaml:"tags"`
}

// DefaultRules liefert die eingebauten Regeln.
func DefaultRules() Rules {
	return Rules{
		Disciplines: []DisciplineRule{
			{
				Code:     "PRIV",
				Name:     "Privacy e protezione dati",
				Keywords: []string{"privacy", "data protection", "gdpr", "personal data"},
			},
			{
				Code:     "QUAL",
				Name:     "Gestione della qualita",
				Keywords: []string{"quality", "quality management", "qms"},
			},
			{
				Code:     "ADM",
				Name:     "Procedimento amministrativo",
				Keywords: []string{"procedimento amministrativo", "public administration", "administrative"},
			},
		},
		Tags: map[string][]string{
			"gdpr":                        {"gdpr", "general data protection regulation"},
			"quality-management":          {"quality management", "qms"},
			"procedimento-amministrativo": {"procedimento amministrativo"},
		},
	}
}

// LoadRules liest Regeln aus einer YAML-Datei; ein leerer Pfad liefert die eingebauten Regeln.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read classification rules: %w", err)
	}
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse classification rules %s: %w", path, err)
	}
	if err := rules.normalize(); err != nil {
		return Rules{}, fmt.Errorf("classification rules %s: %w", path, err)
	}
	return rules, nil
}

// normalize bringt Schlagworte in Term-Form und prüft eindeutige Codes.
func (r *Rules) normalize() error {
	seen := make(map[string]bool, len(r.Disciplines))
	for i := range r.Disciplines {
		rule := &r.Disciplines[i]
		rule.Code = strings.TrimSpace(rule.Code)
		if rule.Code == "" || rule.Name == "" {
			return fmt.Errorf("discipline rule %d needs code and name", i)
		}
		if seen[rule.Code] {
			return fmt.Errorf("duplicate discipline code %q", rule.Code)
		}
		seen[rule.Code] = true
		rule.Keywords = normalizeKeywords(rule.Keywords)
	}
	tags := make(map[string][]string, len(r.Tags))
	for name, keywords := range r.Tags {
		tags[name] = normalizeKeywords(keywords)
	}
	r.Tags = tags
	return nil
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = NormalizeTerm(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// MatchDisciplines liefert die Codes aller passenden Disziplinen in Regel-Reihenfolge.
func (r Rules) MatchDisciplines(terms []string) []string {
	var codes []string
	for _, rule := range r.Disciplines {
		if hasKeyword(terms, rule.Keywords) {
			codes = append(codes, rule.Code)
		}
	}
	return codes
}

// MatchTags liefert die Namen aller passenden Tags, alphabetisch sortiert.
func (r Rules) MatchTags(terms []string) []string {
	var names []string
	for name, keywords := range r.Tags {
		if hasKeyword(terms, keywords) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// rule liefert die Disziplinregel zu einem Code samt Position.
func (r Rules) rule(code string) (DisciplineRule, int, bool) {
	for i, rule := range r.Disciplines {
		if rule.Code == code {
			return rule, i, true
		}
	}
	return DisciplineRule{}, -1, false
}

// hasKeyword: ein Schlagwort passt, wenn es Teilstring irgendeines Terms ist.
func hasKeyword(terms, keywords []string) bool {
	for _, term := range terms {
		for _, keyword := range keywords {
			if strings.Contains(term, keyword) {
				return true
			}
		}
	}
	return false
}
