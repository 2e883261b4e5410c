package providers

import (
	"fmt"
	"strings"
)

// String liest ein String-Feld; fehlende oder leere Werte ergeben "".
func (r RawRecord) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// OptString liest ein optionales String-Feld; leer ergibt nil.
func (r RawRecord) OptString(key string) *string {
	s := r.String(key)
	if s == "" {
		return nil
	}
	return &s
}

// Require liest ein Pflichtfeld.
func (r RawRecord) Require(key string) (string, error) {
	s := r.String(key)
	if s == "" {
		return "", fmt.Errorf("record is missing required field %q", key)
	}
	return s, nil
}

// Strings liest eine Liste von Strings ([]string oder []any aus JSON).
func (r RawRecord) Strings(key string) []string {
	var out []string
	switch v := r[key].(type) {
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range v {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" && item != nil {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// OptUint liest eine optionale ID (JSON-Zahlen kommen als float64).
func (r RawRecord) OptUint(key string) *uint {
	var id uint
	switch v := r[key].(type) {
	case uint:
		id = v
	case int:
		if v <= 0 {
			return nil
		}
		id = uint(v)
	case float64:
		if v <= 0 {
			return nil
		}
		id = uint(v)
	default:
		return nil
	}
	if id == 0 {
		return nil
	}
	return &id
}
