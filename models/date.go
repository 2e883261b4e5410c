package models

import (
	"fmt"
	"strings"
	"time"
)

// ParseDate akzeptiert ISO-8601-Strings oder native Datumswerte; leer/nil ergibt nil.
// Das Ergebnis ist immer ein Datum um Mitternacht UTC.
func ParseDate(value any) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		layouts := []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				d := DateOf(t)
				return &d, nil
			}
		}
		return nil, fmt.Errorf("malformed date %q", v)
	case time.Time:
		if v.IsZero() {
			return nil, nil
		}
		d := DateOf(v)
		return &d, nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return nil, nil
		}
		d := DateOf(*v)
		return &d, nil
	default:
		return nil, fmt.Errorf("unsupported date value of type %T", value)
	}
}

// DateOf schneidet die Uhrzeit ab und normalisiert auf UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate rendert ein optionales Datum als YYYY-MM-DD oder den gegebenen Platzhalter.
func FormatDate(t *time.Time, placeholder string) string {
	if t == nil {
		return placeholder
	}
	return t.Format("2006-01-02")
}
