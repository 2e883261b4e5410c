package models

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeIdentifier entfernt jeglichen Leerraum und ignoriert Groß-/Kleinschreibung.
// "ISO 9001:2015" und "iso9001:2015" ergeben denselben Schlüssel.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(whitespace.ReplaceAllString(norm.NFC.String(s), ""))
}

// BeforeSave hält IdentifierNorm synchron zum Identifier.
func (w *Work) BeforeSave(tx *gorm.DB) error {
	if w.Identifier != "" {
		w.IdentifierNorm = NormalizeIdentifier(w.Identifier)
	}
	return nil
}
