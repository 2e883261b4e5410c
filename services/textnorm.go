package services

import (
	"regexp"
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ligatures = strings.NewReplacer(
		"ﬁ", "fi",
		"ﬂ", "fl",
		"ﬀ", "ff",
		"ﬃ", "ffi",
		"ﬄ", "ffl",
		"ﬆ", "st",
	)
	multiSpace = regexp.MustCompile(`\s+`)
)

// normalizeUnicode führt NFC-Normalisierung durch und ersetzt gängige Ligaturen.
func normalizeUnicode(s string) string {
	s = ligatures.Replace(s)
	normalized, _, err := transform.String(norm.NFC, s)
	if err != nil {
		return s
	}
	return normalized
}

// NormalizeTerm ist die Form, in der Titel, Kategorien und Schlagworte klassifiziert werden.
func NormalizeTerm(s string) string {
	s = normalizeUnicode(s)
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}
