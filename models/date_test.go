package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	berlin := time.FixedZone("CEST", 2*3600)
	native := time.Date(2015, 9, 15, 23, 30, 0, 0, berlin)

	cases := []struct {
		name  string
		value any
		want  string
	}{
		{"date", "2016-04-27", "2016-04-27"},
		{"padded", " 2016-04-27 ", "2016-04-27"},
		{"rfc3339", "2016-04-27T15:04:05Z", "2016-04-27"},
		{"native", native, "2015-09-15"},
		{"pointer", &native, "2015-09-15"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDate(tc.value)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tc.want, FormatDate(got, ""))
			assert.Equal(t, time.UTC, got.Location())
			assert.Zero(t, got.Hour())
		})
	}

	for _, empty := range []any{nil, "", "  ", time.Time{}, (*time.Time)(nil)} {
		got, err := ParseDate(empty)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	_, err := ParseDate("27/04/2016")
	assert.Error(t, err)
	_, err = ParseDate(20160427)
	assert.Error(t, err)
}

func TestFormatDatePlaceholder(t *testing.T) {
	assert.Equal(t, "n.d.", FormatDate(nil, "n.d."))
}

func TestNormalizeIdentifier(t *testing.T) {
	assert.Equal(t, "iso9001:2015", NormalizeIdentifier("ISO 9001:2015"))
	assert.Equal(t, "iso9001:2015", NormalizeIdentifier(" iso\t9001 :2015\n"))
	assert.Equal(t, NormalizeIdentifier("Cafe\u0301 1"), NormalizeIdentifier("caf\u00e9 1"))
	assert.Equal(t, "gdpr", NormalizeTagName("  GDPR "))
}

func TestWorkBeforeSaveSetsNormalizedIdentifier(t *testing.T) {
	w := &Work{Identifier: "CELEX: 32016R0679"}
	require.NoError(t, w.BeforeSave(nil))
	assert.Equal(t, "celex:32016r0679", w.IdentifierNorm)
}
