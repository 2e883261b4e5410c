package iso

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"standarr/models"
	"standarr/providers"
)

func TestNormalize(t *testing.T) {
	f := NewFetcher(nil, zap.NewNop())
	c, err := f.Normalize(SampleRecords()[0])
	require.NoError(t, err)

	assert.Equal(t, "iso:9001:2015", c.ExternalID)
	assert.Equal(t, "ISO", c.Work.Authority)
	assert.Equal(t, "ISO 9001:2015", c.Work.Identifier)
	assert.Equal(t, "2015-09-15", models.FormatDate(c.Edition.PublicationDate, ""))
	assert.Equal(t, []string{"quality management"}, c.Categories)
	assert.Equal(t, []string{"QMS", "quality"}, c.Keywords)
}

func TestNormalizeDefaults(t *testing.T) {
	f := NewFetcher(nil, zap.NewNop())
	c, err := f.Normalize(providers.RawRecord{
		"external_id":           "iso:14001",
		"identifier":            "ISO 14001",
		"title":                 "Environmental management systems",
		"primary_discipline_id": float64(4),
	})
	require.NoError(t, err)
	assert.Equal(t, "ISO", c.Work.Authority)
	assert.Nil(t, c.Edition.Status)
	assert.Equal(t, "original", c.Edition.EditionLabel)
	require.NotNil(t, c.Work.PrimaryDisciplineID)
	assert.Equal(t, uint(4), *c.Work.PrimaryDisciplineID)
}
