package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLookupIsCaseInsensitive(t *testing.T) {
	r := New(nil, zap.NewNop())
	for _, name := range []string{"eurlex", "EurLex", " NORMATTIVA ", "iso"} {
		p, err := r.Lookup(name)
		require.NoError(t, err, name)
		assert.Contains(t, Names(), p.Name())
	}
}

func TestLookupUnknownProvider(t *testing.T) {
	_, err := New(nil, zap.NewNop()).Lookup("pubmed")
	var unknown *UnknownProviderError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "unknown provider 'pubmed'. Available: eurlex, iso, normattiva", err.Error())
}

func TestDefaultSourceServesSampleRecords(t *testing.T) {
	r := New(nil, zap.NewNop())
	for _, name := range Names() {
		p, err := r.Lookup(name)
		require.NoError(t, err)
		records, err := p.FetchChanges(context.Background(), nil)
		require.NoError(t, err)
		require.NotEmpty(t, records, name)
		for _, record := range records {
			_, err := p.Normalize(record)
			assert.NoError(t, err, name)
		}
	}
}
