package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"standarr/models"
	"standarr/providers"
	"standarr/providers/registry"
	"standarr/storage"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "catalog.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), storage.GormConfig(false))
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// testClock liefert bei jedem Aufruf eine Sekunde später als zuvor.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

type ingestionFixture struct {
	db        *gorm.DB
	source    *providers.StaticSource
	ingestion *IngestionService
	lists     *ListService
}

func newIngestionFixture(t *testing.T) *ingestionFixture {
	t.Helper()
	db := newTestDB(t)
	source := providers.NewStaticSource()
	svc := NewIngestionService(db, registry.New(source, zap.NewNop()), DefaultRules(), zap.NewNop())
	svc.Now = newTestClock().Now
	return &ingestionFixture{
		db:        db,
		source:    source,
		ingestion: svc,
		lists:     NewListService(db, zap.NewNop()),
	}
}

func (f *ingestionFixture) run(t *testing.T, provider string, records ...providers.RawRecord) *models.IngestionRun {
	t.Helper()
	f.source.Set(provider, records...)
	run, err := f.ingestion.RunIngestion(context.Background(), provider)
	require.NoError(t, err)
	require.Equal(t, models.RunCompleted, run.Status)
	return run
}

func isoRecord(externalID, identifier, published string) providers.RawRecord {
	return providers.RawRecord{
		"external_id":      externalID,
		"identifier":       identifier,
		"title":            "Quality management systems — Requirements",
		"publication_date": published,
		"status":           models.StatusInForce,
		"categories":       []any{"quality management"},
		"keywords":         []any{"QMS"},
	}
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func ptr[T any](v T) *T { return &v }
