package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"standarr/models"
	"standarr/providers"
	"standarr/providers/iso"
)

func gdprCandidate() *models.Candidate {
	published := time.Date(2016, 4, 27, 0, 0, 0, 0, time.UTC)
	return &models.Candidate{
		ExternalID: "eurlex:32016R0679",
		Work: models.CandidateWork{
			Authority:  "EU",
			Identifier: "CELEX:32016R0679",
			Title:      "General Data Protection Regulation",
			Abstract:   ptr("Protection of natural persons"),
		},
		Edition: models.CandidateEdition{
			EditionLabel:       "original",
			PublicationDate:    &published,
			Status:             ptr(models.StatusInForce),
			SourceCanonicalURL: ptr("https://eur-lex.europa.eu/eli/reg/2016/679/oj"),
		},
	}
}

func TestPayloadHashIgnoresFieldOrder(t *testing.T) {
	a, err := PayloadHash(map[string]any{"a": 1, "b": []any{"x", "y"}, "c": map[string]any{"z": 1, "y": 2}})
	require.NoError(t, err)
	b, err := PayloadHash(map[string]any{"c": map[string]any{"y": 2, "z": 1}, "b": []any{"x", "y"}, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	other, err := PayloadHash(map[string]any{"a": 2})
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestUpsertIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	upserter := NewUpserter(db, zap.NewNop())
	ctx := context.Background()
	raw := map[string]any{"external_id": "eurlex:32016R0679"}

	first, err := upserter.Upsert(ctx, "eurlex", raw, gdprCandidate())
	require.NoError(t, err)

	// Zweiter Durchlauf liefert nur Status und keinen Abstract.
	again := gdprCandidate()
	again.Work.Abstract = nil
	again.Edition.Status = ptr(models.StatusAbrogated)
	second, err := upserter.Upsert(ctx, "eurlex", raw, again)
	require.NoError(t, err)

	assert.Equal(t, first.Work.ID, second.Work.ID)
	assert.Equal(t, first.Edition.ID, second.Edition.ID)
	assert.Equal(t, first.SourceRecord.ID, second.SourceRecord.ID)
	assert.EqualValues(t, 1, count(t, db, &models.Work{}))
	assert.EqualValues(t, 1, count(t, db, &models.Edition{}))
	assert.EqualValues(t, 1, count(t, db, &models.SourceRecord{}))

	var work models.Work
	require.NoError(t, db.First(&work, first.Work.ID).Error)
	require.NotNil(t, work.Abstract)
	assert.Equal(t, "Protection of natural persons", *work.Abstract)
	assert.Equal(t, "celex:32016r0679", work.IdentifierNorm)

	var edition models.Edition
	require.NoError(t, db.First(&edition, first.Edition.ID).Error)
	assert.Equal(t, models.StatusAbrogated, edition.Status)
	assert.Equal(t, "2016-04-27", models.FormatDate(edition.PublicationDate, ""))

	var record models.SourceRecord
	require.NoError(t, db.First(&record, first.SourceRecord.ID).Error)
	assert.Equal(t, first.Edition.ID, *record.EditionID)
	assert.Equal(t, "https://eur-lex.europa.eu/eli/reg/2016/679/oj", *record.RawReference)
	assert.NotEmpty(t, record.PayloadHash)
}

func TestUpsertKeepsStatusWhenRecordOmitsIt(t *testing.T) {
	db := newTestDB(t)
	upserter := NewUpserter(db, zap.NewNop())
	fetcher := iso.NewFetcher(nil, zap.NewNop())
	ctx := context.Background()

	record := providers.RawRecord{
		"external_id":      "iso:9001:2015",
		"identifier":       "ISO 9001",
		"title":            "Quality management systems",
		"edition_label":    "2015",
		"publication_date": "2015-09-15",
		"status":           models.StatusInForce,
	}
	c, err := fetcher.Normalize(record)
	require.NoError(t, err)
	first, err := upserter.Upsert(ctx, iso.Name, record, c)
	require.NoError(t, err)

	delete(record, "status")
	c, err = fetcher.Normalize(record)
	require.NoError(t, err)
	require.Nil(t, c.Edition.Status)
	second, err := upserter.Upsert(ctx, iso.Name, record, c)
	require.NoError(t, err)
	assert.Equal(t, first.Edition.ID, second.Edition.ID)

	var edition models.Edition
	require.NoError(t, db.First(&edition, first.Edition.ID).Error)
	assert.Equal(t, models.StatusInForce, edition.Status)

	// Neue Ausgabe ohne Status fällt auf "unknown" zurück.
	record["external_id"] = "iso:9001:2008"
	record["edition_label"] = "2008"
	record["publication_date"] = "2008-11-14"
	c, err = fetcher.Normalize(record)
	require.NoError(t, err)
	third, err := upserter.Upsert(ctx, iso.Name, record, c)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnknown, third.Edition.Status)
}

func TestUpsertReplacesLinksOnlyWhenSupplied(t *testing.T) {
	db := newTestDB(t)
	upserter := NewUpserter(db, zap.NewNop())
	ctx := context.Background()

	disciplines := []models.DisciplineCategory{
		{Code: "PRIV", Name: "Privacy", Version: "v1", SortOrder: 1, Active: true},
		{Code: "QUAL", Name: "Qualità", Version: "v1", SortOrder: 2, Active: true},
	}
	require.NoError(t, db.Create(&disciplines).Error)
	tag := models.UserTag{Name: "gdpr", NormalizedName: "gdpr"}
	require.NoError(t, db.Create(&tag).Error)

	c := gdprCandidate()
	c.Work.PrimaryDisciplineID = ptr(disciplines[0].ID)
	c.Work.SecondaryDisciplineIDs = []uint{disciplines[0].ID, disciplines[1].ID}
	c.Work.TagIDs = []uint{tag.ID}
	res, err := upserter.Upsert(ctx, "eurlex", map[string]any{}, c)
	require.NoError(t, err)

	var links []models.WorkDiscipline
	require.NoError(t, db.Where("work_id = ?", res.Work.ID).Find(&links).Error)
	require.Len(t, links, 1)
	assert.Equal(t, disciplines[1].ID, links[0].DisciplineID)

	// nil lässt Verknüpfungen unverändert
	_, err = upserter.Upsert(ctx, "eurlex", map[string]any{}, gdprCandidate())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count(t, db, &models.WorkDiscipline{}))
	assert.EqualValues(t, 1, count(t, db, &models.WorkTag{}))

	// leere Liste leert sie
	cleared := gdprCandidate()
	cleared.Work.SecondaryDisciplineIDs = []uint{}
	cleared.Work.TagIDs = []uint{}
	_, err = upserter.Upsert(ctx, "eurlex", map[string]any{}, cleared)
	require.NoError(t, err)
	assert.Zero(t, count(t, db, &models.WorkDiscipline{}))
	assert.Zero(t, count(t, db, &models.WorkTag{}))

	var work models.Work
	require.NoError(t, db.First(&work, res.Work.ID).Error)
	assert.Equal(t, disciplines[0].ID, *work.PrimaryDisciplineID)
}

func TestUpsertRejectsInvalidCandidates(t *testing.T) {
	db := newTestDB(t)
	upserter := NewUpserter(db, zap.NewNop())
	ctx := context.Background()

	noID := gdprCandidate()
	noID.Work.Identifier = ""
	_, err := upserter.Upsert(ctx, "eurlex", map[string]any{}, noID)
	assert.ErrorIs(t, err, ErrValidation)

	badStatus := gdprCandidate()
	badStatus.Edition.Status = ptr("repealed")
	_, err = upserter.Upsert(ctx, "eurlex", map[string]any{}, badStatus)
	assert.ErrorIs(t, err, ErrValidation)

	badRelation := gdprCandidate()
	badRelation.Relations = []models.CandidateRelation{{ToExternalID: "x", Type: "related", Confidence: 1.5}}
	_, err = upserter.Upsert(ctx, "eurlex", map[string]any{}, badRelation)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpsertRelationsResolveThroughSourceRecords(t *testing.T) {
	db := newTestDB(t)
	upserter := NewUpserter(db, zap.NewNop())
	ctx := context.Background()

	target := gdprCandidate()
	targetRes, err := upserter.Upsert(ctx, "eurlex", map[string]any{}, target)
	require.NoError(t, err)

	from := gdprCandidate()
	from.ExternalID = "eurlex:32016R0679-consolidated"
	from.Edition.EditionLabel = "2016-05-04"
	from.Relations = []models.CandidateRelation{
		{ToExternalID: target.ExternalID, Type: "", Confidence: 0.8, Source: "test"},
		{ToExternalID: "eurlex:unknown", Type: models.RelationRelated, Confidence: 1},
	}
	res, err := upserter.Upsert(ctx, "eurlex", map[string]any{}, from)
	require.NoError(t, err)
	assert.Equal(t, 1, res.RelationsCreated)

	res, err = upserter.Upsert(ctx, "eurlex", map[string]any{}, from)
	require.NoError(t, err)
	assert.Zero(t, res.RelationsCreated)

	var edges []models.EditionRelation
	require.NoError(t, db.Find(&edges).Error)
	require.Len(t, edges, 1)
	assert.Equal(t, res.Edition.ID, edges[0].FromEditionID)
	assert.Equal(t, targetRes.Edition.ID, edges[0].ToEditionID)
	assert.Equal(t, models.RelationRelated, edges[0].Type)
	assert.InDelta(t, 0.8, edges[0].Confidence, 1e-9)
}
