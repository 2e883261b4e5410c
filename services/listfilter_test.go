package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"standarr/models"
)

// catalogSeed ist ein kleiner Katalog: DSGVO (EU) mit einer Ausgabe, ISO 9001 mit vier.
type catalogSeed struct {
	priv, qual models.DisciplineCategory
	tag        models.UserTag
	gdpr, iso  models.Work
	// e1: DSGVO; e2: 2008 abrogated; e3/e4: 2015 in_force; e5: ohne Datum
	e1, e2, e3, e4, e5 models.Edition
}

func day(s string) *time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedCatalog(t *testing.T, db *gorm.DB) *catalogSeed {
	t.Helper()
	s := &catalogSeed{
		priv: models.DisciplineCategory{Code: "PRIV", Name: "Privacy", Version: "v1", SortOrder: 1, Active: true},
		qual: models.DisciplineCategory{Code: "QUAL", Name: "Qualità", Version: "v1", SortOrder: 2, Active: true},
		tag:  models.UserTag{Name: "GDPR", NormalizedName: "gdpr"},
	}
	require.NoError(t, db.Create(&s.priv).Error)
	require.NoError(t, db.Create(&s.qual).Error)
	require.NoError(t, db.Create(&s.tag).Error)

	s.gdpr = models.Work{
		Authority:           "EU",
		Identifier:          "CELEX:32016R0679",
		Title:               "General Data Protection Regulation",
		Abstract:            ptr("Processing of personal data"),
		PrimaryDisciplineID: ptr(s.priv.ID),
	}
	s.iso = models.Work{
		Authority:           "ISO",
		Identifier:          "ISO 9001",
		Title:               "Quality management systems",
		PrimaryDisciplineID: ptr(s.qual.ID),
	}
	require.NoError(t, db.Create(&s.gdpr).Error)
	require.NoError(t, db.Create(&s.iso).Error)
	require.NoError(t, db.Create(&models.WorkTag{WorkID: s.gdpr.ID, TagID: s.tag.ID}).Error)
	require.NoError(t, db.Create(&models.WorkDiscipline{WorkID: s.iso.ID, DisciplineID: s.priv.ID}).Error)

	s.e1 = models.Edition{WorkID: s.gdpr.ID, EditionLabel: "original", PublicationDate: day("2016-04-27"),
		Status: models.StatusInForce, SourceCanonicalURL: ptr("https://eur-lex.europa.eu/eli/reg/2016/679/oj")}
	s.e2 = models.Edition{WorkID: s.iso.ID, EditionLabel: "2008", PublicationDate: day("2008-11-14"), Status: models.StatusAbrogated}
	s.e3 = models.Edition{WorkID: s.iso.ID, EditionLabel: "2015", PublicationDate: day("2015-09-15"), Status: models.StatusInForce}
	s.e4 = models.Edition{WorkID: s.iso.ID, EditionLabel: "2015/Amd 1", PublicationDate: day("2015-09-15"), Status: models.StatusInForce}
	s.e5 = models.Edition{WorkID: s.iso.ID, EditionLabel: "draft", Status: models.StatusInForce}
	for _, e := range []*models.Edition{&s.e1, &s.e2, &s.e3, &s.e4, &s.e5} {
		require.NoError(t, db.Omit("Work").Create(e).Error)
	}

	edges := []models.EditionRelation{
		{FromEditionID: s.e2.ID, ToEditionID: s.e1.ID, Type: models.RelationRelated, Confidence: 1},
		{FromEditionID: s.e3.ID, ToEditionID: s.e2.ID, Type: models.RelationRelated, Confidence: 1},
	}
	require.NoError(t, db.Create(&edges).Error)
	return s
}

func idsOf(editions ...models.Edition) []uint {
	out := make([]uint, 0, len(editions))
	for _, e := range editions {
		out = append(out, e.ID)
	}
	return out
}

func TestFilterPredicates(t *testing.T) {
	db := newTestDB(t)
	s := seedCatalog(t, db)
	require.NoError(t, db.Create(&models.LocalAttachment{
		EditionID: s.e3.ID, Filename: "iso9001.pdf", MimeType: "application/pdf",
		SizeBytes: 3, SHA256: "abc", StorageKey: "k",
	}).Error)

	cases := []struct {
		name   string
		filter models.ListFilters
		want   []uint
	}{
		{"no filters", models.ListFilters{}, idsOf(s.e1, s.e2, s.e3, s.e4, s.e5)},
		{"query title", models.ListFilters{Query: "PROTECTION"}, idsOf(s.e1)},
		{"query identifier", models.ListFilters{Query: "iso 9001"}, idsOf(s.e2, s.e3, s.e4, s.e5)},
		{"query abstract", models.ListFilters{Query: "personal data"}, idsOf(s.e1)},
		{"authority", models.ListFilters{Authority: []string{"ISO"}}, idsOf(s.e2, s.e3, s.e4, s.e5)},
		{"status", models.ListFilters{Status: []string{models.StatusAbrogated}}, idsOf(s.e2)},
		{"publication range", models.ListFilters{PublicationDateFrom: "2010-01-01", PublicationDateTo: "2015-12-31"}, idsOf(s.e3, s.e4)},
		{"publication inclusive", models.ListFilters{PublicationDateFrom: "2016-04-27", PublicationDateTo: "2016-04-27"}, idsOf(s.e1)},
		{"primary or secondary discipline", models.ListFilters{DisciplineIDs: []uint{s.priv.ID}}, idsOf(s.e1, s.e2, s.e3, s.e4, s.e5)},
		{"primary discipline only", models.ListFilters{DisciplineIDs: []uint{s.qual.ID}}, idsOf(s.e2, s.e3, s.e4, s.e5)},
		{"tag", models.ListFilters{TagIDs: []uint{s.tag.ID}}, idsOf(s.e1)},
		{"has official link", models.ListFilters{HasOfficialLink: ptr(true)}, idsOf(s.e1)},
		{"no official link", models.ListFilters{HasOfficialLink: ptr(false)}, idsOf(s.e2, s.e3, s.e4, s.e5)},
		{"has attachment", models.ListFilters{HasAttachment: ptr(true)}, idsOf(s.e3)},
		{"no attachment", models.ListFilters{HasAttachment: ptr(false)}, idsOf(s.e1, s.e2, s.e4, s.e5)},
		{"updated in the future", models.ListFilters{UpdatedFrom: "2999-01-01"}, []uint{}},
		{"updated since the past", models.ListFilters{UpdatedFrom: "2000-01-01T00:00:00Z"}, idsOf(s.e1, s.e2, s.e3, s.e4, s.e5)},
		{"conjunction", models.ListFilters{Authority: []string{"ISO"}, Status: []string{models.StatusInForce}, HasAttachment: ptr(false)}, idsOf(s.e4, s.e5)},
	}
	engine := NewFilterEngine(db)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := engine.EditionIDs(context.Background(), tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestQueryTreatsWildcardsLiterally(t *testing.T) {
	db := newTestDB(t)
	s := seedCatalog(t, db)
	work := models.Work{Authority: "IT", Identifier: "DM 50/2020", Title: "Detrazione 50% ristrutturazioni"}
	require.NoError(t, db.Create(&work).Error)
	e6 := models.Edition{WorkID: work.ID, EditionLabel: "original", Status: models.StatusInForce}
	require.NoError(t, db.Omit("Work").Create(&e6).Error)

	engine := NewFilterEngine(db)
	for query, want := range map[string][]uint{
		"50%":                idsOf(e6),
		"%":                  idsOf(e6),
		"%data":              {},
		"quality_management": {},
		"personal data":      idsOf(s.e1),
	} {
		got, err := engine.EditionIDs(context.Background(), models.ListFilters{Query: query})
		require.NoError(t, err)
		assert.Equal(t, want, got, "query %q", query)
	}
}

func TestOnlyLatestInForce(t *testing.T) {
	db := newTestDB(t)
	s := seedCatalog(t, db)
	engine := NewFilterEngine(db)
	ctx := context.Background()

	// Gleiches Datum: die höhere ID gewinnt; Ausgaben ohne Datum zählen nie.
	got, err := engine.EditionIDs(ctx, models.ListFilters{OnlyLatestInForce: true})
	require.NoError(t, err)
	assert.Equal(t, idsOf(s.e1, s.e4), got)

	got, err = engine.EditionIDs(ctx, models.ListFilters{OnlyLatestInForce: true, Authority: []string{"ISO"}})
	require.NoError(t, err)
	assert.Equal(t, idsOf(s.e4), got)

	// Die neueste Ausgabe wird über alle Ausgaben des Werks bestimmt, nicht nur über die gefilterten.

	got, err = engine.EditionIDs(ctx, models.ListFilters{OnlyLatestInForce: true, PublicationDateTo: "2010-01-01"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIncludeRelatedFollowsOneHop(t *testing.T) {
	db := newTestDB(t)
	s := seedCatalog(t, db)
	engine := NewFilterEngine(db)
	ctx := context.Background()

	got, err := engine.EditionIDs(ctx, models.ListFilters{Authority: []string{"EU"}, IncludeRelated: true})
	require.NoError(t, err)
	assert.Equal(t, idsOf(s.e1, s.e2), got)

	got, err = engine.EditionIDs(ctx, models.ListFilters{Status: []string{models.StatusAbrogated}, IncludeRelated: true})
	require.NoError(t, err)
	assert.Equal(t, idsOf(s.e1, s.e2, s.e3), got)

	editions, err := engine.Editions(ctx, models.ListFilters{Authority: []string{"EU"}, IncludeRelated: true})
	require.NoError(t, err)
	require.Len(t, editions, 2)
	assert.Equal(t, "CELEX:32016R0679", editions[0].Work.Identifier)
	assert.Equal(t, []uint{s.priv.ID}, editions[1].Work.SecondaryDisciplineIDs())
}

func TestValidateFiltersRejectsMalformedInput(t *testing.T) {
	for name, f := range map[string]models.ListFilters{
		"malformed publication date": {PublicationDateFrom: "27/04/2016"},
		"malformed updated date":     {UpdatedTo: "yesterday"},
		"unknown status":             {Status: []string{"repealed"}},
		"inverted range":             {PublicationDateFrom: "2020-01-01", PublicationDateTo: "2019-12-31"},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, ValidateFilters(f), ErrValidation)
			_, err := NewFilterEngine(newTestDB(t)).EditionIDs(context.Background(), f)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.NoError(t, ValidateFilters(models.ListFilters{UpdatedFrom: "2024-03-01", UpdatedTo: "2024-03-01T10:00:00+01:00"}))
}
