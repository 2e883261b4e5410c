package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"standarr/models"
	"standarr/providers"
	"standarr/providers/eurlex"
	"standarr/providers/registry"
	"standarr/services"
	"standarr/storage"
)

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	source *providers.StaticSource
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), "catalog.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), storage.GormConfig(false))
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	store, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	source := providers.NewStaticSource()
	log := zap.NewNop()
	lists := services.NewListService(db, log)
	ingestion := services.NewIngestionService(db, registry.New(source, log), services.DefaultRules(), log)
	ingestion.Lists = lists

	router := NewRouter(&Server{
		Catalog:     services.NewCatalogService(db, log),
		Lists:       lists,
		Ingestion:   ingestion,
		Exporter:    services.NewExporter(db, "Standarr"),
		Attachments: services.NewAttachmentService(db, store, log),
		Logger:      log,
		Background:  func(f func()) { f() },
	})
	return &testServer{router: router, db: db, source: source}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestIngestionEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.source.Set(eurlex.Name, eurlex.SampleRecords()...)

	w := s.do(t, http.MethodGet, "/api/ingestion/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "idle", decode[services.IngestionStatus](t, w).Status)

	w = s.do(t, http.MethodGet, "/api/ingestion/providers", nil)
	assert.JSONEq(t, `{"providers":["eurlex","iso","normattiva"]}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/ingestion/unknown/run", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Available: eurlex, iso, normattiva")

	w = s.do(t, http.MethodPost, "/api/ingestion/eurlex/run", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	runID := decode[map[string]uint](t, w)["run_id"]
	require.NotZero(t, runID)

	w = s.do(t, http.MethodGet, "/api/ingestion/runs/"+itoa(runID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	run := decode[models.IngestionRun](t, w)
	assert.Equal(t, models.RunCompleted, run.Status)
	assert.Equal(t, 1, run.RecordsSeen)

	w = s.do(t, http.MethodGet, "/api/ingestion/runs/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodGet, "/api/ingestion/runs/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/works?authority=EU", nil)
	require.Equal(t, http.StatusOK, w.Code)
	works := decode[[]models.Work](t, w)
	require.Len(t, works, 1)
	assert.Equal(t, "CELEX:32016R0679", works[0].Identifier)

	w = s.do(t, http.MethodGet, "/api/works/"+itoa(works[0].ID)+"/sources", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.SourceRecord](t, w), 1)
}

func TestCatalogEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/disciplines", map[string]any{"code": "ENV", "name": "Ambiente", "sort_order": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	env := decode[models.DisciplineCategory](t, w)

	w = s.do(t, http.MethodPost, "/api/disciplines", map[string]any{"code": "ENV", "name": "Doppio"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decode[map[string]string](t, w)["code"])

	w = s.do(t, http.MethodPost, "/api/works", map[string]any{
		"authority": "ISO", "identifier": "ISO 14001", "title": "Environmental management systems",
		"primary_discipline_id": env.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	work := decode[models.Work](t, w)

	w = s.do(t, http.MethodPost, "/api/editions", map[string]any{
		"work_id": work.ID, "edition_label": "2015", "publication_date": "2015-09-15", "status": "in_force",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	first := decode[models.Edition](t, w)

	w = s.do(t, http.MethodPost, "/api/editions", map[string]any{"work_id": work.ID, "publication_date": "15/09/2015"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[map[string]string](t, w)["code"])

	w = s.do(t, http.MethodPost, "/api/editions", map[string]any{"work_id": work.ID, "edition_label": "2004", "status": "abrogated"})
	require.Equal(t, http.StatusCreated, w.Code)
	second := decode[models.Edition](t, w)

	w = s.do(t, http.MethodPost, "/api/relations", map[string]any{"from_edition_id": first.ID, "to_edition_id": second.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/editions?status=in_force,abrogated&work_id="+itoa(work.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Edition](t, w), 2)

	w = s.do(t, http.MethodGet, "/api/editions?only_latest_in_force=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/editions/"+itoa(second.ID)+"/relations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.EditionRelation](t, w), 1)

	w = s.do(t, http.MethodPatch, "/api/works/"+itoa(work.ID), map[string]any{"title": "EMS"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "EMS", decode[models.Work](t, w).Title)

	w = s.do(t, http.MethodDelete, "/api/editions/"+itoa(second.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/editions/"+itoa(second.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/tags", map[string]any{"name": "Ambiente"})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/tags", nil)
	assert.Len(t, decode[[]models.UserTag](t, w), 1)
}

func TestListEndpoints(t *testing.T) {
	s := newTestServer(t)
	qual := models.DisciplineCategory{Code: "QUAL", Name: "Qualità", Version: "v1", SortOrder: 1, Active: true}
	require.NoError(t, s.db.Create(&qual).Error)
	qualID := qual.ID
	work := models.Work{Authority: "ISO", Identifier: "ISO 9001", Title: "Quality management systems", PrimaryDisciplineID: &qualID}
	require.NoError(t, s.db.Create(&work).Error)
	edition := models.Edition{WorkID: work.ID, EditionLabel: "2015", Status: models.StatusInForce}
	require.NoError(t, s.db.Omit("Work").Create(&edition).Error)

	w := s.do(t, http.MethodPost, "/api/lists", map[string]any{"name": "", "filters": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/lists", map[string]any{
		"name":    "Qualità",
		"filters": map[string]any{"authority": []string{"ISO"}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	list := decode[models.NormativeList](t, w)
	listPath := "/api/lists/" + itoa(list.ID)

	w = s.do(t, http.MethodGet, listPath+"/items", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode[[]models.NormativeListItem](t, w)
	require.Len(t, items, 1)
	itemPath := listPath + "/items/" + itoa(items[0].ID)

	w = s.do(t, http.MethodPost, itemPath+"/exclude", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReasonManualExclude, decode[models.NormativeListItem](t, w).Reason)

	w = s.do(t, http.MethodPatch, itemPath, map[string]any{"note": "in revisione"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, listPath+"/regenerate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	regen := decode[struct {
		Result services.RegenerationResult `json:"result"`
	}](t, w)
	assert.Equal(t, services.RegenerationResult{}, regen.Result)

	w = s.do(t, http.MethodGet, listPath+"/export/txt", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Nome elenco: Qualità")
	assert.NotContains(t, w.Body.String(), "ISO 9001 —")

	w = s.do(t, http.MethodPost, listPath+"/items/manual-add", map[string]any{"edition_id": edition.ID})
	require.Equal(t, http.StatusOK, w.Code)
	item := decode[models.NormativeListItem](t, w)
	assert.Equal(t, models.ReasonManualInclude, item.Reason)
	assert.True(t, item.Included)
	require.NotNil(t, item.Note)
	assert.Equal(t, "in revisione", *item.Note)

	w = s.do(t, http.MethodGet, listPath+"/export/txt", nil)
	assert.Contains(t, w.Body.String(), "- ISO 9001 — Quality management systems (Ed. 2015, Pub. n.d.) [ISO] in_force\n  Note: in revisione")

	w = s.do(t, http.MethodPost, listPath+"/items/manual-add", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, listPath, map[string]any{"regeneration_mode": "hourly"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/lists/999/export/txt", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttachmentEndpoints(t *testing.T) {
	s := newTestServer(t)
	work := models.Work{Authority: "EU", Identifier: "CELEX:32016R0679", Title: "GDPR"}
	require.NoError(t, s.db.Create(&work).Error)
	edition := models.Edition{WorkID: work.ID, EditionLabel: "original", Status: models.StatusInForce}
	require.NoError(t, s.db.Omit("Work").Create(&edition).Error)

	upload := func() *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("file", "gdpr.pdf")
		require.NoError(t, err)
		_, err = part.Write([]byte("%PDF-1.7 gdpr"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/editions/"+itoa(edition.ID)+"/attachments", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	w := upload()
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	att := decode[models.LocalAttachment](t, w)
	assert.Equal(t, "gdpr.pdf", att.Filename)

	w = upload()
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/attachments/"+itoa(att.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.7 gdpr", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="gdpr.pdf"`)

	w = s.do(t, http.MethodGet, "/api/editions?has_attachment=true", nil)
	assert.Len(t, decode[[]models.Edition](t, w), 1)

	w = s.do(t, http.MethodDelete, "/api/attachments/"+itoa(att.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/editions/"+itoa(edition.ID)+"/attachments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.LocalAttachment](t, w))

	req := httptest.NewRequest(http.MethodPost, "/api/editions/"+itoa(edition.ID)+"/attachments", nil)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
