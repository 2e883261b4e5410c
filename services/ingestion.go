package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"standarr/models"
	"standarr/providers"
	"standarr/providers/registry"
)

// ListRegenerator wird nach erfolgreichen Läufen aufgerufen, um dynamische Listen aufzufrischen.
type ListRegenerator interface {
	RegenerateDynamicLists(ctx context.Context) ([]uint, error)
}

// IngestionStatus fasst den letzten Lauf zusammen.
type IngestionStatus struct {
	LastRunAt    *time.Time `json:"last_run_at"`
	LastProvider *string    `json:"last_provider"`
	Status       string     `json:"status"`
}

// IngestionService orchestriert Läufe: Abruf, Normalisierung, Klassifikation, Abgleich und Upsert.
type IngestionService struct {
	DB        *gorm.DB
	Providers *registry.Registry
	Rules     Rules
	Logger    *zap.Logger
	// Lists ist optional; gesetzt werden dynamische Listen nach jedem erfolgreichen Lauf regeneriert.
	Lists ListRegenerator
	Now   func() time.Time

	// Läufe werden prozessweit serialisiert.
	mu sync.Mutex
}

// NewIngestionService erstellt eine neue Instanz des IngestionService.
func NewIngestionService(db *gorm.DB, providers *registry.Registry, rules Rules, logger *zap.Logger) *IngestionService {
	return &IngestionService{
		DB:        db,
		Providers: providers,
		Rules:     rules,
		Logger:    logger,
		Now:       time.Now,
	}
}

// StartRun prüft den Provider und legt einen Lauf im Status "running" an.
func (s *IngestionService) StartRun(ctx context.Context, provider string) (*models.IngestionRun, error) {
	p, err := s.Providers.Lookup(provider)
	if err != nil {
		return nil, &ValidationError{Field: "provider", Message: err.Error()}
	}
	run := models.IngestionRun{
		Provider:  p.Name(),
		Status:    models.RunRunning,
		StartedAt: s.Now().UTC(),
	}
	if err := s.DB.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, fmt.Errorf("create ingestion run: %w", err)
	}
	return &run, nil
}

// RunIngestion startet und führt einen Lauf synchron aus. Scheitert der Lauf, wird er dennoch
// zurückgegeben (Status "failed") zusammen mit einem IngestionRunError.
func (s *IngestionService) RunIngestion(ctx context.Context, provider string) (*models.IngestionRun, error) {
	run, err := s.StartRun(ctx, provider)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, run.ID)
}

// Execute führt einen angelegten Lauf aus. Alle Schreibzugriffe erfolgen in einer Transaktion;
// bei einem Fehler wird alles zurückgerollt und der Lauf als "failed" markiert.
func (s *IngestionService) Execute(ctx context.Context, runID uint) (*models.IngestionRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db := s.DB.WithContext(ctx)
	var run models.IngestionRun
	if err := db.First(&run, runID).Error; err != nil {
		return nil, notFound(err, "ingestion run", runID)
	}
	if run.Status != models.RunRunning {
		return nil, invalid("status", "ingestion run %d is already %s", run.ID, run.Status)
	}
	log := s.Logger.With(zap.Uint("run_id", run.ID), zap.String("provider", run.Provider))
	log.Info("Starte Ingestion-Lauf.")

	seen, runErr := s.ingest(ctx, log, &run)

	finished := s.Now().UTC()
	updates := map[string]any{
		"finished_at":  finished,
		"records_seen": seen,
		"status":       models.RunCompleted,
	}
	if runErr != nil {
		updates["status"] = models.RunFailed
		updates["error_message"] = runErr.Error()
	}
	// Der Abschluss wird unabhängig vom (evtl. abgebrochenen) Aufrufer-Kontext geschrieben.
	if err := s.DB.WithContext(context.WithoutCancel(ctx)).Model(&run).Updates(updates).Error; err != nil {
		log.Error("Konnte Lauf nicht abschließen", zap.Error(err))
		return nil, fmt.Errorf("finish ingestion run %d: %w", run.ID, err)
	}
	run.FinishedAt = &finished
	run.RecordsSeen = seen
	run.Status = updates["status"].(string)
	if runErr != nil {
		msg := runErr.Error()
		run.ErrorMessage = &msg
	}
	ingestionRunsCounter.WithLabelValues(run.Provider, run.Status).Inc()

	if runErr != nil {
		log.Error("Ingestion-Lauf fehlgeschlagen", zap.Int("records_seen", seen), zap.Error(runErr))
		return &run, &IngestionRunError{RunID: run.ID, Provider: run.Provider, Err: runErr}
	}
	ingestedRecordsCounter.WithLabelValues(run.Provider).Add(float64(seen))
	log.Info("Ingestion-Lauf abgeschlossen", zap.Int("records_seen", seen))

	if s.Lists != nil {
		ids, err := s.Lists.RegenerateDynamicLists(ctx)
		if err != nil {
			log.Warn("Regenerierung dynamischer Listen fehlgeschlagen", zap.Error(err))
		} else if len(ids) > 0 {
			log.Info("Dynamische Listen regeneriert", zap.Int("lists", len(ids)))
		}
	}
	return &run, nil
}

// ingest verarbeitet alle geänderten Datensätze des Providers in einer Transaktion und
// liefert die Anzahl gesehener Datensätze.
func (s *IngestionService) ingest(ctx context.Context, log *zap.Logger, run *models.IngestionRun) (int, error) {
	p, err := s.Providers.Lookup(run.Provider)
	if err != nil {
		return 0, err
	}
	since, err := s.lastCompletedRun(ctx, run)
	if err != nil {
		return 0, err
	}
	records, err := p.FetchChanges(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("fetch changes: %w", err)
	}
	log.Info("Provider hat Änderungen geliefert", zap.Int("count", len(records)))

	seen := 0
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		classifier := NewClassifier(tx, s.Rules, log)
		matcher := NewMatcher(tx, log)
		upserter := NewUpserter(tx, log)
		upserter.Now = s.Now

		for _, record := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			seen++
			if err := s.ingestRecord(ctx, p, classifier, matcher, upserter, record); err != nil {
				return fmt.Errorf("record %d: %w", seen, err)
			}
		}
		return nil
	})
	return seen, err
}

func (s *IngestionService) ingestRecord(ctx context.Context, p providers.Provider, classifier *Classifier, matcher *Matcher, upserter *Upserter, record providers.RawRecord) error {
	candidate, err := p.Normalize(record)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	if err := classifier.Classify(ctx, candidate); err != nil {
		return fmt.Errorf("classify %s: %w", candidate.ExternalID, err)
	}
	candidate, err = p.MatchAndMerge(ctx, candidate, matcher)
	if err != nil {
		return fmt.Errorf("match %s: %w", candidate.ExternalID, err)
	}
	if _, err := upserter.Upsert(ctx, p.Name(), record, candidate); err != nil {
		return fmt.Errorf("upsert %s: %w", candidate.ExternalID, err)
	}
	return nil
}

// lastCompletedRun liefert den Startzeitpunkt des letzten erfolgreichen Laufs desselben Providers.
func (s *IngestionService) lastCompletedRun(ctx context.Context, run *models.IngestionRun) (*time.Time, error) {
	var previous models.IngestionRun
	err := s.DB.WithContext(ctx).
		Where("provider = ? AND status = ? AND id <> ?", run.Provider, models.RunCompleted, run.ID).
		Order("started_at DESC").Order("id DESC").
		First(&previous).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup previous run: %w", err)
	}
	started := previous.StartedAt
	return &started, nil
}

// Status liefert Zeitpunkt, Provider und Status des zuletzt gestarteten Laufs.
func (s *IngestionService) Status(ctx context.Context) (*IngestionStatus, error) {
	var run models.IngestionRun
	err := s.DB.WithContext(ctx).Order("started_at DESC").Order("id DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &IngestionStatus{Status: "idle"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup ingestion status: %w", err)
	}
	started := run.StartedAt
	provider := run.Provider
	return &IngestionStatus{LastRunAt: &started, LastProvider: &provider, Status: run.Status}, nil
}

// GetRun liefert einen Lauf.
func (s *IngestionService) GetRun(ctx context.Context, id uint) (*models.IngestionRun, error) {
	var run models.IngestionRun
	if err := s.DB.WithContext(ctx).First(&run, id).Error; err != nil {
		return nil, notFound(err, "ingestion run", id)
	}
	return &run, nil
}

// ListRuns liefert die letzten Läufe, neueste zuerst.
func (s *IngestionService) ListRuns(ctx context.Context, limit int) ([]models.IngestionRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var runs []models.IngestionRun
	if err := s.DB.WithContext(ctx).Order("started_at DESC").Order("id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list ingestion runs: %w", err)
	}
	return runs, nil
}

// RunProviders führt nacheinander Läufe für mehrere Provider aus (z.B. aus dem Cron-Job).
// Fehler einzelner Läufe brechen die übrigen nicht ab.
func (s *IngestionService) RunProviders(ctx context.Context, names []string) int {
	failed := 0
	for _, name := range names {
		if _, err := s.RunIngestion(ctx, name); err != nil {
			s.Logger.Error("Geplanter Lauf fehlgeschlagen", zap.String("provider", name), zap.Error(err))
			failed++
		}
	}
	return failed
}
