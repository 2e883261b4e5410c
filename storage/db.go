package storage

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"standarr/config"
	"standarr/models"
)

// GormConfig liefert die gemeinsame gorm-Konfiguration: Zeitstempel in UTC, übersetzte
// Schlüsselverletzungen und optional SQL-Logging.
func GormConfig(logSQL bool) *gorm.Config {
	mode := logger.Silent
	if logSQL {
		mode = logger.Info
	}
	return &gorm.Config{
		Logger:         logger.Default.LogMode(mode),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	}
}

// OpenDB öffnet die PostgreSQL-Datenbank des Katalogs.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(cfg.DBLogSQL))
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// Migrate legt alle Katalogtabellen an bzw. aktualisiert sie.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.DisciplineCategory{},
		&models.UserTag{},
		&models.Work{},
		&models.WorkDiscipline{},
		&models.WorkTag{},
		&models.Edition{},
		&models.EditionRelation{},
		&models.SourceRecord{},
		&models.LocalAttachment{},
		&models.IngestionRun{},
		&models.NormativeList{},
		&models.NormativeListItem{},
	)
}
