package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBLogSQL   bool   `envconfig:"DB_LOG_SQL" default:"false"`

	HTTPPort    string `envconfig:"HTTP_PORT" default:"4242"`
	CatalogName string `envconfig:"CATALOG_NAME" default:"Standarr"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 0 * * *"`

	// Provider-Konfiguration
	EnabledProviders    string `envconfig:"ENABLED_PROVIDERS" default:"eurlex,normattiva,iso"`
	ProviderFixturesDir string `envconfig:"PROVIDER_FIXTURES_DIR"`

	// Optionale YAML-Datei mit Disziplin- und Tag-Regeln
	ClassificationRulesFile string `envconfig:"CLASSIFICATION_RULES_FILE"`

	AutoRegenerateDynamicLists bool `envconfig:"AUTO_REGENERATE_DYNAMIC_LISTS" default:"true"`

	// Anhänge: "disk" oder "s3"
	AttachmentBackend string `envconfig:"ATTACHMENT_BACKEND" default:"disk"`
	AttachmentsDir    string `envconfig:"ATTACHMENTS_DIR" default:"/data/attachments"`

	S3Endpoint string `envconfig:"S3_ENDPOINT"`
	S3Region   string `envconfig:"S3_REGION" default:"eu-central-1"`
	S3Key      string `envconfig:"S3_KEY"`
	S3Secret   string `envconfig:"S3_SECRET"`
	S3Bucket   string `envconfig:"S3_BUCKET"`

	SnapshotPrefix string `envconfig:"SNAPSHOT_PREFIX" default:"list-exports"`
	KeepSnapshots  int    `envconfig:"KEEP_SNAPSHOTS" default:"4"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// ProviderNames liefert die aktivierten Provider-Namen (getrimmt, klein geschrieben).
func (c *Config) ProviderNames() []string {
	var names []string
	for _, name := range strings.Split(c.EnabledProviders, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// S3Configured meldet, ob alle S3-Zugangsdaten gesetzt sind.
func (c *Config) S3Configured() bool {
	return c.S3Endpoint != "" && c.S3Key != "" && c.S3Secret != "" && c.S3Bucket != ""
}

// Validate prüft Werte, die envconfig allein nicht abdecken kann.
func (c *Config) Validate() error {
	switch c.AttachmentBackend {
	case "disk":
		if c.AttachmentsDir == "" {
			return fmt.Errorf("ATTACHMENTS_DIR is required for the disk attachment backend")
		}
	case "s3":
		if !c.S3Configured() {
			return fmt.Errorf("S3_ENDPOINT, S3_KEY, S3_SECRET and S3_BUCKET are required for the s3 attachment backend")
		}
	default:
		return fmt.Errorf("unknown ATTACHMENT_BACKEND %q (expected disk or s3)", c.AttachmentBackend)
	}
	if len(c.ProviderNames()) == 0 {
		return fmt.Errorf("ENABLED_PROVIDERS must name at least one provider")
	}
	if c.KeepSnapshots < 1 {
		return fmt.Errorf("KEEP_SNAPSHOTS must be at least 1, got %d", c.KeepSnapshots)
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
