package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"standarr/models"
	"standarr/storage"
)

const defaultMimeType = "application/octet-stream"

// AttachmentService verwaltet hochgeladene Dateien zu Ausgaben.
type AttachmentService struct {
	DB     *gorm.DB
	Store  storage.BlobStore
	Logger *zap.Logger
}

// NewAttachmentService erstellt eine neue Instanz des AttachmentService.
func NewAttachmentService(db *gorm.DB, store storage.BlobStore, logger *zap.Logger) *AttachmentService {
	return &AttachmentService{DB: db, Store: store, Logger: logger}
}

// SanitizeFilename entfernt Pfadtrenner; ein leerer Name wird durch einen generierten ersetzt.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "" || name == "." || name == ".." {
		return "attachment-" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	return name
}

// Upload speichert eine Datei zu einer Ausgabe. Identische Inhalte (gleicher SHA-256) werden je
// Ausgabe nur einmal abgelegt; created meldet, ob ein neuer Anhang entstanden ist.
func (s *AttachmentService) Upload(ctx context.Context, editionID uint, filename, mimeType string, data []byte) (att *models.LocalAttachment, created bool, err error) {
	if len(data) == 0 {
		return nil, false, invalid("file", "empty upload")
	}
	db := s.DB.WithContext(ctx)
	if err := db.Select("id").First(&models.Edition{}, editionID).Error; err != nil {
		return nil, false, notFound(err, "edition", editionID)
	}

	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	var existing models.LocalAttachment
	err = db.Where("edition_id = ? AND sha256 = ?", editionID, digest).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("lookup attachment: %w", err)
	}

	safe := SanitizeFilename(filename)
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	key := fmt.Sprintf("%s-%s", strings.ReplaceAll(uuid.NewString(), "-", ""), safe)
	if err := s.Store.Put(ctx, key, data, mimeType); err != nil {
		return nil, false, fmt.Errorf("store attachment: %w", err)
	}

	attachment := models.LocalAttachment{
		EditionID:  editionID,
		Filename:   safe,
		MimeType:   mimeType,
		SizeBytes:  int64(len(data)),
		SHA256:     digest,
		StorageKey: key,
	}
	if err := db.Create(&attachment).Error; err != nil {
		if delErr := s.Store.Delete(ctx, key); delErr != nil {
			s.Logger.Warn("Verwaister Blob konnte nicht gelöscht werden", zap.String("key", key), zap.Error(delErr))
		}
		return nil, false, fmt.Errorf("create attachment: %w", err)
	}
	s.Logger.Info("Anhang gespeichert",
		zap.Uint("edition_id", editionID),
		zap.String("filename", safe),
		zap.Int64("size_bytes", attachment.SizeBytes))
	return &attachment, true, nil
}

// List liefert die Anhänge einer Ausgabe, neueste zuerst.
func (s *AttachmentService) List(ctx context.Context, editionID uint) ([]models.LocalAttachment, error) {
	db := s.DB.WithContext(ctx)
	if err := db.Select("id").First(&models.Edition{}, editionID).Error; err != nil {
		return nil, notFound(err, "edition", editionID)
	}
	var out []models.LocalAttachment
	if err := db.Where("edition_id = ?", editionID).Order("uploaded_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return out, nil
}

// Get liefert die Metadaten eines Anhangs.
func (s *AttachmentService) Get(ctx context.Context, id uint) (*models.LocalAttachment, error) {
	var attachment models.LocalAttachment
	if err := s.DB.WithContext(ctx).First(&attachment, id).Error; err != nil {
		return nil, notFound(err, "attachment", id)
	}
	return &attachment, nil
}

// Download liefert Metadaten und Inhalt eines Anhangs.
func (s *AttachmentService) Download(ctx context.Context, id uint) (*models.LocalAttachment, []byte, error) {
	attachment, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.Store.Get(ctx, attachment.StorageKey)
	if errors.Is(err, storage.ErrBlobNotFound) {
		return nil, nil, &NotFoundError{Entity: "attachment content", ID: id}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read attachment %d: %w", id, err)
	}
	return attachment, data, nil
}

// Delete entfernt einen Anhang samt Inhalt.
func (s *AttachmentService) Delete(ctx context.Context, id uint) error {
	attachment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, attachment.StorageKey); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
		return fmt.Errorf("delete attachment content: %w", err)
	}
	if err := s.DB.WithContext(ctx).Delete(&models.LocalAttachment{}, id).Error; err != nil {
		return fmt.Errorf("delete attachment %d: %w", id, err)
	}
	return nil
}
