package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"standarr/models"
)

// CatalogService bietet Lese- und Pflegeoperationen auf Disziplinen, Tags, Werken und Ausgaben.
type CatalogService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewCatalogService erstellt eine neue Instanz des CatalogService.
func NewCatalogService(db *gorm.DB, logger *zap.Logger) *CatalogService {
	return &CatalogService{DB: db, Logger: logger}
}

// DisciplineInput beschreibt eine neue Disziplin.
type DisciplineInput struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Version   string `json:"version"`
	SortOrder int    `json:"sort_order"`
	Active    *bool  `json:"active"`
}

// Disciplines liefert alle Disziplinen in Sortierreihenfolge.
func (s *CatalogService) Disciplines(ctx context.Context) ([]models.DisciplineCategory, error) {
	var out []models.DisciplineCategory
	if err := s.DB.WithContext(ctx).Order("sort_order").Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list disciplines: %w", err)
	}
	return out, nil
}

// CreateDiscipline legt eine Disziplin an; ein doppelter Code ist eine Konsistenzverletzung.
func (s *CatalogService) CreateDiscipline(ctx context.Context, in DisciplineInput) (*models.DisciplineCategory, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, invalid("code", "must not be empty")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalid("name", "must not be empty")
	}
	version := in.Version
	if version == "" {
		version = "v1"
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	d := models.DisciplineCategory{
		Code:      code,
		Name:      strings.TrimSpace(in.Name),
		Version:   version,
		SortOrder: in.SortOrder,
		Active:    active,
	}
	if err := s.DB.WithContext(ctx).Create(&d).Error; err != nil {
		return nil, consistency(err, "create discipline "+code)
	}
	return &d, nil
}

// Tags liefert alle Tags nach Namen.
func (s *CatalogService) Tags(ctx context.Context) ([]models.UserTag, error) {
	var out []models.UserTag
	if err := s.DB.WithContext(ctx).Order("name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return out, nil
}

// CreateTag legt einen Tag an oder liefert den bestehenden mit gleichem normalisiertem Namen.
func (s *CatalogService) CreateTag(ctx context.Context, name string) (*models.UserTag, error) {
	key := models.NormalizeTagName(name)
	if key == "" {
		return nil, invalid("name", "must not be empty")
	}
	db := s.DB.WithContext(ctx)
	tag := models.UserTag{Name: strings.TrimSpace(name), NormalizedName: key}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "normalized_name"}},
		DoNothing: true,
	}).Create(&tag).Error; err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}
	if err := db.Where("normalized_name = ?", key).First(&tag).Error; err != nil {
		return nil, fmt.Errorf("reload tag: %w", err)
	}
	return &tag, nil
}

// WorkInput beschreibt ein Werk für Anlage und Änderung. Nil-Felder bleiben bei Änderungen
// unverändert; nicht-nil Listen ersetzen die Verknüpfungen vollständig.
type WorkInput struct {
	Authority              *string `json:"authority"`
	Identifier             *string `json:"identifier"`
	Title                  *string `json:"title"`
	Abstract               *string `json:"abstract"`
	PrimaryDisciplineID    *uint   `json:"primary_discipline_id"`
	SecondaryDisciplineIDs []uint  `json:"secondary_discipline_ids"`
	TagIDs                 []uint  `json:"tag_ids"`
}

// Works liefert alle Werke mit mindestens einer Ausgabe in der Filtermenge.
func (s *CatalogService) Works(ctx context.Context, f models.ListFilters) ([]models.Work, error) {
	ids, err := NewFilterEngine(s.DB).EditionIDs(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Work{}, nil
	}
	var works []models.Work
	if err := s.DB.WithContext(ctx).
		Where("id IN (?)", s.DB.Model(&models.Edition{}).Select("work_id").Where("id IN ?", ids)).
		Order("id").Find(&works).Error; err != nil {
		return nil, fmt.Errorf("list works: %w", err)
	}
	return works, nil
}

// GetWork liefert ein Werk samt Ausgaben und Verknüpfungen.
func (s *CatalogService) GetWork(ctx context.Context, id uint) (*models.Work, error) {
	var work models.Work
	if err := s.DB.WithContext(ctx).
		Preload("Editions", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("SecondaryDisciplines").Preload("Tags").
		First(&work, id).Error; err != nil {
		return nil, notFound(err, "work", id)
	}
	return &work, nil
}

// CreateWork legt ein Werk händisch an.
func (s *CatalogService) CreateWork(ctx context.Context, in WorkInput) (*models.Work, error) {
	if in.Identifier == nil || strings.TrimSpace(*in.Identifier) == "" {
		return nil, invalid("identifier", "must not be empty")
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, invalid("title", "must not be empty")
	}
	if in.Authority == nil || strings.TrimSpace(*in.Authority) == "" {
		return nil, invalid("authority", "must not be empty")
	}
	work := models.Work{
		Authority:           strings.TrimSpace(*in.Authority),
		Identifier:          strings.TrimSpace(*in.Identifier),
		Title:               strings.TrimSpace(*in.Title),
		Abstract:            in.Abstract,
		PrimaryDisciplineID: in.PrimaryDisciplineID,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&work).Error; err != nil {
			return consistency(err, "create work "+work.Identifier)
		}
		if err := ReplaceSecondaryDisciplines(tx, work.ID, in.SecondaryDisciplineIDs); err != nil {
			return err
		}
		return ReplaceTags(tx, work.ID, in.TagIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.GetWork(ctx, work.ID)
}

// UpdateWork ändert die gelieferten Felder eines Werks.
func (s *CatalogService) UpdateWork(ctx context.Context, id uint, in WorkInput) (*models.Work, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var work models.Work
		if err := tx.First(&work, id).Error; err != nil {
			return notFound(err, "work", id)
		}
		updates := map[string]any{}
		if in.Authority != nil {
			updates["authority"] = strings.TrimSpace(*in.Authority)
		}
		if in.Identifier != nil {
			identifier := strings.TrimSpace(*in.Identifier)
			if identifier == "" {
				return invalid("identifier", "must not be empty")
			}
			updates["identifier"] = identifier
			updates["identifier_norm"] = models.NormalizeIdentifier(identifier)
		}
		if in.Title != nil {
			updates["title"] = strings.TrimSpace(*in.Title)
		}
		if in.Abstract != nil {
			updates["abstract"] = *in.Abstract
		}
		if in.PrimaryDisciplineID != nil {
			updates["primary_discipline_id"] = *in.PrimaryDisciplineID
		}
		if len(updates) > 0 {
			if err := tx.Model(&work).Omit(clause.Associations).Updates(updates).Error; err != nil {
				return consistency(err, fmt.Sprintf("update work %d", id))
			}
		}
		if in.SecondaryDisciplineIDs != nil {
			if err := ReplaceSecondaryDisciplines(tx, id, in.SecondaryDisciplineIDs); err != nil {
				return err
			}
		}
		if in.TagIDs != nil {
			return ReplaceTags(tx, id, in.TagIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetWork(ctx, id)
}

// DeleteWork löscht ein Werk mit allen Ausgaben und abhängigen Zeilen. SourceRecords bleiben
// als Provider-Historie erhalten, verlieren aber ihre Verknüpfung.
func (s *CatalogService) DeleteWork(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Work{}, id).Error; err != nil {
			return notFound(err, "work", id)
		}
		var editionIDs []uint
		if err := tx.Model(&models.Edition{}).Where("work_id = ?", id).Pluck("id", &editionIDs).Error; err != nil {
			return fmt.Errorf("load editions: %w", err)
		}
		if err := deleteEditions(tx, editionIDs); err != nil {
			return err
		}
		if err := tx.Model(&models.SourceRecord{}).Where("work_id = ?", id).
			Updates(map[string]any{"work_id": nil, "edition_id": nil}).Error; err != nil {
			return fmt.Errorf("unlink source records: %w", err)
		}
		for _, link := range []any{&models.WorkDiscipline{}, &models.WorkTag{}} {
			if err := tx.Where("work_id = ?", id).Delete(link).Error; err != nil {
				return fmt.Errorf("delete work links: %w", err)
			}
		}
		return tx.Delete(&models.Work{}, id).Error
	})
}

// deleteEditions entfernt Ausgaben samt Anhängen, Relationen und Listeneinträgen.
// Die Blobs der Anhänge bleiben liegen; sie werden über die Anhang-Verwaltung gelöscht.
func deleteEditions(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	steps := []struct {
		what  string
		model any
		query string
		args  []any
	}{
		{"attachments", &models.LocalAttachment{}, "edition_id IN ?", []any{ids}},
		{"relations", &models.EditionRelation{}, "from_edition_id IN ? OR to_edition_id IN ?", []any{ids, ids}},
		{"list items", &models.NormativeListItem{}, "edition_id IN ?", []any{ids}},
	}
	for _, step := range steps {
		if err := tx.Where(step.query, step.args...).Delete(step.model).Error; err != nil {
			return fmt.Errorf("delete %s: %w", step.what, err)
		}
	}
	if err := tx.Model(&models.SourceRecord{}).Where("edition_id IN ?", ids).
		Update("edition_id", nil).Error; err != nil {
		return fmt.Errorf("unlink source records: %w", err)
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.Edition{}).Error; err != nil {
		return fmt.Errorf("delete editions: %w", err)
	}
	return nil
}

// EditionInput beschreibt eine Ausgabe. Datumsangaben sind ISO-8601-Strings.
type EditionInput struct {
	WorkID             *uint   `json:"work_id"`
	EditionLabel       *string `json:"edition_label"`
	PublicationDate    *string `json:"publication_date"`
	Status             *string `json:"status"`
	ValidFrom          *string `json:"valid_from"`
	ValidTo            *string `json:"valid_to"`
	SourceCanonicalURL *string `json:"source_canonical_url"`
}

// EditionFilter erweitert die Listenfilter um die Einschränkung auf ein Werk.
type EditionFilter struct {
	models.ListFilters
	WorkID *uint
}

// Editions liefert alle Ausgaben der Filtermenge samt Werk.
func (s *CatalogService) Editions(ctx context.Context, f EditionFilter) ([]models.Edition, error) {
	ids, err := NewFilterEngine(s.DB).EditionIDs(ctx, f.ListFilters)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.Edition{}, nil
	}
	q := s.DB.WithContext(ctx).Preload("Work").Where("id IN ?", ids)
	if f.WorkID != nil {
		q = q.Where("work_id = ?", *f.WorkID)
	}
	var editions []models.Edition
	if err := q.Order("id").Find(&editions).Error; err != nil {
		return nil, fmt.Errorf("list editions: %w", err)
	}
	return editions, nil
}

// GetEdition liefert eine Ausgabe samt Werk.
func (s *CatalogService) GetEdition(ctx context.Context, id uint) (*models.Edition, error) {
	var edition models.Edition
	if err := s.DB.WithContext(ctx).Preload("Work").First(&edition, id).Error; err != nil {
		return nil, notFound(err, "edition", id)
	}
	return &edition, nil
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := models.ParseDate(*value)
	if err != nil {
		return nil, invalid(field, "%v", err)
	}
	return t, nil
}

// CreateEdition legt eine Ausgabe zu einem bestehenden Werk an.
func (s *CatalogService) CreateEdition(ctx context.Context, in EditionInput) (*models.Edition, error) {
	if in.WorkID == nil {
		return nil, invalid("work_id", "is required")
	}
	label := "original"
	if in.EditionLabel != nil && strings.TrimSpace(*in.EditionLabel) != "" {
		label = strings.TrimSpace(*in.EditionLabel)
	}
	status := models.StatusUnknown
	if in.Status != nil {
		if !validStatus(*in.Status) {
			return nil, invalid("status", "unknown edition status %q", *in.Status)
		}
		status = *in.Status
	}
	published, err := parseOptionalDate("publication_date", in.PublicationDate)
	if err != nil {
		return nil, err
	}
	validFrom, err := parseOptionalDate("valid_from", in.ValidFrom)
	if err != nil {
		return nil, err
	}
	validTo, err := parseOptionalDate("valid_to", in.ValidTo)
	if err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	if err := db.Select("id").First(&models.Work{}, *in.WorkID).Error; err != nil {
		return nil, notFound(err, "work", *in.WorkID)
	}
	edition := models.Edition{
		WorkID:             *in.WorkID,
		EditionLabel:       label,
		PublicationDate:    published,
		Status:             status,
		ValidFrom:          validFrom,
		ValidTo:            validTo,
		SourceCanonicalURL: in.SourceCanonicalURL,
	}
	if err := db.Omit(clause.Associations).Create(&edition).Error; err != nil {
		return nil, consistency(err, "create edition")
	}
	return s.GetEdition(ctx, edition.ID)
}

// UpdateEdition ändert die gelieferten Felder einer Ausgabe.
func (s *CatalogService) UpdateEdition(ctx context.Context, id uint, in EditionInput) (*models.Edition, error) {
	edition, err := s.GetEdition(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if in.EditionLabel != nil {
		if strings.TrimSpace(*in.EditionLabel) == "" {
			return nil, invalid("edition_label", "must not be empty")
		}
		updates["edition_label"] = strings.TrimSpace(*in.EditionLabel)
	}
	if in.Status != nil {
		if !validStatus(*in.Status) {
			return nil, invalid("status", "unknown edition status %q", *in.Status)
		}
		updates["status"] = *in.Status
	}
	for _, field := range []struct {
		column string
		value  *string
	}{
		{"publication_date", in.PublicationDate},
		{"valid_from", in.ValidFrom},
		{"valid_to", in.ValidTo},
	} {
		t, err := parseOptionalDate(field.column, field.value)
		if err != nil {
			return nil, err
		}
		if field.value != nil {
			updates[field.column] = t
		}
	}
	if in.SourceCanonicalURL != nil {
		updates["source_canonical_url"] = *in.SourceCanonicalURL
	}
	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(edition).Omit(clause.Associations).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update edition %d: %w", id, err)
		}
	}
	return s.GetEdition(ctx, id)
}

// DeleteEdition löscht eine Ausgabe samt Anhängen, Relationen und Listeneinträgen.
func (s *CatalogService) DeleteEdition(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.Edition{}, id).Error; err != nil {
			return notFound(err, "edition", id)
		}
		return deleteEditions(tx, []uint{id})
	})
}

// RelationInput beschreibt eine händisch behauptete Relation.
type RelationInput struct {
	FromEditionID uint     `json:"from_edition_id"`
	ToEditionID   uint     `json:"to_edition_id"`
	Type          string   `json:"type"`
	Confidence    *float64 `json:"confidence"`
	Source        string   `json:"source"`
}

// AssertRelation legt eine Relation an; eine bestehende Kante gleichen Typs wird zurückgegeben.
func (s *CatalogService) AssertRelation(ctx context.Context, in RelationInput) (*models.EditionRelation, error) {
	relType := strings.TrimSpace(in.Type)
	if relType == "" {
		relType = models.RelationRelated
	}
	confidence := 1.0
	if in.Confidence != nil {
		confidence = *in.Confidence
	}
	if confidence < 0 || confidence > 1 {
		return nil, invalid("confidence", "must be within [0, 1], got %v", confidence)
	}
	if in.FromEditionID == in.ToEditionID {
		return nil, invalid("to_edition_id", "must differ from from_edition_id")
	}
	source := in.Source
	if source == "" {
		source = "manual"
	}

	var edge models.EditionRelation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range []uint{in.FromEditionID, in.ToEditionID} {
			if err := tx.Select("id").First(&models.Edition{}, id).Error; err != nil {
				return notFound(err, "edition", id)
			}
		}
		edge = models.EditionRelation{
			FromEditionID: in.FromEditionID,
			ToEditionID:   in.ToEditionID,
			Type:          relType,
			Confidence:    confidence,
			Source:        source,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_edition_id"}, {Name: "to_edition_id"}, {Name: "type"}},
			DoNothing: true,
		}).Create(&edge).Error; err != nil {
			return fmt.Errorf("create relation: %w", err)
		}
		return tx.Where("from_edition_id = ? AND to_edition_id = ? AND type = ?",
			in.FromEditionID, in.ToEditionID, relType).First(&edge).Error
	})
	if err != nil {
		return nil, err
	}
	return &edge, nil
}

// Relations liefert alle Kanten, die eine Ausgabe berühren.
func (s *CatalogService) Relations(ctx context.Context, editionID uint) ([]models.EditionRelation, error) {
	if _, err := s.GetEdition(ctx, editionID); err != nil {
		return nil, err
	}
	var edges []models.EditionRelation
	if err := s.DB.WithContext(ctx).
		Where("from_edition_id = ? OR to_edition_id = ?", editionID, editionID).
		Order("id").Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	return edges, nil
}

// SourceRecords liefert die Provider-Datensätze, die auf ein Werk zeigen.
func (s *CatalogService) SourceRecords(ctx context.Context, workID uint) ([]models.SourceRecord, error) {
	var records []models.SourceRecord
	if err := s.DB.WithContext(ctx).Where("work_id = ?", workID).
		Order("provider").Order("external_id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list source records: %w", err)
	}
	return records, nil
}
