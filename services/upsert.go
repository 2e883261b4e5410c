package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"standarr/models"
)

// UpsertResult beschreibt die Zeilen, auf die ein Kandidat geschrieben wurde.
type UpsertResult struct {
	Work             models.Work
	Edition          models.Edition
	SourceRecord     models.SourceRecord
	RelationsCreated int
}

// Upserter schreibt Kandidaten idempotent in den Katalog.
type Upserter struct {
	DB     *gorm.DB
	Logger *zap.Logger
	Now    func() time.Time
}

// NewUpserter erstellt einen Upserter auf einer (Transaktions-)Verbindung.
func NewUpserter(db *gorm.DB, logger *zap.Logger) *Upserter {
	return &Upserter{DB: db, Logger: logger, Now: time.Now}
}

// PayloadHash liefert den SHA-256 über die kanonische JSON-Form des Rohdatensatzes.
// Map-Schlüssel werden von encoding/json sortiert.
func PayloadHash(raw map[string]any) (string, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("serialize payload: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Upsert schreibt Werk, Ausgabe, SourceRecord und Relationen eines Kandidaten. Wiederholte
// Aufrufe mit demselben Kandidaten erzeugen keine neuen Zeilen.
func (u *Upserter) Upsert(ctx context.Context, provider string, raw map[string]any, candidate *models.Candidate) (*UpsertResult, error) {
	if candidate.ExternalID == "" {
		return nil, invalid("external_id", "must not be empty")
	}
	db := u.DB.WithContext(ctx)

	work, err := u.upsertWork(db, &candidate.Work)
	if err != nil {
		return nil, err
	}
	edition, err := u.upsertEdition(db, work.ID, &candidate.Edition)
	if err != nil {
		return nil, err
	}

	hash, err := PayloadHash(raw)
	if err != nil {
		return nil, err
	}
	record := models.SourceRecord{
		Provider:     provider,
		ExternalID:   candidate.ExternalID,
		PayloadHash:  hash,
		FetchedAt:    u.Now().UTC(),
		RawReference: candidate.Edition.SourceCanonicalURL,
		WorkID:       &work.ID,
		EditionID:    &edition.ID,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload_hash", "raw_reference", "work_id", "edition_id", "fetched_at"}),
	}).Create(&record).Error; err != nil {
		return nil, consistency(err, "upsert source record")
	}
	if err := db.Where("provider = ? AND external_id = ?", provider, candidate.ExternalID).First(&record).Error; err != nil {
		return nil, fmt.Errorf("reload source record: %w", err)
	}

	created, err := u.upsertRelations(db, provider, edition.ID, candidate.Relations)
	if err != nil {
		return nil, err
	}

	return &UpsertResult{Work: *work, Edition: *edition, SourceRecord: record, RelationsCreated: created}, nil
}

func (u *Upserter) upsertWork(db *gorm.DB, cw *models.CandidateWork) (*models.Work, error) {
	if cw.Identifier == "" {
		return nil, invalid("identifier", "must not be empty")
	}

	var work models.Work
	err := db.Where("identifier = ?", cw.Identifier).First(&work).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if cw.Title == "" {
			return nil, invalid("title", "must not be empty for new work %s", cw.Identifier)
		}
		work = models.Work{
			Authority:           cw.Authority,
			Identifier:          cw.Identifier,
			Title:               cw.Title,
			Abstract:            cw.Abstract,
			PrimaryDisciplineID: cw.PrimaryDisciplineID,
		}
		if err := db.Omit(clause.Associations).Create(&work).Error; err != nil {
			return nil, consistency(err, "create work")
		}
	case err != nil:
		return nil, fmt.Errorf("lookup work: %w", err)
	default:
		updates := map[string]any{}
		if cw.Authority != "" && cw.Authority != work.Authority {
			updates["authority"] = cw.Authority
		}
		if cw.Title != "" && cw.Title != work.Title {
			updates["title"] = cw.Title
		}
		if cw.Abstract != nil {
			updates["abstract"] = *cw.Abstract
		}
		if cw.PrimaryDisciplineID != nil {
			updates["primary_discipline_id"] = *cw.PrimaryDisciplineID
		}
		if len(updates) > 0 {
			if err := db.Model(&work).Omit(clause.Associations).Updates(updates).Error; err != nil {
				return nil, fmt.Errorf("update work %d: %w", work.ID, err)
			}
		}
	}

	if cw.SecondaryDisciplineIDs != nil {
		if err := ReplaceSecondaryDisciplines(db, work.ID, cw.SecondaryDisciplineIDs); err != nil {
			return nil, err
		}
	}
	if cw.TagIDs != nil {
		if err := ReplaceTags(db, work.ID, cw.TagIDs); err != nil {
			return nil, err
		}
	}
	return &work, nil
}

// ReplaceSecondaryDisciplines ersetzt die Sekundär-Disziplinen eines Werks; die Primär-Disziplin
// wird dabei nie als sekundär verknüpft.
func ReplaceSecondaryDisciplines(db *gorm.DB, workID uint, ids []uint) error {
	var work models.Work
	if err := db.Select("id", "primary_discipline_id").First(&work, workID).Error; err != nil {
		return notFound(err, "work", workID)
	}
	if work.PrimaryDisciplineID != nil {
		ids = withoutID(ids, *work.PrimaryDisciplineID)
	}
	if err := db.Where("work_id = ?", workID).Delete(&models.WorkDiscipline{}).Error; err != nil {
		return fmt.Errorf("clear secondary disciplines: %w", err)
	}
	ids = mergeIDs(nil, ids)
	if len(ids) == 0 {
		return nil
	}
	links := make([]models.WorkDiscipline, 0, len(ids))
	for _, id := range ids {
		links = append(links, models.WorkDiscipline{WorkID: workID, DisciplineID: id})
	}
	if err := db.Create(&links).Error; err != nil {
		return fmt.Errorf("link secondary disciplines: %w", err)
	}
	return nil
}

// ReplaceTags ersetzt die Tags eines Werks.
func ReplaceTags(db *gorm.DB, workID uint, ids []uint) error {
	if err := db.Where("work_id = ?", workID).Delete(&models.WorkTag{}).Error; err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	ids = mergeIDs(nil, ids)
	if len(ids) == 0 {
		return nil
	}
	links := make([]models.WorkTag, 0, len(ids))
	for _, id := range ids {
		links = append(links, models.WorkTag{WorkID: workID, TagID: id})
	}
	if err := db.Create(&links).Error; err != nil {
		return fmt.Errorf("link tags: %w", err)
	}
	return nil
}

// findEditionByKey sucht eine Ausgabe über (Werk, Label, Veröffentlichungsdatum).
func findEditionByKey(db *gorm.DB, workID uint, label string, published *time.Time) (*models.Edition, error) {
	q := db.Where("work_id = ? AND edition_label = ?", workID, label)
	if published == nil {
		q = q.Where("publication_date IS NULL")
	} else {
		q = q.Where("publication_date = ?", models.DateOf(*published))
	}
	var edition models.Edition
	err := q.Order("id").First(&edition).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup edition: %w", err)
	}
	return &edition, nil
}

func (u *Upserter) upsertEdition(db *gorm.DB, workID uint, ce *models.CandidateEdition) (*models.Edition, error) {
	if ce.EditionLabel == "" {
		return nil, invalid("edition_label", "must not be empty")
	}
	if ce.Status != nil && !validStatus(*ce.Status) {
		return nil, invalid("status", "unknown edition status %q", *ce.Status)
	}

	edition, err := findEditionByKey(db, workID, ce.EditionLabel, ce.PublicationDate)
	if err != nil {
		return nil, err
	}
	if edition == nil {
		status := models.StatusUnknown
		if ce.Status != nil {
			status = *ce.Status
		}
		created := models.Edition{
			WorkID:             workID,
			EditionLabel:       ce.EditionLabel,
			PublicationDate:    datePtr(ce.PublicationDate),
			Status:             status,
			ValidFrom:          datePtr(ce.ValidFrom),
			ValidTo:            datePtr(ce.ValidTo),
			SourceCanonicalURL: ce.SourceCanonicalURL,
		}
		if err := db.Omit(clause.Associations).Create(&created).Error; err != nil {
			return nil, consistency(err, "create edition")
		}
		return &created, nil
	}

	updates := map[string]any{}
	if ce.Status != nil && *ce.Status != edition.Status {
		updates["status"] = *ce.Status
	}
	if ce.SourceCanonicalURL != nil {
		updates["source_canonical_url"] = *ce.SourceCanonicalURL
	}
	if ce.ValidFrom != nil {
		updates["valid_from"] = models.DateOf(*ce.ValidFrom)
	}
	if ce.ValidTo != nil {
		updates["valid_to"] = models.DateOf(*ce.ValidTo)
	}
	if len(updates) > 0 {
		if err := db.Model(edition).Omit(clause.Associations).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update edition %d: %w", edition.ID, err)
		}
	}
	return edition, nil
}

// upsertRelations legt Relationen an, deren Ziel über einen SourceRecord desselben Providers
// auflösbar ist. Bereits existierende Kanten bleiben unverändert.
func (u *Upserter) upsertRelations(db *gorm.DB, provider string, fromID uint, relations []models.CandidateRelation) (int, error) {
	created := 0
	for _, rel := range relations {
		if rel.Confidence < 0 || rel.Confidence > 1 {
			return created, invalid("confidence", "must be within [0, 1], got %v", rel.Confidence)
		}
		var target models.SourceRecord
		err := db.Where("provider = ? AND external_id = ? AND edition_id IS NOT NULL", provider, rel.ToExternalID).
			First(&target).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			u.Logger.Debug("Relation mit unbekanntem Ziel übersprungen",
				zap.String("provider", provider),
				zap.String("to_external_id", rel.ToExternalID))
			continue
		}
		if err != nil {
			return created, fmt.Errorf("resolve relation target: %w", err)
		}
		if *target.EditionID == fromID {
			continue
		}
		relType := rel.Type
		if relType == "" {
			relType = models.RelationRelated
		}
		edge := models.EditionRelation{
			FromEditionID: fromID,
			ToEditionID:   *target.EditionID,
			Type:          relType,
			Confidence:    rel.Confidence,
			Source:        rel.Source,
		}
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_edition_id"}, {Name: "to_edition_id"}, {Name: "type"}},
			DoNothing: true,
		}).Create(&edge)
		if res.Error != nil {
			return created, fmt.Errorf("create relation: %w", res.Error)
		}
		created += int(res.RowsAffected)
	}
	return created, nil
}

func validStatus(status string) bool {
	switch status {
	case models.StatusUnknown, models.StatusInForce, models.StatusAbrogated:
		return true
	}
	return false
}

func datePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := models.DateOf(*t)
	return &d
}
