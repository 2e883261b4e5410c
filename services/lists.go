package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"standarr/models"
)

// ListInput beschreibt eine neue Liste.
type ListInput struct {
	Name              string             `json:"name"`
	Description       *string            `json:"description"`
	Status            string             `json:"status"`
	Filters           models.ListFilters `json:"filters"`
	RegenerationMode  string             `json:"regeneration_mode"`
	PreserveOverrides *bool              `json:"preserve_overrides"`
}

// ListUpdate ändert ausgewählte Felder einer Liste; nil bleibt unverändert.
type ListUpdate struct {
	Name              *string             `json:"name"`
	Description       *string             `json:"description"`
	Status            *string             `json:"status"`
	Filters           *models.ListFilters `json:"filters"`
	RegenerationMode  *string             `json:"regeneration_mode"`
	PreserveOverrides *bool               `json:"preserve_overrides"`
}

// RegenerationResult zählt die Änderungen einer Regenerierung.
type RegenerationResult struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Reverted int `json:"reverted"`
}

// ListService verwaltet Listen und ihre Einträge.
type ListService struct {
	DB     *gorm.DB
	Logger *zap.Logger

	// Regenerierungen einer Liste sind serialisiert, verschiedene Listen laufen parallel.
	locks sync.Map
}

// NewListService erstellt eine neue Instanz des ListService.
func NewListService(db *gorm.DB, logger *zap.Logger) *ListService {
	return &ListService{DB: db, Logger: logger}
}

func (s *ListService) lock(listID uint) func() {
	m, _ := s.locks.LoadOrStore(listID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func validMode(mode string) bool {
	return mode == models.ModeDynamic || mode == models.ModeStatic
}

// CreateList legt eine Liste an und befüllt sie mit allen Ausgaben der Filtermenge (Grund "auto").
func (s *ListService) CreateList(ctx context.Context, in ListInput) (*models.NormativeList, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "must not be empty")
	}
	mode := in.RegenerationMode
	if mode == "" {
		mode = models.ModeDynamic
	}
	if !validMode(mode) {
		return nil, invalid("regeneration_mode", "must be %q or %q", models.ModeDynamic, models.ModeStatic)
	}
	if err := ValidateFilters(in.Filters); err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = "draft"
	}
	preserve := true
	if in.PreserveOverrides != nil {
		preserve = *in.PreserveOverrides
	}

	list := models.NormativeList{
		Name:              name,
		Description:       in.Description,
		Status:            status,
		SourceFilter:      datatypes.NewJSONType(in.Filters),
		RegenerationMode:  mode,
		PreserveOverrides: preserve,
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&list).Error; err != nil {
			return fmt.Errorf("create list: %w", err)
		}
		editions, err := NewFilterEngine(tx).Editions(ctx, in.Filters)
		if err != nil {
			return err
		}
		for i := range editions {
			if err := createItem(tx, list.ID, &editions[i], models.ReasonAuto, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Liste angelegt", zap.Uint("list_id", list.ID), zap.String("mode", list.RegenerationMode))
	return &list, nil
}

// createItem legt einen Eintrag samt eingefrorenem Disziplin-Snapshot des Werks an.
func createItem(tx *gorm.DB, listID uint, edition *models.Edition, reason string, note *string) error {
	item := models.NormativeListItem{
		ListID:                       listID,
		EditionID:                    edition.ID,
		Included:                     true,
		Reason:                       reason,
		Note:                         note,
		PrimaryDisciplineIDAtTime:    edition.Work.PrimaryDisciplineID,
		SecondaryDisciplineIDsAtTime: datatypes.NewJSONSlice(edition.Work.SecondaryDisciplineIDs()),
	}
	if err := tx.Omit(clause.Associations).Create(&item).Error; err != nil {
		return consistency(err, fmt.Sprintf("create item for edition %d", edition.ID))
	}
	return nil
}

// GetList liefert eine Liste.
func (s *ListService) GetList(ctx context.Context, id uint) (*models.NormativeList, error) {
	var list models.NormativeList
	if err := s.DB.WithContext(ctx).First(&list, id).Error; err != nil {
		return nil, notFound(err, "list", id)
	}
	return &list, nil
}

// Lists liefert alle Listen, älteste zuerst.
func (s *ListService) Lists(ctx context.Context) ([]models.NormativeList, error) {
	var lists []models.NormativeList
	if err := s.DB.WithContext(ctx).Order("id").Find(&lists).Error; err != nil {
		return nil, fmt.Errorf("list lists: %w", err)
	}
	return lists, nil
}

// UpdateList ändert Metadaten bzw. den Filter einer Liste; die Einträge bleiben bis zur
// nächsten Regenerierung unverändert.
func (s *ListService) UpdateList(ctx context.Context, id uint, in ListUpdate) (*models.NormativeList, error) {
	list, err := s.GetList(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, invalid("name", "must not be empty")
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Status != nil {
		updates["status"] = *in.Status
	}
	if in.RegenerationMode != nil {
		if !validMode(*in.RegenerationMode) {
			return nil, invalid("regeneration_mode", "must be %q or %q", models.ModeDynamic, models.ModeStatic)
		}
		updates["regeneration_mode"] = *in.RegenerationMode
	}
	if in.PreserveOverrides != nil {
		updates["preserve_overrides"] = *in.PreserveOverrides
	}
	if in.Filters != nil {
		if err := ValidateFilters(*in.Filters); err != nil {
			return nil, err
		}
		updates["source_filter"] = datatypes.NewJSONType(*in.Filters)
	}
	if len(updates) == 0 {
		return list, nil
	}
	if err := s.DB.WithContext(ctx).Model(list).Omit(clause.Associations).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update list %d: %w", id, err)
	}
	return s.GetList(ctx, id)
}

// RegenerateList berechnet die Filtermenge neu und gleicht sie mit den bestehenden Einträgen ab.
// Neue Ausgaben werden "auto"-Einträge, herausgefallene "auto"-Einträge werden gelöscht.
// Manuelle Einträge bleiben bei preserve_overrides unberührt; sonst kehren sie nach "auto"
// zurück (noch in der Menge) oder werden gelöscht.
func (s *ListService) RegenerateList(ctx context.Context, id uint) (*models.NormativeList, *RegenerationResult, error) {
	unlock := s.lock(id)
	defer unlock()

	result := &RegenerationResult{}
	var list models.NormativeList
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&list, id).Error; err != nil {
			return notFound(err, "list", id)
		}
		ids, err := NewFilterEngine(tx).EditionIDs(ctx, list.Filters())
		if err != nil {
			return err
		}
		matched := make(map[uint]bool, len(ids))
		for _, eid := range ids {
			matched[eid] = true
		}

		var items []models.NormativeListItem
		if err := tx.Where("list_id = ?", id).Find(&items).Error; err != nil {
			return fmt.Errorf("load items: %w", err)
		}
		existing := make(map[uint]bool, len(items))
		for _, item := range items {
			existing[item.EditionID] = true
		}

		var fresh []uint
		for _, eid := range ids {
			if !existing[eid] {
				fresh = append(fresh, eid)
			}
		}
		editions, err := loadEditions(tx, fresh)
		if err != nil {
			return err
		}
		for i := range editions {
			if err := createItem(tx, id, &editions[i], models.ReasonAuto, nil); err != nil {
				return err
			}
		}
		result.Added = len(editions)

		for _, item := range items {
			switch {
			case item.Reason == models.ReasonAuto && !matched[item.EditionID]:
				if err := tx.Delete(&models.NormativeListItem{}, item.ID).Error; err != nil {
					return fmt.Errorf("delete item %d: %w", item.ID, err)
				}
				result.Removed++
			case item.IsManual() && !list.PreserveOverrides && matched[item.EditionID]:
				if err := tx.Model(&models.NormativeListItem{}).Where("id = ?", item.ID).
					Updates(map[string]any{"included": true, "reason": models.ReasonAuto}).Error; err != nil {
					return fmt.Errorf("revert item %d: %w", item.ID, err)
				}
				result.Reverted++
			case item.IsManual() && !list.PreserveOverrides:
				if err := tx.Delete(&models.NormativeListItem{}, item.ID).Error; err != nil {
					return fmt.Errorf("delete item %d: %w", item.ID, err)
				}
				result.Removed++
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	listRegenerationsCounter.Inc()
	s.Logger.Info("Liste regeneriert",
		zap.Uint("list_id", id),
		zap.Int("added", result.Added),
		zap.Int("removed", result.Removed),
		zap.Int("reverted", result.Reverted))
	return &list, result, nil
}

// RegenerateDynamicLists regeneriert alle Listen im Modus "dynamic" und liefert ihre IDs.
func (s *ListService) RegenerateDynamicLists(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := s.DB.WithContext(ctx).Model(&models.NormativeList{}).
		Where("regeneration_mode = ?", models.ModeDynamic).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list dynamic lists: %w", err)
	}
	var errs []error
	done := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, _, err := s.RegenerateList(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("list %d: %w", id, err))
			continue
		}
		done = append(done, id)
	}
	return done, errors.Join(errs...)
}

// ListItems liefert die Einträge einer Liste in Einfügereihenfolge, samt Ausgabe und Werk.
func (s *ListService) ListItems(ctx context.Context, listID uint) ([]models.NormativeListItem, error) {
	if _, err := s.GetList(ctx, listID); err != nil {
		return nil, err
	}
	var items []models.NormativeListItem
	if err := s.DB.WithContext(ctx).Preload("Edition.Work").
		Where("list_id = ?", listID).Order("added_at").Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *ListService) item(db *gorm.DB, listID, itemID uint) (*models.NormativeListItem, error) {
	var item models.NormativeListItem
	if err := db.Where("list_id = ? AND id = ?", listID, itemID).First(&item).Error; err != nil {
		return nil, notFound(err, "list item", itemID)
	}
	return &item, nil
}

// IncludeItem markiert einen Eintrag als händisch aufgenommen.
func (s *ListService) IncludeItem(ctx context.Context, listID, itemID uint) (*models.NormativeListItem, error) {
	return s.setInclusion(ctx, listID, itemID, true, models.ReasonManualInclude)
}

// ExcludeItem markiert einen Eintrag als händisch ausgeschlossen.
func (s *ListService) ExcludeItem(ctx context.Context, listID, itemID uint) (*models.NormativeListItem, error) {
	return s.setInclusion(ctx, listID, itemID, false, models.ReasonManualExclude)
}

// setInclusion ändert nur Aufnahme und Grund; der Disziplin-Snapshot bleibt.
func (s *ListService) setInclusion(ctx context.Context, listID, itemID uint, included bool, reason string) (*models.NormativeListItem, error) {
	unlock := s.lock(listID)
	defer unlock()

	db := s.DB.WithContext(ctx)
	item, err := s.item(db, listID, itemID)
	if err != nil {
		return nil, err
	}
	if err := db.Model(item).Omit(clause.Associations).
		Updates(map[string]any{"included": included, "reason": reason}).Error; err != nil {
		return nil, fmt.Errorf("update item %d: %w", itemID, err)
	}
	item.Included = included
	item.Reason = reason
	return item, nil
}

// ManualAddItem nimmt eine Ausgabe händisch auf. Existiert bereits ein Eintrag für die Ausgabe,
// wird dieser zu "manual_include"; sein Snapshot bleibt erhalten.
func (s *ListService) ManualAddItem(ctx context.Context, listID, editionID uint, note *string) (*models.NormativeListItem, error) {
	unlock := s.lock(listID)
	defer unlock()

	var item models.NormativeListItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&models.NormativeList{}, listID).Error; err != nil {
			return notFound(err, "list", listID)
		}
		var edition models.Edition
		if err := tx.Preload("Work.SecondaryDisciplines").First(&edition, editionID).Error; err != nil {
			return notFound(err, "edition", editionID)
		}

		err := tx.Where("list_id = ? AND edition_id = ?", listID, editionID).First(&item).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := createItem(tx, listID, &edition, models.ReasonManualInclude, note); err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("lookup item: %w", err)
		default:
			updates := map[string]any{"included": true, "reason": models.ReasonManualInclude}
			if note != nil {
				updates["note"] = *note
			}
			if err := tx.Model(&item).Omit(clause.Associations).Updates(updates).Error; err != nil {
				return fmt.Errorf("update item %d: %w", item.ID, err)
			}
		}
		return tx.Where("list_id = ? AND edition_id = ?", listID, editionID).First(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItemNote setzt die Notiz eines Eintrags; Aufnahme und Grund bleiben unverändert.
func (s *ListService) UpdateItemNote(ctx context.Context, listID, itemID uint, note *string) (*models.NormativeListItem, error) {
	db := s.DB.WithContext(ctx)
	item, err := s.item(db, listID, itemID)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return item, nil
	}
	if err := db.Model(item).Omit(clause.Associations).Update("note", *note).Error; err != nil {
		return nil, fmt.Errorf("update note of item %d: %w", itemID, err)
	}
	item.Note = note
	return item, nil
}
