package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"standarr/models"
)

// parsedFilters enthält die geprüften Datumsgrenzen einer Filterspezifikation.
type parsedFilters struct {
	models.ListFilters
	pubFrom, pubTo         *time.Time
	updatedFrom, updatedTo *time.Time
}

// ValidateFilters prüft Datumsangaben, Status-Werte und leere Einträge, bevor Seiteneffekte entstehen.
func ValidateFilters(f models.ListFilters) error {
	_, err := parseFilters(f)
	return err
}

func parseFilters(f models.ListFilters) (*parsedFilters, error) {
	p := &parsedFilters{ListFilters: f}
	var err error
	if p.pubFrom, err = models.ParseDate(f.PublicationDateFrom); err != nil {
		return nil, invalid("publication_date_from", "%v", err)
	}
	if p.pubTo, err = models.ParseDate(f.PublicationDateTo); err != nil {
		return nil, invalid("publication_date_to", "%v", err)
	}
	if p.updatedFrom, err = parseTimestamp(f.UpdatedFrom, false); err != nil {
		return nil, invalid("updated_from", "%v", err)
	}
	if p.updatedTo, err = parseTimestamp(f.UpdatedTo, true); err != nil {
		return nil, invalid("updated_to", "%v", err)
	}
	for _, s := range f.Status {
		if !validStatus(s) {
			return nil, invalid("status", "unknown edition status %q", s)
		}
	}
	if p.pubFrom != nil && p.pubTo != nil && p.pubTo.Before(*p.pubFrom) {
		return nil, invalid("publication_date_to", "must not be before publication_date_from")
	}
	return p, nil
}

// parseTimestamp akzeptiert RFC 3339 oder ein reines Datum. Ein reines Datum als Obergrenze
// schließt den ganzen Tag ein.
func parseTimestamp(s string, upper bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("malformed timestamp %q", s)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// FilterEngine wertet Filterspezifikationen gegen den Katalog aus.
type FilterEngine struct {
	DB *gorm.DB
}

// NewFilterEngine erstellt eine FilterEngine auf einer (Transaktions-)Verbindung.
func NewFilterEngine(db *gorm.DB) *FilterEngine {
	return &FilterEngine{DB: db}
}

// EditionIDs liefert die aufsteigend sortierten IDs aller Ausgaben, die den Filter erfüllen,
// ggf. erweitert um direkt verwandte Ausgaben (genau eine Kante in beide Richtungen).
func (e *FilterEngine) EditionIDs(ctx context.Context, f models.ListFilters) ([]uint, error) {
	p, err := parseFilters(f)
	if err != nil {
		return nil, err
	}
	db := e.DB.WithContext(ctx)

	var ids []uint
	if err := e.query(db, p).Pluck("document_editions.id", &ids).Error; err != nil {
		return nil, fmt.Errorf("evaluate filters: %w", err)
	}

	if p.OnlyLatestInForce {
		latest, err := latestInForce(db)
		if err != nil {
			return nil, err
		}
		kept := ids[:0]
		for _, id := range ids {
			if latest[id] {
				kept = append(kept, id)
			}
		}
		ids = kept
	}

	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	if p.IncludeRelated && len(ids) > 0 {
		var edges []models.EditionRelation
		if err := db.Where("from_edition_id IN ? OR to_edition_id IN ?", ids, ids).Find(&edges).Error; err != nil {
			return nil, fmt.Errorf("expand related editions: %w", err)
		}
		for _, edge := range edges {
			set[edge.FromEditionID] = true
			set[edge.ToEditionID] = true
		}
	}

	out := make([]uint, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Editions lädt die gefilterten Ausgaben samt Werk und Sekundär-Disziplinen.
func (e *FilterEngine) Editions(ctx context.Context, f models.ListFilters) ([]models.Edition, error) {
	ids, err := e.EditionIDs(ctx, f)
	if err != nil {
		return nil, err
	}
	return loadEditions(e.DB.WithContext(ctx), ids)
}

func loadEditions(db *gorm.DB, ids []uint) ([]models.Edition, error) {
	if len(ids) == 0 {
		return []models.Edition{}, nil
	}
	var editions []models.Edition
	if err := db.Preload("Work.SecondaryDisciplines").
		Where("id IN ?", ids).Order("id").Find(&editions).Error; err != nil {
		return nil, fmt.Errorf("load editions: %w", err)
	}
	return editions, nil
}

// likeEscaper maskiert LIKE-Platzhalter im Suchbegriff.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// query baut die UND-verknüpften SQL-Prädikate über den Join Ausgabe/Werk.
func (e *FilterEngine) query(db *gorm.DB, p *parsedFilters) *gorm.DB {
	q := db.Model(&models.Edition{}).
		Joins("JOIN document_works ON document_works.id = document_editions.work_id")

	if term := strings.ToLower(strings.TrimSpace(p.Query)); term != "" {
		like := "%" + likeEscaper.Replace(term) + "%"
		q = q.Where(`(LOWER(document_works.title) LIKE ? ESCAPE '\' OR LOWER(document_works.identifier) LIKE ? ESCAPE '\' OR LOWER(COALESCE(document_works.abstract, '')) LIKE ? ESCAPE '\')`,
			like, like, like)
	}
	if len(p.Authority) > 0 {
		q = q.Where("document_works.authority IN ?", p.Authority)
	}
	if len(p.Status) > 0 {
		q = q.Where("document_editions.status IN ?", p.Status)
	}
	if p.pubFrom != nil {
		q = q.Where("document_editions.publication_date >= ?", *p.pubFrom)
	}
	if p.pubTo != nil {
		q = q.Where("document_editions.publication_date <= ?", *p.pubTo)
	}
	if p.updatedFrom != nil {
		q = q.Where("document_editions.updated_at >= ?", *p.updatedFrom)
	}
	if p.updatedTo != nil {
		q = q.Where("document_editions.updated_at <= ?", *p.updatedTo)
	}
	if len(p.DisciplineIDs) > 0 {
		q = q.Where("(document_works.primary_discipline_id IN ? OR EXISTS (SELECT 1 FROM work_disciplines wd WHERE wd.work_id = document_works.id AND wd.discipline_id IN ?))",
			p.DisciplineIDs, p.DisciplineIDs)
	}
	if len(p.TagIDs) > 0 {
		q = q.Where("EXISTS (SELECT 1 FROM work_tags wt WHERE wt.work_id = document_works.id AND wt.tag_id IN ?)", p.TagIDs)
	}
	if p.HasAttachment != nil {
		exists := "EXISTS (SELECT 1 FROM local_attachments la WHERE la.edition_id = document_editions.id)"
		if !*p.HasAttachment {
			exists = "NOT " + exists
		}
		q = q.Where(exists)
	}
	if p.HasOfficialLink != nil {
		if *p.HasOfficialLink {
			q = q.Where("document_editions.source_canonical_url IS NOT NULL")
		} else {
			q = q.Where("document_editions.source_canonical_url IS NULL")
		}
	}
	return q
}

// latestInForce bestimmt je Werk die geltende Ausgabe mit dem spätesten Veröffentlichungsdatum.
// Bei gleichem Datum gewinnt die höchste ID; Ausgaben ohne Datum sind nie "neueste".
func latestInForce(db *gorm.DB) (map[uint]bool, error) {
	var rows []struct {
		ID     uint
		WorkID uint
	}
	if err := db.Model(&models.Edition{}).
		Select("id", "work_id").
		Where("status = ? AND publication_date IS NOT NULL", models.StatusInForce).
		Order("work_id").Order("publication_date DESC").Order("id DESC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("evaluate latest in-force editions: %w", err)
	}
	latest := make(map[uint]bool)
	seen := make(map[uint]bool)
	for _, r := range rows {
		if seen[r.WorkID] {
			continue
		}
		seen[r.WorkID] = true
		latest[r.ID] = true
	}
	return latest, nil
}
