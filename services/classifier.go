package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"standarr/models"
)

// Classifier ordnet Kandidaten per Schlagwortregeln Disziplinen und Tags zu.
type Classifier struct {
	DB     *gorm.DB
	Rules  Rules
	Logger *zap.Logger
}

// NewClassifier erstellt einen Classifier auf einer (Transaktions-)Verbindung.
func NewClassifier(db *gorm.DB, rules Rules, logger *zap.Logger) *Classifier {
	return &Classifier{DB: db, Rules: rules, Logger: logger}
}

// CollectTerms sammelt Kategorien, Schlagworte und Titel in normalisierter Form.
func CollectTerms(c *models.Candidate) []string {
	raw := make([]string, 0, len(c.Categories)+len(c.Keywords)+1)
	raw = append(raw, c.Categories...)
	raw = append(raw, c.Keywords...)
	raw = append(raw, c.Work.Title)

	terms := make([]string, 0, len(raw))
	for _, r := range raw {
		if t := NormalizeTerm(r); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// Classify setzt Primär-/Sekundär-Disziplinen und Tags des Kandidaten. Eine explizit gelieferte
// Primär-Disziplin gewinnt; explizite Sekundär- und Tag-Listen werden mit den abgeleiteten
// zusammengeführt (explizite zuerst).
func (c *Classifier) Classify(ctx context.Context, candidate *models.Candidate) error {
	terms := CollectTerms(candidate)
	codes := c.Rules.MatchDisciplines(terms)
	tagNames := c.Rules.MatchTags(terms)

	mappedPrimary, mappedSecondary, err := c.ResolveDisciplines(ctx, codes)
	if err != nil {
		return err
	}
	mappedTags, err := c.ResolveTags(ctx, tagNames)
	if err != nil {
		return err
	}

	work := &candidate.Work
	if work.PrimaryDisciplineID == nil {
		work.PrimaryDisciplineID = mappedPrimary
	}
	if work.SecondaryDisciplineIDs == nil {
		work.SecondaryDisciplineIDs = mappedSecondary
	} else {
		work.SecondaryDisciplineIDs = mergeIDs(work.SecondaryDisciplineIDs, mappedSecondary)
	}
	if work.TagIDs == nil {
		work.TagIDs = mappedTags
	} else {
		work.TagIDs = mergeIDs(work.TagIDs, mappedTags)
	}
	if work.PrimaryDisciplineID != nil {
		work.SecondaryDisciplineIDs = withoutID(work.SecondaryDisciplineIDs, *work.PrimaryDisciplineID)
	}

	c.Logger.Debug("Kandidat klassifiziert",
		zap.String("external_id", candidate.ExternalID),
		zap.Strings("disciplines", codes),
		zap.Strings("tags", tagNames))
	return nil
}

// ResolveDisciplines wandelt Codes in IDs um und legt fehlende Disziplinen an. Die erste ID wird
// primär, die übrigen sekundär. Ohne Codes: (nil, leere Liste).
func (c *Classifier) ResolveDisciplines(ctx context.Context, codes []string) (*uint, []uint, error) {
	secondary := []uint{}
	if len(codes) == 0 {
		return nil, secondary, nil
	}
	db := c.DB.WithContext(ctx)

	for _, code := range codes {
		rule, pos, ok := c.Rules.rule(code)
		if !ok {
			continue
		}
		discipline := models.DisciplineCategory{
			Code:      rule.Code,
			Name:      rule.Name,
			Version:   "v1",
			SortOrder: pos + 1,
			Active:    true,
		}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&discipline).Error; err != nil {
			return nil, nil, fmt.Errorf("create discipline %s: %w", code, err)
		}
	}

	var existing []models.DisciplineCategory
	if err := db.Where("code IN ?", codes).Find(&existing).Error; err != nil {
		return nil, nil, fmt.Errorf("load disciplines: %w", err)
	}
	byCode := make(map[string]uint, len(existing))
	for _, d := range existing {
		byCode[d.Code] = d.ID
	}

	var ordered []uint
	for _, code := range codes {
		if id, ok := byCode[code]; ok {
			ordered = mergeIDs(ordered, []uint{id})
		}
	}
	if len(ordered) == 0 {
		return nil, secondary, nil
	}
	primary := ordered[0]
	return &primary, append(secondary, ordered[1:]...), nil
}

// ResolveTags wandelt Tag-Namen über den normalisierten Namen in IDs um und legt fehlende an.
func (c *Classifier) ResolveTags(ctx context.Context, names []string) ([]uint, error) {
	ids := []uint{}
	if len(names) == 0 {
		return ids, nil
	}
	db := c.DB.WithContext(ctx)

	var keys []string
	for _, name := range names {
		key := models.NormalizeTagName(name)
		if key == "" {
			continue
		}
		keys = append(keys, key)
		tag := models.UserTag{Name: name, NormalizedName: key}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "normalized_name"}},
			DoNothing: true,
		}).Create(&tag).Error; err != nil {
			return nil, fmt.Errorf("create tag %s: %w", name, err)
		}
	}

	var existing []models.UserTag
	if err := db.Where("normalized_name IN ?", keys).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	byKey := make(map[string]uint, len(existing))
	for _, t := range existing {
		byKey[t.NormalizedName] = t.ID
	}
	for _, key := range keys {
		if id, ok := byKey[key]; ok {
			ids = mergeIDs(ids, []uint{id})
		}
	}
	return ids, nil
}

// mergeIDs hängt incoming an existing an, ohne Duplikate; die Reihenfolge bleibt erhalten.
func mergeIDs(existing, incoming []uint) []uint {
	seen := make(map[uint]bool, len(existing)+len(incoming))
	merged := make([]uint, 0, len(existing)+len(incoming))
	for _, lists := range [][]uint{existing, incoming} {
		for _, id := range lists {
			if !seen[id] {
				seen[id] = true
				merged = append(merged, id)
			}
		}
	}
	return merged
}

func withoutID(ids []uint, drop uint) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}
