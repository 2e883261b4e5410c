package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"standarr/models"
)

// Platzhalter der Textausgabe.
const (
	noPrimaryEntries   = "- (nessuna)"
	noReferenceEntries = "- (nessuno)"
	unknownDiscipline  = "N/D"
	undatedEdition     = "n.d."
)

// Exporter rendert Listen als gruppierten Text.
type Exporter struct {
	DB          *gorm.DB
	CatalogName string
	Now         func() time.Time
}

// NewExporter erstellt einen Exporter; catalogName erscheint in der Kopfzeile.
func NewExporter(db *gorm.DB, catalogName string) *Exporter {
	if catalogName == "" {
		catalogName = "Standarr"
	}
	return &Exporter{DB: db, CatalogName: catalogName, Now: time.Now}
}

type exportSection struct {
	primary    []string
	references []string
}

// ExportListAsText gruppiert die aufgenommenen Einträge nach ihrer eingefrorenen
// Primär-Disziplin (in Sortierreihenfolge, leere Disziplinen entfallen). Jede Sektion enthält die
// Normen der Disziplin und Querverweise von Einträgen, die sie als Sekundär-Disziplin führen.
func (e *Exporter) ExportListAsText(ctx context.Context, listID uint) (string, error) {
	db := e.DB.WithContext(ctx)

	var list models.NormativeList
	if err := db.First(&list, listID).Error; err != nil {
		return "", notFound(err, "list", listID)
	}

	var items []models.NormativeListItem
	if err := db.Preload("Edition.Work").
		Where("list_id = ? AND included = ?", listID, true).
		Order("added_at").Order("id").
		Find(&items).Error; err != nil {
		return "", fmt.Errorf("load items: %w", err)
	}

	var disciplines []models.DisciplineCategory
	if err := db.Order("sort_order").Order("id").Find(&disciplines).Error; err != nil {
		return "", fmt.Errorf("load disciplines: %w", err)
	}
	names := make(map[uint]string, len(disciplines))
	for _, d := range disciplines {
		names[d.ID] = d.Name
	}

	sections := map[uint]*exportSection{}
	section := func(id uint) *exportSection {
		if sections[id] == nil {
			sections[id] = &exportSection{}
		}
		return sections[id]
	}
	for i := range items {
		item := &items[i]
		if item.PrimaryDisciplineIDAtTime == nil {
			continue
		}
		primaryID := *item.PrimaryDisciplineIDAtTime
		sec := section(primaryID)
		sec.primary = append(sec.primary, FormatExportEntry(item)...)

		primaryName, ok := names[primaryID]
		if !ok {
			primaryName = unknownDiscipline
		}
		for _, secondaryID := range item.SecondaryDisciplineIDsAtTime {
			if secondaryID == primaryID {
				continue
			}
			ref := section(secondaryID)
			ref.references = append(ref.references,
				fmt.Sprintf("- %s — vedi disciplina primaria: %s", item.Edition.Work.Identifier, primaryName))
		}
	}

	criteria, err := json.Marshal(list.Filters())
	if err != nil {
		return "", fmt.Errorf("serialize filters: %w", err)
	}
	lines := []string{
		fmt.Sprintf("%s – Elenco Normative", e.CatalogName),
		fmt.Sprintf("Nome elenco: %s", list.Name),
		fmt.Sprintf("Generato: %s", e.Now().UTC().Format("2006-01-02 15:04")),
		fmt.Sprintf("Modalità: %s", list.RegenerationMode),
		fmt.Sprintf("Criteri (snapshot): %s", criteria),
		"",
	}
	for _, d := range disciplines {
		sec, ok := sections[d.ID]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("== %s ==", strings.ToUpper(d.Name)), "[Norme]")
		if len(sec.primary) == 0 {
			lines = append(lines, noPrimaryEntries)
		}
		lines = append(lines, sec.primary...)
		lines = append(lines, "[Riferimenti]")
		if len(sec.references) == 0 {
			lines = append(lines, noReferenceEntries)
		}
		lines = append(lines, sec.references...)
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n"), nil
}

// FormatExportEntry rendert einen Eintrag als Normzeile, ggf. gefolgt von der eingerückten Notiz.
func FormatExportEntry(item *models.NormativeListItem) []string {
	edition := item.Edition
	work := edition.Work
	lines := []string{fmt.Sprintf("- %s — %s (Ed. %s, Pub. %s) [%s] %s",
		work.Identifier,
		work.Title,
		edition.EditionLabel,
		models.FormatDate(edition.PublicationDate, undatedEdition),
		work.Authority,
		edition.Status,
	)}
	if item.Note != nil && *item.Note != "" {
		lines = append(lines, "  Note: "+*item.Note)
	}
	return lines
}
