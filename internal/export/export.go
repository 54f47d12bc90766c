// Package export composes downloadable artifacts from persisted fund
// records: filter, sort, project onto the selected catalog fields, then
// hand the resulting table to the format codec.
package export

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arhivare/fondio/internal/catalog"
	"github.com/arhivare/fondio/internal/codec"
	"github.com/arhivare/fondio/internal/fond"
	"github.com/arhivare/fondio/internal/store"
)

// SortKey orders the output by one field.
type SortKey struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

// Request describes one export. Zero-value filters match everything;
// an empty Fields list falls back to the template defaults (or the
// catalog defaults when no template is named).
type Request struct {
	TemplateID string
	Role       string
	Format     codec.FormatKind
	Fields     []string
	// Status zero value is "unset": a template default may fill it.
	// StatusAll explicitly requests both active and inactive records.
	Status            store.StatusFilter
	Query             string
	CreatedFrom       *time.Time
	CreatedTo         *time.Time
	OwnerID           *uuid.UUID
	Sort              []SortKey
	IncludeStatistics bool
	// BOM is honored by the delimited format only.
	BOM bool
}

// Artifact is a finished export ready to stream to the caller.
type Artifact struct {
	Bytes       []byte
	Filename    string
	RecordCount int
	FileSize    int64
	ContentType string
}

// Compose turns records into an artifact. Filtering, sorting and field
// projection all happen here so every store backend exports identically.
func Compose(records []fond.Fond, req Request) (*Artifact, error) {
	selection, base, err := resolve(&req)
	if err != nil {
		return nil, err
	}

	filtered := filter(records, req)
	sortRecords(filtered, req.Sort)

	table := project(filtered, selection, req.Format)

	meta := &codec.Metadata{
		ExportedAt:  time.Now().UTC(),
		RecordCount: len(filtered),
		Fields:      fieldKeys(selection),
	}
	if req.IncludeStatistics {
		meta.Statistics = statistics(filtered, selection)
	}

	c, err := codec.For(req.Format, codec.Options{BOM: req.BOM})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := c.Encode(&buf, table, meta); err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	return &Artifact{
		Bytes:       buf.Bytes(),
		Filename:    Filename(base, req.Format, meta.ExportedAt),
		RecordCount: len(filtered),
		FileSize:    int64(buf.Len()),
		ContentType: req.Format.ContentType(),
	}, nil
}

// Filename builds the deterministic artifact name: base, date, extension.
func Filename(base string, format codec.FormatKind, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", base, at.Format("2006-01-02"), format.Extension())
}

// resolve picks the field selection and the filename base, enforcing
// template role access when a template is named. Template default
// filters pre-populate the request: they apply only where the caller
// left the corresponding field unset.
func resolve(req *Request) ([]catalog.Field, string, error) {
	base := "fonduri"

	var defaults []string
	if req.TemplateID != "" {
		tpl, ok := catalog.TemplateByID(req.TemplateID, req.Role)
		if !ok {
			return nil, "", fmt.Errorf("template %q is not available for role %q", req.TemplateID, req.Role)
		}
		defaults = tpl.DefaultFields
		base = tpl.ID

		if req.Status == "" && tpl.DefaultStatus != "" {
			req.Status = store.StatusFilter(tpl.DefaultStatus)
		}
		if tpl.OwnerScoped && req.OwnerID == nil {
			return nil, "", fmt.Errorf("template %q requires an owner_id", tpl.ID)
		}
	}

	keys := req.Fields
	if len(keys) == 0 {
		keys = defaults
	}
	if len(keys) == 0 {
		sel := catalog.DefaultSelection()
		return sel, base, nil
	}

	sel, err := catalog.Select(keys)
	if err != nil {
		return nil, "", err
	}
	return sel, base, nil
}

func filter(records []fond.Fond, req Request) []fond.Fond {
	q := strings.ToLower(strings.TrimSpace(req.Query))

	var out []fond.Fond
	for _, f := range records {
		if req.Status == store.StatusActive && !f.Active {
			continue
		}
		if req.Status == store.StatusInactive && f.Active {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(f.CompanyName), q) &&
			!strings.Contains(strings.ToLower(f.HolderName), q) {
			continue
		}
		if req.CreatedFrom != nil && f.CreatedAt.Before(*req.CreatedFrom) {
			continue
		}
		if req.CreatedTo != nil && f.CreatedAt.After(*req.CreatedTo) {
			continue
		}
		if req.OwnerID != nil && f.OwnerID != *req.OwnerID {
			continue
		}
		out = append(out, f)
	}
	return out
}

// sortRecords applies a stable multi-key sort. With no keys the input
// order is kept (the store already lists by company name).
func sortRecords(records []fond.Fond, keys []SortKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, k := range keys {
			c := compareField(&records[i], &records[j], k.Field)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareField(a, b *fond.Fond, field string) int {
	switch field {
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "active":
		if a.Active == b.Active {
			return 0
		}
		if a.Active {
			return 1
		}
		return -1
	default:
		av := strings.ToLower(a.Record().Field(field))
		bv := strings.ToLower(b.Record().Field(field))
		return strings.Compare(av, bv)
	}
}

// project renders records onto the selection. Column headers are the
// Romanian display labels for human-facing formats and the canonical
// keys for JSON, so a JSON export re-imports without a header map.
func project(records []fond.Fond, selection []catalog.Field, format codec.FormatKind) *codec.Table {
	headers := catalog.Labels(selection)
	if format == codec.FormatJSON {
		headers = fieldKeys(selection)
	}

	table := &codec.Table{
		Headers: headers,
		Widths:  make([]int, len(selection)),
	}
	for i, f := range selection {
		table.Widths[i] = f.Width
	}

	for _, rec := range records {
		r := rec.Record()
		row := make([]string, len(selection))
		for i, f := range selection {
			row[i] = displayValue(r, f.Key, format)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// displayValue localizes the active flag for human-facing formats.
func displayValue(r fond.ImportRecord, key string, format codec.FormatKind) string {
	v := r.Field(key)
	if key == "active" && format != codec.FormatJSON {
		if r.Active {
			return "Da"
		}
		return "Nu"
	}
	return v
}

// statistics builds the per-field completeness table.
func statistics(records []fond.Fond, selection []catalog.Field) *codec.Table {
	stats := &codec.Table{
		Headers: []string{"Câmp", "Completate", "Procent"},
	}
	total := len(records)
	for _, f := range selection {
		filled := 0
		for _, rec := range records {
			if strings.TrimSpace(rec.Record().Field(f.Key)) != "" {
				filled++
			}
		}
		pct := "0%"
		if total > 0 {
			pct = fmt.Sprintf("%d%%", filled*100/total)
		}
		stats.Rows = append(stats.Rows, []string{f.Label, fmt.Sprintf("%d", filled), pct})
	}
	return stats
}

func fieldKeys(selection []catalog.Field) []string {
	keys := make([]string, len(selection))
	for i, f := range selection {
		keys[i] = f.Key
	}
	return keys
}
