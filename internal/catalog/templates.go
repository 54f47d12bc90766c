package catalog

// templates.go defines the role-scoped export presets and the CSV import
// template download.
//
// Export templates are read-only configuration, not persisted entities.
// They exist to pre-populate an export request: the caller starts from a
// template's defaults and may narrow the field selection before running
// the export.

import (
	"bytes"
	"encoding/csv"
)

// ExportTemplate is a named preset of export format, default field
// selection and default filters, visible only to the roles it names.
type ExportTemplate struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	AllowedRoles  []string `json:"allowed_roles"`
	Format        string   `json:"format"` // "csv", "xlsx" or "json"
	DefaultFields []string `json:"default_fields"`
	// DefaultStatus pre-fills the status filter: "active", "inactive" or
	// "" for all records.
	DefaultStatus string `json:"default_status,omitempty"`
	// OwnerScoped restricts the export to records owned by the requester.
	OwnerScoped bool `json:"owner_scoped,omitempty"`
}

var templates = []ExportTemplate{
	{
		ID:            "admin-full",
		Name:          "Export complet",
		Description:   "Toate câmpurile, toate fondurile, inclusiv cele inactive.",
		AllowedRoles:  []string{"admin"},
		Format:        "xlsx",
		DefaultFields: Keys(),
	},
	{
		ID:            "audit-review",
		Name:          "Export verificare",
		Description:   "Câmpurile de contact pentru verificare, fără observații interne.",
		AllowedRoles:  []string{"admin", "audit"},
		Format:        "xlsx",
		DefaultFields: []string{"company_name", "holder_name", "address", "email", "phone", "active"},
		DefaultStatus: "active",
	},
	{
		ID:            "client-own",
		Name:          "Fondurile mele",
		Description:   "Fondurile active atribuite contului curent.",
		AllowedRoles:  []string{"admin", "client"},
		Format:        "csv",
		DefaultFields: []string{"company_name", "holder_name", "address", "email", "phone"},
		DefaultStatus: "active",
		OwnerScoped:   true,
	},
}

// Templates returns all export templates.
func Templates() []ExportTemplate {
	out := make([]ExportTemplate, len(templates))
	copy(out, templates)
	return out
}

// TemplatesFor returns the templates visible to a role.
func TemplatesFor(role string) []ExportTemplate {
	var out []ExportTemplate
	for _, t := range templates {
		for _, r := range t.AllowedRoles {
			if r == role {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// TemplateByID returns a template by its ID and whether the role may use it.
func TemplateByID(id, role string) (ExportTemplate, bool) {
	for _, t := range templates {
		if t.ID != id {
			continue
		}
		for _, r := range t.AllowedRoles {
			if r == role {
				return t, true
			}
		}
		return ExportTemplate{}, false
	}
	return ExportTemplate{}, false
}

// importSampleRows are illustrative rows shipped with the import template
// so users preparing a file see the expected shape and the bilingual
// active vocabulary.
var importSampleRows = [][]string{
	{
		"Tractorul Brașov SA",
		"Arhivele Naționale Brașov",
		"Str. Gării 2, Brașov",
		"contact@arhivebrasov.ro",
		"+40 268 123 456",
		"Fond preluat în 2004",
		"https://arhivebrasov.ro",
		"da",
	},
	{
		"Electroputere Craiova",
		"SC Arhiv Consult SRL",
		"",
		"",
		"0251 987 654",
		"",
		"",
		"nu",
	},
}

// ImportTemplateCSV renders the canonical CSV header row plus sample rows
// for users preparing import files.
func ImportTemplateCSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(Keys())
	for _, row := range importSampleRows {
		_ = w.Write(row)
	}
	w.Flush()
	return buf.Bytes()
}
