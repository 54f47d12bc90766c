// Package catalog is the static registry of importable/exportable fund
// fields and of the role-scoped export templates built on top of them.
// The catalog is read-only configuration: callers derive working
// selections from it per request, they never mutate it.
package catalog

import (
	"fmt"
	"strings"
)

// Field describes one exportable/importable fund field.
type Field struct {
	Key     string // canonical field key, e.g. "company_name"
	Label   string // display label used as the export column header
	Enabled bool   // included in exports by default
	Width   int    // column width hint for spreadsheet rendering, 0 = none
}

// fields is the catalog, in canonical column order.
var fields = []Field{
	{Key: "company_name", Label: "Companie", Enabled: true, Width: 32},
	{Key: "holder_name", Label: "Deținător arhivă", Enabled: true, Width: 32},
	{Key: "address", Label: "Adresă", Enabled: true, Width: 40},
	{Key: "email", Label: "Email", Enabled: true, Width: 26},
	{Key: "phone", Label: "Telefon", Enabled: true, Width: 18},
	{Key: "notes", Label: "Observații", Enabled: false, Width: 40},
	{Key: "source_url", Label: "Sursă", Enabled: false, Width: 36},
	{Key: "active", Label: "Activ", Enabled: true, Width: 10},
}

// Fields returns a copy of the full catalog in canonical order.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Keys returns all catalog keys in canonical order.
func Keys() []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	return keys
}

// Lookup returns the catalog entry for a key.
func Lookup(key string) (Field, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Select derives a working field selection from the catalog. The result
// preserves catalog order regardless of the order keys were given in.
// Unknown keys are rejected, not dropped.
func Select(keys []string) ([]Field, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("no fields selected")
	}

	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if _, ok := Lookup(k); !ok {
			return nil, fmt.Errorf("unknown export field: %q", k)
		}
		want[k] = true
	}

	var selected []Field
	for _, f := range fields {
		if want[f.Key] {
			f.Enabled = true
			selected = append(selected, f)
		}
	}
	return selected, nil
}

// DefaultSelection returns the fields enabled by default, in catalog order.
func DefaultSelection() []Field {
	var selected []Field
	for _, f := range fields {
		if f.Enabled {
			selected = append(selected, f)
		}
	}
	return selected
}

// Labels returns the display labels for a selection, in order.
func Labels(selection []Field) []string {
	labels := make([]string, len(selection))
	for i, f := range selection {
		labels[i] = f.Label
	}
	return labels
}
