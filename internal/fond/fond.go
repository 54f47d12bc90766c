// Package fond defines the domain types for archival fund records.
// A fund ("fond") is the archival record entry of a defunct Romanian
// company: who the company was and which institution holds its papers.
// This package has no transport or storage dependencies.
package fond

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImportRecord is one candidate fund entry produced from a single source
// row. Optional fields are pointers so that "explicitly blank" collapses
// to absent rather than an empty string. The record is immutable after
// normalization.
type ImportRecord struct {
	CompanyName string  `json:"company_name"`
	HolderName  string  `json:"holder_name"`
	Address     *string `json:"address,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Notes       *string `json:"notes,omitempty"`
	SourceURL   *string `json:"source_url,omitempty"`
	Active      bool    `json:"active"`
}

// Fond is a persisted fund entry as the record store returns it.
// OwnerID is uuid.Nil for records no client owns.
type Fond struct {
	ID          uuid.UUID `json:"id"`
	CompanyName string    `json:"company_name"`
	HolderName  string    `json:"holder_name"`
	Address     *string   `json:"address,omitempty"`
	Email       *string   `json:"email,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	SourceURL   *string   `json:"source_url,omitempty"`
	Active      bool      `json:"active"`
	OwnerID     uuid.UUID `json:"owner_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Record returns the import-shaped view of a persisted fond, used when
// re-exporting or diffing against an incoming row.
func (f *Fond) Record() ImportRecord {
	return ImportRecord{
		CompanyName: f.CompanyName,
		HolderName:  f.HolderName,
		Address:     f.Address,
		Email:       f.Email,
		Phone:       f.Phone,
		Notes:       f.Notes,
		SourceURL:   f.SourceURL,
		Active:      f.Active,
	}
}

// Field returns the display-string value of a catalog field key.
// Unknown keys return "".
func (r ImportRecord) Field(key string) string {
	switch key {
	case "company_name":
		return r.CompanyName
	case "holder_name":
		return r.HolderName
	case "address":
		return deref(r.Address)
	case "email":
		return deref(r.Email)
	case "phone":
		return deref(r.Phone)
	case "notes":
		return deref(r.Notes)
	case "source_url":
		return deref(r.SourceURL)
	case "active":
		if r.Active {
			return "true"
		}
		return "false"
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// OptString trims s and returns nil when nothing remains, so optional
// CSV cells become absent rather than empty strings.
func OptString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Truthy and falsy vocabularies for the active flag. The data comes from
// bilingual spreadsheets, so both Romanian and English tokens are accepted.
var (
	truthyTokens = map[string]bool{
		"true": true, "1": true, "yes": true, "da": true,
		"activ": true, "active": true, "y": true,
	}
	falsyTokens = map[string]bool{
		"false": true, "0": true, "no": true, "nu": true,
		"inactiv": true, "inactive": true, "n": true,
	}
)

// ParseActive interprets a raw cell value as the active flag.
// Blank or unrecognized tokens fall back to def.
func ParseActive(s string, def bool) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	if truthyTokens[s] {
		return true
	}
	if falsyTokens[s] {
		return false
	}
	return def
}
