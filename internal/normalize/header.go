// Package normalize converts raw source rows into typed fund records:
// arbitrary column headers into canonical field keys, and raw cell
// values into a validated, trimmed ImportRecord.
package normalize

import (
	"strings"
	"unicode"
)

// Locale mapping tables from normalized source headers to canonical
// field keys. Ordered: Romanian synonyms are consulted first because the
// bulk of the source spreadsheets is Romanian; English second. Both maps
// are keyed by the output of Header's normalization step, so lookups are
// case- and punctuation-insensitive.
var headerTables = []map[string]string{
	// Romanian
	{
		"companie":               "company_name",
		"nume_companie":          "company_name",
		"denumire":               "company_name",
		"denumire_companie":      "company_name",
		"denumire_firma":         "company_name",
		"firma":                  "company_name",
		"societate":              "company_name",
		"detinator":              "holder_name",
		"detinator_arhiva":       "holder_name",
		"detinatorul_arhivei":    "holder_name",
		"institutie":             "holder_name",
		"institutia_detinatoare": "holder_name",
		"arhiva":                 "holder_name",
		"adresa":                 "address",
		"adresa_completa":        "address",
		"sediu":                  "address",
		"posta_electronica":      "email",
		"telefon":                "phone",
		"nr_telefon":             "phone",
		"numar_telefon":          "phone",
		"observatii":             "notes",
		"mentiuni":               "notes",
		"comentarii":             "notes",
		"sursa":                  "source_url",
		"sursa_url":              "source_url",
		"activ":                  "active",
		"stare":                  "active",
	},
	// English
	{
		"company":       "company_name",
		"company_name":  "company_name",
		"holder":        "holder_name",
		"holder_name":   "holder_name",
		"institution":   "holder_name",
		"address":       "address",
		"email":         "email",
		"e_mail":        "email",
		"mail":          "email",
		"phone":         "phone",
		"phone_number":  "phone",
		"tel":           "phone",
		"notes":         "notes",
		"comments":      "notes",
		"source_url":    "source_url",
		"source":        "source_url",
		"url":           "source_url",
		"link":          "source_url",
		"website":       "source_url",
		"active":        "active",
		"status":        "active",
	},
}

// headerDiacritics folds the Romanian diacritics seen in column headers.
var headerDiacritics = map[rune]rune{
	'ă': 'a', 'â': 'a', 'î': 'i', 'ș': 's', 'ş': 's', 'ț': 't', 'ţ': 't',
}

// Header maps a raw source column header to its canonical field key.
// The header is lowercased, diacritics folded, punctuation turned into
// spaces and whitespace runs collapsed to single underscores, then looked
// up against the locale tables in order; first match wins. Unmapped
// headers pass through in normalized form so unknown columns keep their
// position instead of being dropped.
func Header(raw string) string {
	key := normalizeHeaderKey(raw)
	for _, table := range headerTables {
		if canonical, ok := table[key]; ok {
			return canonical
		}
	}
	return key
}

func normalizeHeaderKey(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		if folded, ok := headerDiacritics[r]; ok {
			r = folded
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), "_")
}
