package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/arhivare/fondio/internal/codec"
	"github.com/arhivare/fondio/internal/fond"
	"github.com/arhivare/fondio/internal/store"
)

func str(s string) *string { return &s }

func sampleRecords() []fond.Fond {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []fond.Fond{
		{
			ID:          uuid.New(),
			CompanyName: "Tractorul Brașov SA",
			HolderName:  "Arhivele Naționale Brașov",
			Address:     str("Str. Gării 2, Brașov"),
			Email:       str("contact@arhivebrasov.ro"),
			Active:      true,
			CreatedAt:   base,
		},
		{
			ID:          uuid.New(),
			CompanyName: "Electroputere Craiova",
			HolderName:  "SC Arhiv Consult SRL",
			Phone:       str("0251 987 654"),
			Active:      false,
			CreatedAt:   base.Add(24 * time.Hour),
		},
		{
			ID:          uuid.New(),
			CompanyName: "Policolor București",
			HolderName:  "Arhivele Naționale",
			Active:      true,
			CreatedAt:   base.Add(48 * time.Hour),
		},
	}
}

func TestComposeTwoFieldProjection(t *testing.T) {
	art, err := Compose(sampleRecords(), Request{
		Format: codec.FormatCSV,
		Fields: []string{"company_name", "holder_name"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if art.RecordCount != 3 {
		t.Errorf("record count = %d", art.RecordCount)
	}

	c, _ := codec.For(codec.FormatCSV, codec.Options{})
	table, err := c.Decode(bytes.NewReader(art.Bytes))
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Headers) != 2 {
		t.Fatalf("headers = %v, want exactly the two selected columns", table.Headers)
	}
	if table.Headers[0] != "Companie" || table.Headers[1] != "Deținător arhivă" {
		t.Errorf("headers = %v", table.Headers)
	}
	for _, row := range table.Rows {
		if len(row) != 2 {
			t.Errorf("row has %d cells: %v", len(row), row)
		}
	}
}

func TestComposeStatusFilter(t *testing.T) {
	art, err := Compose(sampleRecords(), Request{
		Format: codec.FormatCSV,
		Status: store.StatusActive,
	})
	if err != nil {
		t.Fatal(err)
	}
	if art.RecordCount != 2 {
		t.Errorf("expected 2 active records, got %d", art.RecordCount)
	}
}

func TestComposeQueryAndDateFilters(t *testing.T) {
	records := sampleRecords()

	art, err := Compose(records, Request{Format: codec.FormatCSV, Query: "electroputere"})
	if err != nil {
		t.Fatal(err)
	}
	if art.RecordCount != 1 {
		t.Errorf("query filter: got %d records", art.RecordCount)
	}

	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	art, err = Compose(records, Request{Format: codec.FormatCSV, CreatedFrom: &from})
	if err != nil {
		t.Fatal(err)
	}
	if art.RecordCount != 2 {
		t.Errorf("date filter: got %d records", art.RecordCount)
	}
}

func TestComposeSortStableMultiKey(t *testing.T) {
	art, err := Compose(sampleRecords(), Request{
		Format: codec.FormatCSV,
		Fields: []string{"company_name"},
		Sort: []SortKey{
			{Field: "holder_name"},
			{Field: "company_name", Desc: true},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	c, _ := codec.For(codec.FormatCSV, codec.Options{})
	table, _ := c.Decode(bytes.NewReader(art.Bytes))

	// Holder "Arhivele Naționale" sorts before "Arhivele Naționale
	// Brașov" and "SC Arhiv Consult SRL".
	want := []string{"Policolor București", "Tractorul Brașov SA", "Electroputere Craiova"}
	for i, w := range want {
		if table.Rows[i][0] != w {
			t.Errorf("row %d = %q, want %q", i, table.Rows[i][0], w)
		}
	}
}

func TestComposeTemplateRoleEnforced(t *testing.T) {
	_, err := Compose(sampleRecords(), Request{
		Format:     codec.FormatXLSX,
		TemplateID: "admin-full",
		Role:       "client",
	})
	if err == nil {
		t.Fatal("expected role rejection")
	}
}

func TestComposeTemplateDefaults(t *testing.T) {
	owner := uuid.New()
	records := sampleRecords()
	records[0].OwnerID = owner

	art, err := Compose(records, Request{
		Format:     codec.FormatCSV,
		TemplateID: "client-own",
		Role:       "client",
		OwnerID:    &owner,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(art.Filename, "client-own_") {
		t.Errorf("filename = %q", art.Filename)
	}
	// Owner scoping from the template keeps only the caller's record.
	if art.RecordCount != 1 {
		t.Errorf("record count = %d, want the 1 owned record", art.RecordCount)
	}

	c, _ := codec.For(codec.FormatCSV, codec.Options{})
	table, _ := c.Decode(bytes.NewReader(art.Bytes))
	if len(table.Headers) != 5 {
		t.Errorf("expected the template's 5 default fields, got %v", table.Headers)
	}
}

func TestComposeTemplateDefaultStatus(t *testing.T) {
	// audit-review defaults to active records when no status is given.
	art, err := Compose(sampleRecords(), Request{
		Format:     codec.FormatCSV,
		TemplateID: "audit-review",
		Role:       "audit",
	})
	if err != nil {
		t.Fatal(err)
	}
	if art.RecordCount != 2 {
		t.Errorf("record count = %d, want only the 2 active records", art.RecordCount)
	}

	// An explicit status overrides the template default.
	art, err = Compose(sampleRecords(), Request{
		Format:     codec.FormatCSV,
		TemplateID: "audit-review",
		Role:       "audit",
		Status:     store.StatusAll,
	})
	if err != nil {
		t.Fatal(err)
	}
	if art.RecordCount != 3 {
		t.Errorf("record count = %d, want all 3 records", art.RecordCount)
	}
}

func TestComposeOwnerScopedTemplateRequiresOwner(t *testing.T) {
	_, err := Compose(sampleRecords(), Request{
		Format:     codec.FormatCSV,
		TemplateID: "client-own",
		Role:       "client",
	})
	if err == nil || !strings.Contains(err.Error(), "owner_id") {
		t.Fatalf("err = %v, want an owner_id requirement", err)
	}
}

func TestComposeUnknownFieldRejected(t *testing.T) {
	if _, err := Compose(sampleRecords(), Request{
		Format: codec.FormatCSV,
		Fields: []string{"company_name", "cui"},
	}); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestComposeJSONUsesKeysAndBooleans(t *testing.T) {
	art, err := Compose(sampleRecords(), Request{
		Format: codec.FormatJSON,
		Fields: []string{"company_name", "active"},
	})
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		Metadata struct {
			RecordCount int      `json:"recordCount"`
			Fields      []string `json:"fields"`
		} `json:"metadata"`
		Data []map[string]string `json:"data"`
	}
	if err := json.Unmarshal(art.Bytes, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Metadata.RecordCount != 3 {
		t.Errorf("recordCount = %d", doc.Metadata.RecordCount)
	}
	if doc.Data[0]["active"] != "true" && doc.Data[0]["active"] != "false" {
		t.Errorf("JSON active = %q, want true/false", doc.Data[0]["active"])
	}
	if _, ok := doc.Data[0]["company_name"]; !ok {
		t.Error("JSON keys should be canonical field keys")
	}
}

func TestComposeCSVLocalizesActive(t *testing.T) {
	art, err := Compose(sampleRecords(), Request{
		Format: codec.FormatCSV,
		Fields: []string{"company_name", "active"},
	})
	if err != nil {
		t.Fatal(err)
	}
	out := string(art.Bytes)
	if !strings.Contains(out, `"Da"`) || !strings.Contains(out, `"Nu"`) {
		t.Errorf("expected localized active values, got %q", out)
	}
}

func TestComposeStatistics(t *testing.T) {
	art, err := Compose(sampleRecords(), Request{
		Format:            codec.FormatCSV,
		Fields:            []string{"company_name", "email"},
		IncludeStatistics: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	out := string(art.Bytes)
	if !strings.Contains(out, `"Câmp"`) {
		t.Error("missing statistics section")
	}
	// One of three records has an email.
	if !strings.Contains(out, `"Email","1","33%"`) {
		t.Errorf("missing email completeness row: %q", out)
	}
}

func TestComposeEmptyInput(t *testing.T) {
	art, err := Compose(nil, Request{Format: codec.FormatCSV})
	if err != nil {
		t.Fatal(err)
	}
	if art.RecordCount != 0 {
		t.Errorf("record count = %d", art.RecordCount)
	}
	if art.FileSize != int64(len(art.Bytes)) {
		t.Error("file size mismatch")
	}
}

func TestFilename(t *testing.T) {
	at := time.Date(2026, 8, 27, 15, 4, 5, 0, time.UTC)
	if got := Filename("fonduri", codec.FormatXLSX, at); got != "fonduri_2026-08-27.xlsx" {
		t.Errorf("got %q", got)
	}
	if got := Filename("client-own", codec.FormatCSV, at); got != "client-own_2026-08-27.csv" {
		t.Errorf("got %q", got)
	}
}
