package validate

import (
	"strings"
	"testing"

	"github.com/arhivare/fondio/internal/fond"
)

func str(s string) *string { return &s }

func validRecord() fond.ImportRecord {
	return fond.ImportRecord{
		CompanyName: "Tractorul Brașov SA",
		HolderName:  "Arhivele Naționale Brașov",
		Address:     str("Str. Gării 2, Brașov"),
		Email:       str("arhiva@example.ro"),
		Phone:       str("+40 268 123 456"),
		Active:      true,
	}
}

func TestBatchValidRecord(t *testing.T) {
	res := Batch([]Row{{Num: 1, Record: validRecord()}})

	if len(res.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", res.Errors)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", res.Warnings)
	}
	if res.Stats.ValidRows != 1 || res.Stats.ErrorRows != 0 {
		t.Errorf("unexpected stats: %+v", res.Stats)
	}
}

func TestBatchStatsInvariant(t *testing.T) {
	bad := validRecord()
	bad.Email = str("not-an-email")

	short := validRecord()
	short.CompanyName = "X"

	rows := []Row{
		{Num: 1, Record: validRecord()},
		{Num: 2, Record: bad},
		{Num: 3, Record: short},
	}
	res := Batch(rows)

	if got := res.Stats.ValidRows + res.Stats.ErrorRows; got != res.Stats.TotalRows {
		t.Errorf("validRows+errorRows=%d, totalRows=%d", got, res.Stats.TotalRows)
	}
	if res.Stats.ErrorRows != 2 {
		t.Errorf("expected 2 error rows, got %d", res.Stats.ErrorRows)
	}
}

func TestFieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fond.ImportRecord)
		field  string
	}{
		{"short company name", func(r *fond.ImportRecord) { r.CompanyName = "A" }, "company_name"},
		{"long company name", func(r *fond.ImportRecord) { r.CompanyName = strings.Repeat("a", 256) }, "company_name"},
		{"short holder name", func(r *fond.ImportRecord) { r.HolderName = "B" }, "holder_name"},
		{"bad email", func(r *fond.ImportRecord) { r.Email = str("missing-at.ro") }, "email"},
		{"bad url scheme", func(r *fond.ImportRecord) { r.SourceURL = str("ftp://example.ro") }, "source_url"},
		{"relative url", func(r *fond.ImportRecord) { r.SourceURL = str("example dot ro") }, "source_url"},
		{"short phone", func(r *fond.ImportRecord) { r.Phone = str("12345") }, "phone"},
		{"alpha phone", func(r *fond.ImportRecord) { r.Phone = str("call me maybe") }, "phone"},
		{"long phone", func(r *fond.ImportRecord) { r.Phone = str("0" + strings.Repeat("1", 20)) }, "phone"},
		{"long plus phone", func(r *fond.ImportRecord) { r.Phone = str("+40" + strings.Repeat("1", 18)) }, "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)
			res := Batch([]Row{{Num: 1, Record: rec}})
			if len(res.Errors) == 0 {
				t.Fatal("expected an error")
			}
			if res.Errors[0].Field != tt.field {
				t.Errorf("expected error on %q, got %q", tt.field, res.Errors[0].Field)
			}
			if res.Errors[0].Record.CompanyName != rec.CompanyName {
				t.Error("issue should carry a snapshot of the record")
			}
		})
	}
}

func TestValidURLAndPhoneAccepted(t *testing.T) {
	rec := validRecord()
	rec.SourceURL = str("https://arhivebrasov.ro/fonduri")
	rec.Phone = str("0251 987 654")

	res := Batch([]Row{{Num: 1, Record: rec}})
	if len(res.Errors) != 0 {
		t.Errorf("expected no errors, got %v", res.Errors)
	}

	// 20 characters is the inclusive cap, leading + counted.
	rec.Phone = str("+40" + strings.Repeat("1", 17))
	res = Batch([]Row{{Num: 1, Record: rec}})
	if len(res.Errors) != 0 {
		t.Errorf("20-char phone with + should pass: %v", res.Errors)
	}
}

func TestWarnings(t *testing.T) {
	rec := validRecord()
	rec.Address = nil
	rec.Email = nil
	rec.Phone = nil

	res := Batch([]Row{{Num: 4, Record: rec}})

	if len(res.Errors) != 0 {
		t.Fatalf("warnings must not be errors: %v", res.Errors)
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("expected missing-address and no-contact warnings, got %v", res.Warnings)
	}
	if res.Stats.ValidRows != 1 {
		t.Error("rows with only warnings stay valid")
	}
}

func TestIntraBatchDuplicates(t *testing.T) {
	a := validRecord()
	b := validRecord()
	// Same company and holder after normalization, different spelling.
	b.CompanyName = "tractorul brasov"
	c := validRecord()
	c.CompanyName = "Policolor București"

	res := Batch([]Row{
		{Num: 3, Record: a},
		{Num: 5, Record: c},
		{Num: 7, Record: b},
	})

	var dupes []Issue
	for _, w := range res.Warnings {
		if strings.Contains(w.Message, "duplicate") {
			dupes = append(dupes, w)
		}
	}
	if len(dupes) != 2 {
		t.Fatalf("expected one duplicate finding per involved row, got %d", len(dupes))
	}
	for _, d := range dupes {
		if !strings.Contains(d.Message, "3") || !strings.Contains(d.Message, "7") {
			t.Errorf("finding should cite both rows 3 and 7: %q", d.Message)
		}
	}
	if dupes[0].Row != 3 || dupes[1].Row != 7 {
		t.Errorf("findings should be anchored at rows 3 and 7, got %d and %d", dupes[0].Row, dupes[1].Row)
	}
}

func TestEmptyBatch(t *testing.T) {
	res := Batch(nil)
	if res.Stats.TotalRows != 0 || res.Stats.ValidRows != 0 || res.Stats.ErrorRows != 0 {
		t.Errorf("unexpected stats for empty batch: %+v", res.Stats)
	}
}
