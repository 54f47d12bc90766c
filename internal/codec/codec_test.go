package codec

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    FormatKind
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{".csv", FormatCSV, false},
		{"XLSX", FormatXLSX, false},
		{"excel", FormatXLSX, false},
		{"json", FormatJSON, false},
		{"pdf", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func sampleTable() *Table {
	return &Table{
		Headers: []string{"company_name", "holder_name", "email"},
		Rows: [][]string{
			{"Tractorul Brașov SA", "Arhivele Naționale Brașov", "arhiva@example.ro"},
			{`Moara "Veche" SRL`, "Primăria Cluj", ""},
		},
	}
}

func TestDelimitedDecodeBOM(t *testing.T) {
	input := "\xEF\xBB\xBFcompany_name,holder_name\nA SRL,B\n"
	c, err := For(FormatCSV, Options{})
	if err != nil {
		t.Fatal(err)
	}
	table, err := c.Decode(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if table.Headers[0] != "company_name" {
		t.Errorf("BOM not stripped: header %q", table.Headers[0])
	}
	if len(table.Rows) != 1 {
		t.Errorf("expected 1 row, got %d", len(table.Rows))
	}
}

func TestDelimitedDecodeEmptyInput(t *testing.T) {
	c, _ := For(FormatCSV, Options{})
	table, err := c.Decode(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Headers) != 0 || len(table.Rows) != 0 {
		t.Errorf("expected empty table, got %+v", table)
	}
}

func TestDelimitedEncodeQuotesEverything(t *testing.T) {
	c, _ := For(FormatCSV, Options{})
	var buf bytes.Buffer
	if err := c.Encode(&buf, sampleTable(), nil); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, `"company_name","holder_name","email"`) {
		t.Errorf("header row not fully quoted: %q", out[:60])
	}
	if !strings.Contains(out, `"Moara ""Veche"" SRL"`) {
		t.Errorf("embedded quotes not escaped: %q", out)
	}
}

func TestDelimitedEncodeBOM(t *testing.T) {
	c, _ := For(FormatCSV, Options{BOM: true})
	var buf bytes.Buffer
	if err := c.Encode(&buf, sampleTable(), nil); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), utf8BOM) {
		t.Error("expected BOM prefix")
	}
}

func TestDelimitedRoundTrip(t *testing.T) {
	c, _ := For(FormatCSV, Options{BOM: true})
	in := sampleTable()

	var buf bytes.Buffer
	if err := c.Encode(&buf, in, nil); err != nil {
		t.Fatal(err)
	}
	out, err := c.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	assertTablesEqual(t, in, out)
}

func TestDelimitedMetadataAppendix(t *testing.T) {
	c, _ := For(FormatCSV, Options{})
	var buf bytes.Buffer
	meta := &Metadata{
		ExportedAt:  time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC),
		RecordCount: 2,
		Fields:      []string{"company_name", "holder_name"},
	}
	if err := c.Encode(&buf, sampleTable(), meta); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `"Export Info"`) {
		t.Error("missing export info section")
	}
	if !strings.Contains(out, `"Record count","2"`) {
		t.Errorf("missing record count row: %q", out)
	}
}

func TestJSONDecodeBareArray(t *testing.T) {
	input := `[
		{"company_name": "A SRL", "holder_name": "B", "active": true},
		{"company_name": "C SA", "holder_name": "D", "year": 1952}
	]`
	c, _ := For(FormatJSON, Options{})
	table, err := c.Decode(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"company_name", "holder_name", "active", "year"}
	if len(table.Headers) != len(want) {
		t.Fatalf("headers = %v, want %v", table.Headers, want)
	}
	for i, h := range want {
		if table.Headers[i] != h {
			t.Errorf("header %d = %q, want %q (first-seen order)", i, table.Headers[i], h)
		}
	}
	// Scalars flatten to display strings; narrow rows are padded.
	if table.Rows[0][2] != "true" || table.Rows[0][3] != "" {
		t.Errorf("row 0 = %v", table.Rows[0])
	}
	if table.Rows[1][3] != "1952" {
		t.Errorf("row 1 = %v", table.Rows[1])
	}
}

func TestJSONDecodeRejectsNonArrayRoot(t *testing.T) {
	c, _ := For(FormatJSON, Options{})
	for _, input := range []string{`"scalar"`, `42`, `{"no": "data here"}`} {
		if _, err := c.Decode(strings.NewReader(input)); err == nil {
			t.Errorf("expected error for root %s", input)
		}
	}
}

func TestJSONDecodeRejectsNestedValues(t *testing.T) {
	c, _ := For(FormatJSON, Options{})
	_, err := c.Decode(strings.NewReader(`[{"company_name": {"nested": true}}]`))
	if err == nil {
		t.Fatal("expected error for nested object value")
	}
	if !strings.Contains(err.Error(), "company_name") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestJSONDecodeEmptyInput(t *testing.T) {
	c, _ := For(FormatJSON, Options{})
	table, err := c.Decode(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Rows) != 0 {
		t.Errorf("expected zero rows, got %d", len(table.Rows))
	}
}

func TestJSONRoundTripThroughEnvelope(t *testing.T) {
	c, _ := For(FormatJSON, Options{})
	in := sampleTable()
	meta := &Metadata{
		ExportedAt:  time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC),
		RecordCount: len(in.Rows),
		Fields:      in.Headers,
	}

	var buf bytes.Buffer
	if err := c.Encode(&buf, in, meta); err != nil {
		t.Fatal(err)
	}
	out, err := c.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Rows) != len(in.Rows) {
		t.Fatalf("expected %d rows back, got %d", len(in.Rows), len(out.Rows))
	}
	// Key order inside encoded objects is not guaranteed, so compare by
	// header name rather than position.
	idx := make(map[string]int, len(out.Headers))
	for i, h := range out.Headers {
		idx[h] = i
	}
	for r, inRow := range in.Rows {
		for col, h := range in.Headers {
			j, ok := idx[h]
			if !ok {
				t.Fatalf("header %q lost in round trip", h)
			}
			if out.Rows[r][j] != inRow[col] {
				t.Errorf("row %d field %q = %q, want %q", r, h, out.Rows[r][j], inRow[col])
			}
		}
	}
}

func TestSpreadsheetRoundTrip(t *testing.T) {
	c, _ := For(FormatXLSX, Options{})
	in := sampleTable()
	in.Widths = []int{30, 30, 25}

	var buf bytes.Buffer
	if err := c.Encode(&buf, in, nil); err != nil {
		t.Fatal(err)
	}
	out, err := c.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Headers) != len(in.Headers) {
		t.Fatalf("headers = %v", out.Headers)
	}
	if out.Rows[0][0] != in.Rows[0][0] {
		t.Errorf("cell A2 = %q, want %q", out.Rows[0][0], in.Rows[0][0])
	}
}

func TestSpreadsheetHeaderOnly(t *testing.T) {
	c, _ := For(FormatXLSX, Options{})

	var buf bytes.Buffer
	if err := c.Encode(&buf, &Table{Headers: []string{"company_name"}}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Decode(&buf); err == nil {
		t.Fatal("expected error for header-only workbook")
	}
}

func TestSpreadsheetMetadataSheets(t *testing.T) {
	c, _ := For(FormatXLSX, Options{})
	meta := &Metadata{
		ExportedAt:  time.Now(),
		RecordCount: 2,
		Fields:      []string{"company_name"},
		Statistics: &Table{
			Headers: []string{"Field", "Completeness"},
			Rows:    [][]string{{"email", "50%"}},
		},
	}

	var buf bytes.Buffer
	if err := c.Encode(&buf, sampleTable(), meta); err != nil {
		t.Fatal(err)
	}
	// Extra sheets must not disturb decoding, which reads only the first.
	out, err := c.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Rows) != 2 {
		t.Errorf("expected 2 data rows, got %d", len(out.Rows))
	}
}

func TestIsEmptyRow(t *testing.T) {
	if !IsEmptyRow([]string{"", "  ", "\t"}) {
		t.Error("whitespace-only row should be empty")
	}
	if IsEmptyRow([]string{"", "x"}) {
		t.Error("row with content is not empty")
	}
	if !IsEmptyRow(nil) {
		t.Error("nil row is empty")
	}
}

func assertTablesEqual(t *testing.T, want, got *Table) {
	t.Helper()
	if len(got.Headers) != len(want.Headers) {
		t.Fatalf("headers = %v, want %v", got.Headers, want.Headers)
	}
	for i := range want.Headers {
		if got.Headers[i] != want.Headers[i] {
			t.Errorf("header %d = %q, want %q", i, got.Headers[i], want.Headers[i])
		}
	}
	if len(got.Rows) != len(want.Rows) {
		t.Fatalf("%d rows, want %d", len(got.Rows), len(want.Rows))
	}
	for i := range want.Rows {
		for j := range want.Rows[i] {
			if got.Rows[i][j] != want.Rows[i][j] {
				t.Errorf("cell [%d][%d] = %q, want %q", i, j, got.Rows[i][j], want.Rows[i][j])
			}
		}
	}
}
