package fond

import "testing"

func TestParseActive(t *testing.T) {
	tests := []struct {
		input string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"Da", false, true},
		{"DA", false, true},
		{"activ", false, true},
		{"y", false, true},
		{"1", false, true},
		{"nu", true, false},
		{"Inactiv", true, false},
		{"false", true, false},
		{"0", true, false},
		{"n", true, false},
		{"", true, true},
		{"", false, false},
		{"  ", true, true},
		{"maybe", true, true},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		if got := ParseActive(tt.input, tt.def); got != tt.want {
			t.Errorf("ParseActive(%q, %v) = %v, want %v", tt.input, tt.def, got, tt.want)
		}
	}
}

func TestOptString(t *testing.T) {
	if OptString("  ") != nil {
		t.Error("expected nil for blank input")
	}
	if OptString("") != nil {
		t.Error("expected nil for empty input")
	}
	got := OptString("  Str. Mihai Viteazu 12  ")
	if got == nil || *got != "Str. Mihai Viteazu 12" {
		t.Errorf("expected trimmed value, got %v", got)
	}
}

func TestImportRecordField(t *testing.T) {
	email := "arhiva@example.ro"
	r := ImportRecord{
		CompanyName: "Tractorul Brașov SA",
		HolderName:  "Arhivele Naționale Brașov",
		Email:       &email,
		Active:      true,
	}

	tests := []struct {
		key  string
		want string
	}{
		{"company_name", "Tractorul Brașov SA"},
		{"holder_name", "Arhivele Naționale Brașov"},
		{"email", "arhiva@example.ro"},
		{"address", ""},
		{"active", "true"},
		{"bogus", ""},
	}
	for _, tt := range tests {
		if got := r.Field(tt.key); got != tt.want {
			t.Errorf("Field(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
