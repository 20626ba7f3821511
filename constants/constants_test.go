package constants

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ExtractionMode
		wantErr bool
	}{
		{"", ModeStandard, false},
		{"standard", ModeStandard, false},
		{"  Rich ", ModeRich, false},
		{"RICH", ModeRich, false},
		{"fast", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseMode(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsAllowedExt(t *testing.T) {
	for ext, want := range map[string]bool{
		".pdf": true,
		"PDF":  true,
		".png": false,
		"":     false,
	} {
		if got := IsAllowedExt(ext); got != want {
			t.Errorf("IsAllowedExt(%q) = %v, want %v", ext, got, want)
		}
	}
}
