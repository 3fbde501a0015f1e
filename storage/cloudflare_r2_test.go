package storage

import "testing"

func TestPublicURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		key  string
		want string
	}{
		{"host only", "https://cdn.example.com", "matches/m1/sheet.json", "https://cdn.example.com/matches/m1/sheet.json"},
		{"base with path", "https://cdn.example.com/archive", "matches/m1/sheet.json", "https://cdn.example.com/archive/matches/m1/sheet.json"},
		{"leading slash in key", "https://cdn.example.com/archive/", "/matches/m1/sheet.json", "https://cdn.example.com/archive/matches/m1/sheet.json"},
		{"empty key", "https://cdn.example.com", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, err := parseBaseURL(tt.base)
			if err != nil {
				t.Fatalf("parseBaseURL(%q) error: %v", tt.base, err)
			}
			if got := publicURL(base, tt.key); got != tt.want {
				t.Errorf("publicURL(%q, %q) = %q, want %q", tt.base, tt.key, got, tt.want)
			}
		})
	}
}

func TestParseBaseURLRejectsRelative(t *testing.T) {
	if _, err := parseBaseURL("cdn.example.com/archive"); err == nil {
		t.Error("expected error for URL without scheme")
	}
}
