package language

import (
	"reflect"
	"testing"
)

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"eng", "en"},
		{"fra", "fr"},
		{"fre", "fr"},
		{"ger", "de"},
		{"jpn", "ja"},
		{"xyz", ""},
		{"", ""},
		{" ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToISO2(tt.input); got != tt.expected {
				t.Errorf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"en":  "English",
		"fr":  "French",
		"ger": "German",
		"ja":  "Japanese",
		"":    "",
	}
	for code, want := range tests {
		if got := DisplayName(code); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestTrackNames(t *testing.T) {
	got := TrackNames(
		[]string{"en", "fr", "eng", "ja", "xyz"},
		[]string{"English", "", "English", "Japanese"},
	)
	want := []string{"English", "French", "Japanese"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TrackNames = %v, want %v", got, want)
	}
	if TrackNames(nil, nil) != nil {
		t.Fatal("expected nil for no languages")
	}
}
