package normalize

import (
	"reflect"
	"testing"
)

func TestDetectEditions(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Inception (Steelbook) [Blu-ray]", []string{"Steelbook"}},
		{"Blade Runner: The Final Cut 4K Ultra HD", []string{"4K Ultra HD", "Final Cut"}},
		{"Aliens DIRECTORS_CUT", []string{"Director's Cut"}},
		{"Heat", nil},
	}
	for _, tc := range tests {
		if got := DetectEditions(tc.input); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("DetectEditions(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestEditionNote(t *testing.T) {
	if got := EditionNote("Jaws Criterion Collection Steelbook"); got != "Steelbook, Criterion Collection" {
		t.Fatalf("EditionNote = %q", got)
	}
	if got := EditionNote("Jaws"); got != "" {
		t.Fatalf("expected empty note, got %q", got)
	}
}

func TestStripPackagingNoiseKeepsTitleWords(t *testing.T) {
	got := StripPackagingNoise("Ray Blu-ray DVD")
	if NormalizeTitle(got) != "ray" {
		t.Fatalf("StripPackagingNoise = %q", got)
	}
}
