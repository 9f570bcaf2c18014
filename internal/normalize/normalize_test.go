package normalize

import (
	"reflect"
	"testing"
)

func TestNormalizeScanOrInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  QueryKind
		value string
	}{
		{"empty", "   ", QueryNone, ""},
		{"plain upc", " 883929800815 ", QueryCode, "883929800815"},
		{"spaced ean", "0 88392 98008 15", QueryCode, "0883929800815"},
		{"short digits stay title", "1917", QueryTitle, "1917"},
		{"title", "  Inception ", QueryTitle, "Inception"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeScanOrInput(tc.input)
			if got.Kind != tc.kind || got.Value != tc.value {
				t.Fatalf("NormalizeScanOrInput(%q) = %+v, want kind=%v value=%q", tc.input, got, tc.kind, tc.value)
			}
		})
	}
}

func TestBuildUPCCandidates(t *testing.T) {
	if got := BuildUPCCandidates("883929800815"); !reflect.DeepEqual(got, []string{"883929800815", "0883929800815"}) {
		t.Fatalf("12-digit candidates = %v", got)
	}
	if got := BuildUPCCandidates("0883929800815"); !reflect.DeepEqual(got, []string{"0883929800815", "883929800815"}) {
		t.Fatalf("13-digit candidates = %v", got)
	}
	if got := BuildUPCCandidates("5051892005585"); !reflect.DeepEqual(got, []string{"5051892005585"}) {
		t.Fatalf("non-zero EAN candidates = %v", got)
	}
	for _, code := range []string{"12345678", "883929800815", "0883929800815", "12345678901234"} {
		candidates := BuildUPCCandidates(code)
		if len(candidates) == 0 || candidates[0] != code {
			t.Fatalf("candidates for %s must start with the input, got %v", code, candidates)
		}
	}
}

func TestIsBarcode(t *testing.T) {
	if !IsBarcode("12345678") || !IsBarcode("12345678901234") {
		t.Fatal("expected 8 and 14 digit codes to be barcodes")
	}
	if IsBarcode("1234567") || IsBarcode("123456789012345") || IsBarcode("12a45678") {
		t.Fatal("unexpected barcode acceptance")
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := map[string]string{
		"Inception":                          "inception",
		"  Amélie (2001) [Blu-ray] ":         "amelie",
		"Star Wars: Episode IV – A New Hope": "star wars episode iv a new hope",
		"WALL·E":                             "wall e",
		"":                                   "",
	}
	for input, want := range tests {
		got := NormalizeTitle(input)
		if got != want {
			t.Fatalf("NormalizeTitle(%q) = %q, want %q", input, got, want)
		}
		if again := NormalizeTitle(got); again != got {
			t.Fatalf("NormalizeTitle not idempotent for %q: %q then %q", input, got, again)
		}
	}
}

func TestCleanProductTitle(t *testing.T) {
	tests := map[string]string{
		"Inception (Steelbook) [Blu-ray + Digital]":   "Inception",
		"Inception 4K Ultra HD + Blu-ray Steelbook":   "Inception",
		"The Criterion Collection: Seven Samurai DVD": "Seven Samurai",
		"Blu-ray":                                     "Blu-ray",
		"Heat Limited Edition":                        "Heat",
	}
	for input, want := range tests {
		if got := CleanProductTitle(input); got != want {
			t.Fatalf("CleanProductTitle(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestBuildTitleVariants(t *testing.T) {
	got := BuildTitleVariants("Star Wars: The Empire Strikes Back [Blu-ray]")
	want := []string{"Star Wars The Empire Strikes Back", "Star Wars"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("BuildTitleVariants = %v, want %v", got, want)
	}

	variants := BuildTitleVariants("Alien - Director's Cut | 4K UHD (1979)")
	if len(variants) == 0 || len(variants) > 4 {
		t.Fatalf("unexpected variant count %v", variants)
	}
	seen := map[string]bool{}
	for _, v := range variants {
		if len(v) < 2 {
			t.Fatalf("variant %q too short", v)
		}
		if seen[v] {
			t.Fatalf("duplicate variant %q in %v", v, variants)
		}
		seen[v] = true
	}
	if !seen["Alien"] {
		t.Fatalf("expected bare title variant in %v", variants)
	}

	if got := BuildTitleVariants("  "); got != nil {
		t.Fatalf("expected nil variants for blank input, got %v", got)
	}
}

func TestSafeYear(t *testing.T) {
	if year, ok := SafeYear("2010-07-15"); !ok || year != 2010 {
		t.Fatalf("SafeYear = %d %v", year, ok)
	}
	for _, input := range []string{"", "20", "n/a", "July 2010"} {
		if _, ok := SafeYear(input); ok {
			t.Fatalf("SafeYear(%q) should be absent", input)
		}
	}
}

func TestSplitYearHint(t *testing.T) {
	tests := []struct {
		input string
		title string
		year  int
		ok    bool
	}{
		{"Inception (2010)", "Inception", 2010, true},
		{"Inception 2010", "Inception", 2010, true},
		{"Inception", "Inception", 0, false},
		{"1917", "1917", 0, false},
		{"Blade Runner 2049", "Blade Runner 2049", 0, false},
	}
	for _, tc := range tests {
		title, year, ok := SplitYearHint(tc.input)
		if title != tc.title || year != tc.year || ok != tc.ok {
			t.Fatalf("SplitYearHint(%q) = %q %d %v", tc.input, title, year, ok)
		}
	}
}
