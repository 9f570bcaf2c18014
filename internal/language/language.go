package language

import (
	"strings"

	textlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// bibliographic ISO 639-2/B codes that x/text does not resolve.
var bibliographic = map[string]string{
	"fre": "fr",
	"ger": "de",
	"chi": "zh",
	"dut": "nl",
	"cze": "cs",
	"gre": "el",
	"per": "fa",
	"rum": "ro",
	"slo": "sk",
}

func parse(code string) (textlang.Base, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return textlang.Base{}, false
	}
	if mapped, ok := bibliographic[code]; ok {
		code = mapped
	}
	base, err := textlang.ParseBase(code)
	if err != nil {
		return textlang.Base{}, false
	}
	return base, true
}

// ToISO2 returns the shortest code for a recognized language, or "".
func ToISO2(code string) string {
	base, ok := parse(code)
	if !ok {
		return ""
	}
	return base.String()
}

// DisplayName returns the English name of a recognized language, or "".
func DisplayName(code string) string {
	base, ok := parse(code)
	if !ok {
		return ""
	}
	return display.English.Languages().Name(base)
}

// TrackNames builds the audio track list for a record. Each entry prefers the
// provider's English name and falls back to the code's display name. Unknown
// codes and repeats are dropped.
func TrackNames(codes, names []string) []string {
	var out []string
	seen := make(map[string]bool, len(codes))
	for i, code := range codes {
		name := ""
		if i < len(names) {
			name = strings.TrimSpace(names[i])
		}
		if name == "" {
			name = DisplayName(code)
		}
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if iso := ToISO2(code); iso != "" {
			key = iso
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}
