package normalize

import (
	"regexp"
	"strings"
)

// editionDef pairs a display label with the pattern that detects it in a
// retail product title. noise marks labels that describe packaging or format
// rather than the film, so they are removed before searching.
type editionDef struct {
	label   string
	pattern string
	noise   bool
}

// Order matters: longer phrases come before the words they contain.
var editionDefs = []editionDef{
	{"Steelbook", `STEEL\s*BOOK`, true},
	{"Criterion Collection", `(THE\s+)?CRITERION(\s+COLLECTION)?`, true},
	{"4K Ultra HD", `4K(\s+ULTRA\s*HD)?|ULTRA\s*HD|UHD`, true},
	{"Limited Edition", `LIMITED\s+(EDITION|ED)`, true},
	{"Collector's Edition", `COLLECTOR'?S\s+(EDITION|ED)`, true},
	{"Director's Cut", `DIRECTOR'?S\s*(CUT|EDITION|VERSION)`, false},
	{"Extended Edition", `EXTENDED\s*(CUT|EDITION|VERSION)?`, false},
	{"Unrated", `UNRATED\s*(CUT|EDITION|VERSION)?`, false},
	{"Theatrical", `THEATRICAL\s*(CUT|EDITION|VERSION|RELEASE)`, false},
	{"Remastered", `REMASTERED\s*(EDITION|VERSION)?`, false},
	{"Special Edition", `SPECIAL\s+EDITION`, true},
	{"Anniversary Edition", `\d+\s*(TH|ST|ND|RD)?\s*ANNIVERSARY\s*(EDITION)?`, true},
	{"Ultimate Edition", `ULTIMATE\s*(CUT|EDITION)`, false},
	{"Final Cut", `FINAL\s*CUT`, false},
	{"IMAX", `IMAX\s*(EDITION)?`, false},
}

// Format words that never identify a film.
var noisePhrases = []string{
	`BLU[\s-]?RAY(\s+DISC)?`,
	`DVD`,
	`DIGITAL(\s+(COPY|CODE|HD))?`,
	`HDR(10)?`,
	`DOLBY\s+VISION`,
	`WIDESCREEN`,
	`\d+[\s-]*DISC(S)?(\s+SET)?`,
	`BOX\s*SET`,
	`EDITION`,
	`COMBO(\s+PACK)?`,
	`REGION\s+FREE`,
	`SLIPCOVER`,
}

type editionPattern struct {
	pattern *regexp.Regexp
	label   string
}

var (
	editionPatterns []editionPattern
	noisePattern    *regexp.Regexp
	noiseTokens     = map[string]struct{}{
		"4k": {}, "uhd": {}, "ultra": {}, "hd": {}, "blu": {}, "ray": {}, "bluray": {},
		"dvd": {}, "steelbook": {}, "criterion": {}, "edition": {}, "collector's": {},
		"collectors": {}, "digital": {},
		"hdr": {}, "hdr10": {}, "widescreen": {}, "disc": {}, "discs": {},
		"combo": {}, "slipcover": {},
	}
)

func init() {
	alternatives := make([]string, 0, len(editionDefs)+len(noisePhrases))
	for _, def := range editionDefs {
		editionPatterns = append(editionPatterns, editionPattern{
			pattern: regexp.MustCompile(`(?i)(?:^|[^\pL\pN])(?:` + def.pattern + `)(?:$|[^\pL\pN])`),
			label:   def.label,
		})
		if def.noise {
			alternatives = append(alternatives, def.pattern)
		}
	}
	alternatives = append(alternatives, noisePhrases...)
	noisePattern = regexp.MustCompile(`(?i)(?P<pre>^|[^\pL\pN])(?:` + strings.Join(alternatives, "|") + `)(?P<post>$|[^\pL\pN])`)
}

// DetectEditions returns the edition labels found in a product title, in
// definition order and without duplicates.
func DetectEditions(text string) []string {
	normalized := strings.ReplaceAll(strings.TrimSpace(text), "_", " ")
	if normalized == "" {
		return nil
	}
	var labels []string
	seen := map[string]struct{}{}
	for _, ep := range editionPatterns {
		if _, ok := seen[ep.label]; ok {
			continue
		}
		if ep.pattern.MatchString(normalized) {
			seen[ep.label] = struct{}{}
			labels = append(labels, ep.label)
		}
	}
	return labels
}

// EditionNote is the default note offered when a disc is selected.
func EditionNote(text string) string {
	return strings.Join(DetectEditions(text), ", ")
}

// StripPackagingNoise removes format and packaging phrases as whole words,
// case-insensitively.
func StripPackagingNoise(text string) string {
	// Matches share their delimiter, so repeat until adjacent phrases are gone.
	for i := 0; i < 4; i++ {
		next := noisePattern.ReplaceAllString(text, "${pre} ${post}")
		if next == text {
			break
		}
		text = next
	}
	return text
}

func isNoiseToken(token string) bool {
	_, ok := noiseTokens[strings.ToLower(strings.Trim(token, ".,;:!?'\""))]
	return ok
}
