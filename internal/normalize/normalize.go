package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// QueryKind distinguishes barcode input from free-text input.
type QueryKind int

const (
	QueryNone QueryKind = iota
	QueryCode
	QueryTitle
)

func (k QueryKind) String() string {
	switch k {
	case QueryCode:
		return "code"
	case QueryTitle:
		return "title"
	default:
		return "none"
	}
}

// Query is a normalized scan or typed input.
type Query struct {
	Kind  QueryKind
	Value string
}

// Empty reports whether the input produced no query.
func (q Query) Empty() bool { return q.Kind == QueryNone }

const (
	minCodeDigits    = 8
	maxBarcodeDigits = 14
	maxTitleVariants = 4
	minVariantLength = 2
)

// NormalizeScanOrInput classifies raw input. A string whose digit projection
// has at least eight digits is a barcode; anything else non-empty is a title.
func NormalizeScanOrInput(text string) Query {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Query{}
	}
	digits := digitsOnly(trimmed)
	if len(digits) >= minCodeDigits {
		return Query{Kind: QueryCode, Value: digits}
	}
	return Query{Kind: QueryTitle, Value: trimmed}
}

// IsBarcode reports whether a code is within the UPC/EAN length range the
// barcode sources understand.
func IsBarcode(code string) bool {
	return len(code) >= minCodeDigits && len(code) <= maxBarcodeDigits && digitsOnly(code) == code
}

// BuildUPCCandidates returns the code followed by its UPC-A/EAN-13 twin:
// a 13-digit code with a leading zero also yields the 12-digit form, and a
// 12-digit code also yields the zero-prefixed 13-digit form.
func BuildUPCCandidates(code string) []string {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	out := []string{code}
	switch {
	case len(code) == 13 && strings.HasPrefix(code, "0"):
		out = append(out, code[1:])
	case len(code) == 12:
		out = append(out, "0"+code)
	}
	return out
}

func digitsOnly(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var (
	bracketedSegment = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\{[^}]*\}`)
	titleSeparator   = regexp.MustCompile(`\s*(?::|\||\s-\s|\s–\s|\s—\s)\s*`)
	bracketedYear    = regexp.MustCompile(`^(.+?)\s*[\(\[]((?:18|19|20)\d{2})[\)\]]$`)
	bareYear         = regexp.MustCompile(`^(.+?)[\s,]+((?:19|20)\d{2})$`)
)

// foldDiacritics strips combining marks so "Amélie" and "Amelie" compare equal.
func foldDiacritics(text string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, text)
	if err != nil {
		return text
	}
	return folded
}

// collapseNonAlphanumeric replaces every run of non letter/digit runes with a
// single space and trims the result.
func collapseNonAlphanumeric(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// NormalizeTitle builds the comparison key for a title: lower case, diacritics
// folded, bracketed segments removed, punctuation runs collapsed to single
// spaces. The function is idempotent.
func NormalizeTitle(text string) string {
	lowered := strings.ToLower(foldDiacritics(text))
	stripped := bracketedSegment.ReplaceAllString(lowered, " ")
	return collapseNonAlphanumeric(stripped)
}

// TitleWords returns the distinct words of the normalized title.
func TitleWords(text string) []string {
	fields := strings.Fields(NormalizeTitle(text))
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// CleanProductTitle removes bracketed segments and packaging noise from a
// retail product title while keeping the original casing. When nothing useful
// is left the trimmed original is returned.
func CleanProductTitle(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	cleaned := bracketedSegment.ReplaceAllString(trimmed, " ")
	cleaned = StripPackagingNoise(cleaned)
	cleaned = collapseNonAlphanumeric(cleaned)
	if cleaned == "" {
		return trimmed
	}
	return cleaned
}

// BuildTitleVariants returns up to four distinct search strings for a product
// title: the cleaned title, the text before the first separator, the text
// before the first bracket, and the cleaned title with noise words dropped
// token by token.
func BuildTitleVariants(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	cleaned := CleanProductTitle(trimmed)
	candidates := []string{
		cleaned,
		CleanProductTitle(beforeSeparator(trimmed)),
		CleanProductTitle(beforeBracket(trimmed)),
		dropNoiseTokens(cleaned),
	}

	out := make([]string, 0, maxTitleVariants)
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if len([]rune(candidate)) < minVariantLength {
			continue
		}
		key := strings.ToLower(candidate)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
		if len(out) == maxTitleVariants {
			break
		}
	}
	return out
}

func beforeSeparator(text string) string {
	loc := titleSeparator.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return strings.TrimSpace(text[:loc[0]])
}

func beforeBracket(text string) string {
	idx := strings.IndexAny(text, "[({")
	if idx < 0 {
		return text
	}
	return strings.TrimSpace(text[:idx])
}

func dropNoiseTokens(text string) string {
	fields := strings.Fields(text)
	kept := make([]string, 0, len(fields))
	for _, field := range fields {
		if isNoiseToken(field) {
			continue
		}
		kept = append(kept, field)
	}
	return strings.Join(kept, " ")
}

// SafeYear extracts a four-digit year from the start of a date-like string.
func SafeYear(dateLike string) (int, bool) {
	trimmed := strings.TrimSpace(dateLike)
	if len(trimmed) < 4 {
		return 0, false
	}
	prefix := trimmed[:4]
	if digitsOnly(prefix) != prefix {
		return 0, false
	}
	year, err := strconv.Atoi(prefix)
	if err != nil || year < 1800 || year > 2999 {
		return 0, false
	}
	return year, true
}

// SplitYearHint separates a trailing release year from a typed title, so
// "Inception (2010)" and "Inception 2010" both yield ("Inception", 2010).
// Titles that are only a year ("1917") are left untouched, and a bare
// trailing number later than next year ("Blade Runner 2049") stays part of
// the title.
func SplitYearHint(text string) (string, int, bool) {
	trimmed := strings.TrimSpace(text)
	if match := bracketedYear.FindStringSubmatch(trimmed); match != nil {
		if year, err := strconv.Atoi(match[2]); err == nil {
			return strings.TrimSpace(match[1]), year, true
		}
	}
	if match := bareYear.FindStringSubmatch(trimmed); match != nil {
		year, err := strconv.Atoi(match[2])
		if err == nil && year <= time.Now().Year()+1 {
			return strings.TrimSpace(match[1]), year, true
		}
	}
	return trimmed, 0, false
}
