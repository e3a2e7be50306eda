package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tryonlog/catalog/internal/domain"
	"github.com/tryonlog/catalog/internal/logger"
)

// Per-category label shapes. All matching is case-insensitive and tolerant of
// surrounding whitespace; the parser normalizes, it never guesses.
var (
	// "30x32", "30 x 32", "30/32", "30W 32L", "31.5x32"
	pantsPattern = regexp.MustCompile(`(?i)^\s*(\d{1,2}(?:\.5)?)\s*w?\s*(?:[x/]\s*)?(\d{1,2}(?:\.5)?)\s*l?\s*$`)

	// "15/33", "15.5-34", "16x32"
	dressShirtPattern = regexp.MustCompile(`(?i)^\s*(\d{2}(?:\.5)?)\s*[/x-]\s*(\d{2})\s*$`)

	// "9", "9.5", "US 10", "10.5 D", "11 EE"
	shoePattern = regexp.MustCompile(`(?i)^\s*(?:us\s+)?(\d{1,2}(?:\.5)?)\s*([a-z]{1,2})?\s*$`)

	// Labels carrying a non-US unit marker are ambiguous, not convertible:
	// the numeric shapes overlap (a EU 42 shoe would pass the US range check).
	metricMarkerPattern = regexp.MustCompile(`(?i)(?:^|[\s(])(cm|eu|uk|jp)(?:[\s)]|$)`)

	// Trailing parentheticals on letter labels: "M (Medium)", "L (fits 40-42)".
	parentheticalPattern = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
)

// Measurement sanity ranges, in inches (US shoe points for shoes). A numeric
// label outside these bounds is more likely a unit mixup than a real garment.
const (
	minWaist, maxWaist   = 24, 60
	minLength, maxLength = 26, 40
	minNeck, maxNeck     = 13, 20
	minSleeve, maxSleeve = 30, 39
	minShoe, maxShoe     = 4, 16
)

// letterSizes is the closed set of canonical letter labels, tall variants
// included.
var letterSizes = map[string]bool{
	"XS": true, "S": true, "M": true, "L": true,
	"XL": true, "XXL": true, "XXXL": true,
	"MT": true, "LT": true, "XLT": true, "XXLT": true, "XXXLT": true,
}

// letterAliases maps common numeric spellings onto canonical letters.
var letterAliases = map[string]string{
	"2XL":  "XXL",
	"3XL":  "XXXL",
	"2XLT": "XXLT",
	"3XLT": "XXXLT",
}

// fitWords maps fit modifiers that brands append to letter sizes onto their
// normalized hint form.
var fitWords = map[string]string{
	"SLIM":     "Slim",
	"REGULAR":  "Regular",
	"RELAXED":  "Relaxed",
	"CLASSIC":  "Classic",
	"ATHLETIC": "Athletic",
	"R":        "Regular",
	"S":        "Slim",
}

// SizeParser turns a brand's literal size string into a structured ParsedSize
// for its category. The category always comes from the caller; a bare "32"
// is waist for pants and a shoe point for shoes, and nothing in the string
// itself can disambiguate that.
type SizeParser struct {
	log *logger.Logger
}

// NewSizeParser creates a size parser.
func NewSizeParser(log *logger.Logger) *SizeParser {
	return &SizeParser{log: log.With("component", "SizeParser")}
}

// Parse parses a raw size label under the given category. Failures return an
// UnmappableSizeError classifying why; the caller fills in the brand.
func (p *SizeParser) Parse(raw string, category domain.SizeCategory) (domain.ParsedSize, error) {
	if !category.Valid() {
		return domain.ParsedSize{}, &domain.UnmappableSizeError{
			Category: category, RawLabel: raw, Reason: domain.ReasonUnrecognizedFormat,
		}
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.ParsedSize{}, fail(category, raw, domain.ReasonUnrecognizedFormat)
	}
	if metricMarkerPattern.MatchString(trimmed) {
		return domain.ParsedSize{}, fail(category, raw, domain.ReasonAmbiguousUnit)
	}

	switch category {
	case domain.CategoryPants:
		return p.parsePants(raw, trimmed)
	case domain.CategoryDressShirts:
		return p.parseDressShirt(raw, trimmed)
	case domain.CategoryShoes:
		return p.parseShoe(raw, trimmed)
	default:
		return p.parseLetter(raw, trimmed, category)
	}
}

func (p *SizeParser) parsePants(raw, trimmed string) (domain.ParsedSize, error) {
	m := pantsPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return domain.ParsedSize{}, fail(domain.CategoryPants, raw, domain.ReasonUnrecognizedFormat)
	}
	waist, _ := strconv.ParseFloat(m[1], 64)
	length, _ := strconv.ParseFloat(m[2], 64)
	if waist < minWaist || waist > maxWaist || length < minLength || length > maxLength {
		return domain.ParsedSize{}, fail(domain.CategoryPants, raw, domain.ReasonOutOfRange)
	}
	return domain.ParsedSize{
		Category: domain.CategoryPants,
		Label:    formatMeasure(waist) + "x" + formatMeasure(length),
		Dims:     domain.DimensionMap{domain.DimWaist: waist, domain.DimLength: length},
	}, nil
}

func (p *SizeParser) parseDressShirt(raw, trimmed string) (domain.ParsedSize, error) {
	m := dressShirtPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return domain.ParsedSize{}, fail(domain.CategoryDressShirts, raw, domain.ReasonUnrecognizedFormat)
	}
	neck, _ := strconv.ParseFloat(m[1], 64)
	sleeve, _ := strconv.ParseFloat(m[2], 64)
	if neck < minNeck || neck > maxNeck || sleeve < minSleeve || sleeve > maxSleeve {
		return domain.ParsedSize{}, fail(domain.CategoryDressShirts, raw, domain.ReasonOutOfRange)
	}
	return domain.ParsedSize{
		Category: domain.CategoryDressShirts,
		Label:    formatMeasure(neck) + "/" + formatMeasure(sleeve),
		Dims:     domain.DimensionMap{domain.DimNeck: neck, domain.DimSleeve: sleeve},
	}, nil
}

func (p *SizeParser) parseShoe(raw, trimmed string) (domain.ParsedSize, error) {
	m := shoePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return domain.ParsedSize{}, fail(domain.CategoryShoes, raw, domain.ReasonUnrecognizedFormat)
	}
	size, _ := strconv.ParseFloat(m[1], 64)
	if size < minShoe || size > maxShoe {
		return domain.ParsedSize{}, fail(domain.CategoryShoes, raw, domain.ReasonOutOfRange)
	}
	parsed := domain.ParsedSize{
		Category: domain.CategoryShoes,
		Label:    formatMeasure(size),
		Dims:     domain.DimensionMap{domain.DimSize: size},
	}
	// A width letter ("D", "EE", "W") is brand-meaningful but orthogonal to
	// the canonical size point; it survives as a fit hint.
	if m[2] != "" {
		parsed.FitHint = strings.ToUpper(m[2])
	}
	return parsed, nil
}

// parseLetter handles letter-sized categories. Fit suffixes ("M-Slim",
// "L Regular") are stripped into the hint; tall markers fold into the label
// itself because tall changes the garment's dimensions, not just its cut.
func (p *SizeParser) parseLetter(raw, trimmed string, category domain.SizeCategory) (domain.ParsedSize, error) {
	label := strings.ToUpper(parentheticalPattern.ReplaceAllString(trimmed, ""))
	label = strings.TrimSpace(label)

	if canonical, hint, ok := matchLetter(label); ok {
		return domain.ParsedSize{Category: category, Label: canonical, FitHint: hint}, nil
	}

	// "M-Slim", "L/Regular"
	if i := strings.IndexAny(label, "-/"); i > 0 {
		base, rest := strings.TrimSpace(label[:i]), strings.TrimSpace(label[i+1:])
		if canonical, hint, ok := letterWithSuffix(base, rest); ok {
			return domain.ParsedSize{Category: category, Label: canonical, FitHint: hint}, nil
		}
	}

	// "M SLIM", "L TALL"
	if i := strings.LastIndexByte(label, ' '); i > 0 {
		base, rest := strings.TrimSpace(label[:i]), strings.TrimSpace(label[i+1:])
		if canonical, hint, ok := letterWithSuffix(base, rest); ok {
			return domain.ParsedSize{Category: category, Label: canonical, FitHint: hint}, nil
		}
	}

	return domain.ParsedSize{}, fail(category, raw, domain.ReasonUnrecognizedFormat)
}

// matchLetter resolves a bare candidate against the letter set and aliases.
func matchLetter(candidate string) (label, hint string, ok bool) {
	if alias, found := letterAliases[candidate]; found {
		candidate = alias
	}
	if letterSizes[candidate] {
		return candidate, "", true
	}
	return "", "", false
}

// letterWithSuffix resolves a base letter plus a trailing modifier. "TALL"
// folds into the label; fit words become the hint.
func letterWithSuffix(base, suffix string) (label, hint string, ok bool) {
	canonical, _, found := matchLetter(base)
	if !found {
		return "", "", false
	}
	if suffix == "TALL" || suffix == "T" {
		if tall, _, tallOK := matchLetter(canonical + "T"); tallOK {
			return tall, "", true
		}
		return "", "", false
	}
	if fit, found := fitWords[suffix]; found {
		return canonical, fit, true
	}
	return "", "", false
}

func fail(category domain.SizeCategory, raw string, reason domain.ParseReason) *domain.UnmappableSizeError {
	return &domain.UnmappableSizeError{
		Category: category,
		RawLabel: raw,
		Reason:   reason,
	}
}

// formatMeasure renders a measurement without a trailing .0.
func formatMeasure(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
