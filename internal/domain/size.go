package domain

// SizeCategory is a taxonomy bucket for sizing. Categories are seeded once and
// append-only: redefining a category's dimensions would invalidate every
// brand mapping derived under it.
type SizeCategory string

const (
	CategoryTops        SizeCategory = "tops"
	CategoryPants       SizeCategory = "pants"
	CategoryDressShirts SizeCategory = "dress_shirts"
	CategoryShoes       SizeCategory = "shoes"
)

// categoryDimensions lists the ordered dimension names each category expects.
// An empty list means simple letter sizing.
var categoryDimensions = map[SizeCategory][]string{
	CategoryTops:        {},
	CategoryPants:       {DimWaist, DimLength},
	CategoryDressShirts: {DimNeck, DimSleeve},
	CategoryShoes:       {DimSize},
}

// Dimension names used across categories.
const (
	DimWaist  = "waist"
	DimLength = "length"
	DimNeck   = "neck"
	DimSleeve = "sleeve"
	DimSize   = "size"
)

// Dimensions returns the ordered dimension names for the category.
func (c SizeCategory) Dimensions() []string {
	return categoryDimensions[c]
}

// Valid reports whether the category is a known taxonomy bucket.
func (c SizeCategory) Valid() bool {
	_, ok := categoryDimensions[c]
	return ok
}

// AllCategories returns the seeded categories in a stable order.
func AllCategories() []SizeCategory {
	return []SizeCategory{CategoryTops, CategoryPants, CategoryDressShirts, CategoryShoes}
}

// DimensionMap holds measured values keyed by dimension name, e.g.
// {waist: 32, length: 32}. Empty for letter-sized categories.
type DimensionMap map[string]float64

// ParseReason classifies why a raw size label failed to parse.
type ParseReason string

const (
	ReasonUnrecognizedFormat ParseReason = "unrecognized_format"
	ReasonAmbiguousUnit      ParseReason = "ambiguous_unit"
	ReasonOutOfRange         ParseReason = "out_of_range"
)

// ParsedSize is the structured result of parsing a raw brand size label.
// Label is the single normalized string form ("32x32", "M", "15/33", "9.5").
// FitHint carries a stripped fit modifier (e.g. "Slim"): brand-meaningful
// data, not noise, so it survives parsing as a side channel.
type ParsedSize struct {
	Category SizeCategory `json:"category"`
	Label    string       `json:"label"`
	Dims     DimensionMap `json:"dims,omitempty"`
	FitHint  string       `json:"fitHint,omitempty"`
}

// CanonicalSize is the normalized representation of a size within a category,
// shared across all brands. Within a category no two canonical sizes carry the
// same dimension map.
type CanonicalSize struct {
	ID       uint         `json:"id"`
	Category SizeCategory `json:"category"`
	Label    string       `json:"label"`
	SortKey  int64        `json:"sortKey"`
	Dims     DimensionMap `json:"dims,omitempty"`
}
