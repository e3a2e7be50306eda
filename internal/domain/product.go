package domain

import "time"

// RawVariant is one color/fit variation as scraped, before any normalization.
type RawVariant struct {
	Color      string   `json:"color"`
	Fit        string   `json:"fit,omitempty"`
	SizeLabels []string `json:"sizeLabels"`
	ImageURLs  []string `json:"imageUrls,omitempty"`
}

// RawProductRecord is one scrape result for a single product page.
// Consumed by the identity resolver and consolidation engine; never persisted
// as-is.
type RawProductRecord struct {
	Brand    string       `json:"brand"`
	Title    string       `json:"title"`
	Code     string       `json:"code,omitempty"`
	Handle   string       `json:"handle,omitempty"`
	URL      string       `json:"url,omitempty"`
	Category SizeCategory `json:"category"`
	Variants []RawVariant `json:"variants"`
}

// ProductIdentity is the brand-native stable code shared by all color/fit
// variants of one logical product. Records with equal identities under one
// brand are the same product; records with different identities never merge
// automatically, no matter how similar their titles are.
type ProductIdentity string

// VariantSize is one selectable size on a variant, carrying both the literal
// label it was scraped as and the canonical size it resolved to.
type VariantSize struct {
	ID              uint   `json:"id"`
	RawLabel        string `json:"rawLabel"`
	CanonicalSizeID uint   `json:"canonicalSizeId"`
	CanonicalLabel  string `json:"canonicalLabel"`
	SortKey         int64  `json:"sortKey"`
}

// ProductVariant is one color/fit under a canonical product.
type ProductVariant struct {
	ID        uint          `json:"id"`
	Color     string        `json:"color"`
	Fit       string        `json:"fit,omitempty"`
	ImageURLs []string      `json:"imageUrls,omitempty"`
	Sizes     []VariantSize `json:"sizes,omitempty"`
}

// CanonicalProduct is one logical product owning its variants. A product is
// never physically deleted: when a later pass discovers two products share an
// identity, the loser is marked non-canonical and pointed at the survivor.
type CanonicalProduct struct {
	ID           uint             `json:"id"`
	Brand        string           `json:"brand"`
	Identity     ProductIdentity  `json:"identity"`
	Title        string           `json:"title"`
	Category     SizeCategory     `json:"category"`
	URL          string           `json:"url,omitempty"`
	IsCanonical  bool             `json:"isCanonical"`
	MergedIntoID *uint            `json:"mergedIntoId,omitempty"`
	Variants     []ProductVariant `json:"variants,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// ConsolidationAction names the kind of catalog mutation a log entry records.
type ConsolidationAction string

const (
	ActionProductCreated   ConsolidationAction = "product_created"
	ActionVariantAdded     ConsolidationAction = "variant_added"
	ActionVariantUpdated   ConsolidationAction = "variant_updated"
	ActionRetroactiveMerge ConsolidationAction = "retroactive_merge"
)

// ConsolidationLogEntry is an append-only audit record. Exactly one entry is
// written before each variant-moving mutation commits; the metadata holds
// enough to reverse the operation.
type ConsolidationLogEntry struct {
	ID              uint                   `json:"id"`
	BatchID         string                 `json:"batchId,omitempty"`
	Brand           string                 `json:"brand"`
	Action          ConsolidationAction    `json:"action"`
	SourceProductID *uint                  `json:"sourceProductId,omitempty"`
	TargetProductID uint                   `json:"targetProductId"`
	Reason          string                 `json:"reason,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

// ConsolidatedVariant reports where one raw variant landed after
// consolidation, so the orchestrator can attach resolved sizes to it.
type ConsolidatedVariant struct {
	VariantID     uint
	Color         string
	Fit           string
	RawSizeLabels []string
}

// ConsolidationResult reports whether an incoming record was merged into an
// existing canonical product or became a new one. ExtractionFailure is set
// when the record degraded to a synthetic singleton identity.
type ConsolidationResult struct {
	ProductID         uint
	Identity          ProductIdentity
	Created           bool
	VariantsAdded     int
	VariantsUpdated   int
	Variants          []ConsolidatedVariant
	ExtractionFailure *ExtractionFailure
}
