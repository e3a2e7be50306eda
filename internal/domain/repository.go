package domain

import "context"

// BrandSizeMapping is a memoized resolution of a brand's literal size string
// to a canonical size. Unique per (brand, category, raw label): once a quirk
// is resolved, every later occurrence of the same string resolves identically
// without re-parsing.
type BrandSizeMapping struct {
	Brand           string       `json:"brand"`
	Category        SizeCategory `json:"category"`
	RawLabel        string       `json:"rawLabel"`
	CanonicalSizeID uint         `json:"canonicalSizeId"`
	FitHint         string       `json:"fitHint,omitempty"`
	Notes           string       `json:"notes,omitempty"`
}

// SizeRegistry is the single source of truth for the canonical size space.
// Resolve is idempotent get-or-create: the same (category, dims) always
// returns the same canonical size, backed by a uniqueness constraint.
type SizeRegistry interface {
	Resolve(ctx context.Context, parsed ParsedSize) (*CanonicalSize, error)
	List(ctx context.Context, category SizeCategory) ([]CanonicalSize, error)
}

// MappingStore persists brand size mappings. Lookup returns
// ErrMappingNotFound on a miss.
type MappingStore interface {
	Lookup(ctx context.Context, brand string, category SizeCategory, rawLabel string) (*CanonicalSize, error)
	Save(ctx context.Context, m *BrandSizeMapping) error
}

// CatalogStore persists canonical products, variants and the consolidation
// log. Every mutating call takes the log entry to write first: the entry and
// the mutation commit atomically, entry before mutation, so a crash never
// leaves an unexplained change.
type CatalogStore interface {
	FindActive(ctx context.Context, brand string, identity ProductIdentity) (*CanonicalProduct, error)
	ListActive(ctx context.Context, brand string) ([]CanonicalProduct, error)
	GetProduct(ctx context.Context, id uint) (*CanonicalProduct, error)
	// ResolveActive follows the merge chain from id to the currently
	// canonical product.
	ResolveActive(ctx context.Context, id uint) (*CanonicalProduct, error)
	FindByURL(ctx context.Context, url string) (*CanonicalProduct, error)

	CreateProduct(ctx context.Context, entry *ConsolidationLogEntry, p *CanonicalProduct) error
	AddVariant(ctx context.Context, entry *ConsolidationLogEntry, productID uint, v *ProductVariant) error
	UpdateVariant(ctx context.Context, entry *ConsolidationLogEntry, v *ProductVariant) error
	MergeProducts(ctx context.Context, entry *ConsolidationLogEntry, sourceID, targetID uint) error
	UpsertVariantSize(ctx context.Context, variantID uint, vs *VariantSize) error

	ListLog(ctx context.Context, brand string, limit int) ([]ConsolidationLogEntry, error)
}

// ReviewStore persists items routed to human review: unmappable sizes,
// extraction failures, and duplicate-title candidates.
type ReviewStore interface {
	Add(ctx context.Context, item *ReviewItem) error
	List(ctx context.Context, brand string, itemType ReviewItemType, limit int) ([]ReviewItem, error)
}
