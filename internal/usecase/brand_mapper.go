package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/tryonlog/catalog/internal/domain"
	"github.com/tryonlog/catalog/internal/infrastructure/cache"
	"github.com/tryonlog/catalog/internal/logger"
)

// mappingCache is the in-process tier in front of the persisted mappings.
type mappingCache interface {
	Get(ctx context.Context, key string) (*domain.CanonicalSize, error)
	Set(ctx context.Context, key string, size *domain.CanonicalSize) error
}

// BrandMapper resolves (brand, category, raw label) triples to canonical
// sizes. Two-tier: in-process cache, then the persisted mapping row, and only
// on a genuine first encounter does the label get parsed. Parsing is the
// expensive, ambiguous step; the mapping is cheap and exact once established.
type BrandMapper struct {
	cache    mappingCache
	mappings domain.MappingStore
	registry domain.SizeRegistry
	parser   *SizeParser
	log      *logger.Logger
}

// NewBrandMapper creates a brand size mapper.
func NewBrandMapper(
	c mappingCache,
	mappings domain.MappingStore,
	registry domain.SizeRegistry,
	parser *SizeParser,
	log *logger.Logger,
) *BrandMapper {
	return &BrandMapper{
		cache:    c,
		mappings: mappings,
		registry: registry,
		parser:   parser,
		log:      log.With("component", "BrandMapper"),
	}
}

// MapSize resolves a raw size label for a brand and category.
// Flow: check cache -> check persisted mapping -> parse -> resolve in
// registry -> persist mapping -> return. A parse failure surfaces as an
// UnmappableSizeError for the caller to report; it is never swallowed here.
func (m *BrandMapper) MapSize(ctx context.Context, brand string, category domain.SizeCategory, rawLabel string) (*domain.CanonicalSize, error) {
	if brand == "" || rawLabel == "" {
		return nil, domain.ErrInvalidRecord
	}
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}

	key := cache.Key(brand, category, rawLabel)
	if size, err := m.cache.Get(ctx, key); err == nil {
		return size, nil
	}

	// Persisted mapping beats parsing: a quirk resolved once stays resolved.
	size, err := m.mappings.Lookup(ctx, brand, category, rawLabel)
	if err == nil {
		_ = m.cache.Set(ctx, key, size)
		return size, nil
	}
	if !errors.Is(err, domain.ErrMappingNotFound) {
		return nil, fmt.Errorf("mapping lookup for %s/%s %q: %w", brand, category, rawLabel, err)
	}

	// First encounter of this literal string for the brand.
	parsed, err := m.parser.Parse(rawLabel, category)
	if err != nil {
		var unmappable *domain.UnmappableSizeError
		if errors.As(err, &unmappable) {
			unmappable.Brand = brand
		}
		return nil, err
	}

	size, err = m.registry.Resolve(ctx, parsed)
	if err != nil {
		return nil, fmt.Errorf("registry resolve for %s %q: %w", category, rawLabel, err)
	}

	mapping := &domain.BrandSizeMapping{
		Brand:           brand,
		Category:        category,
		RawLabel:        rawLabel,
		CanonicalSizeID: size.ID,
		FitHint:         parsed.FitHint,
	}
	if parsed.FitHint != "" {
		mapping.Notes = fmt.Sprintf("fit suffix %q stripped before letter match", parsed.FitHint)
	}
	if err := m.mappings.Save(ctx, mapping); err != nil {
		return nil, fmt.Errorf("persist mapping for %s/%s %q: %w", brand, category, rawLabel, err)
	}

	m.log.Debug("new brand size mapping",
		"brand", brand, "category", category, "raw", rawLabel, "canonical", size.Label)

	_ = m.cache.Set(ctx, key, size)
	return size, nil
}
