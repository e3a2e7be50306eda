package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/tryonlog/catalog/internal/domain"
	"github.com/tryonlog/catalog/internal/logger"
)

func newTestMapper() (*BrandMapper, *fakeCache, *fakeMappingStore, *fakeRegistry) {
	registry := newFakeRegistry()
	mappings := newFakeMappingStore(registry)
	c := newFakeCache()
	parser := NewSizeParser(logger.NewNop())
	mapper := NewBrandMapper(c, mappings, registry, parser, logger.NewNop())
	return mapper, c, mappings, registry
}

func TestMapSizeFirstEncounter(t *testing.T) {
	mapper, _, mappings, _ := newTestMapper()
	ctx := context.Background()

	size, err := mapper.MapSize(ctx, "clubmonaco", domain.CategoryPants, "30W x 32L")
	if err != nil {
		t.Fatalf("MapSize failed: %v", err)
	}
	if size.Label != "30x32" {
		t.Errorf("label = %q, want %q", size.Label, "30x32")
	}
	if mappings.saveCalls != 1 {
		t.Errorf("save calls = %d, want 1", mappings.saveCalls)
	}

	saved := mappings.saved[mappingKey("clubmonaco", domain.CategoryPants, "30W x 32L")]
	if saved == nil {
		t.Fatal("mapping was not persisted")
	}
	if saved.CanonicalSizeID != size.ID {
		t.Errorf("mapping points at size %d, want %d", saved.CanonicalSizeID, size.ID)
	}
}

func TestMapSizeIsMemoized(t *testing.T) {
	mapper, c, mappings, _ := newTestMapper()
	ctx := context.Background()

	first, err := mapper.MapSize(ctx, "uniqlo", domain.CategoryTops, "M-Slim")
	if err != nil {
		t.Fatalf("first MapSize failed: %v", err)
	}
	second, err := mapper.MapSize(ctx, "uniqlo", domain.CategoryTops, "M-Slim")
	if err != nil {
		t.Fatalf("second MapSize failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("resolved sizes differ: %d vs %d", first.ID, second.ID)
	}
	if mappings.saveCalls != 1 {
		t.Errorf("save calls = %d, want 1 (second lookup must not re-parse)", mappings.saveCalls)
	}
	if c.hits != 1 {
		t.Errorf("cache hits = %d, want 1", c.hits)
	}
}

func TestMapSizeUsesPersistedMappingBeforeParsing(t *testing.T) {
	mapper, _, mappings, registry := newTestMapper()
	ctx := context.Background()

	// Pre-establish a mapping for a label the parser would reject, the way a
	// curator resolving a review item would.
	size, err := registry.Resolve(ctx, domain.ParsedSize{Category: domain.CategoryTops, Label: "M"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if err := mappings.Save(ctx, &domain.BrandSizeMapping{
		Brand:           "uniqlo",
		Category:        domain.CategoryTops,
		RawLabel:        "MEDIUM (BODY 38)",
		CanonicalSizeID: size.ID,
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	resolved, err := mapper.MapSize(ctx, "uniqlo", domain.CategoryTops, "MEDIUM (BODY 38)")
	if err != nil {
		t.Fatalf("MapSize failed: %v", err)
	}
	if resolved.ID != size.ID {
		t.Errorf("resolved size %d, want curated %d", resolved.ID, size.ID)
	}
}

func TestMapSizeUnmappableCarriesBrand(t *testing.T) {
	mapper, _, mappings, _ := newTestMapper()
	ctx := context.Background()

	_, err := mapper.MapSize(ctx, "clubmonaco", domain.CategoryTops, "one-size")
	if err == nil {
		t.Fatal("MapSize should fail for an unparseable label")
	}

	var unmappable *domain.UnmappableSizeError
	if !errors.As(err, &unmappable) {
		t.Fatalf("error type = %T, want UnmappableSizeError", err)
	}
	if unmappable.Brand != "clubmonaco" {
		t.Errorf("brand = %q, want %q", unmappable.Brand, "clubmonaco")
	}
	if mappings.saveCalls != 0 {
		t.Errorf("save calls = %d, want 0 (failures must not be memoized)", mappings.saveCalls)
	}
}

func TestMapSizeSharedCanonicalSpace(t *testing.T) {
	mapper, _, _, _ := newTestMapper()
	ctx := context.Background()

	a, err := mapper.MapSize(ctx, "clubmonaco", domain.CategoryPants, "30W x 32L")
	if err != nil {
		t.Fatalf("MapSize failed: %v", err)
	}
	b, err := mapper.MapSize(ctx, "uniqlo", domain.CategoryPants, "30x32")
	if err != nil {
		t.Fatalf("MapSize failed: %v", err)
	}

	if a.ID != b.ID {
		t.Errorf("brands resolved to different canonical sizes: %d vs %d", a.ID, b.ID)
	}
}

func TestMapSizeRejectsBadInput(t *testing.T) {
	mapper, _, _, _ := newTestMapper()
	ctx := context.Background()

	if _, err := mapper.MapSize(ctx, "", domain.CategoryTops, "M"); !errors.Is(err, domain.ErrInvalidRecord) {
		t.Errorf("empty brand: error = %v, want ErrInvalidRecord", err)
	}
	if _, err := mapper.MapSize(ctx, "uniqlo", domain.CategoryTops, ""); !errors.Is(err, domain.ErrInvalidRecord) {
		t.Errorf("empty label: error = %v, want ErrInvalidRecord", err)
	}
	if _, err := mapper.MapSize(ctx, "uniqlo", "hats", "M"); !errors.Is(err, domain.ErrUnknownCategory) {
		t.Errorf("unknown category: error = %v, want ErrUnknownCategory", err)
	}
}
