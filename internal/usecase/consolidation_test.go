package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/tryonlog/catalog/internal/domain"
	"github.com/tryonlog/catalog/internal/logger"
)

func newTestConsolidation() (*ConsolidationService, *fakeCatalog, *fakeReviews) {
	catalog := newFakeCatalog()
	reviews := &fakeReviews{}
	resolver := NewIdentityResolver(logger.NewNop())
	similarity := newTestSimilarity()
	service := NewConsolidationService(resolver, catalog, reviews, similarity, logger.NewNop())
	return service, catalog, reviews
}

func clubMonacoRecord(handle, color string, sizes []string) *domain.RawProductRecord {
	return &domain.RawProductRecord{
		Brand:    "clubmonaco",
		Title:    "Johnny Collar Polo - " + color,
		Handle:   handle,
		URL:      "https://clubmonaco.example/products/" + handle,
		Category: domain.CategoryTops,
		Variants: []domain.RawVariant{
			{Color: color, SizeLabels: sizes, ImageURLs: []string{"https://img/" + color + ".jpg"}},
		},
	}
}

// Two colorway scrapes sharing an identity must land as one product with two
// variants, logged as exactly one product_created and one variant_added.
func TestConsolidateColorwaysIntoOneProduct(t *testing.T) {
	service, catalog, _ := newTestConsolidation()
	ctx := context.Background()

	navy := clubMonacoRecord("johnny-collar-polo-795806094-001", "Navy", []string{"S", "M", "L"})
	white := clubMonacoRecord("johnny-collar-polo-795806094-002", "Off White", []string{"M", "L"})

	first, err := service.Consolidate(ctx, "batch-1", navy)
	if err != nil {
		t.Fatalf("first consolidate failed: %v", err)
	}
	second, err := service.Consolidate(ctx, "batch-1", white)
	if err != nil {
		t.Fatalf("second consolidate failed: %v", err)
	}

	if !first.Created {
		t.Error("first record should create the product")
	}
	if second.Created {
		t.Error("second record should merge, not create")
	}
	if first.ProductID != second.ProductID {
		t.Errorf("records landed on different products: %d vs %d", first.ProductID, second.ProductID)
	}
	if first.Identity != "795806094" || second.Identity != first.Identity {
		t.Errorf("identities = %q, %q", first.Identity, second.Identity)
	}

	product, err := catalog.FindActive(ctx, "clubmonaco", "795806094")
	if err != nil {
		t.Fatalf("product lookup failed: %v", err)
	}
	if len(product.Variants) != 2 {
		t.Fatalf("variants = %d, want 2", len(product.Variants))
	}

	counts := catalog.actionCounts()
	if counts[domain.ActionProductCreated] != 1 {
		t.Errorf("product_created entries = %d, want 1", counts[domain.ActionProductCreated])
	}
	if counts[domain.ActionVariantAdded] != 1 {
		t.Errorf("variant_added entries = %d, want 1", counts[domain.ActionVariantAdded])
	}
}

// Re-ingesting an unchanged record must neither mutate the catalog nor churn
// the log, but the sizes still flow out for mapping.
func TestConsolidateIsIdempotent(t *testing.T) {
	service, catalog, _ := newTestConsolidation()
	ctx := context.Background()

	record := clubMonacoRecord("johnny-collar-polo-795806094-001", "Navy", []string{"S", "M"})
	if _, err := service.Consolidate(ctx, "batch-1", record); err != nil {
		t.Fatalf("first consolidate failed: %v", err)
	}

	rerun := clubMonacoRecord("johnny-collar-polo-795806094-001", "Navy", []string{"S", "M"})
	result, err := service.Consolidate(ctx, "batch-2", rerun)
	if err != nil {
		t.Fatalf("rerun consolidate failed: %v", err)
	}

	if result.Created || result.VariantsAdded != 0 || result.VariantsUpdated != 0 {
		t.Errorf("rerun mutated the catalog: %+v", result)
	}
	if len(result.Variants) != 1 || len(result.Variants[0].RawSizeLabels) != 2 {
		t.Errorf("rerun should still emit the variant for size mapping: %+v", result.Variants)
	}

	counts := catalog.actionCounts()
	if total := counts[domain.ActionProductCreated] + counts[domain.ActionVariantAdded] + counts[domain.ActionVariantUpdated]; total != 1 {
		t.Errorf("log entries = %d, want only the original product_created", total)
	}
}

func TestConsolidateUpdatesChangedVariant(t *testing.T) {
	service, catalog, _ := newTestConsolidation()
	ctx := context.Background()

	record := clubMonacoRecord("johnny-collar-polo-795806094-001", "Navy", []string{"S"})
	if _, err := service.Consolidate(ctx, "batch-1", record); err != nil {
		t.Fatalf("first consolidate failed: %v", err)
	}

	changed := clubMonacoRecord("johnny-collar-polo-795806094-001", "Navy", []string{"S"})
	changed.Variants[0].ImageURLs = []string{"https://img/navy-reshoot.jpg"}
	result, err := service.Consolidate(ctx, "batch-2", changed)
	if err != nil {
		t.Fatalf("rerun consolidate failed: %v", err)
	}

	if result.VariantsUpdated != 1 {
		t.Errorf("variants updated = %d, want 1", result.VariantsUpdated)
	}
	if counts := catalog.actionCounts(); counts[domain.ActionVariantUpdated] != 1 {
		t.Errorf("variant_updated entries = %d, want 1", counts[domain.ActionVariantUpdated])
	}
}

// A record whose identity cannot be extracted degrades to a singleton product
// under a synthetic identity instead of being dropped.
func TestConsolidateDegradesOnExtractionFailure(t *testing.T) {
	service, catalog, _ := newTestConsolidation()
	ctx := context.Background()

	record := &domain.RawProductRecord{
		Brand:    "clubmonaco",
		Title:    "Gift Card",
		Handle:   "gift-card",
		Category: domain.CategoryTops,
		Variants: []domain.RawVariant{{Color: "None", SizeLabels: []string{"M"}}},
	}

	result, err := service.Consolidate(ctx, "batch-1", record)
	if err != nil {
		t.Fatalf("consolidate failed: %v", err)
	}
	if result.ExtractionFailure == nil {
		t.Fatal("extraction failure should ride along on the result")
	}
	if result.Identity != "gift-card" {
		t.Errorf("synthetic identity = %q, want the handle", result.Identity)
	}
	if !result.Created {
		t.Error("degraded record should still create its singleton product")
	}

	if _, err := catalog.FindActive(ctx, "clubmonaco", "gift-card"); err != nil {
		t.Errorf("singleton product not persisted: %v", err)
	}
}

func TestConsolidateRejectsInvalidRecords(t *testing.T) {
	service, _, _ := newTestConsolidation()
	ctx := context.Background()

	tests := []struct {
		name   string
		record *domain.RawProductRecord
	}{
		{"nil record", nil},
		{"missing brand", &domain.RawProductRecord{Title: "x", Variants: []domain.RawVariant{{Color: "Navy"}}}},
		{"no variants", &domain.RawProductRecord{Brand: "uniqlo", Title: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := service.Consolidate(ctx, "batch-1", tt.record); !errors.Is(err, domain.ErrInvalidRecord) {
				t.Errorf("error = %v, want ErrInvalidRecord", err)
			}
		})
	}
}

// Reconcile soft-merges active products sharing an identity; the lowest id
// survives and the losers point at it.
func TestReconcileMergesDuplicateIdentities(t *testing.T) {
	service, catalog, _ := newTestConsolidation()
	ctx := context.Background()

	// Two products under the same identity, as a pre-fix extraction rule
	// would have left them. Seed them directly, bypassing the uniqueness
	// check the way legacy data would.
	seedProduct := func(id uint, identity, color string) {
		catalog.products[id] = &domain.CanonicalProduct{
			ID: id, Brand: "uniqlo", Identity: domain.ProductIdentity(identity),
			Title: "Airism Tee", Category: domain.CategoryTops, IsCanonical: true,
			Variants: []domain.ProductVariant{{ID: id * 10, Color: color}},
		}
		if id > catalog.nextProductID {
			catalog.nextProductID = id
		}
	}
	seedProduct(1, "E461189", "White")
	seedProduct(2, "E461189", "Black")
	seedProduct(3, "E999999", "Navy")

	merged, err := service.Reconcile(ctx, "batch-r", "uniqlo")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if merged != 1 {
		t.Errorf("merged = %d, want 1", merged)
	}

	survivor, err := catalog.FindActive(ctx, "uniqlo", "E461189")
	if err != nil {
		t.Fatalf("survivor lookup failed: %v", err)
	}
	if survivor.ID != 1 {
		t.Errorf("survivor id = %d, want lowest id 1", survivor.ID)
	}
	if len(survivor.Variants) != 2 {
		t.Errorf("survivor variants = %d, want 2", len(survivor.Variants))
	}

	loser, err := catalog.GetProduct(ctx, 2)
	if err != nil {
		t.Fatalf("loser lookup failed: %v", err)
	}
	if loser.IsCanonical || loser.MergedIntoID == nil || *loser.MergedIntoID != 1 {
		t.Errorf("loser should point at survivor: %+v", loser)
	}

	if counts := catalog.actionCounts(); counts[domain.ActionRetroactiveMerge] != 1 {
		t.Errorf("retroactive_merge entries = %d, want 1", counts[domain.ActionRetroactiveMerge])
	}

	// Old references resolve through the chain.
	resolved, err := catalog.ResolveActive(ctx, 2)
	if err != nil {
		t.Fatalf("resolve through chain failed: %v", err)
	}
	if resolved.ID != 1 {
		t.Errorf("resolved id = %d, want 1", resolved.ID)
	}
}

// Similar titles with different identities are flagged for review, never
// merged automatically.
func TestSimilarTitlesNeverAutoMerge(t *testing.T) {
	service, catalog, reviews := newTestConsolidation()
	ctx := context.Background()

	a := clubMonacoRecord("johnny-collar-polo-795806094-001", "Navy", []string{"M"})
	b := clubMonacoRecord("johnny-collar-polo-795806095-001", "Navy", []string{"M"})
	if _, err := service.Consolidate(ctx, "batch-1", a); err != nil {
		t.Fatalf("consolidate failed: %v", err)
	}
	if _, err := service.Consolidate(ctx, "batch-1", b); err != nil {
		t.Fatalf("consolidate failed: %v", err)
	}

	merged, err := service.Reconcile(ctx, "batch-r", "clubmonaco")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if merged != 0 {
		t.Errorf("merged = %d, want 0 (titles alone never merge)", merged)
	}

	flagged, err := service.FlagDuplicateCandidates(ctx, "batch-r", "clubmonaco")
	if err != nil {
		t.Fatalf("flagging failed: %v", err)
	}
	if flagged != 1 {
		t.Fatalf("flagged = %d, want 1", flagged)
	}

	items := reviews.ofType(domain.ReviewDuplicateCandidate)
	if len(items) != 1 {
		t.Fatalf("review items = %d, want 1", len(items))
	}
	if items[0].Payload["score"] == nil {
		t.Error("review payload should carry the similarity score")
	}

	// Both products are still active.
	active, err := catalog.ListActive(ctx, "clubmonaco")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(active) != 2 {
		t.Errorf("active products = %d, want 2", len(active))
	}
}
