package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tryonlog/catalog/internal/domain"
	"github.com/tryonlog/catalog/internal/logger"
)

// ConsolidationService groups per-scrape product records sharing a resolved
// identity into one canonical product with N variants. Every merge decision
// is written to the consolidation log before the mutation commits.
type ConsolidationService struct {
	resolver   *IdentityResolver
	catalog    domain.CatalogStore
	reviews    domain.ReviewStore
	similarity *TitleSimilarity
	log        *logger.Logger
}

// NewConsolidationService creates a consolidation engine.
func NewConsolidationService(
	resolver *IdentityResolver,
	catalog domain.CatalogStore,
	reviews domain.ReviewStore,
	similarity *TitleSimilarity,
	log *logger.Logger,
) *ConsolidationService {
	return &ConsolidationService{
		resolver:   resolver,
		catalog:    catalog,
		reviews:    reviews,
		similarity: similarity,
		log:        log.With("component", "ConsolidationService"),
	}
}

// Consolidate folds one raw record into the canonical catalog. A record whose
// identity cannot be extracted becomes its own singleton product under a
// synthetic identity; the extraction failure rides along on the result so the
// orchestrator can report it.
func (s *ConsolidationService) Consolidate(ctx context.Context, batchID string, record *domain.RawProductRecord) (*domain.ConsolidationResult, error) {
	if record == nil || record.Brand == "" || len(record.Variants) == 0 {
		return nil, domain.ErrInvalidRecord
	}

	result := &domain.ConsolidationResult{}

	identity, err := s.resolver.ExtractIdentity(record.Brand, record)
	if err != nil {
		var failure *domain.ExtractionFailure
		if !errors.As(err, &failure) {
			return nil, err
		}
		identity = SyntheticIdentity(record)
		result.ExtractionFailure = failure
		s.log.Warn("degrading record to singleton product",
			"brand", record.Brand, "identity", identity)
	}
	result.Identity = identity

	existing, err := s.catalog.FindActive(ctx, record.Brand, identity)
	switch {
	case err == nil:
		if err := s.mergeIntoExisting(ctx, batchID, record, existing, result); err != nil {
			return nil, err
		}
	case errors.Is(err, domain.ErrProductNotFound):
		if err := s.createProduct(ctx, batchID, record, identity, result); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("find active product %s/%s: %w", record.Brand, identity, err)
	}

	return result, nil
}

// createProduct creates a new canonical product carrying the record's
// variants, under a single product_created log entry.
func (s *ConsolidationService) createProduct(ctx context.Context, batchID string, record *domain.RawProductRecord, identity domain.ProductIdentity, result *domain.ConsolidationResult) error {
	product := &domain.CanonicalProduct{
		Brand:       record.Brand,
		Identity:    identity,
		Title:       CanonicalTitle(record.Title),
		Category:    record.Category,
		URL:         record.URL,
		IsCanonical: true,
	}
	for _, raw := range record.Variants {
		product.Variants = append(product.Variants, domain.ProductVariant{
			Color:     raw.Color,
			Fit:       raw.Fit,
			ImageURLs: raw.ImageURLs,
		})
	}

	entry := &domain.ConsolidationLogEntry{
		BatchID: batchID,
		Brand:   record.Brand,
		Action:  domain.ActionProductCreated,
		Reason:  "first sighting of identity",
		Metadata: map[string]interface{}{
			"identity": string(identity),
			"code":     record.Code,
			"handle":   record.Handle,
		},
	}
	if err := s.catalog.CreateProduct(ctx, entry, product); err != nil {
		return fmt.Errorf("create product %s/%s: %w", record.Brand, identity, err)
	}

	result.ProductID = product.ID
	result.Created = true
	for i, v := range product.Variants {
		result.Variants = append(result.Variants, domain.ConsolidatedVariant{
			VariantID:     v.ID,
			Color:         v.Color,
			Fit:           v.Fit,
			RawSizeLabels: record.Variants[i].SizeLabels,
		})
	}

	s.log.Info("product created",
		"brand", record.Brand, "identity", identity, "product_id", product.ID,
		"variants", len(product.Variants))
	return nil
}

// mergeIntoExisting adds or updates the record's variants on an existing
// product, keyed by color+fit. An unchanged variant is left alone so repeated
// ingestion runs converge instead of churning the log.
func (s *ConsolidationService) mergeIntoExisting(ctx context.Context, batchID string, record *domain.RawProductRecord, product *domain.CanonicalProduct, result *domain.ConsolidationResult) error {
	result.ProductID = product.ID

	byKey := make(map[string]*domain.ProductVariant, len(product.Variants))
	for i := range product.Variants {
		v := &product.Variants[i]
		byKey[variantKey(v.Color, v.Fit)] = v
	}

	for _, raw := range record.Variants {
		existing, ok := byKey[variantKey(raw.Color, raw.Fit)]
		if !ok {
			variant := &domain.ProductVariant{
				Color:     raw.Color,
				Fit:       raw.Fit,
				ImageURLs: raw.ImageURLs,
			}
			entry := &domain.ConsolidationLogEntry{
				BatchID:         batchID,
				Brand:           record.Brand,
				Action:          domain.ActionVariantAdded,
				TargetProductID: product.ID,
				Reason:          "new colorway for existing identity",
				Metadata: map[string]interface{}{
					"color": raw.Color,
					"fit":   raw.Fit,
				},
			}
			if err := s.catalog.AddVariant(ctx, entry, product.ID, variant); err != nil {
				return fmt.Errorf("add variant %s/%s to product %d: %w", raw.Color, raw.Fit, product.ID, err)
			}
			result.VariantsAdded++
			result.Variants = append(result.Variants, domain.ConsolidatedVariant{
				VariantID:     variant.ID,
				Color:         variant.Color,
				Fit:           variant.Fit,
				RawSizeLabels: raw.SizeLabels,
			})
			continue
		}

		if sameStrings(existing.ImageURLs, raw.ImageURLs) {
			// Unchanged rescrape. Sizes still flow through the mapper so
			// late-seeded mappings can fill earlier gaps.
			result.Variants = append(result.Variants, domain.ConsolidatedVariant{
				VariantID:     existing.ID,
				Color:         existing.Color,
				Fit:           existing.Fit,
				RawSizeLabels: raw.SizeLabels,
			})
			continue
		}

		existing.ImageURLs = raw.ImageURLs
		entry := &domain.ConsolidationLogEntry{
			BatchID:         batchID,
			Brand:           record.Brand,
			Action:          domain.ActionVariantUpdated,
			TargetProductID: product.ID,
			Reason:          "variant content changed on rescrape",
			Metadata: map[string]interface{}{
				"color":      existing.Color,
				"fit":        existing.Fit,
				"variant_id": existing.ID,
			},
		}
		if err := s.catalog.UpdateVariant(ctx, entry, existing); err != nil {
			return fmt.Errorf("update variant %d on product %d: %w", existing.ID, product.ID, err)
		}
		result.VariantsUpdated++
		result.Variants = append(result.Variants, domain.ConsolidatedVariant{
			VariantID:     existing.ID,
			Color:         existing.Color,
			Fit:           existing.Fit,
			RawSizeLabels: raw.SizeLabels,
		})
	}

	return nil
}

// Reconcile scans a brand for active products sharing an identity (created
// before an extraction-rule fix, or by a historical bug) and soft-merges
// them. The lowest product id survives, for determinism and to minimize
// references needing to be repointed. Returns the number of merges performed.
func (s *ConsolidationService) Reconcile(ctx context.Context, batchID, brand string) (int, error) {
	products, err := s.catalog.ListActive(ctx, brand)
	if err != nil {
		return 0, fmt.Errorf("list active products for %s: %w", brand, err)
	}

	byIdentity := make(map[domain.ProductIdentity][]domain.CanonicalProduct)
	for _, p := range products {
		byIdentity[p.Identity] = append(byIdentity[p.Identity], p)
	}

	merged := 0
	for identity, group := range byIdentity {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
		target := group[0]

		for _, source := range group[1:] {
			sourceID := source.ID
			entry := &domain.ConsolidationLogEntry{
				BatchID:         batchID,
				Brand:           brand,
				Action:          domain.ActionRetroactiveMerge,
				SourceProductID: &sourceID,
				TargetProductID: target.ID,
				Reason:          "duplicate identity discovered on reconciliation",
				Metadata: map[string]interface{}{
					"identity":     string(identity),
					"source_title": source.Title,
					"target_title": target.Title,
				},
			}
			if err := s.catalog.MergeProducts(ctx, entry, source.ID, target.ID); err != nil {
				return merged, fmt.Errorf("merge product %d into %d: %w", source.ID, target.ID, err)
			}
			merged++
			s.log.Info("retroactive merge",
				"brand", brand, "identity", identity,
				"source_id", source.ID, "target_id", target.ID)
		}
	}

	return merged, nil
}

// FlagDuplicateCandidates surfaces pairs of active products with different
// identities but similar titles as review items. Advisory only: near-identical
// titles legitimately describe different SKUs, so a human decides.
func (s *ConsolidationService) FlagDuplicateCandidates(ctx context.Context, batchID, brand string) (int, error) {
	products, err := s.catalog.ListActive(ctx, brand)
	if err != nil {
		return 0, fmt.Errorf("list active products for %s: %w", brand, err)
	}

	flagged := 0
	for i := 0; i < len(products); i++ {
		for j := i + 1; j < len(products); j++ {
			a, b := products[i], products[j]
			if a.Identity == b.Identity || a.Category != b.Category {
				continue
			}
			score, matched := s.similarity.Score(a.Title, b.Title)
			if score < s.similarity.minCandidateScore {
				continue
			}
			item := &domain.ReviewItem{
				BatchID: batchID,
				Brand:   brand,
				Type:    domain.ReviewDuplicateCandidate,
				Payload: map[string]interface{}{
					"productIdA":    a.ID,
					"productIdB":    b.ID,
					"titleA":        a.Title,
					"titleB":        b.Title,
					"score":         score,
					"matchedTokens": matched,
				},
			}
			if err := s.reviews.Add(ctx, item); err != nil {
				return flagged, fmt.Errorf("record duplicate candidate: %w", err)
			}
			flagged++
		}
	}
	return flagged, nil
}

func variantKey(color, fit string) string {
	return color + "\x00" + fit
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
