package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tryonlog/catalog/internal/domain"
	"github.com/tryonlog/catalog/internal/logger"
)

// Orchestrator drives consolidation and size mapping over a batch of freshly
// scraped records. It is the only component that decides policy on partial
// failure: a variant with some unmappable sizes still persists with the
// mappable ones, and a single bad record never aborts a batch. Invariant
// violations do abort, since continuing past a broken uniqueness guarantee
// risks silent corruption.
type Orchestrator struct {
	consolidation *ConsolidationService
	mapper        *BrandMapper
	catalog       domain.CatalogStore
	reviews       domain.ReviewStore
	log           *logger.Logger
}

// NewOrchestrator creates a batch orchestrator.
func NewOrchestrator(
	consolidation *ConsolidationService,
	mapper *BrandMapper,
	catalog domain.CatalogStore,
	reviews domain.ReviewStore,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		consolidation: consolidation,
		mapper:        mapper,
		catalog:       catalog,
		reviews:       reviews,
		log:           log.With("component", "Orchestrator"),
	}
}

// RunBatch ingests one brand's records. Idempotent by construction: every
// write underneath is a get-or-create, so re-running the same input converges
// instead of duplicating.
func (o *Orchestrator) RunBatch(ctx context.Context, brand string, records []domain.RawProductRecord) (*domain.BatchReport, error) {
	report := &domain.BatchReport{
		BatchID:   uuid.NewString(),
		Brand:     brand,
		StartedAt: time.Now(),
	}
	log := o.log.With("brand", brand, "batch_id", report.BatchID)
	log.Info("batch started", "records", len(records))

	for i := range records {
		record := &records[i]
		if record.Brand == "" {
			record.Brand = brand
		}
		report.RecordsSeen++

		result, err := o.consolidation.Consolidate(ctx, report.BatchID, record)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidRecord) {
				log.Warn("skipping invalid record", "title", record.Title)
				continue
			}
			report.FinishedAt = time.Now()
			return report, fmt.Errorf("consolidate %q: %w", record.Title, err)
		}

		if result.Created {
			report.ProductsCreated++
		}
		report.VariantsAdded += result.VariantsAdded
		report.VariantsUpdated += result.VariantsUpdated

		if result.ExtractionFailure != nil {
			report.ExtractionFailures = append(report.ExtractionFailures, result.ExtractionFailure)
			o.recordReview(ctx, report.BatchID, brand, domain.ReviewExtractionFailure, map[string]interface{}{
				"code":   result.ExtractionFailure.Code,
				"handle": result.ExtractionFailure.Handle,
				"detail": result.ExtractionFailure.Detail,
			})
		}

		for _, variant := range result.Variants {
			if err := o.mapVariantSizes(ctx, report, record.Category, variant); err != nil {
				report.FinishedAt = time.Now()
				return report, err
			}
		}
	}

	report.FinishedAt = time.Now()
	log.Info("batch finished",
		"products_created", report.ProductsCreated,
		"variants_added", report.VariantsAdded,
		"variants_updated", report.VariantsUpdated,
		"sizes_mapped", report.SizesMapped,
		"unmappable_sizes", len(report.UnmappableSizes),
		"extraction_failures", len(report.ExtractionFailures))
	return report, nil
}

// mapVariantSizes resolves each raw size label on a consolidated variant and
// attaches the canonical size. Unmappable labels are reported, not fatal.
func (o *Orchestrator) mapVariantSizes(ctx context.Context, report *domain.BatchReport, category domain.SizeCategory, variant domain.ConsolidatedVariant) error {
	for _, rawLabel := range variant.RawSizeLabels {
		size, err := o.mapper.MapSize(ctx, report.Brand, category, rawLabel)
		if err != nil {
			var unmappable *domain.UnmappableSizeError
			if errors.As(err, &unmappable) {
				report.UnmappableSizes = append(report.UnmappableSizes, unmappable)
				o.recordReview(ctx, report.BatchID, report.Brand, domain.ReviewUnmappableSize, map[string]interface{}{
					"category": string(unmappable.Category),
					"rawLabel": unmappable.RawLabel,
					"reason":   string(unmappable.Reason),
				})
				continue
			}
			return fmt.Errorf("map size %q for %s/%s: %w", rawLabel, report.Brand, category, err)
		}

		vs := &domain.VariantSize{
			RawLabel:        rawLabel,
			CanonicalSizeID: size.ID,
			CanonicalLabel:  size.Label,
			SortKey:         size.SortKey,
		}
		if err := o.catalog.UpsertVariantSize(ctx, variant.VariantID, vs); err != nil {
			return fmt.Errorf("attach size %q to variant %d: %w", rawLabel, variant.VariantID, err)
		}
		report.SizesMapped++
	}
	return nil
}

// RunBatches ingests several brands concurrently. Brands never share mutable
// state (mappings and products are both partitioned by brand), so brand-level
// parallelism is the safe unit of concurrency here.
func (o *Orchestrator) RunBatches(ctx context.Context, batches map[string][]domain.RawProductRecord) (map[string]*domain.BatchReport, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		reports  = make(map[string]*domain.BatchReport, len(batches))
		firstErr error
	)

	for brand, records := range batches {
		wg.Add(1)
		go func(brand string, records []domain.RawProductRecord) {
			defer wg.Done()
			report, err := o.RunBatch(ctx, brand, records)
			mu.Lock()
			defer mu.Unlock()
			reports[brand] = report
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("brand %s: %w", brand, err)
			}
		}(brand, records)
	}

	wg.Wait()
	return reports, firstErr
}

// Reconcile runs the periodic retroactive-merge pass for a brand, then
// refreshes the duplicate-candidate review list.
func (o *Orchestrator) Reconcile(ctx context.Context, brand string) (merged, flagged int, err error) {
	batchID := uuid.NewString()

	merged, err = o.consolidation.Reconcile(ctx, batchID, brand)
	if err != nil {
		return merged, 0, err
	}

	flagged, err = o.consolidation.FlagDuplicateCandidates(ctx, batchID, brand)
	if err != nil {
		return merged, flagged, err
	}

	o.log.Info("reconciliation finished", "brand", brand, "merged", merged, "flagged", flagged)
	return merged, flagged, nil
}

func (o *Orchestrator) recordReview(ctx context.Context, batchID, brand string, itemType domain.ReviewItemType, payload map[string]interface{}) {
	item := &domain.ReviewItem{
		BatchID: batchID,
		Brand:   brand,
		Type:    itemType,
		Payload: payload,
	}
	if err := o.reviews.Add(ctx, item); err != nil {
		// Review bookkeeping failing should not take the batch down; the
		// same data is still in the batch report.
		o.log.Error("failed to record review item", "type", itemType, "error", err)
	}
}
