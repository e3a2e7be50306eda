// Command ingest runs a scrape feed file through the consolidation pipeline
// without going through the HTTP API. The feed is a JSON object mapping brand
// names to arrays of raw product records, the same shape the ingest endpoint
// accepts per brand.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tryonlog/catalog/config"
	"github.com/tryonlog/catalog/internal/domain"
	"github.com/tryonlog/catalog/internal/infrastructure/cache"
	"github.com/tryonlog/catalog/internal/infrastructure/postgres"
	"github.com/tryonlog/catalog/internal/logger"
	"github.com/tryonlog/catalog/internal/usecase"
)

func main() {
	feedPath := flag.String("feed", "", "path to a JSON feed file (brand -> records)")
	reconcile := flag.Bool("reconcile", false, "run the retroactive-merge pass after ingesting")
	flag.Parse()

	if *feedPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	batches, err := loadFeed(*feedPath)
	if err != nil {
		appLog.Fatal("failed to load feed", "path", *feedPath, "error", err)
	}

	db, err := postgres.New(cfg.Database.DSN(), appLog)
	if err != nil {
		appLog.Fatal("database connection failed", "error", err)
	}
	if err := db.AutoMigrateAll(); err != nil {
		appLog.Fatal("migration failed", "error", err)
	}
	if err := db.SeedSizes(); err != nil {
		appLog.Fatal("size seeding failed", "error", err)
	}

	registry := postgres.NewSizeRegistry(db.DB(), appLog)
	mappings := postgres.NewMappingStore(db.DB(), appLog)
	catalog := postgres.NewCatalogStore(db.DB(), appLog)
	reviews := postgres.NewReviewStore(db.DB(), appLog)

	parser := usecase.NewSizeParser(appLog)
	mapper := usecase.NewBrandMapper(cache.NewMappingCache(cfg.Cache.TTL), mappings, registry, parser, appLog)
	resolver := usecase.NewIdentityResolver(appLog)
	similarity := usecase.NewTitleSimilarity(usecase.SimilarityConfig{
		MinCandidateScore:   cfg.Matching.MinCandidateScore,
		EnableFuzzyMatching: cfg.Matching.EnableFuzzyMatching,
		FuzzyEditDistance:   cfg.Matching.FuzzyEditDistance,
	})
	consolidation := usecase.NewConsolidationService(resolver, catalog, reviews, similarity, appLog)
	orchestrator := usecase.NewOrchestrator(consolidation, mapper, catalog, reviews, appLog)

	ctx := context.Background()
	reports, err := orchestrator.RunBatches(ctx, batches)
	for brand, report := range reports {
		printReport(brand, report)
	}
	if err != nil {
		appLog.Fatal("ingest failed", "error", err)
	}

	if *reconcile {
		for brand := range batches {
			merged, flagged, err := orchestrator.Reconcile(ctx, brand)
			if err != nil {
				appLog.Fatal("reconcile failed", "brand", brand, "error", err)
			}
			fmt.Printf("%s: merged %d, flagged %d duplicate candidates\n", brand, merged, flagged)
		}
	}
}

func loadFeed(path string) (map[string][]domain.RawProductRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var batches map[string][]domain.RawProductRecord
	if err := json.Unmarshal(data, &batches); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("feed contains no brands")
	}
	return batches, nil
}

func printReport(brand string, report *domain.BatchReport) {
	if report == nil {
		return
	}
	fmt.Printf("%s (batch %s): %d records, %d products created, %d variants added, %d updated, %d sizes mapped\n",
		brand, report.BatchID, report.RecordsSeen, report.ProductsCreated,
		report.VariantsAdded, report.VariantsUpdated, report.SizesMapped)
	for _, u := range report.UnmappableSizes {
		fmt.Printf("  unmappable: %s/%s %q (%s)\n", u.Brand, u.Category, u.RawLabel, u.Reason)
	}
	for _, f := range report.ExtractionFailures {
		fmt.Printf("  extraction failure: code=%q handle=%q (%s)\n", f.Code, f.Handle, f.Detail)
	}
}
