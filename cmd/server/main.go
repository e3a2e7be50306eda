package main

import (
	"fmt"
	"log"

	"github.com/tryonlog/catalog/config"
	httpDelivery "github.com/tryonlog/catalog/internal/delivery/http"
	"github.com/tryonlog/catalog/internal/infrastructure/cache"
	"github.com/tryonlog/catalog/internal/infrastructure/postgres"
	"github.com/tryonlog/catalog/internal/logger"
	"github.com/tryonlog/catalog/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog, err := logger.New(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	appLog.Info("starting catalog core",
		"environment", cfg.Server.Environment, "port", cfg.Server.Port)

	// Initialize storage
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

	// Initialize usecase layer
	mappingCache := cache.NewMappingCache(cfg.Cache.TTL)
	parser := usecase.NewSizeParser(appLog)
	mapper := usecase.NewBrandMapper(mappingCache, mappings, registry, parser, appLog)
	resolver := usecase.NewIdentityResolver(appLog)
	similarity := usecase.NewTitleSimilarity(usecase.SimilarityConfig{
		MinCandidateScore:   cfg.Matching.MinCandidateScore,
		EnableFuzzyMatching: cfg.Matching.EnableFuzzyMatching,
		FuzzyEditDistance:   cfg.Matching.FuzzyEditDistance,
	})
	consolidation := usecase.NewConsolidationService(resolver, catalog, reviews, similarity, appLog)
	orchestrator := usecase.NewOrchestrator(consolidation, mapper, catalog, reviews, appLog)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(catalog, registry, reviews, orchestrator, appLog)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	appLog.Info("server listening", "addr", addr)

	if err := router.Run(addr); err != nil {
		appLog.Fatal("server stopped", "error", err)
	}
}
