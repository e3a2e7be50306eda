package postgres

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tryonlog/catalog/internal/domain"
	"github.com/tryonlog/catalog/internal/logger"
)

// Service owns the gorm connection and schema lifecycle.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// New connects to Postgres. TranslateError is on so unique-constraint
// violations surface as gorm.ErrDuplicatedKey and can be classified as
// invariant violations by the stores.
func New(dsn string, log *logger.Logger) (*Service, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &Service{db: db, log: log.With("service", "PostgresService")}, nil
}

// NewWithDialector opens the service over an arbitrary gorm dialector.
// Repository tests use this with an in-memory sqlite database.
func NewWithDialector(dialector gorm.Dialector, log *logger.Logger) (*Service, error) {
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &Service{db: db, log: log.With("service", "PostgresService")}, nil
}

// DB exposes the underlying gorm handle.
func (s *Service) DB() *gorm.DB {
	return s.db
}

// AutoMigrateAll migrates the schema and creates the partial unique index
// guarding the one-active-product-per-identity invariant. Partial indexes
// are not expressible as gorm tags, so it is raw SQL; the syntax is shared
// by Postgres and SQLite.
func (s *Service) AutoMigrateAll() error {
	s.log.Info("migrating catalog tables")
	if err := s.db.AutoMigrate(
		&SizeCategoryRow{},
		&CanonicalSizeRow{},
		&BrandSizeMappingRow{},
		&ProductRow{},
		&VariantRow{},
		&VariantSizeRow{},
		&ConsolidationLogRow{},
		&ReviewItemRow{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := s.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uq_products_active_identity
		ON products (brand, identity)
		WHERE is_canonical
	`).Error; err != nil {
		return fmt.Errorf("create active identity index: %w", err)
	}
	return nil
}

// SeedSizes loads the category taxonomy and the known size grid. Idempotent
// and append-only: existing rows are never touched, so re-seeding after
// adding new grid entries is safe.
func (s *Service) SeedSizes() error {
	s.log.Info("seeding size taxonomy")

	for _, category := range domain.AllCategories() {
		row := SizeCategoryRow{
			Name:       string(category),
			Dimensions: marshalJSON(category.Dimensions()),
		}
		if err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("seed category %s: %w", category, err)
		}
	}

	seeded := 0
	for _, parsed := range seedGrid() {
		row := CanonicalSizeRow{
			Category: string(parsed.Category),
			DimKey:   parsed.Label,
			Label:    parsed.Label,
			SortKey:  domain.SortKeyFor(parsed),
			Dims:     marshalJSON(parsed.Dims),
		}
		result := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "category"}, {Name: "dim_key"}},
			DoNothing: true,
		}).Create(&row)
		if result.Error != nil {
			return fmt.Errorf("seed size %s/%s: %w", parsed.Category, parsed.Label, result.Error)
		}
		seeded += int(result.RowsAffected)
	}

	s.log.Info("size taxonomy seeded", "new_sizes", seeded)
	return nil
}

// seedGrid enumerates the initial canonical size space. Unseeded but
// structurally valid combinations are still created on demand by the
// registry; this grid just front-loads the common ones.
func seedGrid() []domain.ParsedSize {
	var sizes []domain.ParsedSize

	for _, letter := range []string{"XS", "S", "M", "L", "XL", "XXL", "XXXL", "MT", "LT", "XLT", "XXLT"} {
		sizes = append(sizes, domain.ParsedSize{
			Category: domain.CategoryTops,
			Label:    letter,
		})
	}

	for _, waist := range []float64{28, 29, 30, 31, 32, 33, 34, 36, 38, 40} {
		for _, length := range []float64{30, 32, 34} {
			sizes = append(sizes, domain.ParsedSize{
				Category: domain.CategoryPants,
				Label:    fmt.Sprintf("%gx%g", waist, length),
				Dims:     domain.DimensionMap{domain.DimWaist: waist, domain.DimLength: length},
			})
		}
	}

	for neck := 14.5; neck <= 17.5; neck += 0.5 {
		for _, sleeve := range []float64{32, 33, 34, 35} {
			sizes = append(sizes, domain.ParsedSize{
				Category: domain.CategoryDressShirts,
				Label:    fmt.Sprintf("%g/%g", neck, sleeve),
				Dims:     domain.DimensionMap{domain.DimNeck: neck, domain.DimSleeve: sleeve},
			})
		}
	}

	for size := 7.0; size <= 13; size += 0.5 {
		sizes = append(sizes, domain.ParsedSize{
			Category: domain.CategoryShoes,
			Label:    fmt.Sprintf("%g", size),
			Dims:     domain.DimensionMap{domain.DimSize: size},
		})
	}

	return sizes
}
