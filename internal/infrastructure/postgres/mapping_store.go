package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tryonlog/catalog/internal/domain"
	"github.com/tryonlog/catalog/internal/logger"
)

// MappingStore implements domain.MappingStore over brand_size_mappings.
type MappingStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewMappingStore creates the mapping store.
func NewMappingStore(db *gorm.DB, log *logger.Logger) *MappingStore {
	return &MappingStore{db: db, log: log.With("repo", "MappingStore")}
}

// Lookup returns the canonical size a brand's literal label resolved to, or
// ErrMappingNotFound on first encounter.
func (r *MappingStore) Lookup(ctx context.Context, brand string, category domain.SizeCategory, rawLabel string) (*domain.CanonicalSize, error) {
	var mapping BrandSizeMappingRow
	err := r.db.WithContext(ctx).
		Where("brand = ? AND category = ? AND raw_label = ?", brand, category, rawLabel).
		First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMappingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup mapping: %w", err)
	}

	var size CanonicalSizeRow
	if err := r.db.WithContext(ctx).First(&size, mapping.CanonicalSizeID).Error; err != nil {
		return nil, fmt.Errorf("fetch canonical size %d: %w", mapping.CanonicalSizeID, err)
	}
	return sizeRowToDomain(&size), nil
}

// Save persists a new mapping. First write wins: a concurrent writer for the
// same triple leaves the earlier row in place, keeping resolution
// deterministic.
func (r *MappingStore) Save(ctx context.Context, m *domain.BrandSizeMapping) error {
	row := BrandSizeMappingRow{
		Brand:           m.Brand,
		Category:        string(m.Category),
		RawLabel:        m.RawLabel,
		CanonicalSizeID: m.CanonicalSizeID,
		FitHint:         m.FitHint,
		Notes:           m.Notes,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "brand"}, {Name: "category"}, {Name: "raw_label"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("save mapping %s/%s %q: %w", m.Brand, m.Category, m.RawLabel, err)
	}
	return nil
}
