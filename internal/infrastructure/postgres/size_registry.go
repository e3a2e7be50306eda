package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tryonlog/catalog/internal/domain"
	"github.com/tryonlog/catalog/internal/logger"
)

// SizeRegistry implements domain.SizeRegistry over the canonical_sizes table.
// Resolve is a transactional get-or-create: the unique index on
// (category, dim_key) plus an on-conflict insert makes concurrent calls for
// the same dimensions converge on one row.
type SizeRegistry struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewSizeRegistry creates the registry store.
func NewSizeRegistry(db *gorm.DB, log *logger.Logger) *SizeRegistry {
	return &SizeRegistry{db: db, log: log.With("repo", "SizeRegistry")}
}

// Resolve returns the canonical size for the parsed dimensions, creating it
// on first encounter. New sizes get a sort key that is a pure function of the
// dimensions, so late-created sizes land in chart order.
func (r *SizeRegistry) Resolve(ctx context.Context, parsed domain.ParsedSize) (*domain.CanonicalSize, error) {
	if !parsed.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, parsed.Category)
	}
	if parsed.Label == "" {
		return nil, domain.ErrInvalidRecord
	}

	row := CanonicalSizeRow{
		Category: string(parsed.Category),
		DimKey:   parsed.Label,
		Label:    parsed.Label,
		SortKey:  domain.SortKeyFor(parsed),
		Dims:     marshalJSON(parsed.Dims),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category"}, {Name: "dim_key"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return nil, fmt.Errorf("insert canonical size %s/%s: %w", parsed.Category, parsed.Label, result.Error)
	}
	if result.RowsAffected > 0 {
		r.log.Debug("canonical size created", "category", parsed.Category, "label", parsed.Label)
		return sizeRowToDomain(&row), nil
	}

	// Lost the insert to an existing row; fetch it.
	var existing CanonicalSizeRow
	if err := r.db.WithContext(ctx).
		Where("category = ? AND dim_key = ?", parsed.Category, parsed.Label).
		First(&existing).Error; err != nil {
		return nil, fmt.Errorf("fetch canonical size %s/%s: %w", parsed.Category, parsed.Label, err)
	}
	return sizeRowToDomain(&existing), nil
}

// List returns the category's canonical sizes in chart order.
func (r *SizeRegistry) List(ctx context.Context, category domain.SizeCategory) ([]domain.CanonicalSize, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}

	var rows []CanonicalSizeRow
	if err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("sort_key ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list canonical sizes for %s: %w", category, err)
	}

	sizes := make([]domain.CanonicalSize, 0, len(rows))
	for i := range rows {
		sizes = append(sizes, *sizeRowToDomain(&rows[i]))
	}
	return sizes, nil
}
