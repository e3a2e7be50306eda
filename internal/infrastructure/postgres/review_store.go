package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tryonlog/catalog/internal/domain"
	"github.com/tryonlog/catalog/internal/logger"
)

// ReviewStore implements domain.ReviewStore over review_items.
type ReviewStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewReviewStore creates the review store.
func NewReviewStore(db *gorm.DB, log *logger.Logger) *ReviewStore {
	return &ReviewStore{db: db, log: log.With("repo", "ReviewStore")}
}

// Add appends a review item.
func (r *ReviewStore) Add(ctx context.Context, item *domain.ReviewItem) error {
	row := ReviewItemRow{
		BatchID: item.BatchID,
		Brand:   item.Brand,
		Type:    string(item.Type),
		Payload: marshalJSON(item.Payload),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert review item: %w", err)
	}
	item.ID = row.ID
	return nil
}

// List returns the newest review items, optionally filtered by brand and type.
func (r *ReviewStore) List(ctx context.Context, brand string, itemType domain.ReviewItemType, limit int) ([]domain.ReviewItem, error) {
	if limit <= 0 {
		limit = 100
	}

	query := r.db.WithContext(ctx).Model(&ReviewItemRow{})
	if brand != "" {
		query = query.Where("brand = ?", brand)
	}
	if itemType != "" {
		query = query.Where("type = ?", string(itemType))
	}

	var rows []ReviewItemRow
	if err := query.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}

	items := make([]domain.ReviewItem, 0, len(rows))
	for i := range rows {
		items = append(items, *reviewRowToDomain(&rows[i]))
	}
	return items, nil
}
