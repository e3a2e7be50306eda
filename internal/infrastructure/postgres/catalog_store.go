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

// maxMergeChainHops bounds merge-chain traversal; chains are short in
// practice and a longer walk means corrupted pointers.
const maxMergeChainHops = 10

// CatalogStore implements domain.CatalogStore. Every mutation runs in one
// transaction with its consolidation log row written before the catalog rows
// change, so the audit trail can never miss a committed move.
type CatalogStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewCatalogStore creates the catalog store.
func NewCatalogStore(db *gorm.DB, log *logger.Logger) *CatalogStore {
	return &CatalogStore{db: db, log: log.With("repo", "CatalogStore")}
}

// FindActive returns the active canonical product for (brand, identity).
func (r *CatalogStore) FindActive(ctx context.Context, brand string, identity domain.ProductIdentity) (*domain.CanonicalProduct, error) {
	var row ProductRow
	err := r.db.WithContext(ctx).
		Preload("Variants.Sizes").
		Where("brand = ? AND identity = ? AND is_canonical = ?", brand, string(identity), true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active product: %w", err)
	}
	return productRowToDomain(&row), nil
}

// ListActive returns all active products for a brand.
func (r *CatalogStore) ListActive(ctx context.Context, brand string) ([]domain.CanonicalProduct, error) {
	var rows []ProductRow
	if err := r.db.WithContext(ctx).
		Preload("Variants.Sizes").
		Where("brand = ? AND is_canonical = ?", brand, true).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}

	products := make([]domain.CanonicalProduct, 0, len(rows))
	for i := range rows {
		products = append(products, *productRowToDomain(&rows[i]))
	}
	return products, nil
}

// GetProduct returns a product by id, merged or active.
func (r *CatalogStore) GetProduct(ctx context.Context, id uint) (*domain.CanonicalProduct, error) {
	var row ProductRow
	err := r.db.WithContext(ctx).Preload("Variants.Sizes").First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return productRowToDomain(&row), nil
}

// ResolveActive follows the merge chain from id to the currently canonical
// product, so references to merged products keep resolving.
func (r *CatalogStore) ResolveActive(ctx context.Context, id uint) (*domain.CanonicalProduct, error) {
	current := id
	for hop := 0; hop < maxMergeChainHops; hop++ {
		product, err := r.GetProduct(ctx, current)
		if err != nil {
			return nil, err
		}
		if product.IsCanonical {
			return product, nil
		}
		if product.MergedIntoID == nil {
			return nil, &domain.InvariantViolation{
				Op:     "ResolveActive",
				Detail: fmt.Sprintf("product %d is non-canonical with no merge target", current),
			}
		}
		current = *product.MergedIntoID
	}
	return nil, &domain.InvariantViolation{
		Op:     "ResolveActive",
		Detail: fmt.Sprintf("merge chain from product %d exceeds %d hops", id, maxMergeChainHops),
	}
}

// FindByURL looks a product up by its scraped URL and resolves through any
// merge chain to the active product.
func (r *CatalogStore) FindByURL(ctx context.Context, url string) (*domain.CanonicalProduct, error) {
	var row ProductRow
	err := r.db.WithContext(ctx).Where("url = ?", url).Order("id ASC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find product by url: %w", err)
	}
	return r.ResolveActive(ctx, row.ID)
}

// CreateProduct inserts a new canonical product with its initial variants and
// the product_created log entry, atomically. A duplicate active identity is
// an invariant violation: it means the get-or-create discipline was bypassed.
func (r *CatalogStore) CreateProduct(ctx context.Context, entry *domain.ConsolidationLogEntry, p *domain.CanonicalProduct) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := ProductRow{
			Brand:       p.Brand,
			Identity:    string(p.Identity),
			Title:       p.Title,
			Category:    string(p.Category),
			URL:         p.URL,
			IsCanonical: true,
		}
		for _, v := range p.Variants {
			row.Variants = append(row.Variants, VariantRow{
				Color:     v.Color,
				Fit:       v.Fit,
				ImageURLs: marshalJSON(v.ImageURLs),
			})
		}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &domain.InvariantViolation{
					Op:     "CreateProduct",
					Detail: fmt.Sprintf("active product already exists for %s/%s", p.Brand, p.Identity),
				}
			}
			return fmt.Errorf("insert product: %w", err)
		}

		entry.TargetProductID = row.ID
		if err := r.appendLog(tx, entry); err != nil {
			return err
		}

		p.ID = row.ID
		for i := range row.Variants {
			p.Variants[i].ID = row.Variants[i].ID
		}
		return nil
	})
}

// AddVariant appends a variant to an existing product under a variant_added
// log entry. The entry commits with (and before) the variant row.
func (r *CatalogStore) AddVariant(ctx context.Context, entry *domain.ConsolidationLogEntry, productID uint, v *domain.ProductVariant) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.appendLog(tx, entry); err != nil {
			return err
		}

		row := VariantRow{
			ProductID: productID,
			Color:     v.Color,
			Fit:       v.Fit,
			ImageURLs: marshalJSON(v.ImageURLs),
		}
		if err := tx.Create(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &domain.InvariantViolation{
					Op:     "AddVariant",
					Detail: fmt.Sprintf("variant %s/%s already exists on product %d", v.Color, v.Fit, productID),
				}
			}
			return fmt.Errorf("insert variant: %w", err)
		}
		v.ID = row.ID
		return nil
	})
}

// UpdateVariant overwrites a variant's mutable content under a
// variant_updated log entry.
func (r *CatalogStore) UpdateVariant(ctx context.Context, entry *domain.ConsolidationLogEntry, v *domain.ProductVariant) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.appendLog(tx, entry); err != nil {
			return err
		}
		if err := tx.Model(&VariantRow{}).
			Where("id = ?", v.ID).
			Update("image_urls", marshalJSON(v.ImageURLs)).Error; err != nil {
			return fmt.Errorf("update variant %d: %w", v.ID, err)
		}
		return nil
	})
}

// MergeProducts soft-merges source into target: the retroactive_merge entry
// is written first, variants move over (colliding color/fit variants have
// their sizes folded into the target's variant), and the source is marked
// non-canonical pointing at the target. The source row survives so existing
// references resolve through the chain.
func (r *CatalogStore) MergeProducts(ctx context.Context, entry *domain.ConsolidationLogEntry, sourceID, targetID uint) error {
	if sourceID == targetID {
		return &domain.InvariantViolation{Op: "MergeProducts", Detail: "source and target are the same product"}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.appendLog(tx, entry); err != nil {
			return err
		}

		var targetVariants []VariantRow
		if err := tx.Where("product_id = ?", targetID).Find(&targetVariants).Error; err != nil {
			return fmt.Errorf("load target variants: %w", err)
		}
		targetByKey := make(map[string]uint, len(targetVariants))
		for _, v := range targetVariants {
			targetByKey[v.Color+"\x00"+v.Fit] = v.ID
		}

		var sourceVariants []VariantRow
		if err := tx.Where("product_id = ?", sourceID).Find(&sourceVariants).Error; err != nil {
			return fmt.Errorf("load source variants: %w", err)
		}

		for _, v := range sourceVariants {
			targetVariantID, collides := targetByKey[v.Color+"\x00"+v.Fit]
			if !collides {
				if err := tx.Model(&VariantRow{}).
					Where("id = ?", v.ID).
					Update("product_id", targetID).Error; err != nil {
					return fmt.Errorf("move variant %d: %w", v.ID, err)
				}
				continue
			}

			// Same colorway exists on both sides: fold the source
			// variant's sizes into the target's variant and retire the
			// source variant.
			var sizes []VariantSizeRow
			if err := tx.Where("variant_id = ?", v.ID).Find(&sizes).Error; err != nil {
				return fmt.Errorf("load sizes of variant %d: %w", v.ID, err)
			}
			for _, size := range sizes {
				folded := VariantSizeRow{
					VariantID:       targetVariantID,
					RawLabel:        size.RawLabel,
					CanonicalSizeID: size.CanonicalSizeID,
					CanonicalLabel:  size.CanonicalLabel,
					SortKey:         size.SortKey,
				}
				if err := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "variant_id"}, {Name: "raw_label"}},
					DoNothing: true,
				}).Create(&folded).Error; err != nil {
					return fmt.Errorf("fold size %q into variant %d: %w", size.RawLabel, targetVariantID, err)
				}
			}
			if err := tx.Where("variant_id = ?", v.ID).Delete(&VariantSizeRow{}).Error; err != nil {
				return fmt.Errorf("clear sizes of variant %d: %w", v.ID, err)
			}
			if err := tx.Delete(&VariantRow{}, v.ID).Error; err != nil {
				return fmt.Errorf("retire variant %d: %w", v.ID, err)
			}
		}

		if err := tx.Model(&ProductRow{}).
			Where("id = ?", sourceID).
			Updates(map[string]interface{}{
				"is_canonical":   false,
				"merged_into_id": targetID,
			}).Error; err != nil {
			return fmt.Errorf("mark product %d merged: %w", sourceID, err)
		}
		return nil
	})
}

// UpsertVariantSize attaches a resolved size to a variant, idempotently per
// (variant, raw label).
func (r *CatalogStore) UpsertVariantSize(ctx context.Context, variantID uint, vs *domain.VariantSize) error {
	row := VariantSizeRow{
		VariantID:       variantID,
		RawLabel:        vs.RawLabel,
		CanonicalSizeID: vs.CanonicalSizeID,
		CanonicalLabel:  vs.CanonicalLabel,
		SortKey:         vs.SortKey,
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "variant_id"}, {Name: "raw_label"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"canonical_size_id", "canonical_label", "sort_key", "updated_at",
		}),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("upsert variant size %q: %w", vs.RawLabel, err)
	}
	vs.ID = row.ID
	return nil
}

// ListLog returns the newest consolidation log entries for a brand.
func (r *CatalogStore) ListLog(ctx context.Context, brand string, limit int) ([]domain.ConsolidationLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []ConsolidationLogRow
	if err := r.db.WithContext(ctx).
		Where("brand = ?", brand).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list consolidation log: %w", err)
	}

	entries := make([]domain.ConsolidationLogEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, *logRowToDomain(&rows[i]))
	}
	return entries, nil
}

func (r *CatalogStore) appendLog(tx *gorm.DB, entry *domain.ConsolidationLogEntry) error {
	row, err := logEntryToRow(entry)
	if err != nil {
		return fmt.Errorf("encode log entry: %w", err)
	}
	if err := tx.Create(row).Error; err != nil {
		return fmt.Errorf("append consolidation log: %w", err)
	}
	entry.ID = row.ID
	return nil
}
