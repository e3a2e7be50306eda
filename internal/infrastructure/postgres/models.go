package postgres

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/tryonlog/catalog/internal/domain"
)

// SizeCategoryRow seeds the size taxonomy. Append-only: categories are never
// redefined once downstream mappings exist.
type SizeCategoryRow struct {
	ID         uint           `gorm:"primaryKey"`
	Name       string         `gorm:"uniqueIndex;not null"`
	Dimensions datatypes.JSON `gorm:"type:json"`
	CreatedAt  time.Time      `gorm:"not null"`
}

func (SizeCategoryRow) TableName() string { return "size_categories" }

// CanonicalSizeRow holds one canonical size. DimKey is the normalized label
// derived deterministically from the dimension map, so the unique index on
// (category, dim_key) enforces the one-size-per-dimension-map invariant.
type CanonicalSizeRow struct {
	ID        uint           `gorm:"primaryKey"`
	Category  string         `gorm:"not null;uniqueIndex:uq_sizes_category_dim_key,priority:1"`
	DimKey    string         `gorm:"not null;uniqueIndex:uq_sizes_category_dim_key,priority:2"`
	Label     string         `gorm:"not null"`
	SortKey   int64          `gorm:"not null;index"`
	Dims      datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time      `gorm:"not null"`
}

func (CanonicalSizeRow) TableName() string { return "canonical_sizes" }

// BrandSizeMappingRow memoizes one brand's literal size string. Unique on
// (brand, category, raw_label): each literal maps to exactly one canonical
// size, deterministically.
type BrandSizeMappingRow struct {
	ID              uint      `gorm:"primaryKey"`
	Brand           string    `gorm:"not null;uniqueIndex:uq_mappings_triple,priority:1"`
	Category        string    `gorm:"not null;uniqueIndex:uq_mappings_triple,priority:2"`
	RawLabel        string    `gorm:"not null;uniqueIndex:uq_mappings_triple,priority:3"`
	CanonicalSizeID uint      `gorm:"not null;index"`
	FitHint         string    `gorm:""`
	Notes           string    `gorm:""`
	CreatedAt       time.Time `gorm:"not null"`
}

func (BrandSizeMappingRow) TableName() string { return "brand_size_mappings" }

// ProductRow is one canonical product. Merged products stay in place with
// is_canonical false and merged_into_id pointing at the survivor; a partial
// unique index on (brand, identity) where is_canonical guards against two
// active products sharing an identity.
type ProductRow struct {
	ID           uint      `gorm:"primaryKey"`
	Brand        string    `gorm:"not null;index:idx_products_brand_identity,priority:1"`
	Identity     string    `gorm:"not null;index:idx_products_brand_identity,priority:2"`
	Title        string    `gorm:"not null"`
	Category     string    `gorm:"not null"`
	URL          string    `gorm:"index"`
	IsCanonical  bool      `gorm:"not null;default:true"`
	MergedIntoID *uint     `gorm:"index"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`

	Variants []VariantRow `gorm:"foreignKey:ProductID"`
}

func (ProductRow) TableName() string { return "products" }

// VariantRow is one color/fit under a product, unique per product.
type VariantRow struct {
	ID        uint           `gorm:"primaryKey"`
	ProductID uint           `gorm:"not null;uniqueIndex:uq_variants_key,priority:1"`
	Color     string         `gorm:"not null;uniqueIndex:uq_variants_key,priority:2"`
	Fit       string         `gorm:"not null;default:'';uniqueIndex:uq_variants_key,priority:3"`
	ImageURLs datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`

	Sizes []VariantSizeRow `gorm:"foreignKey:VariantID"`
}

func (VariantRow) TableName() string { return "product_variants" }

// VariantSizeRow attaches a resolved canonical size to a variant, keeping the
// literal scraped label alongside. Label and sort key are denormalized from
// canonical_sizes so catalog reads need no join.
type VariantSizeRow struct {
	ID              uint      `gorm:"primaryKey"`
	VariantID       uint      `gorm:"not null;uniqueIndex:uq_variant_sizes_key,priority:1"`
	RawLabel        string    `gorm:"not null;uniqueIndex:uq_variant_sizes_key,priority:2"`
	CanonicalSizeID uint      `gorm:"not null;index"`
	CanonicalLabel  string    `gorm:"not null"`
	SortKey         int64     `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (VariantSizeRow) TableName() string { return "variant_sizes" }

// ConsolidationLogRow is the append-only audit trail. Rows are only ever
// inserted.
type ConsolidationLogRow struct {
	ID              uint           `gorm:"primaryKey"`
	BatchID         string         `gorm:"index"`
	Brand           string         `gorm:"not null;index"`
	Action          string         `gorm:"not null"`
	SourceProductID *uint          `gorm:""`
	TargetProductID uint           `gorm:"not null;index"`
	Reason          string         `gorm:""`
	Metadata        datatypes.JSON `gorm:"type:json"`
	CreatedAt       time.Time      `gorm:"not null"`
}

func (ConsolidationLogRow) TableName() string { return "consolidation_log" }

// ReviewItemRow is one case routed to human review.
type ReviewItemRow struct {
	ID        uint           `gorm:"primaryKey"`
	BatchID   string         `gorm:"index"`
	Brand     string         `gorm:"not null;index"`
	Type      string         `gorm:"not null;index"`
	Payload   datatypes.JSON `gorm:"type:json"`
	CreatedAt time.Time      `gorm:"not null"`
}

func (ReviewItemRow) TableName() string { return "review_items" }

// --- row <-> domain mapping ---

func sizeRowToDomain(row *CanonicalSizeRow) *domain.CanonicalSize {
	size := &domain.CanonicalSize{
		ID:       row.ID,
		Category: domain.SizeCategory(row.Category),
		Label:    row.Label,
		SortKey:  row.SortKey,
	}
	if len(row.Dims) > 0 {
		_ = json.Unmarshal(row.Dims, &size.Dims)
	}
	return size
}

func productRowToDomain(row *ProductRow) *domain.CanonicalProduct {
	product := &domain.CanonicalProduct{
		ID:           row.ID,
		Brand:        row.Brand,
		Identity:     domain.ProductIdentity(row.Identity),
		Title:        row.Title,
		Category:     domain.SizeCategory(row.Category),
		URL:          row.URL,
		IsCanonical:  row.IsCanonical,
		MergedIntoID: row.MergedIntoID,
		CreatedAt:    row.CreatedAt,
	}
	for i := range row.Variants {
		product.Variants = append(product.Variants, *variantRowToDomain(&row.Variants[i]))
	}
	return product
}

func variantRowToDomain(row *VariantRow) *domain.ProductVariant {
	variant := &domain.ProductVariant{
		ID:    row.ID,
		Color: row.Color,
		Fit:   row.Fit,
	}
	if len(row.ImageURLs) > 0 {
		_ = json.Unmarshal(row.ImageURLs, &variant.ImageURLs)
	}
	for _, size := range row.Sizes {
		variant.Sizes = append(variant.Sizes, domain.VariantSize{
			ID:              size.ID,
			RawLabel:        size.RawLabel,
			CanonicalSizeID: size.CanonicalSizeID,
			CanonicalLabel:  size.CanonicalLabel,
			SortKey:         size.SortKey,
		})
	}
	return variant
}

func logRowToDomain(row *ConsolidationLogRow) *domain.ConsolidationLogEntry {
	entry := &domain.ConsolidationLogEntry{
		ID:              row.ID,
		BatchID:         row.BatchID,
		Brand:           row.Brand,
		Action:          domain.ConsolidationAction(row.Action),
		SourceProductID: row.SourceProductID,
		TargetProductID: row.TargetProductID,
		Reason:          row.Reason,
		CreatedAt:       row.CreatedAt,
	}
	if len(row.Metadata) > 0 {
		_ = json.Unmarshal(row.Metadata, &entry.Metadata)
	}
	return entry
}

func logEntryToRow(entry *domain.ConsolidationLogEntry) (*ConsolidationLogRow, error) {
	row := &ConsolidationLogRow{
		BatchID:         entry.BatchID,
		Brand:           entry.Brand,
		Action:          string(entry.Action),
		SourceProductID: entry.SourceProductID,
		TargetProductID: entry.TargetProductID,
		Reason:          entry.Reason,
	}
	if entry.Metadata != nil {
		metadata, err := json.Marshal(entry.Metadata)
		if err != nil {
			return nil, err
		}
		row.Metadata = metadata
	}
	return row, nil
}

func reviewRowToDomain(row *ReviewItemRow) *domain.ReviewItem {
	item := &domain.ReviewItem{
		ID:        row.ID,
		BatchID:   row.BatchID,
		Brand:     row.Brand,
		Type:      domain.ReviewItemType(row.Type),
		CreatedAt: row.CreatedAt,
	}
	if len(row.Payload) > 0 {
		_ = json.Unmarshal(row.Payload, &item.Payload)
	}
	return item
}

func marshalJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
