package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tryonlog/catalog/internal/domain"
)

// In-memory store implementations shared by the usecase tests. They honor the
// same uniqueness rules as the real stores so the services under test see the
// same failure modes.

type fakeRegistry struct {
	mu     sync.Mutex
	nextID uint
	sizes  map[string]*domain.CanonicalSize
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{sizes: make(map[string]*domain.CanonicalSize)}
}

func (f *fakeRegistry) Resolve(ctx context.Context, parsed domain.ParsedSize) (*domain.CanonicalSize, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := string(parsed.Category) + "|" + parsed.Label
	if size, ok := f.sizes[key]; ok {
		copied := *size
		return &copied, nil
	}
	f.nextID++
	size := &domain.CanonicalSize{
		ID:       f.nextID,
		Category: parsed.Category,
		Label:    parsed.Label,
		SortKey:  domain.SortKeyFor(parsed),
		Dims:     parsed.Dims,
	}
	f.sizes[key] = size
	copied := *size
	return &copied, nil
}

func (f *fakeRegistry) List(ctx context.Context, category domain.SizeCategory) ([]domain.CanonicalSize, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var sizes []domain.CanonicalSize
	for _, size := range f.sizes {
		if size.Category == category {
			sizes = append(sizes, *size)
		}
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i].SortKey < sizes[j].SortKey })
	return sizes, nil
}

type fakeMappingStore struct {
	mu        sync.Mutex
	mappings  map[string]*domain.CanonicalSize
	saved     map[string]*domain.BrandSizeMapping
	saveCalls int
	registry  *fakeRegistry
}

func newFakeMappingStore(registry *fakeRegistry) *fakeMappingStore {
	return &fakeMappingStore{
		mappings: make(map[string]*domain.CanonicalSize),
		saved:    make(map[string]*domain.BrandSizeMapping),
		registry: registry,
	}
}

func mappingKey(brand string, category domain.SizeCategory, rawLabel string) string {
	return brand + "|" + string(category) + "|" + rawLabel
}

func (f *fakeMappingStore) Lookup(ctx context.Context, brand string, category domain.SizeCategory, rawLabel string) (*domain.CanonicalSize, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	size, ok := f.mappings[mappingKey(brand, category, rawLabel)]
	if !ok {
		return nil, domain.ErrMappingNotFound
	}
	copied := *size
	return &copied, nil
}

func (f *fakeMappingStore) Save(ctx context.Context, m *domain.BrandSizeMapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saveCalls++
	key := mappingKey(m.Brand, m.Category, m.RawLabel)
	if _, exists := f.saved[key]; exists {
		// First write wins.
		return nil
	}
	f.saved[key] = m

	for _, size := range f.registry.sizes {
		if size.ID == m.CanonicalSizeID {
			copied := *size
			f.mappings[key] = &copied
			break
		}
	}
	return nil
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string]*domain.CanonicalSize
	hits int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]*domain.CanonicalSize)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (*domain.CanonicalSize, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	size, ok := f.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	f.hits++
	copied := *size
	return &copied, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, size *domain.CanonicalSize) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *size
	f.data[key] = &copied
	return nil
}

type fakeCatalog struct {
	mu            sync.Mutex
	nextProductID uint
	nextVariantID uint
	products      map[uint]*domain.CanonicalProduct
	sizes         map[uint]map[string]domain.VariantSize
	logEntries    []domain.ConsolidationLogEntry
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: make(map[uint]*domain.CanonicalProduct),
		sizes:    make(map[uint]map[string]domain.VariantSize),
	}
}

func (f *fakeCatalog) FindActive(ctx context.Context, brand string, identity domain.ProductIdentity) (*domain.CanonicalProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.Brand == brand && p.Identity == identity && p.IsCanonical {
			copied := *p
			return &copied, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (f *fakeCatalog) ListActive(ctx context.Context, brand string) ([]domain.CanonicalProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var products []domain.CanonicalProduct
	for _, p := range f.products {
		if p.Brand == brand && p.IsCanonical {
			products = append(products, *p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (f *fakeCatalog) GetProduct(ctx context.Context, id uint) (*domain.CanonicalProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeCatalog) ResolveActive(ctx context.Context, id uint) (*domain.CanonicalProduct, error) {
	current := id
	for hop := 0; hop < 10; hop++ {
		p, err := f.GetProduct(ctx, current)
		if err != nil {
			return nil, err
		}
		if p.IsCanonical {
			return p, nil
		}
		if p.MergedIntoID == nil {
			return nil, &domain.InvariantViolation{Op: "ResolveActive", Detail: "dangling merge pointer"}
		}
		current = *p.MergedIntoID
	}
	return nil, &domain.InvariantViolation{Op: "ResolveActive", Detail: "merge chain too long"}
}

func (f *fakeCatalog) FindByURL(ctx context.Context, url string) (*domain.CanonicalProduct, error) {
	f.mu.Lock()
	var found *domain.CanonicalProduct
	for _, p := range f.products {
		if p.URL == url && (found == nil || p.ID < found.ID) {
			found = p
		}
	}
	f.mu.Unlock()
	if found == nil {
		return nil, domain.ErrProductNotFound
	}
	return f.ResolveActive(ctx, found.ID)
}

func (f *fakeCatalog) CreateProduct(ctx context.Context, entry *domain.ConsolidationLogEntry, p *domain.CanonicalProduct) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.products {
		if existing.Brand == p.Brand && existing.Identity == p.Identity && existing.IsCanonical {
			return &domain.InvariantViolation{
				Op:     "CreateProduct",
				Detail: fmt.Sprintf("active product already exists for %s/%s", p.Brand, p.Identity),
			}
		}
	}

	f.nextProductID++
	p.ID = f.nextProductID
	p.IsCanonical = true
	for i := range p.Variants {
		f.nextVariantID++
		p.Variants[i].ID = f.nextVariantID
	}
	copied := *p
	copied.Variants = append([]domain.ProductVariant(nil), p.Variants...)
	f.products[p.ID] = &copied

	entry.TargetProductID = p.ID
	f.appendLog(entry)
	return nil
}

func (f *fakeCatalog) AddVariant(ctx context.Context, entry *domain.ConsolidationLogEntry, productID uint, v *domain.ProductVariant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	for _, existing := range p.Variants {
		if existing.Color == v.Color && existing.Fit == v.Fit {
			return &domain.InvariantViolation{Op: "AddVariant", Detail: "variant already exists"}
		}
	}
	f.appendLog(entry)
	f.nextVariantID++
	v.ID = f.nextVariantID
	p.Variants = append(p.Variants, *v)
	return nil
}

func (f *fakeCatalog) UpdateVariant(ctx context.Context, entry *domain.ConsolidationLogEntry, v *domain.ProductVariant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendLog(entry)
	for _, p := range f.products {
		for i := range p.Variants {
			if p.Variants[i].ID == v.ID {
				p.Variants[i].ImageURLs = v.ImageURLs
				return nil
			}
		}
	}
	return domain.ErrProductNotFound
}

func (f *fakeCatalog) MergeProducts(ctx context.Context, entry *domain.ConsolidationLogEntry, sourceID, targetID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	source, ok := f.products[sourceID]
	if !ok {
		return domain.ErrProductNotFound
	}
	target, ok := f.products[targetID]
	if !ok {
		return domain.ErrProductNotFound
	}

	f.appendLog(entry)

	existing := make(map[string]bool, len(target.Variants))
	for _, v := range target.Variants {
		existing[v.Color+"\x00"+v.Fit] = true
	}
	for _, v := range source.Variants {
		if !existing[v.Color+"\x00"+v.Fit] {
			target.Variants = append(target.Variants, v)
		}
	}
	source.Variants = nil
	source.IsCanonical = false
	source.MergedIntoID = &target.ID
	return nil
}

func (f *fakeCatalog) UpsertVariantSize(ctx context.Context, variantID uint, vs *domain.VariantSize) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sizes[variantID] == nil {
		f.sizes[variantID] = make(map[string]domain.VariantSize)
	}
	f.sizes[variantID][vs.RawLabel] = *vs
	return nil
}

func (f *fakeCatalog) ListLog(ctx context.Context, brand string, limit int) ([]domain.ConsolidationLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var entries []domain.ConsolidationLogEntry
	for i := len(f.logEntries) - 1; i >= 0 && (limit <= 0 || len(entries) < limit); i-- {
		if f.logEntries[i].Brand == brand {
			entries = append(entries, f.logEntries[i])
		}
	}
	return entries, nil
}

func (f *fakeCatalog) appendLog(entry *domain.ConsolidationLogEntry) {
	entry.ID = uint(len(f.logEntries) + 1)
	f.logEntries = append(f.logEntries, *entry)
}

func (f *fakeCatalog) actionCounts() map[domain.ConsolidationAction]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[domain.ConsolidationAction]int)
	for _, entry := range f.logEntries {
		counts[entry.Action]++
	}
	return counts
}

type fakeReviews struct {
	mu    sync.Mutex
	items []domain.ReviewItem
}

func (f *fakeReviews) Add(ctx context.Context, item *domain.ReviewItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = uint(len(f.items) + 1)
	f.items = append(f.items, *item)
	return nil
}

func (f *fakeReviews) List(ctx context.Context, brand string, itemType domain.ReviewItemType, limit int) ([]domain.ReviewItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []domain.ReviewItem
	for i := len(f.items) - 1; i >= 0; i-- {
		item := f.items[i]
		if brand != "" && item.Brand != brand {
			continue
		}
		if itemType != "" && item.Type != itemType {
			continue
		}
		items = append(items, item)
		if limit > 0 && len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (f *fakeReviews) ofType(itemType domain.ReviewItemType) []domain.ReviewItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []domain.ReviewItem
	for _, item := range f.items {
		if item.Type == itemType {
			items = append(items, item)
		}
	}
	return items
}

// rawLabelsFor flattens the stored size labels for a variant, for assertions.
func (f *fakeCatalog) rawLabelsFor(variantID uint) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var labels []string
	for label := range f.sizes[variantID] {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return strings.Join(labels, ",")
}
