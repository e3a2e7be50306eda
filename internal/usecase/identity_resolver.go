package usecase

import (
	"regexp"
	"strings"

	"github.com/tryonlog/catalog/internal/domain"
	"github.com/tryonlog/catalog/internal/logger"
)

// ExtractRule derives a brand-native product identity from a raw record.
// Rules are pure string transforms with no catalog lookups.
type ExtractRule func(record *domain.RawProductRecord) (domain.ProductIdentity, error)

// Per-brand identity shapes.
var (
	// Club Monaco handles end in the shared 9-digit code plus a 3-digit
	// color suffix: "johnny-collar-polo-795806094-001".
	clubMonacoHandlePattern = regexp.MustCompile(`-(\d{9})(?:-(\d{3}))?$`)

	// Uniqlo codes start with the product prefix: "E461189-000".
	uniqloCodePattern = regexp.MustCompile(`^(E\d{6})`)
)

// IdentityResolver dispatches to a registered extraction rule per brand.
// Adding a brand is additive: register a rule, touch nothing else.
type IdentityResolver struct {
	rules map[string]ExtractRule
	log   *logger.Logger
}

// NewIdentityResolver creates a resolver with the built-in brand rules.
func NewIdentityResolver(log *logger.Logger) *IdentityResolver {
	r := &IdentityResolver{
		rules: make(map[string]ExtractRule),
		log:   log.With("component", "IdentityResolver"),
	}
	r.Register("clubmonaco", extractClubMonaco)
	r.Register("uniqlo", extractUniqlo)
	return r
}

// Register installs the extraction rule for a brand, replacing any previous one.
func (r *IdentityResolver) Register(brand string, rule ExtractRule) {
	r.rules[normalizeBrand(brand)] = rule
}

// ExtractIdentity resolves the brand-native identity for a record. An
// unregistered brand falls back to the generic rule (the record's own code or
// handle). Failure is reported, not fatal: callers degrade the record to a
// singleton product via SyntheticIdentity.
func (r *IdentityResolver) ExtractIdentity(brand string, record *domain.RawProductRecord) (domain.ProductIdentity, error) {
	rule, ok := r.rules[normalizeBrand(brand)]
	if !ok {
		rule = extractGeneric
	}

	identity, err := rule(record)
	if err != nil {
		r.log.Debug("identity extraction failed",
			"brand", brand, "code", record.Code, "handle", record.Handle)
		return "", err
	}
	return identity, nil
}

// SyntheticIdentity builds a degraded one-product-one-variant identity for a
// record whose brand rule did not match. Better a singleton product than
// dropped data.
func SyntheticIdentity(record *domain.RawProductRecord) domain.ProductIdentity {
	switch {
	case record.Code != "":
		return domain.ProductIdentity(record.Code)
	case record.Handle != "":
		return domain.ProductIdentity(record.Handle)
	default:
		return domain.ProductIdentity(record.URL)
	}
}

func extractClubMonaco(record *domain.RawProductRecord) (domain.ProductIdentity, error) {
	m := clubMonacoHandlePattern.FindStringSubmatch(record.Handle)
	if m == nil {
		return "", &domain.ExtractionFailure{
			Brand:  record.Brand,
			Code:   record.Code,
			Handle: record.Handle,
			Detail: "handle does not end in a 9-digit code",
		}
	}
	return domain.ProductIdentity(m[1]), nil
}

func extractUniqlo(record *domain.RawProductRecord) (domain.ProductIdentity, error) {
	m := uniqloCodePattern.FindStringSubmatch(record.Code)
	if m == nil {
		return "", &domain.ExtractionFailure{
			Brand:  record.Brand,
			Code:   record.Code,
			Handle: record.Handle,
			Detail: "code does not start with an E-prefixed product number",
		}
	}
	return domain.ProductIdentity(m[1]), nil
}

func extractGeneric(record *domain.RawProductRecord) (domain.ProductIdentity, error) {
	if record.Code != "" {
		return domain.ProductIdentity(record.Code), nil
	}
	if record.Handle != "" {
		return domain.ProductIdentity(record.Handle), nil
	}
	return "", &domain.ExtractionFailure{
		Brand:  record.Brand,
		Detail: "record has neither code nor handle",
	}
}

func normalizeBrand(brand string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(brand), " ", ""))
}
