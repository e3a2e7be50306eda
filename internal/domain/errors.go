package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnmappableSize is returned when a raw size label cannot be parsed
	// for its category. Recoverable: the rest of the variant still persists.
	ErrUnmappableSize = errors.New("size label could not be mapped")

	// ErrExtractionFailed is returned when a brand-native identity cannot be
	// extracted from a record. Recoverable: the record degrades to a
	// singleton product rather than being dropped.
	ErrExtractionFailed = errors.New("product identity extraction failed")

	// ErrInvariantViolation indicates a uniqueness guarantee was bypassed
	// (duplicate canonical size or active product). A logic bug, fatal to
	// the operation and never recovered locally.
	ErrInvariantViolation = errors.New("catalog invariant violated")

	// ErrProductNotFound is returned when no canonical product matches a lookup.
	ErrProductNotFound = errors.New("product not found")

	// ErrSizeNotFound is returned when no canonical size matches a lookup.
	ErrSizeNotFound = errors.New("canonical size not found")

	// ErrMappingNotFound is returned when no brand size mapping exists yet
	// for a (brand, category, raw label) triple.
	ErrMappingNotFound = errors.New("brand size mapping not found")

	// ErrUnknownCategory is returned for a size category outside the seeded taxonomy.
	ErrUnknownCategory = errors.New("unknown size category")

	// ErrInvalidRecord is returned when a raw record is missing required fields.
	ErrInvalidRecord = errors.New("invalid raw product record")

	// ErrCacheMiss is returned when a key is not in the in-process cache.
	ErrCacheMiss = errors.New("cache miss")
)

// UnmappableSizeError carries the raw label and parse reason so the
// orchestrator can report it for human review instead of guessing.
type UnmappableSizeError struct {
	Brand    string       `json:"brand"`
	Category SizeCategory `json:"category"`
	RawLabel string       `json:"rawLabel"`
	Reason   ParseReason  `json:"reason"`
}

func (e *UnmappableSizeError) Error() string {
	return fmt.Sprintf("unmappable size %q for %s/%s: %s", e.RawLabel, e.Brand, e.Category, e.Reason)
}

func (e *UnmappableSizeError) Unwrap() error { return ErrUnmappableSize }

// ExtractionFailure records a record whose code/handle did not match the
// brand's expected identity shape.
type ExtractionFailure struct {
	Brand  string `json:"brand"`
	Code   string `json:"code,omitempty"`
	Handle string `json:"handle,omitempty"`
	Detail string `json:"detail"`
}

func (e *ExtractionFailure) Error() string {
	return fmt.Sprintf("identity extraction failed for %s (code=%q handle=%q): %s", e.Brand, e.Code, e.Handle, e.Detail)
}

func (e *ExtractionFailure) Unwrap() error { return ErrExtractionFailed }

// InvariantViolation describes which guarantee broke and where.
type InvariantViolation struct {
	Op     string
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation in %s: %s", e.Op, e.Detail)
}

func (e *InvariantViolation) Unwrap() error { return ErrInvariantViolation }
