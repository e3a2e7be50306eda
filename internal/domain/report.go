package domain

import "time"

// ReviewItemType classifies items on the human-review surface.
type ReviewItemType string

const (
	ReviewUnmappableSize     ReviewItemType = "unmappable_size"
	ReviewExtractionFailure  ReviewItemType = "extraction_failure"
	ReviewDuplicateCandidate ReviewItemType = "duplicate_candidate"
)

// ReviewItem is one ambiguous case routed to a human instead of guessed at.
// Duplicate candidates are advisory only and never trigger automatic merges.
type ReviewItem struct {
	ID        uint                   `json:"id"`
	BatchID   string                 `json:"batchId,omitempty"`
	Brand     string                 `json:"brand"`
	Type      ReviewItemType         `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"createdAt"`
}

// BatchReport summarizes one ingestion run. Parsing and extraction errors are
// aggregated here rather than aborting the batch.
type BatchReport struct {
	BatchID            string                 `json:"batchId"`
	Brand              string                 `json:"brand"`
	RecordsSeen        int                    `json:"recordsSeen"`
	ProductsCreated    int                    `json:"productsCreated"`
	VariantsAdded      int                    `json:"variantsAdded"`
	VariantsUpdated    int                    `json:"variantsUpdated"`
	SizesMapped        int                    `json:"sizesMapped"`
	UnmappableSizes    []*UnmappableSizeError `json:"unmappableSizes,omitempty"`
	ExtractionFailures []*ExtractionFailure   `json:"extractionFailures,omitempty"`
	StartedAt          time.Time              `json:"startedAt"`
	FinishedAt         time.Time              `json:"finishedAt"`
}
