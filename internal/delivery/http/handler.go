package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tryonlog/catalog/internal/domain"
	"github.com/tryonlog/catalog/internal/logger"
	"github.com/tryonlog/catalog/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalog      domain.CatalogStore
	registry     domain.SizeRegistry
	reviews      domain.ReviewStore
	orchestrator *usecase.Orchestrator
	log          *logger.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	catalog domain.CatalogStore,
	registry domain.SizeRegistry,
	reviews domain.ReviewStore,
	orchestrator *usecase.Orchestrator,
	log *logger.Logger,
) *Handler {
	return &Handler{
		catalog:      catalog,
		registry:     registry,
		reviews:      reviews,
		orchestrator: orchestrator,
		log:          log.With("component", "HTTPHandler"),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "catalog-core",
	})
}

// GetProduct returns the active canonical product for a brand and identity,
// with variants and resolved sizes.
func (h *Handler) GetProduct(c *gin.Context) {
	brand := c.Param("brand")
	identity := domain.ProductIdentity(c.Param("identity"))

	product, err := h.catalog.FindActive(c.Request.Context(), brand, identity)
	if errors.Is(err, domain.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		h.log.Error("product lookup failed", "brand", brand, "identity", identity, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// LookupProduct resolves a scraped product URL to its active canonical
// product, following any merge chain.
func (h *Handler) LookupProduct(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	product, err := h.catalog.FindByURL(c.Request.Context(), url)
	if errors.Is(err, domain.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	if err != nil {
		h.log.Error("url lookup failed", "url", url, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, product)
}

// ListSizes returns the canonical size chart for a category, in chart order.
func (h *Handler) ListSizes(c *gin.Context) {
	category := domain.SizeCategory(c.Param("category"))
	if !category.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown size category"})
		return
	}

	sizes, err := h.registry.List(c.Request.Context(), category)
	if err != nil {
		h.log.Error("size chart lookup failed", "category", category, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category, "sizes": sizes})
}

// ListReviewItems returns the human-review queue, optionally filtered by
// brand and item type.
func (h *Handler) ListReviewItems(c *gin.Context) {
	brand := c.Query("brand")
	itemType := domain.ReviewItemType(c.Query("type"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	items, err := h.reviews.List(c.Request.Context(), brand, itemType, limit)
	if err != nil {
		h.log.Error("review list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

// ListConsolidationLog returns recent consolidation log entries for a brand.
func (h *Handler) ListConsolidationLog(c *gin.Context) {
	brand := c.Param("brand")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := h.catalog.ListLog(c.Request.Context(), brand, limit)
	if err != nil {
		h.log.Error("log list failed", "brand", brand, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// IngestBatch runs a scrape batch for a brand and returns the batch report.
func (h *Handler) IngestBatch(c *gin.Context) {
	brand := c.Param("brand")

	var records []domain.RawProductRecord
	if err := c.ShouldBindJSON(&records); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record payload: " + err.Error()})
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty batch"})
		return
	}

	report, err := h.orchestrator.RunBatch(c.Request.Context(), brand, records)
	if err != nil {
		h.log.Error("batch failed", "brand", brand, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvariantViolation) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error(), "report": report})
		return
	}

	c.JSON(http.StatusOK, report)
}

// Reconcile runs the retroactive-merge pass for a brand.
func (h *Handler) Reconcile(c *gin.Context) {
	brand := c.Param("brand")

	merged, flagged, err := h.orchestrator.Reconcile(c.Request.Context(), brand)
	if err != nil {
		h.log.Error("reconcile failed", "brand", brand, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"merged": merged, "duplicateCandidates": flagged})
}
