package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geowire/geowire/app/aggregator"
	"github.com/geowire/geowire/app/cfg"
	"github.com/geowire/geowire/app/sources"
)

// GetFeed runs one aggregation cycle for the requested query shape.
// Query parameters: categories (comma-separated), max_items, max_age (hours).
func (h *Handler) GetFeed(c *gin.Context) {
	opts := aggregator.Options{}

	if raw := c.Query("categories"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			category := sources.Category(strings.TrimSpace(part))
			if !category.Valid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category: " + string(category)})
				return
			}
			opts.Categories = append(opts.Categories, category)
		}
	}

	if raw := c.Query("max_items"); raw != "" {
		maxItems, err := strconv.Atoi(raw)
		if err != nil || maxItems <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_items must be a positive integer"})
			return
		}
		opts.MaxItems = maxItems
	}

	if raw := c.Query("max_age"); raw != "" {
		maxAge, err := strconv.Atoi(raw)
		if err != nil || maxAge <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_age must be a positive integer (hours)"})
			return
		}
		opts.MaxAgeHours = maxAge
	}

	result := h.aggregator.Run(c.Request.Context(), opts)

	c.Header("X-Item-Count", strconv.Itoa(result.Stats.Total))
	c.Header("X-Last-Updated", result.LastUpdated.Format(time.RFC3339))

	c.JSON(http.StatusOK, result)
}

// GetFeaturedItem returns the current featured item, or 204 when no recent
// item qualifies.
func (h *Handler) GetFeaturedItem(c *gin.Context) {
	item := h.aggregator.FeaturedItem(c.Request.Context())
	if item == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, item)
}

// ClearCache empties the aggregation cache so the next query refetches.
func (h *Handler) ClearCache(c *gin.Context) {
	h.aggregator.ClearCache()
	slog.Info("Aggregation cache cleared")
	c.JSON(http.StatusOK, gin.H{"status": "cache cleared"})
}

// ListSources returns the full source registry.
func (h *Handler) ListSources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": h.registry.All()})
}

// ListCategories returns display metadata for every known category.
func (h *Handler) ListCategories(c *gin.Context) {
	categories := make([]gin.H, 0, len(sources.Categories()))
	for _, category := range sources.Categories() {
		info := sources.Info(category)
		categories = append(categories, gin.H{
			"id":          category,
			"label":       info.Label,
			"icon":        info.Icon,
			"description": info.Description,
		})
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   cfg.Get().Version,
		"sources":   h.registry.Count(),
	}

	c.JSON(http.StatusOK, health)
}

// GetStats serves aggregation history diagnostics.
func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"sources": h.registry.Count(),
		"enabled": len(h.registry.Enabled()),
	}

	if h.history != nil {
		ctx := c.Request.Context()

		if count, err := h.history.AggregationCount(ctx); err == nil {
			stats["aggregations"] = count
		} else {
			slog.Error("Database error", "operation", "aggregation_count", "error", err)
		}

		if last, err := h.history.LastAggregation(ctx); err == nil && last != nil {
			stats["last_aggregation"] = last
		}

		if failures, err := h.history.SourceFailureCounts(ctx, time.Now().Add(-24*time.Hour)); err == nil {
			stats["source_failures_24h"] = failures
		}
	}

	c.JSON(http.StatusOK, stats)
}
