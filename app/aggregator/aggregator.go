package aggregator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/geowire/geowire/app/feed"
	"github.com/geowire/geowire/app/sources"
)

const (
	featuredMaxItems    = 10
	featuredLookbackHrs = 24

	acceptHeader = "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8"
)

// HistoryRecorder persists per-cycle aggregation telemetry. Failures are
// logged by the aggregator, never propagated to callers.
type HistoryRecorder interface {
	RecordAggregation(ctx context.Context, result *Result) error
}

// Aggregator fans out concurrent fetches across enabled sources, merges the
// results into a ranked, deduplicated, time-bounded item list and caches the
// outcome per query shape.
type Aggregator struct {
	registry     *sources.Registry
	parser       *feed.Parser
	dedup        *Deduplicator
	cache        Cache
	history      HistoryRecorder
	httpClient   *http.Client
	userAgent    string
	fetchTimeout time.Duration
	now          func() time.Time
}

func NewAggregator(registry *sources.Registry, cache Cache, history HistoryRecorder,
	userAgent string, fetchTimeout time.Duration) *Aggregator {
	return &Aggregator{
		registry:     registry,
		parser:       feed.NewParser(),
		dedup:        NewDeduplicator(),
		cache:        cache,
		history:      history,
		httpClient:   &http.Client{},
		userAgent:    userAgent,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
	}
}

type fetchResult struct {
	source sources.Source
	items  []feed.Item
	err    error
}

// Run executes one aggregation cycle. Source-level failures contribute an
// error string and zero items; the call itself always produces a result, and
// an empty item list is a valid outcome.
func (a *Aggregator) Run(ctx context.Context, opts Options) *Result {
	opts = opts.withDefaults()

	key := opts.cacheKey()
	if cached, ok := a.cache.Get(key); ok {
		cacheHitsTotal.Inc()
		slog.Debug("Aggregation cache hit", "key", key)
		return cached
	}

	candidates := a.registry.Enabled(opts.Categories...)

	results := make(chan fetchResult, len(candidates))
	var wg sync.WaitGroup
	for _, src := range candidates {
		wg.Add(1)
		go func(src sources.Source) {
			defer wg.Done()
			items, err := a.fetchSource(ctx, src)
			results <- fetchResult{source: src, items: items, err: err}
		}(src)
	}
	wg.Wait()
	close(results)

	stats := Stats{
		BySource: make(map[string]int, len(candidates)),
		Errors:   []string{},
	}

	merged := make([]feed.Item, 0, len(candidates)*8)
	for res := range results {
		if res.err != nil {
			fetchErrorsTotal.Inc()
			slog.Warn("Source fetch failed", "source", res.source.ID, "error", res.err)
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", res.source.ID, res.err))
			stats.BySource[res.source.ID] = 0
			continue
		}
		stats.BySource[res.source.ID] = len(res.items)
		merged = append(merged, res.items...)
	}

	now := a.now()
	cutoff := now.Add(-time.Duration(opts.MaxAgeHours) * time.Hour)

	fresh := make([]feed.Item, 0, len(merged))
	for _, item := range merged {
		if !item.Timestamp.Before(cutoff) {
			fresh = append(fresh, item)
		}
	}

	items := a.dedup.Run(fresh)

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority.Rank() != items[j].Priority.Rank() {
			return items[i].Priority.Rank() < items[j].Priority.Rank()
		}
		return items[i].Timestamp.After(items[j].Timestamp)
	})

	if len(items) > opts.MaxItems {
		items = items[:opts.MaxItems]
	}

	byCategory := make(map[sources.Category]int, len(sources.Categories()))
	for _, category := range sources.Categories() {
		byCategory[category] = 0
	}
	for _, item := range items {
		byCategory[item.Category]++
	}

	stats.Total = len(items)
	stats.ByCategory = byCategory

	result := &Result{
		Items:       items,
		Stats:       stats,
		LastUpdated: now,
	}

	a.cache.Set(key, result)

	if a.history != nil {
		if err := a.history.RecordAggregation(ctx, result); err != nil {
			slog.Warn("Failed to record aggregation history", "error", err)
		}
	}

	slog.Info("Aggregation completed",
		"sources", len(candidates),
		"items", len(items),
		"errors", len(stats.Errors))

	return result
}

// FeaturedItem returns a recent item to anchor a featured slot: the first
// high-priority item from a short lookback window, else the first item, else
// nil. Hurricane sources are excluded; tropical outlooks are too seasonal to
// feature.
func (a *Aggregator) FeaturedItem(ctx context.Context) *feed.Item {
	categories := make([]sources.Category, 0, len(sources.Categories())-1)
	for _, category := range sources.Categories() {
		if category == sources.CategoryHurricanes {
			continue
		}
		categories = append(categories, category)
	}

	result := a.Run(ctx, Options{
		Categories:  categories,
		MaxItems:    featuredMaxItems,
		MaxAgeHours: featuredLookbackHrs,
	})

	for i := range result.Items {
		if result.Items[i].Priority == sources.PriorityHigh {
			return &result.Items[i]
		}
	}
	if len(result.Items) > 0 {
		return &result.Items[0]
	}
	return nil
}

// ClearCache empties the aggregation cache unconditionally.
func (a *Aggregator) ClearCache() {
	a.cache.Clear()
}

// fetchSource performs the single suspension point per source: one HTTP GET
// bounded by the fetch timeout, then synchronous parsing. A failure here is
// isolated to this source.
func (a *Aggregator) fetchSource(ctx context.Context, src sources.Source) ([]feed.Item, error) {
	fetchesTotal.Inc()

	timeoutCtx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return a.parser.Run(data, src, a.now())
}
