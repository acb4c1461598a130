package aggregator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/geowire/geowire/app/sources"
)

var refTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type rssItem struct {
	title   string
	link    string
	pubDate time.Time
}

func rssFeed(items ...rssItem) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0"?><rss version="2.0"><channel><title>Test Feed</title>`)
	for _, item := range items {
		fmt.Fprintf(&b, `<item><title>%s</title><link>%s</link><pubDate>%s</pubDate></item>`,
			item.title, item.link, item.pubDate.Format(time.RFC1123Z))
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func feedServer(t *testing.T, body string, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func failingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	return server
}

func writeTestSource(t *testing.T, dir, id, url string, category sources.Category, priority sources.Priority) {
	t.Helper()
	content := fmt.Sprintf("name: %s source\nurl: %s\ncategory: %s\npriority: %s\nenabled: true\nformat: rss\nrefresh_interval: 30\n",
		id, url, category, priority)
	if err := os.WriteFile(filepath.Join(dir, id+".yml"), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}
}

func newTestAggregator(t *testing.T, dir string) *Aggregator {
	t.Helper()
	registry, err := sources.NewRegistry(dir)
	if err != nil {
		t.Fatalf("Failed to build registry: %v", err)
	}

	agg := NewAggregator(registry, NewMemoryCache(time.Minute), nil, "GeoWire-test/1.0", 5*time.Second)
	agg.now = func() time.Time { return refTime }
	return agg
}

func TestRunPartialFailureIsolation(t *testing.T) {
	dir := t.TempDir()

	ok := feedServer(t, rssFeed(
		rssItem{"Solar activity update", "https://example.com/1", refTime.Add(-time.Hour)},
		rssItem{"Aurora forecast revised", "https://example.com/2", refTime.Add(-2 * time.Hour)},
	), nil)
	bad := failingServer(t)

	writeTestSource(t, dir, "ok", ok.URL, sources.CategorySpace, sources.PriorityMedium)
	writeTestSource(t, dir, "bad", bad.URL, sources.CategoryScience, sources.PriorityLow)

	agg := newTestAggregator(t, dir)
	result := agg.Run(context.Background(), Options{})

	if len(result.Items) != 2 {
		t.Fatalf("Expected 2 items from the healthy source, got: %d", len(result.Items))
	}
	if len(result.Stats.Errors) != 1 {
		t.Fatalf("Expected exactly 1 error string, got: %d (%v)", len(result.Stats.Errors), result.Stats.Errors)
	}
	if !strings.HasPrefix(result.Stats.Errors[0], "bad: ") {
		t.Errorf("Expected error attributed to source 'bad', got: %s", result.Stats.Errors[0])
	}
	if result.Stats.BySource["ok"] != 2 {
		t.Errorf("Expected 2 items counted for 'ok', got: %d", result.Stats.BySource["ok"])
	}
	if result.Stats.BySource["bad"] != 0 {
		t.Errorf("Expected 0 items counted for 'bad', got: %d", result.Stats.BySource["bad"])
	}
}

func TestRunCacheHitAvoidsNetwork(t *testing.T) {
	dir := t.TempDir()

	var hits int32
	server := feedServer(t, rssFeed(
		rssItem{"Cached story", "https://example.com/1", refTime.Add(-time.Hour)},
	), &hits)

	writeTestSource(t, dir, "src", server.URL, sources.CategorySpace, sources.PriorityMedium)

	agg := newTestAggregator(t, dir)
	opts := Options{MaxItems: 10, MaxAgeHours: 48}

	first := agg.Run(context.Background(), opts)
	second := agg.Run(context.Background(), opts)

	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("Expected exactly 1 fetch, got: %d", hits)
	}
	if second != first {
		t.Error("Expected the cached result on the second call")
	}

	agg.ClearCache()
	agg.Run(context.Background(), opts)

	if atomic.LoadInt32(&hits) != 2 {
		t.Errorf("Expected refetch after cache clear, got %d fetches", hits)
	}
}

func TestRunSortContract(t *testing.T) {
	dir := t.TempDir()

	highServer := feedServer(t, rssFeed(
		rssItem{"High priority older", "https://example.com/h1", refTime.Add(-6 * time.Hour)},
		rssItem{"High priority newer", "https://example.com/h2", refTime.Add(-3 * time.Hour)},
	), nil)
	mediumServer := feedServer(t, rssFeed(
		rssItem{"Medium priority newest", "https://example.com/m1", refTime.Add(-time.Hour)},
	), nil)

	writeTestSource(t, dir, "alerts", highServer.URL, sources.CategorySevere, sources.PriorityHigh)
	writeTestSource(t, dir, "climate", mediumServer.URL, sources.CategoryClimate, sources.PriorityMedium)

	agg := newTestAggregator(t, dir)
	result := agg.Run(context.Background(), Options{})

	if len(result.Items) != 3 {
		t.Fatalf("Expected 3 items, got: %d", len(result.Items))
	}

	wantOrder := []string{"High priority newer", "High priority older", "Medium priority newest"}
	for i, want := range wantOrder {
		if result.Items[i].Title != want {
			t.Errorf("Position %d: expected %q, got %q", i, want, result.Items[i].Title)
		}
	}
}

func TestRunTruncation(t *testing.T) {
	dir := t.TempDir()

	items := make([]rssItem, 0, 10)
	for i := 0; i < 10; i++ {
		items = append(items, rssItem{
			title:   fmt.Sprintf("Story number %d", i),
			link:    fmt.Sprintf("https://example.com/%d", i),
			pubDate: refTime.Add(-time.Duration(i+1) * time.Hour),
		})
	}
	server := feedServer(t, rssFeed(items...), nil)
	writeTestSource(t, dir, "src", server.URL, sources.CategoryScience, sources.PriorityLow)

	agg := newTestAggregator(t, dir)
	result := agg.Run(context.Background(), Options{MaxItems: 3})

	if len(result.Items) != 3 {
		t.Fatalf("Expected 3 items after truncation, got: %d", len(result.Items))
	}

	// Equal priority, so the newest three survive
	wantOrder := []string{"Story number 0", "Story number 1", "Story number 2"}
	for i, want := range wantOrder {
		if result.Items[i].Title != want {
			t.Errorf("Position %d: expected %q, got %q", i, want, result.Items[i].Title)
		}
	}

	if result.Stats.Total != 3 {
		t.Errorf("Expected stats total 3, got: %d", result.Stats.Total)
	}
}

func TestRunAgeFilterBoundary(t *testing.T) {
	dir := t.TempDir()

	server := feedServer(t, rssFeed(
		rssItem{"Exactly at boundary", "https://example.com/edge", refTime.Add(-72 * time.Hour)},
		rssItem{"Just past boundary", "https://example.com/old", refTime.Add(-72*time.Hour - time.Second)},
	), nil)
	writeTestSource(t, dir, "src", server.URL, sources.CategoryScience, sources.PriorityLow)

	agg := newTestAggregator(t, dir)
	result := agg.Run(context.Background(), Options{MaxAgeHours: 72})

	if len(result.Items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(result.Items))
	}
	if result.Items[0].Title != "Exactly at boundary" {
		t.Errorf("Expected the boundary item to be retained, got: %q", result.Items[0].Title)
	}
}

func TestRunAllSourcesFail(t *testing.T) {
	dir := t.TempDir()

	writeTestSource(t, dir, "bad1", failingServer(t).URL, sources.CategorySpace, sources.PriorityMedium)
	writeTestSource(t, dir, "bad2", failingServer(t).URL, sources.CategoryScience, sources.PriorityLow)

	agg := newTestAggregator(t, dir)
	result := agg.Run(context.Background(), Options{})

	if result.Items == nil {
		t.Fatal("Expected empty item slice, not nil")
	}
	if len(result.Items) != 0 {
		t.Fatalf("Expected 0 items, got: %d", len(result.Items))
	}
	if len(result.Stats.Errors) != 2 {
		t.Errorf("Expected 2 error strings, got: %d", len(result.Stats.Errors))
	}

	// All categories present and zero-filled
	if len(result.Stats.ByCategory) != len(sources.Categories()) {
		t.Errorf("Expected %d categories in stats, got: %d", len(sources.Categories()), len(result.Stats.ByCategory))
	}
	for category, count := range result.Stats.ByCategory {
		if count != 0 {
			t.Errorf("Expected zero count for %s, got: %d", category, count)
		}
	}

	if !result.LastUpdated.Equal(refTime) {
		t.Errorf("Expected LastUpdated %v, got: %v", refTime, result.LastUpdated)
	}
}

func TestRunCategoryFilter(t *testing.T) {
	dir := t.TempDir()

	var spaceHits, scienceHits int32
	spaceServer := feedServer(t, rssFeed(
		rssItem{"Space story", "https://example.com/space", refTime.Add(-time.Hour)},
	), &spaceHits)
	scienceServer := feedServer(t, rssFeed(
		rssItem{"Science story", "https://example.com/science", refTime.Add(-time.Hour)},
	), &scienceHits)

	writeTestSource(t, dir, "space", spaceServer.URL, sources.CategorySpace, sources.PriorityMedium)
	writeTestSource(t, dir, "science", scienceServer.URL, sources.CategoryScience, sources.PriorityLow)

	agg := newTestAggregator(t, dir)
	result := agg.Run(context.Background(), Options{Categories: []sources.Category{sources.CategorySpace}})

	if len(result.Items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(result.Items))
	}
	if result.Items[0].Category != sources.CategorySpace {
		t.Errorf("Expected space item, got category: %s", result.Items[0].Category)
	}
	if atomic.LoadInt32(&scienceHits) != 0 {
		t.Errorf("Expected no fetch for excluded category, got: %d", scienceHits)
	}
	if atomic.LoadInt32(&spaceHits) != 1 {
		t.Errorf("Expected 1 fetch for requested category, got: %d", spaceHits)
	}
}

func TestRunCrossSourceDedup(t *testing.T) {
	dir := t.TempDir()

	first := feedServer(t, rssFeed(
		rssItem{"Magnitude 6 quake shakes region", "https://example.com/a", refTime.Add(-2 * time.Hour)},
	), nil)
	second := feedServer(t, rssFeed(
		rssItem{"Magnitude 6 Quake Shakes Region!", "https://example.com/b", refTime.Add(-time.Hour)},
	), nil)

	writeTestSource(t, dir, "wire-a", first.URL, sources.CategoryScience, sources.PriorityHigh)
	writeTestSource(t, dir, "wire-b", second.URL, sources.CategoryScience, sources.PriorityLow)

	agg := newTestAggregator(t, dir)
	result := agg.Run(context.Background(), Options{})

	if len(result.Items) != 1 {
		t.Fatalf("Expected cross-source duplicates to collapse, got %d items", len(result.Items))
	}
	if result.Items[0].Priority != sources.PriorityHigh {
		t.Errorf("Expected the high-priority duplicate to survive, got: %s", result.Items[0].Priority)
	}
}

func TestFeaturedItemPrefersHighPriority(t *testing.T) {
	dir := t.TempDir()

	alertServer := feedServer(t, rssFeed(
		rssItem{"Severe alert active", "https://example.com/alert", refTime.Add(-2 * time.Hour)},
	), nil)
	scienceServer := feedServer(t, rssFeed(
		rssItem{"Newer science story", "https://example.com/science", refTime.Add(-time.Hour)},
	), nil)

	writeTestSource(t, dir, "alerts", alertServer.URL, sources.CategorySevere, sources.PriorityHigh)
	writeTestSource(t, dir, "science", scienceServer.URL, sources.CategoryScience, sources.PriorityLow)

	agg := newTestAggregator(t, dir)
	item := agg.FeaturedItem(context.Background())

	if item == nil {
		t.Fatal("Expected a featured item")
	}
	if item.Title != "Severe alert active" {
		t.Errorf("Expected the high-priority item to be featured, got: %q", item.Title)
	}
}

func TestFeaturedItemExcludesHurricanes(t *testing.T) {
	dir := t.TempDir()

	hurricaneServer := feedServer(t, rssFeed(
		rssItem{"Tropical outlook issued", "https://example.com/storm", refTime.Add(-time.Hour)},
	), nil)
	scienceServer := feedServer(t, rssFeed(
		rssItem{"Quiet science story", "https://example.com/science", refTime.Add(-3 * time.Hour)},
	), nil)

	writeTestSource(t, dir, "nhc", hurricaneServer.URL, sources.CategoryHurricanes, sources.PriorityHigh)
	writeTestSource(t, dir, "science", scienceServer.URL, sources.CategoryScience, sources.PriorityLow)

	agg := newTestAggregator(t, dir)
	item := agg.FeaturedItem(context.Background())

	if item == nil {
		t.Fatal("Expected a featured item")
	}
	if item.Category == sources.CategoryHurricanes {
		t.Error("Hurricane items must never be featured")
	}
	if item.Title != "Quiet science story" {
		t.Errorf("Expected the science item, got: %q", item.Title)
	}
}

func TestFeaturedItemEmpty(t *testing.T) {
	dir := t.TempDir()

	hurricaneServer := feedServer(t, rssFeed(
		rssItem{"Tropical outlook issued", "https://example.com/storm", refTime.Add(-time.Hour)},
	), nil)
	writeTestSource(t, dir, "nhc", hurricaneServer.URL, sources.CategoryHurricanes, sources.PriorityHigh)

	agg := newTestAggregator(t, dir)
	if item := agg.FeaturedItem(context.Background()); item != nil {
		t.Errorf("Expected nil featured item, got: %q", item.Title)
	}
}
