package aggregator

import (
	"fmt"
	"strings"
	"time"

	"github.com/geowire/geowire/app/feed"
	"github.com/geowire/geowire/app/sources"
)

const (
	DefaultMaxItems    = 50
	DefaultMaxAgeHours = 72
)

// Options shapes one aggregation query. Zero values fall back to the
// defaults above; an empty Categories list means all categories.
type Options struct {
	Categories  []sources.Category
	MaxItems    int
	MaxAgeHours int
}

func (o Options) withDefaults() Options {
	if o.MaxItems <= 0 {
		o.MaxItems = DefaultMaxItems
	}
	if o.MaxAgeHours <= 0 {
		o.MaxAgeHours = DefaultMaxAgeHours
	}
	return o
}

// cacheKey derives the cache key from the exact option values.
func (o Options) cacheKey() string {
	categories := make([]string, len(o.Categories))
	for i, c := range o.Categories {
		categories[i] = string(c)
	}
	return fmt.Sprintf("categories=%s&max_items=%d&max_age=%d",
		strings.Join(categories, ","), o.MaxItems, o.MaxAgeHours)
}

// Stats carries diagnostics for one aggregation cycle. ByCategory always
// contains every known category, zero-filled.
type Stats struct {
	Total      int                      `json:"total"`
	ByCategory map[sources.Category]int `json:"by_category"`
	BySource   map[string]int           `json:"by_source"`
	Errors     []string                 `json:"errors"`
}

// Result is the aggregation output: the ranked, truncated item list plus
// stats and the completion timestamp.
type Result struct {
	Items       []feed.Item `json:"items"`
	Stats       Stats       `json:"stats"`
	LastUpdated time.Time   `json:"last_updated"`
}
