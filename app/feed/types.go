package feed

import (
	"time"

	"github.com/geowire/geowire/app/sources"
)

// Item is one normalized entry extracted from a feed. Items are derived data:
// they live for one aggregation cycle plus however long the result stays
// cached.
type Item struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	URL         string           `json:"url"`
	Source      string           `json:"source"`
	SourceID    string           `json:"source_id"`
	Category    sources.Category `json:"category"`
	Priority    sources.Priority `json:"priority"`
	Timestamp   time.Time        `json:"timestamp"`

	// Enrichment fields, populated only where the source format encodes them.
	ImageURL  string   `json:"image_url,omitempty"`
	Author    string   `json:"author,omitempty"`
	Location  string   `json:"location,omitempty"`
	Magnitude *float64 `json:"magnitude,omitempty"`
	Depth     *float64 `json:"depth,omitempty"` // km
}
