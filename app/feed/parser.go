package feed

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/geowire/geowire/app/sources"
)

const (
	// maxItemsPerFeed caps per-feed processing cost and guards against
	// pathological feeds.
	maxItemsPerFeed = 20

	maxDescriptionLen = 500
)

var (
	// "M 6.1 - 23 km SSW of Somewhere" (USGS earthquake title convention)
	quakeTitleRe = regexp.MustCompile(`^M\s*(\d+(?:\.\d+)?)\s+-\s+(.+)$`)
	// "Depth: 10 km" or "Depth 10.00 km" after markup stripping
	quakeDepthRe = regexp.MustCompile(`(?i)depth:?\s*(\d+(?:\.\d+)?)\s*km`)
)

// Parser converts one raw feed payload into normalized items for exactly one
// source. gofeed handles RSS 2.0, Atom and JSON Feed detection; entry-level
// normalization is isolated so one unusable entry never drops the feed.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses data fetched from src. A feed-level parse failure returns an
// error and no items; entries missing both title and link are skipped
// silently. fetchedAt is the timestamp fallback for entries without a usable
// publish or update date.
func (p *Parser) Run(data []byte, src sources.Source, fetchedAt time.Time) ([]Item, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := parsed.Items
	if len(entries) > maxItemsPerFeed {
		entries = entries[:maxItemsPerFeed]
	}

	items := make([]Item, 0, len(entries))
	for ordinal, entry := range entries {
		item, ok := p.normalizeEntry(entry, src, fetchedAt, ordinal)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func (p *Parser) normalizeEntry(entry *gofeed.Item, src sources.Source, fetchedAt time.Time, ordinal int) (Item, bool) {
	if entry == nil {
		return Item{}, false
	}

	title := CleanText(entry.Title)
	link := strings.TrimSpace(cmp.Or(entry.Link, entry.GUID))
	if title == "" || link == "" {
		return Item{}, false
	}

	rawBody := cmp.Or(entry.Description, entry.Content)
	description := Truncate(CleanText(rawBody), maxDescriptionLen)

	item := Item{
		ID:          itemID(src.ID, link, ordinal),
		Title:       title,
		Description: description,
		URL:         link,
		Source:      src.Name,
		SourceID:    src.ID,
		Category:    src.Category,
		Timestamp:   entryTimestamp(entry, fetchedAt),
		ImageURL:    extractImageURL(entry, rawBody),
		Author:      extractAuthor(entry),
	}

	if src.Category == sources.CategoryEarthquakes {
		item.Magnitude, item.Location = parseQuakeTitle(title)
		item.Depth = parseQuakeDepth(CleanText(rawBody))
	}

	item.Priority = Classify(src, item.Magnitude)

	return item, true
}

// itemID derives a stable item identifier so repeated fetches of an unchanged
// feed yield identical IDs.
func itemID(sourceID, link string, ordinal int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d", sourceID, link, ordinal))
	return hex.EncodeToString(sum[:])[:16]
}

// entryTimestamp picks the entry's publish time, falling back to the update
// time and finally to the fetch time. Never returns a zero time: an epoch
// fallback would corrupt recency-based sorting.
func entryTimestamp(entry *gofeed.Item, fetchedAt time.Time) time.Time {
	if entry.PublishedParsed != nil && !entry.PublishedParsed.IsZero() {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil && !entry.UpdatedParsed.IsZero() {
		return *entry.UpdatedParsed
	}
	return fetchedAt
}

// extractImageURL looks for an item image in preference order: enclosure,
// media:content extension, feed-provided item image, then a best-effort
// <img src> scan of the description markup.
func extractImageURL(entry *gofeed.Item, rawBody string) string {
	for _, enc := range entry.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if enc.Type == "" || strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}

	if media, ok := entry.Extensions["media"]; ok {
		for _, content := range media["content"] {
			if url := content.Attrs["url"]; url != "" {
				return url
			}
		}
		for _, thumb := range media["thumbnail"] {
			if url := thumb.Attrs["url"]; url != "" {
				return url
			}
		}
	}

	if entry.Image != nil && entry.Image.URL != "" {
		return entry.Image.URL
	}

	return FirstImageURL(rawBody)
}

func extractAuthor(entry *gofeed.Item) string {
	for _, author := range entry.Authors {
		if author != nil && author.Name != "" {
			return author.Name
		}
	}
	if entry.Author != nil {
		return cmp.Or(entry.Author.Name, entry.Author.Email)
	}
	return ""
}

// parseQuakeTitle extracts a leading "M <number>" magnitude token and the
// trailing location from an earthquake bulletin title.
func parseQuakeTitle(title string) (*float64, string) {
	match := quakeTitleRe.FindStringSubmatch(title)
	if match == nil {
		return nil, ""
	}

	magnitude, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil, ""
	}

	return &magnitude, strings.TrimSpace(match[2])
}

// parseQuakeDepth scans cleaned summary text for a "Depth: <number> km"
// pattern.
func parseQuakeDepth(text string) *float64 {
	match := quakeDepthRe.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	depth, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}

	return &depth
}
