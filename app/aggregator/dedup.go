package aggregator

import (
	"strings"
	"unicode"

	"github.com/geowire/geowire/app/feed"
)

const dedupKeyLen = 50

// Deduplicator collapses near-duplicate items across sources by normalized
// title. Among duplicates the more severe priority wins; on a priority tie
// the later timestamp wins.
type Deduplicator struct{}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Run is a single pass over the merged item list: one survivor per dedup
// key, first-seen key order preserved. Final ordering is imposed by the
// sort step afterwards.
func (d *Deduplicator) Run(items []feed.Item) []feed.Item {
	best := make(map[string]feed.Item, len(items))
	order := make([]string, 0, len(items))

	for _, item := range items {
		key := dedupKey(item.Title)

		current, seen := best[key]
		if !seen {
			best[key] = item
			order = append(order, key)
			continue
		}

		if betterDuplicate(item, current) {
			best[key] = item
		}
	}

	out := make([]feed.Item, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

func betterDuplicate(candidate, current feed.Item) bool {
	if candidate.Priority.Rank() != current.Priority.Rank() {
		return candidate.Priority.Rank() < current.Priority.Rank()
	}
	return candidate.Timestamp.After(current.Timestamp)
}

// dedupKey lowercases the title, strips everything except letters, digits
// and spaces, collapses whitespace and truncates to the first 50 characters.
func dedupKey(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	key := strings.Join(strings.Fields(b.String()), " ")

	runes := []rune(key)
	if len(runes) > dedupKeyLen {
		key = string(runes[:dedupKeyLen])
	}
	return key
}
