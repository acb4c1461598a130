package feed

import (
	"github.com/geowire/geowire/app/sources"
)

// Magnitude thresholds for earthquake severity reclassification.
const (
	magnitudeHigh   = 6.0
	magnitudeMedium = 5.0
)

// Classify derives the priority tier for an item. For earthquake sources with
// a parsed magnitude the source default is overridden by fixed thresholds;
// everything else keeps the source's configured priority.
func Classify(src sources.Source, magnitude *float64) sources.Priority {
	if src.Category != sources.CategoryEarthquakes || magnitude == nil {
		return src.Priority
	}

	switch {
	case *magnitude >= magnitudeHigh:
		return sources.PriorityHigh
	case *magnitude >= magnitudeMedium:
		return sources.PriorityMedium
	default:
		return sources.PriorityLow
	}
}
