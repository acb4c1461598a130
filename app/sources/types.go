package sources

// Category identifies the event domain a source reports on.
type Category string

const (
	CategoryEarthquakes Category = "earthquakes"
	CategoryVolcanoes   Category = "volcanoes"
	CategorySpace       Category = "space"
	CategoryClimate     Category = "climate"
	CategorySevere      Category = "severe"
	CategoryScience     Category = "science"
	CategoryHurricanes  Category = "hurricanes"
)

// Categories returns all known categories in stable order.
func Categories() []Category {
	return []Category{
		CategoryEarthquakes,
		CategoryVolcanoes,
		CategorySpace,
		CategoryClimate,
		CategorySevere,
		CategoryScience,
		CategoryHurricanes,
	}
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Priority is the severity tier used for ranking and dedup tie-breaking.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank maps priorities to a numeric order where lower means more severe.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Format selects the parsing strategy hint for a source.
type Format string

const (
	FormatRSS  Format = "rss"
	FormatAtom Format = "atom"
	FormatJSON Format = "json"
)

func (f Format) Valid() bool {
	return f == FormatRSS || f == FormatAtom || f == FormatJSON
}

// Source describes one configured feed endpoint. Instances are created at
// startup and never mutated afterwards.
type Source struct {
	ID              string   `yaml:"-" json:"id"`
	Name            string   `yaml:"name" json:"name"`
	URL             string   `yaml:"url" json:"url"`
	Category        Category `yaml:"category" json:"category"`
	Priority        Priority `yaml:"priority" json:"priority"`
	Enabled         bool     `yaml:"enabled" json:"enabled"`
	Format          Format   `yaml:"format" json:"format"`
	RefreshInterval int      `yaml:"refresh_interval" json:"refresh_interval"` // minutes, advisory
}

// CategoryInfo is display metadata for a category, consumed by the UI layer.
type CategoryInfo struct {
	Label       string `json:"label"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}
