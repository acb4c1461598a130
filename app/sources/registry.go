package sources

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.yml
var defaultsFS embed.FS

// Registry holds the static list of configured feed sources. It is built
// once at startup; all query methods are read-only.
type Registry struct {
	sources []Source
	byID    map[string]Source
}

// NewRegistry loads one YAML definition per source from sourcesDir (source ID
// derived from the filename). When the directory is missing or contains no
// definitions, the embedded default set is used instead. Invalid definitions
// abort the load.
func NewRegistry(sourcesDir string) (*Registry, error) {
	sources, err := loadDir(sourcesDir)
	if err != nil {
		return nil, err
	}

	if len(sources) == 0 {
		slog.Info("No source definitions found, using embedded defaults", "dir", sourcesDir)
		sources, err = loadDefaults()
		if err != nil {
			return nil, err
		}
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].ID < sources[j].ID
	})

	byID := make(map[string]Source, len(sources))
	for _, src := range sources {
		if _, exists := byID[src.ID]; exists {
			return nil, fmt.Errorf("duplicate source ID: %s", src.ID)
		}
		byID[src.ID] = src
	}

	return &Registry{sources: sources, byID: byID}, nil
}

// All returns every configured source regardless of enabled state.
func (r *Registry) All() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Enabled returns enabled sources, optionally narrowed to the given
// categories. An empty category list means all categories.
func (r *Registry) Enabled(categories ...Category) []Source {
	wanted := make(map[Category]bool, len(categories))
	for _, c := range categories {
		wanted[c] = true
	}

	out := make([]Source, 0, len(r.sources))
	for _, src := range r.sources {
		if !src.Enabled {
			continue
		}
		if len(wanted) > 0 && !wanted[src.Category] {
			continue
		}
		out = append(out, src)
	}
	return out
}

// Get returns the source with the given ID.
func (r *Registry) Get(id string) (Source, bool) {
	src, ok := r.byID[id]
	return src, ok
}

func (r *Registry) Count() int {
	return len(r.sources)
}

func loadDir(sourcesDir string) ([]Source, error) {
	if _, err := os.Stat(sourcesDir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(sourcesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to find YML files: %w", err)
	}

	sources := make([]Source, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		src, err := parseSource(sourceIDFromFile(file), data)
		if err != nil {
			return nil, fmt.Errorf("invalid source definition %s: %w", file, err)
		}

		slog.Debug("Source definition loaded", "source", src.ID, "category", src.Category, "enabled", src.Enabled)
		sources = append(sources, src)
	}

	return sources, nil
}

func loadDefaults() ([]Source, error) {
	files, err := fs.Glob(defaultsFS, "defaults/*.yml")
	if err != nil {
		return nil, fmt.Errorf("failed to list embedded defaults: %w", err)
	}

	sources := make([]Source, 0, len(files))
	for _, file := range files {
		data, err := defaultsFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded default %s: %w", file, err)
		}

		src, err := parseSource(sourceIDFromFile(file), data)
		if err != nil {
			return nil, fmt.Errorf("invalid embedded default %s: %w", file, err)
		}

		sources = append(sources, src)
	}

	return sources, nil
}

func parseSource(id string, data []byte) (Source, error) {
	var src Source
	if err := yaml.Unmarshal(data, &src); err != nil {
		return Source{}, fmt.Errorf("failed to parse YAML: %w", err)
	}

	src.ID = id

	if src.Priority == "" {
		src.Priority = PriorityMedium
	}
	if src.Format == "" {
		src.Format = FormatRSS
	}
	if src.RefreshInterval == 0 {
		src.RefreshInterval = 60
	}

	if err := validateSource(src); err != nil {
		return Source{}, err
	}

	return src, nil
}

func validateSource(src Source) error {
	requiredFields := map[string]string{
		"source ID":   src.ID,
		"source name": src.Name,
		"source URL":  src.URL,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if !src.Category.Valid() {
		return fmt.Errorf("unknown category: %s", src.Category)
	}
	if !src.Priority.Valid() {
		return fmt.Errorf("unknown priority: %s", src.Priority)
	}
	if !src.Format.Valid() {
		return fmt.Errorf("unknown format: %s", src.Format)
	}
	if src.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must be non-negative")
	}

	return nil
}

func sourceIDFromFile(file string) string {
	return strings.TrimSuffix(filepath.Base(file), ".yml")
}
