// Package catalog provides the static read-only movie dataset for MovieBot.
//
// The catalog is loaded once at process start, either from a JSON file or the
// embedded default dataset, and is never mutated afterwards. Matching walks
// the entries in stored order; the first title that substring-matches wins,
// so the dataset order is part of the observable behavior.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "embed"

	"github.com/MovieBot/MovieBot/internal/models"
)

//go:embed movie_data.json
var defaultMovieData []byte

// Opts holds configuration options for catalog loading.
type Opts struct {
	Path string
}

// Option defines a configuration option for catalog loading.
type Option func(*Opts)

// WithPath loads the catalog from the given JSON file instead of the embedded
// default dataset.
func WithPath(path string) Option {
	return func(o *Opts) { o.Path = path }
}

// Catalog is the shared read-only movie dataset. Safe for concurrent readers
// once loaded.
type Catalog struct {
	movies []models.Movie
	dump   string
}

// Load reads and validates the movie dataset.
func Load(opts ...Option) (*Catalog, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	data := defaultMovieData
	if cfg.Path != "" {
		slog.Debug("catalog.Load: reading catalog file", "path", cfg.Path)
		fileData, err := os.ReadFile(cfg.Path)
		if err != nil {
			slog.Error("catalog.Load: failed to read catalog file", "error", err, "path", cfg.Path)
			return nil, fmt.Errorf("failed to read catalog file %s: %w", cfg.Path, err)
		}
		data = fileData
	}

	var movies []models.Movie
	if err := json.Unmarshal(data, &movies); err != nil {
		slog.Error("catalog.Load: failed to parse catalog JSON", "error", err)
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	if len(movies) == 0 {
		slog.Error("catalog.Load: catalog is empty")
		return nil, models.ErrCatalogEmpty
	}
	for _, m := range movies {
		if m.Title == "" {
			return nil, models.ErrInvalidCatalogEntry
		}
	}

	// Pre-render the indented dump once; it is embedded in every system
	// prompt and the dataset never changes after load.
	dumpBytes, err := json.MarshalIndent(movies, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render catalog dump: %w", err)
	}

	slog.Info("catalog.Load: catalog loaded", "movies", len(movies), "from_file", cfg.Path != "")
	return &Catalog{movies: movies, dump: string(dumpBytes)}, nil
}

// Movies returns the catalog entries in stored order.
func (c *Catalog) Movies() []models.Movie {
	return c.movies
}

// Find returns the movie whose title exactly matches (case-insensitive).
func (c *Catalog) Find(title string) (models.Movie, bool) {
	if title == "" {
		return models.Movie{}, false
	}
	for _, m := range c.movies {
		if strings.EqualFold(m.Title, title) {
			return m, true
		}
	}
	return models.Movie{}, false
}

// MatchTitle returns the first catalog entry whose lowered title appears as a
// substring of the given lower-cased text. First match in stored order wins;
// there is no scoring or fuzzy matching, and a short title can shadow a
// longer one that follows it.
func (c *Catalog) MatchTitle(loweredText string) (models.Movie, bool) {
	for _, m := range c.movies {
		if strings.Contains(loweredText, strings.ToLower(m.Title)) {
			return m, true
		}
	}
	return models.Movie{}, false
}

// Dump returns the indented JSON rendering of the full dataset for the
// system prompt.
func (c *Catalog) Dump() string {
	return c.dump
}
