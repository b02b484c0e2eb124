// Package index loads a service catalog from disk, checks it by building its
// graph, and persists it as a project.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/abramin/voyage/internal/catalog"
	"github.com/abramin/voyage/internal/config"
	"github.com/abramin/voyage/internal/graph"
	"github.com/abramin/voyage/internal/logging"
	"github.com/abramin/voyage/internal/store"
)

// Indexer coordinates the indexing pipeline.
type Indexer struct {
	cfg     *config.Config
	baseDir string
	logger  *slog.Logger
}

// NewIndexer creates a new indexer for the given base directory. Relative
// catalog and store directories are resolved against it.
func NewIndexer(cfg *config.Config, baseDir string, logger *slog.Logger) *Indexer {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		absPath = baseDir
	}
	return &Indexer{
		cfg:     cfg,
		baseDir: absPath,
		logger:  logging.OrDiscard(logger).With("component", "index"),
	}
}

// Result holds the results of an indexing run.
type Result struct {
	ProjectID     string
	FileCount     int
	ServiceCount  int
	NodeCount     int
	EdgeCount     int
	DanglingCount int
	Dangling      []graph.Dangling
	Duration      time.Duration
	DBPath        string
}

// CatalogDirs returns the configured catalog directories resolved against the base dir.
func (idx *Indexer) CatalogDirs() []string {
	return resolve(idx.baseDir, idx.cfg.Catalog.Dirs)
}

// StoreDir returns the directory holding the .voyage data directory.
func (idx *Indexer) StoreDir() string {
	return resolve(idx.baseDir, []string{idx.cfg.Store.Dir})[0]
}

// Run executes the indexing pipeline.
func (idx *Indexer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	dirs := idx.CatalogDirs()
	idx.logger.Info("loading catalog", "dirs", dirs)
	loader := catalog.NewLoader(idx.cfg, idx.logger, dirs...)
	services, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	idx.logger.Info("catalog loaded", "files", len(loader.Files()), "services", len(services))

	g := graph.Build(idx.logger, services)
	gs := g.Stats()

	st, err := store.Open(idx.StoreDir())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	project := catalog.Project{
		ID:          idx.cfg.Catalog.ProjectID,
		Name:        idx.cfg.Catalog.ProjectName,
		Description: "Services loaded from " + strings.Join(idx.cfg.Catalog.Dirs, ", "),
		Services:    services,
	}
	if err := st.SaveProject(project, strings.Join(dirs, string(filepath.ListSeparator))); err != nil {
		return nil, fmt.Errorf("saving project: %w", err)
	}

	meta := map[string]string{
		store.MetaIndexedAt:     time.Now().UTC().Format(time.RFC3339),
		store.MetaActiveProject: project.ID,
		store.MetaCatalogDirs:   strings.Join(dirs, string(filepath.ListSeparator)),
	}
	for k, v := range meta {
		if err := st.SetMetadata(k, v); err != nil {
			return nil, fmt.Errorf("storing metadata: %w", err)
		}
	}

	// Write index.json for UI quick boot
	if err := st.WriteIndexJSON(); err != nil {
		return nil, fmt.Errorf("writing index.json: %w", err)
	}

	return &Result{
		ProjectID:     project.ID,
		FileCount:     len(loader.Files()),
		ServiceCount:  len(services),
		NodeCount:     gs.Nodes,
		EdgeCount:     gs.Edges,
		DanglingCount: gs.Dangling,
		Dangling:      g.Dangling(),
		Duration:      time.Since(start),
		DBPath:        st.DBPath(),
	}, nil
}

func resolve(base string, dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(base, d)
		}
		out = append(out, d)
	}
	return out
}
