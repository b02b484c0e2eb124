package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/abramin/voyage/internal/config"
	"github.com/abramin/voyage/internal/logging"
)

// maxParallelParse bounds concurrent file parsing.
const maxParallelParse = 8

// Loader reads service definitions from catalog directories.
type Loader struct {
	cfg    *config.Config
	dirs   []string
	logger *slog.Logger
	files  []string
}

// NewLoader creates a loader over dirs. When dirs is empty the configured
// catalog directories are used.
func NewLoader(cfg *config.Config, logger *slog.Logger, dirs ...string) *Loader {
	if len(dirs) == 0 {
		dirs = cfg.Catalog.Dirs
	}
	return &Loader{
		cfg:    cfg,
		dirs:   dirs,
		logger: logging.OrDiscard(logger).With("component", "catalog"),
	}
}

// Files returns the catalog files found by the last Load, sorted.
func (l *Loader) Files() []string {
	return l.files
}

// Dirs returns the directories the loader scans.
func (l *Loader) Dirs() []string {
	return l.dirs
}

// Load discovers and parses every catalog file. Services are returned in
// file order, then document order, so repeated loads are deterministic.
func (l *Loader) Load(ctx context.Context) ([]Service, error) {
	files, err := l.discover()
	if err != nil {
		return nil, err
	}
	l.files = files

	results := make([][]Service, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelParse)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading %s: %w", file, err)
			}
			services, err := ParseServices(data, file)
			if err != nil {
				return err
			}
			if len(services) == 0 {
				l.logger.Warn("catalog file contains no services", "file", file)
			}
			results[i] = services
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var services []Service
	for _, r := range results {
		services = append(services, r...)
	}
	if err := Validate(services); err != nil {
		return nil, err
	}

	l.logger.Debug("catalog loaded", "files", len(files), "services", len(services))
	return services, nil
}

// discover walks the catalog directories and returns matching files.
func (l *Loader) discover() ([]string, error) {
	var files []string
	for _, dir := range l.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != dir && l.cfg.IsExcludedDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if l.cfg.IsCatalogFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning catalog dir %s: %w", dir, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// ParseServices decodes a catalog document. A document is either a single
// service or a mapping with a "services" list. JSON documents are accepted.
func ParseServices(data []byte, source string) ([]Service, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var list struct {
		Services []Service `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source, err)
	}
	if len(list.Services) > 0 {
		return list.Services, nil
	}

	var svc Service
	if err := yaml.Unmarshal(data, &svc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source, err)
	}
	if svc.Name == "" && svc.Version == "" && len(svc.Commands) == 0 && len(svc.Subscriptions) == 0 {
		return nil, nil
	}
	return []Service{svc}, nil
}

// Validate checks that every service has a name and version and that
// (name, version) pairs are unique.
func Validate(services []Service) error {
	seen := make(map[[2]string]bool)
	for i, s := range services {
		if s.Name == "" {
			return fmt.Errorf("service #%d: missing name", i)
		}
		if s.Version == "" {
			return fmt.Errorf("service %s: missing version", s.Name)
		}
		key := [2]string{s.Name, s.Version}
		if seen[key] {
			return fmt.Errorf("service %s version %s defined twice", s.Name, s.Version)
		}
		seen[key] = true
	}
	return nil
}
