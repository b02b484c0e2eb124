// Package watch reloads the active project when catalog files change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/abramin/voyage/internal/catalog"
	"github.com/abramin/voyage/internal/config"
	"github.com/abramin/voyage/internal/graph"
	"github.com/abramin/voyage/internal/logging"
)

// Reloader replaces the services of a project. It returns the rebuilt graph
// when the project is active and nil otherwise.
type Reloader interface {
	Reload(p catalog.Project) (*graph.Graph, error)
}

// Watcher reparses the catalog after a burst of file changes settles and
// hands it to a Reloader as the configured catalog project. A catalog that
// fails to load leaves the previous graph in place.
type Watcher struct {
	cfg      *config.Config
	dirs     []string
	reloader Reloader
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	timer   *time.Timer
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a watcher over dirs, or the configured catalog dirs when none are given.
func New(cfg *config.Config, reloader Reloader, logger *slog.Logger, dirs ...string) *Watcher {
	if len(dirs) == 0 {
		dirs = cfg.Catalog.Dirs
	}
	debounce := cfg.Watch.Debounce
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		cfg:      cfg,
		dirs:     dirs,
		reloader: reloader,
		debounce: debounce,
		logger:   logging.OrDiscard(logger).With("component", "watch"),
	}
}

// Start adds watches for every catalog directory and begins processing
// events. Processing stops when ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return errors.New("watcher already started")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fw
	w.done = make(chan struct{})

	for _, dir := range w.dirs {
		if err := w.addTree(dir); err != nil {
			fw.Close()
			w.watcher = nil
			return err
		}
	}

	w.wg.Add(1)
	go w.run(ctx, fw, w.done)

	w.logger.Info("watching catalog", "dirs", w.dirs, "debounce", w.debounce)
	return nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	fw := w.watcher
	if fw == nil {
		w.mu.Unlock()
		return nil
	}
	w.watcher = nil
	close(w.done)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := fw.Close()
	w.wg.Wait()
	return err
}

// addTree watches dir and every non-excluded directory below it.
// fsnotify does not watch recursively.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.cfg.IsExcludedDir(path) {
			return filepath.SkipDir
		}
		w.logger.Debug("watching directory", "dir", path)
		return w.watcher.Add(path)
	})
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher, done <-chan struct{}) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return

		case <-done:
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handle(ctx, event)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Op&fsnotify.Create == fsnotify.Create && isDir(event.Name) {
		w.mu.Lock()
		if w.watcher != nil && !w.cfg.IsExcludedDir(event.Name) {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("watching new directory", "dir", event.Name, "error", err)
			}
		}
		w.mu.Unlock()
		w.schedule(ctx)
		return
	}

	if !w.cfg.IsCatalogFile(event.Name) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	w.logger.Debug("catalog file changed", "file", event.Name, "op", event.Op.String())
	w.schedule(ctx)
}

// schedule (re)starts the debounce timer.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	done := w.done
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-done:
			return
		default:
		}
		w.reload(ctx)
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	services, err := catalog.NewLoader(w.cfg, w.logger, w.dirs...).Load(ctx)
	if err != nil {
		w.logger.Error("reloading catalog", "error", err)
		return
	}
	p := catalog.Project{
		ID:       w.cfg.Catalog.ProjectID,
		Name:     w.cfg.Catalog.ProjectName,
		Services: services,
	}
	g, err := w.reloader.Reload(p)
	if err != nil {
		w.logger.Error("reloading project", "project", p.ID, "error", err)
		return
	}
	if g == nil {
		w.logger.Info("catalog reloaded", "project", p.ID, "services", len(services), "active", false)
		return
	}
	stats := g.Stats()
	w.logger.Info("catalog reloaded",
		"project", p.ID,
		"services", len(services),
		"nodes", stats.Nodes,
		"edges", stats.Edges,
		"dangling", stats.Dangling,
		"duration", time.Since(start),
	)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
