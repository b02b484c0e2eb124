// Package project tracks the known projects and keeps the graph of the
// active one current.
package project

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abramin/voyage/internal/catalog"
	"github.com/abramin/voyage/internal/graph"
	"github.com/abramin/voyage/internal/logging"
	"github.com/abramin/voyage/internal/store"
)

var (
	// ErrUnknownProject is returned when activating a project that is not registered.
	ErrUnknownProject = errors.New("unknown project")
	// ErrReadOnlyProject is returned when reloading the built-in demo project.
	ErrReadOnlyProject = errors.New("read-only project")
)

// Store is the persistence the manager reads projects from.
type Store interface {
	ListProjects() ([]store.ProjectSummary, error)
	GetProject(id string) (*catalog.Project, error)
}

// Info summarises a registered project.
type Info struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ServiceCount int    `json:"service_count"`
	Active       bool   `json:"active"`
}

// RebuildEvent is delivered to OnRebuild hooks after every graph rebuild.
type RebuildEvent struct {
	ProjectID string
	Stats     graph.Stats
	Duration  time.Duration
}

// Manager owns the registered projects. The demo project is always present.
// The graph snapshot is always built from the services of the active project.
type Manager struct {
	graphs *graph.Service
	logger *slog.Logger

	// switchMu serializes every change to the active project or its
	// services together with the rebuild that follows it.
	switchMu sync.Mutex

	mu       sync.RWMutex
	projects map[string]catalog.Project
	order    []string
	active   string
	hooks    []func(RebuildEvent)
}

// NewManager creates a manager rebuilding graphs through graphs.
func NewManager(graphs *graph.Service, logger *slog.Logger) *Manager {
	m := &Manager{
		graphs:   graphs,
		logger:   logging.OrDiscard(logger).With("component", "project"),
		projects: make(map[string]catalog.Project),
	}
	m.Register(catalog.Example())
	return m
}

// Register adds or replaces a project. Replacing the active project rebuilds its graph.
func (m *Manager) Register(p catalog.Project) {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()
	m.register(p)
}

func (m *Manager) register(p catalog.Project) *graph.Graph {
	m.mu.Lock()
	if _, ok := m.projects[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.projects[p.ID] = p
	active := m.active == p.ID
	m.mu.Unlock()

	if !active {
		return nil
	}
	return m.rebuild(p.ID, p.Services)
}

// LoadStored registers every project persisted in st.
func (m *Manager) LoadStored(st Store) error {
	summaries, err := st.ListProjects()
	if err != nil {
		return fmt.Errorf("listing projects: %w", err)
	}
	for _, s := range summaries {
		p, err := st.GetProject(s.ID)
		if err != nil {
			return fmt.Errorf("loading project %s: %w", s.ID, err)
		}
		m.Register(*p)
	}
	return nil
}

// Projects lists the registered projects in registration order.
func (m *Manager) Projects() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]Info, 0, len(m.order))
	for _, id := range m.order {
		p := m.projects[id]
		infos = append(infos, Info{
			ID:           p.ID,
			Name:         p.Name,
			Description:  p.Description,
			ServiceCount: len(p.Services),
			Active:       id == m.active,
		})
	}
	return infos
}

// Activate makes the project current and rebuilds the graph from its services.
func (m *Manager) Activate(id string) (*graph.Graph, error) {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	m.mu.Lock()
	p, ok := m.projects[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("activating %s: %w", id, ErrUnknownProject)
	}
	m.active = id
	m.mu.Unlock()

	m.logger.Info("project activated", "project", id, "services", len(p.Services))
	return m.rebuild(id, p.Services), nil
}

// Reload replaces the services of project p, registering it when new.
// The graph is rebuilt, and returned, only when p is the active project;
// otherwise the result is nil. The demo project cannot be reloaded.
func (m *Manager) Reload(p catalog.Project) (*graph.Graph, error) {
	if p.ID == catalog.DemoProjectID {
		return nil, fmt.Errorf("reloading %s: %w", p.ID, ErrReadOnlyProject)
	}
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	m.mu.RLock()
	if old, ok := m.projects[p.ID]; ok {
		if p.Name == "" {
			p.Name = old.Name
		}
		if p.Description == "" {
			p.Description = old.Description
		}
		if p.Markdown == "" {
			p.Markdown = old.Markdown
		}
	}
	m.mu.RUnlock()

	return m.register(p), nil
}

// Active returns the active project and the current graph.
func (m *Manager) Active() (catalog.Project, *graph.Graph, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[m.active]
	return p, m.graphs.Snapshot(), ok
}

// Graph returns the current graph snapshot.
func (m *Manager) Graph() *graph.Graph {
	return m.graphs.Snapshot()
}

// OnRebuild registers fn to be called after every rebuild.
func (m *Manager) OnRebuild(fn func(RebuildEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// rebuild must be called with switchMu held.
func (m *Manager) rebuild(id string, services []catalog.Service) *graph.Graph {
	start := time.Now()
	g := m.graphs.Rebuild(services)
	ev := RebuildEvent{ProjectID: id, Stats: g.Stats(), Duration: time.Since(start)}

	m.logger.Debug("graph rebuilt",
		"project", id,
		"nodes", ev.Stats.Nodes,
		"edges", ev.Stats.Edges,
		"dangling", ev.Stats.Dangling,
		"duration", ev.Duration,
	)

	m.mu.RLock()
	hooks := append([]func(RebuildEvent){}, m.hooks...)
	m.mu.RUnlock()
	for _, fn := range hooks {
		fn(ev)
	}
	return g
}
