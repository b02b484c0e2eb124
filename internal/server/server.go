// Package server exposes the dependency graph over a JSON HTTP API and
// serves the diagram UI.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abramin/voyage/internal/catalog"
	"github.com/abramin/voyage/internal/config"
	"github.com/abramin/voyage/internal/graph"
	"github.com/abramin/voyage/internal/logging"
	"github.com/abramin/voyage/internal/project"
	"github.com/abramin/voyage/internal/store"
	"github.com/abramin/voyage/internal/traverse"
)

// Server is the Voyage HTTP server.
type Server struct {
	cfg        *config.Config
	projects   *project.Manager
	engine     *traverse.Engine
	store      *store.Store
	metrics    *Metrics
	logger     *slog.Logger
	httpServer *http.Server
	port       int
	routes     []apiRoute
}

// apiRoute is one entry of the JSON API. The table registers the mux and
// renders the index page.
type apiRoute struct {
	Pattern string
	// Example is a linkable request for the index page; empty for routes
	// that need a path argument or a non-GET method.
	Example string
	Summary string
	handler http.HandlerFunc
}

// Config holds server dependencies.
type Config struct {
	Port     int
	App      *config.Config
	Projects *project.Manager
	// Store is optional; without it /api/stats only reports the graph.
	Store  *store.Store
	Logger *slog.Logger
	// UI serves everything outside /api. Defaults to an index page
	// listing the API routes.
	UI http.Handler
}

// New creates a new server instance.
func New(cfg Config) (*Server, error) {
	if cfg.Projects == nil {
		return nil, errors.New("project manager is required")
	}
	app := cfg.App
	if app == nil {
		app = config.Default()
	}
	port := cfg.Port
	if port == 0 {
		port = app.Server.Port
	}
	logger := logging.OrDiscard(cfg.Logger).With("component", "server")

	s := &Server{
		cfg:      app,
		projects: cfg.Projects,
		engine:   traverse.NewEngine(cfg.Logger, app.Layout),
		store:    cfg.Store,
		metrics:  NewMetrics(),
		logger:   logger,
		port:     port,
	}
	s.projects.OnRebuild(s.metrics.ObserveRebuild)

	s.routes = []apiRoute{
		{"/api/health", "/api/health", "Health check", s.handleHealth},
		{"/api/stats", "/api/stats", "Graph and catalog statistics", s.handleStats},
		{"/api/projects", "/api/projects", "Registered projects", s.handleProjects},
		{"/api/projects/", "", "POST {id}/activate selects the active project", s.handleProjectAction},
		{"/api/services", "/api/services", "Services grouped by name", s.handleServices},
		{"/api/events", "/api/events", "Published event names", s.handleEvents},
		{"/api/endpoints", "/api/endpoints", "REST endpoints", s.handleEndpoints},
		{"/api/nodes", "/api/nodes?kind=command", "Nodes, filtered by kind", s.handleNodes},
		{"/api/node/", "", "A single node by id", s.handleNode},
		{"/api/neighbors/", "", "Direct inputs and outputs of a node", s.handleNeighbors},
		{"/api/graph/", "", "Expanded diagram rooted at a node", s.handleGraph},
	}

	mux := http.NewServeMux()
	for _, rt := range s.routes {
		mux.HandleFunc(rt.Pattern, s.metrics.instrument(rt.Pattern, s.corsMiddleware(rt.handler)))
	}
	mux.Handle("/metrics", s.metrics.Handler())

	ui := cfg.UI
	if ui == nil {
		ui = s.indexHandler()
	}
	mux.Handle("/", ui)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "url", fmt.Sprintf("http://localhost:%d", s.port))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// corsMiddleware adds CORS headers for local development.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding JSON", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStats returns graph statistics and, when a store is attached, catalog statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	p, g, _ := s.projects.Active()
	response := struct {
		Project       string           `json:"project"`
		Graph         graph.Stats      `json:"graph"`
		RestEndpoints int              `json:"rest_endpoints"`
		Events        int              `json:"events"`
		Store         *store.Stats     `json:"store,omitempty"`
		Dangling      []graph.Dangling `json:"dangling"`
	}{
		Project:       p.ID,
		Graph:         g.Stats(),
		RestEndpoints: catalog.RestEndpointCount(g.Services()),
		Events:        len(catalog.EventNames(g.Services())),
		Dangling:      g.Dangling(),
	}
	if response.Dangling == nil {
		response.Dangling = []graph.Dangling{}
	}

	if s.store != nil {
		stats, err := s.store.GetStats()
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "failed to get stats")
			return
		}
		response.Store = stats
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleProjects handles GET /api/projects
func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.projects.Projects())
}

// handleProjectAction handles POST /api/projects/:id/activate
func (s *Server) handleProjectAction(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/projects/")
	id, action, ok := strings.Cut(path, "/")
	if !ok || id == "" || action != "activate" {
		s.writeError(w, http.StatusBadRequest, "invalid project action")
		return
	}

	g, err := s.projects.Activate(id)
	if errors.Is(err, project.ErrUnknownProject) {
		s.writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to activate project")
		return
	}

	if s.store != nil {
		if err := s.store.SetMetadata(store.MetaActiveProject, id); err != nil {
			s.logger.Warn("persisting active project", "project", id, "error", err)
		}
	}

	s.writeJSON(w, http.StatusOK, struct {
		ID    string      `json:"id"`
		Stats graph.Stats `json:"stats"`
	}{id, g.Stats()})
}

// handleServices handles GET /api/services, grouping versions by service name.
func (s *Server) handleServices(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	groups := catalog.GroupByName(s.projects.Graph().Services())
	if groups == nil {
		groups = [][]catalog.Service{}
	}
	s.writeJSON(w, http.StatusOK, groups)
}

// handleEvents handles GET /api/events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	events := catalog.EventNames(s.projects.Graph().Services())
	if events == nil {
		events = []string{}
	}
	s.writeJSON(w, http.StatusOK, events)
}

// handleEndpoints handles GET /api/endpoints
func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	eps := s.projects.Graph().Endpoints()
	if eps == nil {
		eps = []*catalog.Endpoint{}
	}
	s.writeJSON(w, http.StatusOK, eps)
}

// parseKinds reads the optional kind query parameter.
func parseKinds(r *http.Request) ([]graph.Kind, error) {
	raw := r.URL.Query().Get("kind")
	if raw == "" {
		return nil, nil
	}
	var kinds []graph.Kind
	for _, part := range strings.Split(raw, ",") {
		k, ok := graph.ParseKind(strings.TrimSpace(part))
		if !ok {
			return nil, fmt.Errorf("invalid kind %q", part)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// handleNodes handles GET /api/nodes?kind=command
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	kinds, err := parseKinds(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	g := s.projects.Graph()
	nodes := []*graph.Node{}
	if len(kinds) == 0 {
		nodes = append(nodes, g.Nodes()...)
	}
	for _, k := range kinds {
		nodes = append(nodes, g.NodesOfKind(k)...)
	}
	s.writeJSON(w, http.StatusOK, nodes)
}

// handleNode handles GET /api/node/:id
func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/node/")
	g := s.projects.Graph()
	n := g.Node(id)
	if n == nil {
		s.writeError(w, http.StatusNotFound, "node not found")
		return
	}

	response := struct {
		*graph.Node
		Inputs                 []*graph.Node     `json:"inputs"`
		InvokedCommands        []*graph.Node     `json:"invokedCommands"`
		ConsumingSubscriptions []*graph.Node     `json:"consumingSubscriptions"`
		InvokedBy              []catalog.Address `json:"invokedBy"`
	}{
		Node:                   n,
		Inputs:                 orEmpty(g.InputNodes(id)),
		InvokedCommands:        orEmpty(g.CommandsInvokedBy(id)),
		ConsumingSubscriptions: orEmpty(g.ConsumingSubscriptions(id)),
		InvokedBy:              []catalog.Address{},
	}
	if n.Kind == graph.KindCommand {
		addr := n.Address()
		response.InvokedBy = append(response.InvokedBy, catalog.InvokingCommands(g.Services(), addr)...)
		response.InvokedBy = append(response.InvokedBy, catalog.InvokingSubscriptions(g.Services(), addr)...)
	}

	s.writeJSON(w, http.StatusOK, response)
}

func orEmpty(nodes []*graph.Node) []*graph.Node {
	if nodes == nil {
		return []*graph.Node{}
	}
	return nodes
}

// handleNeighbors handles GET /api/neighbors/{in|out}/:id?kind=
func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/neighbors/")
	direction, id, ok := strings.Cut(path, "/")
	if !ok || id == "" {
		s.writeError(w, http.StatusBadRequest, "invalid neighbors endpoint")
		return
	}

	kinds, err := parseKinds(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	g := s.projects.Graph()
	if _, ok := g.Lookup(id); !ok {
		s.writeError(w, http.StatusNotFound, "node not found")
		return
	}

	var nodes []*graph.Node
	switch direction {
	case "in":
		nodes = g.InboundNeighbors(id, kinds...)
	case "out":
		nodes = g.OutboundNeighbors(id, kinds...)
	default:
		s.writeError(w, http.StatusBadRequest, "direction must be in or out")
		return
	}
	s.writeJSON(w, http.StatusOK, orEmpty(nodes))
}

// handleGraph handles graph-related endpoints
// GET /api/graph/expand/:id?depth=2 - dependency diagram around a node
// GET /api/graph/spine/:id?length=10 - main event flow leaving a node
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/graph/")
	action, id, ok := strings.Cut(path, "/")
	if !ok || id == "" {
		s.writeError(w, http.StatusBadRequest, "invalid graph endpoint")
		return
	}

	g := s.projects.Graph()
	if _, ok := g.Lookup(id); !ok {
		s.writeError(w, http.StatusNotFound, "node not found")
		return
	}

	q := r.URL.Query()
	filter := traverse.Filter{HideDeprecated: q.Get("hideDeprecated") == "true"}
	if hide := q.Get("hideServices"); hide != "" {
		filter.HideServices = strings.Split(hide, ",")
	}

	switch action {
	case "expand":
		depth := -1
		if d := q.Get("depth"); d != "" {
			v, err := strconv.Atoi(d)
			if err != nil || v < 0 {
				s.writeError(w, http.StatusBadRequest, "invalid depth")
				return
			}
			depth = v
		}
		start := time.Now()
		res := s.engine.ExpandFiltered(g, id, s.cfg.ClampDepth(depth), filter)
		s.metrics.observeExpand(start, len(res.Nodes))
		s.writeJSON(w, http.StatusOK, res)

	case "spine":
		length := 0
		if l := q.Get("length"); l != "" {
			v, err := strconv.Atoi(l)
			if err != nil || v < 0 {
				s.writeError(w, http.StatusBadRequest, "invalid length")
				return
			}
			length = v
		}
		spine := traverse.NewEngine(s.logger, s.cfg.Layout, traverse.WithFilter(filter))
		s.writeJSON(w, http.StatusOK, spine.Spine(g, id, length))

	default:
		s.writeError(w, http.StatusBadRequest, "invalid graph action")
	}
}
