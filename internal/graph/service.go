package graph

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/abramin/voyage/internal/catalog"
)

// Service owns the current graph. Readers take a Snapshot and keep using it
// while a Rebuild swaps in a new graph.
type Service struct {
	builder *Builder
	mu      sync.Mutex // serializes rebuilds
	current atomic.Pointer[Graph]
}

// NewService creates a service holding an empty graph.
func NewService(logger *slog.Logger) *Service {
	s := &Service{builder: NewBuilder(logger)}
	s.current.Store(s.builder.Build(nil))
	return s
}

// Rebuild builds a graph from services and makes it current.
func (s *Service) Rebuild(services []catalog.Service) *Graph {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.builder.Build(services)
	s.current.Store(g)
	return g
}

// Snapshot returns the current graph.
func (s *Service) Snapshot() *Graph {
	return s.current.Load()
}
