// Package traverse expands a node of the dependency graph into a render
// payload and a nested layout tree for an auto-layout engine.
package traverse

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/abramin/voyage/internal/config"
	"github.com/abramin/voyage/internal/graph"
	"github.com/abramin/voyage/internal/logging"
)

// DefaultMaxDepth expands the immediate neighbors of the root.
const DefaultMaxDepth = 1

// Engine expands graph nodes. It keeps no state between expansions and is
// safe for concurrent use.
type Engine struct {
	logger *slog.Logger
	layout config.LayoutConfig
	filter Filter
	newID  func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithFilter hides matching neighbors from every expansion.
func WithFilter(f Filter) Option {
	return func(e *Engine) { e.filter = f }
}

// WithIDGenerator replaces the uuid generator used for edge ids.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// NewEngine creates an engine sizing layout boxes with layout.
func NewEngine(logger *slog.Logger, layout config.LayoutConfig, opts ...Option) *Engine {
	e := &Engine{
		logger: logging.OrDiscard(logger).With("component", "traverse"),
		layout: layout,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// traversal is the state of one expansion.
type traversal struct {
	g        *graph.Graph
	filter   Filter
	maxDepth int
	visited  map[string]bool
	nodes    []RenderNode
	edges    []RenderEdge
	filtered int
}

// Expand walks the graph outward from rootID, at most maxDepth hops. The root
// sits at depth 0. A negative maxDepth selects DefaultMaxDepth. An unknown
// root yields an empty result. Besides the invocations of commands and
// subscriptions, the invoke lane of an endpoint holds its bridged command.
func (e *Engine) Expand(g *graph.Graph, rootID string, maxDepth int) *Result {
	return e.ExpandFiltered(g, rootID, maxDepth, e.filter)
}

// ExpandFiltered is Expand with a per-call filter.
func (e *Engine) ExpandFiltered(g *graph.Graph, rootID string, maxDepth int, f Filter) *Result {
	if maxDepth < 0 {
		maxDepth = DefaultMaxDepth
	}
	t := &traversal{
		g:        g,
		filter:   f,
		maxDepth: maxDepth,
		visited:  make(map[string]bool),
		nodes:    []RenderNode{},
		edges:    []RenderEdge{},
	}

	root := &LayoutNode{ID: RootLayoutID, LayoutOptions: rootLayoutOptions()}
	if _, ok := g.Lookup(rootID); !ok {
		e.logger.Warn("unknown node", "id", rootID)
	} else if group, ok := e.expand(t, rootID, "", 0); ok {
		root.Children = append(root.Children, group)
	}

	e.logger.Debug("expanded",
		"root", rootID,
		"max_depth", maxDepth,
		"nodes", len(t.nodes),
		"edges", len(t.edges),
		"filtered", t.filtered,
	)

	return &Result{
		RootID:   rootID,
		MaxDepth: maxDepth,
		Nodes:    t.nodes,
		Edges:    t.edges,
		Layout:   root,
		Filtered: t.filtered,
	}
}

// expand adds id and its neighbors. It returns false when nothing was added,
// in which case the caller must not draw an edge to id.
func (e *Engine) expand(t *traversal, id, parent string, depth int) (*LayoutNode, bool) {
	n, ok := t.g.Lookup(id)
	if !ok || depth > t.maxDepth || t.visited[id] {
		return nil, false
	}
	if parent != "" && t.filter.shouldFilter(n) {
		t.filtered++
		return nil, false
	}
	t.visited[id] = true

	t.nodes = append(t.nodes, RenderNode{
		ID:    id,
		Type:  n.Kind,
		Label: n.Name,
		Data:  n,
	})
	box := e.leaf(n)

	var l lanes

	for _, in := range t.g.InboundNeighbors(id) {
		if group, ok := e.expand(t, in.ID, id, depth+1); ok {
			t.edges = append(t.edges, RenderEdge{
				ID:           e.newID(),
				Source:       in.ID,
				Target:       id,
				Label:        EdgeInvoke,
				MarkerEnd:    MarkerArrowClosed,
				SourceHandle: "bottom",
				TargetHandle: "top",
			})
			l.input = append(l.input, group)
		}
	}

	for _, out := range t.g.OutboundNeighbors(id, graph.KindSubscription) {
		if out.ID == parent {
			continue
		}
		if group, ok := e.expand(t, out.ID, id, depth+1); ok {
			t.edges = append(t.edges, RenderEdge{
				ID:           e.newID(),
				Source:       id,
				Target:       out.ID,
				Label:        EdgeSubscribes,
				MarkerEnd:    MarkerArrowClosed,
				Animated:     true,
				SourceHandle: "right",
				TargetHandle: "left",
			})
			l.output = append(l.output, group)
		}
	}

	for _, target := range e.invocations(t.g, n) {
		if group, ok := e.expand(t, target.ID, id, depth+1); ok {
			t.edges = append(t.edges, RenderEdge{
				ID:           e.newID(),
				Source:       id,
				Target:       target.ID,
				Label:        EdgeInvoke,
				MarkerEnd:    MarkerArrowClosed,
				SourceHandle: "bottom",
				TargetHandle: "top",
			})
			l.invoke = append(l.invoke, group)
		}
	}

	return e.compose(id, box, l), true
}

// invocations resolves the commands n calls. Commands and subscriptions
// follow their declared invokes. Endpoints declare none; as an extension
// they are expanded into the command they expose, so an endpoint diagram
// is never a lone box.
func (e *Engine) invocations(g *graph.Graph, n *graph.Node) []*graph.Node {
	if n.Kind == graph.KindEndpoint {
		cmd, ok := g.BridgedCommand(n)
		if !ok {
			e.logger.Error("unresolved address", "address", n.Address().String(), "caller", n.ID)
			return nil
		}
		return []*graph.Node{cmd}
	}

	var targets []*graph.Node
	for _, addr := range n.Invokes() {
		cmd, ok := g.Resolve(addr)
		if !ok {
			e.logger.Error("unresolved address", "address", addr.String(), "caller", n.ID)
			continue
		}
		targets = append(targets, cmd)
	}
	return targets
}
