package graph

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/abramin/voyage/internal/catalog"
	"github.com/abramin/voyage/internal/logging"
	"github.com/abramin/voyage/internal/nodeid"
)

var (
	// ErrNodeNotFound is returned when an edge endpoint is not in the graph.
	ErrNodeNotFound = errors.New("node not found")
	// ErrDuplicateNode is returned when a node id is added twice.
	ErrDuplicateNode = errors.New("duplicate node")
)

// Graph is an adjacency-list multigraph keyed by node id. It is built once
// and then only read; rebuilding produces a new Graph.
type Graph struct {
	logger *slog.Logger

	services []catalog.Service
	nodes    map[string]*Node
	order    []string
	edges    []*Edge
	out      map[string][]*Edge
	in       map[string][]*Edge
	dangling []Dangling
}

// New creates an empty graph.
func New(logger *slog.Logger) *Graph {
	return &Graph{
		logger: logging.OrDiscard(logger).With("component", "graph"),
		nodes:  make(map[string]*Node),
		out:    make(map[string][]*Edge),
		in:     make(map[string][]*Edge),
	}
}

// AddNode inserts n. The first node added under an id wins.
func (g *Graph) AddNode(n *Node) error {
	if _, ok := g.nodes[n.ID]; ok {
		return fmt.Errorf("adding node %s: %w", n.ID, ErrDuplicateNode)
	}
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
	return nil
}

// AddEdge inserts a directed edge. Both endpoints must already exist.
// Edge ids are assigned in insertion order.
func (g *Graph) AddEdge(source, target string, label Label, relation Relation) (*Edge, error) {
	if _, ok := g.nodes[source]; !ok {
		return nil, fmt.Errorf("adding edge from %s: %w", source, ErrNodeNotFound)
	}
	if _, ok := g.nodes[target]; !ok {
		return nil, fmt.Errorf("adding edge to %s: %w", target, ErrNodeNotFound)
	}
	e := &Edge{
		ID:       "edge_" + strconv.Itoa(len(g.edges)),
		Source:   source,
		Target:   target,
		Label:    label,
		Relation: relation,
	}
	g.edges = append(g.edges, e)
	g.out[source] = append(g.out[source], e)
	g.in[target] = append(g.in[target], e)
	return e, nil
}

// Lookup returns the node with id without logging a miss.
func (g *Graph) Lookup(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Node returns the node with id, or nil. Unknown ids are logged.
func (g *Graph) Node(id string) *Node {
	n, ok := g.nodes[id]
	if !ok {
		g.logger.Warn("unknown node", "id", id)
		return nil
	}
	return n
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// NodesOfKind returns the nodes of kind k in insertion order.
func (g *Graph) NodesOfKind(k Kind) []*Node {
	var nodes []*Node
	for _, id := range g.order {
		if n := g.nodes[id]; n.Kind == k {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// Edges returns every edge in insertion order.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// OutEdges returns the edges leaving id.
func (g *Graph) OutEdges(id string) []*Edge {
	return g.out[id]
}

// InEdges returns the edges entering id.
func (g *Graph) InEdges(id string) []*Edge {
	return g.in[id]
}

// InboundNeighbors returns the distinct sources of edges entering id,
// ordered by first edge.
func (g *Graph) InboundNeighbors(id string, kinds ...Kind) []*Node {
	if !g.known(id) {
		return nil
	}
	return g.neighbors(g.in[id], func(e *Edge) string { return e.Source }, kinds)
}

// OutboundNeighbors returns the distinct targets of edges leaving id,
// ordered by first edge. When kinds is non-empty only those kinds are kept.
func (g *Graph) OutboundNeighbors(id string, kinds ...Kind) []*Node {
	if !g.known(id) {
		return nil
	}
	return g.neighbors(g.out[id], func(e *Edge) string { return e.Target }, kinds)
}

func (g *Graph) neighbors(edges []*Edge, end func(*Edge) string, kinds []Kind) []*Node {
	var nodes []*Node
	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		id := end(e)
		if seen[id] {
			continue
		}
		seen[id] = true
		n := g.nodes[id]
		if len(kinds) > 0 && !hasKind(kinds, n.Kind) {
			continue
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func hasKind(kinds []Kind, k Kind) bool {
	for _, kk := range kinds {
		if kk == k {
			return true
		}
	}
	return false
}

func (g *Graph) known(id string) bool {
	if _, ok := g.nodes[id]; ok {
		return true
	}
	g.logger.Warn("unknown node", "id", id)
	return false
}

// InputNodes returns the nodes feeding id.
func (g *Graph) InputNodes(id string) []*Node {
	return g.InboundNeighbors(id)
}

// CommandsInvokedBy returns the commands id points to.
func (g *Graph) CommandsInvokedBy(id string) []*Node {
	return g.OutboundNeighbors(id, KindCommand)
}

// ConsumingSubscriptions returns the subscriptions consuming the output of id.
func (g *Graph) ConsumingSubscriptions(id string) []*Node {
	return g.OutboundNeighbors(id, KindSubscription)
}

// Command looks up a command by service identity.
func (g *Graph) Command(service, version, name string) *Node {
	return g.Node(nodeid.CommandID(service, version, name))
}

// Subscription looks up a subscription by service identity.
func (g *Graph) Subscription(service, version, name string) *Node {
	return g.Node(nodeid.SubscriptionID(service, version, name))
}

// Endpoint looks up a REST endpoint.
func (g *Graph) Endpoint(version string, method catalog.HTTPMethod, path string) *Node {
	return g.Node(nodeid.EndpointID(version, string(method), path))
}

// Resolve returns the command an address points to.
func (g *Graph) Resolve(addr catalog.Address) (*Node, bool) {
	return g.Lookup(nodeid.CommandID(addr.ServiceName, addr.ServiceVersion, addr.ServiceTarget))
}

// BridgedCommand returns the command an endpoint node exposes.
func (g *Graph) BridgedCommand(n *Node) (*Node, bool) {
	if n == nil || n.Endpoint == nil {
		return nil, false
	}
	return g.Resolve(n.Address())
}

// Endpoints returns every REST endpoint in insertion order.
func (g *Graph) Endpoints() []*catalog.Endpoint {
	var eps []*catalog.Endpoint
	for _, n := range g.NodesOfKind(KindEndpoint) {
		eps = append(eps, n.Endpoint)
	}
	return eps
}

// Services returns the service list the graph was built from.
func (g *Graph) Services() []catalog.Service {
	return g.services
}

// Dangling returns the addresses that did not resolve during the build.
func (g *Graph) Dangling() []Dangling {
	return g.dangling
}

// Stats counts nodes per kind and edges per relation.
func (g *Graph) Stats() Stats {
	st := Stats{
		Services:   len(g.services),
		Nodes:      len(g.nodes),
		Edges:      len(g.edges),
		Dangling:   len(g.dangling),
		ByKind:     make(map[Kind]int),
		ByRelation: make(map[Relation]int),
	}
	for _, n := range g.nodes {
		st.ByKind[n.Kind]++
	}
	for _, e := range g.edges {
		st.ByRelation[e.Relation]++
	}
	return st
}
