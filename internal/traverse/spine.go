package traverse

import (
	"sort"

	"github.com/abramin/voyage/internal/graph"
)

// DefaultSpineLength bounds the main path when no length is requested.
const DefaultSpineLength = 10

// SpineNode is one step of the main flow.
type SpineNode struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Kind           graph.Kind     `json:"kind"`
	ServiceName    string         `json:"serviceName"`
	ServiceVersion string         `json:"serviceVersion"`
	Depth          int            `json:"depth"`
	Via            graph.Relation `json:"via,omitempty"` // relation of the edge leading here
	BranchBadge    *BranchBadge   `json:"branchBadge,omitempty"`
}

// BranchBadge summarizes the neighbors a spine node has off the main path.
type BranchBadge struct {
	Count        int      `json:"count"`
	CollapsedIDs []string `json:"collapsedIds"`
	Labels       []string `json:"labels"`
}

// SpineResponse is the main flow leaving a root node.
type SpineResponse struct {
	Nodes          []SpineNode `json:"nodes"`
	MainPath       []string    `json:"mainPath"`
	TotalNodes     int         `json:"totalNodes"`
	CollapsedCount int         `json:"collapsedCount"`
}

type scoredStep struct {
	node     *graph.Node
	relation graph.Relation
	score    int
}

// Spine follows the most likely flow out of rootID for at most length
// nodes, collapsing the other outbound neighbors into branch badges.
func (e *Engine) Spine(g *graph.Graph, rootID string, length int) *SpineResponse {
	if length <= 0 {
		length = DefaultSpineLength
	}
	resp := &SpineResponse{Nodes: []SpineNode{}, MainPath: []string{}}

	root := g.Node(rootID)
	if root == nil {
		return resp
	}

	path := []*graph.Node{root}
	via := []graph.Relation{""}
	onPath := map[string]bool{rootID: true}
	for len(path) < length {
		steps := e.scoreSteps(g, path[len(path)-1], root, onPath)
		if len(steps) == 0 {
			break
		}
		best := steps[0]
		onPath[best.node.ID] = true
		path = append(path, best.node)
		via = append(via, best.relation)
	}

	for i, n := range path {
		sn := SpineNode{
			ID:             n.ID,
			Name:           n.Name,
			Kind:           n.Kind,
			ServiceName:    n.ServiceName,
			ServiceVersion: n.ServiceVersion,
			Depth:          i,
			Via:            via[i],
		}

		var badge BranchBadge
		for _, out := range g.OutboundNeighbors(n.ID) {
			if onPath[out.ID] || e.filter.shouldFilter(out) {
				continue
			}
			badge.CollapsedIDs = append(badge.CollapsedIDs, out.ID)
			badge.Labels = append(badge.Labels, out.ServiceName+"."+out.Name)
		}
		if badge.Count = len(badge.CollapsedIDs); badge.Count > 0 {
			sn.BranchBadge = &badge
			resp.CollapsedCount += badge.Count
		}

		resp.Nodes = append(resp.Nodes, sn)
		resp.MainPath = append(resp.MainPath, n.ID)
	}
	resp.TotalNodes = len(path) + resp.CollapsedCount
	return resp
}

// scoreSteps ranks the unvisited outbound neighbors of n, best first.
// Ties keep edge order.
func (e *Engine) scoreSteps(g *graph.Graph, n, root *graph.Node, onPath map[string]bool) []scoredStep {
	var steps []scoredStep
	seen := make(map[string]bool)
	for _, edge := range g.OutEdges(n.ID) {
		if onPath[edge.Target] || seen[edge.Target] {
			continue
		}
		seen[edge.Target] = true
		target, ok := g.Lookup(edge.Target)
		if !ok || e.filter.shouldFilter(target) {
			continue
		}

		score := 0

		// Event-driven hops carry the business flow.
		if edge.Relation == graph.RelationSubscribes {
			score += 10
		}

		if target.ServiceName == root.ServiceName {
			score += 5
		}

		// A node that publishes an event keeps the flow going.
		if target.EventName != "" {
			score += 4
		}

		if target.Deprecated {
			score -= 10
		}

		if target.Kind == graph.KindCommand {
			score += 2
		}

		steps = append(steps, scoredStep{node: target, relation: edge.Relation, score: score})
	}

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].score > steps[j].score
	})
	return steps
}
