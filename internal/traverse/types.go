package traverse

import "github.com/abramin/voyage/internal/graph"

// Edge labels and marker shapes understood by the diagram renderer.
const (
	EdgeInvoke     = "invoke"
	EdgeSubscribes = "subscribes"

	MarkerArrowClosed = "arrowclosed"
)

// Position is a renderer coordinate. Expansion always emits the origin;
// the layout step fills in real positions.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RenderNode is one box of the flat render payload.
type RenderNode struct {
	ID       string      `json:"id"`
	Type     graph.Kind  `json:"type"`
	Label    string      `json:"label"`
	Position Position    `json:"position"`
	Data     *graph.Node `json:"data"`
}

// RenderEdge connects two render nodes.
type RenderEdge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	Label        string `json:"label"`
	MarkerStart  string `json:"markerStart,omitempty"`
	MarkerEnd    string `json:"markerEnd,omitempty"`
	Animated     bool   `json:"animated,omitempty"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// LayoutLabel is a text label placed inside a layout box.
type LayoutLabel struct {
	Text string `json:"text"`
}

// LayoutEdge connects layout boxes or groups.
type LayoutEdge struct {
	ID      string   `json:"id"`
	Sources []string `json:"sources"`
	Targets []string `json:"targets"`
}

// LayoutNode is a sized box or a group of boxes in the tree handed to the
// auto-layout engine. Leaves carry Width and Height; groups carry Children.
type LayoutNode struct {
	ID            string            `json:"id"`
	LayoutOptions map[string]string `json:"layoutOptions,omitempty"`
	Labels        []LayoutLabel     `json:"labels,omitempty"`
	Width         int               `json:"width,omitempty"`
	Height        int               `json:"height,omitempty"`
	Children      []*LayoutNode     `json:"children,omitempty"`
	Edges         []LayoutEdge      `json:"edges,omitempty"`
}

// Find returns the descendant (or n itself) with id.
func (n *LayoutNode) Find(id string) *LayoutNode {
	if n == nil {
		return nil
	}
	if n.ID == id {
		return n
	}
	for _, c := range n.Children {
		if f := c.Find(id); f != nil {
			return f
		}
	}
	return nil
}

// Result is the outcome of expanding a root node.
type Result struct {
	RootID   string       `json:"rootId"`
	MaxDepth int          `json:"maxDepth"`
	Nodes    []RenderNode `json:"nodes"`
	Edges    []RenderEdge `json:"edges"`
	Layout   *LayoutNode  `json:"layout"`
	// Filtered counts neighbors hidden by the expansion filter.
	Filtered int `json:"filteredCount"`
}
