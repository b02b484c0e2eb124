package traverse

import (
	"unicode/utf8"

	"github.com/abramin/voyage/internal/graph"
)

// Layout tree id prefixes. Leaves reuse the node id so computed positions
// map straight back onto render nodes.
const (
	RootLayoutID   = "root"
	groupPrefix    = "group_"
	lanesPrefix    = "lanes_"
	inputPrefix    = "input_"
	functionPrefix = "function_"
	outputPrefix   = "output_"
	invokePrefix   = "invoke_"
)

func rootLayoutOptions() map[string]string {
	return map[string]string{
		"elk.nodeLabels.placement":                                "INSIDE V_CENTER H_CENTER",
		"elk.direction":                                           "RIGHT",
		"nodeLayering":                                            "INTERACTIVE",
		"org.eclipse.elk.edgeRouting":                             "ORTHOGONAL",
		"elk.layered.unnecessaryBendpoints":                       "true",
		"elk.layered.spacing.edgeNodeBetweenLayers":               "50",
		"org.eclipse.elk.layered.nodePlacement.bk.fixedAlignment": "BALANCED",
		"org.eclipse.elk.layered.cycleBreaking.strategy":          "DEPTH_FIRST",
		"org.eclipse.elk.insideSelfLoops.activate":                "true",
		"spacing.componentComponent":                              "20",
		"spacing.nodeNodeBetweenLayers":                           "20",
	}
}

func direction(d string) map[string]string {
	return map[string]string{"elk.direction": d}
}

// leaf sizes the box of a node from its label length and kind.
func (e *Engine) leaf(n *graph.Node) *LayoutNode {
	width := utf8.RuneCountInString(n.Name) * e.layout.CharWidth
	if width == 0 {
		width = e.layout.MinLabelWidth
	}
	width += e.layout.Padding

	height := e.layout.NodeHeight
	switch {
	case n.Kind == graph.KindEndpoint:
		height = e.layout.EndpointHeight
	case n.EventName != "":
		height = e.layout.EventNodeHeight
	}

	return &LayoutNode{
		ID:     n.ID,
		Labels: []LayoutLabel{{Text: n.Name}},
		Width:  width,
		Height: height,
	}
}

// lanes holds the layout groups collected while expanding one node.
type lanes struct {
	input  []*LayoutNode
	output []*LayoutNode
	invoke []*LayoutNode
}

// compose assembles the input, function and output lanes of id left to
// right and attaches the invoke lane below them.
func (e *Engine) compose(id string, box *LayoutNode, l lanes) *LayoutNode {
	row := &LayoutNode{ID: lanesPrefix + id, LayoutOptions: direction("RIGHT")}
	var prev string
	for _, lane := range []struct {
		id       string
		children []*LayoutNode
	}{
		{inputPrefix + id, l.input},
		{functionPrefix + id, []*LayoutNode{box}},
		{outputPrefix + id, l.output},
	} {
		if len(lane.children) == 0 {
			continue
		}
		row.Children = append(row.Children, &LayoutNode{
			ID:            lane.id,
			LayoutOptions: direction("DOWN"),
			Children:      lane.children,
		})
		if prev != "" {
			row.Edges = append(row.Edges, e.layoutEdge(prev, lane.id))
		}
		prev = lane.id
	}

	group := &LayoutNode{
		ID:            groupPrefix + id,
		LayoutOptions: direction("DOWN"),
		Children:      []*LayoutNode{row},
	}
	if len(l.invoke) > 0 {
		invoke := &LayoutNode{
			ID:            invokePrefix + id,
			LayoutOptions: direction("RIGHT"),
			Children:      l.invoke,
		}
		group.Children = append(group.Children, invoke)
		group.Edges = append(group.Edges, e.layoutEdge(row.ID, invoke.ID))
	}
	return group
}

func (e *Engine) layoutEdge(source, target string) LayoutEdge {
	return LayoutEdge{ID: e.newID(), Sources: []string{source}, Targets: []string{target}}
}
