package traverse

import (
	"strings"

	"github.com/abramin/voyage/internal/graph"
)

// Filter hides neighbors from an expansion. The root is never hidden.
type Filter struct {
	HideDeprecated bool `json:"hideDeprecated"`
	// HideServices lists service names to hide. A trailing * matches any suffix.
	HideServices []string `json:"hideServices"`
	// HideKinds lists node kinds to hide.
	HideKinds []graph.Kind `json:"hideKinds"`
}

// shouldFilter returns true if the node should be left out of the expansion.
func (f Filter) shouldFilter(n *graph.Node) bool {
	if f.HideDeprecated && n.Deprecated {
		return true
	}
	for _, k := range f.HideKinds {
		if n.Kind == k {
			return true
		}
	}
	for _, pattern := range f.HideServices {
		if matchServicePattern(pattern, n.ServiceName) {
			return true
		}
	}
	return false
}

// matchServicePattern matches a service name against a pattern.
func matchServicePattern(pattern, name string) bool {
	if pattern == name {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(name, prefix)
	}
	return false
}
