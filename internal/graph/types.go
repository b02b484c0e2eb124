// Package graph holds the directed multigraph of commands, subscriptions and
// REST endpoints derived from a service catalog.
package graph

import (
	"github.com/abramin/voyage/internal/catalog"
)

// Kind discriminates the entity a node wraps.
type Kind string

const (
	KindCommand      Kind = "command"
	KindSubscription Kind = "subscription"
	KindEndpoint     Kind = "endpoint"
)

// ParseKind returns the kind named s.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindCommand, KindSubscription, KindEndpoint:
		return k, true
	}
	return "", false
}

// Label is the display label of an edge.
type Label string

const (
	LabelInvoke     Label = "Invoke"
	LabelSubscribes Label = "Subscribes"
)

// Relation is the semantic kind of an edge.
type Relation string

const (
	RelationInvokes    Relation = "Invokes"
	RelationSubscribes Relation = "Subscribes"
)

// Node is a command, subscription or endpoint together with the identity of
// its owning service. Exactly one of Command, Subscription and Endpoint is set.
type Node struct {
	ID             string `json:"id"`
	Kind           Kind   `json:"graphNodeType"`
	ServiceName    string `json:"serviceName"`
	ServiceVersion string `json:"serviceVersion"`
	Name           string `json:"name"`
	// Deprecated is true when either the entity or its service is deprecated.
	Deprecated bool   `json:"deprecated"`
	EventName  string `json:"eventName,omitempty"`

	Command      *catalog.Command      `json:"command,omitempty"`
	Subscription *catalog.Subscription `json:"subscription,omitempty"`
	Endpoint     *catalog.Endpoint     `json:"endpoint,omitempty"`
}

// Invokes returns the addresses the node calls. Endpoints declare none.
func (n *Node) Invokes() []catalog.Address {
	switch {
	case n.Command != nil:
		return n.Command.Invokes
	case n.Subscription != nil:
		return n.Subscription.Invokes
	}
	return nil
}

// Address returns the address other services use to reach the node.
func (n *Node) Address() catalog.Address {
	target := n.Name
	if n.Endpoint != nil {
		target = n.Endpoint.ServiceTarget
	}
	return catalog.Address{ServiceName: n.ServiceName, ServiceVersion: n.ServiceVersion, ServiceTarget: target}
}

// Edge is a directed, independently identified connection. Parallel edges
// between the same pair are allowed.
type Edge struct {
	ID       string   `json:"id"`
	Source   string   `json:"source"`
	Target   string   `json:"target"`
	Label    Label    `json:"label"`
	Relation Relation `json:"relation"`
}

// Dangling records an address that did not resolve during the build.
type Dangling struct {
	Caller   string          `json:"caller"`
	Address  catalog.Address `json:"address"`
	Relation Relation        `json:"relation"`
}

// Stats summarises a graph.
type Stats struct {
	Services   int              `json:"services"`
	Nodes      int              `json:"nodes"`
	Edges      int              `json:"edges"`
	Dangling   int              `json:"dangling"`
	ByKind     map[Kind]int     `json:"by_kind"`
	ByRelation map[Relation]int `json:"by_relation"`
}
