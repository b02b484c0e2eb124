package graph

import (
	"log/slog"

	"github.com/abramin/voyage/internal/catalog"
	"github.com/abramin/voyage/internal/logging"
	"github.com/abramin/voyage/internal/matcher"
	"github.com/abramin/voyage/internal/nodeid"
)

// Builder derives a Graph from a list of services.
type Builder struct {
	logger *slog.Logger
}

// NewBuilder creates a builder.
func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{logger: logging.OrDiscard(logger)}
}

// Build is shorthand for NewBuilder(logger).Build(services).
func Build(logger *slog.Logger, services []catalog.Service) *Graph {
	return NewBuilder(logger).Build(services)
}

// Build adds every node first and then every edge. Unresolvable addresses
// are logged and skipped, so a partial catalog still yields a usable graph.
// The result only depends on the order of services.
func (b *Builder) Build(services []catalog.Service) *Graph {
	g := New(b.logger)
	g.services = services
	log := b.logger.With("component", "graph_builder")

	for i := range services {
		b.addNodes(g, log, &services[i])
	}
	for i := range services {
		b.addEdges(g, log, services, &services[i])
	}

	log.Debug("graph built",
		"services", len(services),
		"nodes", len(g.nodes),
		"edges", len(g.edges),
		"dangling", len(g.dangling),
	)
	return g
}

func (b *Builder) addNodes(g *Graph, log *slog.Logger, svc *catalog.Service) {
	for i := range svc.Commands {
		cmd := &svc.Commands[i]
		b.add(g, log, &Node{
			ID:             nodeid.CommandID(svc.Name, svc.Version, cmd.Name),
			Kind:           KindCommand,
			ServiceName:    svc.Name,
			ServiceVersion: svc.Version,
			Name:           cmd.Name,
			Deprecated:     svc.Deprecated || cmd.Deprecated,
			EventName:      cmd.EventName,
			Command:        cmd,
		})

		if ep := catalog.NewEndpoint(*svc, *cmd); ep != nil {
			b.add(g, log, &Node{
				ID:             nodeid.EndpointID(svc.Version, string(ep.Method), ep.Path),
				Kind:           KindEndpoint,
				ServiceName:    svc.Name,
				ServiceVersion: svc.Version,
				Name:           ep.Name,
				Deprecated:     ep.IsDeprecated,
				Endpoint:       ep,
			})
		}
	}

	for i := range svc.Subscriptions {
		sub := &svc.Subscriptions[i]
		b.add(g, log, &Node{
			ID:             nodeid.SubscriptionID(svc.Name, svc.Version, sub.Name),
			Kind:           KindSubscription,
			ServiceName:    svc.Name,
			ServiceVersion: svc.Version,
			Name:           sub.Name,
			Deprecated:     svc.Deprecated || sub.Deprecated,
			EventName:      sub.EventName,
			Subscription:   sub,
		})
	}
}

func (b *Builder) add(g *Graph, log *slog.Logger, n *Node) {
	if err := g.AddNode(n); err != nil {
		log.Warn("skipping node", "id", n.ID, "error", err)
	}
}

func (b *Builder) addEdges(g *Graph, log *slog.Logger, services []catalog.Service, svc *catalog.Service) {
	for _, cmd := range svc.Commands {
		cmdID := nodeid.CommandID(svc.Name, svc.Version, cmd.Name)
		b.invokes(g, log, cmdID, cmd.Invokes)

		if cmd.RestAPI != nil {
			epID := nodeid.EndpointID(svc.Version, string(cmd.RestAPI.Method), cmd.RestAPI.Path)
			// A duplicate endpoint belongs to the command that registered it first.
			if ep, ok := g.Lookup(epID); ok && ep.ServiceName == svc.Name && ep.Endpoint.ServiceTarget == cmd.Name {
				b.connect(g, log, epID, cmdID, LabelInvoke, RelationInvokes)
			}
		}
	}

	for _, sub := range svc.Subscriptions {
		subID := nodeid.SubscriptionID(svc.Name, svc.Version, sub.Name)
		b.invokes(g, log, subID, sub.Invokes)

		for _, s := range services {
			for _, cmd := range s.Commands {
				if matcher.Matches(sub, matcher.FromCommand(s, cmd)) {
					b.connect(g, log, nodeid.CommandID(s.Name, s.Version, cmd.Name), subID, LabelSubscribes, RelationSubscribes)
				}
			}
		}
		for _, s := range services {
			for _, pub := range s.Subscriptions {
				if matcher.Matches(sub, matcher.FromSubscription(s, pub)) {
					b.connect(g, log, nodeid.SubscriptionID(s.Name, s.Version, pub.Name), subID, LabelSubscribes, RelationSubscribes)
				}
			}
		}
	}
}

func (b *Builder) invokes(g *Graph, log *slog.Logger, caller string, addrs []catalog.Address) {
	for _, addr := range addrs {
		target := nodeid.CommandID(addr.ServiceName, addr.ServiceVersion, addr.ServiceTarget)
		if _, ok := g.Lookup(target); !ok {
			log.Error("unresolved address", "address", addr.String(), "caller", caller)
			g.dangling = append(g.dangling, Dangling{Caller: caller, Address: addr, Relation: RelationInvokes})
			continue
		}
		b.connect(g, log, caller, target, LabelInvoke, RelationInvokes)
	}
}

func (b *Builder) connect(g *Graph, log *slog.Logger, source, target string, label Label, rel Relation) {
	if _, err := g.AddEdge(source, target, label, rel); err != nil {
		log.Error("skipping edge", "source", source, "target", target, "error", err)
	}
}
