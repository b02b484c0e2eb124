package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abramin/voyage/internal/catalog"
)

type edgeKey struct {
	Source, Target string
	Label          Label
	Relation       Relation
}

func edgeKeys(g *Graph) []edgeKey {
	var keys []edgeKey
	for _, e := range g.Edges() {
		keys = append(keys, edgeKey{e.Source, e.Target, e.Label, e.Relation})
	}
	return keys
}

func nodeIDs(nodes []*Node) []string {
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func logRecords(t *testing.T, buf *bytes.Buffer, level string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if rec["level"] == level {
			out = append(out, rec)
		}
	}
	return out
}

func TestBuildExample(t *testing.T) {
	g := Build(nil, catalog.ExampleServices())

	wantNodes := []string{
		"command_User_1_userSignUp",
		"endpoint_1_POST_signUp",
		"command_User_1_getUserById",
		"endpoint_1_GET_users/:userId",
		"subscription_Email_1_sendEmailVerification",
		"subscription_Identity_1_createEmailValidateToken",
	}
	if diff := cmp.Diff(wantNodes, nodeIDs(g.Nodes())); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}

	wantEdges := []edgeKey{
		{"endpoint_1_POST_signUp", "command_User_1_userSignUp", LabelInvoke, RelationInvokes},
		{"endpoint_1_GET_users/:userId", "command_User_1_getUserById", LabelInvoke, RelationInvokes},
		{"subscription_Identity_1_createEmailValidateToken", "subscription_Email_1_sendEmailVerification", LabelSubscribes, RelationSubscribes},
		{"subscription_Identity_1_createEmailValidateToken", "command_User_1_getUserById", LabelInvoke, RelationInvokes},
		{"command_User_1_userSignUp", "subscription_Identity_1_createEmailValidateToken", LabelSubscribes, RelationSubscribes},
	}
	if diff := cmp.Diff(wantEdges, edgeKeys(g)); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, g.Dangling())
}

func TestBuildUserIdentityScenario(t *testing.T) {
	services := catalog.ExampleServices()
	var user, identity catalog.Service
	for _, s := range services {
		switch s.Name {
		case "User":
			user = s
		case "Identity":
			identity = s
		}
	}

	g := Build(nil, []catalog.Service{user, identity})
	keys := edgeKeys(g)

	assert.Contains(t, keys, edgeKey{
		"command_User_1_userSignUp", "subscription_Identity_1_createEmailValidateToken",
		LabelSubscribes, RelationSubscribes,
	})
	assert.Contains(t, keys, edgeKey{
		"subscription_Identity_1_createEmailValidateToken", "command_User_1_getUserById",
		LabelInvoke, RelationInvokes,
	})
}

func TestBuildIsIdempotent(t *testing.T) {
	first := Build(nil, catalog.ExampleServices())
	second := Build(nil, catalog.ExampleServices())

	assert.Equal(t, nodeIDs(first.Nodes()), nodeIDs(second.Nodes()))

	sortKeys := func(keys []edgeKey) []edgeKey {
		sort.Slice(keys, func(i, j int) bool {
			a, b := keys[i], keys[j]
			if a.Source != b.Source {
				return a.Source < b.Source
			}
			if a.Target != b.Target {
				return a.Target < b.Target
			}
			return a.Relation < b.Relation
		})
		return keys
	}
	if diff := cmp.Diff(sortKeys(edgeKeys(first)), sortKeys(edgeKeys(second))); diff != "" {
		t.Errorf("edge multisets differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.Edges(), second.Edges())
}

func TestBuildDanglingAddress(t *testing.T) {
	logger, buf := captureLogger()
	services := []catalog.Service{{
		Name:    "Billing",
		Version: "1",
		Commands: []catalog.Command{
			{Name: "charge", Invokes: []catalog.Address{{ServiceName: "Ghost", ServiceVersion: "1", ServiceTarget: "haunt"}}},
			{Name: "refund"},
		},
	}}

	g := Build(logger, services)

	assert.Len(t, g.Nodes(), 2)
	assert.Empty(t, g.Edges())
	require.Len(t, g.Dangling(), 1)
	assert.Equal(t, "command_Billing_1_charge", g.Dangling()[0].Caller)

	errs := logRecords(t, buf, "ERROR")
	require.Len(t, errs, 1)
	assert.Equal(t, "Ghost/1/haunt", errs[0]["address"])
	assert.Equal(t, "command_Billing_1_charge", errs[0]["caller"])
}

func TestBuildDeprecationPropagates(t *testing.T) {
	services := []catalog.Service{{
		Name: "Old", Version: "1", Deprecated: true,
		Commands: []catalog.Command{{Name: "a", RestAPI: &catalog.RestAPI{Method: catalog.MethodGet, Path: "a"}}},
	}, {
		Name: "New", Version: "1",
		Commands:      []catalog.Command{{Name: "b", Deprecated: true}, {Name: "c"}},
		Subscriptions: []catalog.Subscription{{Name: "d", Deprecated: true, SubscribesTo: catalog.SubscribesTo{EventName: "never"}}},
	}}

	g := Build(nil, services)

	assert.True(t, g.Command("Old", "1", "a").Deprecated)
	assert.True(t, g.Endpoint("1", catalog.MethodGet, "a").Deprecated)
	assert.True(t, g.Command("New", "1", "b").Deprecated)
	assert.False(t, g.Command("New", "1", "c").Deprecated)
	assert.True(t, g.Subscription("New", "1", "d").Deprecated)
}

func TestBuildDuplicateNodeKeepsFirst(t *testing.T) {
	logger, buf := captureLogger()
	services := []catalog.Service{{
		Name: "A", Version: "1",
		Commands: []catalog.Command{
			{Name: "x", Description: "first", RestAPI: &catalog.RestAPI{Method: catalog.MethodGet, Path: "x"}},
			{Name: "x", Description: "second"},
			{Name: "y", RestAPI: &catalog.RestAPI{Method: catalog.MethodGet, Path: "x"}},
		},
	}}

	g := Build(logger, services)

	assert.Equal(t, "first", g.Command("A", "1", "x").Command.Description)
	assert.Len(t, logRecords(t, buf, "WARN"), 2)

	// The shared endpoint only bridges to the command that registered it.
	ep := g.Endpoint("1", catalog.MethodGet, "x")
	require.NotNil(t, ep)
	assert.Equal(t, []string{"command_A_1_x"}, nodeIDs(g.CommandsInvokedBy(ep.ID)))
}

func TestBuildSelfSubscription(t *testing.T) {
	services := []catalog.Service{{
		Name: "Loop", Version: "1",
		Subscriptions: []catalog.Subscription{{
			Name:         "echo",
			EventName:    "ping",
			SubscribesTo: catalog.SubscribesTo{EventName: "ping"},
		}},
	}}

	g := Build(nil, services)

	require.Len(t, g.Edges(), 1)
	e := g.Edges()[0]
	assert.Equal(t, e.Source, e.Target)
	assert.Equal(t, RelationSubscribes, e.Relation)
}

func TestBuildSubscriptionMessageTypes(t *testing.T) {
	services := []catalog.Service{{
		Name: "P", Version: "1",
		Commands:      []catalog.Command{{Name: "cmd", EventName: "done"}},
		Subscriptions: []catalog.Subscription{{Name: "relay", EventName: "done"}},
	}, {
		Name: "C", Version: "1",
		Subscriptions: []catalog.Subscription{
			{Name: "onSuccess", SubscribesTo: catalog.SubscribesTo{EventName: "done", MessageType: catalog.MessageCommandSuccessResponse}},
			{Name: "onCustom", SubscribesTo: catalog.SubscribesTo{EventName: "done", MessageType: catalog.MessageCustom}},
		},
	}}

	g := Build(nil, services)

	// Commands and subscriptions both publish command success responses.
	assert.Equal(t, []string{"command_P_1_cmd", "subscription_P_1_relay"}, nodeIDs(g.InputNodes("subscription_C_1_onSuccess")))
	assert.Empty(t, g.InputNodes("subscription_C_1_onCustom"))
}

func TestSubscriptionPublisherMatchesSuccessResponseFilter(t *testing.T) {
	services := []catalog.Service{{
		Name: "A", Version: "1",
		Subscriptions: []catalog.Subscription{
			{Name: "pub", EventName: "x"},
			{Name: "sink", SubscribesTo: catalog.SubscribesTo{EventName: "x", MessageType: catalog.MessageCommandSuccessResponse}},
		},
	}}

	g := Build(nil, services)

	var subscribes []*Edge
	for _, e := range g.OutEdges("subscription_A_1_pub") {
		if e.Target == "subscription_A_1_sink" && e.Relation == RelationSubscribes {
			subscribes = append(subscribes, e)
		}
	}
	assert.Len(t, subscribes, 1)
}

func TestParallelEdges(t *testing.T) {
	services := []catalog.Service{{
		Name: "A", Version: "1",
		Commands: []catalog.Command{
			{Name: "caller", Invokes: []catalog.Address{
				{ServiceName: "A", ServiceVersion: "1", ServiceTarget: "callee"},
				{ServiceName: "A", ServiceVersion: "1", ServiceTarget: "callee"},
			}},
			{Name: "callee"},
		},
	}}

	g := Build(nil, services)

	assert.Len(t, g.OutEdges("command_A_1_caller"), 2)
	assert.NotEqual(t, g.Edges()[0].ID, g.Edges()[1].ID)
	// Neighbors are distinct even with parallel edges.
	assert.Len(t, g.OutboundNeighbors("command_A_1_caller"), 1)
	assert.Len(t, g.InboundNeighbors("command_A_1_callee"), 1)
}

func TestAddEdgeRequiresNodes(t *testing.T) {
	g := New(nil)
	require.NoError(t, g.AddNode(&Node{ID: "a", Kind: KindCommand}))

	_, err := g.AddEdge("a", "b", LabelInvoke, RelationInvokes)
	assert.True(t, errors.Is(err, ErrNodeNotFound))

	err = g.AddNode(&Node{ID: "a", Kind: KindCommand})
	assert.True(t, errors.Is(err, ErrDuplicateNode))
}

func TestQueries(t *testing.T) {
	g := Build(nil, catalog.ExampleServices())

	t.Run("nodes of kind", func(t *testing.T) {
		assert.Equal(t,
			[]string{"endpoint_1_POST_signUp", "endpoint_1_GET_users/:userId"},
			nodeIDs(g.NodesOfKind(KindEndpoint)))
		assert.Len(t, g.NodesOfKind(KindSubscription), 2)
	})

	t.Run("neighbors", func(t *testing.T) {
		id := "subscription_Identity_1_createEmailValidateToken"
		assert.Equal(t, []string{"command_User_1_userSignUp"}, nodeIDs(g.InboundNeighbors(id)))
		assert.Equal(t,
			[]string{"subscription_Email_1_sendEmailVerification", "command_User_1_getUserById"},
			nodeIDs(g.OutboundNeighbors(id)))
		assert.Equal(t, []string{"command_User_1_getUserById"}, nodeIDs(g.CommandsInvokedBy(id)))
		assert.Equal(t, []string{"subscription_Email_1_sendEmailVerification"}, nodeIDs(g.ConsumingSubscriptions(id)))
	})

	t.Run("lookups", func(t *testing.T) {
		require.NotNil(t, g.Command("User", "1", "userSignUp"))
		assert.Equal(t, "new-user-registered", g.Command("User", "1", "userSignUp").EventName)
		require.NotNil(t, g.Subscription("Email", "1", "sendEmailVerification"))
		ep := g.Endpoint("1", catalog.MethodPost, "signUp")
		require.NotNil(t, ep)
		assert.Equal(t, "POST: v1/signUp", ep.Name)

		cmd, ok := g.BridgedCommand(ep)
		require.True(t, ok)
		assert.Equal(t, "command_User_1_userSignUp", cmd.ID)
	})

	t.Run("endpoints", func(t *testing.T) {
		eps := g.Endpoints()
		require.Len(t, eps, 2)
		assert.Equal(t, "userSignUp", eps[0].Title)
		assert.True(t, eps[0].IsDeprecated)
	})

	t.Run("stats", func(t *testing.T) {
		st := g.Stats()
		assert.Equal(t, 4, st.Services)
		assert.Equal(t, 6, st.Nodes)
		assert.Equal(t, 5, st.Edges)
		assert.Equal(t, 2, st.ByKind[KindCommand])
		assert.Equal(t, 3, st.ByRelation[RelationInvokes])
		assert.Equal(t, 2, st.ByRelation[RelationSubscribes])
	})
}

func TestUnknownIDsDegradeGracefully(t *testing.T) {
	logger, buf := captureLogger()
	g := Build(logger, catalog.ExampleServices())
	buf.Reset()

	assert.Nil(t, g.Node("nope"))
	assert.Empty(t, g.InboundNeighbors("nope"))
	assert.Empty(t, g.OutboundNeighbors("nope", KindSubscription))
	assert.Nil(t, g.Command("Ghost", "1", "x"))

	assert.Len(t, logRecords(t, buf, "WARN"), 4)
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("endpoint")
	assert.True(t, ok)
	assert.Equal(t, KindEndpoint, k)

	_, ok = ParseKind("function")
	assert.False(t, ok)
}
