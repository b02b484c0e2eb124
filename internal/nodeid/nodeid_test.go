package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDs(t *testing.T) {
	assert.Equal(t, "command_User_1_userSignUp", CommandID("User", "1", "userSignUp"))
	assert.Equal(t, "subscription_Identity_1_createEmailValidateToken",
		SubscriptionID("Identity", "1", "createEmailValidateToken"))
	assert.Equal(t, "endpoint_1_POST_signUp", EndpointID("1", "POST", "signUp"))
}

func TestIDsAreDeterministic(t *testing.T) {
	assert.Equal(t, CommandID("a", "2", "b"), CommandID("a", "2", "b"))
	assert.Equal(t, EndpointID("2", "GET", "users/:id"), EndpointID("2", "GET", "users/:id"))
}

func TestIDsDistinctAcrossKinds(t *testing.T) {
	triples := [][3]string{
		{"User", "1", "signUp"},
		{"User", "2", "signUp"},
		{"User", "1", "getUser"},
		{"Identity", "1", "signUp"},
		{"1", "POST", "signUp"},
	}

	seen := make(map[string]string)
	add := func(id, origin string) {
		t.Helper()
		if prev, ok := seen[id]; ok {
			t.Fatalf("id %q produced by both %s and %s", id, prev, origin)
		}
		seen[id] = origin
	}
	for _, tr := range triples {
		add(CommandID(tr[0], tr[1], tr[2]), "command "+tr[0]+"/"+tr[1]+"/"+tr[2])
		add(SubscriptionID(tr[0], tr[1], tr[2]), "subscription "+tr[0]+"/"+tr[1]+"/"+tr[2])
		add(EndpointID(tr[0], tr[1], tr[2]), "endpoint "+tr[0]+"/"+tr[1]+"/"+tr[2])
	}
	assert.Len(t, seen, len(triples)*3)
}

func TestPrefix(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{CommandID("a", "1", "b"), CommandPrefix},
		{SubscriptionID("a", "1", "b"), SubscriptionPrefix},
		{EndpointID("1", "GET", "x"), EndpointPrefix},
		{"commandless", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Prefix(tt.id), tt.id)
	}
}
