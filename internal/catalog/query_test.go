package catalog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindService(t *testing.T) {
	services := ExampleServices()

	s, ok := FindService(services, "Email", "1")
	require.True(t, ok)
	assert.Equal(t, "Sends emails to users", s.Description)

	_, ok = FindService(services, "Email", "2")
	assert.False(t, ok)
}

func TestGroupByName(t *testing.T) {
	services := []Service{
		{Name: "user", Version: "1"},
		{Name: "Billing", Version: "v2"},
		{Name: "user", Version: "10"},
		{Name: "user", Version: "2"},
		{Name: "Billing", Version: "v10"},
	}

	groups := GroupByName(services)

	var got [][]string
	for _, g := range groups {
		var versions []string
		for _, s := range g {
			versions = append(versions, s.Name+"@"+s.Version)
		}
		got = append(got, versions)
	}
	want := [][]string{
		{"Billing@v10", "Billing@v2"},
		{"user@10", "user@2", "user@1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GroupByName mismatch (-want +got):\n%s", diff)
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1", "1", 0},
		{"1", "2", -1},
		{"10", "9", 1},
		{"v1.2.0", "1.10.0", -1},
		{"beta", "alpha", 1},
		{"release-2", "release-10", -1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(tt.a, tt.b))
		})
	}
}

func TestEventNames(t *testing.T) {
	got := EventNames(ExampleServices())
	assert.Equal(t, []string{"new-user-registered", "validation-token-created"}, got)
	assert.Nil(t, EventNames(nil))
}

func TestRestEndpointCount(t *testing.T) {
	assert.Equal(t, 2, RestEndpointCount(ExampleServices()))
	assert.Zero(t, RestEndpointCount(nil))
}

func TestInvokingCommandsAndSubscriptions(t *testing.T) {
	services := ExampleServices()
	getUser := Address{ServiceName: "User", ServiceVersion: "1", ServiceTarget: "getUserById"}

	assert.Empty(t, InvokingCommands(services, getUser))
	assert.Equal(t, []Address{
		{ServiceName: "Identity", ServiceVersion: "1", ServiceTarget: "createEmailValidateToken"},
	}, InvokingSubscriptions(services, getUser))

	// Version is part of the address.
	assert.Empty(t, InvokingSubscriptions(services, Address{ServiceName: "User", ServiceVersion: "2", ServiceTarget: "getUserById"}))

	services = append(services, Service{
		Name:    "Admin",
		Version: "1",
		Commands: []Command{
			{Name: "inspect", Invokes: []Address{getUser}},
		},
	})
	assert.Equal(t, []Address{
		{ServiceName: "Admin", ServiceVersion: "1", ServiceTarget: "inspect"},
	}, InvokingCommands(services, getUser))
}

func TestAddressString(t *testing.T) {
	a := Address{ServiceName: "User", ServiceVersion: "1", ServiceTarget: "getUserById"}
	assert.Equal(t, "User/1/getUserById", a.String())
}

func TestNewEndpoint(t *testing.T) {
	services := ExampleServices()
	user := services[0]

	ep := NewEndpoint(user, user.Commands[1])
	require.NotNil(t, ep)
	assert.Equal(t, "GET: v1/users/:userId", ep.Name)
	assert.Equal(t, "User", ep.ServiceName)
	assert.Equal(t, "getUserById", ep.ServiceTarget)
	assert.Equal(t, MethodGet, ep.Method)
	assert.True(t, ep.IsProtected)
	// The User service is deprecated, so its endpoints are too.
	assert.True(t, ep.IsDeprecated)

	assert.Nil(t, NewEndpoint(user, Command{Name: "internal"}))
}

func TestExampleReturnsFreshValues(t *testing.T) {
	a := ExampleServices()
	a[0].Commands[0].Name = "changed"

	b := ExampleServices()
	assert.Equal(t, "userSignUp", b[0].Commands[0].Name)
	assert.Equal(t, DemoProjectID, Example().ID)
}
