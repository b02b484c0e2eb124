package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abramin/voyage/internal/config"
)

const userYAML = `
name: User
version: "1"
description: Manages users
commands:
  - name: userSignUp
    eventName: new-user-registered
    inputSchema:
      type: object
    restApi:
      method: POST
      path: signUp
    invokes: []
`

const multiYAML = `
services:
  - name: Email
    version: "1"
    subscriptions:
      - name: sendWelcome
        subscribesTo:
          eventname: new-user-registered
          sender:
            name: User
        invokes:
          - serviceName: User
            serviceVersion: "1"
            serviceTarget: userSignUp
  - name: Email
    version: "2"
`

const billingJSON = `{
  "name": "Billing",
  "version": "1",
  "commands": [{"name": "charge", "invokes": [], "outputSchema": {"type": "object"}}]
}`

func writeCatalog(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, map[string]string{
		"user.yaml":              userYAML,
		"nested/email.yml":       multiYAML,
		"billing.json":           billingJSON,
		"README.md":              "# not a catalog file",
		"node_modules/skip.yaml": userYAML,
		"testdata/fixture.yaml":  userYAML,
	})

	l := NewLoader(config.Default(), nil, dir)
	services, err := l.Load(context.Background())
	require.NoError(t, err)

	// Files are read in sorted order: billing.json, nested/email.yml, user.yaml.
	var got []string
	for _, s := range services {
		got = append(got, s.Name+"@"+s.Version)
	}
	assert.Equal(t, []string{"Billing@1", "Email@1", "Email@2", "User@1"}, got)
	assert.Len(t, l.Files(), 3)
	assert.Equal(t, []string{dir}, l.Dirs())

	user := services[3]
	require.Len(t, user.Commands, 1)
	cmd := user.Commands[0]
	assert.Equal(t, "new-user-registered", cmd.EventName)
	require.NotNil(t, cmd.RestAPI)
	assert.Equal(t, MethodPost, cmd.RestAPI.Method)
	assert.Equal(t, "object", cmd.InputSchema["type"])

	sub := services[1].Subscriptions[0]
	assert.Equal(t, "new-user-registered", sub.SubscribesTo.EventName)
	require.NotNil(t, sub.SubscribesTo.Sender)
	assert.Equal(t, "User", sub.SubscribesTo.Sender.Name)
	assert.Equal(t, "User/1/userSignUp", sub.Invokes[0].String())

	assert.Equal(t, "object", services[0].Commands[0].OutputSchema["type"])
}

func TestLoaderUsesConfiguredDirs(t *testing.T) {
	cfg := config.Default()
	cfg.Catalog.Dirs = []string{"a", "b"}

	assert.Equal(t, []string{"a", "b"}, NewLoader(cfg, nil).Dirs())
}

func TestLoaderDuplicateService(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, map[string]string{
		"a.yaml": userYAML,
		"b.yaml": userYAML,
	})

	_, err := NewLoader(config.Default(), nil, dir).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defined twice")
}

func TestLoaderParseError(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, map[string]string{"broken.yaml": "name: [unclosed"})

	_, err := NewLoader(config.Default(), nil, dir).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
}

func TestLoaderMissingDir(t *testing.T) {
	_, err := NewLoader(config.Default(), nil, filepath.Join(t.TempDir(), "missing")).Load(context.Background())
	assert.Error(t, err)
}

func TestLoaderCancelled(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, map[string]string{"user.yaml": userYAML})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(config.Default(), nil, dir).Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseServicesEmpty(t *testing.T) {
	for _, doc := range []string{"", "   \n", "# only a comment\n"} {
		services, err := ParseServices([]byte(doc), "empty.yaml")
		require.NoError(t, err)
		assert.Empty(t, services)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		services []Service
		wantErr  string
	}{
		{"ok", []Service{{Name: "A", Version: "1"}, {Name: "A", Version: "2"}}, ""},
		{"missing name", []Service{{Version: "1"}}, "missing name"},
		{"missing version", []Service{{Name: "A"}}, "missing version"},
		{"duplicate", []Service{{Name: "A", Version: "1"}, {Name: "A", Version: "1"}}, "defined twice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.services)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
