package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abramin/voyage/internal/catalog"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpenAndClose(t *testing.T) {
	tmpDir := t.TempDir()

	st, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	voyageDir := filepath.Join(tmpDir, DirName)
	if _, err := os.Stat(voyageDir); os.IsNotExist(err) {
		t.Errorf("%s directory was not created", DirName)
	}

	dbPath := filepath.Join(voyageDir, "catalog.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("catalog.db was not created")
	}
	assert.Equal(t, dbPath, st.DBPath())

	if err := st.Close(); err != nil {
		t.Errorf("failed to close store: %v", err)
	}
}

func TestSaveAndGetProject(t *testing.T) {
	st := openStore(t)

	want := catalog.Example()
	require.NoError(t, st.SaveProject(want, "builtin"))

	got, err := st.GetProject(want.ID)
	require.NoError(t, err)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.Markdown, got.Markdown)
	assert.Equal(t, want.Services, got.Services)
}

func TestSaveProjectReplacesServices(t *testing.T) {
	st := openStore(t)

	p := catalog.Project{ID: "shop", Name: "Shop", Services: []catalog.Service{
		{Name: "Cart", Version: "1"},
		{Name: "Cart", Version: "2"},
	}}
	require.NoError(t, st.SaveProject(p, "services"))

	p.Name = "Shop v2"
	p.Services = []catalog.Service{{Name: "Checkout", Version: "1", Commands: []catalog.Command{{Name: "pay"}}}}
	require.NoError(t, st.SaveProject(p, "services"))

	got, err := st.GetProject("shop")
	require.NoError(t, err)
	assert.Equal(t, "Shop v2", got.Name)
	require.Len(t, got.Services, 1)
	assert.Equal(t, "Checkout", got.Services[0].Name)
}

func TestSaveProjectRollsBackOnDuplicateService(t *testing.T) {
	st := openStore(t)

	p := catalog.Project{ID: "dup", Name: "Dup", Services: []catalog.Service{
		{Name: "A", Version: "1"},
		{Name: "A", Version: "1"},
	}}
	err := st.SaveProject(p, "")
	require.Error(t, err)

	_, err = st.GetProject("dup")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestServiceOrderIsPreserved(t *testing.T) {
	st := openStore(t)

	p := catalog.Project{ID: "order", Name: "Order", Services: []catalog.Service{
		{Name: "Zeta", Version: "1"},
		{Name: "Alpha", Version: "1"},
		{Name: "Mid", Version: "3"},
	}}
	require.NoError(t, st.SaveProject(p, ""))

	got, err := st.GetProject("order")
	require.NoError(t, err)
	var names []string
	for _, s := range got.Services {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, names)
}

func TestListAndDeleteProjects(t *testing.T) {
	st := openStore(t)

	require.NoError(t, st.SaveProject(catalog.Example(), "builtin"))
	require.NoError(t, st.SaveProject(catalog.Project{ID: "alpha", Name: "Alpha"}, "dir"))

	projects, err := st.ListProjects()
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "alpha", projects[0].ID)
	assert.Equal(t, 0, projects[0].ServiceCount)
	assert.Equal(t, "dir", projects[0].Source)
	assert.Equal(t, catalog.DemoProjectID, projects[1].ID)
	assert.Equal(t, 4, projects[1].ServiceCount)
	assert.False(t, projects[1].UpdatedAt.IsZero())

	require.NoError(t, st.DeleteProject(catalog.DemoProjectID))
	projects, err = st.ListProjects()
	require.NoError(t, err)
	assert.Len(t, projects, 1)

	err = st.DeleteProject(catalog.DemoProjectID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetProjectNotFound(t *testing.T) {
	st := openStore(t)

	_, err := st.GetProject("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMetadata(t *testing.T) {
	st := openStore(t)

	if err := st.SetMetadata("test_key", "test_value"); err != nil {
		t.Fatalf("failed to set metadata: %v", err)
	}

	value, err := st.GetMetadata("test_key")
	if err != nil {
		t.Fatalf("failed to get metadata: %v", err)
	}
	if value != "test_value" {
		t.Errorf("expected 'test_value', got '%s'", value)
	}

	if err := st.SetMetadata("test_key", "new_value"); err != nil {
		t.Fatalf("failed to update metadata: %v", err)
	}
	value, _ = st.GetMetadata("test_key")
	if value != "new_value" {
		t.Errorf("expected 'new_value', got '%s'", value)
	}
}

func TestGetStats(t *testing.T) {
	st := openStore(t)

	require.NoError(t, st.SaveProject(catalog.Example(), "builtin"))
	require.NoError(t, st.SetMetadata(MetaIndexedAt, "2024-01-15T10:30:00Z"))

	stats, err := st.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ProjectCount)
	assert.Equal(t, 4, stats.ServiceCount)
	assert.Equal(t, 2, stats.CommandCount)
	assert.Equal(t, 2, stats.SubscriptionCount)
	assert.Equal(t, 2024, stats.IndexedAt.Year())
}

func TestClear(t *testing.T) {
	st := openStore(t)

	require.NoError(t, st.SaveProject(catalog.Example(), "builtin"))
	require.NoError(t, st.SetMetadata("k", "v"))
	require.NoError(t, st.Clear())

	stats, err := st.GetStats()
	require.NoError(t, err)
	assert.Zero(t, stats.ProjectCount)
	assert.Zero(t, stats.ServiceCount)
	_, err = st.GetMetadata("k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWriteIndexJSON(t *testing.T) {
	tmpDir := t.TempDir()
	st, err := Open(tmpDir)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.SaveProject(catalog.Example(), "builtin"))
	require.NoError(t, st.WriteIndexJSON())

	data, err := os.ReadFile(filepath.Join(tmpDir, DirName, "index.json"))
	require.NoError(t, err)

	var meta IndexMetadata
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, "1", meta.Version)
	assert.Equal(t, tmpDir, meta.BaseDir)
	assert.Equal(t, 4, meta.ServiceCount)
	assert.Equal(t, []string{catalog.DemoProjectID}, meta.Projects)
}
