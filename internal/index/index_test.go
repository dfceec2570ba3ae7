package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("# lkml\n"), 0o644))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "models/ecommerce.lkml")
	writeFile(t, root, "analytics.model.lkml")
	writeFile(t, root, "legacy_model_extra.lkml")
	writeFile(t, root, "views/orders.view.lkml")
	writeFile(t, root, "custom_views/derived_tables/sessions.view.lkml")
	writeFile(t, root, "README.md")
	writeFile(t, root, "dashboards/sales.dashboard.lkml")

	fset, err := Discover(root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"models/ecommerce.lkml",
		"analytics.model.lkml",
		"legacy_model_extra.lkml",
	}, fset.ModelPaths)
	assert.ElementsMatch(t, []string{
		"views/orders.view.lkml",
		"custom_views/derived_tables/sessions.view.lkml",
	}, fset.ViewPaths)
	assert.Equal(t, 5, fset.Len())
}

func TestDiscover_ViewFileNeverModel(t *testing.T) {
	root := t.TempDir()
	// A view file whose name contains "model" must stay view-like.
	writeFile(t, root, "model_orders.view.lkml")

	fset, err := Discover(root)
	require.NoError(t, err)
	assert.Empty(t, fset.ModelPaths)
	assert.Equal(t, []string{"model_orders.view.lkml"}, fset.ViewPaths)
}

func TestDiscover_Deterministic(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "views/b.view.lkml")
	writeFile(t, root, "views/a.view.lkml")

	first, err := Discover(root)
	require.NoError(t, err)
	second, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, first.ViewPaths, second.ViewPaths)
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
