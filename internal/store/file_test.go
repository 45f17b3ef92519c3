package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugindex/plugindex/internal/model"
)

func testMarketplaces() []model.Marketplace {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return []model.Marketplace{
		{
			Repo:         "Acme/Tools",
			Slug:         "acme-tools",
			Description:  "Acme tools",
			PluginCount:  2,
			Categories:   []string{"dev"},
			DiscoveredAt: now,
			LastUpdated:  now,
			Source:       model.SourceAuto,
		},
	}
}

func TestFileStoreReplaceAndLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewFileStore(t.TempDir())

	require.NoError(t, s.ReplaceMarketplaces(ctx, testMarketplaces()))

	loaded, err := s.LoadMarketplaces(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Acme/Tools", loaded[0].Repo)
	assert.Equal(t, "acme-tools", loaded[0].Slug)

	plugins := []model.Plugin{{ID: "acme-tools/x", Name: "x", Marketplace: "acme-tools"}}
	require.NoError(t, s.ReplacePlugins(ctx, plugins))
	loadedPlugins, err := s.LoadPlugins(ctx)
	require.NoError(t, err)
	require.Len(t, loadedPlugins, 1)
	assert.Equal(t, "acme-tools/x", loadedPlugins[0].ID)
}

func TestFileStoreLoadMissingIsEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewFileStore(t.TempDir())

	marketplaces, err := s.LoadMarketplaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, marketplaces)

	plugins, err := s.LoadPlugins(ctx)
	require.NoError(t, err)
	assert.Empty(t, plugins)
}

func TestFileStoreSlugRecomputedOnLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	// Snapshot with a drifted slug on disk.
	data := `[{"repo": "Acme/Tools", "slug": "totally-wrong", "source": "auto"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, MarketplacesFileName), []byte(data), 0600))

	s := NewFileStore(dir)
	loaded, err := s.LoadMarketplaces(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "acme-tools", loaded[0].Slug)
}

func TestFileStoreLoadCorruptFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, MarketplacesFileName), []byte("not json"), 0600))

	s := NewFileStore(dir)
	_, err := s.LoadMarketplaces(ctx)
	require.Error(t, err)
}

func TestFileStoreReplaceLeavesNoTempFile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	s := NewFileStore(dir)

	require.NoError(t, s.ReplaceMarketplaces(ctx, testMarketplaces()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestFileStoreRunLock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewFileStore(t.TempDir())

	release, err := s.AcquireRunLock(ctx)
	require.NoError(t, err)

	// Second acquisition from the same store directory must fail.
	_, err = s.AcquireRunLock(ctx)
	require.Error(t, err)

	release()

	release2, err := s.AcquireRunLock(ctx)
	require.NoError(t, err)
	release2()
}
