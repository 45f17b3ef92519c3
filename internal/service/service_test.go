package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugindex/plugindex/internal/model"
	"github.com/plugindex/plugindex/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	s := store.NewFileStore(t.TempDir())

	require.NoError(t, s.ReplaceMarketplaces(ctx, []model.Marketplace{
		{Repo: "zeta/kit", PluginCount: 1, Categories: []string{"testing"}, Source: model.SourceAuto},
		{Repo: "acme/tools", PluginCount: 2, Categories: []string{"dev", "testing"}, Source: model.SourceAuto},
		{Repo: "empty/market", PluginCount: 0, Source: model.SourceManual},
	}))
	require.NoError(t, s.ReplacePlugins(ctx, []model.Plugin{
		{ID: "acme-tools/fmt", Name: "fmt", Marketplace: "acme-tools"},
		{ID: "acme-tools/lint", Name: "lint", Marketplace: "acme-tools"},
		{ID: "zeta-kit/probe", Name: "probe", Marketplace: "zeta-kit"},
	}))

	svc, err := New(ctx, s)
	require.NoError(t, err)
	return svc
}

func TestListMarketplaces(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	nonEmpty := svc.ListMarketplaces(ctx, false)
	require.Len(t, nonEmpty, 2)
	// Sorted by repo.
	assert.Equal(t, "acme/tools", nonEmpty[0].Repo)
	assert.Equal(t, "zeta/kit", nonEmpty[1].Repo)

	all := svc.ListMarketplaces(ctx, true)
	assert.Len(t, all, 3)
}

func TestGetMarketplaceBySlug(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	m, err := svc.GetMarketplaceBySlug(ctx, "acme-tools")
	require.NoError(t, err)
	assert.Equal(t, "acme/tools", m.Repo)

	_, err = svc.GetMarketplaceBySlug(ctx, "nope")
	require.ErrorIs(t, err, ErrMarketplaceNotFound)
}

func TestListByCategory(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	matches := svc.ListByCategory(ctx, "testing")
	assert.Len(t, matches, 2)

	dev := svc.ListByCategory(ctx, "dev")
	require.Len(t, dev, 1)
	assert.Equal(t, "acme/tools", dev[0].Repo)

	assert.Empty(t, svc.ListByCategory(ctx, "nonexistent"))
}

func TestListCategories(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)

	categories := svc.ListCategories(context.Background())
	assert.Equal(t, []string{"dev", "testing"}, categories)
}

func TestPluginAccessors(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	all := svc.ListPlugins(ctx)
	require.Len(t, all, 3)
	assert.Equal(t, "acme-tools/fmt", all[0].ID)

	acme := svc.ListPluginsByMarketplace(ctx, "acme-tools")
	assert.Len(t, acme, 2)

	p, err := svc.GetPlugin(ctx, "zeta-kit/probe")
	require.NoError(t, err)
	assert.Equal(t, "probe", p.Name)

	_, err = svc.GetPlugin(ctx, "missing/plugin")
	require.ErrorIs(t, err, ErrPluginNotFound)
}
