package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugindex/plugindex/internal/model"
	"github.com/plugindex/plugindex/internal/service"
	"github.com/plugindex/plugindex/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	s := store.NewFileStore(t.TempDir())

	require.NoError(t, s.ReplaceMarketplaces(ctx, []model.Marketplace{
		{Repo: "acme/tools", PluginCount: 1, Categories: []string{"dev"}, Source: model.SourceAuto},
	}))
	require.NoError(t, s.ReplacePlugins(ctx, []model.Plugin{
		{ID: "acme-tools/fmt", Name: "fmt", Marketplace: "acme-tools"},
	}))

	svc, err := service.New(ctx, s)
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(svc))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec // test server URL
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestConfiguredMiddlewareRunsOncePerRequest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := store.NewFileStore(t.TempDir())
	svc, err := service.New(ctx, s)
	require.NoError(t, err)

	var calls int
	counting := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			next.ServeHTTP(w, r)
		})
	}

	srv := httptest.NewServer(NewServer(svc, WithMiddlewares(counting)))
	t.Cleanup(srv.Close)

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", nil))
	assert.Equal(t, 1, calls)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	var body map[string]string
	status := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestListMarketplacesEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	var marketplaces []model.Marketplace
	status := getJSON(t, srv.URL+"/v1/marketplaces", &marketplaces)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, marketplaces, 1)
	assert.Equal(t, "acme-tools", marketplaces[0].Slug)
}

func TestGetMarketplaceEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	var m model.Marketplace
	status := getJSON(t, srv.URL+"/v1/marketplaces/acme-tools", &m)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "acme/tools", m.Repo)

	var errResp ErrorResponse
	status = getJSON(t, srv.URL+"/v1/marketplaces/nope", &errResp)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, errResp.Error, "not found")
}

func TestMarketplacePluginsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	var plugins []model.Plugin
	status := getJSON(t, srv.URL+"/v1/marketplaces/acme-tools/plugins", &plugins)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, plugins, 1)
	assert.Equal(t, "acme-tools/fmt", plugins[0].ID)
}

func TestCategoriesEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	var categories []string
	status := getJSON(t, srv.URL+"/v1/categories", &categories)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"dev"}, categories)
}
