// Package store is the persistence gateway for the indexed collections.
// Backends load and replace whole-collection snapshots; nothing in the core
// assumes more than atomic whole-collection replace semantics.
package store

import (
	"context"
	"errors"

	"github.com/plugindex/plugindex/internal/model"
)

const (
	// MarketplacesFileName holds the marketplace collection snapshot.
	MarketplacesFileName = "marketplaces.json"

	// PluginsFileName holds the plugin collection snapshot.
	PluginsFileName = "plugins.json"
)

// ErrLocked is returned when another reconciliation holds the run lock.
var ErrLocked = errors.New("another reconciliation is in progress")

// Store persists the two indexed collections. A missing collection loads as
// an empty slice, not an error; read and write failures are fatal to a run.
type Store interface {
	// LoadMarketplaces reads the marketplace collection snapshot.
	LoadMarketplaces(ctx context.Context) ([]model.Marketplace, error)

	// ReplaceMarketplaces atomically replaces the marketplace collection.
	ReplaceMarketplaces(ctx context.Context, marketplaces []model.Marketplace) error

	// LoadPlugins reads the plugin collection snapshot.
	LoadPlugins(ctx context.Context) ([]model.Plugin, error)

	// ReplacePlugins atomically replaces the plugin collection.
	ReplacePlugins(ctx context.Context, plugins []model.Plugin) error

	// AcquireRunLock serializes reconciliation runs against this store.
	// The returned release function must be called when the run finishes.
	AcquireRunLock(ctx context.Context) (func(), error)
}

// normalizeSlugs recomputes every marketplace slug from its repo. Slugs are
// derived data; stored values are never trusted, so drift cannot survive a
// load or a store.
func normalizeSlugs(marketplaces []model.Marketplace) {
	for i := range marketplaces {
		marketplaces[i].Slug = model.ToSlug(marketplaces[i].Repo)
	}
}
