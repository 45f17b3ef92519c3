// Package service provides the read accessors over the indexed collections,
// consumed by the HTTP API and any other presentation layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/plugindex/plugindex/internal/model"
	"github.com/plugindex/plugindex/internal/store"
)

var (
	// ErrMarketplaceNotFound is returned when no marketplace matches a slug.
	ErrMarketplaceNotFound = errors.New("marketplace not found")

	// ErrPluginNotFound is returned when no plugin matches an id.
	ErrPluginNotFound = errors.New("plugin not found")
)

// Service serves read-only queries against an in-memory snapshot of the
// persisted collections. Reload swaps the snapshot; reads never touch the
// backend.
type Service struct {
	store store.Store

	mu           sync.RWMutex
	marketplaces []model.Marketplace
	plugins      []model.Plugin
}

// New creates a Service and loads the initial snapshot.
func New(ctx context.Context, st store.Store) (*Service, error) {
	s := &Service{store: st}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory snapshot from the store.
func (s *Service) Reload(ctx context.Context) error {
	marketplaces, err := s.store.LoadMarketplaces(ctx)
	if err != nil {
		return fmt.Errorf("failed to load marketplaces: %w", err)
	}
	plugins, err := s.store.LoadPlugins(ctx)
	if err != nil {
		return fmt.Errorf("failed to load plugins: %w", err)
	}

	sort.Slice(marketplaces, func(i, j int) bool {
		return marketplaces[i].Repo < marketplaces[j].Repo
	})
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].ID < plugins[j].ID
	})

	s.mu.Lock()
	s.marketplaces = marketplaces
	s.plugins = plugins
	s.mu.Unlock()
	return nil
}

// ListMarketplaces returns the indexed marketplaces sorted by repo.
// Marketplaces with zero plugins are skipped unless includeEmpty is set.
func (s *Service) ListMarketplaces(_ context.Context, includeEmpty bool) []model.Marketplace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Marketplace, 0, len(s.marketplaces))
	for _, m := range s.marketplaces {
		if !includeEmpty && m.PluginCount == 0 {
			continue
		}
		out = append(out, m)
	}
	return out
}

// GetMarketplaceBySlug looks a marketplace up by its slug.
func (s *Service) GetMarketplaceBySlug(_ context.Context, slug string) (*model.Marketplace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.marketplaces {
		if m.Slug == slug {
			found := m
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMarketplaceNotFound, slug)
}

// ListByCategory returns the marketplaces declaring the given category.
func (s *Service) ListByCategory(_ context.Context, category string) []model.Marketplace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Marketplace
	for _, m := range s.marketplaces {
		for _, c := range m.Categories {
			if c == category {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// ListCategories returns every category declared by any marketplace, sorted
// and deduplicated.
func (s *Service) ListCategories(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	categories := []string{}
	for _, m := range s.marketplaces {
		for _, c := range m.Categories {
			if !seen[c] {
				seen[c] = true
				categories = append(categories, c)
			}
		}
	}
	sort.Strings(categories)
	return categories
}

// ListPlugins returns every indexed plugin sorted by id.
func (s *Service) ListPlugins(_ context.Context) []model.Plugin {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Plugin, len(s.plugins))
	copy(out, s.plugins)
	return out
}

// ListPluginsByMarketplace returns the plugins owned by the marketplace with
// the given slug.
func (s *Service) ListPluginsByMarketplace(_ context.Context, slug string) []model.Plugin {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Plugin
	for _, p := range s.plugins {
		if p.Marketplace == slug {
			out = append(out, p)
		}
	}
	return out
}

// GetPlugin looks a plugin up by its id.
func (s *Service) GetPlugin(_ context.Context, id string) (*model.Plugin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.plugins {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, id)
}
