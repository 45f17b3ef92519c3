package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/plugindex/plugindex/internal/model"
)

const lockFileName = ".plugindex.lock"

// FileStore persists collections as JSON files in a directory.
type FileStore struct {
	basePath string
}

// NewFileStore creates a file-backed store rooted at basePath.
func NewFileStore(basePath string) *FileStore {
	return &FileStore{basePath: basePath}
}

// LoadMarketplaces reads the marketplace collection snapshot.
func (f *FileStore) LoadMarketplaces(_ context.Context) ([]model.Marketplace, error) {
	var marketplaces []model.Marketplace
	if err := f.load(MarketplacesFileName, &marketplaces); err != nil {
		return nil, err
	}
	normalizeSlugs(marketplaces)
	return marketplaces, nil
}

// ReplaceMarketplaces atomically replaces the marketplace collection.
func (f *FileStore) ReplaceMarketplaces(_ context.Context, marketplaces []model.Marketplace) error {
	normalizeSlugs(marketplaces)
	return f.replace(MarketplacesFileName, marketplaces)
}

// LoadPlugins reads the plugin collection snapshot.
func (f *FileStore) LoadPlugins(_ context.Context) ([]model.Plugin, error) {
	var plugins []model.Plugin
	if err := f.load(PluginsFileName, &plugins); err != nil {
		return nil, err
	}
	return plugins, nil
}

// ReplacePlugins atomically replaces the plugin collection.
func (f *FileStore) ReplacePlugins(_ context.Context, plugins []model.Plugin) error {
	return f.replace(PluginsFileName, plugins)
}

// AcquireRunLock takes an advisory file lock so only one reconciliation runs
// at a time against this directory.
func (f *FileStore) AcquireRunLock(_ context.Context) (func(), error) {
	if err := os.MkdirAll(f.basePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	lock := flock.New(filepath.Join(f.basePath, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	return func() {
		_ = lock.Unlock()
	}, nil
}

// load reads and decodes one collection file. A missing file is an empty
// collection (first run), not an error.
func (f *FileStore) load(name string, out any) error {
	path := filepath.Join(f.basePath, name)

	//nolint:gosec // Path is internally managed, not user input
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

// replace writes one collection: marshal, write to a temporary file, then
// rename over the old snapshot. The rename makes the replace atomic; a failed
// write leaves the prior content entirely unchanged.
func (f *FileStore) replace(name string, collection any) error {
	if err := os.MkdirAll(f.basePath, 0750); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := filepath.Join(f.basePath, name)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary %s: %w", name, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename %s: %w", name, err)
	}

	return nil
}
