package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/plugindex/plugindex/internal/model"
)

const gcsLockObject = ".plugindex.lock"

// GCSStore persists collections as objects in a Google Cloud Storage bucket.
// Object writes are atomic (the new generation becomes visible only when the
// writer closes successfully), which gives the whole-collection replace
// semantics the reconciler requires.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	prefix string
}

// NewGCSStore creates a GCS-backed store. Credentials come from the ambient
// environment (application default credentials).
func NewGCSStore(ctx context.Context, bucket, prefix string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStore{
		client: client,
		bucket: client.Bucket(bucket),
		prefix: prefix,
	}, nil
}

// Close releases the underlying client.
func (g *GCSStore) Close() error {
	return g.client.Close()
}

// LoadMarketplaces reads the marketplace collection snapshot.
func (g *GCSStore) LoadMarketplaces(ctx context.Context) ([]model.Marketplace, error) {
	var marketplaces []model.Marketplace
	if err := g.load(ctx, MarketplacesFileName, &marketplaces); err != nil {
		return nil, err
	}
	normalizeSlugs(marketplaces)
	return marketplaces, nil
}

// ReplaceMarketplaces atomically replaces the marketplace collection.
func (g *GCSStore) ReplaceMarketplaces(ctx context.Context, marketplaces []model.Marketplace) error {
	normalizeSlugs(marketplaces)
	return g.replace(ctx, MarketplacesFileName, marketplaces)
}

// LoadPlugins reads the plugin collection snapshot.
func (g *GCSStore) LoadPlugins(ctx context.Context) ([]model.Plugin, error) {
	var plugins []model.Plugin
	if err := g.load(ctx, PluginsFileName, &plugins); err != nil {
		return nil, err
	}
	return plugins, nil
}

// ReplacePlugins atomically replaces the plugin collection.
func (g *GCSStore) ReplacePlugins(ctx context.Context, plugins []model.Plugin) error {
	return g.replace(ctx, PluginsFileName, plugins)
}

// AcquireRunLock creates a lock object guarded by a does-not-exist
// precondition so concurrent runs against the same bucket exclude each other.
func (g *GCSStore) AcquireRunLock(ctx context.Context) (func(), error) {
	obj := g.bucket.Object(g.objectName(gcsLockObject)).If(storage.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	if _, err := w.Write([]byte("locked")); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to write run lock: %w", err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}

	return func() {
		_ = g.bucket.Object(g.objectName(gcsLockObject)).Delete(context.Background())
	}, nil
}

// isPreconditionFailed reports whether err is a 412 from the API, meaning
// the lock object already exists.
func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}

func (g *GCSStore) objectName(name string) string {
	if g.prefix == "" {
		return name
	}
	return path.Join(g.prefix, name)
}

// load reads and decodes one collection object. A missing object is an empty
// collection, not an error.
func (g *GCSStore) load(ctx context.Context, name string, out any) error {
	r, err := g.bucket.Object(g.objectName(name)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer func() {
		_ = r.Close()
	}()

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}
	return nil
}

// replace writes one collection object. The object content swaps atomically
// when the writer closes; a failed write leaves the prior generation intact.
func (g *GCSStore) replace(ctx context.Context, name string, collection any) error {
	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	w := g.bucket.Object(g.objectName(name)).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", name, err)
	}
	return nil
}
