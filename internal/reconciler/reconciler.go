// Package reconciler merges freshly discovered marketplace data into the
// persisted collections, preserving manual curation and removing only
// confirmed-invalid entries.
package reconciler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/plugindex/plugindex/internal/model"
	"github.com/plugindex/plugindex/internal/store"
)

// Discovered couples one validated marketplace with its extracted plugins.
type Discovered struct {
	Marketplace model.Marketplace
	Plugins     []model.Plugin
}

// Failure records one per-repository pipeline failure for the run report.
type Failure struct {
	Repo   string   `json:"repo"`
	Stage  string   `json:"stage"`
	Errors []string `json:"errors"`
}

// Input is everything one pipeline run hands to reconciliation.
type Input struct {
	// Discovered holds the successfully validated and extracted records.
	Discovered []Discovered

	// AllDiscoveredRepos is every repository the search CONFIRMED this run:
	// hits whose validation completed, successfully or not. Repos whose
	// validation was indeterminate (network outage, rate limit) must not
	// appear here, since absence from Discovered plus presence here is
	// grounds for removal.
	AllDiscoveredRepos map[string]bool

	// Failures are the per-repository diagnostics for the report.
	Failures []Failure

	// Truncated notes that the search stopped early.
	Truncated       bool
	TruncatedReason string

	// DryRun executes the full merge and report but skips persistence.
	DryRun bool

	// Diagnostics are carried through to the report verbatim.
	Diagnostics []string

	// Now is the reconciliation timestamp. Zero means time.Now.
	Now time.Time
}

// Report summarizes one reconciliation run.
type Report struct {
	RunID           string    `json:"runId"`
	Added           int       `json:"added"`
	Updated         int       `json:"updated"`
	Removed         int       `json:"removed"`
	Total           int       `json:"total"`
	TotalPlugins    int       `json:"totalPlugins"`
	Truncated       bool      `json:"truncated,omitempty"`
	TruncatedReason string    `json:"truncatedReason,omitempty"`
	DryRun          bool      `json:"dryRun,omitempty"`
	Failures        []Failure `json:"failures,omitempty"`

	// Diagnostics are non-fatal notes (duplicate plugin names and the
	// like), populated only for verbose runs.
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Reconciler performs the load-merge-store cycle. It is not safe for
// concurrent invocation; the store's run lock serializes runs.
type Reconciler struct {
	store store.Store
}

// New creates a Reconciler over the given store.
func New(st store.Store) *Reconciler {
	return &Reconciler{store: st}
}

// Reconcile loads the current collections, merges the run's discoveries into
// them, and writes both collections back as atomic snapshot replacements.
// Storage failures abort the run before any write; per-repository failures
// arrive pre-collected in the input and only affect removal decisions.
func (r *Reconciler) Reconcile(ctx context.Context, input Input) (*Report, error) {
	logger := logr.FromContextOrDiscard(ctx)

	now := input.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	release, err := r.store.AcquireRunLock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize reconciliation: %w", err)
	}
	defer release()

	existing, err := r.store.LoadMarketplaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage read failed: %w", err)
	}
	existingPlugins, err := r.store.LoadPlugins(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage read failed: %w", err)
	}

	if err := checkSlugIntegrity(existing, input.Discovered); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:           uuid.NewString(),
		Truncated:       input.Truncated,
		TruncatedReason: input.TruncatedReason,
		DryRun:          input.DryRun,
		Failures:        input.Failures,
		Diagnostics:     input.Diagnostics,
	}

	merged, removedSlugs := r.mergeMarketplaces(ctx, existing, input, now, report)
	mergedPlugins := mergePlugins(existingPlugins, input.Discovered, removedSlugs)

	report.Total = len(merged)
	report.TotalPlugins = len(mergedPlugins)

	if input.DryRun {
		logger.Info("Dry run: skipping persistence",
			"added", report.Added, "updated", report.Updated, "removed", report.Removed)
		return report, nil
	}

	if err := r.store.ReplaceMarketplaces(ctx, merged); err != nil {
		return nil, fmt.Errorf("storage write failed: %w", err)
	}
	if err := r.store.ReplacePlugins(ctx, mergedPlugins); err != nil {
		return nil, fmt.Errorf("storage write failed: %w", err)
	}

	logger.Info("Reconciliation complete",
		"added", report.Added, "updated", report.Updated,
		"removed", report.Removed, "total", report.Total)

	return report, nil
}

// mergeMarketplaces applies the merge policy entry by entry:
//   - present in discovered: wholesale replace, preserving DiscoveredAt.
//   - absent and manual: keep unchanged.
//   - absent, auto, and confirmed by this run's search: remove. A failed
//     search is not grounds for deletion; only a confirmed validation
//     failure is.
//   - absent and never seen this run: keep unchanged.
//
// The second return value holds the slugs of removed marketplaces so their
// plugin records are dropped with them.
func (r *Reconciler) mergeMarketplaces(
	ctx context.Context,
	existing []model.Marketplace,
	input Input,
	now time.Time,
	report *Report,
) ([]model.Marketplace, map[string]bool) {
	logger := logr.FromContextOrDiscard(ctx)

	discoveredByRepo := make(map[string]Discovered, len(input.Discovered))
	for _, d := range input.Discovered {
		discoveredByRepo[d.Marketplace.Repo] = d
	}

	merged := make([]model.Marketplace, 0, len(existing)+len(input.Discovered))
	seen := make(map[string]bool, len(existing))
	removedSlugs := make(map[string]bool)

	for _, old := range existing {
		seen[old.Repo] = true

		d, rediscovered := discoveredByRepo[old.Repo]
		if rediscovered {
			fresh := d.Marketplace
			fresh.DiscoveredAt = old.DiscoveredAt
			fresh.LastUpdated = now
			if fresh.StarsFetchedAt == nil && old.StarsFetchedAt != nil {
				// Popularity signal is best-effort; keep the stale value
				// rather than dropping it.
				fresh.Stars = old.Stars
				fresh.StarsFetchedAt = old.StarsFetchedAt
			}
			merged = append(merged, fresh)
			report.Updated++
			continue
		}

		switch old.Source {
		case model.SourceManual:
			merged = append(merged, old)
		case model.SourceAuto:
			if input.AllDiscoveredRepos[old.Repo] {
				logger.Info("Removing marketplace that failed validation", "repo", old.Repo)
				removedSlugs[old.Slug] = true
				report.Removed++
			} else {
				merged = append(merged, old)
			}
		default:
			// Unknown source values are treated as auto but never removed.
			merged = append(merged, old)
		}
	}

	for _, d := range input.Discovered {
		if seen[d.Marketplace.Repo] {
			continue
		}
		fresh := d.Marketplace
		fresh.DiscoveredAt = now
		fresh.LastUpdated = now
		merged = append(merged, fresh)
		report.Added++
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Repo < merged[j].Repo
	})
	return merged, removedSlugs
}

// mergePlugins replaces the plugin set of every marketplace touched this run
// and leaves the rest untouched. A marketplace removed this run counts as
// touched with an empty plugin set, so its records do not outlive it.
func mergePlugins(existing []model.Plugin, discovered []Discovered, removedSlugs map[string]bool) []model.Plugin {
	touched := make(map[string]bool, len(discovered)+len(removedSlugs))
	for _, d := range discovered {
		touched[d.Marketplace.Slug] = true
	}
	for slug := range removedSlugs {
		touched[slug] = true
	}

	merged := make([]model.Plugin, 0, len(existing))
	for _, p := range existing {
		if !touched[p.Marketplace] {
			merged = append(merged, p)
		}
	}
	for _, d := range discovered {
		merged = append(merged, d.Plugins...)
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ID < merged[j].ID
	})
	return merged
}

// checkSlugIntegrity surfaces slug collisions between distinct repositories.
// Two repos normalizing to the same slug would silently overwrite each
// other's plugin sets, so the run aborts before any write.
func checkSlugIntegrity(existing []model.Marketplace, discovered []Discovered) error {
	slugToRepo := make(map[string]string, len(existing)+len(discovered))

	check := func(repo string) error {
		slug := model.ToSlug(repo)
		if other, ok := slugToRepo[slug]; ok && other != repo {
			return fmt.Errorf("slug collision: repositories %q and %q both normalize to %q", other, repo, slug)
		}
		slugToRepo[slug] = repo
		return nil
	}

	for _, m := range existing {
		if err := check(m.Repo); err != nil {
			return err
		}
	}
	for _, d := range discovered {
		if err := check(d.Marketplace.Repo); err != nil {
			return err
		}
	}
	return nil
}
