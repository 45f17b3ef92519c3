// Package pipeline orchestrates one discovery run: search, fetch, validate,
// extract, reconcile. A run is one-shot; it is not long-running or reactive.
package pipeline

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/plugindex/plugindex/internal/extractor"
	"github.com/plugindex/plugindex/internal/github"
	"github.com/plugindex/plugindex/internal/reconciler"
	"github.com/plugindex/plugindex/internal/validator"
)

// StageExtract tags extraction failures in the run report.
const StageExtract = "extract"

// GitHubAPI is the slice of the github client the pipeline drives directly.
// The validator holds its own references for accessibility re-checks; both
// go through the same client and therefore the same rate budget.
type GitHubAPI interface {
	SearchDescriptors(ctx context.Context, limit int) (*github.SearchResult, error)
	FetchDescriptor(ctx context.Context, repo, branch string) ([]byte, error)
	Info(ctx context.Context, repo string) github.RepoInfo
}

// Options control a single run.
type Options struct {
	// Limit caps how many candidate repositories are processed. Zero means
	// no cap beyond the search's own page bound.
	Limit int

	// DryRun executes the whole pipeline through reporting but skips the
	// persist step. No other stage special-cases it.
	DryRun bool

	// Verbose includes extraction diagnostics in the report.
	Verbose bool
}

// Runner wires the pipeline stages together.
type Runner struct {
	api        GitHubAPI
	validator  *validator.Validator
	reconciler *reconciler.Reconciler
}

// NewRunner creates a pipeline runner.
func NewRunner(api GitHubAPI, v *validator.Validator, rec *reconciler.Reconciler) *Runner {
	return &Runner{api: api, validator: v, reconciler: rec}
}

// Run executes one full discovery run and returns its report. Per-candidate
// failures become report diagnostics; only search-level, storage, and
// configuration failures abort the run.
func (r *Runner) Run(ctx context.Context, opts Options) (*reconciler.Report, error) {
	logger := logr.FromContextOrDiscard(ctx)

	// The cap is threaded into the search so it stops paging early too.
	searchResult, err := r.api.SearchDescriptors(ctx, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	logger.Info("Search complete",
		"candidates", len(searchResult.Hits), "truncated", searchResult.Truncated)

	repos := make([]string, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		if opts.Limit > 0 && len(repos) >= opts.Limit {
			break
		}
		repos = append(repos, hit.Repo)
	}

	results := r.validator.ValidateAll(ctx, repos, r.api)

	input := reconciler.Input{
		AllDiscoveredRepos: make(map[string]bool, len(results)),
		DryRun:             opts.DryRun,
		Truncated:          searchResult.Truncated,
		TruncatedReason:    searchResult.TruncatedReason,
	}

	for _, result := range results {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !result.Valid {
			// Indeterminate failures (could not check) are reported but do
			// not count as confirmed discoveries, so reconciliation leaves
			// their stored entries untouched.
			if !result.Indeterminate {
				input.AllDiscoveredRepos[result.Repo] = true
			}
			input.Failures = append(input.Failures, reconciler.Failure{
				Repo:   result.Repo,
				Stage:  result.Stage,
				Errors: result.Errors,
			})
			continue
		}

		input.AllDiscoveredRepos[result.Repo] = true

		mp := *result.Marketplace
		info := r.api.Info(ctx, result.Repo)
		if mp.Description == "" {
			mp.Description = info.Description
		}
		if !info.FetchedAt.IsZero() {
			mp.Stars = info.Stars
			fetchedAt := info.FetchedAt
			mp.StarsFetchedAt = &fetchedAt
		}

		plugins, diags, err := extractor.Extract(&mp, result.RawContent)
		if err != nil {
			input.Failures = append(input.Failures, reconciler.Failure{
				Repo:   result.Repo,
				Stage:  StageExtract,
				Errors: []string{err.Error()},
			})
			continue
		}
		if opts.Verbose {
			for _, d := range diags {
				input.Diagnostics = append(input.Diagnostics,
					fmt.Sprintf("%s: %s", d.Repo, d.Message))
			}
		}

		input.Discovered = append(input.Discovered, reconciler.Discovered{
			Marketplace: mp,
			Plugins:     plugins,
		})
	}

	return r.reconciler.Reconcile(ctx, input)
}
