package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-logr/logr"
	"github.com/tidwall/gjson"
)

const (
	// searchQuery matches marketplace descriptor files under the
	// .claude-plugin directory anywhere on GitHub.
	searchQuery = "filename:marketplace.json path:.claude-plugin"

	// MaxSearchPages caps the paged search. Together with PerPage this
	// bounds a run at 1000 candidate hits.
	MaxSearchPages = 10

	// PerPage is the search page size.
	PerPage = 100

	searchPageRetries = 3
)

// SearchHit is one candidate repository discovered by code search.
type SearchHit struct {
	Repo string
	Path string
}

// SearchResult is the outcome of a full paged search. Truncated is set when
// the search stopped early (rate limit) rather than running out of results;
// whatever was collected before the truncation is still returned.
type SearchResult struct {
	Hits            []SearchHit
	Truncated       bool
	TruncatedReason string
}

// SearchDescriptors pages through code search for marketplace descriptor
// files, deduplicating hits by repository. Paging is sequential because each
// page's position depends on the prior one. A positive limit stops paging as
// soon as that many repositories have been collected, so a capped run does
// not spend rate budget on pages it will discard. A rate-limit rejection
// truncates the search and returns the pages already collected; transient
// failures are retried a bounded number of times per page.
func (c *Client) SearchDescriptors(ctx context.Context, limit int) (*SearchResult, error) {
	logger := logr.FromContextOrDiscard(ctx)

	result := &SearchResult{}
	seen := make(map[string]bool)

	for page := 1; page <= MaxSearchPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limit > 0 && len(result.Hits) >= limit {
			logger.V(1).Info("Search stopped at candidate cap", "limit", limit)
			break
		}

		body, err := c.searchPage(ctx, page)
		if err != nil {
			if IsRateLimit(err) {
				logger.Info("Search truncated by rate limit",
					"page", page, "hitsCollected", len(result.Hits))
				result.Truncated = true
				result.TruncatedReason = err.Error()
				break
			}
			return nil, fmt.Errorf("search page %d failed: %w", page, err)
		}

		items := gjson.GetBytes(body, "items")
		count := 0
		items.ForEach(func(_, item gjson.Result) bool {
			count++
			repo := item.Get("repository.full_name").String()
			if repo == "" || seen[repo] {
				return true
			}
			seen[repo] = true
			result.Hits = append(result.Hits, SearchHit{
				Repo: repo,
				Path: item.Get("path").String(),
			})
			return true
		})

		logger.V(1).Info("Search page processed", "page", page, "items", count)

		if count < PerPage {
			break
		}
	}

	// Deterministic ordering for reproducible reports.
	sort.Slice(result.Hits, func(i, j int) bool {
		return result.Hits[i].Repo < result.Hits[j].Repo
	})

	return result, nil
}

// searchPage fetches a single search page, retrying transient failures.
// Rate-limit and client errors are permanent from the retry loop's point of
// view; the caller decides what to do with them.
func (c *Client) searchPage(ctx context.Context, page int) ([]byte, error) {
	operation := func() ([]byte, error) {
		query := url.Values{
			"q":        {searchQuery},
			"per_page": {strconv.Itoa(PerPage)},
			"page":     {strconv.Itoa(page)},
		}
		body, err := c.get(ctx, "/search/code", query)
		if err != nil {
			if IsRateLimit(err) {
				return nil, backoff.Permanent(err)
			}
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode < 500 {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return body, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(searchPageRetries))
}
