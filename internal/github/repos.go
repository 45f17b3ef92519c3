package github

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/tidwall/gjson"

	"github.com/plugindex/plugindex/internal/model"
)

const (
	// DefaultBranch is tried first when fetching descriptor content.
	DefaultBranch = "main"

	// FallbackBranch is tried exactly once when the default branch does not
	// hold the descriptor.
	FallbackBranch = "master"
)

// RepoInfo is the subset of repository metadata the pipeline cares about.
type RepoInfo struct {
	Description string
	Stars       int
	FetchedAt   time.Time
}

// IsAccessible probes whether a repository still exists and is visible.
// A confirmed 404/410 (or a 403 that is not a rate-limit rejection, meaning
// private) yields (false, nil). Rate limits, 5xx responses, and network
// failures propagate as errors so the caller can tell "confirmed gone" from
// "could not check".
func (c *Client) IsAccessible(ctx context.Context, repo string) (bool, error) {
	_, err := c.get(ctx, "/repos/"+repo, nil)
	if err == nil {
		return true, nil
	}
	if IsRateLimit(err) {
		return false, err
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusNotFound, http.StatusGone, http.StatusForbidden:
			return false, nil
		}
	}
	return false, fmt.Errorf("failed to check repository %s: %w", repo, err)
}

// Info fetches repository metadata. Best-effort: any failure yields an empty
// RepoInfo and no error, so popularity signals never break a run.
func (c *Client) Info(ctx context.Context, repo string) RepoInfo {
	logger := logr.FromContextOrDiscard(ctx)

	body, err := c.get(ctx, "/repos/"+repo, nil)
	if err != nil {
		logger.V(1).Info("Repository metadata fetch failed", "repo", repo, "error", err.Error())
		return RepoInfo{}
	}

	return RepoInfo{
		Description: gjson.GetBytes(body, "description").String(),
		Stars:       int(gjson.GetBytes(body, "stargazers_count").Int()),
		FetchedAt:   time.Now().UTC(),
	}
}

// Description fetches the repository description. Any failure yields an
// empty string.
func (c *Client) Description(ctx context.Context, repo string) string {
	return c.Info(ctx, repo).Description
}

// FetchDescriptor retrieves the raw marketplace descriptor content for a
// repository. It tries the requested branch (DefaultBranch when empty) and,
// on not-found, exactly one fallback branch. When neither branch yields the
// file it returns ErrNotAccessible, a terminal per-repository failure.
func (c *Client) FetchDescriptor(ctx context.Context, repo, branch string) ([]byte, error) {
	if branch == "" {
		branch = DefaultBranch
	}

	content, err := c.fetchFileContent(ctx, repo, branch)
	if err == nil {
		return content, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	if branch != FallbackBranch {
		content, err = c.fetchFileContent(ctx, repo, FallbackBranch)
		if err == nil {
			return content, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("descriptor not found in %s on %s or %s: %w",
		repo, branch, FallbackBranch, ErrNotAccessible)
}

// fetchFileContent reads one file via the contents API and decodes its
// base64 payload.
func (c *Client) fetchFileContent(ctx context.Context, repo, branch string) ([]byte, error) {
	path := "/repos/" + repo + "/contents/" + model.DescriptorPath
	body, err := c.get(ctx, path, url.Values{"ref": {branch}})
	if err != nil {
		return nil, err
	}

	encoding := gjson.GetBytes(body, "encoding").String()
	content := gjson.GetBytes(body, "content").String()
	if encoding != "base64" {
		return []byte(content), nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode descriptor content: %w", err)
	}
	return decoded, nil
}

// isNotFound reports whether err is a 404 from the API.
func isNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
