// Package validator checks fetched marketplace descriptors against the
// required shape and confirms their repositories are still reachable.
package validator

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tailscale/hujson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/plugindex/plugindex/internal/github"
	"github.com/plugindex/plugindex/internal/model"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://plugindex.dev/schemas/marketplace.json"

// DefaultConcurrency bounds the validation fan-out. Accessibility re-checks
// spend the same rate budget as search, so this stays modest.
const DefaultConcurrency = 5

// Validation stages, reported with each failure so a descriptor author can
// reproduce and fix the problem.
const (
	StageFetch         = "fetch"
	StageParse         = "parse"
	StageSchema        = "schema"
	StageAccessibility = "accessibility"
)

// AccessChecker probes repository reachability. Satisfied by the github
// client.
type AccessChecker interface {
	IsAccessible(ctx context.Context, repo string) (bool, error)
}

// DescriptorFetcher retrieves raw descriptor content. Satisfied by the
// github client.
type DescriptorFetcher interface {
	FetchDescriptor(ctx context.Context, repo, branch string) ([]byte, error)
}

// Result is the outcome of validating one candidate repository.
type Result struct {
	Repo        string
	Valid       bool
	Marketplace *model.Marketplace
	RawContent  []byte
	Stage       string
	Errors      []string

	// Indeterminate is set when the failure was an inability to check
	// (network outage, rate limit) rather than a confirmed problem with the
	// descriptor or its repository. Indeterminate failures must not cause
	// removal of previously stored entries.
	Indeterminate bool
}

// Validator validates marketplace descriptors.
type Validator struct {
	checker     AccessChecker
	schema      *jsonschema.Schema
	printer     *message.Printer
	concurrency int
}

// Option configures a Validator.
type Option func(*Validator)

// WithConcurrency bounds the ValidateAll fan-out.
func WithConcurrency(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.concurrency = n
		}
	}
}

// New creates a Validator with the compiled descriptor schema.
func New(checker AccessChecker, opts ...Option) (*Validator, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse descriptor schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add descriptor schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile descriptor schema: %w", err)
	}

	v := &Validator{
		checker:     checker,
		schema:      schema,
		printer:     message.NewPrinter(language.English),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Validate checks one descriptor. Steps run in order and short-circuit:
// parse, schema check (all violations collected), repository reachability,
// record construction. The reachability check runs even for descriptors that
// pass the shape check, since a repository can vanish between discovery and
// validation.
func (v *Validator) Validate(ctx context.Context, repo string, raw []byte) Result {
	result := Result{Repo: repo, RawContent: raw}

	std, err := hujson.Standardize(raw)
	if err != nil {
		result.Stage = StageParse
		result.Errors = []string{fmt.Sprintf("malformed descriptor: %v", err)}
		return result
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(std))
	if err != nil {
		result.Stage = StageParse
		result.Errors = []string{fmt.Sprintf("malformed descriptor: %v", err)}
		return result
	}

	if err := v.schema.Validate(instance); err != nil {
		result.Stage = StageSchema
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			result.Errors = v.flattenViolations(ve)
		} else {
			result.Errors = []string{err.Error()}
		}
		return result
	}

	accessible, err := v.checker.IsAccessible(ctx, repo)
	if err != nil {
		result.Stage = StageAccessibility
		result.Indeterminate = true
		result.Errors = []string{fmt.Sprintf("could not check repository accessibility: %v", err)}
		return result
	}
	if !accessible {
		result.Stage = StageAccessibility
		result.Errors = []string{"repository is no longer accessible"}
		return result
	}

	desc, err := model.ParseDescriptor(raw)
	if err != nil {
		// Unreachable after hujson+schema passed, but kept as a guard.
		result.Stage = StageParse
		result.Errors = []string{err.Error()}
		return result
	}

	now := time.Now().UTC()
	result.Valid = true
	result.Marketplace = &model.Marketplace{
		Repo:         repo,
		Slug:         model.ToSlug(repo),
		Description:  desc.Description,
		PluginCount:  len(desc.Plugins),
		Categories:   collectCategories(desc),
		DiscoveredAt: now,
		LastUpdated:  now,
		Source:       model.SourceAuto,
	}
	return result
}

// flattenViolations turns a validation error tree into one message per leaf
// violation so every problem is reported, not just the first.
func (v *Validator) flattenViolations(ve *jsonschema.ValidationError) []string {
	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := "/" + strings.Join(e.InstanceLocation, "/")
			msgs = append(msgs, fmt.Sprintf("%s: %s", loc, e.ErrorKind.LocalizedString(v.printer)))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	sort.Strings(msgs)
	return msgs
}

// collectCategories deduplicates the declared plugin categories, sorted for
// stable output.
func collectCategories(desc *model.Descriptor) []string {
	seen := make(map[string]bool)
	categories := []string{}
	for _, p := range desc.Plugins {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories
}

// ValidateAll fetches and validates every candidate repository with bounded
// concurrency. Individual validations share no mutable state; per-candidate
// failures become Results, never errors. Results come back sorted by repo so
// reports diff cleanly.
func (v *Validator) ValidateAll(ctx context.Context, repos []string, fetcher DescriptorFetcher) []Result {
	logger := logr.FromContextOrDiscard(ctx)

	results := make([]Result, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)

	for i, repo := range repos {
		g.Go(func() error {
			raw, err := fetcher.FetchDescriptor(gctx, repo, "")
			if err != nil {
				results[i] = fetchFailure(repo, err)
				return nil
			}
			results[i] = v.Validate(gctx, repo, raw)
			return nil
		})
	}

	// Workers never return errors; Wait only observes context cancellation.
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Repo < results[j].Repo
	})

	valid := 0
	for _, r := range results {
		if r.Valid {
			valid++
		}
	}
	logger.Info("Validation batch complete", "candidates", len(repos), "valid", valid)

	return results
}

// fetchFailure classifies a descriptor fetch error. A confirmed missing
// descriptor is a terminal validation failure; anything else leaves the
// candidate indeterminate.
func fetchFailure(repo string, err error) Result {
	result := Result{
		Repo:   repo,
		Stage:  StageFetch,
		Errors: []string{err.Error()},
	}
	if !errors.Is(err, github.ErrNotAccessible) {
		result.Indeterminate = true
	}
	return result
}
