// Package extractor derives plugin records from validated marketplace
// descriptors.
package extractor

import (
	"fmt"

	"github.com/plugindex/plugindex/internal/model"
)

// Diagnostic is a non-fatal note produced during extraction, surfaced only
// when a verbose report is requested.
type Diagnostic struct {
	Repo    string
	Message string
}

// Extract derives one plugin record per descriptor entry. The raw content is
// re-parsed rather than threaded through from validation so extraction can be
// retried independently. Optional fields pass through with absent-optional
// semantics: missing stays missing, never a placeholder.
//
// When two entries share a name the later entry wins; the collision is
// reported as a diagnostic, not an error.
func Extract(mp *model.Marketplace, raw []byte) ([]model.Plugin, []Diagnostic, error) {
	desc, err := model.ParseDescriptor(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to re-parse descriptor for %s: %w", mp.Repo, err)
	}

	var diags []Diagnostic
	byID := make(map[string]int)
	plugins := make([]model.Plugin, 0, len(desc.Plugins))

	for _, entry := range desc.Plugins {
		plugin := model.Plugin{
			ID:             mp.Slug + "/" + entry.Name,
			Name:           entry.Name,
			Description:    entry.Description,
			Version:        entry.Version,
			Author:         entry.Author,
			Homepage:       entry.Homepage,
			Repository:     entry.Repository,
			License:        entry.License,
			Keywords:       entry.Keywords,
			Source:         entry.Source,
			Marketplace:    mp.Slug,
			MarketplaceURL: model.RepoURL(mp.Repo),
			Category:       entry.Category,
			Commands:       entry.Commands,
			Agents:         entry.Agents,
			Hooks:          entry.Hooks,
			MCPServers:     entry.MCPServers,
			InstallCommand: model.InstallCommand(entry.Name, mp.Slug),
		}

		if idx, dup := byID[plugin.ID]; dup {
			plugins[idx] = plugin
			diags = append(diags, Diagnostic{
				Repo:    mp.Repo,
				Message: fmt.Sprintf("duplicate plugin name %q; later entry wins", entry.Name),
			})
			continue
		}
		byID[plugin.ID] = len(plugins)
		plugins = append(plugins, plugin)
	}

	return plugins, diags, nil
}
