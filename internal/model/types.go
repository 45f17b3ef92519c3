// Package model defines the core record types for the marketplace index.
package model

import (
	"fmt"
	"time"
)

// SourceType indicates how a marketplace record entered the index.
type SourceType string

const (
	// SourceManual marks entries curated by hand. They are exempt from
	// automatic removal during reconciliation.
	SourceManual SourceType = "manual"

	// SourceAuto marks entries produced by the discovery pipeline.
	SourceAuto SourceType = "auto"
)

// Marketplace is one indexed plugin marketplace, keyed by its hosting
// repository in owner/name form.
type Marketplace struct {
	Repo           string     `json:"repo"`
	Slug           string     `json:"slug"`
	Description    string     `json:"description"`
	PluginCount    int        `json:"pluginCount"`
	Categories     []string   `json:"categories"`
	DiscoveredAt   time.Time  `json:"discoveredAt"`
	LastUpdated    time.Time  `json:"lastUpdated"`
	Source         SourceType `json:"source"`
	Stars          int        `json:"stars,omitempty"`
	StarsFetchedAt *time.Time `json:"starsFetchedAt,omitempty"`
}

// Author identifies a plugin author as declared in the descriptor.
type Author struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Plugin is one installable unit extracted from a marketplace descriptor.
// Plugin records have no independent lifecycle: they are wholly replaced
// whenever their owning marketplace is re-extracted.
type Plugin struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Version        string   `json:"version,omitempty"`
	Author         *Author  `json:"author,omitempty"`
	Homepage       string   `json:"homepage,omitempty"`
	Repository     string   `json:"repository,omitempty"`
	License        string   `json:"license,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	Source         string   `json:"source"`
	Marketplace    string   `json:"marketplace"`
	MarketplaceURL string   `json:"marketplaceUrl"`
	Category       string   `json:"category,omitempty"`
	Commands       []string `json:"commands,omitempty"`
	Agents         []string `json:"agents,omitempty"`
	Hooks          []string `json:"hooks,omitempty"`
	MCPServers     []string `json:"mcpServers,omitempty"`
	InstallCommand string   `json:"installCommand"`
}

// RepoURL returns the canonical HTTPS URL for an owner/name repository.
func RepoURL(repo string) string {
	return "https://github.com/" + repo
}

// InstallCommand builds the install directive for a plugin. It is a pure
// function of the plugin name and the owning marketplace slug.
func InstallCommand(pluginName, marketplaceSlug string) string {
	return fmt.Sprintf("claude plugin install %s@%s", pluginName, marketplaceSlug)
}
