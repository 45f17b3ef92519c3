package model

import (
	"encoding/json"
	"fmt"

	"github.com/tailscale/hujson"
)

// DescriptorPath is the fixed location of the marketplace descriptor within
// a repository.
const DescriptorPath = ".claude-plugin/marketplace.json"

// Descriptor is the loosely-typed shape of a marketplace.json file. Every
// field is optional at this stage; the validator converts it to a strict
// Marketplace record only after all checks pass.
type Descriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Owner       *Author            `json:"owner"`
	Plugins     []DescriptorPlugin `json:"plugins"`
}

// DescriptorPlugin is one plugin entry as published, unvalidated.
type DescriptorPlugin struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Source      string   `json:"source"`
	Version     string   `json:"version"`
	Author      *Author  `json:"author"`
	Homepage    string   `json:"homepage"`
	Repository  string   `json:"repository"`
	Category    string   `json:"category"`
	License     string   `json:"license"`
	Keywords    []string `json:"keywords"`
	Commands    []string `json:"commands"`
	Agents      []string `json:"agents"`
	Hooks       []string `json:"hooks"`
	MCPServers  []string `json:"mcpServers"`
}

// ParseDescriptor decodes raw descriptor content. Descriptors in the wild
// carry comments and trailing commas, so the content is standardized with
// hujson before the strict JSON decode.
func ParseDescriptor(raw []byte) (*Descriptor, error) {
	std, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed descriptor: %w", err)
	}

	var d Descriptor
	if err := json.Unmarshal(std, &d); err != nil {
		return nil, fmt.Errorf("malformed descriptor: %w", err)
	}

	return &d, nil
}
