package model

import "strings"

// ToSlug converts an owner/name repository identifier to its URL-safe form:
// slashes become dashes and the whole string is lowercased. The mapping is
// deterministic and total but not invertible (case is lost); callers needing
// the original repo must look it up by matching slug.
func ToSlug(repo string) string {
	return strings.ToLower(strings.ReplaceAll(repo, "/", "-"))
}
