// Package strings holds small string-slice helpers shared across services.
package strings

import "strings"

// NormalizeTags trims, lowercases, and deduplicates free-form tags, keeping
// first-occurrence order. Empty entries are dropped. "CBT" and "cbt" are the
// same tag.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return tags
	}

	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
