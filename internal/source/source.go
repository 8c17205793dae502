// Package source holds the reference types shared by every research source.
package source

import "strings"

// Ref identifies one external page consulted during research.
type Ref struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Query string `json:"query,omitempty"`
}

// DedupeRefs returns refs with duplicate URLs removed, keeping first
// occurrence order. URL comparison is case-insensitive.
func DedupeRefs(refs []Ref) []Ref {
	seen := make(map[string]struct{}, len(refs))
	out := make([]Ref, 0, len(refs))
	for _, r := range refs {
		key := strings.ToLower(strings.TrimSpace(r.URL))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}
