package core

import (
	"path"
	"strings"
)

// Tier identifies which matching rule produced a key match.
type Tier int

const (
	TierNone Tier = iota
	// TierExact is byte-for-byte equality.
	TierExact
	// TierCaseInsensitive is equality ignoring case.
	TierCaseInsensitive
	// TierSubstring is case-insensitive containment of the extension-less key.
	TierSubstring
)

func (t Tier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierCaseInsensitive:
		return "case-insensitive"
	case TierSubstring:
		return "substring"
	default:
		return "none"
	}
}

// strippedExtensions are removed from the end of a key before substring matching.
var strippedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".json":     true,
	".yaml":     true,
	".yml":      true,
	".txt":      true,
}

// Match is the outcome of MatchKey.
type Match struct {
	Document CanonicalDocument
	Tier     Tier
	// Candidates lists the keys of every document the winning tier matched.
	// More than one means the first in store order was picked.
	Candidates []string
}

// Ambiguous reports whether the winning tier matched more than one document.
func (m Match) Ambiguous() bool {
	return len(m.Candidates) > 1
}

// MatchKey resolves key against docs using three tiers. The first tier that
// yields any hit wins; within a tier the first document in slice order wins.
// It performs no I/O. ok is false when nothing matched.
func MatchKey(docs []CanonicalDocument, key string) (m Match, ok bool) {
	tiers := []struct {
		tier  Tier
		match func(docKey string) bool
	}{
		{TierExact, func(docKey string) bool { return docKey == key }},
		{TierCaseInsensitive, func(docKey string) bool { return strings.EqualFold(docKey, key) }},
		{TierSubstring, substringMatcher(key)},
	}

	for _, t := range tiers {
		var hit *CanonicalDocument
		var candidates []string
		for i := range docs {
			if !t.match(docs[i].Key) {
				continue
			}
			if hit == nil {
				hit = &docs[i]
			}
			candidates = append(candidates, docs[i].Key)
		}
		if hit != nil {
			return Match{Document: *hit, Tier: t.tier, Candidates: candidates}, true
		}
	}
	return Match{}, false
}

func substringMatcher(key string) func(string) bool {
	needle := strings.ToLower(stripExtension(key))
	return func(docKey string) bool {
		if needle == "" {
			return false
		}
		return strings.Contains(strings.ToLower(docKey), needle)
	}
}

func stripExtension(key string) string {
	ext := path.Ext(key)
	if strippedExtensions[strings.ToLower(ext)] {
		return key[:len(key)-len(ext)]
	}
	return key
}

// Keys returns the keys of docs in store order.
func Keys(docs []CanonicalDocument) []string {
	keys := make([]string, 0, len(docs))
	for _, d := range docs {
		keys = append(keys, d.Key)
	}
	return keys
}
