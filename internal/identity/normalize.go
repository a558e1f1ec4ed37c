package identity

import (
	"strings"
	"unicode"
)

// NameNormalizer is one step of the name normalization chain
type NameNormalizer func(string) string

// nameChain is applied in order. Punctuation and spelling are kept as-is:
// the merge rule is exact equality after this chain, not a fuzzy match.
var nameChain = []NameNormalizer{
	strings.TrimSpace,
	CollapseWhitespace,
	strings.ToUpper,
}

// NormalizeName builds the grouping key of a customer name (trim, case-fold, collapse whitespace)
// ⭐ SSOT: 고객명 정규화는 여기서만
func NormalizeName(name string) string {
	for _, step := range nameChain {
		name = step(name)
	}
	return name
}

// CollapseWhitespace replaces every run of whitespace (tabs, NBSP, newlines) with one space
func CollapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) || r == ' ' {
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}
	return b.String()
}

// NormalizeRawID trims a raw customer id. IDs stay opaque strings:
// "00592" and "592" are different IDs, and alphanumeric IDs are never coerced.
func NormalizeRawID(id string) string {
	return strings.TrimSpace(id)
}
