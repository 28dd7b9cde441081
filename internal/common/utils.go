package common

import (
	"strings"

	"github.com/samber/lo"
)

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// NormalizeNames trims names, drops empty ones and removes case-insensitive duplicates,
// keeping the first spelling seen.
func NormalizeNames(names []string) []string {
	trimmed := lo.FilterMap(names, func(n string, _ int) (string, bool) {
		n = strings.TrimSpace(n)
		return n, n != ""
	})
	return lo.UniqBy(trimmed, strings.ToLower)
}
