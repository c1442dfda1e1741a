// Package assistant implements the storefront chat assistant: intent
// analysis, product search orchestration and per-session turn handling.
package assistant

import "strings"

var greetingWords = []string{"hello", "hi", "hey", "greetings"}

// IsGreeting reports whether text contains a greeting word anywhere,
// case-insensitively. Substring matching means "this" counts as "hi".
func IsGreeting(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range greetingWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
