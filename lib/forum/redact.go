package forum

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Redact replaces every occurrence of each secret in text with '*' repeated
// to the secret's length. Longer secrets are replaced first so that a secret
// containing another is never left partially visible.
func Redact(text string, secrets ...string) string {
	sorted := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if s != "" {
			sorted = append(sorted, s)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i]) > len(sorted[j])
	})

	for _, s := range sorted {
		mask := strings.Repeat("*", utf8.RuneCountInString(s))
		text = strings.ReplaceAll(text, s, mask)
	}
	return text
}
