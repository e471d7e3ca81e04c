package models

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	spaceRegex       = regexp.MustCompile(`\s+`)
)

// NormalizeText folds s for keyword matching: NFC, lowercase, punctuation to
// spaces, diacritics stripped, whitespace collapsed.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ToLower(s)
	s = punctuationRegex.ReplaceAllString(s, " ")
	s = removeDiacritics(s)
	s = spaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// removeDiacritics removes diacritical marks from a string
func removeDiacritics(s string) string {
	t := norm.NFD.String(s)
	var result strings.Builder
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}
