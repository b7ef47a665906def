// Package keywordmatcher builds provider queries and scores article
// relevance against a category's keyword set.
package keywordmatcher

import (
	"regexp"
	"strings"

	"github.com/ternarybob/newscrawler/internal/apperrors"
)

var disallowedChars = regexp.MustCompile(`[^A-Za-z0-9 ._-]`)

// Sanitize normalizes a keyword list: strip, collapse internal whitespace,
// drop characters outside [A-Za-z0-9 ._-], and drop case-insensitive
// duplicates while preserving first occurrence.
func Sanitize(keywords []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		cleaned := disallowedChars.ReplaceAllString(kw, "")
		cleaned = strings.Join(strings.Fields(cleaned), " ")
		cleaned = strings.TrimSpace(cleaned)
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, cleaned)
	}
	return out
}

// BuildQuery produces a provider-side query of the form `"kw1" OR "kw2" OR …`.
func BuildQuery(keywords []string) (string, error) {
	clean := Sanitize(keywords)
	if len(clean) == 0 {
		return "", apperrors.New(apperrors.KindValidation, "build_query requires at least one keyword")
	}
	quoted := make([]string, len(clean))
	for i, kw := range clean {
		quoted[i] = `"` + kw + `"`
	}
	return strings.Join(quoted, " OR "), nil
}

// BuildQueryWithExclusions produces `("kw1" OR "kw2") -"ex1" -"ex2"`;
// a single keyword collapses the parentheses.
func BuildQueryWithExclusions(keywords, excludeKeywords []string) (string, error) {
	clean := Sanitize(keywords)
	if len(clean) == 0 {
		return "", apperrors.New(apperrors.KindValidation, "build_query_with_exclusions requires at least one keyword")
	}
	quoted := make([]string, len(clean))
	for i, kw := range clean {
		quoted[i] = `"` + kw + `"`
	}
	var base string
	if len(quoted) == 1 {
		base = quoted[0]
	} else {
		base = "(" + strings.Join(quoted, " OR ") + ")"
	}

	excl := Sanitize(excludeKeywords)
	if len(excl) == 0 {
		return base, nil
	}
	parts := make([]string, len(excl))
	for i, ex := range excl {
		parts[i] = `-"` + ex + `"`
	}
	return base + " " + strings.Join(parts, " "), nil
}

// Match returns the subset of keywords found (case-insensitively) in
// title or content.
func Match(title, content string, keywords []string) []string {
	haystackTitle := strings.ToLower(title)
	haystackContent := strings.ToLower(content)
	var matched []string
	for _, kw := range Sanitize(keywords) {
		needle := strings.ToLower(kw)
		if strings.Contains(haystackTitle, needle) || strings.Contains(haystackContent, needle) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// Relevance implements the binary 50/50 rule: 0.5 if any matched keyword
// appears in the title, 0.5 if any appears in the content.
func Relevance(title, content string, matchedKeywords []string) float64 {
	haystackTitle := strings.ToLower(title)
	haystackContent := strings.ToLower(content)
	var score float64
	inTitle, inContent := false, false
	for _, kw := range matchedKeywords {
		needle := strings.ToLower(kw)
		if !inTitle && strings.Contains(haystackTitle, needle) {
			inTitle = true
		}
		if !inContent && strings.Contains(haystackContent, needle) {
			inContent = true
		}
	}
	if inTitle {
		score += 0.5
	}
	if inContent {
		score += 0.5
	}
	return score
}

// ContainsAny reports whether any of the given terms appears
// case-insensitively in haystack. Used by the linker for exclusion checks.
func ContainsAny(haystack string, terms []string) bool {
	lower := strings.ToLower(haystack)
	for _, t := range Sanitize(terms) {
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
