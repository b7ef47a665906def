// Package linker matches an extracted article against the full
// active-category set, producing the list of (category, relevance) links
// above a threshold and honoring each category's exclusion keywords.
package linker

import (
	"sort"

	"github.com/ternarybob/newscrawler/internal/keywordmatcher"
	"github.com/ternarybob/newscrawler/internal/models"
)

const defaultMinRelevance = 0.3

// FindMatches returns every category whose keywords match the article at
// or above minRelevance, sorted by relevance descending then category
// name ascending. A minRelevance of 0 selects the default of 0.3.
func FindMatches(title, content string, categories []*models.Category, minRelevance float64) []models.CategoryLink {
	if minRelevance <= 0 {
		minRelevance = defaultMinRelevance
	}

	type scored struct {
		link models.CategoryLink
		name string
	}
	var results []scored

	for _, cat := range categories {
		if !cat.IsActive {
			continue
		}
		if keywordmatcher.ContainsAny(title+" "+content, cat.ExcludeKeywords) {
			continue
		}
		matched := keywordmatcher.Match(title, content, cat.Keywords)
		if len(matched) == 0 {
			continue
		}
		relevance := keywordmatcher.Relevance(title, content, matched)
		if relevance < minRelevance {
			continue
		}
		results = append(results, scored{
			link: models.CategoryLink{CategoryID: cat.ID, Relevance: relevance},
			name: cat.Name,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].link.Relevance != results[j].link.Relevance {
			return results[i].link.Relevance > results[j].link.Relevance
		}
		return results[i].name < results[j].name
	})

	out := make([]models.CategoryLink, len(results))
	for i, r := range results {
		out[i] = r.link
	}
	return out
}
