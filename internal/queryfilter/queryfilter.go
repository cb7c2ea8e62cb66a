// Package queryfilter extracts inline filter tokens from free-text search
// queries. Users write things like "spicy noodles cuisine:Thai dietary:vegan";
// the tokens become structured equality filters and the remaining text is
// what gets embedded.
package queryfilter

import (
	"regexp"
	"strings"

	"github.com/recipelens/backend/internal/models"
)

// Recognized token forms. Values run to the next whitespace; the "meal type"
// key itself may contain a space.
var (
	cuisinePattern  = regexp.MustCompile(`(?i)cuisine:(\S+)`)
	mealTypePattern = regexp.MustCompile(`(?i)meal type:(\S+)`)
	dietaryPattern  = regexp.MustCompile(`(?i)dietary:(\S+)`)
)

// Parse splits a raw query into the text to embed and the structured
// filters. Only the first occurrence of each token is honored.
func Parse(query string) (string, models.SearchFilters) {
	var filters models.SearchFilters
	clean := query

	if m := cuisinePattern.FindStringSubmatch(query); m != nil {
		filters.Cuisine = m[1]
		clean = strings.TrimSpace(strings.Replace(clean, m[0], "", 1))
	}
	if m := mealTypePattern.FindStringSubmatch(query); m != nil {
		filters.MealType = m[1]
		clean = strings.TrimSpace(strings.Replace(clean, m[0], "", 1))
	}
	if m := dietaryPattern.FindStringSubmatch(query); m != nil {
		filters.DietaryInfo = m[1]
		clean = strings.TrimSpace(strings.Replace(clean, m[0], "", 1))
	}

	return clean, filters
}
