package queryfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCuisineToken(t *testing.T) {
	clean, filters := Parse("pasta dishes cuisine:Italian")

	assert.Equal(t, "pasta dishes", clean)
	assert.Equal(t, "Italian", filters.Cuisine)
	assert.Empty(t, filters.MealType)
	assert.Empty(t, filters.DietaryInfo)
}

func TestParseMealTypeToken(t *testing.T) {
	clean, filters := Parse("quick ideas meal type:breakfast")

	assert.Equal(t, "quick ideas", clean)
	assert.Equal(t, "breakfast", filters.MealType)
}

func TestParseDietaryToken(t *testing.T) {
	clean, filters := Parse("hearty soup dietary:vegan")

	assert.Equal(t, "hearty soup", clean)
	assert.Equal(t, "vegan", filters.DietaryInfo)
}

func TestParseMultipleTokens(t *testing.T) {
	clean, filters := Parse("noodles cuisine:Thai dietary:vegetarian")

	assert.Equal(t, "noodles", clean)
	assert.Equal(t, "Thai", filters.Cuisine)
	assert.Equal(t, "vegetarian", filters.DietaryInfo)
	assert.False(t, filters.Empty())
}

func TestParseCaseInsensitiveKeys(t *testing.T) {
	_, filters := Parse("salad Cuisine:Greek MEAL TYPE:lunch")

	assert.Equal(t, "Greek", filters.Cuisine)
	assert.Equal(t, "lunch", filters.MealType)
}

func TestParseNoTokens(t *testing.T) {
	clean, filters := Parse("chicken stir fry")

	assert.Equal(t, "chicken stir fry", clean)
	assert.True(t, filters.Empty())
}

func TestParseOnlyFirstOccurrence(t *testing.T) {
	clean, filters := Parse("cuisine:Mexican tacos cuisine:Spanish")

	assert.Equal(t, "Mexican", filters.Cuisine)
	assert.Contains(t, clean, "cuisine:Spanish")
	assert.NotContains(t, clean, "cuisine:Mexican")
}

func TestParseValuePreservesCase(t *testing.T) {
	_, filters := Parse("cuisine:ItAliAn")

	assert.Equal(t, "ItAliAn", filters.Cuisine)
}

func TestParseTokenOnlyQuery(t *testing.T) {
	clean, filters := Parse("dietary:gluten-free")

	assert.Equal(t, "", clean)
	assert.Equal(t, "gluten-free", filters.DietaryInfo)
}
