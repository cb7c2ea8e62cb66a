package vector

import (
	"strings"

	"github.com/recipelens/backend/internal/models"
)

// The vector store's filter language has no list-typed fields, so
// list-valued recipe attributes are comma-joined on the way in and split
// on the way out. Everything outside this file works with real slices.

// EncodeMetadata flattens a recipe into the string-keyed metadata stored
// alongside its vector.
func EncodeMetadata(r *models.Recipe) map[string]string {
	return map[string]string{
		"title":       r.Title,
		"cuisine":     r.Cuisine,
		"mealType":    joinList(r.MealType),
		"dietaryInfo": joinList(r.DietaryInfo),
		"ingredients": joinList(r.Ingredients),
	}
}

// DecodeMetadata restores list-typed fields from flattened metadata.
func DecodeMetadata(meta map[string]string) *models.Recipe {
	return &models.Recipe{
		Title:       meta["title"],
		Cuisine:     meta["cuisine"],
		MealType:    splitList(meta["mealType"]),
		DietaryInfo: splitList(meta["dietaryInfo"]),
		Ingredients: splitList(meta["ingredients"]),
	}
}

// FilterConditions converts present filter fields into the store's
// equality conditions. Absent fields are omitted entirely.
func FilterConditions(f models.SearchFilters) map[string]map[string]string {
	conditions := make(map[string]map[string]string)
	if f.Cuisine != "" {
		conditions["cuisine"] = map[string]string{"$eq": f.Cuisine}
	}
	if f.MealType != "" {
		conditions["mealType"] = map[string]string{"$eq": f.MealType}
	}
	if f.DietaryInfo != "" {
		conditions["dietaryInfo"] = map[string]string{"$eq": f.DietaryInfo}
	}
	if len(conditions) == 0 {
		return nil
	}
	return conditions
}

func joinList(values []string) string {
	return strings.Join(values, ",")
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}
