package models

import "time"

// EmbeddingDimensions is the vector length produced by the embedding model.
const EmbeddingDimensions = 1536

// Recipe is the canonical recipe record. The ID doubles as the partition
// key in the key-value store and the record id in the vector index; the two
// stores are kept in lockstep through the recipe service's write path.
type Recipe struct {
	ID            string    `json:"id" dynamodbav:"recipeId"`
	Title         string    `json:"title" dynamodbav:"title"`
	Ingredients   []string  `json:"ingredients" dynamodbav:"ingredients"`
	Instructions  []string  `json:"instructions" dynamodbav:"instructions"`
	PrepTime      string    `json:"prepTime,omitempty" dynamodbav:"prepTime,omitempty"`
	CookTime      string    `json:"cookTime,omitempty" dynamodbav:"cookTime,omitempty"`
	TotalTime     string    `json:"totalTime,omitempty" dynamodbav:"totalTime,omitempty"`
	Servings      int       `json:"servings,omitempty" dynamodbav:"servings,omitempty"`
	Calories      float64   `json:"calories,omitempty" dynamodbav:"calories,omitempty"`
	Protein       float64   `json:"protein,omitempty" dynamodbav:"protein,omitempty"`
	Carbs         float64   `json:"carbs,omitempty" dynamodbav:"carbs,omitempty"`
	Fat           float64   `json:"fat,omitempty" dynamodbav:"fat,omitempty"`
	Cuisine       string    `json:"cuisine,omitempty" dynamodbav:"cuisine,omitempty"`
	MealType      []string  `json:"mealType,omitempty" dynamodbav:"mealType,omitempty"`
	DietaryInfo   []string  `json:"dietaryInfo,omitempty" dynamodbav:"dietaryInfo,omitempty"`
	ImageURL      string    `json:"imageUrl,omitempty" dynamodbav:"imageUrl,omitempty"`
	SourceURL     string    `json:"sourceUrl,omitempty" dynamodbav:"sourceUrl,omitempty"`
	ExtractedText string    `json:"extractedText,omitempty" dynamodbav:"extractedText,omitempty"`
	Embedding     []float32 `json:"embedding,omitempty" dynamodbav:"embedding,omitempty"`
	CreatedAt     time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

// EmbeddingText is the text the embedding is generated from: title,
// ingredients and instructions joined with single spaces.
func (r *Recipe) EmbeddingText() string {
	text := r.Title
	for _, ing := range r.Ingredients {
		text += " " + ing
	}
	for _, step := range r.Instructions {
		text += " " + step
	}
	return text
}

// SearchFilters are optional equality constraints applied to a vector
// query. Absent fields are omitted, not wildcarded; present fields combine
// with AND semantics.
type SearchFilters struct {
	Cuisine     string `json:"cuisine,omitempty"`
	MealType    string `json:"mealType,omitempty"`
	DietaryInfo string `json:"dietaryInfo,omitempty"`
}

// Empty reports whether no constraint is set.
func (f SearchFilters) Empty() bool {
	return f.Cuisine == "" && f.MealType == "" && f.DietaryInfo == ""
}

// SearchResult is a page of recipes joined against similarity matches.
// Order follows the vector store's ranking.
type SearchResult struct {
	Recipes    []*Recipe `json:"recipes"`
	TotalCount int       `json:"totalCount"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
}
