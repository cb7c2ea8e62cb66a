package models

import "time"

// MealPlanEntry assigns a recipe to a labelled time slot.
type MealPlanEntry struct {
	TimeSlot string `json:"timeSlot" dynamodbav:"timeSlot"`
	RecipeID string `json:"recipeId" dynamodbav:"recipeId"`
}

// MealPlan is a generated plan. It lives in memory (and the draft cache)
// until the user saves it explicitly.
type MealPlan struct {
	ID        string          `json:"id" dynamodbav:"id"`
	Name      string          `json:"name" dynamodbav:"name"`
	Summary   string          `json:"summary" dynamodbav:"summary"`
	Reasoning string          `json:"reasoning" dynamodbav:"reasoning"`
	Features  []string        `json:"features" dynamodbav:"features"`
	Meals     []MealPlanEntry `json:"meals" dynamodbav:"meals"`
	CreatedAt time.Time       `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt" dynamodbav:"updatedAt"`
}
