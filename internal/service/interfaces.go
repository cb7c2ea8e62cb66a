package service

import (
	"context"

	"github.com/recipelens/backend/internal/models"
	"github.com/recipelens/backend/internal/vector"
)

// LLMServiceInterface covers the language-model capabilities the
// orchestration layer consumes: vision extraction, structured analysis,
// embeddings and meal planning.
type LLMServiceInterface interface {
	ExtractTextFromImage(ctx context.Context, imageBase64 string) (string, error)
	AnalyzeRecipe(ctx context.Context, recipeText string) (*AnalyzedRecipe, error)
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateMealPlan(ctx context.Context, query string, recipes []*models.Recipe) (*MealPlanResponse, error)
	AdjustMealPlan(ctx context.Context, query string, plan *models.MealPlan, recipes []*models.Recipe) (*MealPlanResponse, error)
}

// VectorIndex is the searchable index over recipe embeddings. The
// production implementation is vector.Client; tests use fakes.
type VectorIndex interface {
	Upsert(ctx context.Context, records []vector.Record) error
	SearchByVector(ctx context.Context, embedding []float32, topK int, filter map[string]map[string]string) ([]vector.Match, error)
	SearchByTitle(ctx context.Context, title string, dimensions int) ([]vector.Match, error)
	DeleteOne(ctx context.Context, id string) error
}

// RecipeStore is the durable recipe side of the key-value store.
type RecipeStore interface {
	SaveRecipe(ctx context.Context, recipe *models.Recipe) error
	GetRecipe(ctx context.Context, id string) (*models.Recipe, error)
	GetAllRecipes(ctx context.Context) ([]*models.Recipe, error)
	GetRecipesByIDs(ctx context.Context, ids []string) ([]*models.Recipe, error)
	DeleteRecipe(ctx context.Context, id string) error
}

// MealPlanStore is the durable meal plan side of the key-value store.
type MealPlanStore interface {
	SaveMealPlan(ctx context.Context, plan *models.MealPlan) error
	GetMealPlan(ctx context.Context, id string) (*models.MealPlan, error)
	GetAllMealPlans(ctx context.Context) ([]*models.MealPlan, error)
	DeleteMealPlan(ctx context.Context, id string) error
}

// UserStore is the durable account side of the key-value store.
type UserStore interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
