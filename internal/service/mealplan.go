package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recipelens/backend/internal/models"
)

const (
	// How many candidate recipes the planner sees.
	planCandidateLimit   = 100
	adjustCandidateLimit = 50
)

// MealPlanService builds meal plans over the recipe catalog with the
// language model. Plans stay in memory until the user saves them.
type MealPlanService struct {
	llm     LLMServiceInterface
	recipes *RecipeService
	store   MealPlanStore
	logger  *zap.Logger
}

// NewMealPlanService creates a MealPlanService instance.
func NewMealPlanService(llm LLMServiceInterface, recipes *RecipeService, store MealPlanStore, logger *zap.Logger) *MealPlanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MealPlanService{
		llm:     llm,
		recipes: recipes,
		store:   store,
		logger:  logger,
	}
}

// Generate builds a plan for the query from a random sample of the
// catalog. Returns the plan and the full records of the recipes it uses.
func (s *MealPlanService) Generate(ctx context.Context, query string) (*models.MealPlan, []*models.Recipe, error) {
	candidates, err := s.recipes.GetRandomRecipes(ctx, planCandidateLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch candidate recipes: %w", err)
	}

	response, err := s.llm.GenerateMealPlan(ctx, query, candidates)
	if err != nil {
		return nil, nil, fmt.Errorf("meal plan generation failed: %w", err)
	}

	now := time.Now().UTC()
	plan := &models.MealPlan{
		ID:        uuid.New().String(),
		Name:      "", // filled in by the user on save
		Summary:   response.Summary,
		Reasoning: response.Reasoning,
		Features:  response.Features,
		Meals:     response.Meals,
		CreatedAt: now,
		UpdatedAt: now,
	}

	selected := selectRecipes(candidates, plan.Meals)
	s.logger.Info("generated meal plan",
		zap.String("plan_id", plan.ID),
		zap.Int("meals", len(plan.Meals)),
		zap.Int("recipes", len(selected)))
	return plan, selected, nil
}

// Adjust revises an existing plan per the query, considering the plan's
// current recipes plus a fresh sample of candidates.
func (s *MealPlanService) Adjust(ctx context.Context, query string, plan *models.MealPlan, current []*models.Recipe) (*models.MealPlan, []*models.Recipe, error) {
	additional, err := s.recipes.GetRandomRecipes(ctx, adjustCandidateLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch candidate recipes: %w", err)
	}

	seen := make(map[string]bool, len(current))
	all := make([]*models.Recipe, 0, len(current)+len(additional))
	for _, r := range current {
		seen[r.ID] = true
		all = append(all, r)
	}
	for _, r := range additional {
		if !seen[r.ID] {
			all = append(all, r)
		}
	}

	response, err := s.llm.AdjustMealPlan(ctx, query, plan, all)
	if err != nil {
		return nil, nil, fmt.Errorf("meal plan adjustment failed: %w", err)
	}

	updated := &models.MealPlan{
		ID:        plan.ID,
		Name:      plan.Name,
		Summary:   response.Summary,
		Reasoning: response.Reasoning,
		Features:  response.Features,
		Meals:     response.Meals,
		CreatedAt: plan.CreatedAt,
		UpdatedAt: time.Now().UTC(),
	}

	return updated, selectRecipes(all, updated.Meals), nil
}

// Save persists a plan the user confirmed.
func (s *MealPlanService) Save(ctx context.Context, plan *models.MealPlan) error {
	if err := s.store.SaveMealPlan(ctx, plan); err != nil {
		return fmt.Errorf("failed to save meal plan: %w", err)
	}
	s.logger.Info("saved meal plan", zap.String("plan_id", plan.ID), zap.String("name", plan.Name))
	return nil
}

// Get fetches one saved plan.
func (s *MealPlanService) Get(ctx context.Context, id string) (*models.MealPlan, error) {
	return s.store.GetMealPlan(ctx, id)
}

// List fetches all saved plans.
func (s *MealPlanService) List(ctx context.Context) ([]*models.MealPlan, error) {
	return s.store.GetAllMealPlans(ctx)
}

// Delete removes a saved plan.
func (s *MealPlanService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteMealPlan(ctx, id)
}

func selectRecipes(candidates []*models.Recipe, meals []models.MealPlanEntry) []*models.Recipe {
	used := make(map[string]bool, len(meals))
	for _, meal := range meals {
		used[meal.RecipeID] = true
	}

	var selected []*models.Recipe
	for _, r := range candidates {
		if used[r.ID] {
			selected = append(selected, r)
		}
	}
	return selected
}
