package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipelens/backend/internal/models"
	"github.com/recipelens/backend/internal/service"
)

func TestGeneratePlanEndpoint(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.store.SaveRecipe(context.Background(), &models.Recipe{ID: "r1", Title: "Oats"}))
	app.llm.plan = &service.MealPlanResponse{
		Summary: "Simple week",
		Meals:   []models.MealPlanEntry{{TimeSlot: "Breakfast Day 1", RecipeID: "r1"}},
	}

	w := app.do(t, http.MethodPost, "/api/v1/meal-plans/generate", map[string]string{"query": "easy breakfasts"})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	plan := body["mealPlan"].(map[string]interface{})
	assert.Equal(t, "Simple week", plan["summary"])
	assert.NotEmpty(t, plan["id"])
	recipes := body["recipes"].([]interface{})
	require.Len(t, recipes, 1)
}

func TestGeneratePlanRequiresQuery(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/meal-plans/generate", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdjustPlanEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.llm.plan = &service.MealPlanResponse{
		Summary: "More fish",
		Meals:   []models.MealPlanEntry{{TimeSlot: "Dinner Day 1", RecipeID: "r1"}},
	}

	w := app.do(t, http.MethodPost, "/api/v1/meal-plans/adjust", map[string]interface{}{
		"query": "swap in fish",
		"mealPlan": map[string]interface{}{
			"id":   "plan-1",
			"name": "Week 12",
		},
		"recipes": []map[string]interface{}{{"id": "r1", "title": "Salmon"}},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	plan := body["mealPlan"].(map[string]interface{})
	assert.Equal(t, "plan-1", plan["id"])
	assert.Equal(t, "More fish", plan["summary"])
}

func TestSaveAndGetPlanEndpoints(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/meal-plans", map[string]interface{}{
		"id":   "plan-1",
		"name": "Week 12",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = app.do(t, http.MethodGet, "/api/v1/meal-plans/plan-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Week 12")

	w = app.do(t, http.MethodGet, "/api/v1/meal-plans", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["mealPlans"], 1)
}

func TestSavePlanRequiresID(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/api/v1/meal-plans", map[string]interface{}{"name": "No ID"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPlanNotFound(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/v1/meal-plans/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletePlanEndpoint(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.store.SaveMealPlan(context.Background(), &models.MealPlan{ID: "plan-1"}))

	w := app.do(t, http.MethodDelete, "/api/v1/meal-plans/plan-1", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, app.store.plans)
}

func TestMealPlansRequireAuth(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/meal-plans", nil)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListPlansEmptyIsArray(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/v1/meal-plans", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mealPlans":[]`)
}
