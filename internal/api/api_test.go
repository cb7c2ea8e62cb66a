package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/recipelens/backend/internal/middleware"
	"github.com/recipelens/backend/internal/models"
	"github.com/recipelens/backend/internal/service"
	"github.com/recipelens/backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubLLM returns canned responses for every model call.
type stubLLM struct {
	extractText string
	analyzed    *service.AnalyzedRecipe
	embedding   []float32
	plan        *service.MealPlanResponse
	err         error
}

func (s *stubLLM) ExtractTextFromImage(ctx context.Context, imageBase64 string) (string, error) {
	return s.extractText, s.err
}

func (s *stubLLM) AnalyzeRecipe(ctx context.Context, recipeText string) (*service.AnalyzedRecipe, error) {
	return s.analyzed, s.err
}

func (s *stubLLM) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return s.embedding, s.err
}

func (s *stubLLM) GenerateMealPlan(ctx context.Context, query string, recipes []*models.Recipe) (*service.MealPlanResponse, error) {
	return s.plan, s.err
}

func (s *stubLLM) AdjustMealPlan(ctx context.Context, query string, plan *models.MealPlan, recipes []*models.Recipe) (*service.MealPlanResponse, error) {
	return s.plan, s.err
}

// memStore backs all three store interfaces in memory.
type memStore struct {
	recipes map[string]*models.Recipe
	order   []string
	plans   map[string]*models.MealPlan
	users   map[string]*models.User
}

func newMemStore() *memStore {
	return &memStore{
		recipes: make(map[string]*models.Recipe),
		plans:   make(map[string]*models.MealPlan),
		users:   make(map[string]*models.User),
	}
}

func (m *memStore) SaveRecipe(ctx context.Context, recipe *models.Recipe) error {
	if _, ok := m.recipes[recipe.ID]; !ok {
		m.order = append(m.order, recipe.ID)
	}
	m.recipes[recipe.ID] = recipe
	return nil
}

func (m *memStore) GetRecipe(ctx context.Context, id string) (*models.Recipe, error) {
	recipe, ok := m.recipes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return recipe, nil
}

func (m *memStore) GetAllRecipes(ctx context.Context) ([]*models.Recipe, error) {
	all := make([]*models.Recipe, 0, len(m.order))
	for _, id := range m.order {
		all = append(all, m.recipes[id])
	}
	return all, nil
}

func (m *memStore) GetRecipesByIDs(ctx context.Context, ids []string) ([]*models.Recipe, error) {
	var found []*models.Recipe
	for _, id := range ids {
		if recipe, ok := m.recipes[id]; ok {
			found = append(found, recipe)
		}
	}
	return found, nil
}

func (m *memStore) DeleteRecipe(ctx context.Context, id string) error {
	delete(m.recipes, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memStore) SaveMealPlan(ctx context.Context, plan *models.MealPlan) error {
	m.plans[plan.ID] = plan
	return nil
}

func (m *memStore) GetMealPlan(ctx context.Context, id string) (*models.MealPlan, error) {
	plan, ok := m.plans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return plan, nil
}

func (m *memStore) GetAllMealPlans(ctx context.Context) ([]*models.MealPlan, error) {
	all := make([]*models.MealPlan, 0, len(m.plans))
	for _, plan := range m.plans {
		all = append(all, plan)
	}
	return all, nil
}

func (m *memStore) DeleteMealPlan(ctx context.Context, id string) error {
	delete(m.plans, id)
	return nil
}

func (m *memStore) SaveUser(ctx context.Context, user *models.User) error {
	m.users[user.Email] = user
	return nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := m.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user, nil
}

// allowAll passes any bearer token through with fixed claims.
type allowAll struct{}

func (allowAll) ValidateToken(token string) (*middleware.TokenClaims, error) {
	return &middleware.TokenClaims{UserID: "user-1", Email: "cook@example.com"}, nil
}

type testApp struct {
	router *gin.Engine
	store  *memStore
	index  *fakeIndex
	llm    *stubLLM
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	app := &testApp{
		store: newMemStore(),
		index: &fakeIndex{},
		llm:   &stubLLM{embedding: []float32{0.1, 0.2}},
	}

	recipes := service.NewRecipeService(app.llm, app.index, app.store, nil, nil)
	plans := service.NewMealPlanService(app.llm, recipes, app.store, nil)

	app.router = gin.New()
	app.router.Use(middleware.RequestID())
	group := app.router.Group("/api/v1")
	NewRecipeHandler(recipes, nil, allowAll{}, nil, nil).RegisterRoutes(group)
	NewMealPlanHandler(plans, allowAll{}, nil, nil).RegisterRoutes(group)
	return app
}

func (app *testApp) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test-token")
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
