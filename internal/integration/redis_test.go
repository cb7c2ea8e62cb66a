package integration

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/recipelens/backend/internal/models"
	"github.com/recipelens/backend/internal/service"
	"github.com/recipelens/backend/internal/store"
	"github.com/recipelens/backend/internal/vector"
)

// flakyIndex fails upserts until healed, simulating a vector store outage.
type flakyIndex struct {
	healthy bool
	upserts []vector.Record
}

func (f *flakyIndex) Upsert(ctx context.Context, records []vector.Record) error {
	if !f.healthy {
		return errors.New("index down")
	}
	f.upserts = append(f.upserts, records...)
	return nil
}

func (f *flakyIndex) SearchByVector(ctx context.Context, embedding []float32, topK int, filter map[string]map[string]string) ([]vector.Match, error) {
	return nil, nil
}

func (f *flakyIndex) SearchByTitle(ctx context.Context, title string, dimensions int) ([]vector.Match, error) {
	return nil, nil
}

func (f *flakyIndex) DeleteOne(ctx context.Context, id string) error {
	return nil
}

type mapStore struct {
	recipes map[string]*models.Recipe
}

func (m *mapStore) SaveRecipe(ctx context.Context, recipe *models.Recipe) error {
	m.recipes[recipe.ID] = recipe
	return nil
}

func (m *mapStore) GetRecipe(ctx context.Context, id string) (*models.Recipe, error) {
	recipe, ok := m.recipes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return recipe, nil
}

func (m *mapStore) GetAllRecipes(ctx context.Context) ([]*models.Recipe, error) {
	var all []*models.Recipe
	for _, r := range m.recipes {
		all = append(all, r)
	}
	return all, nil
}

func (m *mapStore) GetRecipesByIDs(ctx context.Context, ids []string) ([]*models.Recipe, error) {
	var found []*models.Recipe
	for _, id := range ids {
		if r, ok := m.recipes[id]; ok {
			found = append(found, r)
		}
	}
	return found, nil
}

func (m *mapStore) DeleteRecipe(ctx context.Context, id string) error {
	delete(m.recipes, id)
	return nil
}

type noopLLM struct{}

func (noopLLM) ExtractTextFromImage(ctx context.Context, imageBase64 string) (string, error) {
	return "", nil
}

func (noopLLM) AnalyzeRecipe(ctx context.Context, recipeText string) (*service.AnalyzedRecipe, error) {
	return &service.AnalyzedRecipe{}, nil
}

func (noopLLM) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1}, nil
}

func (noopLLM) GenerateMealPlan(ctx context.Context, query string, recipes []*models.Recipe) (*service.MealPlanResponse, error) {
	return &service.MealPlanResponse{}, nil
}

func (noopLLM) AdjustMealPlan(ctx context.Context, query string, plan *models.MealPlan, recipes []*models.Recipe) (*service.MealPlanResponse, error) {
	return &service.MealPlanResponse{}, nil
}

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed, skipping container-based test")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("6379/tcp"),
				wait.ForLog("Ready to accept connections"),
			),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	require.NoError(t, client.Ping(ctx).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDraftLifecycle(t *testing.T) {
	client := setupRedis(t)
	svc := service.NewRecipeService(noopLLM{}, &flakyIndex{healthy: true},
		&mapStore{recipes: make(map[string]*models.Recipe)}, client, nil)
	ctx := context.Background()

	recipe := &models.Recipe{
		ID:          "draft-1",
		Title:       "Tomato Soup",
		Ingredients: []string{"tomatoes", "basil"},
		Embedding:   []float32{0.1, 0.2},
	}
	require.NoError(t, svc.SaveDraft(ctx, recipe))

	// The draft carries a TTL so abandoned extractions age out.
	ttl, err := client.TTL(ctx, "recipe:draft:draft-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 23*time.Hour)

	fetched, err := svc.GetDraft(ctx, "draft-1")
	require.NoError(t, err)
	assert.Equal(t, "Tomato Soup", fetched.Title)
	assert.Equal(t, []string{"tomatoes", "basil"}, fetched.Ingredients)

	require.NoError(t, svc.DeleteDraft(ctx, "draft-1"))
	_, err = svc.GetDraft(ctx, "draft-1")
	assert.Error(t, err)
}

func TestIndexOutageQueuesAndReplays(t *testing.T) {
	client := setupRedis(t)
	index := &flakyIndex{}
	recipes := &mapStore{recipes: make(map[string]*models.Recipe)}
	svc := service.NewRecipeService(noopLLM{}, index, recipes, client, nil)
	ctx := context.Background()

	recipe := &models.Recipe{ID: "r1", Title: "Goulash", Embedding: []float32{0.1, 0.2}}

	// The index is down: the durable write lands and the id is queued.
	require.NoError(t, svc.SaveRecipe(ctx, recipe))
	_, ok := recipes.recipes["r1"]
	require.True(t, ok)

	queued, err := client.SMembers(ctx, "recipes:index:pending").Result()
	require.NoError(t, err)
	assert.Contains(t, queued, "r1")

	// Index recovers; the replay drains the queue.
	index.healthy = true
	synced, err := svc.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)
	require.Len(t, index.upserts, 1)
	assert.Equal(t, "r1", index.upserts[0].ID)

	remaining, err := client.SCard(ctx, "recipes:index:pending").Result()
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestSyncPendingDropsDeletedRecipes(t *testing.T) {
	client := setupRedis(t)
	index := &flakyIndex{healthy: true}
	recipes := &mapStore{recipes: make(map[string]*models.Recipe)}
	svc := service.NewRecipeService(noopLLM{}, index, recipes, client, nil)
	ctx := context.Background()

	// An id queued for re-sync whose record no longer exists.
	require.NoError(t, client.SAdd(ctx, "recipes:index:pending", "ghost").Err())

	synced, err := svc.SyncPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, synced)

	remaining, err := client.SCard(ctx, "recipes:index:pending").Result()
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestReindexClearsPendingQueue(t *testing.T) {
	client := setupRedis(t)
	index := &flakyIndex{healthy: true}
	recipes := &mapStore{recipes: make(map[string]*models.Recipe)}
	recipes.recipes["r1"] = &models.Recipe{ID: "r1", Title: "Goulash", Embedding: []float32{0.1}}
	svc := service.NewRecipeService(noopLLM{}, index, recipes, client, nil)
	ctx := context.Background()

	require.NoError(t, client.SAdd(ctx, "recipes:index:pending", "r1").Err())

	result := svc.ReindexAllRecipes(ctx)
	require.True(t, result.Success)

	remaining, err := client.SCard(ctx, "recipes:index:pending").Result()
	require.NoError(t, err)
	assert.Zero(t, remaining)
}
