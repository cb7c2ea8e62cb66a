package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/recipelens/backend/internal/models"
	"github.com/recipelens/backend/internal/queryfilter"
	"github.com/recipelens/backend/internal/vector"
)

const (
	// reindexBatchSize bounds load on the vector store: batches are written
	// strictly one after another.
	reindexBatchSize = 10

	// pendingSyncKey is the set of recipe ids whose index write failed and
	// needs replaying.
	pendingSyncKey = "recipes:index:pending"

	draftTTL = 24 * time.Hour
)

// ReindexResult reports what a reindex pass did.
type ReindexResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Reindexed int    `json:"reindexed"`
	Batches   int    `json:"batches"`
}

// RecipeService chains the external collaborators: the language model for
// extraction and embeddings, the vector index for search, and the key-value
// store for durable records. Every composite operation is a sequential
// chain that aborts on the first failure; there are no retries.
type RecipeService struct {
	llm    LLMServiceInterface
	index  VectorIndex
	store  RecipeStore
	redis  *redis.Client
	logger *zap.Logger
}

// NewRecipeService creates a RecipeService instance.
func NewRecipeService(llm LLMServiceInterface, index VectorIndex, store RecipeStore, redisClient *redis.Client, logger *zap.Logger) *RecipeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipeService{
		llm:    llm,
		index:  index,
		store:  store,
		redis:  redisClient,
		logger: logger,
	}
}

// CheckRecipeExists returns index matches whose title equals the given
// title exactly. No case or whitespace normalization is applied.
func (s *RecipeService) CheckRecipeExists(ctx context.Context, title string) ([]vector.Match, error) {
	return s.index.SearchByTitle(ctx, title, models.EmbeddingDimensions)
}

// ExtractRecipeFromImage runs the extraction chain: image to text, text to
// structured fields, embedding over title+ingredients+instructions, then a
// title-based duplicate check. The candidate is cached as a draft so the
// user can confirm or discard it.
func (s *RecipeService) ExtractRecipeFromImage(ctx context.Context, imageBase64 string) (*models.Recipe, []vector.Match, error) {
	extractedText, err := s.llm.ExtractTextFromImage(ctx, imageBase64)
	if err != nil {
		return nil, nil, fmt.Errorf("text extraction failed: %w", err)
	}

	analyzed, err := s.llm.AnalyzeRecipe(ctx, extractedText)
	if err != nil {
		return nil, nil, fmt.Errorf("recipe analysis failed: %w", err)
	}

	now := time.Now().UTC()
	recipe := &models.Recipe{
		ID:            uuid.New().String(),
		Title:         analyzed.Title,
		Ingredients:   analyzed.Ingredients,
		Instructions:  analyzed.Instructions,
		PrepTime:      analyzed.PrepTime,
		CookTime:      analyzed.CookTime,
		TotalTime:     analyzed.TotalTime,
		Servings:      analyzed.Servings,
		Cuisine:       analyzed.Cuisine,
		MealType:      analyzed.MealType,
		DietaryInfo:   analyzed.DietaryInfo,
		ExtractedText: extractedText,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	embedding, err := s.llm.GenerateEmbedding(ctx, recipe.EmbeddingText())
	if err != nil {
		return nil, nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	recipe.Embedding = embedding

	existing, err := s.CheckRecipeExists(ctx, recipe.Title)
	if err != nil {
		return nil, nil, fmt.Errorf("duplicate check failed: %w", err)
	}

	if err := s.SaveDraft(ctx, recipe); err != nil {
		// The draft cache is a convenience; extraction itself succeeded.
		s.logger.Warn("failed to cache recipe draft", zap.String("recipe_id", recipe.ID), zap.Error(err))
	}

	s.logger.Info("extracted recipe from image",
		zap.String("recipe_id", recipe.ID),
		zap.String("title", recipe.Title),
		zap.Int("existing_matches", len(existing)))
	return recipe, existing, nil
}

// SaveRecipe writes one logical record to both stores. The key-value write
// goes first and is the source of truth; if the index write fails the id is
// queued for deferred re-sync instead of leaving the stores silently
// divergent.
func (s *RecipeService) SaveRecipe(ctx context.Context, recipe *models.Recipe) error {
	if len(recipe.Embedding) == 0 {
		return fmt.Errorf("recipe embedding is required")
	}

	if err := s.store.SaveRecipe(ctx, recipe); err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}

	record := vector.Record{
		ID:       recipe.ID,
		Values:   recipe.Embedding,
		Metadata: vector.EncodeMetadata(recipe),
	}
	if err := s.index.Upsert(ctx, []vector.Record{record}); err != nil {
		s.logger.Warn("index write failed, queueing for re-sync",
			zap.String("recipe_id", recipe.ID), zap.Error(err))
		if qerr := s.queuePending(ctx, recipe.ID); qerr != nil {
			return fmt.Errorf("index write failed and re-sync queueing failed: %w", qerr)
		}
		return nil
	}

	s.logger.Info("saved recipe", zap.String("recipe_id", recipe.ID), zap.String("title", recipe.Title))
	return nil
}

// queuePending records an id whose index write must be replayed. Without a
// Redis client there is nowhere to queue, so the failure propagates.
func (s *RecipeService) queuePending(ctx context.Context, id string) error {
	if s.redis == nil {
		return fmt.Errorf("no re-sync queue configured")
	}
	return s.redis.SAdd(ctx, pendingSyncKey, id).Err()
}

// ReplaceRecipe deletes the existing record then saves the new one, as two
// sequential operations.
func (s *RecipeService) ReplaceRecipe(ctx context.Context, newRecipe *models.Recipe, existingID string) error {
	if err := s.DeleteRecipe(ctx, existingID); err != nil {
		return fmt.Errorf("failed to delete existing recipe %s: %w", existingID, err)
	}
	return s.SaveRecipe(ctx, newRecipe)
}

// SearchRecipes embeds the query (after stripping inline filter tokens) and
// joins the index's ranked matches against full records, preserving the
// index's order exactly. A failed search degrades to an empty result set.
func (s *RecipeService) SearchRecipes(ctx context.Context, query string, limit int) *models.SearchResult {
	if limit <= 0 {
		limit = 10
	}
	empty := &models.SearchResult{Recipes: []*models.Recipe{}, Page: 1, PageSize: limit}

	cleanQuery, filters := queryfilter.Parse(query)
	s.logger.Debug("searching recipes",
		zap.String("query", cleanQuery),
		zap.String("cuisine", filters.Cuisine),
		zap.String("meal_type", filters.MealType),
		zap.String("dietary", filters.DietaryInfo))

	embedding, err := s.llm.GenerateEmbedding(ctx, cleanQuery)
	if err != nil {
		s.logger.Error("search embedding failed", zap.Error(err))
		return empty
	}

	matches, err := s.index.SearchByVector(ctx, embedding, limit, vector.FilterConditions(filters))
	if err != nil {
		s.logger.Error("vector search failed", zap.Error(err))
		return empty
	}
	if len(matches) == 0 {
		return empty
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}

	recipes, err := s.store.GetRecipesByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("recipe fetch failed", zap.Error(err))
		return empty
	}

	// The index's ranking is authoritative; the batch fetch must not
	// reorder results.
	byID := make(map[string]*models.Recipe, len(recipes))
	for _, r := range recipes {
		byID[r.ID] = r
	}
	sorted := make([]*models.Recipe, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			sorted = append(sorted, r)
		}
	}

	return &models.SearchResult{
		Recipes:    sorted,
		TotalCount: len(sorted),
		Page:       1,
		PageSize:   limit,
	}
}

// ReindexAllRecipes rebuilds the vector index from the key-value store in
// fixed-size batches. Batches run strictly sequentially; a batch's writes
// complete before the next batch starts. Records missing an embedding get
// one regenerated. The pending re-sync queue is cleared afterwards, since a
// full rebuild supersedes it.
func (s *RecipeService) ReindexAllRecipes(ctx context.Context) *ReindexResult {
	recipes, err := s.store.GetAllRecipes(ctx)
	if err != nil {
		s.logger.Error("reindex fetch failed", zap.Error(err))
		return &ReindexResult{Success: false, Message: "Error reindexing recipes: " + err.Error()}
	}

	s.logger.Info("reindexing recipes", zap.Int("count", len(recipes)))

	batches := 0
	reindexed := 0
	for start := 0; start < len(recipes); start += reindexBatchSize {
		end := start + reindexBatchSize
		if end > len(recipes) {
			end = len(recipes)
		}

		records := make([]vector.Record, 0, end-start)
		for _, recipe := range recipes[start:end] {
			if len(recipe.Embedding) == 0 {
				embedding, err := s.llm.GenerateEmbedding(ctx, recipe.EmbeddingText())
				if err != nil {
					s.logger.Error("reindex embedding failed",
						zap.String("recipe_id", recipe.ID), zap.Error(err))
					return &ReindexResult{Success: false, Message: "Error reindexing recipes: " + err.Error(), Reindexed: reindexed, Batches: batches}
				}
				recipe.Embedding = embedding
				if err := s.store.SaveRecipe(ctx, recipe); err != nil {
					s.logger.Warn("failed to persist regenerated embedding",
						zap.String("recipe_id", recipe.ID), zap.Error(err))
				}
			}
			records = append(records, vector.Record{
				ID:       recipe.ID,
				Values:   recipe.Embedding,
				Metadata: vector.EncodeMetadata(recipe),
			})
		}

		if err := s.index.Upsert(ctx, records); err != nil {
			s.logger.Error("reindex batch failed", zap.Int("batch", batches), zap.Error(err))
			return &ReindexResult{Success: false, Message: "Error reindexing recipes: " + err.Error(), Reindexed: reindexed, Batches: batches}
		}
		batches++
		reindexed += len(records)
	}

	if s.redis != nil {
		if err := s.redis.Del(ctx, pendingSyncKey).Err(); err != nil {
			s.logger.Warn("failed to clear pending re-sync queue", zap.Error(err))
		}
	}

	return &ReindexResult{
		Success:   true,
		Message:   "All recipes reindexed successfully",
		Reindexed: reindexed,
		Batches:   batches,
	}
}

// SyncPending replays index writes that failed during SaveRecipe. Ids whose
// record has since been deleted are dropped from the queue.
func (s *RecipeService) SyncPending(ctx context.Context) (int, error) {
	if s.redis == nil {
		return 0, nil
	}
	ids, err := s.redis.SMembers(ctx, pendingSyncKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read pending re-sync queue: %w", err)
	}

	synced := 0
	for _, id := range ids {
		recipe, err := s.store.GetRecipe(ctx, id)
		if err != nil {
			s.logger.Warn("pending recipe no longer in store", zap.String("recipe_id", id), zap.Error(err))
			s.redis.SRem(ctx, pendingSyncKey, id)
			continue
		}

		record := vector.Record{
			ID:       recipe.ID,
			Values:   recipe.Embedding,
			Metadata: vector.EncodeMetadata(recipe),
		}
		if err := s.index.Upsert(ctx, []vector.Record{record}); err != nil {
			return synced, fmt.Errorf("re-sync of %s failed: %w", id, err)
		}
		s.redis.SRem(ctx, pendingSyncKey, id)
		synced++
	}

	if synced > 0 {
		s.logger.Info("replayed pending index writes", zap.Int("count", synced))
	}
	return synced, nil
}

// GetRecipe fetches one recipe from the key-value store.
func (s *RecipeService) GetRecipe(ctx context.Context, id string) (*models.Recipe, error) {
	return s.store.GetRecipe(ctx, id)
}

// GetRandomRecipes returns up to limit recipes in shuffled order.
func (s *RecipeService) GetRandomRecipes(ctx context.Context, limit int) ([]*models.Recipe, error) {
	recipes, err := s.store.GetAllRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recipes: %w", err)
	}

	rand.Shuffle(len(recipes), func(i, j int) {
		recipes[i], recipes[j] = recipes[j], recipes[i]
	})
	if len(recipes) > limit {
		recipes = recipes[:limit]
	}
	return recipes, nil
}

// UpdateRecipe rewrites the durable record and, when an embedding is
// present, replaces the index record too.
func (s *RecipeService) UpdateRecipe(ctx context.Context, recipe *models.Recipe) error {
	if err := s.store.SaveRecipe(ctx, recipe); err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}

	if len(recipe.Embedding) == 0 {
		return nil
	}
	record := vector.Record{
		ID:       recipe.ID,
		Values:   recipe.Embedding,
		Metadata: vector.EncodeMetadata(recipe),
	}
	if err := s.index.Upsert(ctx, []vector.Record{record}); err != nil {
		s.logger.Warn("index update failed, queueing for re-sync",
			zap.String("recipe_id", recipe.ID), zap.Error(err))
		if qerr := s.queuePending(ctx, recipe.ID); qerr != nil {
			return fmt.Errorf("index update failed and re-sync queueing failed: %w", qerr)
		}
	}
	return nil
}

// DeleteRecipe removes the record from both stores.
func (s *RecipeService) DeleteRecipe(ctx context.Context, id string) error {
	if err := s.store.DeleteRecipe(ctx, id); err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if err := s.index.DeleteOne(ctx, id); err != nil {
		return fmt.Errorf("failed to delete index record: %w", err)
	}
	s.logger.Info("deleted recipe", zap.String("recipe_id", id))
	return nil
}

// ClearAllRecipes deletes every recipe from both stores.
func (s *RecipeService) ClearAllRecipes(ctx context.Context) (int, error) {
	recipes, err := s.store.GetAllRecipes(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch recipes: %w", err)
	}

	deleted := 0
	for _, recipe := range recipes {
		if err := s.DeleteRecipe(ctx, recipe.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// SaveDraft caches an extracted recipe in Redis for 24 hours.
func (s *RecipeService) SaveDraft(ctx context.Context, recipe *models.Recipe) error {
	if s.redis == nil {
		return fmt.Errorf("draft cache not configured")
	}
	data, err := json.Marshal(recipe)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}

	key := fmt.Sprintf("recipe:draft:%s", recipe.ID)
	if err := s.redis.Set(ctx, key, data, draftTTL).Err(); err != nil {
		return fmt.Errorf("failed to save draft to Redis: %w", err)
	}
	return nil
}

// GetDraft retrieves a cached recipe draft.
func (s *RecipeService) GetDraft(ctx context.Context, id string) (*models.Recipe, error) {
	if s.redis == nil {
		return nil, fmt.Errorf("draft cache not configured")
	}
	key := fmt.Sprintf("recipe:draft:%s", id)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to get draft from Redis: %w", err)
	}

	var recipe models.Recipe
	if err := json.Unmarshal(data, &recipe); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &recipe, nil
}

// DeleteDraft removes a cached recipe draft.
func (s *RecipeService) DeleteDraft(ctx context.Context, id string) error {
	if s.redis == nil {
		return fmt.Errorf("draft cache not configured")
	}
	key := fmt.Sprintf("recipe:draft:%s", id)
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete draft from Redis: %w", err)
	}
	return nil
}
