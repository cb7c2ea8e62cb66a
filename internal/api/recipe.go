package api

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/recipelens/backend/internal/middleware"
	"github.com/recipelens/backend/internal/models"
	"github.com/recipelens/backend/internal/service"
	"github.com/recipelens/backend/internal/store"
)

// RecipeHandler exposes the recipe orchestration operations over HTTP.
type RecipeHandler struct {
	recipes *service.RecipeService
	images  *service.ImageService
	auth    middleware.TokenValidator
	limiter *middleware.RateLimiter
	logger  *zap.Logger
}

// NewRecipeHandler creates a RecipeHandler.
func NewRecipeHandler(recipes *service.RecipeService, images *service.ImageService, auth middleware.TokenValidator, limiter *middleware.RateLimiter, logger *zap.Logger) *RecipeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipeHandler{
		recipes: recipes,
		images:  images,
		auth:    auth,
		limiter: limiter,
		logger:  logger,
	}
}

// RegisterRoutes mounts the recipe routes. Reads are public; anything that
// writes or spends LLM tokens requires a session.
func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", h.ListRecipes)
		recipes.GET("/search", h.SearchRecipes)
		recipes.GET("/:id", h.GetRecipe)

		protected := recipes.Group("", middleware.AuthMiddleware(h.auth))
		{
			protected.POST("", h.SaveRecipe)
			protected.PUT("/:id", h.UpdateRecipe)
			protected.DELETE("/:id", h.DeleteRecipe)
			protected.POST("/reindex", h.Reindex)
			protected.POST("/sync", h.SyncPending)
			protected.POST("/images", h.UploadImage)
			protected.GET("/drafts/:id", h.GetDraft)
			protected.DELETE("/drafts/:id", h.DeleteDraft)

			expensive := protected.Group("")
			if h.limiter != nil {
				expensive.Use(h.limiter.RateLimitMiddleware())
			}
			expensive.POST("/extract", h.ExtractFromImage)
		}
	}
}

type extractRequest struct {
	Image string `json:"image" binding:"required"`
}

// ExtractFromImage runs the image extraction chain and reports any
// existing recipes with the same title.
func (h *RecipeHandler) ExtractFromImage(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipe, existing, err := h.recipes.ExtractRecipeFromImage(c.Request.Context(), req.Image)
	if err != nil {
		h.logger.Error("extraction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recipe":          recipe,
		"existingRecipes": existing,
	})
}

type saveRecipeRequest struct {
	models.Recipe
	ReplaceID string `json:"replaceId"`
}

// SaveRecipe persists a recipe; with replaceId set, the existing record is
// deleted first.
func (h *RecipeHandler) SaveRecipe(c *gin.Context) {
	var req saveRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ID == "" || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipe id and title are required"})
		return
	}

	var err error
	if req.ReplaceID != "" {
		err = h.recipes.ReplaceRecipe(c.Request.Context(), &req.Recipe, req.ReplaceID)
	} else {
		err = h.recipes.SaveRecipe(c.Request.Context(), &req.Recipe)
	}
	if err != nil {
		h.logger.Error("save failed", zap.String("recipe_id", req.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, req.Recipe)
}

// SearchRecipes answers free-text queries, including inline filter tokens.
func (h *RecipeHandler) SearchRecipes(c *gin.Context) {
	query := c.Query("q")
	limit := 10
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	result := h.recipes.SearchRecipes(c.Request.Context(), query, limit)
	c.JSON(http.StatusOK, result)
}

// ListRecipes returns a random sample for browsing.
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	limit := 10
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	recipes, err := h.recipes.GetRandomRecipes(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// GetRecipe fetches one recipe by id.
func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	recipe, err := h.recipes.GetRecipe(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// UpdateRecipe rewrites a recipe and its index record.
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	var recipe models.Recipe
	if err := c.ShouldBindJSON(&recipe); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	recipe.ID = c.Param("id")

	if err := h.recipes.UpdateRecipe(c.Request.Context(), &recipe); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Recipe updated successfully",
		"id":      recipe.ID,
	})
}

// DeleteRecipe removes a recipe from both stores.
func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id := c.Param("id")
	if err := h.recipes.DeleteRecipe(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Recipe deleted successfully",
		"id":      id,
	})
}

// Reindex rebuilds the whole vector index from the durable store.
func (h *RecipeHandler) Reindex(c *gin.Context) {
	result := h.recipes.ReindexAllRecipes(c.Request.Context())
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	c.JSON(status, result)
}

// SyncPending replays queued index writes.
func (h *RecipeHandler) SyncPending(c *gin.Context) {
	synced, err := h.recipes.SyncPending(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "synced": synced})
		return
	}
	c.JSON(http.StatusOK, gin.H{"synced": synced})
}

type uploadImageRequest struct {
	Image       string `json:"image" binding:"required"`
	ContentType string `json:"contentType"`
}

// UploadImage stores a recipe photo and returns its URL.
func (h *RecipeHandler) UploadImage(c *gin.Context) {
	var req uploadImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid base64 image data"})
		return
	}

	url, err := h.images.UploadRecipePhoto(c.Request.Context(), data, req.ContentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imageUrl": url})
}

// GetDraft fetches a cached extraction draft.
func (h *RecipeHandler) GetDraft(c *gin.Context) {
	draft, err := h.recipes.GetDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Draft not found"})
		return
	}
	c.JSON(http.StatusOK, draft)
}

// DeleteDraft discards a cached extraction draft.
func (h *RecipeHandler) DeleteDraft(c *gin.Context) {
	if err := h.recipes.DeleteDraft(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Draft deleted"})
}
