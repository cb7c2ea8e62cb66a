package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/recipelens/backend/internal/middleware"
	"github.com/recipelens/backend/internal/models"
	"github.com/recipelens/backend/internal/service"
	"github.com/recipelens/backend/internal/vector"
)

const defaultSearchLimit = 10

// listOrString accepts either a JSON array of strings or a single string.
// Older clients send scalar values for list-typed recipe fields.
type listOrString []string

func (l *listOrString) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*l = nil
		} else {
			*l = []string{single}
		}
		return nil
	}

	return errors.New("expected string or array of strings")
}

// vectorRecipe is the recipe payload of a store action.
type vectorRecipe struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Cuisine     string       `json:"cuisine"`
	MealType    listOrString `json:"mealType"`
	DietaryInfo listOrString `json:"dietaryInfo"`
	Ingredients []string     `json:"ingredients"`
	Embedding   []float32    `json:"embedding"`
}

// vectorRequest is the POST body of the dispatcher endpoint.
type vectorRequest struct {
	Action    string                `json:"action"`
	Recipe    *vectorRecipe         `json:"recipe"`
	Title     string                `json:"title"`
	Embedding []float32             `json:"embedding"`
	Limit     int                   `json:"limit"`
	Filters   *models.SearchFilters `json:"filters"`
}

// VectorDispatcher is the single-endpoint entry point in front of the
// vector store: method-based branching, its own CORS handling, store /
// search / delete actions, and one error funnel that separates "could not
// reach the vector store" from everything else.
type VectorDispatcher struct {
	index  service.VectorIndex
	logger *zap.Logger
}

// NewVectorDispatcher creates a dispatcher over the given index.
func NewVectorDispatcher(index service.VectorIndex, logger *zap.Logger) *VectorDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VectorDispatcher{index: index, logger: logger}
}

// RegisterRoutes mounts the dispatcher endpoint. All methods land on one
// handler; dispatch happens inside it.
func (h *VectorDispatcher) RegisterRoutes(router gin.IRouter) {
	router.Any("/vector-service", h.Handle)
}

// corsHeaders is the fixed header set on every dispatcher response.
func corsHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type,Authorization,Origin,Accept")
}

// Handle processes one inbound event.
func (h *VectorDispatcher) Handle(c *gin.Context) {
	requestID := middleware.GetRequestID(c)
	h.logger.Info("received vector request",
		zap.String("method", c.Request.Method),
		zap.String("request_id", requestID))

	corsHeaders(c)

	// Preflight short-circuits everything else.
	if c.Request.Method == http.MethodOptions {
		c.Header("Access-Control-Max-Age", "86400")
		c.Status(http.StatusNoContent)
		return
	}

	switch c.Request.Method {
	case http.MethodPost:
		h.handlePost(c, requestID)
	case http.MethodDelete:
		h.handleDelete(c, requestID)
	default:
		h.logger.Info("invalid vector request", zap.String("method", c.Request.Method))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
	}
}

func (h *VectorDispatcher) handlePost(c *gin.Context, requestID string) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		h.logger.Error("empty request body", zap.String("request_id", requestID))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Request body is required"})
		return
	}

	var req vectorRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Error("invalid JSON in request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid JSON in request body"})
		return
	}

	switch req.Action {
	case "store":
		h.handleStore(c, &req, requestID)
	case "search":
		h.handleSearch(c, &req, requestID)
	default:
		h.logger.Info("invalid vector request", zap.String("action", req.Action))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request"})
	}
}

func (h *VectorDispatcher) handleStore(c *gin.Context, req *vectorRequest, requestID string) {
	if req.Recipe == nil {
		h.fail(c, errors.New("recipe is required"), requestID)
		return
	}
	if req.Recipe.ID == "" {
		h.fail(c, errors.New("recipe id is required"), requestID)
		return
	}
	if len(req.Recipe.Embedding) == 0 {
		h.fail(c, errors.New("recipe embedding is required"), requestID)
		return
	}

	h.logger.Info("processing store action",
		zap.String("recipe_id", req.Recipe.ID),
		zap.String("title", req.Recipe.Title))

	record := vector.Record{
		ID:     req.Recipe.ID,
		Values: req.Recipe.Embedding,
		Metadata: vector.EncodeMetadata(&models.Recipe{
			Title:       req.Recipe.Title,
			Cuisine:     req.Recipe.Cuisine,
			MealType:    req.Recipe.MealType,
			DietaryInfo: req.Recipe.DietaryInfo,
			Ingredients: req.Recipe.Ingredients,
		}),
	}
	if err := h.index.Upsert(c.Request.Context(), []vector.Record{record}); err != nil {
		h.fail(c, err, requestID)
		return
	}

	h.logger.Info("recipe stored successfully", zap.String("recipe_id", req.Recipe.ID))
	c.JSON(http.StatusOK, gin.H{"message": "Recipe stored successfully"})
}

func (h *VectorDispatcher) handleSearch(c *gin.Context, req *vectorRequest, requestID string) {
	// Title lookup rides the metadata-filter path with a zero vector; no
	// real similarity vector is involved.
	if req.Title != "" {
		h.logger.Info("processing title search", zap.String("title", req.Title))

		matches, err := h.index.SearchByTitle(c.Request.Context(), req.Title, models.EmbeddingDimensions)
		if err != nil {
			h.fail(c, err, requestID)
			return
		}

		h.logger.Info("title search completed",
			zap.String("title", req.Title),
			zap.Int("results", len(matches)))
		c.JSON(http.StatusOK, ensureMatches(matches))
		return
	}

	if len(req.Embedding) == 0 {
		h.logger.Error("missing or invalid embedding in search request", zap.String("request_id", requestID))
		c.JSON(http.StatusBadRequest, gin.H{"message": "Search request requires a valid embedding vector"})
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var filter map[string]map[string]string
	if req.Filters != nil {
		filter = vector.FilterConditions(*req.Filters)
	}

	h.logger.Info("processing vector search",
		zap.Int("embedding_length", len(req.Embedding)),
		zap.Int("limit", limit),
		zap.Bool("filtered", filter != nil))

	matches, err := h.index.SearchByVector(c.Request.Context(), req.Embedding, limit, filter)
	if err != nil {
		h.fail(c, err, requestID)
		return
	}

	h.logger.Info("vector search completed", zap.Int("results", len(matches)))
	c.JSON(http.StatusOK, ensureMatches(matches))
}

func (h *VectorDispatcher) handleDelete(c *gin.Context, requestID string) {
	recipeID := c.Query("recipeId")
	if recipeID == "" {
		h.logger.Error("missing recipe ID in DELETE request", zap.String("request_id", requestID))
		h.fail(c, errors.New("Recipe ID is required"), requestID)
		return
	}

	h.logger.Info("processing delete request", zap.String("recipe_id", recipeID))
	if err := h.index.DeleteOne(c.Request.Context(), recipeID); err != nil {
		h.fail(c, err, requestID)
		return
	}

	h.logger.Info("recipe deleted successfully", zap.String("recipe_id", recipeID))
	c.JSON(http.StatusOK, gin.H{"message": "Recipe deleted successfully"})
}

// fail is the single error funnel: connectivity failures to the vector
// store map to 502, everything else to 500 with the underlying message and
// the correlation id when available.
func (h *VectorDispatcher) fail(c *gin.Context, err error, requestID string) {
	h.logger.Error("error processing vector request",
		zap.Error(err),
		zap.String("request_id", requestID))

	status := http.StatusInternalServerError
	message := "Internal server error"
	if errors.Is(err, vector.ErrUnavailable) {
		status = http.StatusBadGateway
		message = "Vector store connection failed"
	}

	resp := gin.H{"message": message, "error": err.Error()}
	if requestID != "" {
		resp["requestId"] = requestID
	}
	c.JSON(status, resp)
}

func ensureMatches(matches []vector.Match) []vector.Match {
	if matches == nil {
		return []vector.Match{}
	}
	return matches
}
