package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/recipelens/backend/internal/middleware"
	"github.com/recipelens/backend/internal/models"
	"github.com/recipelens/backend/internal/service"
	"github.com/recipelens/backend/internal/store"
)

// MealPlanHandler exposes meal planning over HTTP.
type MealPlanHandler struct {
	plans   *service.MealPlanService
	auth    middleware.TokenValidator
	limiter *middleware.RateLimiter
	logger  *zap.Logger
}

// NewMealPlanHandler creates a MealPlanHandler.
func NewMealPlanHandler(plans *service.MealPlanService, auth middleware.TokenValidator, limiter *middleware.RateLimiter, logger *zap.Logger) *MealPlanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MealPlanHandler{
		plans:   plans,
		auth:    auth,
		limiter: limiter,
		logger:  logger,
	}
}

// RegisterRoutes mounts the meal plan routes; all require a session.
func (h *MealPlanHandler) RegisterRoutes(router *gin.RouterGroup) {
	plans := router.Group("/meal-plans", middleware.AuthMiddleware(h.auth))
	{
		plans.GET("", h.ListPlans)
		plans.GET("/:id", h.GetPlan)
		plans.POST("", h.SavePlan)
		plans.DELETE("/:id", h.DeletePlan)

		expensive := plans.Group("")
		if h.limiter != nil {
			expensive.Use(h.limiter.RateLimitMiddleware())
		}
		expensive.POST("/generate", h.GeneratePlan)
		expensive.POST("/adjust", h.AdjustPlan)
	}
}

type generatePlanRequest struct {
	Query string `json:"query" binding:"required"`
}

// GeneratePlan builds a new plan from a natural-language request.
func (h *MealPlanHandler) GeneratePlan(c *gin.Context) {
	var req generatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, recipes, err := h.plans.Generate(c.Request.Context(), req.Query)
	if err != nil {
		h.logger.Error("plan generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"mealPlan": plan, "recipes": recipes})
}

type adjustPlanRequest struct {
	Query   string           `json:"query" binding:"required"`
	Plan    *models.MealPlan `json:"mealPlan" binding:"required"`
	Recipes []*models.Recipe `json:"recipes"`
}

// AdjustPlan revises an existing plan from a natural-language request.
func (h *MealPlanHandler) AdjustPlan(c *gin.Context) {
	var req adjustPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plan, recipes, err := h.plans.Adjust(c.Request.Context(), req.Query, req.Plan, req.Recipes)
	if err != nil {
		h.logger.Error("plan adjustment failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"mealPlan": plan, "recipes": recipes})
}

// SavePlan persists a plan the user confirmed.
func (h *MealPlanHandler) SavePlan(c *gin.Context) {
	var plan models.MealPlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if plan.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "meal plan id is required"})
		return
	}

	if err := h.plans.Save(c.Request.Context(), &plan); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// ListPlans returns all saved plans.
func (h *MealPlanHandler) ListPlans(c *gin.Context) {
	plans, err := h.plans.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if plans == nil {
		plans = []*models.MealPlan{}
	}
	c.JSON(http.StatusOK, gin.H{"mealPlans": plans})
}

// GetPlan fetches one saved plan.
func (h *MealPlanHandler) GetPlan(c *gin.Context) {
	plan, err := h.plans.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Meal plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, plan)
}

// DeletePlan removes a saved plan.
func (h *MealPlanHandler) DeletePlan(c *gin.Context) {
	if err := h.plans.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Meal plan deleted successfully"})
}
