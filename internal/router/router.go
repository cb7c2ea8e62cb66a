package router

import (
	"github.com/gin-gonic/gin"

	"github.com/recipelens/backend/internal/api"
	"github.com/recipelens/backend/internal/middleware"
)

// SetupRouter configures the application routes. The vector dispatcher is
// mounted outside the application CORS middleware: it owns its CORS
// handling end to end.
func SetupRouter(
	authHandler *api.AuthHandler,
	recipeHandler *api.RecipeHandler,
	mealPlanHandler *api.MealPlanHandler,
	dispatcher *api.VectorDispatcher,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	dispatcher.RegisterRoutes(router.Group("/api/v1"))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.CORS())
	{
		authHandler.RegisterRoutes(v1)
		recipeHandler.RegisterRoutes(v1)
		mealPlanHandler.RegisterRoutes(v1)
	}

	return router
}
