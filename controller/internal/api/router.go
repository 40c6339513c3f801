package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func SetupRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	router.GET("/health", handler.HealthCheck)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/api", handler.AdminAuthMiddleware())
	{
		api.GET("/state", handler.GetState)

		api.POST("/agents", handler.CreateAgent)
		api.GET("/agents/status", handler.AgentStatuses)
		api.PUT("/agents/:id", handler.UpdateAgent)
		api.DELETE("/agents/:id", handler.DeleteAgent)
		api.GET("/agents/:id/health", handler.AgentHealth)

		api.POST("/hosts", handler.CreateHost)
		api.PUT("/hosts/:id", handler.UpdateHost)
		api.DELETE("/hosts/:id", handler.DeleteHost)

		api.POST("/wake/:hostId", handler.WakeHost)
		api.GET("/wakes", handler.ListWakes)
	}

	return router
}
