package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter настраивает все маршруты для приложения
func SetupRouter(handler *Handler) *gin.Engine {
	// Использование gin.ReleaseMode для продакшена, но пока оставим Default
	router := gin.Default()

	api := router.Group("/api/v1")
	{
		// Циклы проекта
		api.GET("/projects/:projectId/cycles", handler.ListCycles)
		api.GET("/projects/:projectId/cycles/archived", handler.ListArchived)

		// Жизненный цикл спринта
		api.POST("/cycles", handler.CreateCycle)
		api.GET("/cycles/:id", handler.GetCycle)
		api.PUT("/cycles/:id", handler.UpdateCycle)
		api.POST("/cycles/:id/start", handler.StartCycle)       // PLANNED -> ACTIVE
		api.POST("/cycles/:id/complete", handler.CompleteCycle) // ACTIVE -> COMPLETED

		// Архив: мягкое удаление с 30-дневным хранением
		api.DELETE("/cycles/:id", handler.ArchiveCycle)
		api.POST("/cycles/:id/restore", handler.RestoreCycle)

		// Планирование задач
		api.POST("/cycles/:id/plan", handler.PlanSprint)
		api.POST("/cycles/:id/move-incomplete", handler.MoveIncompleteIssues)

		// Burndown
		api.GET("/cycles/:id/burndown", handler.GetBurndown)
	}

	return router
}
