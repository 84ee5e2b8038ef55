package routes

import (
	"github.com/gin-gonic/gin"

	"taskboard/internal/handlers"
	"taskboard/internal/middleware"
	"taskboard/internal/models"
	"taskboard/internal/services"
)

func SetupRoutes(
	r *gin.Engine,
	sessions services.SessionService,
	dashboard services.DashboardManager,
	authHandler *handlers.AuthHandler,
	dashboardHandler *handlers.DashboardHandler,
	memberHandler *handlers.MemberHandler,
	projectHandler *handlers.ProjectHandler,
	taskHandler *handlers.TaskHandler,
) *gin.Engine {

	// ---- protected
	api := r.Group("/")
	api.Use(middleware.AuthMiddleware(sessions, dashboard))

	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/me", authHandler.Me)
	api.GET("/dashboard", dashboardHandler.Get)

	api.GET("/members", memberHandler.List)

	// PROJECTS
	projects := api.Group("/projects")
	{
		projects.GET("", projectHandler.List)
		projects.POST("", projectHandler.Create)
		projects.GET("/:id", projectHandler.Get)
		projects.PUT("/:id", projectHandler.Update)
		projects.GET("/:id/members", memberHandler.ListProjectMembers)
		projects.GET("/:id/tasks", taskHandler.ListByProject)
		projects.POST("/:id/progress/refresh", projectHandler.RefreshProgress)
		projects.GET("/:id/report", projectHandler.Report)
	}

	// TASKS
	tasks := api.Group("/tasks")
	{
		tasks.POST("", taskHandler.Create)
		tasks.GET("/:id", taskHandler.GetByID)
		tasks.PUT("/:id", taskHandler.Update)
		tasks.DELETE("/:id", taskHandler.Delete)
		tasks.POST("/:id/complete", taskHandler.Complete)
		tasks.GET("/:id/assignees", taskHandler.GetAssignees)
		tasks.PUT("/:id/assignees", taskHandler.SetAssignees)
	}

	// ADMIN
	api.DELETE("/cache", middleware.RequireRoles(models.RoleAdmin), dashboardHandler.ClearCache)

	return r
}
