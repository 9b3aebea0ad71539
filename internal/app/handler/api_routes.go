package handler

import (
	"licensecloud/internal/app/middleware"
	"licensecloud/internal/app/role"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterAPIRoutes регистрирует все REST API маршруты с авторизацией
func (h *APIHandler) RegisterAPIRoutes(router *gin.Engine, authMiddleware *middleware.AuthMiddleware) {
	api := router.Group("/api/cloud")

	superAdmin := authMiddleware.WithAuthCheck(role.SuperAdmin)
	admins := authMiddleware.WithAuthCheck(role.SuperAdmin, role.OrgAdmin)
	staff := authMiddleware.WithAuthCheck(role.SuperAdmin, role.OrgAdmin, role.Teacher)
	anyUser := authMiddleware.WithAuthCheck(role.SuperAdmin, role.OrgAdmin, role.Teacher, role.Student)

	// ============ Аутентификация ============
	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", anyUser, h.Logout)
		auth.GET("/profile", anyUser, h.Profile)
	}

	// ============ Организации (только super_admin) ============
	orgs := api.Group("/orgs")
	orgs.Use(superAdmin)
	{
		orgs.GET("", h.GetOrganizations)
		orgs.POST("", h.CreateOrganization)
		orgs.GET("/:id", h.GetOrganization)
		orgs.PUT("/:id", h.UpdateOrganization)
		orgs.DELETE("/:id", h.DeleteOrganization)
	}

	// ============ Лицензии ============
	licenses := api.Group("/licenses")
	{
		// Клиентские эндпоинты без JWT
		licenses.POST("/activate", h.ActivateLicense)
		licenses.POST("/verify", h.VerifyLicense)

		licenses.GET("", superAdmin, h.GetLicenses)
		licenses.POST("/generate", superAdmin, h.GenerateLicense)
		licenses.GET("/:id", superAdmin, h.GetLicense)
		licenses.PUT("/:id/revoke", superAdmin, h.RevokeLicense)
	}

	// ============ Пользователи ============
	users := api.Group("/users")
	users.Use(admins)
	{
		users.GET("", h.GetUsers)
		users.POST("", h.CreateUser)
		users.PUT("/:id", h.UpdateUser)
		users.PUT("/:id/password", h.ResetPassword)
	}

	// ============ Задания и отчёты ============
	tasks := api.Group("/tasks")
	tasks.Use(staff)
	{
		tasks.GET("", h.GetTasks)
		tasks.POST("", h.CreateTask)
		tasks.PUT("/:id", h.UpdateTask)
		tasks.DELETE("/:id", h.DeleteTask)
		tasks.POST("/:id/publish", h.PublishTask)
	}

	reports := api.Group("/reports")
	reports.Use(staff)
	{
		reports.GET("", h.GetReports)
		reports.POST("/upload", h.UploadReport)
		reports.PUT("/:id/grade", h.GradeReport)
		reports.GET("/:id/download", h.DownloadReport)
	}

	// ============ Синхронизация клиента (токен активации) ============
	sync := api.Group("/sync")
	sync.Use(middleware.RequireActivation(h.Licenses))
	{
		sync.GET("/tasks", h.SyncTasks)
		sync.GET("/users", h.SyncUsers)
		sync.GET("/grades", h.SyncGrades)
		sync.POST("/analytics", h.UploadAnalytics)
	}

	// ============ Статистика ============
	api.GET("/analytics/overview", superAdmin, h.GetAnalyticsOverview)
	api.GET("/analytics/trends", superAdmin, h.GetAnalyticsTrends)
	api.GET("/analytics/modules", superAdmin, h.GetModuleUsage)
	api.GET("/admin/dashboard", superAdmin, h.GetDashboard)

	// ============ Обновления ============
	updates := api.Group("/updates")
	{
		updates.GET("/check", h.CheckUpdate)

		updates.GET("", superAdmin, h.GetUpdates)
		updates.POST("", superAdmin, h.CreateUpdate)
		updates.POST("/:id/package", superAdmin, h.UploadUpdatePackage)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/ping", h.Ping)
}

// Ping проверяет работоспособность API
// @Summary Проверка работоспособности
// @Description Возвращает простой ответ для проверки работы сервера
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /ping [get]
func (h *APIHandler) Ping(ctx *gin.Context) {
	ctx.JSON(200, gin.H{"message": "pong"})
}
