// routes.go - Builds the Gin engine and maps every endpoint to its handler

package routes

import (
	"go-user-backend/handlers"
	"go-user-backend/middleware"
	"go-user-backend/validation"

	"github.com/gin-gonic/gin"
)

// Setup returns a router with all routes registered.
func Setup(d handlers.Deps) *gin.Engine {
	validation.Register()

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	h := handlers.New(d)
	dev := d.Config.IsDevelopment()
	authenticated := middleware.AuthMiddleware(middleware.AuthConfig{
		Tokens:  d.Tokens,
		Users:   d.Store,
		Metrics: d.Metrics,
		DevMode: dev,
	})
	adminOnly := middleware.AdminMiddleware(dev)
	selfOrAdmin := middleware.SelfOrAdminMiddleware("id", dev)

	r.GET("/health", h.Health)

	// Public routes (no authentication required)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", h.Register)
		authRoutes.POST("/login", h.Login)
		authRoutes.POST("/refresh", h.Refresh)
		authRoutes.POST("/logout", h.Logout)
		authRoutes.POST("/forgot-password", h.ForgotPassword)
		authRoutes.POST("/reset-password", h.ResetPassword)
		authRoutes.GET("/verify-email", h.VerifyEmail)

		authRoutes.GET("/profile", authenticated, h.Profile)
		authRoutes.PUT("/password", authenticated, h.ChangePassword)
	}

	// User administration
	users := r.Group("/users", authenticated)
	{
		users.GET("", adminOnly, h.ListUsers)
		users.POST("", adminOnly, h.CreateUser)
		users.GET("/:id", selfOrAdmin, h.GetUser)
		users.PUT("/:id", selfOrAdmin, h.UpdateUser)
		users.PATCH("/:id", selfOrAdmin, h.UpdateUser)
		users.PATCH("/:id/toggle-status", adminOnly, h.ToggleStatus)
	}

	// Tasks, scoped to the caller
	tasks := r.Group("/tasks", authenticated)
	{
		tasks.GET("", h.ListTasks)
		tasks.POST("", h.CreateTask)
		tasks.GET("/:id", h.GetTask)
		tasks.PUT("/:id", h.UpdateTask)
		tasks.PATCH("/:id", h.UpdateTask)
		tasks.DELETE("/:id", h.DeleteTask)
	}

	return r
}
