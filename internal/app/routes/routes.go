package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/studentportal/internal/app/controllers"
	"github.com/yigit/studentportal/internal/middleware"
	"github.com/yigit/studentportal/internal/pkg/websocket"
)

// Controllers groups every HTTP handler the API mounts
type Controllers struct {
	Auth         *controllers.AuthController
	Catalog      *controllers.CatalogController
	Registration *controllers.RegistrationController
	Upload       *controllers.UploadController
	News         *controllers.NewsController
	Payment      *controllers.PaymentController
	Presence     *controllers.PresenceController
	WebSocket    *websocket.Handler
}

// SetupRouter configures all application routes
func SetupRouter(router *gin.Engine, c *Controllers, authMiddleware *middleware.AuthMiddleware) {
	v1 := router.Group("/api/v1")

	// --- Public routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/signup", c.Auth.Signup)
		auth.POST("/login", c.Auth.Login)
		auth.POST("/forgot-password", c.Auth.ForgotPassword)
		auth.POST("/reset-password", c.Auth.ResetPassword)
	}
	v1.GET("/programs", c.Catalog.ListPrograms)

	// --- Authenticated routes ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.POST("/auth/logout", c.Auth.Logout)
		authenticated.GET("/auth/profile", c.Auth.GetProfile)
		authenticated.POST("/presence/heartbeat", c.Presence.Heartbeat)

		authenticated.GET("/courses/available", c.Catalog.GetAvailableCourses)
		authenticated.GET("/courses/:id", c.Catalog.GetCourse)
		authenticated.POST("/courses/register", c.Registration.Register)

		authenticated.GET("/registrations/me", c.Registration.GetMyRegistrations)
		authenticated.GET("/registrations/:id", c.Registration.GetRegistration)

		authenticated.POST("/uploads", c.Upload.Upload)
		authenticated.PUT("/uploads/:id", c.Upload.Replace)
		authenticated.GET("/uploads/me", c.Upload.ListMine)

		news := authenticated.Group("/news")
		{
			news.GET("", c.News.ListPosts)
			news.GET("/:id", c.News.GetPost)
			news.POST("", authMiddleware.AdminRequired(), c.News.CreatePost)
			news.PUT("/:id", c.News.UpdatePost)
			news.DELETE("/:id", c.News.DeletePost)
			news.POST("/:id/like", c.News.ToggleLike)
			news.POST("/:id/comment", c.News.AddComment)
			news.POST("/:id/react", c.News.React)
		}

		authenticated.POST("/payments/initialize", c.Payment.Initialize)
		authenticated.GET("/payments/verify/:reference", c.Payment.Verify)

		authenticated.GET("/ws/news", c.WebSocket.HandleConnection)
	}

	// --- Admin routes ---
	admin := v1.Group("")
	admin.Use(authMiddleware.JWTAuth(), authMiddleware.AdminRequired())
	{
		admin.POST("/programs", c.Catalog.CreateProgram)
		admin.PUT("/programs/:id", c.Catalog.UpdateProgram)
		admin.POST("/courses", c.Catalog.CreateCourse)
		admin.PUT("/courses/:id", c.Catalog.UpdateCourse)
		admin.DELETE("/courses/:id", c.Catalog.DeleteCourse)

		admin.GET("/admin/uploads/pending", c.Upload.ListPending)
		admin.PATCH("/admin/uploads/:id/verify", c.Upload.Verify)
		admin.GET("/admin/online-students", c.Presence.OnlineStudents)
	}
}
