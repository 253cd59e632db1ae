// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/javajoker/nepshop-backend/internal/config"
	"github.com/javajoker/nepshop-backend/internal/handlers"
	"github.com/javajoker/nepshop-backend/internal/metrics"
	"github.com/javajoker/nepshop-backend/internal/middleware"
	"github.com/javajoker/nepshop-backend/internal/services"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

// Dependencies are the outside collaborators the router wires into the services.
type Dependencies struct {
	Storage    services.ObjectStorage
	Mailer     services.Mailer
	Payments   services.PaymentProcessor
	Registry   *prometheus.Registry
	RateLimits *middleware.RateLimits
	Background *services.BackgroundTasks
}

func Initialize(db *gorm.DB, cfg *config.Config, deps Dependencies) *gin.Engine {
	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}
	if deps.RateLimits == nil {
		deps.RateLimits = middleware.DefaultRateLimits()
	}
	if deps.Background == nil {
		deps.Background = services.NewBackgroundTasks()
	}
	m := metrics.New(deps.Registry)
	jwtManager := utils.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL)

	// Initialize services
	notificationService := services.NewNotificationService(deps.Mailer, cfg)
	inventoryService := services.NewInventoryService(db, m)

	authService := services.NewAuthService(db, cfg, jwtManager, deps.Storage, notificationService)
	userService := services.NewUserService(db, deps.Storage)
	catalogService := services.NewCatalogService(db, deps.Storage, m)
	queryService := services.NewCatalogQueryService(db, cfg.Store)
	reviewService := services.NewReviewService(db)
	orderService := services.NewOrderService(db, inventoryService, notificationService, deps.Background, m)
	paymentService := services.NewPaymentService(deps.Payments, cfg, m)
	adminService := services.NewAdminService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, cfg.Environment == "production")
	userHandler := handlers.NewUserHandler(userService)
	productHandler := handlers.NewProductHandler(catalogService, queryService, reviewService, cfg.Store.PageSize)
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	adminHandler := handlers.NewAdminHandler(adminService, cfg.Store.PageSize)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.Metrics(m))
	r.Use(deps.RateLimits.General.Middleware())
	r.Use(middleware.AuditLogMiddleware(db))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	authRequired := middleware.AuthRequired(jwtManager)
	adminOnly := middleware.AdminRequired()
	uploadLimit := deps.RateLimits.Upload.Middleware()

	v1 := r.Group("/api/v1")
	{
		user := v1.Group("/user")
		{
			public := user.Group("")
			public.Use(deps.RateLimits.Auth.Middleware())
			{
				public.POST("/signup", uploadLimit, authHandler.Register)
				public.POST("/login", authHandler.Login)
				public.POST("/forgotpassword", authHandler.ForgotPassword)
				public.PUT("/resetpassword", authHandler.ResetPassword)
			}

			user.GET("/logout", authHandler.Logout)

			protected := user.Group("")
			protected.Use(authRequired)
			{
				protected.GET("/me", userHandler.GetProfile)
				protected.PUT("/updateprofile", userHandler.UpdateProfile)
				protected.PUT("/changepassword", userHandler.ChangePassword)
				protected.PUT("/updatepic", uploadLimit, userHandler.UpdateAvatar)
			}
		}

		product := v1.Group("/product")
		{
			product.GET("/all", productHandler.GetProducts)
			product.GET("/gethomeproducts", productHandler.GetHomeProducts)
			product.GET("/single/:id", productHandler.GetProduct)
			product.GET("/review/:id", productHandler.GetReviews)
			product.GET("/categories", productHandler.GetCategories)

			product.POST("/review/:id", authRequired, productHandler.PostReview)

			admin := product.Group("")
			admin.Use(authRequired, adminOnly)
			{
				admin.GET("/admin", productHandler.GetAdminProducts)
				admin.POST("/new", uploadLimit, productHandler.CreateProduct)
				admin.PUT("/single/:id", productHandler.UpdateProduct)
				admin.DELETE("/single/:id", productHandler.DeleteProduct)
				admin.POST("/images/:id", uploadLimit, productHandler.AddImage)
				admin.DELETE("/images/:id", productHandler.DeleteImage)
				admin.PUT("/togglefeature/:id", productHandler.ToggleFeatured)
				admin.POST("/category", productHandler.CreateCategory)
				admin.DELETE("/category/:id", productHandler.DeleteCategory)
				admin.GET("/getupdates", adminHandler.GetUpdates)
			}
		}

		order := v1.Group("/order")
		order.Use(authRequired)
		{
			order.POST("/new", orderHandler.CreateOrder)
			order.POST("/payment", paymentHandler.CreatePaymentIntent)
			order.GET("/my", orderHandler.GetMyOrders)
			order.GET("/single/:orderId", orderHandler.GetOrder)

			order.GET("/admin", adminOnly, orderHandler.GetAdminOrders)
			order.PUT("/single/:orderId", adminOnly, orderHandler.ProcessOrder)
		}

		admin := v1.Group("/admin")
		admin.Use(authRequired, adminOnly)
		{
			admin.GET("/updates", adminHandler.GetUpdates)
			admin.PUT("/updates", adminHandler.AcknowledgeOrders)
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)
			admin.GET("/audit-logs", adminHandler.GetAuditLogs)
		}
	}

	return r
}
