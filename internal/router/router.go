package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/institute-fee-api/internal/handler"
	"github.com/noah-isme/institute-fee-api/internal/middleware"
	"github.com/noah-isme/institute-fee-api/internal/models"
	"github.com/noah-isme/institute-fee-api/internal/service"
	"github.com/noah-isme/institute-fee-api/pkg/config"
	"github.com/noah-isme/institute-fee-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/institute-fee-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/institute-fee-api/pkg/middleware/requestid"
)

// Dependencies carries everything the router needs to register routes.
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	Auth          *service.AuthService
	Metrics       *service.MetricsService
	Families      *handler.FamilyHandler
	Students      *handler.StudentHandler
	Catalog       *handler.CatalogHandler
	Subscriptions *handler.SubscriptionHandler
	Allocations   *handler.AllocationHandler
	Payments      *handler.PaymentHandler
	Statements    *handler.StatementHandler
	AuthHandler   *handler.AuthHandler
}

// New builds the gin engine with middleware and every API route.
func New(deps Dependencies) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	metricsHandler := handler.NewMetricsHandler(deps.Metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if deps.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.Config.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", deps.AuthHandler.Login)
		auth.POST("/refresh", deps.AuthHandler.Refresh)
		auth.POST("/logout", middleware.JWT(deps.Auth), deps.AuthHandler.Logout)
		auth.GET("/me", middleware.JWT(deps.Auth), deps.AuthHandler.Me)
	}

	// Signed statement downloads carry their own auth in the token.
	api.GET("/statements/:token", deps.Statements.Download)

	protected := api.Group("")
	protected.Use(middleware.JWT(deps.Auth))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleStaff)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staffOrOwnFamily := middleware.RBAC(string(models.RoleAdmin), string(models.RoleStaff), middleware.FamilySelf)

	families := protected.Group("/families")
	{
		families.GET("", staff, deps.Families.List)
		families.POST("", staff, deps.Families.Create)
		families.GET("/:id", staffOrOwnFamily, deps.Families.Get)
		families.PUT("/:id", staff, deps.Families.Update)
		families.DELETE("/:id", adminOnly, deps.Families.Deactivate)
		families.GET("/:id/fees", staffOrOwnFamily, deps.Families.Fees)
		families.GET("/:id/statement", staffOrOwnFamily, deps.Families.Statement)
		families.GET("/:id/payments", staffOrOwnFamily, deps.Payments.ListByFamily)
	}

	students := protected.Group("/students")
	students.Use(staff)
	{
		students.GET("", deps.Students.List)
		students.POST("", deps.Students.Create)
		students.GET("/:id", deps.Students.Get)
		students.PUT("/:id", deps.Students.Update)
		students.GET("/:id/fees", deps.Students.Fees)
	}

	courses := protected.Group("/courses")
	courses.Use(handler.OwnerType(models.OwnerCourse))
	{
		courses.GET("", deps.Catalog.ListCourses)
		courses.POST("", staff, deps.Catalog.CreateCourse)
		courses.GET("/:id", deps.Catalog.GetCourse)
		courses.PUT("/:id", staff, deps.Catalog.UpdateOffering)
		courses.GET("/:id/fee-structure", deps.Catalog.GetFeeStructure)
		courses.PUT("/:id/fee-structure", adminOnly, deps.Catalog.UpsertFeeStructure)
	}

	services := protected.Group("/services")
	services.Use(handler.OwnerType(models.OwnerService))
	{
		services.GET("", deps.Catalog.ListServices)
		services.POST("", staff, deps.Catalog.CreateService)
		services.GET("/:id", deps.Catalog.GetService)
		services.PUT("/:id", staff, deps.Catalog.UpdateOffering)
		services.GET("/:id/fee-structure", deps.Catalog.GetFeeStructure)
		services.PUT("/:id/fee-structure", adminOnly, deps.Catalog.UpsertFeeStructure)
	}

	subscriptions := protected.Group("/subscriptions")
	subscriptions.Use(staff)
	{
		subscriptions.GET("", deps.Subscriptions.List)
		subscriptions.POST("", deps.Subscriptions.Create)
		subscriptions.GET("/:id", deps.Subscriptions.Get)
		subscriptions.PATCH("/:id/end", deps.Subscriptions.End)
		subscriptions.PATCH("/:id/discount", deps.Subscriptions.UpdateDiscount)
	}

	allocations := protected.Group("/allocations")
	{
		allocations.GET("", staff, deps.Allocations.List)
		allocations.GET("/summary", staff, deps.Allocations.Summary)
		allocations.POST("/materialize", adminOnly, deps.Allocations.Materialize)
		allocations.POST("/materialize/async", adminOnly, deps.Allocations.MaterializeAsync)
	}

	payments := protected.Group("/payments")
	payments.Use(staff)
	{
		payments.POST("", deps.Payments.Create)
		payments.GET("/:id", deps.Payments.Get)
	}

	return r
}
