// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"rfid-bridge/internal/config"
	"rfid-bridge/internal/handler"
	"rfid-bridge/internal/middleware"
	"rfid-bridge/internal/service"
	"rfid-bridge/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config             *config.Config
	logger             *zap.Logger
	transactionService *service.TransactionService
	discoveryService   *service.DiscoveryService
	eventBus           *handler.EventBus
	wsHandler          *handler.WebSocketHandler
}

// NewRouter creates a new router instance
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	transactionService *service.TransactionService,
	discoveryService *service.DiscoveryService,
	eventBus *handler.EventBus,
	wsHandler *handler.WebSocketHandler,
) *Router {
	return &Router{
		config:             config,
		logger:             logger,
		transactionService: transactionService,
		discoveryService:   discoveryService,
		eventBus:           eventBus,
		wsHandler:          wsHandler,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.transactionService, r.eventBus, r.wsHandler, r.config, r.logger)
	transactionHandler := handler.NewTransactionHandler(r.transactionService, r.logger)
	linkHandler := handler.NewLinkHandler(r.transactionService, r.logger)
	discoveryHandler := handler.NewDiscoveryHandler(r.discoveryService, r.logger)

	r.addHealthRoutes(router, healthHandler)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/transactions", transactionHandler.ExecuteTransaction)

		link := apiV1.Group("/link")
		link.GET("", linkHandler.GetLink)
		link.POST("/reconnect", linkHandler.Reconnect)

		r.addDiscoveryRoutes(apiV1, discoveryHandler)
	}

	if r.wsHandler != nil {
		router.GET("/ws/status", r.wsHandler.HandleStatusConnection)
	}

	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addHealthRoutes sets up health check routes
func (r *Router) addHealthRoutes(router *gin.Engine, handler *handler.HealthHandler) {
	health := router.Group("")
	{
		health.GET("/health", handler.HealthCheck)
		health.GET("/ready", handler.ReadinessCheck)
		health.GET("/live", handler.LivenessCheck)
	}
}

// addDiscoveryRoutes sets up device discovery routes
func (r *Router) addDiscoveryRoutes(api *gin.RouterGroup, handler *handler.DiscoveryHandler) {
	discovery := api.Group("/discovery")
	{
		discovery.GET("/ports", handler.ListPorts)
		discovery.GET("/usb", handler.ListUSBBridges)
	}
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	// docs/ is generated by `swag init -g cmd/server/main.go`
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
