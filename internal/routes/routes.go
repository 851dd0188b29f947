// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"print-bridge/internal/config"
	"print-bridge/internal/handler"
	"print-bridge/internal/middleware"
	"print-bridge/internal/repository"
	"print-bridge/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config   *config.Config
	logger   *zap.Logger
	session  handler.PrinterSession
	receipts handler.ReceiptService
	jobs     repository.PrintJobRepository
	db       handler.HealthChecker
	eventBus *handler.EventBus
}

// NewRouter creates a new router instance. db may be nil.
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	session handler.PrinterSession,
	receipts handler.ReceiptService,
	jobs repository.PrintJobRepository,
	db handler.HealthChecker,
	eventBus *handler.EventBus,
) *Router {
	return &Router{
		config:   config,
		logger:   logger,
		session:  session,
		receipts: receipts,
		jobs:     jobs,
		db:       db,
		eventBus: eventBus,
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

func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))
	router.Use(middleware.CORSMiddleware(&r.config.Security))

	if r.config.Security.RateLimitEnabled {
		limiter := middleware.NewClientRateLimiter(
			r.config.Security.RateLimitRequests,
			r.config.Security.RateLimitBurst,
			serviceLogger,
		)
		router.Use(limiter.Middleware())
	}

	r.logger.Info("Middleware configured")
}

func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.session, r.db, r.config, r.logger)
	agentHandler := handler.NewAgentHandler(r.session, r.logger)
	deviceHandler := handler.NewDeviceHandler(r.session, r.logger)
	receiptHandler := handler.NewReceiptHandler(r.receipts, r.logger)
	preferencesHandler := handler.NewPreferencesHandler(r.session, r.logger)
	jobHandler := handler.NewJobHandler(r.jobs, r.logger)
	wsHandler := handler.NewWebSocketHandler(r.eventBus, r.session, r.logger)

	r.addHealthRoutes(router, healthHandler)

	apiV1 := router.Group("/api/v1")
	r.addAgentRoutes(apiV1, agentHandler)
	r.addDeviceRoutes(apiV1, deviceHandler)
	r.addReceiptRoutes(apiV1, receiptHandler)
	r.addPreferenceRoutes(apiV1, preferencesHandler)
	r.addJobRoutes(apiV1, jobHandler)

	router.GET("/ws/events", wsHandler.HandleEventConnection)

	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

func (r *Router) addHealthRoutes(router *gin.Engine, handler *handler.HealthHandler) {
	health := router.Group("")
	{
		health.GET("/health", handler.HealthCheck)
		health.GET("/ready", handler.ReadinessCheck)
		health.GET("/live", handler.LivenessCheck)
	}
}

func (r *Router) addAgentRoutes(api *gin.RouterGroup, handler *handler.AgentHandler) {
	agent := api.Group("/agent")
	{
		agent.GET("/status", handler.GetStatus)
		agent.POST("/connect", handler.Connect)
		agent.POST("/disconnect", handler.Disconnect)
	}
}

// device ids are paths such as /dev/rfcomm0, so they travel in the body
func (r *Router) addDeviceRoutes(api *gin.RouterGroup, handler *handler.DeviceHandler) {
	devices := api.Group("/devices")
	{
		devices.GET("", handler.ListDevices)
		devices.DELETE("", handler.ClearDevices)
		devices.POST("/discover", handler.Discover)
		devices.GET("/connected", handler.ListConnected)
		devices.POST("/connect", handler.ConnectDevice)
		devices.POST("/disconnect", handler.DisconnectDevice)
	}
}

func (r *Router) addReceiptRoutes(api *gin.RouterGroup, handler *handler.ReceiptHandler) {
	receipts := api.Group("/receipts")
	{
		receipts.POST("/preview", handler.Preview)
		receipts.POST("/escpos", handler.Encode)
		receipts.POST("/print", handler.Print)
	}
}

func (r *Router) addPreferenceRoutes(api *gin.RouterGroup, handler *handler.PreferencesHandler) {
	api.GET("/preferences", handler.GetPreferences)
	api.PUT("/preferences", handler.UpdatePreferences)
}

func (r *Router) addJobRoutes(api *gin.RouterGroup, handler *handler.JobHandler) {
	jobs := api.Group("/jobs")
	{
		jobs.GET("", handler.ListJobs)
		jobs.GET("/:job_id", handler.GetJob)
	}
}

func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
