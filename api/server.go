package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/energydatahub/energyhub/api/handlers"
	"github.com/energydatahub/energyhub/api/middleware"
	"github.com/energydatahub/energyhub/api/websocket"
	"github.com/energydatahub/energyhub/internal/auth"
	"github.com/energydatahub/energyhub/internal/events"
	"github.com/energydatahub/energyhub/internal/metrics"
	"github.com/energydatahub/energyhub/pkg/config"
	"github.com/energydatahub/energyhub/pkg/database"
	"github.com/energydatahub/energyhub/pkg/database/queries"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

// Orchestrator is what the server needs from the collection layer.
type Orchestrator interface {
	handlers.CollectorDirectory
	handlers.RunTrigger
}

type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	config      config.APIConfig
	db          *database.DB
	authService *auth.Service
	wsHub       *websocket.Hub
	wsBridge    *websocket.EventBridge
	orch        Orchestrator
}

// NewServer wires the HTTP API. db may be nil when persistence is
// disabled; bus may be nil to disable the WebSocket event stream.
func NewServer(cfg config.APIConfig, db *database.DB, orch Orchestrator, bus *events.EventBus) *Server {
	router := gin.New()
	authService := auth.NewService(cfg.JWTSecret, cfg.JWTDuration, cfg.JWTIssuer)
	wsHub := websocket.NewHub(cfg.WebSocket)

	s := &Server{
		router:      router,
		config:      cfg,
		db:          db,
		authService: authService,
		wsHub:       wsHub,
		orch:        orch,
	}

	s.setupMiddleware()
	s.setupRoutes()

	go wsHub.Run()

	if bus != nil {
		s.wsBridge = websocket.NewEventBridge(wsHub, bus.SubscribeAll())
		s.wsBridge.Start()
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.SecurityHeaders())
	s.router.Use(middleware.CORS(s.config.CORS))
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.TraceID())
	s.router.Use(middleware.RequestSizeLimit(maxRequestBodyBytes))
}

func (s *Server) setupRoutes() {
	var (
		metricRepo *queries.MetricRepository
		runRepo    *queries.RunRepository
		eventRepo  *queries.EventRepository
	)
	if s.db != nil {
		metricRepo = queries.NewMetricRepository(s.db.DB)
		runRepo = queries.NewRunRepository(s.db.DB)
		eventRepo = queries.NewEventRepository(s.db.DB)
	}

	healthHandler := handlers.NewHealthHandler(s.db)
	authHandler := handlers.NewAuthHandler(s.authService, s.config.AdminUsername, s.config.AdminPasswordHash)
	collectorHandler := handlers.NewCollectorHandler(s.orch, metricRepo, s.config.DefaultLimit, s.config.MaxLimit)
	runHandler := handlers.NewRunHandler(s.orch, runRepo, eventRepo, s.config.DefaultLimit, s.config.MaxLimit)

	// Public routes
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/health/ready", healthHandler.Ready)
	s.router.GET("/health/live", healthHandler.Live)

	// Auth routes
	s.router.POST("/auth/login", middleware.AuthRateLimiter(), authHandler.Login)

	// WebSocket route
	s.router.GET("/ws", websocket.ServeWebSocket(s.wsHub))

	// Prometheus exposition
	s.router.GET("/metrics", gin.WrapH(metrics.Get().Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/collectors", collectorHandler.List)
		v1.GET("/collectors/:name", collectorHandler.Get)
		v1.GET("/collectors/:name/metrics", collectorHandler.Metrics)
		v1.GET("/collectors/:name/health", collectorHandler.Health)
		v1.GET("/collectors/:name/metrics/history", collectorHandler.MetricsHistory)
		v1.GET("/runs", runHandler.ListRuns)
		v1.GET("/events", runHandler.ListEvents)
	}

	// Admin routes
	admin := s.router.Group("/api/v1")
	admin.Use(middleware.JWTAuth(s.authService))
	{
		admin.POST("/collectors/:name/breaker/reset", collectorHandler.ResetBreaker)
		admin.POST("/runs/trigger", runHandler.Trigger)
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	idleTimeout := s.config.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 60 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Stop the event bridge first
	if s.wsBridge != nil {
		s.wsBridge.Stop()
	}

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
