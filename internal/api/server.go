package api

import (
	"fmt"
	"net/http"

	"studiobook/internal/cache"
	"studiobook/internal/config"
	"studiobook/internal/database"
	"studiobook/internal/handlers"
	"studiobook/internal/logger"
	"studiobook/internal/messaging"
	"studiobook/internal/middleware"
	"studiobook/internal/repository"
	"studiobook/internal/search"
	"studiobook/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires the HTTP API together: database, NATS, Valkey auth cache,
// schedule search, repositories, services and routes.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	services *service.Services
	repos    *repository.Repositories
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}

	// The auth cache and the search index are optional: either failing to
	// connect degrades the feature, not the service.
	valkeyClient, err := cache.NewValkeyClient(cache.Config{
		Addr:         cfg.Valkey.Addr,
		Password:     cfg.Valkey.Password,
		AuthHashKey:  cfg.Valkey.AuthHashKey,
		ReadTimeout:  cfg.Valkey.ReadTimeout,
		WriteTimeout: cfg.Valkey.WriteTimeout,
		DialTimeout:  cfg.Valkey.DialTimeout,
	})
	if err != nil {
		logger.Get().Warn("Valkey unavailable, auth falls back to database", "error", err)
		valkeyClient = nil
	}

	esClient, err := search.NewElasticsearchClient(config.LoadElasticsearchConfig())
	if err != nil {
		logger.Get().Warn("Elasticsearch unavailable, schedule search disabled", "error", err)
		esClient = nil
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, natsClient, esClient, service.BookingConfig{
		PromotionDebitPolicy: cfg.Booking.PromotionDebitPolicy,
	})

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkeyClient,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services, s.valkey)

	api := s.router.Group("/api")
	api.Use(middleware.BasicAuth(s.repos.Members, s.valkey))
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("", h.CreateBooking)
			bookings.GET("", h.ListBookings)
			bookings.PATCH("/rebook", h.RebookBooking)
			bookings.PATCH("/cancel", h.CancelBooking)
			bookings.PATCH("/leaveWaitlist", h.LeaveWaitlist)
		}

		sessions := api.Group("/sessions")
		{
			sessions.GET("", h.ListSessions)
			sessions.GET("/:id", h.GetSession)
			sessions.GET("/:id/confirmedCount", h.GetConfirmedCount)
			sessions.POST("", middleware.RequireStaff(), h.CreateSession)
			sessions.PATCH("/:id/cancel", middleware.RequireStaff(), h.CancelSession)
			sessions.GET("/:id/attendance", middleware.RequireStaff(), h.GetAttendance)
		}

		attendance := api.Group("/attendance")
		attendance.Use(middleware.RequireStaff())
		{
			attendance.POST("", h.AddDropIn)
			attendance.DELETE("/:id", h.RemoveDropIn)
		}

		members := api.Group("/members")
		{
			members.GET("/:id", h.GetMember)
			members.POST("", middleware.RequireStaff(), h.CreateMember)
			members.PATCH("/:id/credits", middleware.RequireStaff(), h.AdjustCredits)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (s *Server) healthCheck(c *gin.Context) {
	health := s.db.HealthCheck(c.Request.Context())
	// Logs pool saturation warnings on every probe.
	s.db.ValidateConnectionPool()
	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   health.Status,
		"service":  "studiobook-api",
		"database": health,
		"pool":     s.db.GetPoolStats(),
	})
}

// Run starts the HTTP server.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter exposes the router for tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes the server's connections.
func (s *Server) Cleanup() error {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			logger.Get().Error("Error closing Valkey connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
