// Package server
//
// @title Plantdash Dashboard
// @version 1.0
// @description Server-rendered plant and report dashboard
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/gorilla/sessions"
	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/plantdash/plantdash/internal/client"
	"github.com/plantdash/plantdash/internal/config"
	"github.com/plantdash/plantdash/internal/guard"
	"github.com/plantdash/plantdash/internal/models"
	"github.com/plantdash/plantdash/internal/registry"
	"github.com/plantdash/plantdash/internal/reports"
	"github.com/plantdash/plantdash/internal/storage"
)

// monitorPath is where the queue monitor is mounted
const monitorPath = "/admin/queues"

// ReportQueue enqueues report tasks; *asynq.Client satisfies it
type ReportQueue interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	templates *template.Template
	db        *gorm.DB
	config    *config.Config
	logger    zerolog.Logger
	api       *client.Client
	registry  *registry.Registry
	rules     *guard.RuleSet
	reports   *reports.Validator
	queue     ReportQueue
	monitor   http.Handler
	cookies   *sessions.CookieStore
	closers   []func() error
	version   string
}

// Deps are the collaborators of a Server. New builds them from the
// configuration; tests pass their own.
type Deps struct {
	DB      *gorm.DB
	Store   storage.Store
	API     *client.Client
	Queue   ReportQueue
	Monitor http.Handler // optional
	Rules   *guard.RuleSet
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Initialize database with production settings
	db, err := InitDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	store, closeStore, err := OpenSessionStore(context.Background(), cfg, db, zlog)
	if err != nil {
		return nil, err
	}

	rules := guard.DefaultRules()
	if cfg.Server.RoutesFile != "" {
		rules, err = guard.LoadRules(cfg.Server.RoutesFile)
		if err != nil {
			return nil, err
		}
		zlog.Info().Str("file", cfg.Server.RoutesFile).Msg("Loaded route rules")
	}

	// Initialize Asynq client for enqueueing tasks
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	}
	asynqClient := asynq.NewClient(redisOpt)

	monitor := asynqmon.New(asynqmon.Options{
		RootPath:     monitorPath,
		RedisConnOpt: redisOpt,
	})

	if cfg.Sessions.EphemeralSecret {
		zlog.Warn().Msg("SESSION_SECRET not set - sessions will not survive a restart")
	}

	server, err := NewWithDeps(cfg, zlog, version, Deps{
		DB:      db,
		Store:   store,
		API:     NewBackendClient(cfg),
		Queue:   asynqClient,
		Monitor: monitor,
		Rules:   rules,
	})
	if err != nil {
		return nil, err
	}
	server.closers = append(server.closers, asynqClient.Close, monitor.Close, closeStore)

	return server, nil
}

// NewWithDeps creates a server from explicit collaborators
func NewWithDeps(cfg *config.Config, zlog zerolog.Logger, version string, deps Deps) (*Server, error) {
	cookies, err := newCookieStore(cfg.Sessions)
	if err != nil {
		return nil, err
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	rules := deps.Rules
	if rules == nil {
		rules = guard.DefaultRules()
	}

	server := &Server{
		templates: templates,
		db:        deps.DB,
		config:    cfg,
		logger:    zlog,
		api:       deps.API,
		registry:  registry.New(deps.DB, deps.Store, zlog),
		rules:     rules,
		reports:   reports.NewValidator(),
		queue:     deps.Queue,
		monitor:   deps.Monitor,
		cookies:   cookies,
		version:   version,
	}

	// Setup router
	server.setupRouter()

	return server, nil
}

// NewBackendClient creates the plant API client from the configuration
func NewBackendClient(cfg *config.Config) *client.Client {
	api := client.New(cfg.Backend.URL)
	api.SetHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout})
	return api
}

// InitDatabase initializes the session registry database with production
// settings
func InitDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8    // Reduced for SQLite efficiency
		maxIdleConns    = 4    // Reduced proportionally
		connMaxLifetime = 300  // 5 minutes
		busyTimeout     = 5000 // 5 seconds
	)

	// Open database connection
	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode must be set first for optimal concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.SetHTMLTemplate(s.templates)

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	if len(s.config.Server.CORSOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:     s.config.Server.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length", requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Health check endpoint (no session)
	s.router.GET("/health", s.healthCheck)

	// Everything else runs with a hydrated browser session behind the guard
	app := s.router.Group("/")
	app.Use(s.sessionMiddleware())
	app.Use(guard.Middleware(s.rules, sessionState, s.renderLoading, s.logger))
	{
		app.GET("/login", s.showLogin)
		app.POST("/login", s.login)
		app.POST("/logout", s.logout)
		app.POST("/theme/toggle", s.toggleTheme)
		app.POST("/lang", s.setLanguage)
		app.GET("/api/session", s.getSession)

		app.GET("/", s.dashboard)
		app.GET("/plants/:id", s.plantDetail)

		app.GET("/reports", s.listReports)
		app.GET("/reports/new", s.newReport)
		app.POST("/reports", s.submitReport)

		app.GET("/admin", s.adminPage)
		if s.monitor != nil {
			app.Any(monitorPath+"/*any", gin.WrapH(s.monitor))
		}
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "plantdash-dashboard",
		"version":   s.version,
	})
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := s.config.Server.ListenAddr

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.Close()
	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

// Close releases the queue client, the monitor, the session store and the
// database
func (s *Server) Close() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing server resource")
		}
	}
	s.closers = nil

	// Close database connection to flush WAL writes
	if s.db == nil {
		return
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		} else {
			s.logger.Info().Msg("Database closed successfully")
		}
	}
}
