// Package app wires repositories, services and HTTP routes together so
// the binaries share one composition.
package app

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"luminousdeep/internal/auth"
	"luminousdeep/internal/canon"
	"luminousdeep/internal/gate"
	"luminousdeep/internal/grpcserver"
	"luminousdeep/internal/library"
	"luminousdeep/internal/progress"
	"luminousdeep/internal/series"
	"luminousdeep/internal/signals"
	"luminousdeep/internal/studio"
	synchub "luminousdeep/internal/sync"
	"luminousdeep/internal/voice"
	"luminousdeep/internal/world"
	"luminousdeep/pkg/utils"
)

type App struct {
	DB     *sql.DB
	Config utils.Config
	Hub    *synchub.Hub
	Tokens auth.TokenService
	Logger *slog.Logger

	Users        *auth.Repo
	Signals      *signals.Repo
	Series       *series.Repo
	Progress     *progress.Repo
	Canon        *canon.Repo
	Entitlements *gate.Repo

	Tracker        *progress.Tracker
	LibraryService *library.Service
	SeriesService  *series.Service
	SignalService  *signals.Service
	WorldService   *world.Service
	Studio         *studio.Service
	Voice          *voice.Service
}

// New builds the graph. hub and notifier may be nil (no live updates).
func New(db *sql.DB, cfg utils.Config, hub *synchub.Hub, notifier studio.Notifier, logger *slog.Logger) *App {
	a := &App{
		DB:     db,
		Config: cfg,
		Hub:    hub,
		Logger: logger,
		Tokens: auth.TokenService{
			Secret:   []byte(cfg.Auth.JWTSecret),
			Issuer:   cfg.Auth.JWTIssuer,
			Duration: cfg.Auth.JWTDuration(),
		},
		Users:        auth.NewRepo(db),
		Signals:      signals.NewRepo(db),
		Series:       series.NewRepo(db),
		Progress:     progress.NewRepo(db),
		Canon:        canon.NewRepo(db),
		Entitlements: gate.NewRepo(db),
	}

	// typed nils must not leak into the interfaces
	var (
		readerEvents  progress.Publisher
		contentEvents studio.Publisher
	)
	if hub != nil {
		readerEvents = hub
		contentEvents = hub
	}
	var gen voice.Generator
	if g := voice.NewOpenAIGenerator(cfg.Voice); g != nil {
		gen = g
	}

	a.Tracker = progress.NewTracker(a.Progress, readerEvents, logger)
	a.LibraryService = library.NewService(a.Signals, a.Progress)
	a.SeriesService = series.NewService(a.Series, a.Signals, a.Progress)
	a.SignalService = signals.NewService(a.Signals, a.Progress, gate.NewPolicy(a.Entitlements, cfg.Gate.FillerLimit), logger)
	a.WorldService = world.NewService(a.Canon, a.Signals)
	a.Studio = studio.NewService(a.Signals, a.Series, a.Canon, a.Entitlements, contentEvents, notifier, logger)
	a.Voice = voice.NewService(a.Canon, gen, logger)
	return a
}

// GRPCServer returns the gRPC face of the same services.
func (a *App) GRPCServer() *grpcserver.Server {
	return &grpcserver.Server{
		Library:  a.LibraryService,
		Series:   a.SeriesService,
		Signals:  a.SignalService,
		World:    a.WorldService,
		Tracker:  a.Tracker,
		Tokens:   a.Tokens,
		Versions: a.Users,
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		)
	}
}

// Router builds the HTTP API.
func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(a.Logger))
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", a.ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if a.Hub != nil {
		// progress events reach only the socket owner's connections
		router.GET("/ws", auth.OptionalAuth(a.Tokens, a.Users), synchub.WSHandler(a.Hub, auth.UserID))
	}

	var limiter *auth.LoginLimiter
	if a.Config.Auth.LoginRatePerMinute > 0 {
		limiter = auth.NewLoginLimiter(a.Config.Auth.LoginRatePerMinute)
	}
	auth.NewHandler(a.Users, a.Tokens, limiter).RegisterRoutes(router.Group("/auth"))

	// reader routes: identity optional
	public := router.Group("")
	public.Use(auth.OptionalAuth(a.Tokens, a.Users))
	library.NewHandler(a.LibraryService).RegisterRoutes(public)
	series.NewHandler(a.SeriesService).RegisterRoutes(public)
	signals.NewHandler(a.SignalService).RegisterRoutes(public)
	progress.NewHandler(a.Tracker).RegisterRoutes(public)
	canon.NewHandler(a.Canon).RegisterRoutes(public)

	admin := router.Group("/studio")
	admin.Use(auth.AuthMiddleware(a.Tokens, a.Users), auth.RequireAdmin())
	studio.NewHandler(a.Studio, a.Voice).RegisterRoutes(admin)
	world.NewHandler(a.WorldService).RegisterRoutes(admin)

	return router
}

func (a *App) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{}
	if a.Hub != nil {
		stats := a.Hub.Stats()
		body["tcp_clients"] = stats.TCPClients
		body["ws_clients"] = stats.WSClients
	}
	if err := a.DB.PingContext(ctx); err != nil {
		body["status"] = "not_ready"
		body["db_error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["status"] = "ready"
	body["db"] = "ok"
	c.JSON(http.StatusOK, body)
}
