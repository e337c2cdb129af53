package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"luminousdeep/internal/app"
	"luminousdeep/internal/notify"
	synchub "luminousdeep/internal/sync"
	"luminousdeep/pkg/database"
	"luminousdeep/pkg/logging"
	"luminousdeep/pkg/utils"
)

func main() {
	configPath := flag.String("config", os.Getenv("LUMINOUS_CONFIG"), "path to YAML config")
	flag.Parse()

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		logging.New(logging.Config{}).Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	dbCfg := database.DefaultConfig()
	if cfg.DBPath != "" {
		dbCfg.Path = cfg.DBPath
	}
	db, err := database.Open(dbCfg)
	if err != nil {
		logger.Error("db open failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Error("db migrate failed", "error", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)

	hub := synchub.NewHub(logger)
	tcpSrv := synchub.NewServer(cfg.TCPAddr, hub, logger)
	udpSrv := notify.NewServer(cfg.UDPAddr, notify.NewRegistry(), logger)

	a := app.New(db, cfg, hub, udpSrv, logger)
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(tcpSrv.Run)
	g.Go(udpSrv.Run)
	g.Go(func() error {
		logger.Info("HTTP API server listening", "addr", cfg.HTTPAddr, "db", dbCfg.Path)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown error", "error", err)
		}
		if err := tcpSrv.Close(); err != nil {
			logger.Warn("tcp shutdown error", "error", err)
		}
		if err := udpSrv.Close(); err != nil {
			logger.Warn("udp shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("servers stopped")
}
