package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"luminousdeep/internal/app"
	"luminousdeep/internal/grpcserver"
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

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Error("grpc listen failed", "error", err)
		os.Exit(1)
	}

	// no hub here: progress events are only fanned out by the api-server
	a := app.New(db, cfg, nil, nil, logger)
	grpcServer := grpc.NewServer()
	grpcserver.Register(grpcServer, a.GRPCServer())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("shutting down grpc server")
		grpcServer.GracefulStop()
	}()

	logger.Info("gRPC server listening", "addr", cfg.GRPCAddr, "service", grpcserver.ServiceName)
	if err := grpcServer.Serve(listener); err != nil {
		logger.Error("grpc server stopped", "error", err)
		os.Exit(1)
	}
}
