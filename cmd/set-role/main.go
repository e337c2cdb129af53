package main

import (
	"context"
	"flag"
	"os"
	"time"

	"luminousdeep/internal/auth"
	"luminousdeep/pkg/database"
	"luminousdeep/pkg/logging"
	"luminousdeep/pkg/utils"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("LUMINOUS_CONFIG"), "path to YAML config")
		email      = flag.String("email", "", "email of an existing account")
		role       = flag.String("role", auth.RoleAdmin, "reader or admin")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		logging.New(logging.Config{}).Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := logging.Component(logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}), "set-role")

	if *email == "" {
		logger.Error("-email is required")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbCfg := database.DefaultConfig()
	if cfg.DBPath != "" {
		dbCfg.Path = cfg.DBPath
	}
	db := database.MustOpen(dbCfg)
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Error("db migrate failed", "error", err)
		os.Exit(1)
	}

	u, err := auth.NewRepo(db).SetRoleByEmail(ctx, *email, *role)
	if err != nil {
		logger.Error("set role failed", "email", *email, "error", err)
		os.Exit(1)
	}
	if u == nil {
		logger.Error("no such account", "email", *email)
		os.Exit(1)
	}
	logger.Info("role updated", "user_id", u.ID, "username", u.Username, "role", u.Role)
}
