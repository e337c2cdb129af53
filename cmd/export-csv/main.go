package main

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"time"

	"luminousdeep/internal/backup"
	"luminousdeep/internal/progress"
	"luminousdeep/internal/signals"
	"luminousdeep/pkg/database"
	"luminousdeep/pkg/logging"
	"luminousdeep/pkg/utils"
)

func main() {
	var (
		configPath  = flag.String("config", os.Getenv("LUMINOUS_CONFIG"), "path to YAML config")
		signalsOut  = flag.String("signals", "data/signals.csv", "output CSV path for signals")
		progressOut = flag.String("progress", "data/user_progress.csv", "output CSV path for user progress")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		logging.New(logging.Config{}).Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := logging.Component(logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}), "export-csv")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
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

	all, err := signals.NewRepo(db).ListWithContent(ctx)
	if err != nil {
		logger.Error("load signals failed", "error", err)
		os.Exit(1)
	}
	if err := writeFile(*signalsOut, func(w io.Writer) error { return backup.WriteSignals(w, all) }); err != nil {
		logger.Error("export signals failed", "error", err)
		os.Exit(1)
	}

	rows, err := progress.NewRepo(db).ListAll(ctx)
	if err != nil {
		logger.Error("load progress failed", "error", err)
		os.Exit(1)
	}
	if err := writeFile(*progressOut, func(w io.Writer) error { return backup.WriteProgress(w, rows) }); err != nil {
		logger.Error("export progress failed", "error", err)
		os.Exit(1)
	}

	logger.Info("export complete",
		"signals", len(all), "signals_path", *signalsOut,
		"progress", len(rows), "progress_path", *progressOut)
}

func writeFile(path string, write func(w io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
