package main

import (
	"context"
	"flag"
	"io"
	"os"
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
		configPath = flag.String("config", os.Getenv("LUMINOUS_CONFIG"), "path to YAML config")
		signalsIn  = flag.String("signals", "data/signals.csv", "input CSV path for signals")
		progressIn = flag.String("progress", "data/user_progress.csv", "input CSV path for user progress")
	)
	flag.Parse()

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		logging.New(logging.Config{}).Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := logging.Component(logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}), "import-csv")

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

	if *signalsIn != "" {
		list, err := readFile(*signalsIn, backup.ReadSignals)
		if err != nil {
			logger.Error("read signals failed", "path", *signalsIn, "error", err)
			os.Exit(1)
		}
		st, err := backup.ImportSignals(ctx, signals.NewRepo(db), list)
		if err != nil {
			logger.Error("import signals failed", "error", err)
			os.Exit(1)
		}
		logger.Info("signals imported", "path", *signalsIn, "inserted", st.Inserted, "updated", st.Updated)
	}

	if *progressIn != "" {
		list, err := readFile(*progressIn, backup.ReadProgress)
		if err != nil {
			logger.Error("read progress failed", "path", *progressIn, "error", err)
			os.Exit(1)
		}
		st, err := backup.ImportProgress(ctx, progress.NewRepo(db), list)
		if err != nil {
			logger.Error("import progress failed", "error", err)
			os.Exit(1)
		}
		logger.Info("progress imported", "path", *progressIn, "inserted", st.Inserted, "updated", st.Updated)
	}
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}
