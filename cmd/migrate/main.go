package main

import (
	"log/slog"
	"os"

	"authsvc/cmd/config"
	"authsvc/cmd/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.Connect(database.Config{
		Driver: cfg.DBDriver,
		DSN:    cfg.DSN(),
	})
	if err != nil {
		slog.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		slog.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("migration completed", slog.String("driver", cfg.DBDriver))
}
