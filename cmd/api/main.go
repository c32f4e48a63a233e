package main

import (
	"fmt"
	"net/http"

	"github.com/xaenox/collect-bot/internal/api"
	"github.com/xaenox/collect-bot/internal/rapa"
	"github.com/xaenox/collect-bot/internal/storage"
	"github.com/xaenox/collect-bot/internal/telegram"
	"github.com/xaenox/collect-bot/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		store, err = storage.NewSQLStorage(storage.DatabaseConfig{
			Driver:   cfg.Database.Driver,
			Path:     cfg.Database.Path,
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Triage engine and reviews
	classifier := rapa.NewClassifier(rapa.DefaultAreaRules())
	triage := rapa.NewService(store, classifier, logger)
	reviewer := rapa.NewReviewer(store)

	// Photo proxy needs the bot token; without it /api/photo serves 404s.
	var files *telegram.FileClient
	if cfg.Telegram.Token != "" {
		files = telegram.NewFileClient(cfg.Telegram.Token)
	} else {
		logger.Warn("No bot token configured, photo proxy disabled")
	}

	server := api.NewServer(store, triage, reviewer, files, cfg.API.OwnerUserID, logger)

	addr := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("API listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		logger.Fatal("API error", zap.Error(err))
	}
}
