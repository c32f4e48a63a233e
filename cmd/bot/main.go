package main

import (
	"github.com/xaenox/collect-bot/internal/bot"
	"github.com/xaenox/collect-bot/internal/rapa"
	"github.com/xaenox/collect-bot/internal/storage"
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

	// Initialize bot
	b, err := bot.New(cfg.Telegram, store, triage, reviewer, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot
	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}
