package main

import (
	"io"

	"lotterybot/internal/config"
	"lotterybot/internal/handlers"
	"lotterybot/internal/kvstore"
	"lotterybot/internal/notify"
	"lotterybot/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
)

func main() {
	defer logger.Init("lottery-bot", true, false, io.Discard).Close()

	// 1. Load the deployment configuration from the environment
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize the key-value store client
	store := kvstore.New(cfg.KVToken, cfg.KVAccountID)

	// 3. Pick the chat backend season announcements go to
	var notifier notify.Notifier
	switch cfg.NotifyTarget {
	case "slack":
		notifier = notify.NewSlack(cfg.SlackToken, cfg.SlackChannel)
	case "discord":
		notifier, err = notify.NewDiscord(cfg.DiscordWebhookURL)
		if err != nil {
			logger.Fatalf("Failed to set up discord webhook: %v", err)
		}
	default:
		logger.Fatalf("Unknown notify target %q", cfg.NotifyTarget)
	}

	// 4. Initialize the Lottery Service and the HTTP Handler
	lotteryService := services.NewLotteryService(store, notifier, cfg)
	httpHandler := handlers.NewHTTPHandler(lotteryService)

	// 5. Set up the Gin router and register routes
	r := gin.Default()
	httpHandler.RegisterRoutes(r)

	// 6. Run the server
	logger.Infof("Server starting on %s", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		logger.Fatalf("Failed to run server: %v", err)
	}
}
