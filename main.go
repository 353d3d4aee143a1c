// main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kids-tutoring/cmd"
	"kids-tutoring/internal/data/repository"
	"kids-tutoring/internal/usecase"
	"kids-tutoring/internal/wire"
	"kids-tutoring/pkg/database"
	"kids-tutoring/pkg/mq"
	"kids-tutoring/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.InitDB(ctx, config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	if config.Database.AutoMigrate {
		if err := database.EnsureSchema(ctx, db); err != nil {
			logger.Fatal("Failed to apply schema", zap.Error(err))
		}
	}

	// Initialize all repositories
	repos := repository.NewRepository(db, logger)

	// Payment events are optional
	var events usecase.EventPublisher = mq.Nop{}
	if config.Broker.URL != "" {
		publisher, err := mq.NewPublisher(config.Broker.URL, config.Broker.Exchange)
		if err != nil {
			logger.Fatal("Failed to connect to broker", zap.Error(err))
		}
		defer publisher.Close()
		events = publisher
		logger.Info("Broker connected", zap.String("exchange", config.Broker.Exchange))
	}

	gateways, err := wire.Gateways(config, logger)
	if err != nil {
		logger.Fatal("Failed to init payment gateways", zap.Error(err))
	}

	// Wire all dependencies
	app := wire.Wiring(repos, gateways, events, config, logger)

	// Start server
	if err := cmd.APIServer(ctx, app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}

	stats := app.Relay.Registry().Stats()
	logger.Info("Server stopped",
		zap.Int("rooms", stats.Rooms),
		zap.Int("connections", stats.Connections),
	)
}
