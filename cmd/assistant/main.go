package main

import (
	"context"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"meetsync/internal/events/notify"
	eventrepository "meetsync/internal/events/repository"
	eventservice "meetsync/internal/events/service"
	extsync "meetsync/internal/events/sync"
	"meetsync/internal/events/validator"
	"meetsync/internal/tools/scheduling"
	userrepository "meetsync/internal/users/repository"
	userservice "meetsync/internal/users/service"
	"meetsync/pkg/config"
	"meetsync/pkg/kafka"
)

const (
	ServiceName = "meetsync-assistant"
	Version     = "1.0.0"
)

// The assistant binary speaks MCP over stdio; the reasoning loop on the other
// end drives the scheduling tools one call at a time.
func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting MeetSync assistant")

	cfg.SetMongo()
	cfg.SetCalendar()
	defer cfg.GracefulShutdown()

	toolset := initToolset(cfg)

	mcpSrv := mcpserver.NewMCPServer(ServiceName, Version,
		mcpserver.WithToolCapabilities(true),
	)
	toolset.Register(mcpSrv)

	cfg.Log.Info("Serving MCP over stdio")
	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		cfg.Log.Fatal("MCP server failed", "error", err)
	}
}

func initToolset(cfg *config.Config) *scheduling.Toolset {
	eventRepo := eventrepository.NewMongoEventRepository(cfg)
	userRepo := userrepository.NewMongoUserRepository(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
	defer cancel()
	if err := eventRepo.EnsureIndexes(ctx); err != nil {
		cfg.Log.Fatal("Failed to ensure event indexes", "error", err)
	}
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		cfg.Log.Fatal("Failed to ensure user indexes", "error", err)
	}

	syncer := extsync.NewGoogleSyncer(cfg.Client.Calendar, cfg.CalendarID, cfg.Log)

	notifier := notify.NewNoopNotifier()
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaNotificationsTopic)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		notifier = notify.NewKafkaNotifier(producer, cfg.Log)
		cfg.Log.Info("Kafka notifications enabled", "topic", cfg.KafkaNotificationsTopic)
	}

	eventValidator := validator.NewEventValidator(cfg.Log)
	events := eventservice.NewEventService(eventRepo, syncer, notifier, eventValidator, cfg)
	users := userservice.NewUserService(userRepo, cfg)

	cfg.Log.Info("Scheduling toolset initialized", "database", cfg.MongoDatabaseName)
	return scheduling.NewToolset(events, users, cfg.Log)
}
