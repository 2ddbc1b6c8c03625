package main

import (
	"context"

	"github.com/joho/godotenv"

	"meetsync/internal/events/handler"
	"meetsync/internal/events/notify"
	eventrepository "meetsync/internal/events/repository"
	eventservice "meetsync/internal/events/service"
	extsync "meetsync/internal/events/sync"
	"meetsync/internal/events/validator"
	userrepository "meetsync/internal/users/repository"
	userservice "meetsync/internal/users/service"
	"meetsync/pkg/app"
	"meetsync/pkg/config"
	"meetsync/pkg/kafka"
)

const ServiceName = "meetsync-api"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting MeetSync API service")

	cfg.SetMongo()
	cfg.SetCalendar()
	defer cfg.GracefulShutdown()

	events, users := initServices(cfg)

	serverApp := app.NewApplication()
	serverApp.SetApp(cfg, handler.NewEventHandler(events, users, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) (eventservice.EventService, userservice.UserService) {
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

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return events, users
}
