package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "meetsync"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultCompanyTimezone      = "America/New_York"
	DefaultWorkingStartHour     = 9
	DefaultWorkingEndHour       = 17
	DefaultMeetingBufferMinutes = 15
	DefaultSlotCheckMinutes     = 15

	DefaultKafkaNotificationsTopic = "meetsync.notifications"

	DefaultRequestTimeout  = 30 * time.Second
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
