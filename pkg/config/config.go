package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"meetsync/pkg/client"
	"meetsync/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	CalendarID              string
	GoogleCredentialsBase64 string

	CompanyTimezone      string
	WorkingStartHour     int
	WorkingEndHour       int
	MeetingBufferMinutes int
	SlotCheckMinutes     int

	KafkaBrokers            []string
	KafkaNotificationsTopic string

	RequestTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		CalendarID:              getEnvStr(EnvCalendarID, ""),
		GoogleCredentialsBase64: getEnvStr(EnvGoogleCredentialsBase64, ""),

		CompanyTimezone:      getEnvStr(EnvCompanyTimezone, DefaultCompanyTimezone),
		WorkingStartHour:     getEnvNum(EnvWorkingStartHour, DefaultWorkingStartHour),
		WorkingEndHour:       getEnvNum(EnvWorkingEndHour, DefaultWorkingEndHour),
		MeetingBufferMinutes: getEnvNum(EnvMeetingBufferMinutes, DefaultMeetingBufferMinutes),
		SlotCheckMinutes:     getEnvNum(EnvSlotCheckMinutes, DefaultSlotCheckMinutes),

		KafkaBrokers:            getEnvList(EnvKafkaBrokers),
		KafkaNotificationsTopic: getEnvStr(EnvKafkaNotificationsTopic, DefaultKafkaNotificationsTopic),

		RequestTimeout:  getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// Buffer returns the configured meeting buffer as a duration.
func (cfg *Config) Buffer() time.Duration {
	return time.Duration(cfg.MeetingBufferMinutes) * time.Minute
}

// SlotStep returns the slot-check granularity as a duration.
func (cfg *Config) SlotStep() time.Duration {
	return time.Duration(cfg.SlotCheckMinutes) * time.Minute
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetCalendar() {
	cfg.Client.SetCalendar(cfg.Log, cfg.GoogleCredentialsBase64)
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if _, err := time.LoadLocation(cfg.CompanyTimezone); err != nil {
		errs = append(errs, fmt.Sprintf("CompanyTimezone must be a valid IANA timezone, got: %s", cfg.CompanyTimezone))
	}
	if cfg.WorkingStartHour < 0 || cfg.WorkingStartHour > 23 {
		errs = append(errs, fmt.Sprintf("WorkingStartHour must be between 0 and 23, got: %d", cfg.WorkingStartHour))
	}
	if cfg.WorkingEndHour < 0 || cfg.WorkingEndHour > 23 {
		errs = append(errs, fmt.Sprintf("WorkingEndHour must be between 0 and 23, got: %d", cfg.WorkingEndHour))
	}
	if cfg.WorkingEndHour <= cfg.WorkingStartHour {
		errs = append(errs, fmt.Sprintf("WorkingEndHour (%d) must be after WorkingStartHour (%d)", cfg.WorkingEndHour, cfg.WorkingStartHour))
	}
	if cfg.MeetingBufferMinutes < 0 {
		errs = append(errs, fmt.Sprintf("MeetingBufferMinutes cannot be negative, got: %d", cfg.MeetingBufferMinutes))
	}
	if cfg.SlotCheckMinutes <= 0 {
		errs = append(errs, fmt.Sprintf("SlotCheckMinutes must be positive, got: %d", cfg.SlotCheckMinutes))
	}

	for _, field := range []struct {
		name string
		val  time.Duration
	}{
		{"RequestTimeout", cfg.RequestTimeout},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
	} {
		if field.val <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %s", field.name, field.val))
		}
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, e := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"calendar_id", cfg.CalendarID,
		"google_credentials_set", cfg.GoogleCredentialsBase64 != "",
		"company_timezone", cfg.CompanyTimezone,
		"working_start_hour", cfg.WorkingStartHour,
		"working_end_hour", cfg.WorkingEndHour,
		"meeting_buffer_minutes", cfg.MeetingBufferMinutes,
		"slot_check_minutes", cfg.SlotCheckMinutes,
		"kafka_brokers", cfg.KafkaBrokers,
		"kafka_notifications_topic", cfg.KafkaNotificationsTopic,
		"request_timeout", cfg.RequestTimeout,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown()
}
