package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvCalendarID              = "CALENDAR_ID"
	EnvGoogleCredentialsBase64 = "GOOGLE_CREDENTIALS_BASE64"

	EnvCompanyTimezone      = "COMPANY_TIMEZONE"
	EnvWorkingStartHour     = "COMPANY_WORKING_START_HOUR"
	EnvWorkingEndHour       = "COMPANY_WORKING_END_HOUR"
	EnvMeetingBufferMinutes = "MEETING_BUFFER_MINUTES"
	EnvSlotCheckMinutes     = "SLOT_CHECK_DURATION_MINUTES"

	EnvKafkaBrokers            = "KAFKA_BROKERS"
	EnvKafkaNotificationsTopic = "KAFKA_NOTIFICATIONS_TOPIC"

	EnvRequestTimeout  = "REQUEST_TIMEOUT"
	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
