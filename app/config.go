package app

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is the application configuration, assembled once at startup and
// passed to the components that need it. No package-level mutable state.
type (
	AppConfig struct {
		Database DatabaseConfig
		Logging  LoggingConfig
		Kafka    KafkaConfig
		Engine   EngineConfig
		Web      WebConfig
	}

	KafkaConfig struct {
		Brokers      []string
		GroupID      string
		InboundTopic string
	}

	// EngineConfig carries the consistency-engine settings: the tenant new
	// events belong to and the invite allowance each event starts with.
	EngineConfig struct {
		Tenant      string
		InviteLimit int
	}

	WebConfig struct {
		Port string
	}
)

// Setup loads configuration from the environment (and .env when present).
func Setup() *AppConfig {
	if err := godotenv.Load(".env"); err != nil {
		logrus.WithError(err).Debug("No .env file loaded")
	}

	return &AppConfig{
		Database: DatabaseConfig{
			Driver:      os.Getenv("DB_DRIVER"),
			Host:        os.Getenv("DB_HOST"),
			Username:    os.Getenv("DB_USER"),
			Password:    os.Getenv("DB_PASSWORD"),
			DBName:      os.Getenv("DB_NAME"),
			Port:        getEnvAsInt("DB_PORT", 3306),
			MaxIdleConn: getEnvAsInt("MAX_IDLE_CONN", 0),
			MaxOpenConn: getEnvAsInt("MAX_OPEN_CONN", 0),
			MaxLifetime: getEnvAsInt("MAX_LIFE_TIME_PER_CONN", 0),
			Debug:       os.Getenv("DB_DEBUG") == "true",
		},
		Logging: LoggingConfig{
			Level:      os.Getenv("LOG_LEVEL"),
			ServerName: os.Getenv("SERVER_NAME"),
		},
		Kafka: KafkaConfig{
			Brokers:      strings.Split(getEnv("KAFKA_BROKERS", "127.0.0.1:9092"), ","),
			GroupID:      getEnv("KAFKA_GROUP_ID", "event-management"),
			InboundTopic: getEnv("KAFKA_INBOUND_TOPIC", "events.inbound"),
		},
		Engine: EngineConfig{
			Tenant:      getEnv("TENANT", "primary"),
			InviteLimit: getEnvAsInt("EVENT_INVITE_LIMIT", 100),
		},
		Web: WebConfig{
			Port: os.Getenv("WEB_PORT"),
		},
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// Helper convert env -> int
func getEnvAsInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
