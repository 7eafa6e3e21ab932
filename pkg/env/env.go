package env

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string
	TZ     string

	// Telephony websocket listener
	WSHost string
	WSPort string
	WSPath string

	// Voice agent endpoint
	DeepgramAPIKey  string
	AgentWSSURL     string
	AgentConfigPath string

	// Media relay
	FrameSize     int
	QueueCapacity int
	PingInterval  time.Duration
	PingTimeout   time.Duration

	// Graceful-shutdown farewell clip (optional)
	FarewellAudioPath string

	// Business-function backends
	DatabaseURL string
	MongoURI    string
	DBName      string
	RedisURL    string

	SMTPHost   string
	SMTPPort   int
	SMTPUser   string
	SMTPPass   string
	SenderName string

	GoogleServiceAccountJSON string
	GoogleCalendarID         string
	BusinessTZ               string
	SlotCacheTTL             time.Duration

	LogLevel           string
	CORSAllowedOrigins string

	OTELEndpoint string
	OTELEnabled  bool
}

func Load(envFile string) (*Config, error) {
	if envFile != "" {
		// Try to load .env file, but don't fail if it doesn't exist
		// This allows the app to work with environment variables only (e.g., in production)
		if err := godotenv.Load(envFile); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		TZ:     getEnv("TZ", "UTC"),

		WSHost: getEnv("WS_HOST", "0.0.0.0"),
		WSPort: getEnv("WS_PORT", "5000"),
		WSPath: getEnv("WS_PATH", "/twilio"),

		DeepgramAPIKey:  mustGetEnv("DEEPGRAM_API_KEY"),
		AgentWSSURL:     getEnv("AGENT_WSS_URL", "wss://agent.deepgram.com/v1/agent/converse"),
		AgentConfigPath: getEnv("AGENT_CONFIG_PATH", "config.json"),

		FrameSize:     getEnvInt("FRAME_SIZE", 3200), // 400ms of 8kHz mu-law
		QueueCapacity: getEnvInt("QUEUE_CAPACITY", 128),
		PingInterval:  getEnvDuration("PING_INTERVAL", 20*time.Second),
		PingTimeout:   getEnvDuration("PING_TIMEOUT", 20*time.Second),

		FarewellAudioPath: getEnv("FAREWELL_AUDIO_PATH", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "oakwood"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		SMTPHost:   getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:   getEnvInt("SMTP_PORT", 587),
		SMTPUser:   getEnv("SMTP_USER", ""),
		SMTPPass:   getEnv("SMTP_PASS", ""),
		SenderName: getEnv("SENDER_NAME", "Oakwood Law Firm"),

		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleCalendarID:         getEnv("GOOGLE_DEFAULT_CALENDAR_ID", ""),
		BusinessTZ:               getEnv("BUSINESS_TZ", "America/Los_Angeles"),
		SlotCacheTTL:             getEnvDuration("SLOT_CACHE_TTL", 60*time.Second),

		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),

		OTELEndpoint: getEnv("OTEL_ENDPOINT", ""),
		OTELEnabled:  getEnvBool("OTEL_ENABLED", false),
	}

	if cfg.FrameSize <= 0 {
		return nil, fmt.Errorf("FRAME_SIZE must be positive, got %d", cfg.FrameSize)
	}

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", cfg.TZ, err)
	}
	time.Local = loc

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustGetEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strValue)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(strValue)
	if err != nil {
		return defaultValue
	}
	return value
}
