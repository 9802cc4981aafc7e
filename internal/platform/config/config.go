package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "a-very-secret-key-should-be-longer-and-random"

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	JWTSecret      string
	JWTIssuer      string
	MigrationsPath string

	// Database limits
	DBMaxConns       int32
	LockTimeout      time.Duration
	StatementTimeout time.Duration
	RequestTimeout   time.Duration

	// Notification drivers, any of "log", "amqp", "kafka"
	NotifierDrivers []string
	AMQPURL         string
	AMQPExchange    string
	KafkaBrokers    []string
	KafkaTopic      string

	// HTTP edge
	RateLimit          string
	RedisURL           string
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_ISSUER", "enrollment-engine")
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("LOCK_TIMEOUT", "3s")
	v.SetDefault("STATEMENT_TIMEOUT", "10s")
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("NOTIFIER_DRIVERS", "log")
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "enrollment.events")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "enrollment-events")
	v.SetDefault("RATE_LIMIT", "200-M")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		DatabaseURL:              v.GetString("PGSQL_URL"),
		Port:                     v.GetString("PORT"),
		IsProduction:             v.GetBool("IS_PRODUCTION"),
		JWTSecret:                v.GetString("JWT_SECRET"),
		JWTIssuer:                v.GetString("JWT_ISSUER"),
		MigrationsPath:           v.GetString("MIGRATIONS_PATH"),
		DBMaxConns:               v.GetInt32("DB_MAX_CONNS"),
		LockTimeout:              durationOr(v, "LOCK_TIMEOUT", 3*time.Second),
		StatementTimeout:         durationOr(v, "STATEMENT_TIMEOUT", 10*time.Second),
		RequestTimeout:           durationOr(v, "REQUEST_TIMEOUT", 15*time.Second),
		NotifierDrivers:          splitList(v.GetString("NOTIFIER_DRIVERS")),
		AMQPURL:                  v.GetString("AMQP_URL"),
		AMQPExchange:             v.GetString("AMQP_EXCHANGE"),
		KafkaBrokers:             splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:               v.GetString("KAFKA_TOPIC"),
		RateLimit:                v.GetString("RATE_LIMIT"),
		RedisURL:                 v.GetString("REDIS_URL"),
		CORSAllowedOrigins:       splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}
	if cfg.JWTSecret == "" || cfg.JWTSecret == defaultJWTSecret {
		cfg.JWTSecret = defaultJWTSecret // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	if cfg.DBMaxConns <= 0 {
		cfg.DBMaxConns = 10
		log.Printf("Warning: Invalid DB_MAX_CONNS. Defaulting to %d.\n", cfg.DBMaxConns)
	}
	if len(cfg.NotifierDrivers) == 0 {
		cfg.NotifierDrivers = []string{"log"}
	}
	return cfg
}

func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		}
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
