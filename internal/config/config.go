package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var v = newViper()

func newViper() *viper.Viper {
	vp := viper.New()
	vp.AutomaticEnv()

	vp.SetDefault("ENV", "development")
	vp.SetDefault("DEFAULT_CURRENCY", "SOL")
	vp.SetDefault("CORS_ORIGINS", "http://localhost:5173")

	vp.SetDefault("DB_DRIVER", "postgres")
	vp.SetDefault("DB_HOST", "localhost")
	vp.SetDefault("DB_PORT", "5432")
	vp.SetDefault("DB_USER", "postgres")
	vp.SetDefault("DB_NAME", "wallet")
	vp.SetDefault("DB_SSLMODE", "disable")
	vp.SetDefault("DB_MAX_IDLE_CONNS", 10)
	vp.SetDefault("DB_MAX_OPEN_CONNS", 100)
	vp.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)
	vp.SetDefault("DB_CONN_MAX_IDLE_TIME", 10*time.Minute)

	vp.SetDefault("REDIS_ENABLED", true)
	vp.SetDefault("REDIS_HOST", "localhost")
	vp.SetDefault("REDIS_PORT", "6379")
	vp.SetDefault("REDIS_DB", 0)
	vp.SetDefault("REDIS_POOL_SIZE", 10)

	vp.SetDefault("IDEMPOTENCY_PROCESSING_TTL", time.Hour)
	vp.SetDefault("IDEMPOTENCY_RESULT_TTL", 24*time.Hour)

	vp.SetDefault("KAFKA_HISTORY_TOPIC", "history_queue")
	vp.SetDefault("NOTIFY_TIMEOUT", 5*time.Second)

	vp.SetDefault("LEDGER_SERVICE_URL", "http://localhost:8080/api/v1")
	vp.SetDefault("LEDGER_TIMEOUT", 5*time.Second)
	vp.SetDefault("USER_SERVICE_URL", "")
	vp.SetDefault("USER_SERVICE_TIMEOUT", 3*time.Second)
	vp.SetDefault("CENTRAL_API_URL", "")
	vp.SetDefault("CENTRAL_TIMEOUT", 10*time.Second)
	return vp
}

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val := v.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if v.GetString(key) == "" {
		return defaultVal
	}
	return v.GetInt(key)
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}

type DBConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	PoolSize int
}

type IdempotencyConfig struct {
	ProcessingTTL time.Duration
	ResultTTL     time.Duration
}

type KafkaConfig struct {
	Brokers      []string
	HistoryTopic string
}

// ServicesConfig holds the addresses of the collaborators reached over HTTP.
type ServicesConfig struct {
	LedgerURL          string
	LedgerTimeout      time.Duration
	UserServiceURL     string
	UserTimeout        time.Duration
	CentralAPIURL      string
	CentralTimeout     time.Duration
	CentralWalletToken string
}

type AuthConfig struct {
	JWTSecret      string
	B2BSecretToken string
}

// Config is the full runtime configuration of either service.
type Config struct {
	Env             string
	Port            string
	DefaultCurrency string
	CORSOrigins     string
	NotifyTimeout   time.Duration

	DB          DBConfig
	Redis       RedisConfig
	Idempotency IdempotencyConfig
	Kafka       KafkaConfig
	Services    ServicesConfig
	Auth        AuthConfig
}

// Load reads the configuration from the environment. defaultPort is used
// when PORT is unset, so each service can keep its own conventional port.
func Load(defaultPort string) *Config {
	return &Config{
		Env:             v.GetString("ENV"),
		Port:            GetEnv("PORT", defaultPort),
		DefaultCurrency: strings.ToUpper(v.GetString("DEFAULT_CURRENCY")),
		CORSOrigins:     v.GetString("CORS_ORIGINS"),
		NotifyTimeout:   v.GetDuration("NOTIFY_TIMEOUT"),
		DB: DBConfig{
			Driver:          v.GetString("DB_DRIVER"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			PoolSize: v.GetInt("REDIS_POOL_SIZE"),
		},
		Idempotency: IdempotencyConfig{
			ProcessingTTL: v.GetDuration("IDEMPOTENCY_PROCESSING_TTL"),
			ResultTTL:     v.GetDuration("IDEMPOTENCY_RESULT_TTL"),
		},
		Kafka: KafkaConfig{
			Brokers:      splitList(v.GetString("KAFKA_BROKERS")),
			HistoryTopic: v.GetString("KAFKA_HISTORY_TOPIC"),
		},
		Services: ServicesConfig{
			LedgerURL:          strings.TrimRight(v.GetString("LEDGER_SERVICE_URL"), "/"),
			LedgerTimeout:      v.GetDuration("LEDGER_TIMEOUT"),
			UserServiceURL:     strings.TrimRight(v.GetString("USER_SERVICE_URL"), "/"),
			UserTimeout:        v.GetDuration("USER_SERVICE_TIMEOUT"),
			CentralAPIURL:      strings.TrimRight(v.GetString("CENTRAL_API_URL"), "/"),
			CentralTimeout:     v.GetDuration("CENTRAL_TIMEOUT"),
			CentralWalletToken: v.GetString("CENTRAL_WALLET_TOKEN"),
		},
		Auth: AuthConfig{
			JWTSecret:      v.GetString("JWT_SECRET"),
			B2BSecretToken: v.GetString("B2B_SECRET_TOKEN"),
		},
	}
}

// IsProduction reports whether this configuration targets production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
