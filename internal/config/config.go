package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// User directory backends.
const (
	DirectoryPostgres = "postgres"
	DirectoryGRPC     = "grpc"
)

// Fan-out modes.
const (
	FanoutLocal  = "local"
	FanoutBroker = "broker"
)

// Read receipt scopes.
const (
	ReceiptScopePage = "page"
	ReceiptScopeAll  = "all"
)

type Config struct {
	Port        string
	ServiceName string
	Environment string
	DebugRoutes bool

	ChatStore     string
	MongoURI      string
	MongoDatabase string
	DatabaseDSN   string
	RunMigrations bool

	UserDirectory string
	AuthGRPCAddr  string
	UserGRPCAddr  string
	JWTSecret     string

	AMQPURL      string
	AMQPExchange string
	FanoutMode   string

	ReadReceiptScope string

	WSHandshakeTimeout time.Duration
	WSSendRatePerSec   float64
	WSSendBurst        int
	WSAllowedOrigins   []string

	OTLPEndpoint string
}

// Load reads an optional .env file and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8083"),
		ServiceName: getEnv("SERVICE_NAME", "marketplace-chat"),
		Environment: getEnv("APP_ENV", "development"),
		DebugRoutes: getEnvAsBool("DEBUG_ROUTES", false),

		ChatStore:     strings.ToLower(getEnv("CHAT_STORE", StoreMongo)),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "chat_db"),
		DatabaseDSN:   os.Getenv("DB_DSN"),
		RunMigrations: getEnvAsBool("DB_MIGRATE", true),

		UserDirectory: strings.ToLower(getEnv("USER_DIRECTORY", DirectoryPostgres)),
		AuthGRPCAddr:  os.Getenv("AUTH_GRPC_ADDR"),
		UserGRPCAddr:  os.Getenv("USER_GRPC_ADDR"),
		JWTSecret:     os.Getenv("JWT_SECRET"),

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "chat.events"),
		FanoutMode:   strings.ToLower(getEnv("FANOUT_MODE", FanoutLocal)),

		ReadReceiptScope: strings.ToLower(getEnv("READ_RECEIPT_SCOPE", ReceiptScopePage)),

		WSHandshakeTimeout: getEnvAsDuration("WS_HANDSHAKE_TIMEOUT", 10*time.Second),
		WSSendRatePerSec:   getEnvAsFloat("WS_SEND_RATE_PER_SEC", 5),
		WSSendBurst:        getEnvAsInt("WS_SEND_BURST", 10),
		WSAllowedOrigins:   splitList(os.Getenv("WS_ALLOWED_ORIGINS")),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enum values and the settings each backend depends on.
func (c *Config) Validate() error {
	switch c.ChatStore {
	case StoreMongo, StorePostgres, StoreMemory:
	default:
		return fmt.Errorf("CHAT_STORE %q is not one of mongo, postgres, memory", c.ChatStore)
	}
	switch c.UserDirectory {
	case DirectoryPostgres, DirectoryGRPC:
	default:
		return fmt.Errorf("USER_DIRECTORY %q is not one of postgres, grpc", c.UserDirectory)
	}
	switch c.FanoutMode {
	case FanoutLocal, FanoutBroker:
	default:
		return fmt.Errorf("FANOUT_MODE %q is not one of local, broker", c.FanoutMode)
	}
	switch c.ReadReceiptScope {
	case ReceiptScopePage, ReceiptScopeAll:
	default:
		return fmt.Errorf("READ_RECEIPT_SCOPE %q is not one of page, all", c.ReadReceiptScope)
	}

	if c.AuthGRPCAddr == "" && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required when AUTH_GRPC_ADDR is not set")
	}
	if (c.ChatStore == StorePostgres || c.UserDirectory == DirectoryPostgres) && c.DatabaseDSN == "" {
		return errors.New("DB_DSN is required for the postgres store or user directory")
	}
	if c.UserDirectory == DirectoryGRPC && c.UserGRPCAddr == "" {
		return errors.New("USER_GRPC_ADDR is required for the grpc user directory")
	}
	if c.FanoutMode == FanoutBroker && c.AMQPURL == "" {
		return errors.New("AMQP_URL is required for broker fan-out")
	}
	if c.WSSendRatePerSec <= 0 || c.WSSendBurst <= 0 {
		return errors.New("WS_SEND_RATE_PER_SEC and WS_SEND_BURST must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
