package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr        string
	DatabaseURL string

	// OrderStore selects the order backend: "file", "postgres" or "memory".
	OrderStore string
	OrdersFile string

	// CartStore selects the cart backend: "memory" or "redis".
	CartStore    string
	RedisAddr    string
	CartTTL      time.Duration
	MaxCartItems int

	MenuFile string

	KafkaBrokers []string
	KafkaTopic   string

	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string

	LogLevel       string
	TracingEnabled bool
}

// Load reads configuration from environment variables. Unset keys fall back
// to defaults; malformed numbers and durations are reported.
func Load() (Config, error) {
	cfg := Config{
		Addr:              getEnv("CAFE_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		OrderStore:        getEnv("ORDER_STORE", "file"),
		OrdersFile:        getEnv("ORDERS_FILE", "orders.json"),
		CartStore:         getEnv("CART_STORE", "memory"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		CartTTL:           time.Hour,
		MaxCartItems:      50,
		MenuFile:          os.Getenv("MENU_FILE"),
		KafkaBrokers:      splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "orders.placed"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	if v := os.Getenv("CART_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("CART_TTL: %w", err)
		}
		cfg.CartTTL = d
	}
	if v := os.Getenv("MAX_CART_ITEMS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("MAX_CART_ITEMS: %w", err)
		}
		if n <= 0 {
			return Config{}, fmt.Errorf("MAX_CART_ITEMS must be positive, got %d", n)
		}
		cfg.MaxCartItems = n
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("TRACING_ENABLED: %w", err)
		}
		cfg.TracingEnabled = b
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks backend selections. It is run again after command-line
// overrides are applied.
func (c Config) Validate() error {
	switch c.OrderStore {
	case "file", "postgres", "memory":
	default:
		return fmt.Errorf("ORDER_STORE: unknown backend %q", c.OrderStore)
	}
	switch c.CartStore {
	case "memory", "redis":
	default:
		return fmt.Errorf("CART_STORE: unknown backend %q", c.CartStore)
	}
	if c.OrderStore == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when ORDER_STORE=postgres")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
