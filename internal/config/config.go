package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "STOREFRONT"

type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	HTTPPort           string        `envconfig:"HTTP_PORT" default:"8080"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	MaxRequestBodySize int64         `envconfig:"MAX_REQUEST_BODY_SIZE" default:"1048576"`
	RateLimitPerSecond float64       `envconfig:"RATE_LIMIT_RPS" default:"20"`
	RateLimitBurst     int           `envconfig:"RATE_LIMIT_BURST" default:"40"`

	GRPCPort       string        `envconfig:"GRPC_PORT" default:"50051"`
	HealthInterval time.Duration `envconfig:"HEALTH_INTERVAL" default:"15s"`

	GameStoreAPIURL  string        `envconfig:"GAME_STORE_API_URL" default:"http://localhost:5000/api"`
	GameStoreTimeout time.Duration `envconfig:"GAME_STORE_TIMEOUT" default:"10s"`

	// memory, redis, mongo or sqlite
	Storage        string        `envconfig:"STORAGE" default:"memory"`
	DraftTTL       time.Duration `envconfig:"DRAFT_TTL" default:"720h"`
	RedisAddr      string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD"`
	RedisDB        int           `envconfig:"REDIS_DB" default:"0"`
	MongoURI       string        `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDBName    string        `envconfig:"MONGO_DB_NAME" default:"storefront"`
	SQLitePath     string        `envconfig:"SQLITE_PATH" default:"storefront.db"`
	MigrationsPath string        `envconfig:"MIGRATIONS_PATH" default:"./internal/kv/migrations"`

	// merge keeps local wishlist drafts on login, server replaces them
	WishlistMergePolicy  string        `envconfig:"WISHLIST_MERGE_POLICY" default:"merge"`
	WishlistFetchTimeout time.Duration `envconfig:"WISHLIST_FETCH_TIMEOUT" default:"15s"`

	SessionIdle          time.Duration `envconfig:"SESSION_IDLE" default:"30m"`
	SessionSweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"1m"`

	SearchDebounce   time.Duration `envconfig:"SEARCH_DEBOUNCE" default:"250ms"`
	PromotionsMaxAge time.Duration `envconfig:"PROMOTIONS_MAX_AGE" default:"5m"`

	KafkaBrokers       []string `envconfig:"KAFKA_BROKERS"`
	OrdersTopic        string   `envconfig:"ORDERS_TOPIC" default:"storefront-orders"`
	CheckoutTopic      string   `envconfig:"CHECKOUT_TOPIC" default:"checkout-outbox"`
	CheckoutConsumerID string   `envconfig:"CHECKOUT_CONSUMER_GROUP" default:"storefront-consumer"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case "memory", "redis", "mongo", "sqlite":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}
	switch c.WishlistMergePolicy {
	case "merge", "server":
	default:
		return fmt.Errorf("unknown wishlist merge policy %q", c.WishlistMergePolicy)
	}
	if c.GameStoreAPIURL == "" {
		return fmt.Errorf("game store api url is required")
	}
	return nil
}
