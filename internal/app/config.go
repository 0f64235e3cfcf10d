package app

import (
	"io/fs"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Config holds the complete application configuration, loadable from
// environment variables (NURSERY_ prefix), flags, a .env file or YAML config
// files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Storage   StorageConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Orders    OrdersConfig
	Products  ProductsConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// StorageConfig selects and addresses the primary store.
type StorageConfig struct {
	Backend       string `default:"postgres" usage:"Storage backend: postgres or mongo"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (or DATABASE_URL)" flag:"database-url"`
	MongoURI      string `usage:"MongoDB connection URI (or MONGODB_URI)" flag:"mongo-uri"`
	MongoDatabase string `default:"nursery" usage:"MongoDB database name"`
}

// RedisConfig enables the product cache when Addr is set.
type RedisConfig struct {
	Addr string        `usage:"Redis address for the product cache; empty disables caching"`
	TTL  time.Duration `default:"5m" usage:"Cache entry lifetime"`
}

// KafkaConfig enables event publishing when Brokers is set.
type KafkaConfig struct {
	Brokers           []string `usage:"Kafka brokers; empty disables events"`
	OrderTopic        string   `default:"nursery.orders.placed" usage:"Topic for placed orders"`
	CompensationTopic string   `default:"nursery.inventory.compensation-failed" usage:"Topic for failed stock compensations"`
	Buffer            int      `default:"1024" usage:"Pending order events held in memory"`
}

// OrdersConfig tunes order placement.
type OrdersConfig struct {
	RequirePaymentMethod bool          `default:"false" usage:"Reject orders without a payment method"`
	CompensationTimeout  time.Duration `default:"5s" usage:"Deadline for returning reserved stock of a rejected order"`
	ReservationTimeout   time.Duration `default:"5s" usage:"Deadline for each stock decrement"`
	RequestTimeout       time.Duration `default:"10s" usage:"Per-request handler deadline"`
}

// ProductsConfig controls catalog paging.
type ProductsConfig struct {
	DefaultLimit int `default:"8" usage:"Default page size"`
	MaxLimit     int `default:"100" usage:"Largest accepted page size"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	RPS   float64 `default:"20" usage:"Sustained requests per second per client"`
	Burst int     `default:"40" usage:"Burst size per client"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from .env, environment variables, flags
// and YAML config files, then applies platform defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "NURSERY",
		Args:      args,
		Files:     []string{"config.yaml", "/etc/nursery/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided variables such as
// DATABASE_URL, MONGODB_URI and PORT onto the NURSERY_ configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Storage.DatabaseURL == "" {
		c.Storage.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Storage.MongoURI == "" {
		c.Storage.MongoURI = os.Getenv("MONGODB_URI")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

// Summary describes the enabled features as log fields. Secrets such as
// connection URLs are left out.
func (c *Config) Summary() []zap.Field {
	return []zap.Field{
		zap.String("addr", c.Addr),
		zap.String("storage", c.Storage.Backend),
		zap.Bool("cache", c.Redis.Addr != ""),
		zap.Bool("events", len(c.Kafka.Brokers) > 0),
		zap.Bool("payment_method_required", c.Orders.RequirePaymentMethod),
	}
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database URL is required: set NURSERY_STORAGE_DATABASE_URL or DATABASE_URL")
		}
	case BackendMongo:
		if c.Storage.MongoURI == "" {
			return errors.New("mongo URI is required: set NURSERY_STORAGE_MONGO_URI or MONGODB_URI")
		}
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.Errorf("rate limit needs positive rps and burst, got %v and %d", c.RateLimit.RPS, c.RateLimit.Burst)
	}
	if c.Products.DefaultLimit > c.Products.MaxLimit {
		return errors.Errorf("default page size %d exceeds max %d", c.Products.DefaultLimit, c.Products.MaxLimit)
	}
	return nil
}
