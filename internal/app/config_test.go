package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("NURSERY_STORAGE_DATABASE_URL", "postgres://localhost/nursery")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, "postgres://localhost/nursery", cfg.Storage.DatabaseURL)
	assert.Equal(t, 5*time.Second, cfg.Orders.CompensationTimeout)
	assert.Equal(t, 5*time.Second, cfg.Orders.ReservationTimeout)
	assert.Equal(t, 20.0, cfg.RateLimit.RPS)
	assert.False(t, cfg.Orders.RequirePaymentMethod)
	assert.Equal(t, 8, cfg.Products.DefaultLimit)
	assert.Equal(t, 100, cfg.Products.MaxLimit)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9090")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, "postgres://platform/db", cfg.Storage.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
}

func TestLoadConfig_Mongo(t *testing.T) {
	t.Setenv("NURSERY_STORAGE_BACKEND", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("NURSERY_ORDERS_REQUIRE_PAYMENT_METHOD", "true")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Storage.MongoURI)
	assert.Equal(t, "nursery", cfg.Storage.MongoDatabase)
	assert.True(t, cfg.Orders.RequirePaymentMethod)
}

func TestConfig_Validate(t *testing.T) {
	base := Config{
		Storage:   StorageConfig{Backend: BackendPostgres, DatabaseURL: "postgres://x"},
		Products:  ProductsConfig{DefaultLimit: 8, MaxLimit: 100},
		RateLimit: RateLimitConfig{RPS: 20, Burst: 40},
	}
	require.NoError(t, base.validate())

	noURL := base
	noURL.Storage.DatabaseURL = ""
	assert.ErrorContains(t, noURL.validate(), "database URL is required")

	noMongo := base
	noMongo.Storage.Backend = BackendMongo
	assert.ErrorContains(t, noMongo.validate(), "mongo URI is required")

	unknown := base
	unknown.Storage.Backend = "sqlite"
	assert.ErrorContains(t, unknown.validate(), "unknown storage backend")

	noRate := base
	noRate.RateLimit.RPS = 0
	assert.ErrorContains(t, noRate.validate(), "rate limit")

	noBurst := base
	noBurst.RateLimit.Burst = -1
	assert.ErrorContains(t, noBurst.validate(), "rate limit")

	limits := base
	limits.Products.DefaultLimit = 200
	assert.Error(t, limits.validate())
}

func TestConfig_Summary(t *testing.T) {
	cfg := Config{
		Addr:    "0.0.0.0:8080",
		Storage: StorageConfig{Backend: BackendMongo, MongoURI: "mongodb://user:secret@db"},
		Kafka:   KafkaConfig{Brokers: []string{"kafka:9092"}},
	}

	core, logs := observer.New(zap.InfoLevel)
	zap.New(core).Info("Configuration loaded", cfg.Summary()...)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "mongo", fields["storage"])
	assert.Equal(t, false, fields["cache"])
	assert.Equal(t, true, fields["events"])
	for _, v := range fields {
		if s, ok := v.(string); ok {
			assert.NotContains(t, s, "secret")
		}
	}
}
