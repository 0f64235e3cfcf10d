package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/xenking/online-nursery/internal/domain/order"
	"github.com/xenking/online-nursery/internal/domain/product"
	"github.com/xenking/online-nursery/internal/storage/mongodb"
	"github.com/xenking/online-nursery/internal/storage/postgres"
	"github.com/xenking/online-nursery/pkg/health"
)

// stores is the set of repositories backed by the configured primary
// database.
type stores struct {
	name       string
	products   product.Repository
	categories product.CategoryRepository
	inventory  order.InventoryStore
	orders     order.OrderLog
	ledger     order.CompensationRecorder
	ping       health.CheckFunc
	close      func()
}

func openStores(ctx context.Context, lg *zap.Logger, cfg StorageConfig) (*stores, error) {
	switch cfg.Backend {
	case BackendMongo:
		return openMongo(ctx, lg, cfg)
	default:
		return openPostgres(ctx, lg, cfg)
	}
}

func openPostgres(ctx context.Context, lg *zap.Logger, cfg StorageConfig) (*stores, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	lg.Info("Using PostgreSQL store")

	products := postgres.NewProductRepository(pool)
	return &stores{
		name:       BackendPostgres,
		products:   products,
		categories: postgres.NewCategoryRepository(pool),
		inventory:  postgres.NewInventoryStore(pool),
		orders:     postgres.NewOrderLog(pool),
		ledger:     postgres.NewCompensationLedger(pool),
		ping:       health.PingCheck(pool),
		close:      pool.Close,
	}, nil
}

func openMongo(ctx context.Context, lg *zap.Logger, cfg StorageConfig) (*stores, error) {
	client, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, errors.Wrap(err, "connect mongodb")
	}
	disconnect := func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			lg.Warn("MongoDB disconnect failed", zap.Error(err))
		}
	}

	db := client.Database(cfg.MongoDatabase)
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		disconnect()
		return nil, errors.Wrap(err, "ensure indexes")
	}
	lg.Info("Using MongoDB store", zap.String("database", cfg.MongoDatabase))

	return &stores{
		name:       BackendMongo,
		products:   mongodb.NewProductRepository(db),
		categories: mongodb.NewCategoryRepository(db),
		inventory:  mongodb.NewInventoryStore(db),
		orders:     mongodb.NewOrderLog(db),
		ledger:     mongodb.NewCompensationLedger(db),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: disconnect,
	}, nil
}
