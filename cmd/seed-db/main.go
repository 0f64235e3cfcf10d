package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/online-nursery/internal/domain/product"
	"github.com/xenking/online-nursery/internal/storage/mongodb"
	"github.com/xenking/online-nursery/internal/storage/postgres"
)

type options struct {
	backend       string
	databaseURL   string
	mongoURI      string
	mongoDatabase string
	seedFile      string
}

// productWriter is implemented by both product repositories.
type productWriter interface {
	UpsertProduct(ctx context.Context, p *product.Product) (*product.Product, error)
}

type catalogWriter struct {
	categories interface {
		UpsertCategory(ctx context.Context, c product.Category) error
	}
	products productWriter
}

func main() {
	var opts options

	flag.StringVar(&opts.backend, "backend", "postgres", "storage backend: postgres or mongo")
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.mongoURI, "mongo-uri", "", "MongoDB connection URI (or MONGODB_URI env)")
	flag.StringVar(&opts.mongoDatabase, "mongo-database", "nursery", "MongoDB database name")
	flag.StringVar(&opts.seedFile, "seed-file", "", "path to a .json or .json.gz catalog; the embedded catalog when empty")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.mongoURI == "" {
		opts.mongoURI = os.Getenv("MONGODB_URI")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, opts options) error {
	catalog, err := readCatalog(opts.seedFile)
	if err != nil {
		return err
	}
	slog.Info("catalog loaded",
		slog.Int("categories", len(catalog.Categories)),
		slog.Int("products", len(catalog.Products)),
	)

	w, closeFn, err := open(ctx, opts)
	if err != nil {
		return err
	}
	defer closeFn()

	return seed(ctx, w, catalog)
}

func open(ctx context.Context, opts options) (catalogWriter, func(), error) {
	switch opts.backend {
	case "postgres":
		if opts.databaseURL == "" {
			return catalogWriter{}, nil, errors.New("database URL is required: set --database-url or DATABASE_URL")
		}
		slog.Info("connecting to database")
		pool, err := postgres.NewPool(ctx, opts.databaseURL)
		if err != nil {
			return catalogWriter{}, nil, errors.Wrap(err, "connect to database")
		}
		slog.Info("running migrations")
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return catalogWriter{}, nil, errors.Wrap(err, "run migrations")
		}
		return catalogWriter{
			categories: postgres.NewCategoryRepository(pool),
			products:   postgres.NewProductRepository(pool),
		}, pool.Close, nil
	case "mongo":
		if opts.mongoURI == "" {
			return catalogWriter{}, nil, errors.New("mongo URI is required: set --mongo-uri or MONGODB_URI")
		}
		slog.Info("connecting to mongodb")
		client, err := mongodb.Connect(ctx, opts.mongoURI)
		if err != nil {
			return catalogWriter{}, nil, errors.Wrap(err, "connect to mongodb")
		}
		disconnect := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}
		db := client.Database(opts.mongoDatabase)
		slog.Info("ensuring indexes")
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			disconnect()
			return catalogWriter{}, nil, errors.Wrap(err, "ensure indexes")
		}
		return catalogWriter{
			categories: mongodb.NewCategoryRepository(db),
			products:   mongodb.NewProductRepository(db),
		}, disconnect, nil
	default:
		return catalogWriter{}, nil, errors.Errorf("unknown backend %q", opts.backend)
	}
}

// seed upserts categories first so products never reference a missing one,
// then products in parallel.
func seed(ctx context.Context, w catalogWriter, c *catalog) error {
	for _, cat := range c.Categories {
		if err := w.categories.UpsertCategory(ctx, cat); err != nil {
			return errors.Wrapf(err, "upsert category %s", cat.Name)
		}
		slog.Info("upserted category", slog.String("name", cat.Name))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range c.Products {
		p := &c.Products[i]
		g.Go(func() error {
			stored, err := w.products.UpsertProduct(ctx, p)
			if err != nil {
				return errors.Wrapf(err, "upsert product %s", p.Name)
			}
			slog.Info("upserted product",
				slog.String("id", stored.ID),
				slog.String("name", stored.Name),
				slog.Int("quantity", stored.Quantity),
			)
			return nil
		})
	}
	return g.Wait()
}
