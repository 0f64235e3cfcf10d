package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/online-nursery/internal/cache"
	"github.com/xenking/online-nursery/internal/domain/order"
	"github.com/xenking/online-nursery/internal/events"
	"github.com/xenking/online-nursery/internal/handler"
	"github.com/xenking/online-nursery/pkg/health"
	"github.com/xenking/online-nursery/pkg/httpmiddleware"
)

// ServiceName names the API in logs, traces and metrics.
const ServiceName = "nursery-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage.Backend),
	)

	svc, err := build(ctx, lg, m.TracerProvider(), m.MeterProvider(), cfg)
	if err != nil {
		return err
	}
	defer svc.close()

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Orders.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           svc.handler,
	}

	// Events outlive the request context so orders accepted while draining
	// are still published.
	pubCtx, stopPublisher := context.WithCancel(context.WithoutCancel(ctx))
	defer stopPublisher()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.health.Run(gctx, 10*time.Second)
	})
	if svc.publisher != nil {
		g.Go(func() error {
			return svc.publisher.Run(pubCtx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		svc.health.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		stopPublisher()
		return nil
	})
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		svc.health.SetReady(true)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}

// service is the wired application minus the listener.
type service struct {
	handler   http.Handler
	health    *health.Health
	publisher *events.Publisher
	closers   []func()
}

func (s *service) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func build(
	ctx context.Context,
	lg *zap.Logger,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
	cfg *Config,
) (_ *service, rerr error) {
	svc := &service{health: health.New()}
	defer func() {
		if rerr != nil {
			svc.close()
		}
	}()

	st, err := openStores(ctx, lg, cfg.Storage)
	if err != nil {
		return nil, err
	}
	svc.closers = append(svc.closers, st.close)

	svc.health.Register(health.Readiness, st.name, st.ping, health.CheckOptions{Timeout: 5 * time.Second})
	svc.health.Register(health.Liveness, "goroutines", health.GoroutineCountCheck(10000), health.CheckOptions{Timeout: time.Second})
	svc.health.Register(health.Liveness, "gc-pause", health.GCPauseCheck(time.Second), health.CheckOptions{Timeout: time.Second, FailureThreshold: 3})

	products, categories, inventory := st.products, st.categories, st.inventory
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewClient(ctx, cfg.Redis.Addr)
		if err != nil {
			return nil, errors.Wrap(err, "connect redis")
		}
		svc.closers = append(svc.closers, func() { _ = rdb.Close() })

		products = cache.NewProducts(products, rdb, cfg.Redis.TTL)
		categories = cache.NewCategories(categories, rdb, cfg.Redis.TTL)
		inventory = cache.NewInventory(inventory, rdb)
		svc.health.Register(health.Readiness, "redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}, health.CheckOptions{Timeout: 2 * time.Second, FailureThreshold: 3})
		lg.Info("Product cache enabled", zap.String("redis", cfg.Redis.Addr))
	}

	opts := order.Options{
		RequirePaymentMethod: cfg.Orders.RequirePaymentMethod,
		CompensationTimeout:  cfg.Orders.CompensationTimeout,
		ReservationTimeout:   cfg.Orders.ReservationTimeout,
		Recorder:             st.ledger,
		TracerProvider:       tp,
		MeterProvider:        mp,
	}
	if len(cfg.Kafka.Brokers) > 0 {
		w := events.NewWriter(cfg.Kafka.Brokers)
		svc.publisher = events.NewPublisher(w, cfg.Kafka.OrderTopic, cfg.Kafka.Buffer, lg.Named("events"))
		opts.Events = svc.publisher
		opts.Recorder = events.Recorders{st.ledger, events.NewCompensationRecorder(w, cfg.Kafka.CompensationTopic)}

		broker := cfg.Kafka.Brokers[0]
		svc.health.Register(health.Readiness, "kafka", func(ctx context.Context) error {
			conn, err := kafka.DialContext(ctx, "tcp", broker)
			if err != nil {
				return err
			}
			return conn.Close()
		}, health.CheckOptions{Timeout: 2 * time.Second, FailureThreshold: 3})
		lg.Info("Order events enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}

	orderService, err := order.NewService(inventory, st.orders, opts)
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}

	h := handler.New(
		handler.Config{
			DefaultLimit:   cfg.Products.DefaultLimit,
			MaxLimit:       cfg.Products.MaxLimit,
			RequestTimeout: cfg.Orders.RequestTimeout,
		},
		products,
		categories,
		orderService,
	)

	mux := h.Routes(httpmiddleware.LogRequests(handler.RoutePattern))
	mux.Get("/livez", svc.health.Livez)
	mux.Get("/readyz", svc.health.Readyz)

	svc.handler = httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", httpmiddleware.HeaderRequestID},
			ExposeHeaders:    []string{httpmiddleware.HeaderRequestID},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument(ServiceName, tp, mp),
	)
	return svc, nil
}
