package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/gamestore"
	"github.com/fjod/go_cart/storefront/internal/health"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/kv"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/remote"
	"github.com/fjod/go_cart/storefront/internal/search"
	"github.com/fjod/go_cart/storefront/internal/store"
)

func main() {
	app := &cli.App{
		Name:  "storefront",
		Usage: "cart, wishlist and order state for the game store",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "port", Usage: "overrides STOREFRONT_HTTP_PORT"},
					&cli.StringFlag{Name: "storage", Usage: "overrides STOREFRONT_STORAGE (memory, redis, mongo, sqlite)"},
				},
			},
			{
				Name:   "migrate",
				Usage:  "apply sqlite migrations and exit",
				Action: migrate,
			},
		},
		DefaultCommand: "serve",
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("storefront exited", "error", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if port := c.String("port"); port != "" {
		cfg.HTTPPort = port
	}
	if storage := c.String("storage"); storage != "" {
		cfg.Storage = storage
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	log := logger.New(logger.Options{Service: "storefront", Env: cfg.AppEnv, Level: cfg.LogLevel, AddSource: true})
	return cfg, log, nil
}

func migrate(c *cli.Context) error {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}
	s, err := kv.NewSQLiteStore(cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.RunMigrations(cfg.MigrationsPath); err != nil {
		return err
	}
	log.Info("migrations applied", "path", cfg.SQLitePath)
	return nil
}

func serve(c *cli.Context) error {
	cfg, log, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := c.Context

	storage, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()
	log.Info("draft storage ready", "backend", cfg.Storage)

	client := gamestore.NewClient(gamestore.Config{
		BaseURL: cfg.GameStoreAPIURL,
		Timeout: cfg.GameStoreTimeout,
	})

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.OrdersTopic, cfg.KafkaBrokers...)
	}
	defer publisher.Close()

	registry := store.NewRegistry(store.Deps{
		Storage:      storage,
		Backend:      client,
		Publisher:    publisher,
		MergePolicy:  remote.MergePolicy(cfg.WishlistMergePolicy),
		FetchTimeout: cfg.WishlistFetchTimeout,
	})
	defer registry.Close()

	suggester := search.NewSuggester(client, search.Options{
		Debounce:         cfg.SearchDebounce,
		PromotionsMaxAge: cfg.PromotionsMaxAge,
	})
	limiter := h.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}, h.Handlers{
		Session:  h.NewSessionHandler(registry, cfg.RequestTimeout),
		Cart:     h.NewCartHandler(registry),
		Wishlist: h.NewWishlistHandler(registry),
		Orders:   h.NewOrdersHandler(registry),
		Search:   h.NewSearchHandler(suggester, cfg.RequestTimeout),
		Report:   h.NewReportHandler(registry, client, cfg.RequestTimeout),
	}, limiter)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	monitor := health.NewMonitor(storage, 2*time.Second)
	grpcServer := health.NewServer(monitor)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen on grpc port: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("grpc health starting", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc serve error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		monitor.Run(ctx, cfg.HealthInterval)
		grpcServer.GracefulStop()
		return nil
	})

	g.Go(func() error {
		log.Info("storefront starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		registry.RunSweeper(ctx, cfg.SessionSweepInterval, cfg.SessionIdle)
		return nil
	})

	g.Go(func() error {
		limiter.RunCleanup(ctx, cfg.SessionSweepInterval, cfg.SessionIdle)
		return nil
	})

	if len(cfg.KafkaBrokers) > 0 {
		poller := events.NewPoller(registry, cfg.CheckoutTopic, cfg.CheckoutConsumerID, cfg.KafkaBrokers...)
		g.Go(func() error {
			defer poller.Close()
			poller.Run(ctx)
			return nil
		})
	}

	err = g.Wait()
	log.Info("server exited")
	return err
}

// openStorage selects the draft persistence backend.
func openStorage(ctx context.Context, cfg *config.Config) (kv.Store, func(), error) {
	switch cfg.Storage {
	case "redis":
		client, err := kv.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return kv.NewRedisStore(client, cfg.DraftTTL), func() { client.Close() }, nil

	case "mongo":
		db, err := kv.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		s, err := kv.OpenMongoStore(ctx, db, cfg.DraftTTL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.Close(closeCtx); err != nil {
				slog.Error("failed to disconnect mongo", "error", err)
			}
		}, nil

	case "sqlite":
		s, err := kv.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := s.RunMigrations(cfg.MigrationsPath); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	default:
		return kv.NewMemoryStore(), func() {}, nil
	}
}
