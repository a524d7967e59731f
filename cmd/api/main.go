package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/factory-orders/internal/auth"
	"github.com/ariefcatur/factory-orders/internal/catalog"
	"github.com/ariefcatur/factory-orders/internal/config"
	"github.com/ariefcatur/factory-orders/internal/docstore"
	"github.com/ariefcatur/factory-orders/internal/httpx"
	kafkax "github.com/ariefcatur/factory-orders/internal/kafka"
	"github.com/ariefcatur/factory-orders/internal/logging"
	"github.com/ariefcatur/factory-orders/internal/orders"
	"github.com/ariefcatur/factory-orders/internal/postgres"
	"github.com/ariefcatur/factory-orders/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.Setup(cfg.ServiceName, cfg.LogLevel)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	// Store
	var store docstore.Store
	switch cfg.Store {
	case "memory":
		store = docstore.NewMemory()
		logger.Warn().Msg("using in-memory store; data is lost on exit")
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("db connect")
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Fatal().Err(err).Msg("db migrate")
		}
		store = postgres.NewDocStore(db)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	var cache *redisx.Cache
	if err := redisx.Ping(ctx, rdb); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable; caching disabled")
	} else {
		cache = redisx.NewCache(rdb)
	}

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderEvents, 1024)
	prod.Start(ctx)

	h := &httpx.Handler{
		Auth:    auth.NewService(store, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)),
		Catalog: catalog.NewService(store),
		Orders:  orders.NewService(store, prod, cfg.ServiceName),
		Cache:   cache,
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpx.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.Store).Msg("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	err := g.Wait()

	// Publishes from handlers that outlive a Shutdown timeout are dropped.
	prod.Close()
	prod.WaitClosed()
	if err != nil {
		logger.Error().Err(err).Msg("api exited")
		os.Exit(1)
	}
}
