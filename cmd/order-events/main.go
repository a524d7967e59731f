package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/factory-orders/internal/config"
	"github.com/ariefcatur/factory-orders/internal/inventory"
	kafkax "github.com/ariefcatur/factory-orders/internal/kafka"
	"github.com/ariefcatur/factory-orders/internal/logging"
	"github.com/ariefcatur/factory-orders/internal/orders"
	"github.com/ariefcatur/factory-orders/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	name := cfg.ServiceName + "-order-events"
	logger := logging.Setup(name, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	svc := inventory.NewService(redisx.NewCache(rdb), cfg.LowStockThreshold, name)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.EventsGroup, orders.TopicOrderEvents, cfg.EventsWorkers)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("group", cfg.EventsGroup).Str("topic", orders.TopicOrderEvents).
			Int("workers", cfg.EventsWorkers).Msg("consumer started")
		return cons.Start(gctx, svc.HandleOrderEvent)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "metrics listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("consumer exited")
		os.Exit(1)
	}
	logger.Info().Msg("consumer stopped")
}

