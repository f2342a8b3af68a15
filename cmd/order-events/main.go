package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-inventory-orders/internal/config"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/obs"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/projection"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	name := cfg.ServiceName + "-events"
	otelCfg := obs.OTelConfig{
		ServiceName:    name,
		ServiceVersion: config.ServiceVersion,
		Endpoint:       cfg.OtelEndpoint,
		AuthHeader:     cfg.OtelAuthHeader,
	}
	otelShutdown, otelErr := obs.Setup(ctx, otelCfg)
	log := obs.NewLogger(name, cfg.LogLevel, otelCfg.Enabled() && otelErr == nil)
	defer func() { _ = log.Sync() }()
	if otelErr != nil {
		log.Error("otel setup", zap.Error(otelErr))
	}
	if len(cfg.KafkaBrokers) == 0 || cfg.RedisAddr == "" {
		log.Fatal("order-events needs KAFKA_BROKERS and REDIS_ADDR")
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	proj := &projection.StatusProjector{
		Cache:   &redisx.StatusCache{R: rdb},
		Service: name,
		Log:     log.Named("projection"),
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.EventsGroup, orders.Topics, cfg.EventsWorkers, log.Named("kafka"))
	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("order events consumer started",
			zap.String("group", cfg.EventsGroup), zap.Strings("topics", orders.Topics), zap.Int("workers", cfg.EventsWorkers))
		if err := cons.Start(ctx, proj.HandleMessage); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down consumer...")
	cancel()
	<-done
	if err := otelShutdown(context.Background()); err != nil {
		log.Warn("otel shutdown", zap.Error(err))
	}
}
