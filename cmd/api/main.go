package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/checkout"
	"github.com/ariefcatur/go-inventory-orders/internal/config"
	"github.com/ariefcatur/go-inventory-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-inventory-orders/internal/kafka"
	"github.com/ariefcatur/go-inventory-orders/internal/memstore"
	"github.com/ariefcatur/go-inventory-orders/internal/obs"
	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/postgres"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otelCfg := obs.OTelConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: config.ServiceVersion,
		Endpoint:       cfg.OtelEndpoint,
		AuthHeader:     cfg.OtelAuthHeader,
	}
	otelShutdown, otelErr := obs.Setup(ctx, otelCfg)
	log := obs.NewLogger(cfg.ServiceName, cfg.LogLevel, otelCfg.Enabled() && otelErr == nil)
	defer func() { _ = log.Sync() }()
	if otelErr != nil {
		log.Error("otel setup", zap.Error(otelErr))
	}

	// Store
	var store orders.Store
	switch cfg.StoreDriver {
	case "memory":
		store = memstore.New(memstore.WithLockTimeout(cfg.LockTimeout))
		log.Warn("using in-memory store; data is lost on restart")
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.Options{
			MaxConns:    cfg.PostgresMaxConns,
			LockTimeout: cfg.LockTimeout,
		})
		if err != nil {
			log.Fatal("db connect", zap.Error(err))
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatal("db migrate", zap.Error(err))
		}
		store = &postgres.Store{DB: db}
	}

	opts := []checkout.Option{
		checkout.WithLogger(log.Named("checkout")),
		checkout.WithProducer(cfg.ServiceName),
		checkout.WithTxTimeout(cfg.TxTimeout),
		checkout.WithRetries(cfg.TxRetries),
	}

	// Kafka producer
	var prod *kafkax.Producer
	if len(cfg.KafkaBrokers) > 0 {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, 1024, log.Named("kafka"))
		prod.Start(ctx)
		opts = append(opts, checkout.WithPublisher(prod))
	}
	svc := checkout.NewService(store, opts...)

	router := httpx.NewRouter(log.Named("http"))
	oh := &httpx.OrdersHandler{Orders: svc, Log: log.Named("orders")}
	ph := &httpx.ProductsHandler{Catalog: svc, Log: log.Named("products")}

	// Redis
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := redisx.Ping(ctx, rdb); err != nil {
			log.Warn("redis unreachable; cache and idempotency will degrade", zap.Error(err))
		}
		oh.Cache = &redisx.StatusCache{R: rdb}
		oh.Idem = &redisx.Idempotency{R: rdb}
	}
	oh.Register(router)
	ph.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if prod != nil {
		prod.Close()      // tutup inbox -> flush & close writer
		prod.WaitClosed() // drain
	}
	if err := otelShutdown(ctx2); err != nil {
		log.Warn("otel shutdown", zap.Error(err))
	}
}
