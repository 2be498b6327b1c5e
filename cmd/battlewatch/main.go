package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/whisper/battlewatch/internal/config"
	"github.com/whisper/battlewatch/internal/directory"
	"github.com/whisper/battlewatch/internal/dispatch"
	"github.com/whisper/battlewatch/internal/enrich"
	"github.com/whisper/battlewatch/internal/feed"
	"github.com/whisper/battlewatch/internal/messaging"
	"github.com/whisper/battlewatch/internal/monitor"
	"github.com/whisper/battlewatch/internal/recipients"
	"github.com/whisper/battlewatch/internal/seen"
	"github.com/whisper/battlewatch/internal/server"
	"github.com/whisper/battlewatch/internal/telegram"
	"github.com/whisper/battlewatch/internal/telemetry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("battlewatch failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	logger.Info("starting battlewatch",
		zap.String("version", version),
		zap.String("feed_endpoint", cfg.FeedEndpoint),
		zap.Duration("poll_interval", cfg.PollInterval),
		zap.String("seen_backend", cfg.SeenBackend),
		zap.Bool("nats_enabled", cfg.NATSURL != ""),
	)

	ctx := context.Background()
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.TracingConfig{
		ServiceName:    "battlewatch",
		ServiceVersion: version,
		Endpoint:       cfg.OTelEndpoint,
		SampleRatio:    cfg.OTelSample,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	// Subscriber directory.
	if cfg.AutoMigrate {
		if err := directory.Migrate(cfg.DirectoryDSN); err != nil {
			return err
		}
	}
	dir, err := directory.Open(ctx, cfg.DirectoryDSN)
	if err != nil {
		return err
	}
	defer dir.Close()

	// Seen store.
	var store seen.Store
	switch cfg.SeenBackend {
	case config.SeenRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		defer rdb.Close()
		store = seen.NewRedisStore(rdb, cfg.SeenTTL)
	default:
		store = seen.NewMemoryStore(seen.WithTTL(cfg.SeenTTL))
	}

	// Optional event publishing.
	var nc *messaging.NATSClient
	if cfg.NATSURL != "" {
		natsConfig := messaging.DefaultNATSConfig()
		natsConfig.URL = cfg.NATSURL
		nc, err = messaging.NewNATSClient(natsConfig, logger)
		if err != nil {
			return err
		}
		defer nc.Close()
	}

	channel, err := telegram.NewChannel(telegram.Config{
		Token:  cfg.TelegramToken,
		APIURL: cfg.TelegramAPI,
	}, logger)
	if err != nil {
		return err
	}

	client := feed.NewClient(feed.Config{Endpoint: cfg.FeedEndpoint, Timeout: cfg.FeedTimeout}, logger)

	dispatchOpts := dispatch.DefaultOptions()
	monitorCfg := monitor.Config{
		Interval: cfg.PollInterval,
		Location: loc,
	}
	if nc != nil {
		dispatchOpts.Publisher = nc
		monitorCfg.Publisher = nc
	}

	mon := monitor.New(
		client,
		store,
		enrich.NewEnricher(client, logger),
		recipients.NewResolver(dir, logger),
		dispatch.NewDispatcher(channel, dir, logger, dispatchOpts),
		logger,
		monitorCfg,
	)

	srv := server.New(server.Config{
		ListenAddr: cfg.MetricsAddr,
		StaleAfter: 3*cfg.PollInterval + cfg.FeedTimeout,
	}, mon, logger)
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Start() }()

	mon.Start()

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case runErr = <-srvErr:
	}

	mon.Stop()
	if err := srv.Shutdown(); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return runErr
}
