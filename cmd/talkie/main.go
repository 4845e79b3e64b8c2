package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/talkie/adapters/events"
	"github.com/layer-3/talkie/adapters/oracle"
	"github.com/layer-3/talkie/adapters/store"
	"github.com/layer-3/talkie/adapters/tokenizer"
	"github.com/layer-3/talkie/adapters/ws"
	"github.com/layer-3/talkie/config"
	"github.com/layer-3/talkie/hub"
	"github.com/layer-3/talkie/observability"
	"github.com/layer-3/talkie/ports"
	"github.com/layer-3/talkie/service"
	transport "github.com/layer-3/talkie/transport/http"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
)

const (
	exitOK      = 0
	exitConfig  = 1
	exitRuntime = 2

	shutdownTimeout = 10 * time.Second
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "talkie terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// storage bundles the profile store with its replay guard and cleanup
type storage struct {
	store ports.Store
	guard ports.ReplayGuard
	close func()
}

func run() (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return exitConfig, err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	signKey, err := loadSigningKey(cfg.SigningKeyFile, log)
	if err != nil {
		return exitConfig, err
	}

	st, err := openStorage(ctx, cfg)
	if err != nil {
		return exitRuntime, err
	}
	defer st.close()

	own, err := openOracle(ctx, cfg, log)
	if err != nil {
		return exitRuntime, err
	}

	eventPub, closeEvents, err := openEvents(cfg, log)
	if err != nil {
		return exitRuntime, err
	}
	defer closeEvents()

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	authOpts := []service.AuthOption{
		service.WithAuthMetrics(metrics),
		service.WithCredentialTTL(cfg.CredentialTTL),
		service.WithOracleTimeout(cfg.OracleTimeout),
	}
	if cfg.ReplayProtection {
		authOpts = append(authOpts, service.WithReplayGuard(st.guard))
	}
	authService := service.NewAuthService(tokenizer.NewJWTTokenizer(signKey), own, st.store, log, authOpts...)

	registry := hub.NewRegistry(authService, log,
		hub.WithMetrics(metrics),
		hub.WithEvents(eventPub),
		hub.WithSendTimeout(cfg.WriteTimeout),
	)

	audioService := service.NewAudioService(st.store, own, registry, eventPub, metrics, log, service.AudioConfig{
		MaxDuration:    cfg.MaxAudioDuration,
		MaxBytes:       cfg.MaxAudioBytes,
		CollectionSize: cfg.CollectionSize,
	})

	gin.SetMode(gin.ReleaseMode)
	router := transport.SetupRouter(transport.Deps{
		Auth:  authService,
		Audio: audioService,
		WS: transport.NewWSHandler(registry, ws.Options{
			PingInterval: cfg.PingInterval,
			PongWait:     cfg.PongWait,
			WriteTimeout: cfg.WriteTimeout,
			Metrics:      metrics,
		}, cfg.AllowAnyOrigin, log),
		Metrics: observability.MetricsHandler(),
		Log:     log,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("talkie listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "dev_oracle", cfg.UsesDevOracle())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return exitRuntime, fmt.Errorf("http server failed: %w", err)
		}
	}

	// Hijacked websocket connections are not tracked by Shutdown
	registry.CloseAll("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return exitRuntime, fmt.Errorf("http shutdown failed: %w", err)
	}
	return exitOK, nil
}

func loadSigningKey(path string, log *slog.Logger) (*ecdsa.PrivateKey, error) {
	if path == "" {
		log.Warn("no signing key configured, credentials will not survive a restart")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	return key, nil
}

func openStorage(ctx context.Context, cfg config.Config) (storage, error) {
	switch cfg.StoreDriver {
	case config.StoreRedis:
		client, err := newRedisClient(cfg.RedisURL)
		if err != nil {
			return storage{}, err
		}
		s := store.NewRedisStore(client)
		return storage{store: s, guard: s, close: func() { _ = client.Close() }}, nil
	case config.StorePostgres:
		s, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return storage{}, err
		}
		return storage{store: s, guard: s, close: s.Close}, nil
	case config.StoreBadger:
		db, err := badger.Open(badger.DefaultOptions(cfg.BadgerPath).WithLoggingLevel(badger.WARNING))
		if err != nil {
			return storage{}, fmt.Errorf("open badger: %w", err)
		}
		s := store.NewBadgerStore(db)
		return storage{store: s, guard: s, close: func() { _ = db.Close() }}, nil
	default:
		s := store.NewMemoryStore()
		return storage{store: s, guard: s, close: func() {}}, nil
	}
}

func openOracle(ctx context.Context, cfg config.Config, log *slog.Logger) (ports.Oracle, error) {
	if cfg.UsesDevOracle() {
		log.Warn("no NFT contract configured, using the development oracle")
		return oracle.NewDevOracle(cfg.CollectionSize), nil
	}
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return oracle.NewERC721Oracle(client, cfg.NFTContract, cfg.OracleMaxTokens)
}

func openEvents(cfg config.Config, log *slog.Logger) (ports.EventPublisher, func(), error) {
	if !cfg.EventsEnabled {
		return events.NopPublisher{}, func() {}, nil
	}
	client, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: client},
		watermill.NewSlogLogger(log),
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("create redis publisher: %w", err)
	}
	return events.NewWatermillPublisher(publisher), func() {
		_ = publisher.Close()
		_ = client.Close()
	}, nil
}

func newRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
