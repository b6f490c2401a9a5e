package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/schedly/auth-service/internal/config"
	api "github.com/schedly/auth-service/internal/http"
	"github.com/schedly/auth-service/internal/log"
	"github.com/schedly/auth-service/internal/metrics"
	"github.com/schedly/auth-service/internal/oauth"
	"github.com/schedly/auth-service/internal/queue"
	"github.com/schedly/auth-service/internal/repo"
	"github.com/schedly/auth-service/internal/security"
	"github.com/schedly/auth-service/internal/service"
)

func main() {
	cfg := config.Load()

	logger, err := log.Init(os.Getenv("APP_ENV") == "production")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	metrics.MustRegister()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())

	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Fatal("mongo indexes", zap.Error(err))
	}

	rds := repo.NewRedis(cfg.RedisAddr)
	defer rds.Close()
	if err := rds.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, browser oauth flow will fail", zap.Error(err))
	}

	keys, err := security.NewKeyring(cfg.JWTSecrets)
	if err != nil {
		logger.Fatal("keyring", zap.Error(err))
	}

	var events queue.Publisher = queue.NewNoop()
	if cfg.RabbitURL != "" {
		pub, err := queue.NewRabbit(cfg.RabbitURL)
		if err != nil {
			logger.Fatal("rabbit connect", zap.Error(err))
		}
		events = pub
	}
	defer events.Close()

	tokens := service.NewTokenAuthority(keys, store, time.Duration(cfg.AccessTTLMin)*time.Minute)
	google := oauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
	auth := service.NewAuthService(store, tokens, google, oauth.NewApple(), rds, events)

	h := api.NewHandler(auth, tokens, store, cfg.FrontendURL)
	r := api.NewRouter(h)

	srvErr := make(chan error, 1)
	go func() { srvErr <- r.Run(":" + cfg.Port) }()

	logger.Info("auth-service listening", zap.String("port", cfg.Port))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		logger.Error("server error", zap.Error(err))
	}
}
