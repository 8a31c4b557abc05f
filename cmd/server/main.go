package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chatter/internal/api"
	"chatter/internal/auth"
	"chatter/internal/config"
	"chatter/internal/logging"
	"chatter/internal/metrics"
	"chatter/internal/presence"
	"chatter/internal/storage"
	"chatter/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (default: $CHATTER_CONFIG or configs/config.yaml)")
	seedPath := flag.String("seed", "", "Seed users from this YAML file before serving")
	flag.Parse()

	if err := run(*configPath, *seedPath); err != nil {
		fmt.Fprintln(os.Stderr, "chatter:", err)
		os.Exit(1)
	}
}

func run(configPath, seedPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.IsDevelopment())
	if err != nil {
		return err
	}
	defer log.Sync()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret, err = randomSecret()
		if err != nil {
			return err
		}
		log.Warn("no auth secret configured, using a random one; sessions will not survive a restart")
	}

	db, err := storage.Connect(cfg.Database.Path, log)
	if err != nil {
		return err
	}
	defer storage.Close(db)

	if seedPath != "" {
		users, err := storage.LoadSeedFile(seedPath)
		if err != nil {
			return fmt.Errorf("load seed file: %w", err)
		}
		created, err := storage.SeedUsers(db, users, log.Named("seed"))
		if err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		log.Info("seed complete", zap.Int("created", created), zap.Int("total", len(users)))
	}

	m := metrics.New()
	hub := websocket.NewHub(log.Named("hub"))
	registry := presence.NewRegistry(hub,
		presence.WithObserver(m),
		presence.WithLogger(log.Named("presence")),
	)
	m.Observe(registry, hub)

	gateway := websocket.NewGateway(hub, registry, websocket.GatewayConfig{
		RequireAuth:    cfg.Websocket.RequireAuth,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}, log.Named("gateway"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := api.NewRouter(ctx, api.Deps{
		DB:      db,
		Config:  cfg,
		Tokens:  auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.AccessTokenTTL),
		Gateway: gateway,
		Metrics: m.Handler(),
		Log:     log.Named("http"),
	})

	srv := api.NewServer(cfg, router.Engine())
	err = api.Serve(ctx, srv, cfg.Server.ShutdownTimeout, log)

	closed := hub.CloseAll()
	log.Info("closed websocket connections", zap.Int("count", closed))
	return err
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
