package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nidhogg/boutique-stylist/internal/api"
	"github.com/nidhogg/boutique-stylist/internal/app"
	"github.com/nidhogg/boutique-stylist/internal/command"
	"github.com/nidhogg/boutique-stylist/internal/config"
	"github.com/nidhogg/boutique-stylist/internal/gateway"
	msgrouter "github.com/nidhogg/boutique-stylist/internal/router"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = config.DefaultPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", cfgPath, err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg.Server.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting boutique stylist...", zap.String("config", cfgPath))
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	ctx := context.Background()
	comps, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize backends", zap.Error(err))
	}
	dim, err := comps.CheckIndex(ctx)
	if err != nil {
		comps.Close()
		logger.Fatal("embedding provider does not match the vector index", zap.Error(err))
	}
	rec, err := comps.Recommender(ctx)
	if err != nil {
		comps.Close()
		logger.Fatal("failed to initialize generation provider", zap.Error(err))
	}
	logger.Info("Recommender ready",
		zap.String("embedding", string(comps.Embedder.Kind())),
		zap.Int("dimension", dim),
		zap.String("generation", cfg.Generation.Provider),
		zap.String("index", cfg.Index.Backend+"/"+cfg.Index.Name))

	// Initialize gateway
	gw := gateway.NewGateway(logger)

	registry := command.NewRegistry()
	command.RegisterBuiltins(registry, gw)
	command.RegisterSearchCommand(registry, rec)
	var (
		top  command.TopLister
		runs command.RunLister
	)
	if comps.Journal != nil {
		top = comps.Journal
	}
	if comps.Store != nil {
		runs = comps.Store
	}
	command.RegisterInsightCommands(registry, top, runs)

	// Wire message router BEFORE registering adapters (Register captures handler)
	msgRouter := msgrouter.New(rec, gw, registry, cfg.Server.RequestTimeout(), logger)
	gw.SetHandler(msgRouter.Handle)

	if cfg.Gateway.Slack.Enabled {
		gw.Register(gateway.NewSlackAdapter(cfg.Gateway.Slack.BotToken, cfg.Gateway.Slack.AppToken, logger))
	}
	if cfg.Gateway.Discord.Enabled {
		gw.Register(gateway.NewDiscordAdapter(cfg.Gateway.Discord.BotToken, logger))
	}
	if err := gw.ConnectAll(ctx); err != nil {
		logger.Warn("some gateway adapters failed to connect", zap.Error(err))
	}

	// Build HTTP handler
	handler := api.NewHandler(rec, cfg.Server.RequestTimeout(), logger)
	handler.SetGateway(gw)
	if comps.Store != nil {
		handler.SetRunLister(comps.Store)
		handler.AddHealthCheck("postgres", comps.Store.Ping)
	}
	if comps.Journal != nil {
		handler.SetTopLister(comps.Journal)
		handler.AddHealthCheck("neo4j", comps.Journal.Ping)
	}

	port := fmt.Sprintf("%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Boutique stylist listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down boutique stylist...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	gw.Close()
	msgRouter.Wait()
	comps.Close()
}
