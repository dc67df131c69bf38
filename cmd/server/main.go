package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"wayfarer.app/concierge/common/id"
	"wayfarer.app/concierge/common/llm"
	"wayfarer.app/concierge/common/logger"
	"wayfarer.app/concierge/common/otel"
	"wayfarer.app/concierge/core/config"
	"wayfarer.app/concierge/core/db"
	"wayfarer.app/concierge/internal/agent"
	"wayfarer.app/concierge/internal/http/middleware"
	httprouter "wayfarer.app/concierge/internal/http/router"
	"wayfarer.app/concierge/internal/memory"
	"wayfarer.app/concierge/internal/thread"
	"wayfarer.app/concierge/internal/tools"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "concierge starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	store, cleanup, err := setupMemory(ctx, cfg.Memory)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up memory backend", "error", err)
		os.Exit(1)
	}
	defer cleanup()
	slog.InfoContext(ctx, "memory backend ready", "backend", string(cfg.Memory.Backend))

	agentClient, err := llm.NewAgentClient(llm.Config{
		Provider: cfg.AgentLLM.Provider,
		APIKey:   cfg.AgentLLM.APIKey,
		BaseURL:  cfg.AgentLLM.BaseURL,
		Model:    cfg.AgentLLM.Model,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create agent llm client", "error", err)
		os.Exit(1)
	}

	supervisorClient, err := llm.NewAgentClient(llm.Config{
		Provider: cfg.SupervisorLLM.Provider,
		APIKey:   cfg.SupervisorLLM.APIKey,
		BaseURL:  cfg.SupervisorLLM.BaseURL,
		Model:    cfg.SupervisorLLM.Model,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create supervisor llm client", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "llm clients ready",
		"agent_model", agentClient.Model(),
		"supervisor_model", supervisorClient.Model())

	weather := tools.NewWeatherClient(cfg.Weather)
	places := tools.NewPlacesClient(cfg.Places, weather)
	registry := tools.NewRegistry(weather, places, store)

	threadLog := thread.NewLog()
	turns := agent.New(agentClient, registry, store, threadLog, cfg.AgentLLM.MaxTokens)
	supervisor := agent.NewSupervisor(supervisorClient, cfg.SupervisorLLM.MaxTokens)
	pipeline := agent.NewPipeline(turns, supervisor)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, pipeline, store)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

// setupMemory builds the configured memory store. The returned cleanup
// closes backend connections and is safe to call for every backend.
func setupMemory(ctx context.Context, cfg config.MemoryConfig) (memory.Store, func(), error) {
	switch cfg.Backend {
	case config.MemoryBackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return memory.NewRedisStore(client), func() { _ = client.Close() }, nil

	case config.MemoryBackendPostgres:
		database, err := db.New(ctx, db.Config{
			DSN:      cfg.DSN,
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		store := memory.NewPostgresStore(database)
		if err := store.Migrate(ctx); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("migrating memory table: %w", err)
		}
		return store, database.Close, nil

	default:
		return memory.NewInMemoryStore(), func() {}, nil
	}
}

func setupRouter(cfg config.Config, pipeline *agent.Pipeline, store memory.Store) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, pipeline, store)

	return router
}

const banner = `
 ██████╗ ██████╗ ███╗   ██╗ ██████╗██╗███████╗██████╗  ██████╗ ███████╗
██╔════╝██╔═══██╗████╗  ██║██╔════╝██║██╔════╝██╔══██╗██╔════╝ ██╔════╝
██║     ██║   ██║██╔██╗ ██║██║     ██║█████╗  ██████╔╝██║  ███╗█████╗
██║     ██║   ██║██║╚██╗██║██║     ██║██╔══╝  ██╔══██╗██║   ██║██╔══╝
╚██████╗╚██████╔╝██║ ╚████║╚██████╗██║███████╗██║  ██║╚██████╔╝███████╗
 ╚═════╝ ╚═════╝ ╚═╝  ╚═══╝ ╚═════╝╚═╝╚══════╝╚═╝  ╚═╝ ╚═════╝ ╚══════╝
`
