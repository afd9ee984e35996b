// commcoach - speech practice server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/commcoach/internal/agent"
	"github.com/ashureev/commcoach/internal/api"
	"github.com/ashureev/commcoach/internal/config"
	"github.com/ashureev/commcoach/internal/identity"
	"github.com/ashureev/commcoach/internal/middleware"
	"github.com/ashureev/commcoach/internal/probe"
	"github.com/ashureev/commcoach/internal/progress"
	"github.com/ashureev/commcoach/internal/rank"
	"github.com/ashureev/commcoach/internal/realtime"
	"github.com/ashureev/commcoach/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

//nolint:funlen // Startup wiring is intentionally sequential to keep dependency setup explicit.
func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "grpc_port", cfg.GRPCPort, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		return err
	}
	slog.Info("Database connected")

	generator := newGenerator(ctx, cfg, logger)

	var board rank.Board
	if cfg.Redis.Addr != "" {
		redisBoard, err := rank.NewRedisBoard(ctx, cfg.Redis.Addr, cfg.Redis.LeaderboardKey)
		if err != nil {
			slog.Warn("Leaderboard mirror unavailable, using database rankings", "error", err)
		} else {
			defer func() {
				if closeErr := redisBoard.Close(); closeErr != nil {
					slog.Warn("Failed to close leaderboard mirror", "error", closeErr)
				}
			}()
			board = redisBoard
		}
	}
	ledger := progress.NewLedger(repo, board, logger)
	if board != nil {
		n, err := ledger.Backfill(ctx)
		if err != nil {
			slog.Warn("Leaderboard backfill failed", "error", err)
		} else {
			slog.Info("Leaderboard mirror ready", "users", n)
		}
	}

	conversationLogger, err := agent.NewConversationLogger(agent.ConversationLogConfig{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Warn("Failed to close conversation logger", "error", closeErr)
		}
	}()

	// Initialize services.
	sm := realtime.NewSessionManager()
	conductor := realtime.NewConductor(repo, generator, sm, realtime.Options{
		MessageRate:     cfg.WebSocket.MessageRate,
		MessageBurst:    cfg.WebSocket.MessageBurst,
		ConversationLog: conversationLogger,
		Logger:          logger,
	})

	// Initialize handlers.
	apiHandler := api.NewHandler(repo, ledger, cfg.AIEnabled(), logger)
	healthHandler := api.NewHealthHandler(repo, generator, sm.ActiveCount)
	wsHandler := realtime.NewWebSocketHandler(conductor, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.APIOrigins))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// Everything else gets an anonymous identity.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		apiHandler.RegisterRoutes(r)
		r.Get("/ws/session", wsHandler.ServeHTTP)
	})

	// WebSocket connections are long-lived, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}
	probeServer := probe.NewServer(repo, logger)

	conductor.StartTTLWorker(ctx, cfg.SessionTTL)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return probeServer.Serve(gctx, grpcLis)
	})
	g.Go(func() error {
		// Wait for shutdown signal or a server failure.
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
			return err
		}
		return nil
	})

	return g.Wait()
}

// newGenerator builds the response generator. Without an API key, or when
// the model client cannot be created, every reply is the fallback.
func newGenerator(ctx context.Context, cfg *config.Config, logger *slog.Logger) *agent.Generator {
	genCfg := agent.DefaultConfig()
	genCfg.APIKey = cfg.Gemini.APIKey
	genCfg.ModelName = cfg.Gemini.Model

	if !cfg.AIEnabled() {
		slog.Info("AI replies disabled (GEMINI_API_KEY not set), using fallback replies")
		return agent.NewGenerator(nil, genCfg, logger)
	}

	model, err := agent.NewGeminiClient(ctx, genCfg, logger)
	if err != nil {
		slog.Warn("Failed to create Gemini client, using fallback replies", "error", err)
		return agent.NewGenerator(nil, genCfg, logger)
	}
	return agent.NewGenerator(model, genCfg, logger)
}
