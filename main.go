package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/conversations"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/nodes"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/observers"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/graph/tools"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/model"
	"github.com/Chative-core-poc-v1/supportbot/internal/agent/repo"
	"github.com/Chative-core-poc-v1/supportbot/internal/api"
	"github.com/Chative-core-poc-v1/supportbot/internal/catalog"
	"github.com/Chative-core-poc-v1/supportbot/internal/core"
	"github.com/Chative-core-poc-v1/supportbot/internal/knowledge"
	"github.com/Chative-core-poc-v1/supportbot/internal/metrics"
	logx "github.com/Chative-core-poc-v1/supportbot/pkg/logger"
	pkgredis "github.com/Chative-core-poc-v1/supportbot/pkg/redis"
)

const (
	backendRedis  = "redis"
	backendMemory = "memory"
)

// AppConfig defines all configurable parameters of the support bot,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	// Infrastructure
	Redis          pkgredis.Config
	SessionBackend string `envconfig:"SESSION_BACKEND" default:"redis"`
	SQLitePath     string `envconfig:"SQLITE_PATH" default:"data/supportbot.db"`
	SeedCatalog    bool   `envconfig:"SEED_CATALOG" default:"true"`

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	NLU          model.NLUModelConfig
	Response     model.ResponseModelConfig
	Prompt       model.ResponsePromptConfig
	Conversation model.ConversationConfig
	Timeouts     model.TimeoutConfig
	Knowledge    model.KnowledgeConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		logx.Warn().Err(err).Msg("Could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}
	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(cfg.Environment),
		Level:       cfg.LogLevel,
	})

	if err := run(ctx, cfg); err != nil {
		logx.Fatal().Err(err).Msg("Support bot stopped")
	}
}

func run(ctx context.Context, cfg AppConfig) error {
	m := metrics.New()
	checks := map[string]api.Pinger{}

	// ====================================================
	// Stores
	store, err := catalog.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()
	checks["catalog"] = store

	if cfg.SeedCatalog {
		seed, err := catalog.DefaultSeed()
		if err != nil {
			return err
		}
		if err := store.Seed(ctx, seed); err != nil {
			return err
		}
	}

	var (
		sessions    model.SessionStore
		assignments model.CouponAssignments
	)
	switch cfg.SessionBackend {
	case backendMemory:
		logx.Warn().Msg("Using in-memory session store, sessions are lost on restart")
		sessions = repo.NewMemorySessionStore()
		assignments = repo.NewMemoryCouponAssignments()
	case backendRedis:
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return err
		}
		defer rdb.Close()
		checks["redis"] = api.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

		ttl := cfg.Conversation.ParsedTTL()
		sessions = repo.NewRedisSessionStore(rdb, ttl)
		assignments = repo.NewRedisCouponAssignments(rdb, ttl)
		logx.Info().Dur("ttl", ttl).Msg("Connected to Redis successfully")
	default:
		logx.Error().Str("backend", cfg.SessionBackend).Msg("Unknown session backend")
		return errors.New("SESSION_BACKEND must be redis or memory")
	}
	coupons := catalog.NewCouponDesk(store, assignments)

	// ====================================================
	// Models and knowledge
	chatModels, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		NLUConfig:  &cfg.NLU,
		RespConfig: &cfg.Response,
	})
	if err != nil {
		return err
	}

	retriever := knowledge.NewRetriever(store,
		knowledge.NewGenaiEmbedder(chatModels.Client, cfg.Knowledge.EmbeddingModel),
		cfg.Knowledge)
	if err := retriever.Warm(ctx); err != nil {
		// queries still work through keyword matching
		logx.Warn().Err(err).Msg("Knowledge base warm-up failed")
	}

	registry, err := tools.NewRegistry(tools.Services{
		Orders:    store,
		Products:  store,
		Coupons:   coupons,
		Knowledge: retriever,
	})
	if err != nil {
		return err
	}

	// ====================================================
	// Graph and orchestrator
	handlers, err := nodes.NewHandlers(nodes.Config{
		ChatModels:      chatModels,
		Tools:           registry,
		Approvals:       store,
		MessagesManager: conversations.NewMessagesManager(cfg.Conversation.NLU.MaxTurns),
		NLUConfig:       cfg.NLU,
		PromptConfig:    cfg.Prompt,
		Timeouts:        cfg.Timeouts,
		Metrics:         m,
	})
	if err != nil {
		return err
	}

	runnable, err := graph.BuildGraph(ctx, &graph.GraphConfig{Handlers: handlers})
	if err != nil {
		return err
	}

	orchestrator, err := graph.NewOrchestrator(graph.OrchestratorConfig{
		Sessions:   sessions,
		Runnable:   runnable,
		Callbacks:  observers.NewAllCallbacks(m),
		MaxRetries: cfg.Conversation.Save.MaxRetries,
		Metrics:    m,
	})
	if err != nil {
		return err
	}

	// ====================================================
	// HTTP
	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.Deps{
			Turns:         orchestrator,
			Coupons:       coupons,
			Registry:      m.Registry,
			Checks:        checks,
			SecureCookies: core.ParseEnvironment(cfg.Environment).IsProduction(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", cfg.HTTPAddr).Msg("Support bot listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logx.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
