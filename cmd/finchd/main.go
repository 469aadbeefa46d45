package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	fhttp "github.com/finchdesk/finch/internal/adapter/http"
	"github.com/finchdesk/finch/internal/adapter/knowledge"
	"github.com/finchdesk/finch/internal/adapter/litellm"
	fnats "github.com/finchdesk/finch/internal/adapter/nats"
	"github.com/finchdesk/finch/internal/adapter/postgres"
	"github.com/finchdesk/finch/internal/adapter/ristretto"
	adapterspecialist "github.com/finchdesk/finch/internal/adapter/specialist"
	"github.com/finchdesk/finch/internal/config"
	"github.com/finchdesk/finch/internal/domain/override"
	"github.com/finchdesk/finch/internal/domain/topic"
	"github.com/finchdesk/finch/internal/logger"
	portspecialist "github.com/finchdesk/finch/internal/port/specialist"
	"github.com/finchdesk/finch/internal/resilience"
	"github.com/finchdesk/finch/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"model", cfg.LLM.Model,
		"mini_model", cfg.LLM.MiniModel,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := fnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	cache, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	llmClient := litellm.NewClient(cfg.LLM.URL, cfg.LLM.APIKey, cfg.LLM.Timeout)
	llmClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Catalogs ---

	matcher := override.NewMatcher(cfg.Catalogs.Overrides)
	slog.Info("override catalog loaded", "entries", matcher.Len())

	topics, err := topic.Load(cfg.Catalogs.Topics)
	if err != nil {
		return fmt.Errorf("topic registry: %w", err)
	}
	slog.Info("topic registry loaded", "enabled", len(topics.Enabled()))

	// --- Specialists ---

	adapterspecialist.Register()

	store := postgres.NewStore(pool)
	searcher := knowledge.NewCachedSearcher(store, cache, cfg.Cache.KnowledgeTTL)
	deps := portspecialist.Deps{
		Generator: llmClient.Generator(cfg.LLM.Model),
		Searcher:  searcher,
	}

	specialists := make(map[string]portspecialist.Specialist)
	for _, tc := range topics.Enabled() {
		sp, err := portspecialist.New(tc, deps)
		if err != nil {
			return fmt.Errorf("specialist %s: %w", tc.Topic, err)
		}
		specialists[tc.Topic] = sp
	}
	slog.Info("specialists ready", "count", len(specialists))

	// --- Services ---

	classifierSvc := service.NewClassifierService(llmClient.Generator(cfg.LLM.MiniModel), topics)
	verifierSvc := service.NewVerifierService(
		llmClient.Generator(cfg.LLM.Model),
		cfg.Orchestrator.ConfidenceThreshold,
		cfg.Orchestrator.MaxConcerns,
	)
	escalatorSvc := service.NewEscalatorService(cfg.Orchestrator)
	summarizerSvc := service.NewSummarizerService(llmClient.Generator(cfg.LLM.MiniModel))
	conversationSvc := service.NewConversationService(store)

	orchestrator := service.NewOrchestrator(
		matcher,
		classifierSvc,
		specialists,
		verifierSvc,
		escalatorSvc,
		summarizerSvc,
		store,
		queue,
		log,
	)

	// --- HTTP ---

	handlers := &fhttp.Handlers{
		Orchestrator:  orchestrator,
		Conversations: conversationSvc,
		Overrides:     matcher,
		Topics:        topics,
		Escalations:   store,
		Knowledge:     store,
		WebhookSecret: cfg.Webhook.Secret,
	}

	r := chi.NewRouter()

	r.Use(fhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(fhttp.Logger)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/health", healthHandler(cfg, llmClient))

	fhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// healthHandler returns an http.HandlerFunc that reports service health.
func healthHandler(cfg *config.Config, llmClient *litellm.Client) http.HandlerFunc {
	type healthStatus struct {
		Status string `json:"status"`
		NATS   string `json:"nats"`
		LLM    string `json:"llm"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		llmState := "ok"
		if ok, _ := llmClient.Health(r.Context()); !ok {
			llmState = "unreachable"
		}

		status := healthStatus{
			Status: "ok",
			NATS:   cfg.NATS.URL,
			LLM:    llmState,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
