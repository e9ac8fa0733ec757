package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"paperforge/internal/api"
	"paperforge/internal/auth"
	"paperforge/internal/config"
	"paperforge/internal/knowledge"
	"paperforge/internal/llm"
	"paperforge/internal/papers"
	"paperforge/internal/pipeline"
	"paperforge/internal/store"
)

func main() {
	godotenv.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	profiles, err := cfg.Profiles()
	if err != nil {
		log.Error("invalid validation profiles", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	docs := store.NewClient(cfg.StoreURL, cfg.StoreAPIKey)
	authClient := auth.NewClient(cfg.AuthURL)
	claude := llm.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)

	kb, err := knowledge.Open(cfg.KnowledgeDir)
	if err != nil {
		log.Error("knowledge base unavailable", "error", err)
		os.Exit(1)
	}

	// Initialize pipeline.
	gen := pipeline.NewGenerator(claude, pipeline.Config{
		PaceBaseDelay:        cfg.PaceBaseDelay,
		PaceMultiplier:       cfg.PaceMultiplier,
		MaxRateLimitRetries:  cfg.MaxRateLimitRetries,
		MaxConsecutiveErrors: cfg.MaxConsecutiveErrors,
		MinSectionWords:      cfg.MinSectionWords,
		BackoffMaxRetries:    cfg.BackoffMaxRetries,
		BackoffMaxDelay:      cfg.BackoffMaxDelay,
	}, profiles, log)
	orch := pipeline.NewOrchestrator(gen, docs, cfg.RunTTL, log)
	orch.Start(ctx)

	analyzer := papers.NewAnalyzer(claude)

	// Initialize HTTP server.
	srv := api.NewServer(orch, docs, authClient, kb, analyzer, claude.Stats(), log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		claude.Close()
		docs.Close()
		authClient.Close()
	}()

	log.Info("starting paperforge", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
