// Package main provides the fitagent binary entry point.
// Fitagent is a fitness coaching backend: goal-driven task generation
// through capability-routed LLM generators, plus a conversational coach.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	// Register LLM providers via init()
	_ "github.com/fitagent/backend/llm/providers"

	"github.com/fitagent/backend/agent"
	"github.com/fitagent/backend/agent/prompts"
	"github.com/fitagent/backend/api"
	"github.com/fitagent/backend/auth"
	"github.com/fitagent/backend/config"
	"github.com/fitagent/backend/events"
	"github.com/fitagent/backend/llm"
	"github.com/fitagent/backend/model"
	"github.com/fitagent/backend/supabase"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "fitagent"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Fitness coaching backend",
		Long: `Fitagent serves the fitness coaching API.

It routes each fitness goal to domain generators (diet, strength, cardio),
runs them concurrently against an LLM, normalizes their output into a
validated task plan, and persists it to the Supabase-hosted store. A
conversational coach answers questions over the user's own records and can
regenerate plans on request.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func run(configPath, logLevel string) error {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(logger).LoadWithOverride(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	registry := model.NewDefaultRegistry()
	if cfg.Model.Endpoint != "" {
		applyModelOverrides(registry, cfg)
	}
	model.InitGlobal(registry)

	llmClient := llm.NewClient(registry, llm.WithLogger(logger))

	store := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.AnonKey,
		supabase.WithLogger(logger))

	orchestrator := agent.NewOrchestrator(
		[]agent.Generator{
			agent.NewLLMGenerator(agent.GeneratorDiet, llmClient, prompts.Diet()),
			agent.NewLLMGenerator(agent.GeneratorStrength, llmClient, prompts.Strength()),
			agent.NewLLMGenerator(agent.GeneratorCardio, llmClient, prompts.Cardio()),
		},
		agent.WithGeneratorTimeout(cfg.Agent.GeneratorTimeout),
		agent.WithOrchestratorLogger(logger),
	)

	coach := agent.NewCoach(llmClient, store, store, store, orchestrator, prompts.Coach(),
		agent.WithHistoryLimit(cfg.Agent.HistoryLimit),
		agent.WithCoachLogger(logger))

	publisher, err := events.Connect(cfg.NATS.URL, logger)
	if err != nil {
		// Events are best-effort; the API stays up without a broker.
		logger.Warn("event broker unavailable, continuing without events", "error", err)
		publisher = nil
	}
	defer publisher.Close()

	verifier := auth.NewVerifier(cfg.Supabase.JWTSecret, cfg.Supabase.JWTIssuer)

	server := api.NewServer(store, orchestrator, coach, verifier,
		api.WithAllowedOrigins(cfg.Server.AllowedOrigins),
		api.WithPublisher(publisher),
		api.WithHistoryLimit(cfg.Agent.HistoryLimit),
		api.WithServerLogger(logger))

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("fitagent ready", "version", Version, "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// applyModelOverrides points the configured capabilities at a custom
// endpoint, for self-hosted or proxied deployments.
func applyModelOverrides(registry *model.Registry, cfg *config.Config) {
	if cfg.Model.Generation != "" {
		registry.SetEndpoint(cfg.Model.Generation, &model.EndpointConfig{
			Provider: "openai",
			URL:      cfg.Model.Endpoint,
			Model:    cfg.Model.Generation,
		})
		registry.SetCapability(model.CapabilityGeneration, &model.CapabilityConfig{
			Preferred: []string{cfg.Model.Generation},
		})
	}
	if cfg.Model.Chat != "" {
		registry.SetEndpoint(cfg.Model.Chat, &model.EndpointConfig{
			Provider: "openai",
			URL:      cfg.Model.Endpoint,
			Model:    cfg.Model.Chat,
		})
		registry.SetCapability(model.CapabilityChat, &model.CapabilityConfig{
			Preferred: []string{cfg.Model.Chat},
		})
	}
}
