// Package main provides the entry point for the wikiread Telegram bot.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/guysoft/wikiread/internal/config"
	"github.com/guysoft/wikiread/internal/conversation"
	"github.com/guysoft/wikiread/internal/dispatch"
	"github.com/guysoft/wikiread/internal/resolve"
	"github.com/guysoft/wikiread/internal/telegram"
	"github.com/guysoft/wikiread/internal/wiki"
)

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown.
	shutdownTimeout = 30 * time.Second

	// The bot is useless until Telegram is reachable, so startup blocks
	// probing this endpoint.
	reachabilityURL = "https://api.telegram.org"
	probeTimeout    = 5 * time.Second
	probeInterval   = time.Second
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "wikiread",
		Short:        "Telegram bot that finds and reads Wikipedia article summaries",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "wikiread", version)
		},
	})

	return cmd
}

func run(ctx context.Context, configPath string) error {
	if os.Getenv("DEBUG") == "1" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	logger := slog.Default()

	// A .env file is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.Info("wikiread starting", "version", version)

	if err := waitForReachable(ctx, logger); err != nil {
		return err
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if poolErr := components.pool.Start(ctx); poolErr != nil {
			logger.Error("worker pool error", "error", poolErr)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if handlerErr := components.handler.Start(ctx); handlerErr != nil {
			logger.Error("telegram handler error", "error", handlerErr)
		}
	}()

	logger.Info("wikiread started, listening for messages")

	<-ctx.Done()
	logger.Info("shutting down")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(shutdownTimeout):
		logger.Warn("shutdown timeout exceeded")
	}

	return nil
}

// components holds the wired bot.
type components struct {
	handler *telegram.Handler
	pool    *dispatch.WorkerPool
}

func initializeComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	wikiClient, err := wiki.NewClient(wiki.Config{
		BaseURL: cfg.Wikipedia.BaseURL,
		Timeout: cfg.LookupTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create wikipedia client: %w", err)
	}

	classifier, err := resolve.NewClassifier(wikiClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	engine, err := conversation.NewEngine(
		conversation.NewStore(),
		classifier,
		wikiClient,
		wikiClient,
		conversation.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation engine: %w", err)
	}

	bot, err := telegram.NewBot(cfg.Telegram.Token, telegram.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	manager := dispatch.NewManager(dispatch.WithLogger(logger))

	pool, err := dispatch.NewWorkerPool(dispatch.PoolConfig{
		Workers:   cfg.Dispatch.Workers,
		Manager:   manager,
		Engine:    engine,
		Messenger: bot,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	handler, err := telegram.NewHandler(bot, &enqueuerAdapter{manager: manager})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram handler: %w", err)
	}

	return &components{handler: handler, pool: pool}, nil
}

// enqueuerAdapter bridges inbound transport messages into the dispatcher.
type enqueuerAdapter struct {
	manager *dispatch.Manager
}

func (a *enqueuerAdapter) Enqueue(msg telegram.IncomingMessage) error {
	queued := dispatch.NewMessage(msg.ConversationID, msg.From, msg.Text)
	if !msg.Timestamp.IsZero() {
		queued.Timestamp = msg.Timestamp
	}

	if err := a.manager.Submit(queued); err != nil {
		return fmt.Errorf("failed to submit message to dispatcher: %w", err)
	}
	return nil
}

// waitForReachable blocks until the Telegram endpoint answers.
func waitForReachable(ctx context.Context, logger *slog.Logger) error {
	client := &http.Client{Timeout: probeTimeout}

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, reachabilityURL, nil)
		if err != nil {
			return fmt.Errorf("failed to build reachability probe: %w", err)
		}

		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			return nil
		}

		logger.Info("waiting for network", "endpoint", reachabilityURL, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("interrupted while waiting for network: %w", ctx.Err())
		case <-time.After(probeInterval):
		}
	}
}
