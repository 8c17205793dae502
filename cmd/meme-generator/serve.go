package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shereeef1/meme-generator/internal/api"
	"github.com/shereeef1/meme-generator/internal/llm"
	"github.com/shereeef1/meme-generator/internal/meme"
	"github.com/shereeef1/meme-generator/internal/metrics"
	"github.com/shereeef1/meme-generator/internal/news"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := buildStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		coordinator, err := buildCoordinator(cfg, store)
		if err != nil {
			return err
		}

		apiCfg := api.Config{
			Researcher: coordinator,
			Store:      store,
			Logger:     logger,
		}

		// Optional services come up only when their keys are configured.
		if cfg.News.APIKey != "" {
			newsClient, err := news.New(news.Config{
				BaseURL:    cfg.News.BaseURL,
				APIKey:     cfg.News.APIKey,
				TTL:        cfg.News.TTL,
				DailyQuota: cfg.News.DailyQuota,
				Timeout:    cfg.HTTP.Timeout,
				Logger:     logger,
			})
			if err != nil {
				return fmt.Errorf("building news client: %w", err)
			}
			apiCfg.News = newsClient
		}
		if cfg.LLM.APIKey != "" {
			llmClient, err := llm.New(llm.Config{
				BaseURL:     cfg.LLM.BaseURL,
				APIKey:      cfg.LLM.APIKey,
				Model:       cfg.LLM.Model,
				Temperature: cfg.LLM.Temperature,
				MaxTokens:   cfg.LLM.MaxTokens,
				Timeout:     cfg.HTTP.Timeout,
				Logger:      logger,
			})
			if err != nil {
				return fmt.Errorf("building llm client: %w", err)
			}
			apiCfg.Prompts = llmClient
		}
		if cfg.Meme.BaseURL != "" {
			memeClient, err := meme.New(meme.Config{
				BaseURL: cfg.Meme.BaseURL,
				APIKey:  cfg.Meme.APIKey,
				Timeout: cfg.HTTP.Timeout,
				Logger:  logger,
			})
			if err != nil {
				return fmt.Errorf("building meme client: %w", err)
			}
			apiCfg.Memes = memeClient
		}

		server, err := api.New(apiCfg)
		if err != nil {
			return err
		}

		httpServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		metricsServer := metrics.Start(cfg.Server.MetricsPort)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("api server listening", "addr", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return metricsServer.Stop(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
