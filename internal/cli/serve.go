package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/poinbot/poinbot/internal/app/catalog"
	"github.com/poinbot/poinbot/internal/app/commands"
	"github.com/poinbot/poinbot/internal/app/repo"
	"github.com/poinbot/poinbot/internal/app/session"
	"github.com/poinbot/poinbot/internal/config"
	"github.com/poinbot/poinbot/internal/gateway"
	"github.com/poinbot/poinbot/internal/infra/ai"
	"github.com/poinbot/poinbot/internal/infra/metrics"
	"github.com/poinbot/poinbot/internal/infra/store"
	"github.com/poinbot/poinbot/internal/infra/token"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot gateway",
	Long: `Start the bot: open the store, recover any challenge deadlines that
were pending at shutdown, and serve the HTTP gateway until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	r := repo.New(db)
	if err := r.Load(); err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	cat := catalog.New(r)
	assistant := ai.New(ai.Config{
		BaseURL:       cfg.AI.BaseURL,
		APIKey:        cfg.AI.APIKey,
		ChatModel:     cfg.AI.ChatModel,
		ImageModel:    cfg.AI.ImageModel,
		VideoModel:    cfg.AI.VideoModel,
		SystemPrompt:  cfg.AI.SystemPrompt,
		HistoryLimit:  cfg.AI.HistoryLimit,
		MaxConcurrent: cfg.AI.MaxConcurrent,
	})
	hub := gateway.NewHub()
	handler := commands.NewHandler(r, cat, assistant, cfg.Bot.Prefix)

	engine := session.New(session.Config{
		Prefix:      cfg.Bot.Prefix,
		GameReward:  cfg.Bot.GameReward,
		TokenLength: cfg.Bot.TokenLength,
	}, session.Deps{
		Repo:      r,
		Catalog:   cat,
		Handler:   handler,
		Messenger: hub,
		Assistant: assistant,
		Metrics:   metrics.New(prometheus.DefaultRegisterer),
		NewToken:  token.New,
	})
	engine.Recover()

	srv := gateway.NewServer(engine, hub)
	if cfg.Gateway.Metrics {
		srv.EnableMetrics()
	}

	addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[cli] gateway listening on %s", addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("gateway: %w", err)
		}
	case sig := <-stop:
		log.Printf("[cli] received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
