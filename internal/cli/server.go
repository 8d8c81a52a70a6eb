package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"xforce-progression/internal/app"
	"xforce-progression/internal/config"
	"xforce-progression/internal/logger"
	"xforce-progression/internal/metrics"
	"xforce-progression/internal/scheduler"
	transport "xforce-progression/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the progression server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	adapters, err := buildAdapters(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer adapters.close()

	hub := transport.NewHub()
	adapters.deps.Notifiers = append(adapters.deps.Notifiers, hub)
	service := app.NewProgressionService(adapters.deps, app.Options{
		MaxWriteRetries: cfg.Progression.MaxWriteRetries,
		LeaderboardSize: cfg.Progression.LeaderboardSize,
	})

	jobs := scheduler.New(adapters.catalog, log)
	if err := jobs.Start(config.Duration(cfg.Catalog.RefreshInterval, 5*time.Minute)); err != nil {
		return err
	}
	defer jobs.Stop()

	wsHandler := transport.NewWSHandler(service, hub, cfg.Progression.AutoProvision, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting progression service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
