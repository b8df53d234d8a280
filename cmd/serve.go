package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pders01/shotvault/internal/api"
	"github.com/pders01/shotvault/internal/catalog"
	"github.com/pders01/shotvault/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the history over a local HTTP API",
	Long: `Run the HTTP API used by the desktop UI.

The history is repaired once at startup. When a config file is in use,
edits to storage.budget_mb are applied without a restart.

Catalog writes are serialized inside this process only. With the default
json backend, running save, delete, link or prune against the same storage
root while serve is up can lose catalog updates. Set catalog.backend = "sqlite"
to share one root between serve and other shotvault commands.

Examples:
  shotvault serve
  shotvault serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default serve.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := serveAddr
	if addr == "" {
		addr = config.GetServeAddr()
	}

	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if backend := config.GetCatalogBackend(); !sharesAcrossProcesses(backend) {
		log.Warn().Str("backend", backend).Msg("Catalog is not safe to share with other shotvault processes, use catalog.backend = \"sqlite\" for that")
	}

	if _, err := svc.Reconcile(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to reconcile history at startup")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.New(svc, config.GetDefaultLimit()),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", addr).Str("root", svc.Root()).Msg("Serving screenshot history")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown failed")
		}
		log.Info().Msg("Server stopped")
		return nil
	})

	if path := viper.ConfigFileUsed(); path != "" {
		g.Go(func() error {
			err := config.Watch(ctx, path, func() {
				svc.SetBudget(config.GetBudgetBytes())
				log.Info().Int64("budget_bytes", svc.Budget()).Msg("Storage budget updated")
			})
			if err != nil {
				log.Warn().Err(err).Msg("Config watching disabled")
			}
			return nil
		})
	}

	return g.Wait()
}

// sharesAcrossProcesses reports whether backend stays consistent when
// several processes write to the same storage root
func sharesAcrossProcesses(backend string) bool {
	return backend == catalog.BackendSQLite
}
