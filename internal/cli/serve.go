package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/zaloga/internal/api"
	"github.com/erazemk/zaloga/internal/config"
	"github.com/erazemk/zaloga/internal/imaging"
	"github.com/erazemk/zaloga/internal/inventory"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/store"
	"github.com/erazemk/zaloga/internal/upload"
)

const shutdownTimeout = 5 * time.Second

// NewServeCommand creates the serve subcommand.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. A missing database is created together with an
admin account whose password is printed once.`,
		Example: `  zaloga serve
  zaloga serve --addr :9090 --db /var/lib/zaloga/zaloga.sqlite3
  ZALOGA_UPLOAD_DRIVER=s3 ZALOGA_UPLOAD_S3_BUCKET=images zaloga serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rootOpts.load(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, cmd)
		},
	}

	cmd.Flags().StringP("addr", "a", ":8080", "listen address")
	cmd.Flags().String("admin", "Admin", "admin username for a new database")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	cleanup, err := setupLogger(cfg.Log, cfg.LogLevel, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer cleanup()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	database, err := openDatabase(ctx, cfg.DB, cfg.Admin, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer database.Close()

	secret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	uploads, err := upload.Open(ctx, cfg.UploadStore())
	if err != nil {
		return fmt.Errorf("opening upload store: %w", err)
	}

	m := metrics.New()
	svc := inventory.NewService(database, uploads, m, loc)
	defer svc.Close()
	svc.Images = imaging.Normalizer{
		MaxDimension: cfg.Image.MaxDimension,
		Quality:      cfg.Image.Quality,
		MaxBytes:     cfg.Image.MaxBytes,
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.LoggingMiddleware(m, api.NewRouter(svc, secret)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", cfg.Addr, "db", cfg.DB, "uploads", cfg.Upload.Driver, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}
