package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"libraryCirculation/internal/accounts"
	"libraryCirculation/internal/catalog"
	"libraryCirculation/internal/circulation"
	"libraryCirculation/internal/config"
	"libraryCirculation/internal/db"
	grpcserver "libraryCirculation/internal/grpc"
	"libraryCirculation/internal/httpapi"
	"libraryCirculation/repository"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "library",
		Short:         "School library circulation server and admin tools",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newUserCmd(), newReportCmd())
	return root
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.Level}))
}

// openStore opens the configured database and applies pending migrations.
func openStore(cfg *config.Config) (*sql.DB, *repository.Store, error) {
	d, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	return d, repository.NewStore(d), nil
}

func newServeCmd() *cobra.Command {
	var dev bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API and the gRPC health endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			load := config.Load
			if dev {
				load = config.LoadWithDefaults
			}
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&dev, "dev", false, "use development defaults for missing secrets")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.String())

	d, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Error("close db", "err", err)
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.Deps{
		Config:   cfg,
		Store:    store,
		Engine:   circulation.NewEngine(store, circulation.WithLogger(logger)),
		Catalog:  catalog.NewService(store, catalog.WithLogger(logger)),
		Accounts: accounts.NewService(store, cfg.Auth.AdminRegistrationCode, logger),
		Logger:   logger,
	})

	stopHTTP, err := httpapi.StartHTTP(cfg.HTTP.Address, router, logger)
	if err != nil {
		return fmt.Errorf("start http: %w", err)
	}
	logger.Info("http server listening", "addr", cfg.HTTP.Address)

	stopGRPC, err := grpcserver.StartGRPC(cfg, store, logger)
	if err != nil {
		_ = stopHTTP(context.Background())
		return fmt.Errorf("start grpc: %w", err)
	}
	logger.Info("grpc server listening", "addr", cfg.GRPC.Address)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stopHTTP(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	if err := stopGRPC(shutdownCtx); err != nil {
		logger.Error("grpc shutdown", "err", err)
	}
	logger.Info("server stopped")
	return nil
}
