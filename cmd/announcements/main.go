// Package main is the announcements-backend entry point.
//
// @title          Announcements API
// @version        1.0
// @description    Community board: announcements, comments and reactions.
// @BasePath       /
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/announcements-backend/docs"
	"github.com/tbourn/announcements-backend/internal/config"
	httpapi "github.com/tbourn/announcements-backend/internal/http"
	"github.com/tbourn/announcements-backend/internal/observability"
	"github.com/tbourn/announcements-backend/internal/repo"
	"github.com/tbourn/announcements-backend/internal/store"
	"github.com/tbourn/announcements-backend/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// shutdownGrace bounds graceful shutdown of the HTTP server and tracer.
const shutdownGrace = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveVersion prefers the ldflags value and falls back to the module
// version recorded by `go install`.
func resolveVersion(ldflags string, bi *debug.BuildInfo) string {
	if ldflags != "dev" {
		return ldflags
	}
	if bi != nil && bi.Main.Version != "(devel)" {
		return sysutil.FirstNonEmpty(bi.Main.Version, ldflags)
	}
	return ldflags
}

func currentVersion() string {
	bi, _ := debug.ReadBuildInfo()
	return resolveVersion(version, bi)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "announcements",
		Short:         "Community announcements board API",
		Version:       currentVersion(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetVersionTemplate("announcements version {{.Version}}\n")

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), currentVersion())
		},
	}
}

// serveFlags override environment configuration when set explicitly.
type serveFlags struct {
	port   string
	driver string
	seed   bool
}

func (f serveFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Port = f.port
	}
	if cmd.Flags().Changed("store") {
		cfg.Store.Driver = f.driver
	}
	if cmd.Flags().Changed("seed") {
		cfg.Store.SeedDemo = f.seed
	}
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// .env is optional; real deployments use the environment.
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			flags.apply(cmd, &cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&flags.port, "port", "p", "8080", "listen port (overrides PORT)")
	cmd.Flags().StringVar(&flags.driver, "store", config.StoreMemory, "store driver: memory|sqlite (overrides STORE_DRIVER)")
	cmd.Flags().BoolVar(&flags.seed, "seed", true, "seed demo announcements on an empty start (overrides SEED_DEMO)")
	return cmd
}

// openStore builds the configured backend and seeds it when asked. The
// returned closer releases backend resources.
func openStore(ctx context.Context, cfg config.Config) (store.Store, func() error, error) {
	opts := []store.Option{store.WithIdempotencyTTL(cfg.IdempotencyTTL)}

	var (
		st     store.Store
		closer = func() error { return nil }
	)
	switch cfg.Store.Driver {
	case config.StoreMemory:
		st = store.NewMemory(opts...)
	case config.StoreSQLite:
		db, err := repo.OpenSQLite(cfg.Store.SQLiteDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		if err := repo.AutoMigrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		st = repo.NewStore(db, opts...)
		closer = sqlDB.Close
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if cfg.Store.SeedDemo {
		list, err := st.GetAnnouncementsWithAggregates(ctx)
		if err != nil {
			_ = closer()
			return nil, nil, err
		}
		if len(list.Views) == 0 {
			if err := st.Seed(ctx, store.DemoAnnouncements()...); err != nil {
				_ = closer()
				return nil, nil, fmt.Errorf("seed: %w", err)
			}
		}
	}
	return st, closer, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	sysutil.SetLogLevel(cfg.LogLevel)
	log.Logger = sysutil.NewLogger(os.Stdout, cfg.LogPretty, cfg.OTEL.ServiceName)

	ver := currentVersion()
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver,
		observability.AttrStoreDriver.String(cfg.Store.Driver))
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("store close")
		}
	}()

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	docs.SwaggerInfo.Version = ver
	docs.SwaggerInfo.BasePath = cfg.APIBasePath
	httpapi.RegisterRoutes(r, st, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.Store.Driver).
			Str("version", ver).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return srv.Shutdown(sctx)
}
