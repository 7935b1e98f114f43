package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/judyrop/retail-catalog/catalog"
	"github.com/judyrop/retail-catalog/config"
	"github.com/judyrop/retail-catalog/store"
)

type app struct {
	v   *viper.Viper
	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	var configFile string

	root := &cobra.Command{
		Use:           "catalogd",
		Short:         "Retail catalog administrative backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, configFile)
			if err != nil {
				return err
			}
			log, err := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			slog.SetDefault(log)
			a.cfg, a.log = cfg, log
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	flags.String("db-driver", "", "database driver: sqlite|postgres")
	flags.String("db-dsn", "", "database connection string")
	flags.String("addr", "", "HTTP listen address")
	flags.String("log-level", "", "log level: debug|info|warn|error")
	flags.String("log-format", "", "log format: text|json")
	flags.String("sale-retention", "", "what product deletes do to sales: delete|detach")

	for key, flag := range map[string]string{
		"database.driver":        "db-driver",
		"database.dsn":           "db-dsn",
		"server.addr":            "addr",
		"log.level":              "log-level",
		"log.format":             "log-format",
		"catalog.sale_retention": "sale-retention",
	} {
		// Unset flags fall through to env, file and defaults.
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(newServeCmd(a), newMigrateCmd(a))
	return root
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate the schema and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the catalog tables and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.Open(a.cfg.Store(), a.log)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(cmd.Context()); err != nil {
				return err
			}
			a.log.Info("schema migrated", "driver", a.cfg.Database.Driver)
			return nil
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	db, err := store.Open(a.cfg.Store(), a.log)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	retention, err := catalog.ParseSaleRetention(a.cfg.Catalog.SaleRetention)
	if err != nil {
		return err
	}
	svc := catalog.New(db, catalog.WithLogger(a.log), catalog.WithSaleRetention(retention))

	if !strings.EqualFold(a.cfg.Log.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := SetupRouter(svc, db)
	handler := cors.New(cors.Options{
		AllowedOrigins: a.cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler(router)

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", "addr", srv.Addr, "driver", a.cfg.Database.Driver, "sale_retention", retention)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
