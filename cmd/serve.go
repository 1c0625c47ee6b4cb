package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"pos/config"
	"pos/database"
	"pos/middleware"
	"pos/router"
	"pos/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var port string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API.

Examples:
  pos serve                  # listen on server.port
  pos serve -p 8080          # override the port
  pos serve -c /etc/pos.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "listen port, e.g. 8080 or :8080")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	if port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
	}
	config.PrintConfig()

	if err := database.Init(cfg); err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	middleware.InitJWT(cfg)

	var (
		lister service.StockLister
		stock  service.StockDecrementer
	)
	source, err := service.NewInventorySource(ctx, &cfg.Inventory)
	switch {
	case errors.Is(err, service.ErrInventoryDisabled):
		log.Info("inventory sync disabled, no inventory dsn configured")
	case err != nil:
		log.Error("inventory database unavailable, sync and stock decrements disabled", zap.Error(err))
	default:
		defer source.Close()
		lister, stock = source, source
		log.Info("connected to inventory database")
	}

	var cache service.DashboardCache = service.NoopCache{}
	if cfg.Redis.Enabled {
		rc, err := service.NewRedisDashboardCache(ctx, &cfg.Redis, log)
		if err != nil {
			log.Warn("redis unavailable, dashboard cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			defer rc.Close()
			cache = rc
			log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	email := service.NewEmailService(&cfg.Email, log)
	syncer := service.NewSyncer(database.DB, lister, cache, log)
	go syncer.Start(ctx, cfg.Sync.Interval, cfg.Sync.OnStartup)

	r := router.SetupRouter(cfg, router.Deps{
		Log:    log,
		Stock:  stock,
		Cache:  cache,
		Email:  email,
		Syncer: syncer,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started",
			zap.String("addr", cfg.Server.Port),
			zap.String("swagger", cfg.Server.BaseURL+"/swagger/index.html"))
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

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
