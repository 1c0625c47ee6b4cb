package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pos/config"
	"pos/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pos",
	Short: "Point-of-sale backend",
	Long: `Point-of-sale backend: register catalogue, sales, backoffice reports and
inventory sync with an external PostgreSQL stock database.

Configuration is read from the built-in defaults, an optional config.yaml
and POS_* environment variables (a .env file is loaded first).`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command; SIGINT/SIGTERM cancel the command context
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "external config file (optional)")
}

// bootstrap loads .env and configuration and installs the process logger
func bootstrap() (*config.Config, *zap.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg); err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger.L, nil
}
