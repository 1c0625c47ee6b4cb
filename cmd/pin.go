package cmd

import (
	"errors"
	"fmt"

	"pos/database"
	"pos/models"

	"github.com/spf13/cobra"
)

var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Manage the backoffice PIN",
}

var pinInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Store the configured default PIN when none exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		if !models.IsValidPin(cfg.Backoffice.DefaultPin) {
			return errors.New("backoffice.default_pin must be 4 digits")
		}
		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		created, err := database.EnsurePin(db, cfg.Backoffice.DefaultPin)
		if err != nil {
			return err
		}
		if !created {
			return errors.New("PIN already initialized")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "default PIN initialized")
		return nil
	},
}

var pinSetCmd = &cobra.Command{
	Use:   "set <pin>",
	Short: "Replace the backoffice PIN",
	Long: `Append a new backoffice PIN. Use this to recover access when the
current PIN is lost; earlier PINs stay in the log but no longer work.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !models.IsValidPin(args[0]) {
			return errors.New("PIN must be 4 digits")
		}
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		if err := database.AppendPin(db, args[0]); err != nil {
			return fmt.Errorf("set pin: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "PIN updated")
		return nil
	},
}

func init() {
	pinCmd.AddCommand(pinInitCmd, pinSetCmd)
	rootCmd.AddCommand(pinCmd)
}
