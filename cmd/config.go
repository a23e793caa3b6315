package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gartnera/lite-confine/config"
)

var configValidateWatch bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return yaml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for errors",
	Long: `Validate loads the config file and reports every invalid entry.
With --watch it keeps running and validates again whenever the file changes.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !configValidateWatch {
			return validateConfig(out, cfg)
		}
		reportValidation(out, cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err = config.Watch(ctx, func(cfg *config.Config) {
			reportValidation(out, cfg)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	addLogLevelFlag(configCmd.PersistentFlags())
	configValidateCmd.Flags().BoolVar(&configValidateWatch, "watch", false, "Validate again whenever the config file changes")
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

// validateConfig prints a line for a valid config. Problems are only
// returned, Execute prints them.
func validateConfig(w io.Writer, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config is invalid:\n%w", err)
	}
	fmt.Fprintf(w, "✓ config is valid (%d profiles)\n", len(cfg.Profiles))
	return nil
}

// reportValidation is validateConfig for --watch, where nothing returns to
// Execute until the watch ends.
func reportValidation(w io.Writer, cfg *config.Config) {
	if err := validateConfig(w, cfg); err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
	}
}

// loadConfig is a helper used by config subcommands.
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// saveConfig is a helper used by config subcommands.
func saveConfig(cfg *config.Config) error {
	return config.Save(cfg)
}
