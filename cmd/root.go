package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gartnera/lite-confine/args"
)

const appName = "lite-confine"

// envLogLevel sets the log level when --log-level is not given. It is the
// only way to raise verbosity for "run" and "explain", which do not parse
// flags.
const envLogLevel = "LITE_CONFINE_LOG_LEVEL"

// version is overridden at build time with -ldflags "-X ...cmd.version=...".
var version = "dev"

var logLevel string

var rootCmd = &cobra.Command{
	Use:           appName,
	Short:         "Launch applications under strict or classic confinement",
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(logLevel)
	},
}

// addLogLevelFlag registers --log-level on commands that parse their own
// flags. It is not a persistent root flag because run and explain would
// receive it as a launcher argument.
func addLogLevelFlag(fs *pflag.FlagSet) {
	fs.StringVar(&logLevel, "log-level", "", "Set log level (debug, info, warn, error)")
}

func setupLogging(level string) {
	if level == "" {
		level = os.Getenv(envLogLevel)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(level)}))
	slog.SetDefault(logger)
}

// parseLogLevel converts a string level name to slog.Level.
// Unknown and empty names fall back to warn.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Execute runs the CLI. When invoked through the legacy launcher symlink the
// whole command line belongs to the launcher and cobra is bypassed.
func Execute() {
	if len(os.Args) > 0 && args.IsLegacyInvocation(os.Args[0]) {
		setupLogging("")
		if err := runLaunch(os.Stdout, os.Args); err != nil {
			reportError(os.Stderr, err, true)
			os.Exit(1)
		}
		return
	}
	if err := rootCmd.Execute(); err != nil {
		reportError(os.Stderr, err, false)
		os.Exit(1)
	}
}
