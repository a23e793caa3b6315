package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gartnera/lite-confine/args"
	"github.com/gartnera/lite-confine/config"
	"github.com/gartnera/lite-confine/os_sandbox"
)

var runCmd = &cobra.Command{
	Use:   "run [--classic] <security-tag> <executable> [args...]",
	Short: "Run an executable under the confinement of a security tag",
	Long: `Run parses its own command line: only --classic and --version are
recognised, the first positional argument is the security tag and the second
is the executable. Everything after the executable is passed to it untouched.

Without --classic the executable runs inside bubblewrap using the profile
configured for the security tag.

Run accepts no other flags. Set LITE_CONFINE_LOG_LEVEL to change the log
level.`,
	DisableFlagParsing: true,
	SilenceUsage:       true,
	RunE: func(cmd *cobra.Command, argv []string) error {
		return runLaunch(cmd.OutOrStdout(), launcherArgv(argv))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// launcherArgv rebuilds a full argument vector for args.Parse from the
// arguments cobra left after the subcommand name.
func launcherArgv(argv []string) []string {
	prog := appName
	if len(os.Args) > 0 {
		prog = os.Args[0]
	}
	return append([]string{prog}, argv...)
}

// planLaunch parses argv and resolves what would be executed. The plan is
// nil for version queries.
func planLaunch(argv []string) (args.Args, *os_sandbox.Plan, error) {
	a, rest, err := args.Parse(argv)
	if err != nil {
		return args.Args{}, nil, err
	}
	slog.Debug("parsed command line",
		"security_tag", a.SecurityTag(),
		"executable", a.Executable(),
		"classic", a.IsClassicConfinement(),
		"version_query", a.IsVersionQuery(),
		"remaining", len(rest)-1,
	)
	if a.IsVersionQuery() {
		return a, nil, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return args.Args{}, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return args.Args{}, nil, fmt.Errorf("invalid config: %w", err)
	}

	workDir, err := os.Getwd()
	if err != nil {
		return args.Args{}, nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	plan, err := os_sandbox.NewPlan(os_sandbox.Request{
		SecurityTag: a.SecurityTag(),
		Executable:  a.Executable(),
		Args:        rest[1:],
		Classic:     a.IsClassicConfinement(),
		WorkDir:     workDir,
		Profile:     cfg.Profile(a.SecurityTag()),
		Bwrap:       cfg.Bwrap,
	})
	if err != nil {
		return args.Args{}, nil, err
	}
	return a, plan, nil
}

// runLaunch is the launcher proper: print the version or replace the
// process with the planned command.
func runLaunch(stdout io.Writer, argv []string) error {
	a, plan, err := planLaunch(argv)
	if err != nil {
		return err
	}
	defer a.Release()

	if a.IsVersionQuery() {
		fmt.Fprintf(stdout, "%s %s\n", appName, version)
		return nil
	}
	return plan.Exec(os.Environ())
}
