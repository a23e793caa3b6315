package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/gartnera/lite-confine/os_sandbox"
)

var explainCmd = &cobra.Command{
	Use:   "explain [--classic] <security-tag> <executable> [args...]",
	Short: "Print what run would execute without executing it",
	Long: `Explain accepts exactly the same command line as run and prints the
resolved launch plan. Output is JSON unless stdout is a terminal.
Set LITE_CONFINE_LOG_LEVEL to change the log level.`,
	DisableFlagParsing: true,
	SilenceUsage:       true,
	RunE: func(cmd *cobra.Command, argv []string) error {
		out := cmd.OutOrStdout()
		return runExplain(out, launcherArgv(argv), isTerminal(out))
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)
}

// explainOutput is the JSON form of a launch plan.
type explainOutput struct {
	*os_sandbox.Plan
	Command string `json:"command"`
}

func runExplain(w io.Writer, argv []string, styled bool) error {
	a, plan, err := planLaunch(argv)
	if err != nil {
		return err
	}
	defer a.Release()

	if a.IsVersionQuery() {
		fmt.Fprintf(w, "%s %s\n", appName, version)
		return nil
	}
	if styled {
		_, err := io.WriteString(w, renderPlan(plan))
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(explainOutput{Plan: plan, Command: plan.String()})
}

// renderPlan formats plan for a terminal.
func renderPlan(plan *os_sandbox.Plan) string {
	labelStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("214"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	commandStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39"))

	mode := "strict"
	if plan.Classic {
		mode = "classic"
	}

	var sb strings.Builder
	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("%-13s", label)))
		sb.WriteString(valueStyle.Render(value))
		sb.WriteString("\n")
	}
	row("Security tag:", plan.SecurityTag)
	row("Confinement:", mode)
	row("Binary:", plan.Path)
	sb.WriteString("\n")
	sb.WriteString(commandStyle.Render(plan.String()))
	sb.WriteString("\n")
	return sb.String()
}
