package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/gartnera/lite-confine/args"
)

// usageLine is printed after every command line error.
func usageLine(legacy bool) string {
	if legacy {
		return "usage: " + args.LegacyName + " [--classic] <legacy-tag> <security-tag> <executable> [args...]"
	}
	return "usage: " + appName + " run [--classic] <security-tag> <executable> [args...]"
}

// reportError prints err for the user. Usage errors get the usage line and
// are styled when w is a terminal.
func reportError(w io.Writer, err error, legacy bool) {
	if !args.IsUsage(err) {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	fmt.Fprint(w, renderUsageError(err, legacy, isTerminal(w)))
}

// renderUsageError formats a command line error followed by usage help.
func renderUsageError(err error, legacy, styled bool) string {
	if !styled {
		return fmt.Sprintf("error: %v\n%s\n", err, usageLine(legacy))
	}

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("196"))

	usageStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	hintStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("242")).
		Italic(true)

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("✗ " + err.Error()))
	sb.WriteString("\n")
	sb.WriteString(usageStyle.Render(usageLine(legacy)))
	sb.WriteString("\n")
	sb.WriteString(hintStyle.Render("Pass --classic to run without the sandbox, or --version to print the version."))
	sb.WriteString("\n")
	return sb.String()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
