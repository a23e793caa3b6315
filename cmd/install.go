package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gartnera/lite-confine/args"
)

var installForce bool

var installCmd = &cobra.Command{
	Use:   "install-legacy <dir>",
	Short: "Install the ubuntu-core-launcher compatibility symlink",
	Long: `Creates <dir>/ubuntu-core-launcher pointing at this binary. Programs
that still call the old launcher pass the security tag twice; when invoked
through the symlink the first copy is discarded.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	addLogLevelFlag(installCmd.Flags())
	installCmd.Flags().BoolVar(&installForce, "force", false, "Replace an existing file")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, argv []string) error {
	// Get the path to the current binary
	binPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	binPath, err = filepath.EvalSymlinks(binPath)
	if err != nil {
		return fmt.Errorf("failed to resolve symlinks: %w", err)
	}

	link, err := installLegacyLink(argv[0], binPath, installForce)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Installed %s -> %s\n", link, binPath)
	return nil
}

// installLegacyLink creates dir/ubuntu-core-launcher pointing at target and
// returns the link path. An existing link to target is left alone.
func installLegacyLink(dir, target string, force bool) (string, error) {
	link := filepath.Join(dir, args.LegacyName)

	if existing, err := os.Readlink(link); err == nil && existing == target {
		return link, nil
	}
	if _, err := os.Lstat(link); err == nil {
		if !force {
			return "", fmt.Errorf("%s already exists (use --force to replace it)", link)
		}
		if err := os.Remove(link); err != nil {
			return "", fmt.Errorf("failed to remove %s: %w", link, err)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to access %s: %w", link, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	if err := os.Symlink(target, link); err != nil {
		return "", fmt.Errorf("failed to create symlink: %w", err)
	}
	return link, nil
}
