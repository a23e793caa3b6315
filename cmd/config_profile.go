package cmd

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/gartnera/lite-confine/config"
)

var profileWrite bool

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage per security tag confinement profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List security tags with a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		for _, tag := range cfg.Tags() {
			fmt.Fprintln(cmd.OutOrStdout(), tag)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <security-tag>",
	Short: "Show the effective profile of a security tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p := cfg.Profile(args[0])
		return yaml.NewEncoder(cmd.OutOrStdout()).Encode(&p)
	},
}

var profileAddPathCmd = &cobra.Command{
	Use:   "add-path <security-tag> <path>...",
	Short: "Bind paths into the sandbox of a security tag (read-only unless --write)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p := profileFor(cfg, args[0])
		for _, path := range args[1:] {
			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", path, err)
			}
			if profileWrite {
				p.WritePaths = appendUnique(p.WritePaths, abs)
			} else {
				p.ReadPaths = appendUnique(p.ReadPaths, abs)
			}
		}
		return saveConfig(cfg)
	},
}

var profileRemovePathCmd = &cobra.Command{
	Use:   "remove-path <security-tag> <path>...",
	Short: "Remove bound paths from the profile of a security tag",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		p, ok := cfg.Profiles[args[0]]
		if !ok || p == nil {
			return fmt.Errorf("no profile for security tag %q", args[0])
		}
		toRemove := make(map[string]bool, len(args)-1)
		for _, path := range args[1:] {
			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolving %s: %w", path, err)
			}
			toRemove[abs] = true
		}
		p.ReadPaths = slices.DeleteFunc(p.ReadPaths, func(s string) bool { return toRemove[s] })
		p.WritePaths = slices.DeleteFunc(p.WritePaths, func(s string) bool { return toRemove[s] })
		return saveConfig(cfg)
	},
}

var profileRemoveCmd = &cobra.Command{
	Use:   "remove <security-tag>...",
	Short: "Remove the profiles of security tags",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		for _, tag := range args {
			if _, ok := cfg.Profiles[tag]; !ok {
				return fmt.Errorf("no profile for security tag %q", tag)
			}
		}
		for _, tag := range args {
			delete(cfg.Profiles, tag)
		}
		return saveConfig(cfg)
	},
}

var profileShareNetCmd = &cobra.Command{
	Use:       "share-net <security-tag> on|off|default",
	Short:     "Set whether a security tag may use the host network",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"on", "off", "default"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		var share *bool
		switch args[1] {
		case "on":
			t := true
			share = &t
		case "off":
			f := false
			share = &f
		case "default":
			// Nothing to reset on a tag without a profile.
			if p, ok := cfg.Profiles[args[0]]; !ok || p == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "share-net for %s: %s\n", args[0], args[1])
				return nil
			}
		default:
			return fmt.Errorf("expected on, off or default, got %q", args[1])
		}
		profileFor(cfg, args[0]).ShareNet = share
		if err := saveConfig(cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "share-net for %s: %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	profileAddPathCmd.Flags().BoolVar(&profileWrite, "write", false, "Bind the paths writable")
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileAddPathCmd)
	profileCmd.AddCommand(profileRemovePathCmd)
	profileCmd.AddCommand(profileRemoveCmd)
	profileCmd.AddCommand(profileShareNetCmd)
	configCmd.AddCommand(profileCmd)
}

// profileFor returns the stored profile for tag, creating it if needed.
func profileFor(cfg *config.Config, tag string) *config.Profile {
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]*config.Profile)
	}
	p, ok := cfg.Profiles[tag]
	if !ok || p == nil {
		p = &config.Profile{}
		cfg.Profiles[tag] = p
	}
	return p
}

func appendUnique(list []string, s string) []string {
	if slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}
