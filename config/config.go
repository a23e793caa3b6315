package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

const appName = "lite-confine"

// EnvPath overrides the config file location.
const EnvPath = "LITE_CONFINE_CONFIG"

// Config holds all user configuration. New fields can be added over time;
// unknown YAML fields are silently ignored for forward compatibility.
type Config struct {
	// Bwrap is the bubblewrap binary used for strict confinement. Empty means
	// look it up on PATH.
	Bwrap string `yaml:"bwrap,omitempty"`
	// ShareNet is the network policy for security tags without their own
	// setting. nil means share the network.
	ShareNet *bool `yaml:"share_net,omitempty"`
	// Profiles are keyed by security tag.
	Profiles map[string]*Profile `yaml:"profiles,omitempty"`
}

// Profile describes the strict confinement of one security tag.
type Profile struct {
	ReadPaths  []string `yaml:"read_paths,omitempty"`
	WritePaths []string `yaml:"write_paths,omitempty"`
	ShareNet   *bool    `yaml:"share_net,omitempty"`
}

// Profile returns the profile for tag with defaults applied. The returned
// profile is a copy and always has ShareNet set.
func (c *Config) Profile(tag string) Profile {
	var p Profile
	if c != nil {
		if cp, ok := c.Profiles[tag]; ok && cp != nil {
			p.ReadPaths = append(p.ReadPaths, cp.ReadPaths...)
			p.WritePaths = append(p.WritePaths, cp.WritePaths...)
			p.ShareNet = cp.ShareNet
		}
	}
	if p.ShareNet == nil {
		share := c.shareNet()
		p.ShareNet = &share
	}
	return p
}

func (c *Config) shareNet() bool {
	if c == nil || c.ShareNet == nil {
		return true
	}
	return *c.ShareNet
}

// Tags returns the configured security tags in sorted order.
func (c *Config) Tags() []string {
	tags := make([]string, 0, len(c.Profiles))
	for tag := range c.Profiles {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Validate checks that every configured path is absolute and every profile
// is keyed by a usable security tag.
func (c *Config) Validate() error {
	var errs []error
	if c.Bwrap != "" && !filepath.IsAbs(c.Bwrap) {
		errs = append(errs, fmt.Errorf("bwrap: path %q is not absolute", c.Bwrap))
	}
	for _, tag := range c.Tags() {
		if tag == "" || strings.HasPrefix(tag, "-") {
			errs = append(errs, fmt.Errorf("profiles: invalid security tag %q", tag))
			continue
		}
		p := c.Profiles[tag]
		if p == nil {
			continue
		}
		for _, path := range p.ReadPaths {
			if !filepath.IsAbs(path) {
				errs = append(errs, fmt.Errorf("profiles.%s.read_paths: path %q is not absolute", tag, path))
			}
		}
		for _, path := range p.WritePaths {
			if !filepath.IsAbs(path) {
				errs = append(errs, fmt.Errorf("profiles.%s.write_paths: path %q is not absolute", tag, path))
			}
		}
	}
	return errors.Join(errs...)
}

// Path returns the platform-appropriate config file path.
func Path() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("unable to determine config directory: %w", err)
	}
	return filepath.Join(dir, appName, "config.yaml"), nil
}

// Load reads and parses the config file. If the file does not exist,
// a zero-value Config is returned with no error.
func Load() (*Config, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to the YAML file, creating the directory if needed.
func Save(cfg *Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Watch monitors the config file for changes and calls onChange with the
// newly loaded Config. It blocks until ctx is cancelled. If the config
// directory does not exist yet, Watch creates it so fsnotify can watch it.
func Watch(ctx context.Context, onChange func(*Config)) error {
	p, err := Path()
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching config directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Only react to writes/creates of the config file itself.
			if filepath.Base(event.Name) != filepath.Base(p) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				cfg, err := Load()
				if err != nil {
					slog.Error("failed to reload config", "error", err)
					continue
				}
				onChange(cfg)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config watcher error", "error", err)
		}
	}
}
