package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestPath(t *testing.T) {
	t.Setenv(EnvPath, "")
	p, err := Path()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(p) != "config.yaml" {
		t.Fatalf("expected config.yaml, got %s", filepath.Base(p))
	}
	if filepath.Base(filepath.Dir(p)) != appName {
		t.Fatalf("expected parent dir %s, got %s", appName, filepath.Base(filepath.Dir(p)))
	}
}

func TestPathOverride(t *testing.T) {
	want := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv(EnvPath, want)
	p, err := Path()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != want {
		t.Fatalf("expected %s, got %s", want, p)
	}
}

func TestLoadSave(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv(EnvPath, filepath.Join(tmp, "config.yaml"))

	// Load should return zero-value config when file doesn't exist.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Profiles) != 0 || cfg.Bwrap != "" || cfg.ShareNet != nil {
		t.Fatalf("expected zero config, got %+v", cfg)
	}

	off := false
	cfg.Bwrap = "/usr/bin/bwrap"
	cfg.Profiles = map[string]*Profile{
		"snap.hello.hello": {
			ReadPaths:  []string{"/opt/hello"},
			WritePaths: []string{"/home/me/.hello"},
			ShareNet:   &off,
		},
	}
	if err := Save(cfg); err != nil {
		t.Fatalf("save error: %v", err)
	}

	cfg2, err := Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if diff := cmp.Diff(cfg, cfg2); diff != "" {
		t.Fatalf("config mismatch after reload (-want +got):\n%s", diff)
	}
}

func TestLoadUnknownFields(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	t.Setenv(EnvPath, configPath)

	data := []byte("bwrap: /usr/bin/bwrap\nfuture_field: value\n")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bwrap != "/usr/bin/bwrap" {
		t.Fatalf("expected /usr/bin/bwrap, got %q", cfg.Bwrap)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	tmp := t.TempDir()
	configPath := filepath.Join(tmp, "config.yaml")
	t.Setenv(EnvPath, configPath)

	if err := os.WriteFile(configPath, []byte("profiles: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Fatalf("expected parsing error, got %v", err)
	}
}

func TestProfile(t *testing.T) {
	off := false
	on := true

	tests := []struct {
		name string
		cfg  *Config
		tag  string
		want Profile
	}{
		{
			name: "nil config",
			cfg:  nil,
			tag:  "a",
			want: Profile{ShareNet: &on},
		},
		{
			name: "unknown tag uses global network policy",
			cfg:  &Config{ShareNet: &off},
			tag:  "a",
			want: Profile{ShareNet: &off},
		},
		{
			name: "profile inherits global network policy",
			cfg: &Config{ShareNet: &off, Profiles: map[string]*Profile{
				"a": {WritePaths: []string{"/w"}},
			}},
			tag:  "a",
			want: Profile{WritePaths: []string{"/w"}, ShareNet: &off},
		},
		{
			name: "profile overrides network policy",
			cfg: &Config{ShareNet: &off, Profiles: map[string]*Profile{
				"a": {ReadPaths: []string{"/r"}, ShareNet: &on},
			}},
			tag:  "a",
			want: Profile{ReadPaths: []string{"/r"}, ShareNet: &on},
		},
		{
			name: "nil profile entry",
			cfg:  &Config{Profiles: map[string]*Profile{"a": nil}},
			tag:  "a",
			want: Profile{ShareNet: &on},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.Profile(tt.tag)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Profile(%q) mismatch (-want +got):\n%s", tt.tag, diff)
			}
		})
	}
}

func TestProfileIsCopy(t *testing.T) {
	cfg := &Config{Profiles: map[string]*Profile{
		"a": {WritePaths: []string{"/w"}},
	}}
	p := cfg.Profile("a")
	p.WritePaths[0] = "/changed"
	if cfg.Profiles["a"].WritePaths[0] != "/w" {
		t.Fatalf("Profile returned an aliased slice")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr []string
	}{
		{
			name: "empty",
			cfg:  &Config{},
		},
		{
			name: "valid",
			cfg: &Config{Bwrap: "/usr/bin/bwrap", Profiles: map[string]*Profile{
				"snap.a.b": {ReadPaths: []string{"/r"}, WritePaths: []string{"/w"}},
			}},
		},
		{
			name:    "relative bwrap",
			cfg:     &Config{Bwrap: "bwrap"},
			wantErr: []string{`bwrap: path "bwrap" is not absolute`},
		},
		{
			name: "bad tags and paths",
			cfg: &Config{Profiles: map[string]*Profile{
				"":         {},
				"--x":      {},
				"snap.a.b": {ReadPaths: []string{"r"}, WritePaths: []string{"w"}},
			}},
			wantErr: []string{
				`invalid security tag ""`,
				`invalid security tag "--x"`,
				`profiles.snap.a.b.read_paths: path "r" is not absolute`,
				`profiles.snap.a.b.write_paths: path "w" is not absolute`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected errors %q, got nil", tt.wantErr)
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not contain %q", err, want)
				}
			}
		})
	}
}

func TestWatch(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv(EnvPath, filepath.Join(tmp, "config.yaml"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 1)
	go func() {
		_ = Watch(ctx, func(cfg *Config) {
			// Save may surface as a create of an empty file first.
			if cfg.Bwrap == "" {
				return
			}
			select {
			case changed <- cfg:
			default:
			}
		})
	}()

	// Give the watcher time to start.
	time.Sleep(100 * time.Millisecond)

	// Write a config file to trigger the watcher.
	cfg := &Config{Bwrap: "/opt/bwrap"}
	if err := Save(cfg); err != nil {
		t.Fatalf("save error: %v", err)
	}

	select {
	case got := <-changed:
		if got.Bwrap != "/opt/bwrap" {
			t.Fatalf("expected /opt/bwrap, got %q", got.Bwrap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config change notification")
	}
}
