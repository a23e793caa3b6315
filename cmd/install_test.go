package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gartnera/lite-confine/args"
)

func TestInstallLegacyLink(t *testing.T) {
	tmpDir := t.TempDir()
	binDir := filepath.Join(tmpDir, "bin")
	target := "/usr/local/bin/lite-confine"

	// Test with non-existent directory
	link, err := installLegacyLink(binDir, target, false)
	if err != nil {
		t.Fatalf("installLegacyLink failed: %v", err)
	}
	if link != filepath.Join(binDir, "ubuntu-core-launcher") {
		t.Errorf("unexpected link path %s", link)
	}
	if !args.IsLegacyInvocation(link) {
		t.Errorf("%s is not recognised as a legacy invocation", link)
	}

	got, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("failed to read link: %v", err)
	}
	if got != target {
		t.Errorf("expected link to %s, got %s", target, got)
	}

	// Installing again is a no-op
	if _, err := installLegacyLink(binDir, target, false); err != nil {
		t.Fatalf("second install failed: %v", err)
	}

	// A different target needs --force
	_, err = installLegacyLink(binDir, "/opt/lite-confine", false)
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected --force error, got %v", err)
	}

	if _, err := installLegacyLink(binDir, "/opt/lite-confine", true); err != nil {
		t.Fatalf("forced install failed: %v", err)
	}
	got, err = os.Readlink(link)
	if err != nil {
		t.Fatalf("failed to read link: %v", err)
	}
	if got != "/opt/lite-confine" {
		t.Errorf("expected link to /opt/lite-confine, got %s", got)
	}
}

func TestInstallLegacyLinkRegularFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "ubuntu-core-launcher")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := installLegacyLink(tmpDir, "/usr/bin/lite-confine", false); err == nil {
		t.Fatal("expected error for existing regular file")
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "#!/bin/sh\n" {
		t.Errorf("existing file was modified: %q, %v", data, err)
	}
}
