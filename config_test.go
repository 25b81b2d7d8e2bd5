package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDecodeConfig(t *testing.T) {
	content := `package:
  name: kodi-custom
  maintainer: Custom <c@example.com>
paths:
  control_template: templates/control.in
  scan_binary: bin/kodi-custom
architecture: arm64
mirror: native
builder: native
scan: false
`
	path := filepath.Join(t.TempDir(), "deb-assembler.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := decodeConfig(path)
	if err != nil {
		t.Fatalf("decodeConfig failed: %v", err)
	}

	if config.Session.PackageName != "kodi-custom" {
		t.Errorf("package name not mapped: %s", config.Session.PackageName)
	}
	if config.Session.Maintainer != "Custom <c@example.com>" {
		t.Errorf("maintainer not mapped: %s", config.Session.Maintainer)
	}
	if config.Session.ControlTemplate != "templates/control.in" {
		t.Errorf("control template not mapped: %s", config.Session.ControlTemplate)
	}
	if config.Session.ScanBinary != "bin/kodi-custom" {
		t.Errorf("scan binary not mapped: %s", config.Session.ScanBinary)
	}
	if config.Architecture != "arm64" {
		t.Errorf("architecture not mapped: %s", config.Architecture)
	}
	if config.Mirror != "native" || config.Builder != "native" {
		t.Errorf("tool selection not mapped: %s %s", config.Mirror, config.Builder)
	}
	if config.Scan {
		t.Error("scan: false not mapped")
	}
}

func TestDecodeConfigMissingFile(t *testing.T) {
	config, err := decodeConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("a missing config file must not be an error: %v", err)
	}
	// Zero config with the scan enabled.
	if !config.Scan {
		t.Error("scan not enabled by default")
	}
	if config.Session.PackageName != "" {
		t.Errorf("unexpected default: %s", config.Session.PackageName)
	}
}

func TestDecodeConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("package: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := decodeConfig(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestApplyEnv(t *testing.T) {
	config := &Config{Scan: true}
	environ := []string{
		"DEB_HOST_ARCH=riscv64",
		"DEB_MAINTAINER=Env <e@example.com>",
		"GPG_PRIVATE_KEY=KEYDATA",
		"UNRELATED=x",
	}

	if err := applyEnv(config, environ); err != nil {
		t.Fatalf("applyEnv failed: %v", err)
	}
	if config.Architecture != "riscv64" {
		t.Errorf("architecture not overlaid: %s", config.Architecture)
	}
	if config.Session.Maintainer != "Env <e@example.com>" {
		t.Errorf("maintainer not overlaid: %s", config.Session.Maintainer)
	}
	if config.GPGKey != "KEYDATA" {
		t.Errorf("key not overlaid: %s", config.GPGKey)
	}
}

func TestApplyEnvKeepsYamlValues(t *testing.T) {
	config := &Config{Architecture: "arm64"}
	if err := applyEnv(config, []string{"PATH=/usr/bin"}); err != nil {
		t.Fatalf("applyEnv failed: %v", err)
	}
	if config.Architecture != "arm64" {
		t.Errorf("empty environment overwrote the config: %s", config.Architecture)
	}
}

func TestPositional(t *testing.T) {
	args := []string{"./out", "/opt"}
	if got := positional(args, 0, "./staging"); got != "./out" {
		t.Errorf("expected ./out, got %s", got)
	}
	if got := positional(args, 1, "/usr"); got != "/opt" {
		t.Errorf("expected /opt, got %s", got)
	}
	if got := positional(args, 2, "dist"); got != "dist" {
		t.Errorf("expected the default dist, got %s", got)
	}
	if got := positional(nil, 0, "./staging"); got != "./staging" {
		t.Errorf("expected the default ./staging, got %s", got)
	}
}
