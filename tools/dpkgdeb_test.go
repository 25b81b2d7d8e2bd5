package tools

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/etnz/deb-assembler/deb"
)

// createPackageRoot builds a minimal buildable package root.
func createPackageRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	if err := os.MkdirAll(filepath.Join(root, "DEBIAN"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "usr", "bin"), 0755); err != nil {
		t.Fatal(err)
	}
	control := "Package: build-test\nVersion: 1.0\nArchitecture: all\nMaintainer: Test <t@example.com>\nDescription: build test\n"
	if err := os.WriteFile(filepath.Join(root, "DEBIAN", "control"), []byte(control), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "usr", "bin", "hello"), []byte("#!/bin/sh\necho hello\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestNativeBuilder(t *testing.T) {
	root := createPackageRoot(t)
	outFile := filepath.Join(t.TempDir(), "build-test.deb")

	if err := (NativeBuilder{}).Build(root, outFile); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	content, err := deb.ExtractControlFile(outFile)
	if err != nil {
		t.Fatalf("reading back the artifact: %v", err)
	}
	c, err := deb.ParseControl(content)
	if err != nil {
		t.Fatalf("parsing read-back control: %v", err)
	}
	if c.Package != "build-test" {
		t.Errorf("expected package build-test, got %s", c.Package)
	}
}

func TestNativeBuilderBadRoot(t *testing.T) {
	root := t.TempDir() // no DEBIAN/control
	outFile := filepath.Join(t.TempDir(), "bad.deb")

	if err := (NativeBuilder{}).Build(root, outFile); err == nil {
		t.Fatal("expected error for root without control file")
	}
	if _, err := os.Stat(outFile); !os.IsNotExist(err) {
		t.Error("failed build left a partial artifact behind")
	}
}

func TestIntegrationDpkgDebBuild(t *testing.T) {
	// Ensure dpkg-deb is available
	if _, err := exec.LookPath("dpkg-deb"); err != nil {
		t.Skip("dpkg-deb not found, skipping integration test")
	}

	root := createPackageRoot(t)
	outFile := filepath.Join(t.TempDir(), "build-test.deb")

	if err := (DpkgDeb{}).Build(root, outFile); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// The -Zgzip flag is what keeps the artifact readable here.
	content, err := deb.ExtractControlFile(outFile)
	if err != nil {
		t.Fatalf("reading back the artifact: %v", err)
	}
	if !strings.Contains(content, "Package: build-test") {
		t.Errorf("control read-back missing Package:\n%s", content)
	}
}
