package tools

import (
	"os/exec"
	"strings"
	"testing"
)

func TestDpkgArchFallback(t *testing.T) {
	arch := DpkgArch{Tool: "no-such-dpkg-binary"}.Architecture()
	if arch != "amd64" {
		t.Errorf("expected amd64 fallback, got %s", arch)
	}
}

func TestStaticArch(t *testing.T) {
	if got := StaticArch("arm64").Architecture(); got != "arm64" {
		t.Errorf("expected arm64, got %s", got)
	}
}

func TestIntegrationDpkgArch(t *testing.T) {
	// Ensure dpkg is available
	if _, err := exec.LookPath("dpkg"); err != nil {
		t.Skip("dpkg not found, skipping integration test")
	}

	arch := DpkgArch{}.Architecture()
	if arch == "" || strings.ContainsAny(arch, " \t\n") {
		t.Errorf("unexpected architecture string: %q", arch)
	}
}
