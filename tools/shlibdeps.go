package tools

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// shlibdepsPrefix marks the substvar line in dpkg-shlibdeps -O output.
const shlibdepsPrefix = "shlibs:Depends="

// DpkgShlibdeps computes the shared-library dependency declaration for a
// binary by running dpkg-shlibdeps against it.
//
// dpkg-shlibdeps insists on a debian/control file below its working
// directory, so Scan runs the tool from a scratch directory holding a
// minimal stub.
type DpkgShlibdeps struct {
	// Tool is the dpkg-shlibdeps executable. Empty means "dpkg-shlibdeps"
	// from PATH.
	Tool string
}

// Scan runs the scanner against the binary and returns the dependency
// declaration, e.g. "libc6 (>= 2.34), libgl1".
func (d DpkgShlibdeps) Scan(binary string) (string, error) {
	tool := d.Tool
	if tool == "" {
		tool = "dpkg-shlibdeps"
	}
	if _, err := exec.LookPath(tool); err != nil {
		return "", fmt.Errorf("%s not available: %w", tool, err)
	}

	absBinary, err := filepath.Abs(binary)
	if err != nil {
		return "", err
	}

	scratch, err := os.MkdirTemp("", "shlibdeps-")
	if err != nil {
		return "", fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	stub := "Source: scan\nSection: misc\nPriority: optional\nMaintainer: nobody\n\nPackage: scan\nArchitecture: any\nDescription: scratch control stub\n"
	if err := os.MkdirAll(filepath.Join(scratch, "debian"), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(scratch, "debian", "control"), []byte(stub), 0644); err != nil {
		return "", err
	}

	cmd := exec.Command(tool, "-O", absBinary)
	cmd.Dir = scratch
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s -O %s: %w\n%s", tool, binary, err, out)
	}

	deps, ok := parseShlibdeps(string(out))
	if !ok {
		return "", fmt.Errorf("no %s line in %s output:\n%s", shlibdepsPrefix, tool, out)
	}
	return deps, nil
}

// parseShlibdeps extracts the dependency declaration from the substvar
// line of dpkg-shlibdeps -O output.
func parseShlibdeps(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, shlibdepsPrefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, shlibdepsPrefix)), true
		}
	}
	return "", false
}
