package tools

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/etnz/deb-assembler/deb"
)

// DpkgDeb builds the package artifact by shelling out to dpkg-deb, under
// fakeroot when available so the payload is recorded with root:root
// ownership without the process running as root.
type DpkgDeb struct {
	// Tool is the dpkg-deb executable. Empty means "dpkg-deb" from PATH.
	Tool string
	// Fakeroot is the fakeroot executable. Empty means "fakeroot" from PATH.
	Fakeroot string
}

// Build assembles the package root at root into the archive outFile.
func (d DpkgDeb) Build(root, outFile string) error {
	tool := d.Tool
	if tool == "" {
		tool = "dpkg-deb"
	}
	fakeroot := d.Fakeroot
	if fakeroot == "" {
		fakeroot = "fakeroot"
	}

	// -Zgzip keeps the tar members gzip-compressed; modern dpkg defaults
	// to zstd, which the inspection code here cannot decompress.
	var args []string
	if _, err := exec.LookPath(fakeroot); err == nil {
		args = []string{fakeroot, tool, "-Zgzip", "--build", root, outFile}
	} else {
		// dpkg-deb can record root ownership itself when fakeroot is absent.
		args = []string{tool, "-Zgzip", "--root-owner-group", "--build", root, outFile}
	}

	cmd := exec.Command(args[0], args[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w\n%s", strings.Join(args, " "), err, out)
	}
	return nil
}

// NativeBuilder assembles the artifact in-process, for hosts without
// dpkg-deb. Ownership fabrication is handled by the archive writer.
type NativeBuilder struct{}

// Build assembles the package root at root into the archive outFile.
func (NativeBuilder) Build(root, outFile string) error {
	f, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outFile, err)
	}
	if _, err := deb.WriteFromDir(f, root); err != nil {
		f.Close()
		os.Remove(outFile)
		return fmt.Errorf("assembling %s: %w", outFile, err)
	}
	return f.Close()
}
