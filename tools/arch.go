package tools

import (
	"os/exec"
	"strings"
)

// fallbackArch is the architecture reported when dpkg is unavailable.
const fallbackArch = "amd64"

// DpkgArch queries the host package architecture from dpkg.
type DpkgArch struct {
	// Tool is the dpkg executable. Empty means "dpkg" from PATH.
	Tool string
}

// Architecture returns `dpkg --print-architecture`, falling back to "amd64"
// when the tool is unavailable or gives no answer.
func (d DpkgArch) Architecture() string {
	tool := d.Tool
	if tool == "" {
		tool = "dpkg"
	}
	out, err := exec.Command(tool, "--print-architecture").Output()
	if err != nil {
		return fallbackArch
	}
	arch := strings.TrimSpace(string(out))
	if arch == "" {
		return fallbackArch
	}
	return arch
}

// StaticArch reports a fixed architecture, for configuration overrides and
// cross-builds.
type StaticArch string

// Architecture returns the fixed value.
func (s StaticArch) Architecture() string {
	return string(s)
}
