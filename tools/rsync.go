package tools

import (
	"fmt"
	"os"
	"os/exec"
)

// Rsync mirrors a directory tree by shelling out to rsync.
//
// Archive mode preserves symlinks and permission bits, --delete removes
// destination entries gone from the source, and --chmod=go-w clears the
// group/other write bits on everything copied.
type Rsync struct {
	// Tool is the rsync executable. Empty means "rsync" from PATH.
	Tool string
}

// Mirror copies the content of src into dst with mirror semantics,
// creating dst if absent.
func (r Rsync) Mirror(src, dst string) error {
	tool := r.Tool
	if tool == "" {
		tool = "rsync"
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("creating mirror destination: %w", err)
	}

	// Trailing slash on the source: rsync then copies the directory's
	// content rather than the directory itself.
	cmd := exec.Command(tool, "-a", "--delete", "--chmod=go-w", src+"/", dst+"/")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("rsync %s -> %s: %w\n%s", src, dst, err, out)
	}
	return nil
}
