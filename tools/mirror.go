package tools

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// NativeMirror is an in-process replacement for the rsync mirror, for hosts
// without rsync. It follows the same contract: recursive copy preserving
// symlinks and permission bits with group/other write bits cleared, and
// deletion of destination entries that no longer exist in the source.
type NativeMirror struct{}

// Mirror copies the content of src into dst with mirror semantics,
// creating dst if absent.
func (NativeMirror) Mirror(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("reading mirror source: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("mirror source %s is not a directory", src)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("creating mirror destination: %w", err)
	}
	if err := mirrorDir(src, dst); err != nil {
		return fmt.Errorf("mirroring %s -> %s: %w", src, dst, err)
	}
	return nil
}

func mirrorDir(src, dst string) error {
	srcEntries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	// Mirror semantics: destination entries gone from the source go away.
	keep := make(map[string]bool, len(srcEntries))
	for _, e := range srcEntries {
		keep[e.Name()] = true
	}
	if dstEntries, err := os.ReadDir(dst); err == nil {
		for _, e := range dstEntries {
			if !keep[e.Name()] {
				if err := os.RemoveAll(filepath.Join(dst, e.Name())); err != nil {
					return err
				}
			}
		}
	}

	for _, e := range srcEntries {
		srcPath := filepath.Join(src, e.Name())
		dstPath := filepath.Join(dst, e.Name())

		info, err := e.Info()
		if err != nil {
			return err
		}
		perm := stripWriteBits(info.Mode().Perm())

		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			target, err := os.Readlink(srcPath)
			if err != nil {
				return err
			}
			if err := os.RemoveAll(dstPath); err != nil {
				return err
			}
			if err := os.Symlink(target, dstPath); err != nil {
				return err
			}
		case info.IsDir():
			if st, err := os.Lstat(dstPath); err == nil && !st.IsDir() {
				if err := os.RemoveAll(dstPath); err != nil {
					return err
				}
			}
			if err := os.MkdirAll(dstPath, perm); err != nil {
				return err
			}
			if err := os.Chmod(dstPath, perm); err != nil {
				return err
			}
			if err := mirrorDir(srcPath, dstPath); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			if st, err := os.Lstat(dstPath); err == nil && !st.Mode().IsRegular() {
				if err := os.RemoveAll(dstPath); err != nil {
					return err
				}
			}
			if err := copyFile(srcPath, dstPath, perm); err != nil {
				return err
			}
		default:
			// sockets, devices and the like are not package payload
		}
	}
	return nil
}

// stripWriteBits clears the group/other write bits, matching --chmod=go-w.
func stripWriteBits(m fs.FileMode) fs.FileMode {
	return m &^ 0022
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	// The open mode only applies on creation; chmod covers the
	// overwrite-existing case.
	if err := out.Chmod(perm); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
