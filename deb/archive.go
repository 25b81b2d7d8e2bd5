package deb

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blakesmith/ar"
)

// countingWriter wraps an io.Writer and counts the bytes written.
type countingWriter struct {
	w io.Writer
	n int64
}

// Write writes p to the underlying io.Writer and increments the byte count.
func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// ExtractControl locates the control.tar member inside a .deb stream and
// returns the text of the 'control' file it contains.
func ExtractControl(r io.Reader) (string, error) {
	arR := ar.NewReader(r)

	for {
		header, err := arR.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("reading ar header: %w", err)
		}

		if !strings.HasPrefix(header.Name, "control.tar") {
			continue
		}

		var tr *tar.Reader
		if strings.HasSuffix(header.Name, ".gz") {
			gzr, err := gzip.NewReader(arR)
			if err != nil {
				return "", fmt.Errorf("opening %s: %w", header.Name, err)
			}
			defer gzr.Close()
			tr = tar.NewReader(gzr)
		} else {
			tr = tar.NewReader(arR)
		}

		for {
			th, err := tr.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", fmt.Errorf("reading control tar: %w", err)
			}
			if filepath.Base(th.Name) == string(FileControl) {
				var buf strings.Builder
				if _, err := io.Copy(&buf, tr); err != nil {
					return "", fmt.Errorf("reading control: %w", err)
				}
				return buf.String(), nil
			}
		}
	}
	return "", fmt.Errorf("control file not found")
}

// ExtractControlFile is a convenience wrapper over ExtractControl for a .deb
// on disk.
func ExtractControlFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return ExtractControl(f)
}

// WriteFromDir assembles a .deb from a populated package root and writes it
// to w, returning the number of bytes written.
//
// The root must contain a DEBIAN directory with at least a control file;
// everything else under the root becomes the payload. File ownership in the
// archive is forced to root:root, which is what running dpkg-deb under
// fakeroot achieves.
func WriteFromDir(w io.Writer, root string) (int64, error) {
	cw := &countingWriter{w: w}

	// Payload first: the control archive needs the payload checksums.
	dataBuf := new(bytes.Buffer)
	md5Map, err := buildDataFromDir(dataBuf, root)
	if err != nil {
		return cw.n, fmt.Errorf("building data archive: %w", err)
	}

	controlBuf := new(bytes.Buffer)
	if err := buildControlFromDir(controlBuf, filepath.Join(root, "DEBIAN"), md5Map); err != nil {
		return cw.n, fmt.Errorf("building control archive: %w", err)
	}

	arW := ar.NewWriter(cw)
	if err := arW.WriteGlobalHeader(); err != nil {
		return cw.n, fmt.Errorf("writing ar global header: %w", err)
	}

	// Member order is mandated: debian-binary, control, data.
	// Reference: https://manpages.debian.org/unstable/dpkg-dev/deb.5.en.html#FORMAT
	if err := addBufferToAr(arW, string(PkgDebianBinary), []byte("2.0\n")); err != nil {
		return cw.n, fmt.Errorf("writing %s: %w", PkgDebianBinary, err)
	}
	if err := addBufferToAr(arW, string(PkgControlTarGz), controlBuf.Bytes()); err != nil {
		return cw.n, fmt.Errorf("writing %s: %w", PkgControlTarGz, err)
	}
	if err := addBufferToAr(arW, string(PkgDataTarGz), dataBuf.Bytes()); err != nil {
		return cw.n, fmt.Errorf("writing %s: %w", PkgDataTarGz, err)
	}

	return cw.n, nil
}

// addBufferToAr writes a named byte slice as a file entry to the AR archive.
func addBufferToAr(w *ar.Writer, name string, body []byte) error {
	header := &ar.Header{
		Name:    name,
		Size:    int64(len(body)),
		Mode:    0644,
		ModTime: time.Now(),
	}
	if err := w.WriteHeader(header); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// buildDataFromDir writes the gzipped data tarball for everything under root
// except the DEBIAN directory, preserving modes and symlinks while forcing
// root ownership. It returns the MD5 checksums of all regular files keyed by
// their archive path.
func buildDataFromDir(w io.Writer, root string) (map[string]string, error) {
	gw := gzip.NewWriter(w)
	defer gw.Close()
	tw := tar.NewWriter(gw)
	defer tw.Close()

	md5Map := make(map[string]string)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "DEBIAN" {
			return filepath.SkipDir
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		var link string
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}

		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		// dpkg-deb names entries ./path and writes root:root ownership.
		if rel == "." {
			header.Name = "./"
		} else {
			header.Name = "./" + filepath.ToSlash(rel)
			if info.IsDir() {
				header.Name += "/"
			}
		}
		header.Uid = 0
		header.Gid = 0
		header.Uname = "root"
		header.Gname = "root"

		switch {
		case info.Mode().IsRegular():
			if err := tw.WriteHeader(header); err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			h := md5.New()
			_, err = io.Copy(io.MultiWriter(tw, h), f)
			f.Close()
			if err != nil {
				return err
			}
			md5Map[strings.TrimPrefix(header.Name, "./")] = hex.EncodeToString(h.Sum(nil))
		case info.IsDir(), info.Mode()&fs.ModeSymlink != 0:
			if err := tw.WriteHeader(header); err != nil {
				return err
			}
		default:
			// sockets, devices and the like have no place in a package payload
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return md5Map, nil
}

// buildControlFromDir writes the gzipped control tarball from the DEBIAN
// directory, generating the md5sums member from the payload checksums.
// The control file must exist; maintainer scripts keep their executable mode.
func buildControlFromDir(w io.Writer, debianDir string, md5Map map[string]string) error {
	gw := gzip.NewWriter(w)
	defer gw.Close()
	tw := tar.NewWriter(gw)
	defer tw.Close()

	writeEntry := func(name ControlFile, content []byte, mode int64) error {
		header := &tar.Header{
			Name:    "./" + string(name),
			Size:    int64(len(content)),
			Mode:    mode,
			ModTime: time.Now(),
			Uname:   "root",
			Gname:   "root",
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		_, err := tw.Write(content)
		return err
	}

	control, err := os.ReadFile(filepath.Join(debianDir, string(FileControl)))
	if err != nil {
		return fmt.Errorf("package root has no control file: %w", err)
	}
	if err := writeEntry(FileControl, control, 0644); err != nil {
		return fmt.Errorf("writing control: %w", err)
	}

	if err := writeEntry(FileMd5sums, generateMd5sums(md5Map), 0644); err != nil {
		return fmt.Errorf("writing md5sums: %w", err)
	}

	entries, err := os.ReadDir(debianDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		name := ControlFile(e.Name())
		if name == FileControl || name == FileMd5sums || e.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(debianDir, e.Name()))
		if err != nil {
			return err
		}
		mode := int64(0644)
		if maintainerScripts[name] {
			mode = 0755
		}
		if err := writeEntry(name, content, mode); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

// generateMd5sums renders the md5sums control member, sorted by path.
func generateMd5sums(md5Map map[string]string) []byte {
	var paths []string
	for path := range md5Map {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var b strings.Builder
	for _, path := range paths {
		fmt.Fprintf(&b, "%s  %s\n", md5Map[path], path)
	}
	return []byte(b.String())
}

// InstalledSizeKB walks a package root and returns the payload size in
// kilobytes, rounded up, excluding the DEBIAN directory.
func InstalledSizeKB(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "DEBIAN" {
			return filepath.SkipDir
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return (total + 1023) / 1024, nil
}
