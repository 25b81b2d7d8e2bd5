// Package session orchestrates one packaging run: it owns a temporary
// package root, populates it from a staging tree, and settles its fate when
// the run ends.
package session

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/etnz/deb-assembler/deb"
)

// Documented defaults for the positional inputs.
const (
	DefaultStaging = "./staging"
	DefaultPrefix  = "/usr"
	DefaultOutDir  = "dist"
	DefaultVersion = "1.0"
)

// desktopEntry is the fixed descriptor injected into every package.
const desktopEntry = `[Desktop Entry]
Version=1.0
Type=Application
Name=Kodi
GenericName=Media Center
Comment=Manage and view your media
Exec=kodi
Icon=kodi
Terminal=false
Categories=AudioVideo;Video;Player;TV;
`

// defaultPostinst refreshes the desktop and icon caches after install, when
// the host has the tools for it.
const defaultPostinst = `#!/bin/sh
set -e
if command -v update-desktop-database >/dev/null 2>&1; then
    update-desktop-database -q /usr/share/applications || true
fi
if command -v gtk-update-icon-cache >/dev/null 2>&1; then
    gtk-update-icon-cache -q /usr/share/icons/hicolor || true
fi
exit 0
`

// Config carries the inputs of one packaging run. Empty fields take the
// documented defaults.
type Config struct {
	// StagingDir is the pre-built install tree to package.
	StagingDir string
	// Prefix is the install prefix inside the staging tree.
	Prefix string
	// OutputDir receives the built artifact, created if absent.
	OutputDir string
	// Version is substituted for %VERSION% and names the artifact.
	Version string

	// PackageName names the package and the artifact when no control
	// template provides its own name.
	PackageName string
	// Maintainer, Description and Homepage fill the synthesized control
	// record when no template is present.
	Maintainer  string
	Description string
	Homepage    string

	// ControlTemplate is the control template location; when the file is
	// absent the synthesized default record is used instead.
	ControlTemplate string
	// PreinstScript is installed as the preinst hook when present.
	PreinstScript string
	// PostinstScript is installed as the postinst hook when present;
	// otherwise the generated cache-refresh hook is installed.
	PostinstScript string
	// IconSource is the icon location relative to the populated prefix.
	IconSource string
	// ScanBinary is the dependency-scan target relative to the populated
	// prefix.
	ScanBinary string
}

func (c Config) withDefaults() Config {
	if c.StagingDir == "" {
		c.StagingDir = DefaultStaging
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutDir
	}
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.PackageName == "" {
		c.PackageName = "kodi-elementary"
	}
	if c.Maintainer == "" {
		c.Maintainer = "kodi-elementary maintainers <kodi-elementary@users.noreply.github.com>"
	}
	if c.Description == "" {
		c.Description = "Kodi Media Center\nUpstream Kodi packaged with the desktop entry and icon cache wired in."
	}
	if c.Homepage == "" {
		c.Homepage = "https://kodi.tv"
	}
	if c.ControlTemplate == "" {
		c.ControlTemplate = filepath.Join("packaging", "control.in")
	}
	if c.PreinstScript == "" {
		c.PreinstScript = filepath.Join("packaging", "preinst")
	}
	if c.PostinstScript == "" {
		c.PostinstScript = filepath.Join("packaging", "postinst")
	}
	if c.IconSource == "" {
		c.IconSource = filepath.Join("share", "pixmaps", "kodi.png")
	}
	if c.ScanBinary == "" {
		c.ScanBinary = filepath.Join("bin", "kodi")
	}
	return c
}

// Session owns one temporary package root for the duration of a packaging
// run. Allocate with New, execute with Run; Release settles the root's fate
// exactly once however the run ends.
type Session struct {
	cfg Config
	tc  Toolchain
	l   Listener

	// Root is the session's package root on disk.
	Root string

	// Stderr receives the preserved-root notice on failure. Defaults to
	// os.Stderr.
	Stderr io.Writer

	arch    string
	control *deb.Control

	releaseOnce sync.Once
}

// New allocates the unique package root for one run. The caller must
// arrange for Release to run, directly or through Run.
func New(cfg Config, tc Toolchain, l Listener) (*Session, error) {
	if l == nil {
		l = func(fmt.Stringer) {}
	}
	if tc.Mirror == nil || tc.Builder == nil || tc.Arch == nil {
		return nil, fmt.Errorf("toolchain is missing a required capability")
	}

	root, err := os.MkdirTemp("", "deb-assembler-*")
	if err != nil {
		return nil, fmt.Errorf("allocating package root: %w", err)
	}

	s := &Session{cfg: cfg.withDefaults(), tc: tc, l: l, Root: root}
	s.l(EventWorkdirCreated{Path: root})
	return s, nil
}

// Run executes the packaging steps in order and settles the package root:
// removed after success, preserved and reported after failure. It returns
// the path of the built artifact.
func (s *Session) Run() (artifact string, err error) {
	defer func() { s.Release(err != nil) }()
	return s.run()
}

func (s *Session) run() (string, error) {
	s.arch = s.tc.Arch.Architecture()

	if err := s.populateTree(); err != nil {
		return "", err
	}
	if err := s.injectDesktop(); err != nil {
		return "", err
	}
	if err := s.writeMetadata(); err != nil {
		return "", err
	}
	s.scanDependencies()
	return s.buildArtifact()
}

// prefixDir maps the absolute install prefix into the package root.
func (s *Session) prefixDir() string {
	return filepath.Join(s.Root, strings.TrimPrefix(s.cfg.Prefix, "/"))
}

func (s *Session) populateTree() error {
	src := filepath.Join(s.cfg.StagingDir, strings.TrimPrefix(s.cfg.Prefix, "/"))
	dst := s.prefixDir()
	if err := s.tc.Mirror.Mirror(src, dst); err != nil {
		return fmt.Errorf("populating package tree: %w", err)
	}
	s.l(EventTreeMirrored{Source: src, Dest: dst})
	return nil
}

func (s *Session) injectDesktop() error {
	appsDir := filepath.Join(s.Root, "usr", "share", "applications")
	if err := os.MkdirAll(appsDir, 0755); err != nil {
		return fmt.Errorf("creating applications dir: %w", err)
	}
	entry := filepath.Join(appsDir, "kodi.desktop")
	if err := os.WriteFile(entry, []byte(desktopEntry), 0644); err != nil {
		return fmt.Errorf("writing desktop entry: %w", err)
	}
	s.l(EventDesktopEntryWritten{Path: entry})

	return s.installIcon()
}

// installIcon copies the icon from the populated tree into the hicolor
// cache location, skipping when the tree has no icon or the destination is
// already byte-identical.
func (s *Session) installIcon() error {
	src := filepath.Join(s.prefixDir(), s.cfg.IconSource)
	srcBody, err := os.ReadFile(src)
	if err != nil {
		s.l(EventIconInstalled{Source: src, Skipped: true})
		return nil
	}

	dst := filepath.Join(s.Root, "usr", "share", "icons", "hicolor", "256x256", "apps", "kodi.png")
	if dstBody, err := os.ReadFile(dst); err == nil && bytes.Equal(srcBody, dstBody) {
		s.l(EventIconInstalled{Source: src, Dest: dst, Skipped: true})
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating icon dir: %w", err)
	}
	if err := os.WriteFile(dst, srcBody, 0644); err != nil {
		return fmt.Errorf("installing icon: %w", err)
	}
	s.l(EventIconInstalled{Source: src, Dest: dst})
	return nil
}

func (s *Session) writeMetadata() error {
	c, fromTemplate, err := s.loadControl()
	if err != nil {
		return err
	}

	// Installed-Size reflects the payload just mirrored in.
	kb, err := deb.InstalledSizeKB(s.Root)
	if err != nil {
		return fmt.Errorf("computing installed size: %w", err)
	}
	c.InstalledSizeKB = kb
	s.control = c

	if err := s.writeControl(); err != nil {
		return err
	}
	s.l(EventControlWritten{
		Path:         filepath.Join(s.Root, "DEBIAN", string(deb.FileControl)),
		Package:      c.Package,
		Version:      c.Version,
		Architecture: c.Architecture,
		FromTemplate: fromTemplate,
	})

	if err := s.installHook(s.cfg.PreinstScript, deb.FilePreinst, ""); err != nil {
		return err
	}
	return s.installHook(s.cfg.PostinstScript, deb.FilePostinst, defaultPostinst)
}

// loadControl produces the metadata record: from the control template when
// one exists, otherwise from the synthesized default. Both paths run
// through the same placeholder substitution.
func (s *Session) loadControl() (*deb.Control, bool, error) {
	text := s.defaultControl()
	fromTemplate := false

	body, err := os.ReadFile(s.cfg.ControlTemplate)
	switch {
	case err == nil:
		text = string(body)
		fromTemplate = true
	case os.IsNotExist(err):
	default:
		return nil, false, fmt.Errorf("reading control template: %w", err)
	}

	c, err := deb.ParseControl(deb.Substitute(text, s.cfg.Version, s.arch))
	if err != nil {
		if fromTemplate {
			return nil, false, fmt.Errorf("parsing control template %s: %w", s.cfg.ControlTemplate, err)
		}
		return nil, false, fmt.Errorf("parsing default control: %w", err)
	}
	return c, fromTemplate, nil
}

// defaultControl renders the synthesized record with the placeholder
// tokens still in place.
func (s *Session) defaultControl() string {
	c := deb.Control{
		Package:      s.cfg.PackageName,
		Version:      deb.TokenVersion,
		Architecture: deb.TokenArch,
		Maintainer:   s.cfg.Maintainer,
		Section:      "video",
		Priority:     "optional",
		Homepage:     s.cfg.Homepage,
		Description:  s.cfg.Description,
	}
	return c.Render()
}

func (s *Session) writeControl() error {
	debianDir := filepath.Join(s.Root, "DEBIAN")
	if err := os.MkdirAll(debianDir, 0755); err != nil {
		return fmt.Errorf("creating DEBIAN dir: %w", err)
	}
	path := filepath.Join(debianDir, string(deb.FileControl))
	if err := os.WriteFile(path, []byte(s.control.Render()), 0644); err != nil {
		return fmt.Errorf("writing control: %w", err)
	}
	return nil
}

// installHook installs a maintainer script from src when it exists. With a
// fallback, the generated script is installed instead of skipping.
func (s *Session) installHook(src string, name deb.ControlFile, fallback string) error {
	generated := false
	body, err := os.ReadFile(src)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		if fallback == "" {
			s.l(EventHookInstalled{Name: string(name), Skipped: true})
			return nil
		}
		body = []byte(fallback)
		generated = true
	default:
		return fmt.Errorf("reading hook %s: %w", src, err)
	}

	dst := filepath.Join(s.Root, "DEBIAN", string(name))
	if err := os.WriteFile(dst, body, 0755); err != nil {
		return fmt.Errorf("installing hook %s: %w", name, err)
	}
	s.l(EventHookInstalled{Name: string(name), Path: dst, Generated: generated})
	return nil
}

// scanDependencies runs the best-effort dependency scan: any failure is
// reported and swallowed, never propagated.
func (s *Session) scanDependencies() {
	if s.tc.Scanner == nil {
		s.l(EventDependencyScan{Skipped: true, Reason: "no scanner configured"})
		return
	}

	binary := filepath.Join(s.prefixDir(), s.cfg.ScanBinary)
	info, err := os.Stat(binary)
	if err != nil || !info.Mode().IsRegular() || info.Mode()&0111 == 0 {
		s.l(EventDependencyScan{Binary: binary, Skipped: true, Reason: "target missing or not executable"})
		return
	}

	deps, err := s.tc.Scanner.Scan(binary)
	if err != nil {
		s.l(EventDependencyScan{Binary: binary, Skipped: true, Reason: err.Error()})
		return
	}
	if deps == "" {
		s.l(EventDependencyScan{Binary: binary, Skipped: true, Reason: "scanner reported nothing"})
		return
	}

	s.control.MergeDepends(deps)
	if err := s.writeControl(); err != nil {
		s.l(EventDependencyScan{Binary: binary, Skipped: true, Reason: err.Error()})
		return
	}
	s.l(EventDependencyScan{Binary: binary, Depends: deps})
}

func (s *Session) buildArtifact() (string, error) {
	if err := os.MkdirAll(s.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	name := deb.ArtifactName(s.control.Package, s.cfg.Version, s.arch)
	outFile := filepath.Join(s.cfg.OutputDir, name)

	if err := s.tc.Builder.Build(s.Root, outFile); err != nil {
		return "", fmt.Errorf("building %s: %w", name, err)
	}
	st, err := os.Stat(outFile)
	if err != nil {
		return "", fmt.Errorf("built artifact missing: %w", err)
	}
	s.l(EventArtifactBuilt{Path: outFile, Size: st.Size()})

	if err := s.verifyArtifact(outFile); err != nil {
		return "", err
	}
	return outFile, nil
}

// verifyArtifact reads the control member back out of the built package and
// checks it against the record. A package that cannot be read back is a
// failed build, not a success.
func (s *Session) verifyArtifact(path string) error {
	content, err := deb.ExtractControlFile(path)
	if err != nil {
		return fmt.Errorf("verifying %s: %w", path, err)
	}
	c, err := deb.ParseControl(content)
	if err != nil {
		return fmt.Errorf("verifying %s: %w", path, err)
	}
	if c.Package != s.control.Package || c.Version != s.control.Version || c.Architecture != s.control.Architecture {
		return fmt.Errorf("artifact %s does not match the record: got %s %s %s, want %s %s %s",
			path, c.Package, c.Version, c.Architecture,
			s.control.Package, s.control.Version, s.control.Architecture)
	}
	s.l(EventArtifactVerified{Path: path, Package: c.Package, Version: c.Version, Architecture: c.Architecture})
	return nil
}

// Release settles the package root exactly once: removed after a successful
// run, preserved and reported on the error stream after a failed one. Safe
// to call from both the signal path and the normal exit path.
func (s *Session) Release(failed bool) {
	s.releaseOnce.Do(func() {
		if failed {
			fmt.Fprintf(s.stderr(), "Workdir preserved for inspection: %s\n", s.Root)
			s.l(EventWorkdirPreserved{Path: s.Root})
			return
		}
		s.removeRoot()
	})
}

func (s *Session) stderr() io.Writer {
	if s.Stderr != nil {
		return s.Stderr
	}
	return os.Stderr
}

// removeRoot escalates through three removal strategies. A root that
// survives all three costs a warning, never the run's success.
func (s *Session) removeRoot() {
	if err := os.RemoveAll(s.Root); err == nil {
		s.l(EventWorkdirRemoved{Path: s.Root, Strategy: "remove"})
		return
	}

	// Tools running under fakeroot can leave entries the plain removal
	// cannot touch; reclaim ownership and retry.
	owner := fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())
	if out, err := exec.Command("chown", "-R", owner, s.Root).CombinedOutput(); err != nil {
		s.l(EventCleanupWarning{Path: s.Root, Detail: fmt.Sprintf("chown: %v: %s", err, out)})
	} else if err := os.RemoveAll(s.Root); err == nil {
		s.l(EventWorkdirRemoved{Path: s.Root, Strategy: "chown"})
		return
	}

	// -n: a sudo that would prompt is as good as no sudo here.
	if out, err := exec.Command("sudo", "-n", "rm", "-rf", s.Root).CombinedOutput(); err != nil {
		s.l(EventCleanupWarning{Path: s.Root, Detail: fmt.Sprintf("sudo rm: %v: %s", err, out)})
		return
	}
	if _, err := os.Lstat(s.Root); err == nil {
		s.l(EventCleanupWarning{Path: s.Root, Detail: "workdir survived every removal strategy"})
		return
	}
	s.l(EventWorkdirRemoved{Path: s.Root, Strategy: "sudo"})
}
