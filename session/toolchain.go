package session

// TreeMirror mirrors a directory tree from a source into a destination:
// recursive copy, symlinks and permission bits preserved, group/other write
// bits cleared, destination entries gone from the source removed.
type TreeMirror interface {
	Mirror(src, dst string) error
}

// ArchiveBuilder turns a populated package root into a single package file,
// recording the payload as root-owned.
type ArchiveBuilder interface {
	Build(root, outFile string) error
}

// DependencyScanner reports the dependency declaration for an executable,
// e.g. "libc6 (>= 2.34), libgl1".
type DependencyScanner interface {
	Scan(binary string) (string, error)
}

// ArchQuery reports the target package architecture. Implementations fall
// back to a default rather than failing.
type ArchQuery interface {
	Architecture() string
}

// Toolchain bundles the external capabilities a session consumes.
// Scanner is optional; the other three are required.
type Toolchain struct {
	Mirror  TreeMirror
	Builder ArchiveBuilder
	Scanner DependencyScanner
	Arch    ArchQuery
}
