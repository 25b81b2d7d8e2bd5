// Package deb models the Debian package metadata this tool produces and
// provides just enough .deb plumbing to build and check artifacts.
//
// # Design Philosophy
//
// The packaging session normally delegates archive creation to dpkg-deb, so
// this package is not a general-purpose .deb library. It covers three needs:
//
//   - The control record: a structured view of the DEBIAN/control file,
//     rendered from a template or from built-in defaults, with literal
//     %VERSION% and %ARCH% placeholder substitution.
//   - Reading: extracting the control stanza back out of a built .deb for
//     verification and inspection, using the ar container format directly.
//   - Writing: a native archiver that turns a populated package root into a
//     .deb without dpkg-deb or fakeroot, fabricating root ownership in the
//     tar headers the way fakeroot would.
package deb
