// Package tools implements the external-tool capabilities the packaging
// session consumes: tree mirroring (rsync, or a native Go fallback),
// artifact assembly (dpkg-deb under fakeroot, or a native Go fallback),
// shared-library dependency scanning (dpkg-shlibdeps), and the host
// architecture query (dpkg).
//
// Every shelled-out tool lives behind a small struct with an overridable
// executable name, so tests can point it at a missing or fake binary.
package tools
