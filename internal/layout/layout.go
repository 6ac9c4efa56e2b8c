// Package layout maps a (package, platform) pair onto the on-disk
// directories a build reads and writes: dependency artifacts, fingerprint
// files, and build-script output, plus a parallel "old" view of the
// previous build's equivalents.
package layout

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"

	"github.com/kilnbuild/kiln/internal/siphash"
)

// Layout owns the directories rooted at one build output root. Root and
// Root+".old" are always distinct paths; Prepare only ever touches Root.
type Layout struct {
	root string
}

// New returns a Layout rooted at root. Directories are not created until
// Prepare is called.
func New(root string) *Layout {
	return &Layout{root: root}
}

// Root is the build output root, e.g. what bin/dylib artifacts for the
// primary package are written directly into.
func (l *Layout) Root() string { return l.root }

// Deps is where compiled dependency artifacts are written, consumed as
// inputs by later compilations.
func (l *Layout) Deps() string { return filepath.Join(l.root, "deps") }

// PackageDirName derives the stable `<pkg-name>-<hash>` directory name
// used under Fingerprint and Native: the first 16 hex characters of the
// SipHash-1-3 digest of the package id string.
func PackageDirName(name, id string) string {
	return name + "-" + siphash.ShortHex([]byte(id))
}

// Fingerprint is the per-package directory holding per-target fingerprint
// files and dep-info files.
func (l *Layout) Fingerprint(pkgDir string) string {
	return filepath.Join(l.root, "fingerprint", pkgDir)
}

// Native is the build-script output root, exposed to custom build scripts
// via an environment variable by the surrounding driver.
func (l *Layout) Native(pkgDir string) string {
	return filepath.Join(l.root, "native", pkgDir)
}

// Old returns the Layout mirroring the previous build's equivalent roots.
// Its directories are not created by Prepare and may not exist on disk.
func (l *Layout) Old() *Layout {
	return &Layout{root: l.root + ".old"}
}

// Prepare creates the new roots recursively. Idempotent; must never touch
// the ".old" view. Holds an advisory flock on root for the duration, so
// concurrent drivers sharing a build root serialize their directory setup.
func (l *Layout) Prepare() error {
	if err := os.MkdirAll(l.root, 0755); err != nil {
		return xerrors.Errorf("layout: %v", err)
	}

	lockPath := filepath.Join(l.root, ".lock")
	fd, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return xerrors.Errorf("layout: %v", err)
	}
	defer fd.Close()
	if err := unix.Flock(int(fd.Fd()), unix.LOCK_EX); err != nil {
		return xerrors.Errorf("layout: flock %s: %v", lockPath, err)
	}
	defer unix.Flock(int(fd.Fd()), unix.LOCK_UN)

	for _, dir := range []string{l.Deps(), filepath.Join(l.root, "fingerprint"), filepath.Join(l.root, "native")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return xerrors.Errorf("layout: %v", err)
		}
	}
	return nil
}

// Proxy returns a view of this Layout for the given primary-ness: whether
// this is the user's root crate (outputs go directly into Root) or a
// dependency (outputs go into Deps).
func (l *Layout) Proxy(primary bool) *Proxy {
	return &Proxy{layout: l, primary: primary}
}

// Proxy is a Layout view scoped to one package's primary-ness. The
// Fingerprint Engine (internal/fingerprint) joins OutDir with the names
// from Context.TargetFilenames to locate a target's compiled artifacts.
type Proxy struct {
	layout  *Layout
	primary bool
}

// OutDir is Root when this proxy is for the primary (root) crate, Deps
// otherwise.
func (p *Proxy) OutDir() string {
	if p.primary {
		return p.layout.Root()
	}
	return p.layout.Deps()
}

func (p *Proxy) Fingerprint(pkgDir string) string { return p.layout.Fingerprint(pkgDir) }
func (p *Proxy) Native(pkgDir string) string      { return p.layout.Native(pkgDir) }
func (p *Proxy) Primary() bool                    { return p.primary }
