package fingerprint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	kiln "github.com/kilnbuild/kiln"
	"github.com/kilnbuild/kiln/internal/buildctx"
	"github.com/kilnbuild/kiln/internal/layout"
	"github.com/kilnbuild/kiln/internal/probe"
	"github.com/kilnbuild/kiln/internal/siphash"
)

type fakeResolver map[kiln.PackageId][]kiln.PackageId

func (r fakeResolver) Deps(id kiln.PackageId) ([]kiln.PackageId, bool) {
	deps, ok := r[id]
	return deps, ok
}

type fakePackageSet map[kiln.PackageId]*kiln.Package

func (s fakePackageSet) Package(id kiln.PackageId) (*kiln.Package, bool) {
	p, ok := s[id]
	return p, ok
}

type fakeSource string

func (f fakeSource) Fingerprint(*kiln.Package) (string, error) { return string(f), nil }

func writeFakeCompiler(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-rustc")
	script := "#!/bin/sh\nif [ \"$1\" = \"-v\" ]; then\n  echo 'fakec 1.0.0'\n  exit 0\nfi\necho 'lib-.so'\necho '-.exe'\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("write fake compiler: %v", err)
	}
	return path
}

func newTestContext(t *testing.T) *buildctx.Context {
	t.Helper()
	fake := writeFakeCompiler(t)
	old := probe.Compiler
	probe.Compiler = fake
	t.Cleanup(func() { probe.Compiler = old })

	c, err := buildctx.New(context.Background(), "compile", fakeResolver{}, fakePackageSet{}, layout.New(t.TempDir()), nil, "")
	if err != nil {
		t.Fatalf("buildctx.New: %v", err)
	}
	return c
}

func TestCalculateTargetFreshAllInputsOlder(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "src", "lib.rs")
	if err := os.MkdirAll(filepath.Dir(input), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(input, []byte("fn f(){}"), 0644); err != nil {
		t.Fatal(err)
	}

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(input, old, old); err != nil {
		t.Fatal(err)
	}

	depInfo := filepath.Join(root, "out.d")
	if err := os.WriteFile(depInfo, []byte("out/lib.rlib: src/lib.rs\n"), 0644); err != nil {
		t.Fatal(err)
	}

	pkg := &kiln.Package{Root: root}
	fresh, err := CalculateTargetFresh(pkg, depInfo)
	if err != nil {
		t.Fatalf("CalculateTargetFresh: %v", err)
	}
	if !fresh {
		t.Error("CalculateTargetFresh = false, want true (input older than dep-info)")
	}
}

func TestCalculateTargetFreshInputNewer(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "lib.rs")
	if err := os.WriteFile(input, []byte("fn f(){}"), 0644); err != nil {
		t.Fatal(err)
	}

	depInfo := filepath.Join(root, "out.d")
	if err := os.WriteFile(depInfo, []byte("out/lib.rlib: lib.rs\n"), 0644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(depInfo, past, past); err != nil {
		t.Fatal(err)
	}
	// input's mtime (now) postdates depInfo's forced-past mtime.

	fresh, err := CalculateTargetFresh(pkgAt(root), depInfo)
	if err != nil {
		t.Fatalf("CalculateTargetFresh: %v", err)
	}
	if fresh {
		t.Error("CalculateTargetFresh = true, want false (input newer than dep-info)")
	}
}

func TestCalculateTargetFreshMissingDepInfo(t *testing.T) {
	root := t.TempDir()
	fresh, err := CalculateTargetFresh(pkgAt(root), filepath.Join(root, "absent.d"))
	if err != nil {
		t.Fatalf("CalculateTargetFresh: %v", err)
	}
	if fresh {
		t.Error("CalculateTargetFresh = true, want false (dep-info missing)")
	}
}

func TestCalculateTargetFreshMissingInput(t *testing.T) {
	root := t.TempDir()
	depInfo := filepath.Join(root, "out.d")
	if err := os.WriteFile(depInfo, []byte("out/lib.rlib: gone.rs\n"), 0644); err != nil {
		t.Fatal(err)
	}
	fresh, err := CalculateTargetFresh(pkgAt(root), depInfo)
	if err != nil {
		t.Fatalf("CalculateTargetFresh: %v", err)
	}
	if fresh {
		t.Error("CalculateTargetFresh = true, want false (input file missing)")
	}
}

func TestCalculateTargetFreshMalformedLine(t *testing.T) {
	root := t.TempDir()
	depInfo := filepath.Join(root, "out.d")
	if err := os.WriteFile(depInfo, []byte("no separator here\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := CalculateTargetFresh(pkgAt(root), depInfo); err == nil {
		t.Error("CalculateTargetFresh succeeded on a dep-info line without \": \", want error")
	}
}

func pkgAt(root string) *kiln.Package { return &kiln.Package{Root: root} }

func TestPrepareBuildCmdEmptyIsFreshNoop(t *testing.T) {
	c := newTestContext(t)
	if err := c.Host.Prepare(); err != nil {
		t.Fatal(err)
	}
	pkg := &kiln.Package{Id: kiln.PackageId{Name: "nobuild"}, Root: t.TempDir()}

	prep, err := PrepareBuildCmd(c, Sources{}, pkg)
	if err != nil {
		t.Fatalf("PrepareBuildCmd: %v", err)
	}
	if prep.Fresh != kiln.Fresh {
		t.Errorf("Fresh = %v, want Fresh for a package with no build script", prep.Fresh)
	}
	if err := prep.WriteFingerprint(); err != nil {
		t.Errorf("WriteFingerprint (noop): %v", err)
	}
	if err := prep.PromoteOld(); err != nil {
		t.Errorf("PromoteOld (noop): %v", err)
	}
}

func TestPrepareTargetFirstBuildIsDirty(t *testing.T) {
	c := newTestContext(t)
	if err := c.Host.Prepare(); err != nil {
		t.Fatal(err)
	}
	pkg := &kiln.Package{
		Id:   kiln.PackageId{Name: "widget", Version: "1.0.0", Source: kiln.SourceId{Kind: "path", Ref: t.TempDir()}},
		Root: t.TempDir(),
	}
	target := kiln.Target{Name: "widget", Stem: "widget", Kind: []kiln.TargetKind{kiln.KindBin}, Profile: kiln.Profile{Env: "compile"}}

	prep, err := PrepareTarget(c, Sources{"path": fakeSource("content-hash")}, pkg, target, kiln.TargetPlatform)
	if err != nil {
		t.Fatalf("PrepareTarget: %v", err)
	}
	if prep.Fresh != kiln.Dirty {
		t.Errorf("Fresh = %v, want Dirty on a first build (no prior fingerprint file)", prep.Fresh)
	}
	if err := prep.WriteFingerprint(); err != nil {
		t.Errorf("WriteFingerprint: %v", err)
	}
	// Promotion is only valid on the Fresh path; with no prior build there
	// is nothing to rename and the work unit must fail rather than
	// silently skip.
	if err := prep.PromoteOld(); err == nil {
		t.Error("PromoteOld succeeded on a first build, want error (no prior artifacts to promote)")
	}
}

func TestPrepareTargetFreshWhenHexMatchesAndInputsUnchanged(t *testing.T) {
	c := newTestContext(t)
	if err := c.Host.Prepare(); err != nil {
		t.Fatal(err)
	}
	pkgRoot := t.TempDir()
	pkg := &kiln.Package{
		Id:   kiln.PackageId{Name: "widget", Version: "1.0.0", Source: kiln.SourceId{Kind: "path", Ref: pkgRoot}},
		Root: pkgRoot,
	}
	target := kiln.Target{Name: "widget", Stem: "widget", Kind: []kiln.TargetKind{kiln.KindBin}, Profile: kiln.Profile{Env: "compile"}}

	pkgDir := layout.PackageDirName(pkg.Name(), pkg.Id.String())
	oldFpdir := c.OldLayout(kiln.TargetPlatform).Fingerprint(pkgDir)
	if err := os.MkdirAll(oldFpdir, 0755); err != nil {
		t.Fatal(err)
	}

	wantHex := siphash.Hex128(targetInput(c.Probe.VersionString, target))
	suffix := targetSuffix(target)
	if err := os.WriteFile(filepath.Join(oldFpdir, suffix), []byte(wantHex), 0644); err != nil {
		t.Fatal(err)
	}
	// No dep-info file at all: CalculateTargetFresh treats "absent" as not
	// fresh, so this scenario is expected to stay Dirty even with a
	// matching fingerprint hex — dep-info absence always wins.
	prep, err := PrepareTarget(c, Sources{"path": fakeSource("unused")}, pkg, target, kiln.TargetPlatform)
	if err != nil {
		t.Fatalf("PrepareTarget: %v", err)
	}
	if prep.Fresh != kiln.Dirty {
		t.Errorf("Fresh = %v, want Dirty (no dep-info present yet)", prep.Fresh)
	}

	// Now add a dep-info file with no (or trivially fresh) inputs: fresh
	// becomes possible.
	depInfo := filepath.Join(oldFpdir, "dep-"+suffix)
	if err := os.WriteFile(depInfo, []byte("out: \n"), 0644); err != nil {
		t.Fatal(err)
	}
	prep, err = PrepareTarget(c, Sources{"path": fakeSource("unused")}, pkg, target, kiln.TargetPlatform)
	if err != nil {
		t.Fatalf("PrepareTarget: %v", err)
	}
	if prep.Fresh != kiln.Fresh {
		t.Errorf("Fresh = %v, want Fresh (matching hex, no stale inputs)", prep.Fresh)
	}
}

func TestPrepareInitReturnsTwoIdempotentUnits(t *testing.T) {
	c := newTestContext(t)
	if err := c.Host.Prepare(); err != nil {
		t.Fatal(err)
	}
	pkg := &kiln.Package{Id: kiln.PackageId{Name: "widget", Version: "1.0.0"}, Root: t.TempDir()}

	before, after := PrepareInit(c, pkg, kiln.TargetPlatform)
	if err := before(); err != nil {
		t.Fatalf("before(): %v", err)
	}
	if err := after(); err != nil {
		t.Fatalf("after(): %v", err)
	}

	pkgDir := layout.PackageDirName(pkg.Name(), pkg.Id.String())
	dir := c.Layout(kiln.TargetPlatform).Fingerprint(pkgDir)
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Errorf("fingerprint dir %s not created: %v", dir, err)
	}
}
