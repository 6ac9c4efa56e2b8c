// Package fingerprint implements the per-target and per-build-script
// freshness computation: given a Compilation Context and a target, it
// derives the fingerprint file locations, computes a content fingerprint,
// compares it to the previous build's recorded value and the previous
// build's dep-info file, and returns a Preparation the scheduler consumes.
package fingerprint

import (
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	kiln "github.com/kilnbuild/kiln"
	"github.com/kilnbuild/kiln/internal/buildctx"
	"github.com/kilnbuild/kiln/internal/layout"
	"github.com/kilnbuild/kiln/internal/siphash"
)

// Work is an opaque, idempotent unit of deferred work: filesystem I/O or a
// compiler subprocess invocation. The core never awaits Work itself — it
// hands Preparations to an external scheduler (internal/work).
type Work func() error

// Preparation is what the Fingerprint Engine returns for one target or
// build script: whether it is Fresh or Dirty, plus two units of work:
// WriteFingerprint, which the scheduler runs for every preparation after a
// successful compile, and PromoteOld, which renames prior artifacts forward
// and is only valid for a Fresh preparation (see promote).
type Preparation struct {
	Fresh            kiln.Freshness
	WriteFingerprint Work
	PromoteOld       Work
}

type rename struct{ src, dst string }

// PrepareTarget computes the fingerprint of one target, decides whether
// the previous build's recorded state still covers it, and returns the
// resulting Preparation.
func PrepareTarget(ctx *buildctx.Context, sources Sources, pkg *kiln.Package, target kiln.Target, kind kiln.PlatformKind) (Preparation, error) {
	pkgDir := layout.PackageDirName(pkg.Name(), pkg.Id.String())
	newProxy := ctx.Layout(kind)
	oldProxy := ctx.OldLayout(kind)
	fpdir := newProxy.Fingerprint(pkgDir)
	oldFpdir := oldProxy.Fingerprint(pkgDir)

	suffix := targetSuffix(target)
	fpFile := filepath.Join(fpdir, suffix)
	oldFpFile := filepath.Join(oldFpdir, suffix)
	depInfo := filepath.Join(fpdir, "dep-"+suffix)
	oldDepInfo := filepath.Join(oldFpdir, "dep-"+suffix)

	var fingerprintHex string
	if target.Profile.IsDoc() {
		pkgFp, err := sources.CalculatePkgFingerprint(pkg)
		if err != nil {
			return Preparation{}, err
		}
		fingerprintHex = siphash.Hex128(docTargetInput(ctx.Probe.VersionString, target, pkgFp))
	} else {
		fingerprintHex = siphash.Hex128(targetInput(ctx.Probe.VersionString, target))
	}

	areFilesFresh := true
	if !target.Profile.IsDoc() {
		var err error
		areFilesFresh, err = CalculateTargetFresh(pkg, oldDepInfo)
		if err != nil {
			return Preparation{}, err
		}
	}
	fresh := areFilesFresh && isRustcFresh(oldFpFile, fingerprintHex)

	pairs := []rename{{oldFpFile, fpFile}}
	if !target.Profile.IsDoc() {
		pairs = append(pairs, rename{oldDepInfo, depInfo})
		names, err := ctx.TargetFilenames(target)
		if err != nil {
			return Preparation{}, err
		}
		oldRoot, newRoot := oldProxy.OutDir(), newProxy.OutDir()
		for _, name := range names {
			pairs = append(pairs, rename{filepath.Join(oldRoot, name), filepath.Join(newRoot, name)})
		}
	}

	freshness := kiln.Dirty
	if fresh {
		freshness = kiln.Fresh
	}
	return assemble(freshness, fpFile, fingerprintHex, pairs), nil
}

// PrepareBuildCmd is PrepareTarget's counterpart for a package's custom
// build script. An empty build-script command list short-circuits to an
// always-fresh no-op pair without touching the filesystem.
func PrepareBuildCmd(ctx *buildctx.Context, sources Sources, pkg *kiln.Package) (Preparation, error) {
	if !pkg.HasBuildScript() {
		return Preparation{Fresh: kiln.Fresh, WriteFingerprint: noop, PromoteOld: noop}, nil
	}

	// TODO: should not always be TargetPlatform; a build script runs on
	// the host even when cross-compiling.
	const kind = kiln.TargetPlatform
	pkgDir := layout.PackageDirName(pkg.Name(), pkg.Id.String())
	newProxy := ctx.Layout(kind)
	oldProxy := ctx.OldLayout(kind)

	oldLoc := filepath.Join(oldProxy.Fingerprint(pkgDir), "build")
	newLoc := filepath.Join(newProxy.Fingerprint(pkgDir), "build")

	pkgFp, err := sources.CalculatePkgFingerprint(pkg)
	if err != nil {
		return Preparation{}, err
	}
	fingerprintHex := siphash.Hex128(rehash(ctx.Probe.VersionString, pkgFp))

	fresh := isRustcFresh(oldLoc, fingerprintHex)
	freshness := kiln.Dirty
	if fresh {
		freshness = kiln.Fresh
	}

	pairs := []rename{
		{oldLoc, newLoc},
		{oldProxy.Native(pkgDir), newProxy.Native(pkgDir)},
	}
	return assemble(freshness, newLoc, fingerprintHex, pairs), nil
}

// PrepareInit returns two independent, idempotent units of work that each
// create the new fingerprint directory. Duplicated because the scheduler
// runs one before and one after the compile step.
func PrepareInit(ctx *buildctx.Context, pkg *kiln.Package, kind kiln.PlatformKind) (Work, Work) {
	pkgDir := layout.PackageDirName(pkg.Name(), pkg.Id.String())
	dir := ctx.Layout(kind).Fingerprint(pkgDir)
	mkdir := func() error {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return xerrors.Errorf("fingerprint: init %s: %v", dir, err)
		}
		return nil
	}
	return mkdir, mkdir
}

func assemble(freshness kiln.Freshness, newFpLocation, fingerprintHex string, pairs []rename) Preparation {
	return Preparation{
		Fresh: freshness,
		WriteFingerprint: func() error {
			return writeFingerprint(newFpLocation, fingerprintHex)
		},
		PromoteOld: func() error {
			return promote(pairs)
		},
	}
}

func writeFingerprint(path, hex string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return xerrors.Errorf("writeFingerprint: %v", err)
	}
	if err := renameio.WriteFile(path, []byte(hex), 0644); err != nil {
		return xerrors.Errorf("writeFingerprint(%s): %v", path, err)
	}
	return nil
}

// promote renames each (src, dst) pair in order. A missing src is an
// error: scheduling PromoteOld is only valid on the Fresh path, where
// every prior-build source is known to exist.
func promote(pairs []rename) error {
	for _, p := range pairs {
		if err := os.MkdirAll(filepath.Dir(p.dst), 0755); err != nil {
			return xerrors.Errorf("promote: %v", err)
		}
		if err := os.Rename(p.src, p.dst); err != nil {
			return xerrors.Errorf("promote %s -> %s: %v", p.src, p.dst, err)
		}
	}
	return nil
}

func isRustcFresh(oldFpFile, fingerprintHex string) bool {
	b, err := os.ReadFile(oldFpFile)
	if err != nil {
		return false
	}
	return string(b) == fingerprintHex
}

func noop() error { return nil }

func targetSuffix(target kiln.Target) string {
	libkind := "bin"
	if target.IsLib() {
		libkind = "lib"
	}
	flavor := ""
	switch {
	case target.Profile.IsTest():
		flavor = "test-"
	case target.Profile.IsDoc():
		flavor = "doc-"
	}
	return flavor + libkind + "-" + target.Name
}
