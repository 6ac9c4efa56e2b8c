// Command kiln is a minimal end-to-end demonstration of the incremental
// build core wired together: internal/depgraph supplies a Resolver and
// PackageSet, internal/buildctx computes the requirements graph and target
// filenames, internal/fingerprint decides Fresh/Dirty per target, and
// internal/work schedules the resulting Preparations. It is deliberately
// thin: manifest parsing, dependency resolution, and the compiler's
// actual flags are all out of scope for the core.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	kiln "github.com/kilnbuild/kiln"
	"github.com/kilnbuild/kiln/internal/buildctx"
	"github.com/kilnbuild/kiln/internal/depgraph"
	"github.com/kilnbuild/kiln/internal/env"
	"github.com/kilnbuild/kiln/internal/fingerprint"
	"github.com/kilnbuild/kiln/internal/layout"
	"github.com/kilnbuild/kiln/internal/probe"
	"github.com/kilnbuild/kiln/internal/source"
	"github.com/kilnbuild/kiln/internal/trace"
	"github.com/kilnbuild/kiln/internal/work"
)

var (
	root     = flag.String("root", env.Root, "build output root")
	scenario = flag.String("scenario", "diamond", "demo package graph to build: single, diamond, or plugin")
	compiler = flag.String("compiler", "rustc", "compiler binary probed for version/filename facts")
	target   = flag.String("target", "", "cross-compile target triple; empty builds for the host only")
	workers  = flag.Int("workers", 4, "number of concurrent scheduler workers")
	traceOut = flag.String("trace", "", "write a chrome://tracing-format event log to this path")
)

func main() {
	flag.Parse()
	probe.Compiler = *compiler

	if *traceOut != "" {
		f, err := os.Create(*traceOut)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		trace.Sink(f)
	}

	if err := build(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func build(ctx context.Context) error {
	graph, rootID, err := demoGraph(*scenario)
	if err != nil {
		return err
	}

	hostLayout := layout.New(filepath.Join(*root, "host"))
	var targetLayout *layout.Layout
	if *target != "" {
		targetLayout = layout.New(filepath.Join(*root, "target", *target))
	}

	bctx, err := buildctx.New(ctx, "compile", graph, graph, hostLayout, targetLayout, *target)
	if err != nil {
		return fmt.Errorf("probing compiler: %w", err)
	}
	bctx.SetPrimary(true)

	rootPkg, _ := graph.Package(rootID)
	if err := bctx.Prepare(rootPkg); err != nil {
		return fmt.Errorf("preparing layout: %w", err)
	}

	sources := fingerprint.Sources{
		"path":     source.PathSource{},
		"registry": source.RegistrySource{},
		"git":      source.GitSource{},
	}

	units, err := buildUnits(bctx, graph, sources)
	if err != nil {
		return err
	}

	if err := work.Run(ctx, graph, units, *workers); err != nil {
		return fmt.Errorf("scheduling: %w", err)
	}

	for _, u := range units {
		state := kiln.Fresh
		for _, p := range u.Preparations {
			if p.Fresh == kiln.Dirty {
				state = kiln.Dirty
			}
		}
		fmt.Printf("%-40s %s\n", u.Pkg.Id, state)
	}
	return nil
}

// buildUnits prepares every package in the graph: one Preparation per
// compile-producing target plus one for the package's build script, and a
// Compile callback that stands in for the real compiler invocation (the
// core only decides which compilations happen, not their flags or output
// bytes).
func buildUnits(bctx *buildctx.Context, graph *depgraph.Graph, sources fingerprint.Sources) ([]*work.Unit, error) {
	var units []*work.Unit
	for _, pkg := range graph.Packages() {
		pkg := pkg
		kind := kiln.TargetPlatform

		// PrepareInit returns two identical idempotent mkdir units because
		// the scheduler runs one before the compile job and one after;
		// this demo driver has no real compile step to bracket, so both
		// run up front.
		mkdirBefore, mkdirAfter := fingerprint.PrepareInit(bctx, pkg, kind)
		if err := mkdirBefore(); err != nil {
			return nil, err
		}

		var preparations []fingerprint.Preparation
		for _, t := range pkg.Targets() {
			if !t.Profile.IsCompile() && !t.Profile.IsTest() && !t.Profile.IsDoc() {
				continue
			}
			effectiveKind := kind
			if t.Profile.IsPlugin() {
				effectiveKind = kiln.Plugin
			}
			prep, err := fingerprint.PrepareTarget(bctx, sources, pkg, t, effectiveKind)
			if err != nil {
				return nil, fmt.Errorf("preparing %s/%s: %w", pkg.Id, t.Name, err)
			}
			preparations = append(preparations, prep)
		}

		buildPrep, err := fingerprint.PrepareBuildCmd(bctx, sources, pkg)
		if err != nil {
			return nil, fmt.Errorf("preparing build script for %s: %w", pkg.Id, err)
		}
		preparations = append(preparations, buildPrep)

		if err := mkdirAfter(); err != nil {
			return nil, err
		}

		units = append(units, &work.Unit{
			Pkg:          pkg,
			Preparations: preparations,
			Compile: func(ctx context.Context) error {
				if pkg.HasBuildScript() {
					env := bctx.BuildScriptEnv(pkg, kind)
					log.Printf("kiln: would run build script for %s with %s", pkg.Id, env[0])
				}
				log.Printf("kiln: would invoke %s to compile %s", probe.Compiler, pkg.Id)
				return nil
			},
		})
	}
	return units, nil
}
