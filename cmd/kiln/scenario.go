package main

import (
	"fmt"
	"os"
	"path/filepath"

	kiln "github.com/kilnbuild/kiln"
	"github.com/kilnbuild/kiln/internal/depgraph"
)

// demoGraph builds one of the built-in demo package graphs in memory,
// each package rooted at a real temporary directory so PathSource has
// real file contents to fingerprint.
func demoGraph(name string) (*depgraph.Graph, kiln.PackageId, error) {
	switch name {
	case "single":
		return singleBinaryScenario()
	case "diamond":
		return diamondScenario()
	case "plugin":
		return pluginScenario()
	default:
		return nil, kiln.PackageId{}, fmt.Errorf("unknown scenario %q (want single, diamond, or plugin)", name)
	}
}

func pathID(name, version string) kiln.PackageId {
	return kiln.PackageId{Name: name, Version: version, Source: kiln.SourceId{Kind: "path", Ref: name}}
}

// pkgDir creates a scratch directory for a demo package's source, seeded
// with a single file so content fingerprinting has something to hash.
func pkgDir(name string) (string, error) {
	dir, err := os.MkdirTemp("", "kiln-demo-"+name+"-")
	if err != nil {
		return "", err
	}
	stub := filepath.Join(dir, "lib.rs")
	if err := os.WriteFile(stub, []byte("// "+name+"\n"), 0644); err != nil {
		return "", err
	}
	return dir, nil
}

func libTarget(name string) kiln.Target {
	return kiln.Target{
		Name:       name,
		Kind:       []kiln.TargetKind{kiln.KindLib},
		Crate:      kiln.CrateTypeRlib,
		Profile:    kiln.Profile{Env: "compile"},
		Stem:       name,
		SourcePath: "lib.rs",
	}
}

func binTarget(name string) kiln.Target {
	return kiln.Target{
		Name:       name,
		Kind:       []kiln.TargetKind{kiln.KindBin},
		Profile:    kiln.Profile{Env: "compile"},
		Stem:       name,
		SourcePath: "main.rs",
	}
}

// singleBinaryScenario is a single bin target with no deps. In this demo
// driver every run reports it Dirty: the stand-in compile step writes no
// dep-info file, and nothing moves a previous build into the ".old" view
// that the Fingerprint Engine reads.
func singleBinaryScenario() (*depgraph.Graph, kiln.PackageId, error) {
	g := depgraph.New()
	dir, err := pkgDir("foo")
	if err != nil {
		return nil, kiln.PackageId{}, err
	}
	id := pathID("foo", "0.5.0")
	g.AddPackage(&kiln.Package{
		Id:       id,
		Root:     dir,
		Manifest: kiln.Manifest{Targets: []kiln.Target{binTarget("foo")}},
	})
	return g, id, nil
}

// diamondScenario is a -> b, a -> c, b -> d, c -> d, each package with a
// lib target (a also with a bin target), all with Env "compile". After
// Prepare(a), every entry in the requirements map is TargetOnly.
func diamondScenario() (*depgraph.Graph, kiln.PackageId, error) {
	g := depgraph.New()
	names := []string{"a", "b", "c", "d"}
	ids := make(map[string]kiln.PackageId, len(names))
	for _, n := range names {
		dir, err := pkgDir(n)
		if err != nil {
			return nil, kiln.PackageId{}, err
		}
		id := pathID(n, "1.0.0")
		ids[n] = id
		targets := []kiln.Target{libTarget(n + "-lib")}
		if n == "a" {
			targets = append(targets, binTarget("a-bin"))
		}
		g.AddPackage(&kiln.Package{Id: id, Root: dir, Manifest: kiln.Manifest{Targets: targets}})
	}
	for _, e := range [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}} {
		if err := g.AddDependency(ids[e[0]], ids[e[1]]); err != nil {
			return nil, kiln.PackageId{}, err
		}
	}
	return g, ids["a"], nil
}

// pluginScenario: a depends on a plugin library (profile.Plugin ==
// true), which itself depends on a util library; a also depends
// directly on the util library. After Prepare(a): a is
// TargetOnly, plugin_lib is PluginOnly, util_lib is Both (reachable via
// the plugin subgraph and directly).
func pluginScenario() (*depgraph.Graph, kiln.PackageId, error) {
	g := depgraph.New()

	aDir, err := pkgDir("a")
	if err != nil {
		return nil, kiln.PackageId{}, err
	}
	pluginDir, err := pkgDir("plugin_lib")
	if err != nil {
		return nil, kiln.PackageId{}, err
	}
	utilDir, err := pkgDir("util_lib")
	if err != nil {
		return nil, kiln.PackageId{}, err
	}

	aID := pathID("a", "1.0.0")
	pluginID := pathID("plugin_lib", "1.0.0")
	utilID := pathID("util_lib", "1.0.0")

	pluginTarget := libTarget("plugin_lib")
	pluginTarget.Profile.Plugin = true

	g.AddPackage(&kiln.Package{Id: aID, Root: aDir, Manifest: kiln.Manifest{Targets: []kiln.Target{binTarget("a-bin")}}})
	g.AddPackage(&kiln.Package{Id: pluginID, Root: pluginDir, Manifest: kiln.Manifest{Targets: []kiln.Target{pluginTarget}}})
	g.AddPackage(&kiln.Package{Id: utilID, Root: utilDir, Manifest: kiln.Manifest{Targets: []kiln.Target{libTarget("util_lib")}}})

	for _, e := range [][2]kiln.PackageId{{aID, pluginID}, {pluginID, utilID}, {aID, utilID}} {
		if err := g.AddDependency(e[0], e[1]); err != nil {
			return nil, kiln.PackageId{}, err
		}
	}
	return g, aID, nil
}
