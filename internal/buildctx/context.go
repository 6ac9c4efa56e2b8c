// Package buildctx implements the Compilation Context: it owns the probed
// compiler facts and the Layouts for host and (optional) target platform,
// and derives the `requirements` map driving which packages must be built
// for the host versus the target versus both.
package buildctx

import (
	"context"
	"log"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	kiln "github.com/kilnbuild/kiln"
	"github.com/kilnbuild/kiln/internal/layout"
	"github.com/kilnbuild/kiln/internal/probe"
)

// Context borrows a Resolver, a PackageSet, host and optional target
// Layouts, and owns the Probe results plus the requirements map built by
// Prepare. Created once per build invocation; read-only once prepared.
type Context struct {
	// Env is the opaque build-flavor tag ("compile", "test", "doc",
	// "doc-all", ...) used by isRelevantTarget to pick a dependency's
	// relevant target.
	Env      string
	Resolver kiln.Resolver
	Packages kiln.PackageSet
	Host     *layout.Layout
	// Target is nil when the build is not cross-compiling; callers fall
	// back to Host wherever a target Layout is asked for.
	Target *layout.Layout
	Probe  probe.Result

	// Log receives diagnostic output. Defaults to log.Default() when
	// constructed via New.
	Log *log.Logger

	primary      bool
	requirements map[reqKey]kiln.PlatformRequirement
}

type reqKey struct {
	Pkg    kiln.PackageId
	Target string
}

// New constructs a Context, running the Compiler Probe once (or twice, for
// host and target, if targetTriple is a cross-compile target).
func New(ctx context.Context, env string, resolver kiln.Resolver, packages kiln.PackageSet, host, target *layout.Layout, targetTriple string) (*Context, error) {
	result, err := probe.Run(ctx, targetTriple)
	if err != nil {
		return nil, xerrors.Errorf("buildctx: %v", err)
	}
	return &Context{
		Env:          env,
		Resolver:     resolver,
		Packages:     packages,
		Host:         host,
		Target:       target,
		Probe:        result,
		Log:          log.Default(),
		requirements: make(map[reqKey]kiln.PlatformRequirement),
	}, nil
}

// logf logs through c.Log if one was set, tolerating a zero-value Context
// built directly in tests.
func (c *Context) logf(format string, args ...interface{}) {
	if c.Log == nil {
		return
	}
	c.Log.Printf(format, args...)
}

// SetPrimary switches this Context over to being the primary compilation
// unit, affecting Layout()'s notion of where outputs land.
func (c *Context) SetPrimary(v bool) { c.primary = v }

// Prepare creates the on-disk layouts (host and target, concurrently), then
// runs the requirement walk rooted at pkg for every compile-producing
// target.
func (c *Context) Prepare(pkg *kiln.Package) error {
	c.logf("buildctx: preparing %s (env=%s)", pkg.Id, c.Env)
	g, _ := errgroup.WithContext(context.Background())
	g.Go(c.Host.Prepare)
	if c.Target != nil {
		g.Go(c.Target.Prepare)
	}
	if err := g.Wait(); err != nil {
		return xerrors.Errorf("buildctx: preparing layout for %s: %v", pkg.Name(), err)
	}

	for _, t := range pkg.Targets() {
		if !t.Profile.IsCompile() {
			continue
		}
		if err := c.buildRequirements(pkg, t, kiln.TargetOnly, make(map[kiln.PackageId]bool)); err != nil {
			return err
		}
	}
	return nil
}

// buildRequirements is the requirement walk: a depth-first traversal
// with a per-walk visited set guarding against dependency cycles,
// lattice-combining the reachability class of every (package, target)
// pair it visits.
func (c *Context) buildRequirements(pkg *kiln.Package, target kiln.Target, req kiln.PlatformRequirement, visiting map[kiln.PackageId]bool) error {
	if visiting[pkg.Id] {
		return nil
	}
	visiting[pkg.Id] = true
	defer delete(visiting, pkg.Id)

	effective := req
	if target.Profile.IsPlugin() {
		effective = kiln.PluginOnly
	}

	key := reqKey{Pkg: pkg.Id, Target: target.Name}
	if existing, ok := c.requirements[key]; ok {
		c.requirements[key] = existing.Combine(effective)
	} else {
		c.requirements[key] = effective
	}

	deps, err := c.depTargets(pkg)
	if err != nil {
		return err
	}
	for _, dt := range deps {
		if err := c.buildRequirements(dt.Package, dt.Target, effective, visiting); err != nil {
			return err
		}
	}
	return nil
}

// GetRequirement returns the reachability class recorded for (pkg, target)
// by Prepare, defaulting to TargetOnly if the pair was never visited.
func (c *Context) GetRequirement(pkg *kiln.Package, target kiln.Target) kiln.PlatformRequirement {
	key := reqKey{Pkg: pkg.Id, Target: target.Name}
	if v, ok := c.requirements[key]; ok {
		return v
	}
	return kiln.TargetOnly
}

type depTarget struct {
	Package *kiln.Package
	Target  kiln.Target
}

// depTargets implements dependency-target selection: for each direct
// dependency package, at most one target is walked — the first relevant
// one in lexicographic target-name order, so a package declaring several
// relevant libs always contributes the same one regardless of manifest
// declaration order. A dependency with no matching target is silently
// skipped.
func (c *Context) depTargets(pkg *kiln.Package) ([]depTarget, error) {
	deps, ok := c.Resolver.Deps(pkg.Id)
	if !ok {
		return nil, nil
	}
	var out []depTarget
	for _, depID := range deps {
		depPkg, ok := c.Packages.Package(depID)
		if !ok {
			return nil, xerrors.Errorf("BUG: dependency %s of %s not found in package set (resolver/source contract violation)", depID, pkg.Id)
		}
		candidates := append([]kiln.Target(nil), depPkg.Targets()...)
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
		for _, t := range candidates {
			if c.isRelevantTarget(t) {
				out = append(out, depTarget{Package: depPkg, Target: t})
				break
			}
		}
	}
	return out, nil
}

func (c *Context) isRelevantTarget(t kiln.Target) bool {
	if !t.IsLib() {
		return false
	}
	switch c.Env {
	case "doc", "test":
		return t.Profile.IsCompile()
	case "doc-all":
		return t.Profile.IsCompile() || t.Profile.IsDoc()
	default:
		return t.Profile.Env == c.Env
	}
}

// Layout returns the directory layout proxy appropriate for kind: Plugin
// always resolves to the host Layout, TargetPlatform resolves to Target if
// set, Host otherwise. The proxy carries this Context's primary flag.
func (c *Context) Layout(kind kiln.PlatformKind) *layout.Proxy {
	if kind == kiln.Plugin {
		return c.Host.Proxy(c.primary)
	}
	l := c.Target
	if l == nil {
		l = c.Host
	}
	return l.Proxy(c.primary)
}

// OldLayout is Layout's counterpart over the previous build's mirror
// view, used by the Fingerprint Engine to locate prior fingerprint files
// and artifacts to promote forward.
func (c *Context) OldLayout(kind kiln.PlatformKind) *layout.Proxy {
	if kind == kiln.Plugin {
		return c.Host.Old().Proxy(c.primary)
	}
	l := c.Target
	if l == nil {
		l = c.Host
	}
	return l.Old().Proxy(c.primary)
}

// Dylib returns the (prefix, suffix) pair for dynamic libraries built for
// kind: the host pair for Plugin, the target pair for TargetPlatform.
func (c *Context) Dylib(kind kiln.PlatformKind) probe.Dylib {
	if kind == kiln.Plugin {
		return c.Probe.HostDylib
	}
	return c.Probe.TargetDylib
}

// TargetFilenames returns the exact output filename(s) for target. At
// least one is always returned; a target with no matching rule is a fatal
// configuration error.
func (c *Context) TargetFilenames(target kiln.Target) ([]string, error) {
	stem := target.FileStem()

	var ret []string
	if target.IsBin() || target.Profile.IsTest() {
		ret = append(ret, stem+c.Probe.TargetExeSuffix)
	} else {
		if target.IsDylib() {
			kind := kiln.TargetPlatform
			if target.Profile.IsPlugin() {
				kind = kiln.Plugin
			}
			d := c.Dylib(kind)
			ret = append(ret, d.Prefix+stem+d.Suffix)
		}
		if target.IsRlib() {
			ret = append(ret, "lib"+stem+".rlib")
		}
	}
	if len(ret) == 0 {
		return nil, xerrors.Errorf("BUG: target %q produced no output filenames (malformed target configuration)", target.Name)
	}
	return ret, nil
}
