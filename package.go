package kiln

// Manifest is the already-resolved declaration of a package's targets and
// build-script command lines. Manifest *parsing* is explicitly out of
// scope for this core — a Manifest here is assumed to
// already exist, produced by an external collaborator.
type Manifest struct {
	Targets []Target
	// BuildCommands are the package's custom build-script command lines
	// (e.g. a "build.rs" equivalent). Empty means the package has no
	// build script.
	BuildCommands [][]string
}

// Package is a node in the resolved dependency graph: identity plus the
// already-parsed manifest, root directory on disk, and declared targets.
type Package struct {
	Id       PackageId
	Root     string
	Manifest Manifest
}

func (p *Package) Name() string { return p.Id.Name }

// Targets returns the package's declared compilation units.
func (p *Package) Targets() []Target { return p.Manifest.Targets }

// HasBuildScript reports whether the package declares any custom
// build-script command lines.
func (p *Package) HasBuildScript() bool { return len(p.Manifest.BuildCommands) > 0 }
