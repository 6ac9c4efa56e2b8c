// Package kiln implements the incremental-build core of a package-oriented
// build driver: the compilation context that resolves host/target platform
// concerns over a dependency graph, and the fingerprint engine that decides
// which build targets are fresh and which need recompiling.
//
// The package owns the data model (PackageId, Target, Profile, Kind,
// PlatformRequirement, Freshness) shared by the internal/probe,
// internal/layout, internal/buildctx, internal/fingerprint and
// internal/source packages. Manifest parsing, dependency resolution, the
// CLI surface and the actual job scheduler are external collaborators; kiln
// only arranges which compilations should happen, never runs them.
package kiln
