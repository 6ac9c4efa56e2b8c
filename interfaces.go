package kiln

// Resolver is the external collaborator that knows a package's direct
// dependency ids. Dependency *resolution* itself — turning
// version constraints into a concrete graph — is out of scope; the core
// only ever asks a Resolver "what does this package depend on".
type Resolver interface {
	// Deps returns the direct dependency ids of id, or ok=false if id is
	// unknown to the resolver.
	Deps(id PackageId) (deps []PackageId, ok bool)
}

// PackageSet is the external collaborator owning the packages participating
// in the build. Lookup by id is a linear scan in the reference
// implementation (internal/depgraph); dependency fan-out is small enough
// that indexing would not pay for itself.
type PackageSet interface {
	// Package returns the package with the given id, or ok=false if it is
	// not a member of the set. The caller treats a missing package as a
	// "BUG:"-class internal error, since every id reaching the context
	// should have come from a resolved graph over this same set.
	Package(id PackageId) (pkg *Package, ok bool)
}

// Source is the external collaborator that knows how to fingerprint a
// package's contents. The returned string is opaque:
// only equality across builds matters. Concrete implementations live in
// internal/source (path, registry/tarball, git-pinned-revision).
type Source interface {
	Fingerprint(pkg *Package) (string, error)
}
