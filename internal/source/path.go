package source

import kiln "github.com/kilnbuild/kiln"

// PathSource fingerprints a package whose contents live directly on the
// local filesystem (SourceId.Kind == "path"): a recursive content hash of
// pkg.Root, so any edit under the package's own directory invalidates it.
type PathSource struct{}

func (PathSource) Fingerprint(pkg *kiln.Package) (string, error) {
	return hashTree(pkg.Root)
}
