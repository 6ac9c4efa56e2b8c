package source

import kiln "github.com/kilnbuild/kiln"

// RegistrySource fingerprints a package fetched from a registry as a
// tarball (SourceId.Kind == "registry"): a hash of the already-extracted
// tarball's contents at pkg.Root, stable across re-fetches of the same
// version. Tarball retrieval itself is out of scope; pkg.Root is assumed
// already populated by an external fetch step.
type RegistrySource struct{}

func (RegistrySource) Fingerprint(pkg *kiln.Package) (string, error) {
	return hashTree(pkg.Root)
}

// PickNewest returns the newest of candidates by kiln.PackageId.Less's
// version ordering, or the zero value and false if candidates is empty.
// Used when several versions of the same package are available from one
// registry.
func PickNewest(candidates []kiln.PackageId) (kiln.PackageId, bool) {
	if len(candidates) == 0 {
		return kiln.PackageId{}, false
	}
	newest := candidates[0]
	for _, c := range candidates[1:] {
		if newest.Less(c) {
			newest = c
		}
	}
	return newest, true
}
