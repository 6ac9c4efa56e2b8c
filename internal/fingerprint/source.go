package fingerprint

import (
	"golang.org/x/xerrors"

	kiln "github.com/kilnbuild/kiln"
)

// Sources maps a SourceId.Kind (e.g. "registry", "path", "git") to the
// Source implementation that fingerprints packages it produced, letting
// CalculatePkgFingerprint delegate by pkg.Id.Source.Kind.
type Sources map[string]kiln.Source

// CalculatePkgFingerprint delegates to the Source named by pkg's source
// id. The returned string is opaque; only equality across builds matters.
func (s Sources) CalculatePkgFingerprint(pkg *kiln.Package) (string, error) {
	src, ok := s[pkg.Id.Source.Kind]
	if !ok {
		return "", xerrors.Errorf("BUG: no Source registered for kind %q (package %s)", pkg.Id.Source.Kind, pkg.Id)
	}
	fp, err := src.Fingerprint(pkg)
	if err != nil {
		return "", xerrors.Errorf("calculatePkgFingerprint(%s): %v", pkg.Id, err)
	}
	return fp, nil
}
