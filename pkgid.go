package kiln

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// SourceId identifies where a package's contents come from: a registry
// (tarball), a local path, or a pinned git revision. It is opaque to the
// core — only the Source implementation named by SourceId.Kind knows how to
// turn it into a fingerprint (see internal/source).
type SourceId struct {
	Kind string // e.g. "registry", "path", "git"
	Ref  string // registry URL, absolute path, or git remote URL
}

func (s SourceId) String() string {
	if s.Kind == "" {
		return s.Ref
	}
	return s.Kind + "+" + s.Ref
}

// PackageId is the globally unique identity of a package: (name, version,
// source). Two packages with the same name and version but a different
// source are distinct packages.
type PackageId struct {
	Name    string
	Version string
	Source  SourceId
}

func (id PackageId) String() string {
	return fmt.Sprintf("%s-%s(%s)", id.Name, id.Version, id.Source)
}

// Less orders two package ids by name, then by version (newest last), then
// by source. Versions are compared with semver when both are valid semver
// strings (the common case for registry sources); otherwise it falls back
// to a plain string comparison, since not every source's version scheme
// (e.g. a git revision-pinned package) is semver.
//
// A stable tie-break so that "pick the newest version among several
// candidates" is deterministic.
func (id PackageId) Less(other PackageId) bool {
	if id.Name != other.Name {
		return id.Name < other.Name
	}
	if id.Version != other.Version {
		if semver.IsValid(canonicalize(id.Version)) && semver.IsValid(canonicalize(other.Version)) {
			return semver.Compare(canonicalize(id.Version), canonicalize(other.Version)) < 0
		}
		return id.Version < other.Version
	}
	return id.Source.String() < other.Source.String()
}

// canonicalize prefixes a bare "1.2.3" version with "v", which is what
// golang.org/x/mod/semver requires and most package version strings omit.
func canonicalize(v string) string {
	if v == "" {
		return v
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}
