package source

import (
	"os/exec"
	"strings"

	"golang.org/x/xerrors"

	kiln "github.com/kilnbuild/kiln"
)

// GitSource fingerprints a package pinned to a git revision (SourceId.Kind
// == "git"): the fingerprint is the resolved revision itself, since a git
// commit is already a content-addressed identity. Shells out to the git
// binary; the one subprocess call does not justify a git library.
type GitSource struct{}

func (GitSource) Fingerprint(pkg *kiln.Package) (string, error) {
	cmd := exec.Command("git", "-C", pkg.Root, "rev-parse", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return "", xerrors.Errorf("%v: %v", cmd.Args, err)
	}
	return strings.TrimSpace(string(out)), nil
}
