package fingerprint

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"

	kiln "github.com/kilnbuild/kiln"
)

// CalculateTargetFresh reports whether a target's inputs are unchanged
// since the previous build: every input path named on the dep-info file's
// first line must exist and have an mtime no newer than the dep-info file
// itself. A missing or unreadable dep-info file is expected (first build,
// interrupted build) and simply reports not-fresh; a present file whose
// first line lacks the ": " separator means the compiler wrote something
// this tool does not understand, which is an error.
func CalculateTargetFresh(pkg *kiln.Package, depInfoPath string) (bool, error) {
	info, err := os.Stat(depInfoPath)
	if err != nil {
		return false, nil
	}
	refMtime := info.ModTime()

	f, err := os.Open(depInfoPath)
	if err != nil {
		return false, nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return false, nil
	}
	line := scanner.Text()

	_, rest, ok := strings.Cut(line, ": ")
	if !ok {
		return false, xerrors.Errorf("dep-info not in an understood format: %s", depInfoPath)
	}

	for _, input := range strings.Fields(rest) {
		fi, err := os.Stat(filepath.Join(pkg.Root, input))
		if err != nil {
			return false, nil
		}
		if fi.ModTime().After(refMtime) {
			return false, nil
		}
	}
	return true, nil
}
