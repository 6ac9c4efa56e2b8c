// Package source implements the Source contract: given a
// Package, produce an opaque fingerprint string where only equality across
// builds matters. Three kinds exist, one per SourceId.Kind a PackageId can
// carry: a local filesystem path, a registry/tarball, and a pinned git
// revision.
package source

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/exp/mmap"
	"golang.org/x/xerrors"
)

// hashTree walks root and returns a stable content hash: every regular
// file's path (relative to root) and contents feed the hash, in sorted
// path order so the result does not depend on directory iteration order.
// Hidden entries (dotfiles/dirs, e.g. ".git") are skipped; they are not
// inputs to a compilation.
func hashTree(root string) (string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && d.Name()[0] == '.' {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return "", xerrors.Errorf("hashTree(%s): %v", root, err)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, rel := range paths {
		io.WriteString(h, rel)
		h.Write([]byte{0})
		readerAt, err := mmap.Open(filepath.Join(root, rel))
		if err != nil {
			return "", xerrors.Errorf("hashTree(%s): %v", root, err)
		}
		_, err = io.Copy(h, io.NewSectionReader(readerAt, 0, int64(readerAt.Len())))
		readerAt.Close()
		if err != nil {
			return "", xerrors.Errorf("hashTree(%s): %v", root, err)
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
