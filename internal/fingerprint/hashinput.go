package fingerprint

import (
	"fmt"
	"strconv"
	"strings"

	kiln "github.com/kilnbuild/kiln"
)

// targetInput builds the byte string hashed for a non-doc target: the
// compiler's version string plus every field of the target relevant to
// its compiled output. Field separators are themselves hashed to avoid
// concatenation ambiguity (e.g. name="ab",stem="c" vs name="a",stem="bc").
func targetInput(rustcVersion string, target kiln.Target) []byte {
	var b strings.Builder
	b.WriteString(rustcVersion)
	b.WriteByte(0)
	writeTarget(&b, target)
	return []byte(b.String())
}

// docTargetInput additionally folds in the package's content fingerprint,
// since doc targets have no dep-info to check.
func docTargetInput(rustcVersion string, target kiln.Target, pkgFingerprint string) []byte {
	var b strings.Builder
	b.WriteString(rustcVersion)
	b.WriteByte(0)
	writeTarget(&b, target)
	b.WriteByte(0)
	b.WriteString(pkgFingerprint)
	return []byte(b.String())
}

// rehash folds the compiler version string into a package content
// fingerprint: the same rule as targetInput, without a target.
func rehash(rustcVersion, pkgFingerprint string) []byte {
	var b strings.Builder
	b.WriteString(rustcVersion)
	b.WriteByte(0)
	b.WriteString(pkgFingerprint)
	return []byte(b.String())
}

func writeTarget(b *strings.Builder, target kiln.Target) {
	fmt.Fprintf(b, "name=%s\x00stem=%s\x00source=%s\x00", target.Name, target.FileStem(), target.SourcePath)
	fmt.Fprintf(b, "crate=%s\x00", strconv.Itoa(int(target.Crate)))
	for _, k := range target.Kind {
		fmt.Fprintf(b, "kind=%d,", int(k))
	}
	b.WriteByte(0)
	fmt.Fprintf(b, "test=%t,doc=%t,plugin=%t,env=%s", target.Profile.Test, target.Profile.Doc, target.Profile.Plugin, target.Profile.Env)
}
