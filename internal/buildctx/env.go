package buildctx

import (
	"strings"

	kiln "github.com/kilnbuild/kiln"
	"github.com/kilnbuild/kiln/internal/layout"
)

// BuildScriptEnv returns the environment variables a package's build-script
// process must see, in the KEY=value form os/exec consumes: OUT_DIR names
// the directory the script writes its outputs into (the package's native/
// subtree for kind), followed by the package-version variables.
func (c *Context) BuildScriptEnv(pkg *kiln.Package, kind kiln.PlatformKind) []string {
	pkgDir := layout.PackageDirName(pkg.Name(), pkg.Id.String())
	env := []string{"OUT_DIR=" + c.Layout(kind).Native(pkgDir)}
	return append(env, PkgVersionEnv(pkg)...)
}

// PkgVersionEnv splits pkg's version into its components and returns them
// as KILN_PKG_VERSION_{MAJOR,MINOR,PATCH,PRE} assignments, surfaced to the
// compiler and to build scripts so compiled code can embed its own
// version. A component the version string does not carry is set empty.
func PkgVersionEnv(pkg *kiln.Package) []string {
	major, minor, patch, pre := splitVersion(pkg.Id.Version)
	return []string{
		"KILN_PKG_VERSION_MAJOR=" + major,
		"KILN_PKG_VERSION_MINOR=" + minor,
		"KILN_PKG_VERSION_PATCH=" + patch,
		"KILN_PKG_VERSION_PRE=" + pre,
	}
}

func splitVersion(v string) (major, minor, patch, pre string) {
	v, pre, _ = strings.Cut(v, "-")
	parts := strings.SplitN(v, ".", 3)
	major = parts[0]
	if len(parts) > 1 {
		minor = parts[1]
	}
	if len(parts) > 2 {
		patch = parts[2]
	}
	return major, minor, patch, pre
}
