package buildctx

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	kiln "github.com/kilnbuild/kiln"
	"github.com/kilnbuild/kiln/internal/layout"
)

func TestPkgVersionEnv(t *testing.T) {
	tests := []struct {
		version string
		want    []string
	}{
		{
			version: "1.2.3",
			want: []string{
				"KILN_PKG_VERSION_MAJOR=1",
				"KILN_PKG_VERSION_MINOR=2",
				"KILN_PKG_VERSION_PATCH=3",
				"KILN_PKG_VERSION_PRE=",
			},
		},
		{
			version: "0.5.0-alpha.1",
			want: []string{
				"KILN_PKG_VERSION_MAJOR=0",
				"KILN_PKG_VERSION_MINOR=5",
				"KILN_PKG_VERSION_PATCH=0",
				"KILN_PKG_VERSION_PRE=alpha.1",
			},
		},
		{
			version: "2",
			want: []string{
				"KILN_PKG_VERSION_MAJOR=2",
				"KILN_PKG_VERSION_MINOR=",
				"KILN_PKG_VERSION_PATCH=",
				"KILN_PKG_VERSION_PRE=",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			pkg := &kiln.Package{Id: kiln.PackageId{Name: "p", Version: tt.version}}
			if diff := cmp.Diff(tt.want, PkgVersionEnv(pkg)); diff != "" {
				t.Errorf("PkgVersionEnv mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildScriptEnvPointsOutDirAtNative(t *testing.T) {
	c := newTestContext(t, fakeResolver{}, fakePackageSet{}, "compile")
	pkg := &kiln.Package{Id: pkgID("scripted")}

	env := c.BuildScriptEnv(pkg, kiln.TargetPlatform)
	if len(env) == 0 || !strings.HasPrefix(env[0], "OUT_DIR=") {
		t.Fatalf("BuildScriptEnv = %v, want OUT_DIR=... first", env)
	}
	pkgDir := layout.PackageDirName(pkg.Name(), pkg.Id.String())
	want := "OUT_DIR=" + c.Layout(kiln.TargetPlatform).Native(pkgDir)
	if env[0] != want {
		t.Errorf("OUT_DIR entry = %q, want %q", env[0], want)
	}
	if len(env) != 5 {
		t.Errorf("BuildScriptEnv returned %d entries, want OUT_DIR plus 4 version entries", len(env))
	}
}
