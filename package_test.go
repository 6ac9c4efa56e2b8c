package kiln

import "testing"

func TestPackageName(t *testing.T) {
	p := &Package{Id: PackageId{Name: "foo", Version: "1.0.0"}}
	if got := p.Name(); got != "foo" {
		t.Errorf("Name() = %q, want %q", got, "foo")
	}
}

func TestPackageTargets(t *testing.T) {
	want := []Target{{Name: "a"}, {Name: "b"}}
	p := &Package{Manifest: Manifest{Targets: want}}
	got := p.Targets()
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "b" {
		t.Errorf("Targets() = %v, want %v", got, want)
	}
}

func TestPackageHasBuildScript(t *testing.T) {
	without := &Package{}
	if without.HasBuildScript() {
		t.Error("HasBuildScript() on empty BuildCommands should be false")
	}
	with := &Package{Manifest: Manifest{BuildCommands: [][]string{{"./build.sh"}}}}
	if !with.HasBuildScript() {
		t.Error("HasBuildScript() with a non-empty BuildCommands should be true")
	}
}
