package source

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	kiln "github.com/kilnbuild/kiln"
)

func TestPathSourceStableAcrossRuns(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "lib.rs"), []byte("fn f(){}"), 0644); err != nil {
		t.Fatal(err)
	}
	pkg := &kiln.Package{Root: root}

	var s PathSource
	a, err := s.Fingerprint(pkg)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	b, err := s.Fingerprint(pkg)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if a != b {
		t.Errorf("Fingerprint not stable: %q != %q", a, b)
	}
}

func TestPathSourceChangesWithContent(t *testing.T) {
	root := t.TempDir()
	fn := filepath.Join(root, "lib.rs")
	if err := os.WriteFile(fn, []byte("fn f(){}"), 0644); err != nil {
		t.Fatal(err)
	}
	pkg := &kiln.Package{Root: root}

	var s PathSource
	before, err := s.Fingerprint(pkg)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}

	if err := os.WriteFile(fn, []byte("fn f(){ do_more_work(); }"), 0644); err != nil {
		t.Fatal(err)
	}
	after, err := s.Fingerprint(pkg)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if before == after {
		t.Errorf("Fingerprint unchanged after editing a source file: %q", before)
	}
}

func TestPathSourceIgnoresDotfiles(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "lib.rs"), []byte("fn f(){}"), 0644); err != nil {
		t.Fatal(err)
	}
	pkg := &kiln.Package{Root: root}

	var s PathSource
	before, err := s.Fingerprint(pkg)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}

	if err := os.MkdirAll(filepath.Join(root, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref: refs/heads/main"), 0644); err != nil {
		t.Fatal(err)
	}
	after, err := s.Fingerprint(pkg)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if before != after {
		t.Errorf("Fingerprint changed after adding a dotfile/.git dir: %q != %q", before, after)
	}
}

func TestPickNewest(t *testing.T) {
	ids := []kiln.PackageId{
		{Name: "foo", Version: "1.0.0"},
		{Name: "foo", Version: "1.2.0"},
		{Name: "foo", Version: "1.1.0"},
	}
	newest, ok := PickNewest(ids)
	if !ok {
		t.Fatal("PickNewest reported no candidates")
	}
	if newest.Version != "1.2.0" {
		t.Errorf("PickNewest = %s, want version 1.2.0", newest.Version)
	}
}

func TestPickNewestEmpty(t *testing.T) {
	if _, ok := PickNewest(nil); ok {
		t.Error("PickNewest on empty input reported a candidate")
	}
}

func TestGitSourceReturnsHead(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	root := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", root}, args...)...)
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("%v: %v\n%s", cmd.Args, err, out)
		}
	}
	run("init", "-q")
	if err := os.WriteFile(filepath.Join(root, "f"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	run("add", "f")
	run("commit", "-q", "-m", "initial")

	var s GitSource
	rev, err := s.Fingerprint(&kiln.Package{Root: root})
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if len(rev) != 40 {
		t.Errorf("Fingerprint = %q, want a 40-char git revision", rev)
	}
}
