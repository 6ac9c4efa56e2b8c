// Package probe extracts the three compiler-dependent, string-typed facts
// the rest of the engine treats as opaque: the compiler's verbose version
// string (a fingerprint input only) and the platform's dylib/exe filename
// parts, for host and optional cross-target.
package probe

import (
	"context"
	"os/exec"
	"strings"

	"golang.org/x/xerrors"
)

// Dylib is the (prefix, suffix) pair a dynamic library filename is built
// from, e.g. ("lib", ".so").
type Dylib struct {
	Prefix string
	Suffix string
}

// Result is everything the probe extracts for one run of the compiler:
// the host dylib parts always, the target dylib parts and exe suffix for
// whichever platform was asked about.
type Result struct {
	VersionString   string
	HostDylib       Dylib
	TargetDylib     Dylib
	TargetExeSuffix string
}

// Compiler is the command name invoked to probe (e.g. "rustc"); factored
// out so tests can point it at a fake.
var Compiler = "rustc"

// Run probes the compiler named by Compiler. If target is non-empty, the
// probe is treated as cross-compiling: the target dylib/exe parts are
// discovered by passing target to the compiler, and the host dylib parts
// are discovered with a second, separate invocation (no target flag). If
// target is empty, host and target dylib parts are identical by
// construction and only one filename-parts invocation runs.
func Run(ctx context.Context, target string) (Result, error) {
	version, err := versionString(ctx)
	if err != nil {
		return Result{}, xerrors.Errorf("probe: %v", err)
	}

	targetDylib, targetExe, err := filenameParts(ctx, target)
	if err != nil {
		return Result{}, xerrors.Errorf("probe: target filename parts: %v", err)
	}

	hostDylib := targetDylib
	if target != "" {
		hostDylib, _, err = filenameParts(ctx, "")
		if err != nil {
			return Result{}, xerrors.Errorf("probe: host filename parts: %v", err)
		}
	}

	return Result{
		VersionString:   version,
		HostDylib:       hostDylib,
		TargetDylib:     targetDylib,
		TargetExeSuffix: targetExe,
	}, nil
}

func versionString(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, Compiler, "-v", "verbose")
	out, err := cmd.Output()
	if err != nil {
		return "", xerrors.Errorf("%v: %v", cmd.Args, err)
	}
	return string(out), nil
}

// filenameParts asks the compiler what filename it would produce for a
// dylib crate-type and a bin crate-type, without actually compiling
// anything (--print-file-name with a bogus crate name). The compiler
// prints one line per requested crate-type, in request order.
func filenameParts(ctx context.Context, target string) (Dylib, string, error) {
	args := []string{
		"-",
		"--crate-name", "-",
		"--crate-type", "dylib",
		"--crate-type", "bin",
		"--print-file-name",
	}
	if target != "" {
		args = append(args, "--target", target)
	}
	cmd := exec.CommandContext(ctx, Compiler, args...)
	out, err := cmd.Output()
	if err != nil {
		return Dylib{}, "", xerrors.Errorf("%v: %v", cmd.Args, err)
	}

	dylib, exeSuffix, err := parseFilenameParts(string(out))
	if err != nil {
		return Dylib{}, "", xerrors.Errorf("%v: %v", cmd.Args, err)
	}
	return dylib, exeSuffix, nil
}

// parseFilenameParts parses the two print-file-name lines the compiler
// emits: the dylib line splits into exactly (prefix, suffix) on the
// crate-name placeholder; the bin line contributes only its suffix.
func parseFilenameParts(output string) (Dylib, string, error) {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) < 2 {
		return Dylib{}, "", xerrors.Errorf("BUG: produced %d lines, want at least 2", len(lines))
	}

	dylibParts := strings.Split(strings.TrimSpace(lines[0]), "-")
	if len(dylibParts) != 2 {
		return Dylib{}, "", xerrors.Errorf("BUG: dylib line %q has %d parts, want 2 (compiler output format changed?)", lines[0], len(dylibParts))
	}

	exeParts := strings.SplitN(strings.TrimSpace(lines[1]), "-", 2)
	if len(exeParts) != 2 {
		return Dylib{}, "", xerrors.Errorf("BUG: bin line %q has %d parts, want 2 (compiler output format changed?)", lines[1], len(exeParts))
	}

	return Dylib{Prefix: dylibParts[0], Suffix: dylibParts[1]}, exeParts[1], nil
}
