package kiln

// TargetKind is one element of a Target's kind set: what shape of artifact
// it produces.
type TargetKind int

const (
	KindLib TargetKind = iota
	KindBin
	KindTest
	KindExample
	KindDoc
)

// CrateType distinguishes the two ways a library target's kind set can ask
// to be compiled: as a dynamic library, a static archive (rlib), or both.
type CrateType int

const (
	CrateTypeDylib CrateType = 1 << iota
	CrateTypeRlib
)

// Profile carries the build-flavor flags of a Target: compile/test/doc/
// plugin, plus an opaque Env tag used by dependency-target selection.
type Profile struct {
	Test   bool
	Doc    bool
	Plugin bool
	// Env is an opaque string such as "compile", "test", "doc" used by the
	// Context to decide which target of a dependency package is relevant.
	Env string
}

func (p Profile) IsCompile() bool { return !p.Test && !p.Doc }
func (p Profile) IsTest() bool    { return p.Test }
func (p Profile) IsDoc() bool     { return p.Doc }
func (p Profile) IsPlugin() bool  { return p.Plugin }

// Target is a single compilation unit inside a Package.
type Target struct {
	Name string
	Kind []TargetKind
	// Crate is only meaningful when Kind contains KindLib: it declares
	// whether the library is built as a dylib, an rlib, or both.
	Crate   CrateType
	Profile Profile
	// Stem is the base name (without prefix/suffix/extension) used to
	// derive output filenames.
	Stem string
	// SourcePath is the target's entry-point source file, included in its
	// fingerprint input.
	SourcePath string
}

func (t Target) hasKind(k TargetKind) bool {
	for _, tk := range t.Kind {
		if tk == k {
			return true
		}
	}
	return false
}

func (t Target) IsLib() bool { return t.hasKind(KindLib) }
func (t Target) IsBin() bool { return t.hasKind(KindBin) }

func (t Target) IsDylib() bool { return t.IsLib() && t.Crate&CrateTypeDylib != 0 }
func (t Target) IsRlib() bool  { return t.IsLib() && t.Crate&CrateTypeRlib != 0 }

func (t Target) FileStem() string {
	if t.Stem != "" {
		return t.Stem
	}
	return t.Name
}

// PlatformKind is the platform disposition of a build: a Plugin runs on the
// build host (e.g. a compiler plugin), TargetPlatform is the ultimate
// runtime target, which may be a cross-compile.
type PlatformKind int

const (
	Plugin PlatformKind = iota
	TargetPlatform
)

func (k PlatformKind) String() string {
	if k == Plugin {
		return "plugin"
	}
	return "target"
}
