package vpm

import (
	"io"

	"github.com/vellum-lang/vpm/internal/platform"
	"github.com/vellum-lang/vpm/internal/resolver"
)

// UpgradeLevel bounds how far up(spec, level) is allowed to move a direct
// dependency (spec.md §4.4: "re-resolve with upgrade level MAJOR/MINOR/
// PATCH/FIXED as a ceiling on each direct dep").
type UpgradeLevel int

const (
	LevelMajor UpgradeLevel = iota
	LevelMinor
	LevelPatch
	LevelFixed
)

// Mode selects which file(s) a mutating op targets (spec.md §4.4's rm:
// "remove from project.deps (mode=project) or from manifest
// (mode=manifest)"; combined covers ops that touch both in one
// transaction).
type Mode int

const (
	ModeProject Mode = iota
	ModeManifest
	ModeCombined
)

// OpOptions replaces the teacher's variadic keyword-option pattern
// (ensure.go's flag.FlagSet-driven *dep ensure* options) with a single
// explicit struct, per spec.md §9's REDESIGN FLAG: every top-level op
// took "a bag of keyword options" in the distilled source; here every
// field an op might consult is named up front, so a caller (or test) can
// see the complete knob surface without reading the op's body.
type OpOptions struct {
	// Preserve is the preservation policy passed through to the resolver
	// (spec.md §4.3 step 2).
	Preserve resolver.Policy

	// Level bounds an up() op; ignored by every other op.
	Level UpgradeLevel

	// Mode selects project-only, manifest-only, or combined scope for ops
	// that support more than one (rm, free).
	Mode Mode

	// Platform overrides host-platform detection for artifact selection;
	// the zero value means "use platform.Host()".
	Platform platform.Platform

	// UpdateRegistry re-syncs the registry view before resolving, the way
	// `vpm up` conventionally refreshes package indexes first.
	UpdateRegistry bool

	Verbose bool

	// IOSink overrides the Environment's logger destination for the
	// duration of a single op call; nil means "use the Environment's own
	// Log".
	IOSink io.Writer

	// AllowAutoprecompile lets a mutating op trigger a precompile step
	// immediately after a successful install, rather than deferring it to
	// first use.
	AllowAutoprecompile bool
}

// DefaultOptions returns the zero-ish OpOptions a bare CLI invocation
// would use: TIERED preservation, PATCH upgrade ceiling, project-mode
// scope.
func DefaultOptions() OpOptions {
	return OpOptions{
		Preserve: resolver.PolicyTiered,
		Level:    LevelPatch,
		Mode:     ModeProject,
	}
}

func hostPlatformFor(opts OpOptions) platform.Platform {
	if opts.Platform == (platform.Platform{}) {
		return platform.Host()
	}
	return opts.Platform
}
