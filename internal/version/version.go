// Package version implements the version algebra described in SPEC_FULL.md
// §5.1: a Version type, prefix-based VersionBound parsing, VersionRange
// intersection, and VersionSpec as a canonicalized union of ranges.
//
// Version itself is built directly on Masterminds/semver's Version type —
// the same library golang-dep vendors for its own Version, and the one
// vcs_source.go reaches for when turning a VCS tag into a semver.Version
// (`semver.NewVersion(tv.name)`). Only the range/spec algebra above it is
// bespoke: spec.md §4.1's atom grammar (bare "X"/"X.Y" prefixes, caret,
// tilde, hyphen windows) has no equivalent in semver's own Constraint
// grammar, so VersionBound/VersionRange/VersionSpec are hand-rolled on top
// of the Version type semver already gives us.
package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// InvalidSpec is returned when a version spec atom cannot be parsed.
type InvalidSpec struct {
	Input string
	Cause string
}

func (e *InvalidSpec) Error() string {
	return fmt.Sprintf("invalid version spec %q: %s", e.Input, e.Cause)
}

// Version is a single, fully-specified semantic version: major.minor.patch
// plus optional prerelease and build metadata. The fields are exported
// (rather than wrapping *semver.Version directly) so Version stays a plain
// comparable value usable as a map key, the way it's used throughout
// internal/registry and internal/resolver.
type Version struct {
	Major, Minor, Patch int
	Pre                 string
	Build                string
}

// Parse parses a single fully-specified "major.minor.patch[-pre][+build]"
// string via semver.NewVersion. It does not accept partial forms ("1",
// "1.2") even though semver's own regex tolerates them; use ParseSpec for
// the atom grammar that does.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	if strings.Count(trimmed, ".") < 2 {
		return Version{}, &InvalidSpec{Input: s, Cause: "not a valid major.minor.patch version"}
	}
	sv, err := semver.NewVersion(trimmed)
	if err != nil {
		return Version{}, &InvalidSpec{Input: s, Cause: "not a valid major.minor.patch version"}
	}
	return fromSemver(sv), nil
}

// fromSemver copies a *semver.Version's fields into our comparable Version.
func fromSemver(sv *semver.Version) Version {
	return Version{
		Major: int(sv.Major()),
		Minor: int(sv.Minor()),
		Patch: int(sv.Patch()),
		Pre:   sv.Prerelease(),
		Build: sv.Metadata(),
	}
}

// toSemver rebuilds the *semver.Version backing v's comparisons. v.String()
// always reproduces valid semver.SemVerRegex input, since every Version in
// this package is built from Parse or from plain numeric struct literals,
// so the error return is unreachable in practice.
func (v Version) toSemver() *semver.Version {
	sv, err := semver.NewVersion(v.String())
	if err != nil {
		panic(errors.Wrapf(err, "version: %q is not a semver.NewVersion-parseable Version", v.String()))
	}
	return sv
}

// MustParse is Parse, panicking on error. Intended for tests and literals.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Pre != "" {
		s += "-" + v.Pre
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// IsPrerelease reports whether v carries a prerelease component.
func (v Version) IsPrerelease() bool {
	return v.Pre != ""
}

// Compare orders versions by (major, minor, patch, prerelease), delegating
// to semver.Version.Compare: build metadata never affects ordering, and a
// release version always sorts after any prerelease of the same numeric
// triple.
func (v Version) Compare(o Version) int {
	return v.toSemver().Compare(o.toSemver())
}

// Less reports whether v orders strictly before o.
func (v Version) Less(o Version) bool { return v.Compare(o) < 0 }

// Equal reports structural equality modulo build metadata.
func (v Version) Equal(o Version) bool { return v.Compare(o) == 0 }

// errInvalid wraps a cause string into an *InvalidSpec for the given input,
// satisfying the package's "Fails with InvalidSpec on malformed atoms"
// contract (SPEC_FULL.md §5.1 / spec.md §4.1).
func errInvalid(input, cause string) error {
	return errors.WithStack(&InvalidSpec{Input: input, Cause: cause})
}
