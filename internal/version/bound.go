package version

import (
	"strconv"
	"strings"
)

// VersionBound is a 0-, 1-, 2-, or 3-field version prefix, e.g. the "1",
// "1.2" or "1.2.3" atoms spec.md §4.1 names. Precision records how many
// fields were actually given; the remaining fields are implicitly zero for
// comparison but matter for computing "the next value after this prefix".
type VersionBound struct {
	Major, Minor, Patch int
	Precision           int // 0 (unbounded/any), 1, 2, or 3 fields given
}

// parseBound parses a bare numeric prefix: "1", "1.2", or "1.2.3".
func parseBound(s string) (VersionBound, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return VersionBound{}, errInvalid(s, "empty version bound")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		return VersionBound{}, errInvalid(s, "too many numeric components")
	}
	var b VersionBound
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return VersionBound{}, errInvalid(s, "non-numeric or negative component")
		}
		nums[i] = n
	}
	b.Precision = len(nums)
	if len(nums) > 0 {
		b.Major = nums[0]
	}
	if len(nums) > 1 {
		b.Minor = nums[1]
	}
	if len(nums) > 2 {
		b.Patch = nums[2]
	}
	return b, nil
}

// Version returns the bound's value treated as a concrete (floor) Version,
// missing fields defaulting to zero.
func (b VersionBound) Version() Version {
	return Version{Major: b.Major, Minor: b.Minor, Patch: b.Patch}
}

// NextPrefix returns the smallest Version that is NOT covered by this bound
// interpreted as a prefix, i.e. the exclusive upper edge of the window
// spanned by "X", "X.Y", or "X.Y.Z". For a 3-field bound (an exact version)
// this is the version immediately following it in patch order with no
// prerelease, which is used as an exclusive upper for pinned atoms.
func (b VersionBound) NextPrefix() Version {
	switch b.Precision {
	case 1:
		return Version{Major: b.Major + 1}
	case 2:
		return Version{Major: b.Major, Minor: b.Minor + 1}
	default: // 3 or 0
		return Version{Major: b.Major, Minor: b.Minor, Patch: b.Patch + 1}
	}
}
