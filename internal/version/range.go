package version

import "fmt"

// VersionRange is a contiguous window of versions: [Lower, Upper) by
// default, or [Lower, Upper] when UpperInclusive is set (used for exact
// pins and hyphen ranges). A nil Lower means "no lower bound"; a nil Upper
// means "no upper bound". An empty range (no version satisfies it) is
// represented by Empty == true rather than by degenerate bounds, so that
// VersionSpec can drop it unambiguously during merge.
type VersionRange struct {
	Lower          *Version
	Upper          *Version
	UpperInclusive bool
	Empty          bool
}

// unbounded is the range matching every version.
func unbounded() VersionRange { return VersionRange{} }

// emptyRange is the range matching no version.
func emptyRange() VersionRange { return VersionRange{Empty: true} }

func ptr(v Version) *Version { return &v }

// Contains reports whether v falls within r.
func (r VersionRange) Contains(v Version) bool {
	if r.Empty {
		return false
	}
	if r.Lower != nil && v.Less(*r.Lower) {
		return false
	}
	if r.Upper != nil {
		if r.UpperInclusive {
			if r.Upper.Less(v) {
				return false
			}
		} else if !v.Less(*r.Upper) {
			return false
		}
	}
	return true
}

// upperKey returns (upperValue, inclusive, hasUpper) for r's upper edge, as
// stored; inclusivity is not normalized.
func (r VersionRange) upperKey() (Version, bool, bool) {
	if r.Upper == nil {
		return Version{}, false, false
	}
	return *r.Upper, r.UpperInclusive, true
}

func (r VersionRange) lowerKey() (Version, bool) {
	if r.Lower == nil {
		return Version{}, false
	}
	return *r.Lower, true
}

// intersectRange computes the intersection of two ranges. The result may be
// Empty.
func intersectRange(a, b VersionRange) VersionRange {
	if a.Empty || b.Empty {
		return emptyRange()
	}

	var lower *Version
	switch {
	case a.Lower == nil:
		lower = b.Lower
	case b.Lower == nil:
		lower = a.Lower
	case a.Lower.Less(*b.Lower):
		lower = b.Lower
	default:
		lower = a.Lower
	}

	var upper *Version
	var upperIncl bool
	switch {
	case a.Upper == nil:
		upper, upperIncl = b.Upper, b.UpperInclusive
	case b.Upper == nil:
		upper, upperIncl = a.Upper, a.UpperInclusive
	case a.Upper.Less(*b.Upper):
		upper, upperIncl = a.Upper, a.UpperInclusive
	case b.Upper.Less(*a.Upper):
		upper, upperIncl = b.Upper, b.UpperInclusive
	default: // equal edges: the more restrictive (exclusive) wins
		upper, upperIncl = a.Upper, a.UpperInclusive && b.UpperInclusive
	}

	out := VersionRange{Lower: lower, Upper: upper, UpperInclusive: upperIncl}
	if lower != nil && upper != nil {
		if upperIncl {
			if upper.Less(*lower) {
				return emptyRange()
			}
		} else if !lower.Less(*upper) {
			return emptyRange()
		}
	}
	return out
}

// adjacentOrOverlapping reports whether b can be merged into a without loss
// of information, i.e. b's lower edge is at or before a's upper edge.
func adjacentOrOverlapping(a, b VersionRange) bool {
	if a.Upper == nil || b.Lower == nil {
		return true
	}
	if b.Lower.Less(*a.Upper) {
		return true
	}
	if a.Upper.Equal(*b.Lower) && a.UpperInclusive {
		return true
	}
	// Directly-adjacent prefix ranges (e.g. [1,2) and [2,3)) merge too.
	return a.Upper.Equal(*b.Lower)
}

// mergeRange merges b into a, assuming adjacentOrOverlapping(a, b).
func mergeRange(a, b VersionRange) VersionRange {
	out := a
	if b.Upper == nil {
		out.Upper = nil
		out.UpperInclusive = false
	} else if out.Upper != nil {
		switch {
		case out.Upper.Less(*b.Upper):
			out.Upper, out.UpperInclusive = b.Upper, b.UpperInclusive
		case b.Upper.Less(*out.Upper):
			// keep out.Upper
		default:
			out.UpperInclusive = out.UpperInclusive || b.UpperInclusive
		}
	}
	return out
}

func (r VersionRange) String() string {
	if r.Empty {
		return "<empty>"
	}
	lo := "-inf"
	if r.Lower != nil {
		lo = r.Lower.String()
	}
	hiOp, hi := ")", "+inf"
	if r.Upper != nil {
		hi = r.Upper.String()
		if r.UpperInclusive {
			hiOp = "]"
		}
	}
	return fmt.Sprintf("[%s, %s%s", lo, hi, hiOp)
}
