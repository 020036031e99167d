package version

import (
	"sort"
	"strings"
)

// VersionSpec is a canonicalized union of non-overlapping, sorted
// VersionRanges. The empty spec (len(Ranges) == 0) matches nothing; a spec
// containing a single unbounded range matches everything.
type VersionSpec struct {
	Ranges []VersionRange
}

// Any returns the spec matching every version.
func Any() VersionSpec {
	return VersionSpec{Ranges: []VersionRange{unbounded()}}
}

// None returns the spec matching no version.
func None() VersionSpec {
	return VersionSpec{}
}

// Contains reports whether v satisfies any range in the spec.
func (s VersionSpec) Contains(v Version) bool {
	for _, r := range s.Ranges {
		if r.Contains(v) {
			return true
		}
	}
	return false
}

// String renders the spec as a comma-separated list of its ranges, in the
// canonical sorted order.
func (s VersionSpec) String() string {
	if s.IsEmpty() {
		return "<none>"
	}
	parts := make([]string, len(s.Ranges))
	for i, r := range s.Ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// IsEmpty reports whether the spec matches no version.
func (s VersionSpec) IsEmpty() bool { return len(s.Ranges) == 0 }

// IsAny reports whether the spec matches every version.
func (s VersionSpec) IsAny() bool {
	return len(s.Ranges) == 1 && s.Ranges[0].Lower == nil && s.Ranges[0].Upper == nil && !s.Ranges[0].Empty
}

// Equal reports structural equality after canonicalization.
func (s VersionSpec) Equal(o VersionSpec) bool {
	s, o = canonicalize(s), canonicalize(o)
	if len(s.Ranges) != len(o.Ranges) {
		return false
	}
	for i := range s.Ranges {
		a, b := s.Ranges[i], o.Ranges[i]
		al, alok := a.lowerKey()
		bl, blok := b.lowerKey()
		if alok != blok || (alok && !al.Equal(bl)) {
			return false
		}
		au, aui, auok := a.upperKey()
		bu, bui, buok := b.upperKey()
		if auok != buok || aui != bui || (auok && !au.Equal(bu)) {
			return false
		}
	}
	return true
}

// Union returns a spec matching anything either a or b match.
func Union(a, b VersionSpec) VersionSpec {
	return canonicalize(VersionSpec{Ranges: append(append([]VersionRange{}, a.Ranges...), b.Ranges...)})
}

// Intersect returns a spec matching only versions both a and b match
// (range-by-range, dropping empties, re-merging adjacent ranges per
// spec.md §4.1).
func Intersect(a, b VersionSpec) VersionSpec {
	var out []VersionRange
	for _, ra := range a.Ranges {
		for _, rb := range b.Ranges {
			ir := intersectRange(ra, rb)
			if !ir.Empty {
				out = append(out, ir)
			}
		}
	}
	return canonicalize(VersionSpec{Ranges: out})
}

// canonicalize sorts ranges by lower bound and merges adjacent/overlapping
// ones, dropping Empty ranges, so that equal specs always compare equal.
func canonicalize(s VersionSpec) VersionSpec {
	ranges := make([]VersionRange, 0, len(s.Ranges))
	for _, r := range s.Ranges {
		if !r.Empty {
			ranges = append(ranges, r)
		}
	}
	if len(ranges) == 0 {
		return VersionSpec{}
	}
	sort.SliceStable(ranges, func(i, j int) bool {
		li, iok := ranges[i].lowerKey()
		lj, jok := ranges[j].lowerKey()
		if !iok && !jok {
			return false
		}
		if !iok {
			return true
		}
		if !jok {
			return false
		}
		return li.Less(lj)
	})

	merged := []VersionRange{ranges[0]}
	for _, r := range ranges[1:] {
		last := merged[len(merged)-1]
		if adjacentOrOverlapping(last, r) {
			merged[len(merged)-1] = mergeRange(last, r)
		} else {
			merged = append(merged, r)
		}
	}
	return VersionSpec{Ranges: merged}
}
