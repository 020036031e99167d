package version

import "strings"

// ParseSpec parses spec.md §4.1's atom grammar: a comma- or
// whitespace-separated list of atoms, each one of
//
//	"X", "X.Y", "X.Y.Z", "^X.Y", "~X.Y", "= X.Y.Z", ">= X", "X - Y"
//
// The resulting ranges are unioned and canonicalized. Malformed atoms
// produce an *InvalidSpec error.
func ParseSpec(spec string) (VersionSpec, error) {
	atoms, err := splitAtoms(spec)
	if err != nil {
		return VersionSpec{}, err
	}
	if len(atoms) == 0 {
		return Any(), nil
	}

	var ranges []VersionRange
	for _, a := range atoms {
		r, err := parseAtom(a)
		if err != nil {
			return VersionSpec{}, err
		}
		ranges = append(ranges, r)
	}
	return canonicalize(VersionSpec{Ranges: ranges}), nil
}

// splitAtoms tokenizes a spec string into its constituent atoms. Hyphen
// ranges ("1.2.3 - 2.0.0") are kept as a single atom by scanning for the
// " - " infix before falling back to plain comma/whitespace splitting.
func splitAtoms(spec string) ([]string, error) {
	var out []string
	for _, segment := range strings.Split(spec, ",") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if idx := strings.Index(segment, " - "); idx >= 0 {
			out = append(out, segment)
			continue
		}
		fields := strings.Fields(segment)
		for i := 0; i < len(fields); i++ {
			tok := fields[i]
			// A bare ">=" or "=" operator binds to the bound that follows it.
			if (tok == ">=" || tok == "=") && i+1 < len(fields) {
				tok += fields[i+1]
				i++
			}
			out = append(out, tok)
		}
	}
	return out, nil
}

func parseAtom(atom string) (VersionRange, error) {
	atom = strings.TrimSpace(atom)

	if idx := strings.Index(atom, " - "); idx >= 0 {
		return parseHyphen(atom)
	}

	switch {
	case strings.HasPrefix(atom, "^"):
		return parseCaret(atom[1:])
	case strings.HasPrefix(atom, "~"):
		return parseTilde(atom[1:])
	case strings.HasPrefix(atom, ">="):
		return parseGTE(strings.TrimSpace(atom[2:]))
	case strings.HasPrefix(atom, "="):
		return parseExact(strings.TrimSpace(strings.TrimPrefix(atom, "=")))
	default:
		return parsePrefix(atom)
	}
}

// parsePrefix handles bare "X", "X.Y", "X.Y.Z" atoms: a window spanning the
// prefix's floor (inclusive) up to NextPrefix (exclusive).
func parsePrefix(atom string) (VersionRange, error) {
	b, err := parseBound(atom)
	if err != nil {
		return VersionRange{}, err
	}
	lo := b.Version()
	hi := b.NextPrefix()
	return VersionRange{Lower: &lo, Upper: &hi}, nil
}

func parseExact(atom string) (VersionRange, error) {
	v, err := Parse(atom)
	if err != nil {
		// Tolerate a bare prefix after "=", e.g. "= 1.2".
		b, berr := parseBound(atom)
		if berr != nil {
			return VersionRange{}, err
		}
		lo := b.Version()
		hi := b.NextPrefix()
		return VersionRange{Lower: &lo, Upper: &hi}, nil
	}
	return VersionRange{Lower: &v, Upper: &v, UpperInclusive: true}, nil
}

func parseGTE(atom string) (VersionRange, error) {
	b, err := parseBound(atom)
	if err != nil {
		return VersionRange{}, err
	}
	lo := b.Version()
	return VersionRange{Lower: &lo}, nil
}

func parseHyphen(atom string) (VersionRange, error) {
	parts := strings.SplitN(atom, " - ", 2)
	if len(parts) != 2 {
		return VersionRange{}, errInvalid(atom, "malformed hyphen range")
	}
	lb, err := parseBound(strings.TrimSpace(parts[0]))
	if err != nil {
		return VersionRange{}, err
	}
	ub, err := parseBound(strings.TrimSpace(parts[1]))
	if err != nil {
		return VersionRange{}, err
	}
	lo := lb.Version()
	var hi Version
	var inclusive bool
	if ub.Precision == 3 {
		hi = ub.Version()
		inclusive = true
	} else {
		hi = ub.NextPrefix()
	}
	return VersionRange{Lower: &lo, Upper: &hi, UpperInclusive: inclusive}, nil
}

// parseCaret implements spec.md's caret rule: bump the first nonzero
// component from the left, or the last given component if all given
// components are zero (^0.0 = [0.0.0, 0.1.0); ^0 = [0.0.0, 1.0.0)).
//
//	^1.2.3 = [1.2.3, 2.0.0)
//	^0.2.3 = [0.2.3, 0.3.0)
//	^0.0.3 = [0.0.3, 0.0.4)
func parseCaret(atom string) (VersionRange, error) {
	b, err := parseBound(atom)
	if err != nil {
		return VersionRange{}, err
	}
	lo := b.Version()

	var hi Version
	switch {
	case b.Major != 0:
		hi = Version{Major: b.Major + 1}
	case b.Precision >= 2 && b.Minor != 0:
		hi = Version{Minor: b.Minor + 1}
	case b.Precision >= 3:
		hi = Version{Patch: b.Patch + 1}
	case b.Precision == 2: // ^0.0
		hi = Version{Minor: 1}
	default: // ^0
		hi = Version{Major: 1}
	}
	return VersionRange{Lower: &lo, Upper: &hi}, nil
}

// parseTilde fixes the parent of the last specified component:
// ~1.2.3 = [1.2.3, 1.3.0); ~1.2 = [1.2.0, 1.3.0); ~1 = [1.0.0, 2.0.0).
func parseTilde(atom string) (VersionRange, error) {
	b, err := parseBound(atom)
	if err != nil {
		return VersionRange{}, err
	}
	lo := b.Version()

	var hi Version
	switch b.Precision {
	case 1:
		hi = Version{Major: b.Major + 1}
	default: // 2 or 3: bump minor
		hi = Version{Major: b.Major, Minor: b.Minor + 1}
	}
	return VersionRange{Lower: &lo, Upper: &hi}, nil
}
