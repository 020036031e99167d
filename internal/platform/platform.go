// Package platform implements spec.md §4.7's platform sum type: a closed
// set of OS variants tagged with architecture and ABI details, a single
// total regex-based triplet parser/printer, and artifact selection by
// triplet intersection. Modeled as a Go sum type the way golang-dep's
// gps package models ProjectConstraint variants — a closed Kind enum
// plus the fields relevant to that kind, rather than an interface
// hierarchy, since every variant here is a flat data shape with no
// distinct behavior to dispatch on.
package platform

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the closed set of platform families (spec.md §4.7).
type Kind int

const (
	Unknown Kind = iota
	Linux
	MacOS
	Windows
	FreeBSD
)

func (k Kind) String() string {
	switch k {
	case Linux:
		return "linux"
	case MacOS:
		return "macos"
	case Windows:
		return "windows"
	case FreeBSD:
		return "freebsd"
	default:
		return "unknown"
	}
}

// CompilerABI annotates a platform with the compiler-ABI details that
// distinguish otherwise-identical artifact builds (spec.md §4.7).
// A zero-value field means "unspecified", not "empty string" — callers
// comparing for a match must treat "" as a wildcard, per HasWildcards.
type CompilerABI struct {
	LibGfortranVersion string
	LibStdCxxVersion   string
	CxxStringABI       string
}

// HasWildcards reports whether a is missing any of the three fields,
// making it eligible to match multiple concrete ABIs during selection.
func (a CompilerABI) HasWildcards() bool {
	return a.LibGfortranVersion == "" || a.LibStdCxxVersion == "" || a.CxxStringABI == ""
}

// Platform is a tagged platform variant (spec.md §4.7). Arch is always
// set for a known Kind; Libc and CallABI apply only to Linux/FreeBSD and
// are the empty string ("any") otherwise. ABI is nil when the artifact
// or host carries no compiler-ABI annotation.
type Platform struct {
	Kind    Kind
	Arch    string
	Libc    string
	CallABI string
	ABI     *CompilerABI
}

// Wordsize derives the pointer width from Arch, defaulting to 64 for any
// architecture string this parser doesn't specifically recognize as 32-bit.
func (p Platform) Wordsize() int {
	switch p.Arch {
	case "i686", "x86", "armv7l", "arm":
		return 32
	default:
		return 64
	}
}

var tripletRE = regexp.MustCompile(
	`^(?P<arch>[a-zA-Z0-9_]+)-(?P<os>linux|macos|windows|freebsd)` +
		`(?:-(?P<libc>gnu|musl))?(?:-(?P<callabi>eabihf|eabi))?` +
		`(?:-libgfortran(?P<gfortran>[0-9.]+))?` +
		`(?:-libstdcxx(?P<stdcxx>[0-9.]+))?` +
		`(?:-cxx(?P<cxxabi>\d+))?$`,
)

// Parse is the single total triplet parser named in spec.md §4.7: any
// input either matches the grammar or yields {Kind: Unknown} — it never
// returns an error, matching the source's "unknown inputs yield Unknown
// with a warning" contract. The caller is expected to log the warning;
// Parse itself stays pure.
func Parse(triplet string) (Platform, bool) {
	m := tripletRE.FindStringSubmatch(triplet)
	if m == nil {
		return Platform{Kind: Unknown}, false
	}
	groups := make(map[string]string, len(m))
	for i, name := range tripletRE.SubexpNames() {
		if i != 0 && name != "" {
			groups[name] = m[i]
		}
	}

	p := Platform{Arch: groups["arch"], Libc: groups["libc"], CallABI: groups["callabi"]}
	switch groups["os"] {
	case "linux":
		p.Kind = Linux
	case "macos":
		p.Kind = MacOS
	case "windows":
		p.Kind = Windows
	case "freebsd":
		p.Kind = FreeBSD
	default:
		return Platform{Kind: Unknown}, false
	}

	if groups["gfortran"] != "" || groups["stdcxx"] != "" || groups["cxxabi"] != "" {
		p.ABI = &CompilerABI{
			LibGfortranVersion: groups["gfortran"],
			LibStdCxxVersion:   groups["stdcxx"],
			CxxStringABI:       groups["cxxabi"],
		}
	}
	return p, true
}

// Triplet renders the canonical string form of p. Parse(p.Triplet()) is
// the identity on p modulo wildcard fields left unset, matching spec.md
// §4.7's "total inverse modulo wildcards" requirement.
func (p Platform) Triplet() string {
	if p.Kind == Unknown {
		return "unknown"
	}
	parts := []string{p.Arch, p.Kind.String()}
	if p.Libc != "" {
		parts = append(parts, p.Libc)
	}
	if p.CallABI != "" {
		parts = append(parts, p.CallABI)
	}
	if p.ABI != nil {
		if p.ABI.LibGfortranVersion != "" {
			parts = append(parts, "libgfortran"+p.ABI.LibGfortranVersion)
		}
		if p.ABI.LibStdCxxVersion != "" {
			parts = append(parts, "libstdcxx"+p.ABI.LibStdCxxVersion)
		}
		if p.ABI.CxxStringABI != "" {
			parts = append(parts, "cxx"+p.ABI.CxxStringABI)
		}
	}
	return strings.Join(parts, "-")
}

func (p Platform) String() string { return p.Triplet() }

// Matches reports whether p (a concrete host platform) satisfies
// candidate, treating empty string fields and a nil ABI on candidate as
// wildcards (spec.md §4.5 step 5: "wildcards on libc, libgfortran,
// libstdcxx, cxxstring_abi permitted").
func (p Platform) Matches(candidate Platform) bool {
	if p.Kind != candidate.Kind || p.Arch != candidate.Arch {
		return false
	}
	if candidate.Libc != "" && candidate.Libc != p.Libc {
		return false
	}
	if candidate.CallABI != "" && candidate.CallABI != p.CallABI {
		return false
	}
	if candidate.ABI == nil {
		return true
	}
	if p.ABI == nil {
		return false
	}
	if candidate.ABI.LibGfortranVersion != "" && candidate.ABI.LibGfortranVersion != p.ABI.LibGfortranVersion {
		return false
	}
	if candidate.ABI.LibStdCxxVersion != "" && candidate.ABI.LibStdCxxVersion != p.ABI.LibStdCxxVersion {
		return false
	}
	if candidate.ABI.CxxStringABI != "" && candidate.ABI.CxxStringABI != p.ABI.CxxStringABI {
		return false
	}
	return true
}

// Artifact pairs a platform constraint with an opaque payload reference
// (a tree hash, in practice — kept generic here so tests don't need the
// filehash/treehash packages).
type Artifact struct {
	Platform Platform
	Ref      string
}

// SelectArtifact implements spec.md §4.5 step 5 / §9 Open Question (a):
// among the candidates whose Platform matches host, pick the one whose
// triplet sorts last lexicographically. Returns false if none match.
func SelectArtifact(host Platform, candidates []Artifact) (Artifact, bool) {
	var best Artifact
	found := false
	for _, c := range candidates {
		if !host.Matches(c.Platform) {
			continue
		}
		if !found || c.Platform.Triplet() >= best.Platform.Triplet() {
			best = c
			found = true
		}
	}
	return best, found
}

// DLExtension returns the platform-conventional shared-library extension,
// used by the installer's download-engine dispatch (spec.md §4.5's
// dl-extension mapping).
func (p Platform) DLExtension() string {
	switch p.Kind {
	case MacOS:
		return ".dylib"
	case Windows:
		return ".dll"
	default:
		return ".so"
	}
}

// Host is a placeholder for runtime host-platform detection; the real
// implementation would shell out to `uname`/read GOOS-GOARCH the way the
// teacher's context.go probes GOPATH. Kept as a function value so tests
// and cmd/vpm can override it without a build tag matrix.
var Host = func() Platform {
	return Platform{Kind: Linux, Arch: "x86_64", Libc: "gnu"}
}

// MustParse parses triplet, panicking on a malformed triplet; used for
// fixed table-driven test inputs, never for untrusted data.
func MustParse(triplet string) Platform {
	p, ok := Parse(triplet)
	if !ok {
		panic(fmt.Sprintf("platform: MustParse(%q): no match", triplet))
	}
	return p
}
