// Package uuid implements the 128-bit package-identity type used throughout
// vpm (spec.md §3: "packages are looked up by UUID, not name"). No
// third-party UUID library appears anywhere in this module's reference
// corpus, so this is built directly on crypto/rand; see DESIGN.md.
package uuid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
)

// UUID is a 128-bit identifier in canonical RFC 4122 byte order.
type UUID [16]byte

// Nil is the all-zero UUID.
var Nil UUID

// New generates a random (version 4, variant 1) UUID.
func New() (UUID, error) {
	var u UUID
	if _, err := rand.Read(u[:]); err != nil {
		return Nil, errors.Wrap(err, "generating uuid")
	}
	u[6] = (u[6] & 0x0f) | 0x40
	u[8] = (u[8] & 0x3f) | 0x80
	return u, nil
}

// Parse reads the canonical "8-4-4-4-12" hyphenated hex form.
func Parse(s string) (UUID, error) {
	var u UUID
	if len(s) != 36 || s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
		return Nil, errors.Errorf("invalid uuid %q: wrong shape", s)
	}
	hexStr := s[0:8] + s[9:13] + s[14:18] + s[19:23] + s[24:36]
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return Nil, errors.Wrapf(err, "invalid uuid %q", s)
	}
	copy(u[:], b)
	return u, nil
}

// MustParse is Parse, panicking on error. For tests and compile-time literals.
func MustParse(s string) UUID {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

func (u UUID) String() string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", u[0:4], u[4:6], u[6:8], u[8:10], u[10:16])
}

// IsNil reports whether u is the zero UUID.
func (u UUID) IsNil() bool { return u == Nil }

// MarshalText implements encoding.TextMarshaler so UUID keys serialize
// naturally via the TOML encoder.
func (u UUID) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *UUID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
