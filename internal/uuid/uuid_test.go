package uuid

import "testing"

func TestParseStringRoundTrip(t *testing.T) {
	const s = "7876af07-12f7-4464-9e6e-57c5d3c7a2c7"
	u, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := u.String(); got != s {
		t.Errorf("String() = %q, want %q", got, s)
	}
}

func TestNewIsNotNil(t *testing.T) {
	u, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if u.IsNil() {
		t.Errorf("New() produced the nil uuid")
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	for _, s := range []string{"", "not-a-uuid", "7876af0712f744649e6e57c5d3c7a2c7"} {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) should have failed", s)
		}
	}
}
