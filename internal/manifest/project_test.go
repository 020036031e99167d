package manifest

import (
	"testing"

	"github.com/vellum-lang/vpm/internal/uuid"
	"github.com/vellum-lang/vpm/internal/version"
)

const projectFixture = `
name = "Demo"
uuid = "00000000-0000-0000-0000-00000000000a"
version = "0.1.0"

[deps]
B = "00000000-0000-0000-0000-00000000000b"

[compat]
B = "^2.0.0"

[extras_comment]
note = "kept even though vpm does not know this key"
`

func TestProjectRoundTripPreservesUnknownKeys(t *testing.T) {
	p, err := ReadProject([]byte(projectFixture))
	if err != nil {
		t.Fatalf("ReadProject: %v", err)
	}
	if !p.HasSelf || p.Name != "Demo" {
		t.Fatalf("self identity not parsed: %+v", p)
	}
	if p.Deps["B"] != uuid.MustParse(idB) {
		t.Errorf("Deps[B] = %s, want %s", p.Deps["B"], idB)
	}
	if _, ok := p.unknown["extras_comment"]; !ok {
		t.Fatal("expected unknown top-level key 'extras_comment' to be preserved")
	}

	raw, err := p.MarshalTOML()
	if err != nil {
		t.Fatalf("MarshalTOML: %v", err)
	}

	again, err := ReadProject(raw)
	if err != nil {
		t.Fatalf("ReadProject after round trip: %v\n--- toml ---\n%s", err, raw)
	}
	if again.Name != "Demo" || again.Deps["B"] != uuid.MustParse(idB) {
		t.Errorf("round trip lost data: %+v", again)
	}
	if _, ok := again.unknown["extras_comment"]; !ok {
		t.Error("round trip dropped unknown key 'extras_comment'")
	}
	spec, ok := again.Compat["B"]
	if !ok {
		t.Fatal("round trip dropped compat.B")
	}
	v := version.MustParse("2.5.0")
	if !spec.Contains(v) {
		t.Errorf("compat.B = %s, want it to contain 2.5.0", spec)
	}
}

func TestProjectWithoutSelfIdentity(t *testing.T) {
	p, err := ReadProject([]byte("[deps]\n"))
	if err != nil {
		t.Fatalf("ReadProject: %v", err)
	}
	if p.HasSelf {
		t.Error("HasSelf should be false when name/uuid are absent")
	}
	raw, err := p.MarshalTOML()
	if err != nil {
		t.Fatalf("MarshalTOML: %v", err)
	}
	again, err := ReadProject(raw)
	if err != nil {
		t.Fatalf("ReadProject: %v", err)
	}
	if again.HasSelf {
		t.Error("HasSelf should stay false across a round trip with no self identity")
	}
}
