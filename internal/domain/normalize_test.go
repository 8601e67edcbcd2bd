package domain

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ACCESS-SEQUENCE", "accesssequence"},
		{"access_sequence", "accesssequence"},
		{"  Access Sequence  ", "accesssequence"},
		{"FLAG{INTERFACE_NOT_BROKEN_YOU_ARE}", "flag{interfacenotbrokenyouare}"},
		{"", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Fatalf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPhaseMatches(t *testing.T) {
	def := PhaseDefinition{
		Phase:        1,
		CanonicalKey: "ACCESS-SEQUENCE",
		Aliases:      []string{"accesssequence", "ACCESS_SEQUENCE"},
	}

	for _, in := range []string{"ACCESS-SEQUENCE", "access-sequence", "Access Sequence", "ACCESS_SEQUENCE"} {
		if !PhaseMatches(def, in) {
			t.Fatalf("expected %q to match", in)
		}
	}
	if PhaseMatches(def, "konami") {
		t.Fatalf("unrelated input must not match")
	}
}
