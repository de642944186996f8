package analyzer

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"only whitespace", " \t\n\n\n ", ""},
		{"null bytes", "a\x00b", "a b"},
		{"adjacent nulls collapse", "a\x00\x00\tb", "a b"},
		{"tabs and spaces", "attention  \t is\t\tall", "attention is all"},
		{"keeps paragraph break", "one\n\ntwo", "one\n\ntwo"},
		{"collapses blank lines", "one\n\n\n\n\ntwo", "one\n\ntwo"},
		{"keeps single newline", "one\ntwo", "one\ntwo"},
		{"trims", "  \n title \n ", "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"  lead and trail  ",
		"a\x00\x00b\t\t c",
		"x\n\n\n\ny\n \n\n\nz",
		"\n\n\t\n\n\nmixed \t \x00 runs\n\n\n",
		strings.Repeat("Intro text. ", 30),
		"page one\f\n\n\n\npage two",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
