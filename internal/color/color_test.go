package color

import (
	"strings"
	"testing"
)

func TestValidHex(t *testing.T) {
	cases := map[string]bool{
		"#FF0000": true,
		"FF0000":  true,
		"#abc123": true,
		"#FF00":   false,
		"":        false,
		"zzzzzz":  false,
	}
	for in, want := range cases {
		if got := ValidHex(in); got != want {
			t.Errorf("ValidHex(%q): got %v, want %v", in, got, want)
		}
	}
}

func TestTrueColorValidHex(t *testing.T) {
	out := TrueColor("hi", "#FF8000")
	if !strings.Contains(out, "\x1b[38;2;255;128;0m") {
		t.Errorf("missing expected escape, got %q", out)
	}
	if !strings.Contains(out, "hi") {
		t.Errorf("missing original text, got %q", out)
	}
	if !strings.HasSuffix(out, "\x1b[0m") {
		t.Errorf("missing reset escape, got %q", out)
	}
}

func TestTrueColorWithoutHashPrefix(t *testing.T) {
	out := TrueColor("x", "00FF00")
	if !strings.Contains(out, "\x1b[38;2;0;255;0m") {
		t.Errorf("got %q", out)
	}
}

func TestTrueColorInvalidHexFallsBack(t *testing.T) {
	out := TrueColor("plain", "nothex")
	if out != "plain" {
		t.Errorf("got %q, want unmodified passthrough", out)
	}
	out2 := TrueColor("plain", "#FFF")
	if out2 != "plain" {
		t.Errorf("got %q, want unmodified passthrough for short hex", out2)
	}
}

func TestItalicWraps(t *testing.T) {
	out := Italic("nick")
	if !strings.HasPrefix(out, "\x1b[3m") || !strings.HasSuffix(out, "\x1b[0m") {
		t.Errorf("got %q", out)
	}
}
