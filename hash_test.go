package main

import "testing"

func TestGenerateHashIsDeterministic(t *testing.T) {
	a := generateHash("hunter2")
	b := generateHash("hunter2")
	if a != b {
		t.Errorf("got %q and %q, want equal", a, b)
	}
}

func TestGenerateHashDiffersByInput(t *testing.T) {
	if generateHash("foo") == generateHash("bar") {
		t.Error("expected different hashes for different inputs")
	}
}

func TestGenerateHashKnownVector(t *testing.T) {
	// SHA-256("") = e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855
	got := generateHash("")
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
