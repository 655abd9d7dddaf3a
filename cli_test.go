package main

import "testing"

func TestRunCLINoArgs(t *testing.T) {
	if RunCLI(nil, t.TempDir()) {
		t.Error("expected no args to report false (fall through to server mode)")
	}
}

func TestRunCLIUnknownSubcommand(t *testing.T) {
	if RunCLI([]string{"frobnicate"}, t.TempDir()) {
		t.Error("expected unknown subcommand to report false")
	}
}

func TestRunCLIRoomsRecognized(t *testing.T) {
	if !RunCLI([]string{"rooms"}, t.TempDir()) {
		t.Error("expected rooms subcommand to be recognized")
	}
}
