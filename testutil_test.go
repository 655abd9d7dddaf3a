package main

import (
	"bufio"
	"net"
	"testing"

	"streamline/internal/store"
)

// newTestStoreForRoom returns a Store rooted at a temp directory, for tests
// exercising RoomManager/Room persistence.
func newTestStoreForRoom(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return st
}

// pipeClient returns a Client wired to one end of an in-memory net.Pipe, and
// a channel that receives each line the client writes. net.Pipe is
// synchronous and unbuffered, so a background goroutine drains it
// continuously into a channel buffered for 256 lines — tests must not rely
// on the remote end for anything but reading what the Client sends.
func pipeClient(t *testing.T) (*Client, chan string) {
	t.Helper()
	server, remote := net.Pipe()
	t.Cleanup(func() { server.Close(); remote.Close() })

	lines := make(chan string, 256)
	go func() {
		scanner := bufio.NewScanner(remote)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return NewClient(server), lines
}
