// Package keys holds the server's per-username public key registry, used to
// populate /members frames so room peers can address encrypted payloads to
// each other. The server never inspects key contents; it is an opaque
// base64 blob supplied by the client via /pubkey.
package keys

import "sync"

// Registry is a guarded username -> public key map. Entries are added by
// /pubkey registration and removed at logout/quit.
type Registry struct {
	mu   sync.Mutex
	keys map[string]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]string)}
}

// Set registers or replaces a user's public key.
func (r *Registry) Set(username, pubkey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[username] = pubkey
}

// Get returns a user's public key, if registered.
func (r *Registry) Get(username string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[username]
	return k, ok
}

// Delete removes a user's public key.
func (r *Registry) Delete(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, username)
}

// Snapshot returns a copy of the registry restricted to the given usernames.
func (r *Registry) Snapshot(usernames []string) map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(usernames))
	for _, u := range usernames {
		if k, ok := r.keys[u]; ok {
			out[u] = k
		}
	}
	return out
}
