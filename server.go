package main

import (
	"bufio"
	"context"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"streamline/internal/audit"
	"streamline/internal/command"
	"streamline/internal/httpapi"
	"streamline/internal/keys"
	"streamline/internal/store"
)

// ClientRegistry is the process-wide clients map, keyed by remote address.
// Guarded by its own mutex per the rooms-map -> room -> clients-map -> client
// lock order; never held while a room mutex is held.
type ClientRegistry struct {
	mu      sync.Mutex
	clients map[string]*Client
}

func newClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: make(map[string]*Client)}
}

func (cr *ClientRegistry) add(c *Client) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.clients[c.Addr()] = c
}

func (cr *ClientRegistry) remove(c *Client) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	delete(cr.clients, c.Addr())
}

// All returns a snapshot of every connected client.
func (cr *ClientRegistry) All() []*Client {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	out := make([]*Client, 0, len(cr.clients))
	for _, c := range cr.clients {
		out = append(out, c)
	}
	return out
}

// InRoom returns every client currently InRoom(roomName).
func (cr *ClientRegistry) InRoom(roomName string) []*Client {
	var out []*Client
	for _, c := range cr.All() {
		st := c.State()
		if st.Kind == StateInRoom && st.Room == roomName {
			out = append(out, c)
		}
	}
	return out
}

// ByUsername returns the connected session for username, if logged in.
func (cr *ClientRegistry) ByUsername(username string) (*Client, bool) {
	for _, c := range cr.All() {
		st := c.State()
		if (st.Kind == StateLoggedIn || st.Kind == StateInRoom) && st.Username == username {
			return c, true
		}
	}
	return nil, false
}

// Server owns the TCP listener, the room/client registries, durable
// storage, the audit log, and the public-key registry. One goroutine per
// accepted connection reads lines, parses them, and dispatches.
type Server struct {
	listener  net.Listener
	store     *store.Store
	audit     *audit.Log
	rooms     *RoomManager
	clients   *ClientRegistry
	keys      *keys.Registry
	startedAt time.Time

	msgCount atomic.Int64
}

// NewServer wires a Server around an already-open listener and stores.
func NewServer(listener net.Listener, st *store.Store, auditLog *audit.Log) *Server {
	return &Server{
		listener:  listener,
		store:     st,
		audit:     auditLog,
		rooms:     newRoomManager(st),
		clients:   newClientRegistry(),
		keys:      keys.NewRegistry(),
		startedAt: time.Now(),
	}
}

// Run accepts connections until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Printf("[server] accept: %v", err)
				continue
			}
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	client := NewClient(conn)
	s.clients.add(client)
	log.Printf("[server] %s connected conn=%s", client.Addr(), client.ConnID())

	defer func() {
		s.onDisconnect(client)
		conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 64*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if pc := client.TakeConfirm(); pc != nil {
			cmd := command.Parse(line)
			if cmd.Kind == command.Confirm {
				s.handleOwnerTransferConfirm(client, pc, cmd.Confirm)
				continue
			}
			// Non-confirm input while awaiting confirmation cancels it.
			client.SendWarn("Confirmation cancelled.")
		}

		cmd := command.Parse(line)
		if stop := s.dispatch(client, cmd); stop {
			return
		}
	}
}

// onDisconnect tears down a session that closed (read error or /quit),
// removing it from any room it occupied and re-syncing remaining members.
func (s *Server) onDisconnect(client *Client) {
	s.clients.remove(client)
	st := client.State()
	if st.Kind == StateInRoom {
		s.leaveRoom(client, st.Room, st.Username)
	}
	if st.Kind == StateInRoom || st.Kind == StateLoggedIn {
		s.keys.Delete(st.Username)
	}
	log.Printf("[server] %s disconnected conn=%s", client.Addr(), client.ConnID())
}

// RoomSummaries implements httpapi.DataSource.
func (s *Server) RoomSummaries() []httpapi.RoomSummary {
	raw := s.rooms.Summaries()
	out := make([]httpapi.RoomSummary, 0, len(raw))
	for _, r := range raw {
		out = append(out, httpapi.RoomSummary{
			Name: r.Name, Online: r.Online, WhitelistEnabled: r.WhitelistEnabled,
		})
	}
	return out
}

// Metrics implements httpapi.DataSource.
func (s *Server) Metrics() httpapi.Metrics {
	return httpapi.Metrics{
		Connections: len(s.clients.All()),
		Rooms:       len(s.rooms.Summaries()),
		Messages:    s.msgCount.Load(),
		UptimeS:     int64(time.Since(s.startedAt).Seconds()),
	}
}
