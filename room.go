package main

import (
	"fmt"
	"sync"
	"time"

	"streamline/internal/store"
)

// Role rank, used by moderation and role-management operations: a caller
// may act on a target only when rank(caller) > rank(target).
const (
	rankUser      = 1
	rankModerator = 2
	rankAdmin     = 3
	rankOwner     = 4
)

func roleRank(role string) int {
	switch role {
	case "owner":
		return rankOwner
	case "admin":
		return rankAdmin
	case "moderator":
		return rankModerator
	case "user":
		return rankUser
	default:
		return 0
	}
}

// Roles holds per-room permission grants (dotted command tokens) and role
// display colors.
type Roles struct {
	Moderator []string
	User      []string
	Colors    map[string]string
}

// RoomUser is one user's membership record within a room.
type RoomUser struct {
	Nick       string
	Color      string
	Role       string
	Hidden     bool
	LastSeen   uint64
	Banned     bool
	BanStamp   uint64
	BanLength  uint64
	BanReason  string
	Muted      bool
	MuteStamp  uint64
	MuteLength uint64
	MuteReason string
}

// Room is the in-memory, authoritative mirror of one rooms.json entry, plus
// the transient online_users list. Every mutating operation acquires mu,
// applies the change, drops mu, persists the entire document, and only
// then invokes broadcast primitives — never while mu is held.
type Room struct {
	Name string

	mu               sync.Mutex
	WhitelistEnabled bool
	Whitelist        []string
	MsgRate          uint8
	SessionTimeout   uint32
	Roles            Roles
	Users            map[string]*RoomUser
	OnlineUsers      []string // transient, not persisted
}

func newRoom(name string) *Room {
	return &Room{
		Name:  name,
		Users: make(map[string]*RoomUser),
		Roles: Roles{Colors: make(map[string]string)},
	}
}

func unixNow() uint64 { return uint64(time.Now().Unix()) }

// toPersisted converts the in-memory room to its disk form. Caller must
// hold r.mu.
func (r *Room) toPersisted() store.Room {
	users := make(map[string]store.RoomUser, len(r.Users))
	for name, u := range r.Users {
		users[name] = store.RoomUser{
			Nick: u.Nick, Color: u.Color, Role: u.Role, Hidden: u.Hidden,
			LastSeen: u.LastSeen, Banned: u.Banned, BanStamp: u.BanStamp,
			BanLength: u.BanLength, BanReason: u.BanReason, Muted: u.Muted,
			MuteStamp: u.MuteStamp, MuteLength: u.MuteLength, MuteReason: u.MuteReason,
		}
	}
	return store.Room{
		WhitelistEnabled: r.WhitelistEnabled,
		Whitelist:        append([]string{}, r.Whitelist...),
		MsgRate:          r.MsgRate,
		SessionTimeout:   r.SessionTimeout,
		Roles: store.Roles{
			Moderator: append([]string{}, r.Roles.Moderator...),
			User:      append([]string{}, r.Roles.User...),
			Colors:    copyStrMap(r.Roles.Colors),
		},
		Users: users,
	}
}

func copyStrMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func roomFromPersisted(name string, p store.Room) *Room {
	r := newRoom(name)
	r.WhitelistEnabled = p.WhitelistEnabled
	r.Whitelist = append([]string{}, p.Whitelist...)
	r.MsgRate = p.MsgRate
	r.SessionTimeout = p.SessionTimeout
	r.Roles = Roles{
		Moderator: append([]string{}, p.Roles.Moderator...),
		User:      append([]string{}, p.Roles.User...),
		Colors:    copyStrMap(p.Roles.Colors),
	}
	if r.Roles.Colors == nil {
		r.Roles.Colors = make(map[string]string)
	}
	for uname, u := range p.Users {
		r.Users[uname] = &RoomUser{
			Nick: u.Nick, Color: u.Color, Role: u.Role, Hidden: u.Hidden,
			LastSeen: u.LastSeen, Banned: u.Banned, BanStamp: u.BanStamp,
			BanLength: u.BanLength, BanReason: u.BanReason, Muted: u.Muted,
			MuteStamp: u.MuteStamp, MuteLength: u.MuteLength, MuteReason: u.MuteReason,
		}
	}
	return r
}

// RoomManager owns the rooms-map mutex and the in-memory room set; rooms
// are loaded lazily from disk and cached for the process lifetime.
type RoomManager struct {
	st *store.Store

	mu    sync.Mutex
	rooms map[string]*Room
}

func newRoomManager(st *store.Store) *RoomManager {
	return &RoomManager{st: st, rooms: make(map[string]*Room)}
}

// Get returns the cached room, loading it from disk on first access.
// Returns nil, false if no such room is persisted.
func (rm *RoomManager) Get(name string) (*Room, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if r, ok := rm.rooms[name]; ok {
		return r, true
	}
	rooms, err := rm.st.LoadRooms()
	if err != nil {
		return nil, false
	}
	p, ok := rooms[name]
	if !ok {
		return nil, false
	}
	r := roomFromPersisted(name, p)
	rm.rooms[name] = r
	return r, true
}

// Create registers and persists a brand new room. Returns false if a room
// with that name already exists.
func (rm *RoomManager) Create(name string, whitelistEnabled bool, owner string) (*Room, error, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, ok := rm.rooms[name]; ok {
		return nil, nil, false
	}
	exists, err := rm.st.RoomExists(name)
	if err != nil {
		return nil, err, false
	}
	if exists {
		return nil, nil, false
	}

	r := newRoom(name)
	r.WhitelistEnabled = whitelistEnabled
	r.MsgRate = 0
	r.SessionTimeout = 0
	r.Roles = Roles{Colors: map[string]string{
		"owner": "#FFD700", "admin": "#FF4500", "moderator": "#1E90FF", "user": "#FFFFFF",
	}}
	r.Users[owner] = &RoomUser{Role: "owner", LastSeen: unixNow()}
	if whitelistEnabled {
		r.Whitelist = []string{owner}
	}

	if err := rm.st.PutRoom(name, r.toPersisted()); err != nil {
		return nil, err, false
	}
	rm.rooms[name] = r
	return r, nil, true
}

// Delete removes a room from the cache and disk.
func (rm *RoomManager) Delete(name string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.rooms, name)
	return rm.st.DeleteRoom(name)
}

// Import registers a room loaded from a vault file, refusing to overwrite
// an existing room of the same name.
func (rm *RoomManager) Import(name string, p store.Room) (bool, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if _, ok := rm.rooms[name]; ok {
		return false, nil
	}
	exists, err := rm.st.RoomExists(name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := rm.st.PutRoom(name, p); err != nil {
		return false, err
	}
	rm.rooms[name] = roomFromPersisted(name, p)
	return true, nil
}

// Summaries returns a snapshot of every cached room for the admin API's
// /rooms and /metrics. Rooms not yet touched this process are not included; callers
// needing the full on-disk set should combine with st.ListRoomNames.
func (rm *RoomManager) Summaries() []struct {
	Name             string
	Online           int
	WhitelistEnabled bool
} {
	rm.mu.Lock()
	rooms := make([]*Room, 0, len(rm.rooms))
	for _, r := range rm.rooms {
		rooms = append(rooms, r)
	}
	rm.mu.Unlock()

	out := make([]struct {
		Name             string
		Online           int
		WhitelistEnabled bool
	}, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		out = append(out, struct {
			Name             string
			Online           int
			WhitelistEnabled bool
		}{r.Name, len(r.OnlineUsers), r.WhitelistEnabled})
		r.mu.Unlock()
	}
	return out
}

// persist saves the room's current state to disk. Caller must NOT hold r.mu.
func (r *Room) persist(st *store.Store) error {
	r.mu.Lock()
	p := r.toPersisted()
	r.mu.Unlock()
	return st.PutRoom(r.Name, p)
}

// formatRemaining renders seconds-remaining as "Nd Nh Nm Ns left", matching
// the wire format mandated for ban/mute expiry notices.
func formatRemaining(secs uint64) string {
	d := secs / 86400
	secs %= 86400
	h := secs / 3600
	secs %= 3600
	m := secs / 60
	s := secs % 60
	return fmt.Sprintf("%dd %dh %dm %ds left", d, h, m, s)
}
