package main

import (
	"strings"
	"testing"
	"time"

	"streamline/internal/audit"
	"streamline/internal/command"
)

func newTestServerForDispatch(t *testing.T) *Server {
	t.Helper()
	st := newTestStoreForRoom(t)
	al, err := audit.Open(":memory:")
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	t.Cleanup(func() { al.Close() })
	return NewServer(nil, st, al)
}

func drain(t *testing.T, lines chan string, want string) string {
	t.Helper()
	select {
	case l := <-lines:
		return l
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for line containing %q", want)
		return ""
	}
}

func TestDispatchRegisterThenLogsIn(t *testing.T) {
	s := newTestServerForDispatch(t)
	c, lines := pipeClient(t)
	s.clients.add(c)

	s.dispatch(c, command.Command{Kind: command.AccountRegister, Target: "alice", Text: "pw"})

	st := c.State()
	if st.Kind != StateLoggedIn || st.Username != "alice" {
		t.Fatalf("expected LoggedIn alice, got %+v", st)
	}
	_ = drain(t, lines, "registered")
}

func TestDispatchRegisterDuplicateRejected(t *testing.T) {
	s := newTestServerForDispatch(t)
	c1, _ := pipeClient(t)
	s.dispatch(c1, command.Command{Kind: command.AccountRegister, Target: "alice", Text: "pw"})

	c2, lines2 := pipeClient(t)
	s.dispatch(c2, command.Command{Kind: command.AccountRegister, Target: "alice", Text: "other"})

	st := c2.State()
	if st.Kind != StateGuest {
		t.Errorf("expected duplicate registration to leave session as Guest, got %+v", st)
	}
	_ = drain(t, lines2, "already exists")
}

func TestDispatchLoginWrongPassword(t *testing.T) {
	s := newTestServerForDispatch(t)
	c, _ := pipeClient(t)
	s.dispatch(c, command.Command{Kind: command.AccountRegister, Target: "alice", Text: "correct"})
	s.dispatch(c, command.Command{Kind: command.AccountLogout})

	c2, lines2 := pipeClient(t)
	s.dispatch(c2, command.Command{Kind: command.AccountLogin, Target: "alice", Text: "wrong"})
	if c2.State().Kind != StateGuest {
		t.Error("expected failed login to remain Guest")
	}
	_ = drain(t, lines2, "Invalid username or password.")
}

func TestDispatchRoomCreateAndJoin(t *testing.T) {
	s := newTestServerForDispatch(t)
	c, _ := pipeClient(t)
	s.clients.add(c)
	s.dispatch(c, command.Command{Kind: command.AccountRegister, Target: "alice", Text: "pw"})

	s.dispatch(c, command.Command{Kind: command.RoomCreate, Target: "lobby"})

	st := c.State()
	if st.Kind != StateInRoom || st.Room != "lobby" {
		t.Fatalf("expected InRoom lobby after create, got %+v", st)
	}

	r, ok := s.rooms.Get("lobby")
	if !ok {
		t.Fatal("expected lobby room to exist")
	}
	r.mu.Lock()
	u, exists := r.Users["alice"]
	r.mu.Unlock()
	if !exists || u.Role != "owner" {
		t.Errorf("expected alice to be seeded as room owner, got %+v", u)
	}
}

func TestDispatchRoomJoinSendsStateNameThenRole(t *testing.T) {
	s := newTestServerForDispatch(t)
	c, lines := pipeClient(t)
	s.clients.add(c)
	s.dispatch(c, command.Command{Kind: command.AccountRegister, Target: "alice", Text: "pw"})
	s.dispatch(c, command.Command{Kind: command.RoomCreate, Target: "lobby"})

	drain(t, lines, "registered") // "Registered and logged in as alice."
	drain(t, lines, "/LOGIN_OK")
	drain(t, lines, "/LOBBY_STATE")
	drain(t, lines, "Room") // "Room \"lobby\" created."
	drain(t, lines, "Joined room")

	if got := drain(t, lines, "/ROOM_STATE"); got != "/ROOM_STATE" {
		t.Errorf("expected /ROOM_STATE first, got %q", got)
	}
	if got := drain(t, lines, "/ROOM_NAME"); got != "/ROOM_NAME lobby" {
		t.Errorf("expected /ROOM_NAME second, got %q", got)
	}
	if got := drain(t, lines, "/ROLE"); got != "/ROLE owner" {
		t.Errorf("expected /ROLE owner third, got %q", got)
	}
}

func TestDispatchWhitelistOwnerBypass(t *testing.T) {
	s := newTestServerForDispatch(t)
	owner, _ := pipeClient(t)
	s.clients.add(owner)
	s.dispatch(owner, command.Command{Kind: command.AccountRegister, Target: "alice", Text: "pw"})
	s.dispatch(owner, command.Command{Kind: command.RoomCreate, Target: "lobby"})
	s.dispatch(owner, command.Command{Kind: command.SuperWhitelistToggle})
	s.dispatch(owner, command.Command{Kind: command.Leave})

	s.dispatch(owner, command.Command{Kind: command.RoomJoin, Target: "lobby"})

	if st := owner.State(); st.Kind != StateInRoom || st.Room != "lobby" {
		t.Errorf("expected owner to bypass their own room's whitelist, got %+v", st)
	}
}

func TestDispatchRolesGrantNoOpWhenAlreadyPresent(t *testing.T) {
	s := newTestServerForDispatch(t)
	owner, lines := pipeClient(t)
	s.clients.add(owner)
	s.dispatch(owner, command.Command{Kind: command.AccountRegister, Target: "alice", Text: "pw"})
	s.dispatch(owner, command.Command{Kind: command.RoomCreate, Target: "lobby"})
	drainAll(lines)

	s.dispatch(owner, command.Command{Kind: command.SuperRolesAdd, Role: "user", Args: []string{"mod.info"}})
	drainAll(lines)

	s.dispatch(owner, command.Command{Kind: command.SuperRolesAdd, Role: "user", Args: []string{"mod.info"}})

	got := drain(t, lines, "No changes made.")
	if !strings.Contains(got, "No changes made.") {
		t.Errorf("expected re-granting an already-present token to no-op, got %q", got)
	}
}

func TestDispatchChatBroadcastsToOtherMembers(t *testing.T) {
	s := newTestServerForDispatch(t)

	owner, _ := pipeClient(t)
	s.clients.add(owner)
	s.dispatch(owner, command.Command{Kind: command.AccountRegister, Target: "alice", Text: "pw"})
	s.dispatch(owner, command.Command{Kind: command.RoomCreate, Target: "lobby"})

	member, memberLines := pipeClient(t)
	s.clients.add(member)
	s.dispatch(member, command.Command{Kind: command.AccountRegister, Target: "bob", Text: "pw"})
	s.dispatch(member, command.Command{Kind: command.RoomJoin, Target: "lobby"})

	s.dispatch(owner, command.Command{Kind: command.Chat, Text: "hello room"})

	found := false
	deadline := time.After(time.Second)
	for !found {
		select {
		case l := <-memberLines:
			if strings.Contains(l, "hello room") {
				found = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for chat broadcast")
		}
	}
}

func TestDispatchMuteBlocksChat(t *testing.T) {
	s := newTestServerForDispatch(t)

	owner, _ := pipeClient(t)
	s.clients.add(owner)
	s.dispatch(owner, command.Command{Kind: command.AccountRegister, Target: "alice", Text: "pw"})
	s.dispatch(owner, command.Command{Kind: command.RoomCreate, Target: "lobby"})

	member, memberLines := pipeClient(t)
	s.clients.add(member)
	s.dispatch(member, command.Command{Kind: command.AccountRegister, Target: "bob", Text: "pw"})
	s.dispatch(member, command.Command{Kind: command.RoomJoin, Target: "lobby"})
	drainAll(memberLines)

	s.dispatch(owner, command.Command{Kind: command.ModMute, Target: "bob", Duration: "*"})

	s.dispatch(member, command.Command{Kind: command.Chat, Text: "should not appear"})

	select {
	case l := <-memberLines:
		if strings.Contains(l, "should not appear") {
			t.Error("muted user's message should not have been broadcast")
		}
	case <-time.After(150 * time.Millisecond):
		// No broadcast arrived, as expected.
	}
}

func TestDispatchMuteBlocksPrivateMsg(t *testing.T) {
	s := newTestServerForDispatch(t)

	owner, _ := pipeClient(t)
	s.clients.add(owner)
	s.dispatch(owner, command.Command{Kind: command.AccountRegister, Target: "alice", Text: "pw"})
	s.dispatch(owner, command.Command{Kind: command.RoomCreate, Target: "lobby"})

	member, memberLines := pipeClient(t)
	s.clients.add(member)
	s.dispatch(member, command.Command{Kind: command.AccountRegister, Target: "bob", Text: "pw"})
	s.dispatch(member, command.Command{Kind: command.RoomJoin, Target: "lobby"})
	drainAll(memberLines)

	s.dispatch(owner, command.Command{Kind: command.ModMute, Target: "bob", Duration: "*"})

	s.dispatch(member, command.Command{Kind: command.Msg, Target: "alice", Text: "should not send"})

	l := drain(t, memberLines, "muted")
	if !strings.Contains(l, "muted") {
		t.Errorf("expected a mute advisory when sending /msg while muted, got %q", l)
	}
}

func TestDispatchMuteBlocksAnnounce(t *testing.T) {
	s := newTestServerForDispatch(t)

	owner, _ := pipeClient(t)
	s.clients.add(owner)
	s.dispatch(owner, command.Command{Kind: command.AccountRegister, Target: "alice", Text: "pw"})
	s.dispatch(owner, command.Command{Kind: command.RoomCreate, Target: "lobby"})

	member, memberLines := pipeClient(t)
	s.clients.add(member)
	s.dispatch(member, command.Command{Kind: command.AccountRegister, Target: "bob", Text: "pw"})
	s.dispatch(member, command.Command{Kind: command.RoomJoin, Target: "lobby"})
	drainAll(memberLines)

	s.dispatch(owner, command.Command{Kind: command.ModMute, Target: "bob", Duration: "*"})

	s.dispatch(member, command.Command{Kind: command.Announce, Text: "should not appear"})

	l := drain(t, memberLines, "muted")
	if !strings.Contains(l, "muted") {
		t.Errorf("expected a mute advisory when announcing while muted, got %q", l)
	}
}

func drainAll(ch chan string) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
