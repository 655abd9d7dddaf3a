package main

import (
	"fmt"
	"time"

	"streamline/internal/command"
)

func (s *Server) dispatchInRoom(client *Client, cmd command.Command, st ClientState) bool {
	st.InactiveSince = time.Now()
	client.SetState(st)

	if !s.requirePermission(client, st, cmd) {
		return false
	}

	switch cmd.Kind {
	case command.Leave:
		s.leaveRoom(client, st.Room, st.Username)
		client.SetState(ClientState{Kind: StateLoggedIn, Username: st.Username})
		client.SendOK(fmt.Sprintf("Left room %q.", st.Room))
		client.Send("/LOBBY_STATE")
		s.broadcastRoomList(st.Username)
	case command.Status:
		client.Send(fmt.Sprintf("Logged in as %s. In room %q.", st.Username, st.Room))
	case command.IgnoreList:
		s.handleIgnoreList(client)
	case command.IgnoreAdd:
		s.handleIgnoreAdd(client, st, cmd.Args)
	case command.IgnoreRemove:
		s.handleIgnoreRemove(client, st, cmd.Args)

	case command.Afk:
		s.handleAfk(client, st)
	case command.Msg:
		s.handlePrivateMsg(client, st, cmd.Target, cmd.Text)
	case command.Me:
		s.handleEmote(client, st, cmd.Text)
	case command.Seen:
		s.handleSeen(client, st, cmd.Target)
	case command.Announce:
		s.handleAnnounce(client, st, cmd.Text)

	case command.SuperUsers:
		s.handleSuperUsers(client, st)
	case command.SuperRename:
		s.handleSuperRename(client, st, cmd.Target)
	case command.SuperExport:
		s.handleSuperExport(client, st)
	case command.SuperWhitelistInfo:
		s.handleWhitelistInfo(client, st)
	case command.SuperWhitelistToggle:
		s.handleWhitelistToggle(client, st)
	case command.SuperWhitelistAdd:
		s.handleWhitelistAdd(client, st, cmd.Target)
	case command.SuperWhitelistRemove:
		s.handleWhitelistRemove(client, st, cmd.Target)
	case command.SuperLimitInfo:
		s.handleLimitInfo(client, st)
	case command.SuperLimitRate:
		s.handleLimitRate(client, st, cmd.Text)
	case command.SuperLimitSession:
		s.handleLimitSession(client, st, cmd.Text)
	case command.SuperRolesList:
		s.handleRolesList(client, st)
	case command.SuperRolesAdd:
		s.handleRolesGrant(client, st, cmd.Role, cmd.Args, true)
	case command.SuperRolesRevoke:
		s.handleRolesGrant(client, st, cmd.Role, cmd.Args, false)
	case command.SuperRolesAssign:
		s.handleRolesAssign(client, st, cmd.Role, cmd.Args)
	case command.SuperRolesRecolor:
		s.handleRolesRecolor(client, st, cmd.Role, cmd.Hex)

	case command.UserList:
		s.broadcastUserList(st.Room)
	case command.UserRename:
		s.handleUserRename(client, st, cmd.Text, cmd.Target)
	case command.UserRecolor:
		s.handleUserRecolor(client, st, cmd.Hex, cmd.Target)
	case command.UserHide:
		s.handleUserHide(client, st)

	case command.ModInfo:
		s.handleModInfo(client, st)
	case command.ModKick:
		s.handleModKick(client, st, cmd.Target, cmd.Text)
	case command.ModBan:
		s.handleModBan(client, st, cmd.Target, cmd.Duration, cmd.Text)
	case command.ModUnban:
		s.handleModUnban(client, st, cmd.Target)
	case command.ModMute:
		s.handleModMute(client, st, cmd.Target, cmd.Duration, cmd.Text)
	case command.ModUnmute:
		s.handleModUnmute(client, st, cmd.Target)

	case command.Pubkey:
		s.keys.Set(st.Username, cmd.Target)
		s.syncRoomMembers(st.Room)
		client.SendOK("Public key registered.")

	case command.Chat:
		s.handleChat(client, st, cmd.Text)

	default:
		client.SendWarn("Unknown command. Type /help for a list of commands.")
	}
	return false
}

// leaveRoom removes username from roomName's online set and role-free
// membership bookkeeping stays intact (room membership persists across
// sessions; only presence is transient), then re-syncs remaining members.
func (s *Server) leaveRoom(client *Client, roomName, username string) {
	r, ok := s.rooms.Get(roomName)
	if !ok {
		return
	}
	r.mu.Lock()
	if u, ok := r.Users[username]; ok {
		u.LastSeen = unixNow()
		r.Users[username] = u
	}
	var online []string
	for _, n := range r.OnlineUsers {
		if n != username {
			online = append(online, n)
		}
	}
	r.OnlineUsers = online
	r.mu.Unlock()

	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure while leaving, state may be stale.")
	}
	s.broadcastUserList(roomName)
	s.syncRoomMembers(roomName)
}

func (s *Server) handleAfk(client *Client, st ClientState) {
	st.IsAFK = !st.IsAFK
	client.SetState(st)
	if st.IsAFK {
		client.SendOK("You are now marked as away.")
	} else {
		client.SendOK("You are no longer away.")
	}
	s.broadcastUserList(st.Room)
}

func (s *Server) handlePrivateMsg(client *Client, st ClientState, target, text string) {
	if msg := s.checkMute(mustRoom(s, st.Room), st.Username); msg != "" {
		client.SendWarn(msg)
		return
	}
	recipient, ok := s.clients.ByUsername(target)
	if !ok {
		client.SendWarn(fmt.Sprintf("User %q is not online.", target))
		return
	}
	for _, ignored := range recipient.IgnoreList() {
		if ignored == st.Username {
			client.SendWarn(fmt.Sprintf("User %q is not accepting messages from you.", target))
			return
		}
	}
	recipient.Send(fmt.Sprintf("[PM from %s] %s", st.Username, text))
	client.Send(fmt.Sprintf("[PM to %s] %s", target, text))
}

func (s *Server) handleEmote(client *Client, st ClientState, text string) {
	if msg := s.checkMute(mustRoom(s, st.Room), st.Username); msg != "" {
		client.SendWarn(msg)
		return
	}
	r, _ := s.rooms.Get(st.Room)
	_, display := formatBroadcast(r, st.Username)
	s.broadcastMessage(st.Room, st.Username, fmt.Sprintf("* %s %s", display, text), true, false)
	s.msgCount.Add(1)
}

func (s *Server) handleSeen(client *Client, st ClientState, target string) {
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	u, ok := r.Users[target]
	online := false
	for _, n := range r.OnlineUsers {
		if n == target {
			online = true
			break
		}
	}
	r.mu.Unlock()
	if !ok {
		client.SendWarn(fmt.Sprintf("No record of %q in this room.", target))
		return
	}
	if online {
		client.Send(fmt.Sprintf("%s is online right now.", target))
		return
	}
	client.Send(fmt.Sprintf("%s was last seen %s", target, formatAgo(u.LastSeen)))
}

func (s *Server) handleAnnounce(client *Client, st ClientState, text string) {
	if msg := s.checkMute(mustRoom(s, st.Room), st.Username); msg != "" {
		client.SendWarn(msg)
		return
	}
	s.broadcastMessage(st.Room, st.Username, fmt.Sprintf("[Announcement from %s] %s", st.Username, text), true, true)
	s.msgCount.Add(1)
}

func (s *Server) handleChat(client *Client, st ClientState, text string) {
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	if msg := s.checkMute(r, st.Username); msg != "" {
		client.SendWarn(msg)
		return
	}
	r.mu.Lock()
	rate := r.MsgRate
	r.mu.Unlock()
	if !checkRateLimit(client, rate) {
		client.SendWarn("You are sending messages too quickly.")
		return
	}

	prefix, display := formatBroadcast(r, st.Username)
	var line string
	if prefix == "" {
		line = fmt.Sprintf("%s: %s", display, text)
	} else {
		line = fmt.Sprintf("%s %s: %s", prefix, display, text)
	}
	s.broadcastMessage(st.Room, st.Username, line, true, false)
	s.msgCount.Add(1)

	r.mu.Lock()
	if u, ok := r.Users[st.Username]; ok {
		u.LastSeen = unixNow()
		r.Users[st.Username] = u
	}
	r.mu.Unlock()
}

// mustRoom is a narrow helper for call sites that already know the room
// exists (the caller is InRoom, which requires Get to have succeeded at
// join time).
func mustRoom(s *Server, name string) *Room {
	r, _ := s.rooms.Get(name)
	return r
}

// formatAgo renders the elapsed time since lastSeen as "Nd Nh Nm Ns ago".
func formatAgo(lastSeen uint64) string {
	now := unixNow()
	if lastSeen >= now {
		return "just now"
	}
	elapsed := now - lastSeen
	d := elapsed / 86400
	elapsed %= 86400
	h := elapsed / 3600
	elapsed %= 3600
	m := elapsed / 60
	sec := elapsed % 60
	return fmt.Sprintf("%dd %dh %dm %ds ago", d, h, m, sec)
}
