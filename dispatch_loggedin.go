package main

import (
	"fmt"
	"strings"
	"time"

	"streamline/internal/command"
)

func (s *Server) dispatchLoggedIn(client *Client, cmd command.Command, st ClientState) bool {
	switch cmd.Kind {
	case command.Leave:
		client.SendWarn("You are not in a room.")
	case command.Status:
		client.Send(fmt.Sprintf("Logged in as %s. Not in a room.", st.Username))
	case command.IgnoreList:
		s.handleIgnoreList(client)
	case command.IgnoreAdd:
		s.handleIgnoreAdd(client, st, cmd.Args)
	case command.IgnoreRemove:
		s.handleIgnoreRemove(client, st, cmd.Args)

	case command.AccountLogout:
		s.handleLogout(client, st)
	case command.AccountEditUsername:
		s.handleEditUsername(client, st, cmd.Target)
	case command.AccountEditPassword:
		s.handleEditPassword(client, st, cmd.Target)
	case command.AccountImport:
		s.handleAccountImport(client, cmd.Target)
	case command.AccountExport:
		s.handleAccountExport(client, st)
	case command.AccountDelete:
		s.handleAccountDelete(client, st, cmd.Force)
	case command.AccountInfo:
		s.handleAccountInfo(client, st)

	case command.RoomList:
		s.broadcastRoomList(st.Username)
	case command.RoomCreate:
		s.handleRoomCreate(client, st, cmd.Target, cmd.Force)
	case command.RoomJoin:
		s.handleRoomJoin(client, st, cmd.Target)
	case command.RoomImport:
		s.handleRoomImport(client, st, cmd.Target)
	case command.RoomDelete:
		s.handleRoomDelete(client, st, cmd.Target, cmd.Force)

	case command.Chat:
		client.SendWarn("Join a room before chatting. Try /room join <name>.")
	default:
		client.SendWarn("That command requires being in a room.")
	}
	return false
}

func (s *Server) handleLogout(client *Client, st ClientState) {
	s.keys.Delete(st.Username)
	client.SetState(ClientState{Kind: StateGuest})
	client.SendOK("Logged out.")
	client.Send("/GUEST_STATE")
}

func (s *Server) handleIgnoreList(client *Client) {
	list := client.IgnoreList()
	if len(list) == 0 {
		client.Send("Ignore list is empty.")
		return
	}
	client.Send("Ignoring: " + strings.Join(list, ", "))
}

func (s *Server) handleIgnoreAdd(client *Client, st ClientState, users []string) {
	list := client.IgnoreList()
	for _, u := range users {
		if u == st.Username {
			continue
		}
		found := false
		for _, existing := range list {
			if existing == u {
				found = true
				break
			}
		}
		if !found {
			list = append(list, u)
		}
	}
	client.SetIgnoreList(list)
	s.persistIgnoreList(st.Username, list)
	client.SendOK("Ignore list updated.")
}

func (s *Server) handleIgnoreRemove(client *Client, st ClientState, users []string) {
	list := client.IgnoreList()
	toRemove := make(map[string]bool, len(users))
	for _, u := range users {
		toRemove[u] = true
	}
	var kept []string
	for _, existing := range list {
		if !toRemove[existing] {
			kept = append(kept, existing)
		}
	}
	client.SetIgnoreList(kept)
	s.persistIgnoreList(st.Username, kept)
	client.SendOK("Ignore list updated.")
}

func (s *Server) persistIgnoreList(username string, list []string) {
	u, ok, err := s.store.GetUser(username)
	if err != nil || !ok {
		return
	}
	u.Ignore = list
	s.store.PutUser(username, u)
}

func (s *Server) handleEditUsername(client *Client, st ClientState, newName string) {
	if newName == "" {
		client.SendWarn("Usage: /account edit username <new-value>")
		return
	}
	ok, err := s.store.RenameUser(st.Username, newName)
	if err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	if !ok {
		client.SendWarn(fmt.Sprintf("Username %q is unavailable.", newName))
		return
	}
	s.keys.Delete(st.Username)
	client.SetState(ClientState{Kind: StateLoggedIn, Username: newName})
	client.SendOK(fmt.Sprintf("Username changed to %s.", newName))
}

func (s *Server) handleEditPassword(client *Client, st ClientState, newPassword string) {
	if newPassword == "" {
		client.SendWarn("Usage: /account edit password <new-value>")
		return
	}
	u, ok, err := s.store.GetUser(st.Username)
	if err != nil || !ok {
		client.SendError("Storage failure, please try again.")
		return
	}
	u.Password = generateHash(newPassword)
	if err := s.store.PutUser(st.Username, u); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK("Password updated.")
}

func (s *Server) handleAccountImport(client *Client, path string) {
	username, u, err := s.store.ImportUserVault(path)
	if err != nil {
		client.SendWarn("Could not import that vault file.")
		return
	}
	_, exists, err := s.store.GetUser(username)
	if err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	if exists {
		client.SendWarn(fmt.Sprintf("User %q already exists.", username))
		return
	}
	if err := s.store.PutUser(username, u); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK(fmt.Sprintf("Imported account %q.", username))
}

func (s *Server) handleAccountExport(client *Client, st ClientState) {
	u, ok, err := s.store.GetUser(st.Username)
	if err != nil || !ok {
		client.SendError("Storage failure, please try again.")
		return
	}
	path, err := s.store.ExportUserVault(st.Username, u)
	if err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK("Exported account to " + path)
}

func (s *Server) handleAccountDelete(client *Client, st ClientState, force bool) {
	if !force {
		client.SendWarn("This will permanently delete your account. Run /account delete force to confirm.")
		return
	}
	if err := s.store.DeleteUser(st.Username); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	s.keys.Delete(st.Username)
	client.SetState(ClientState{Kind: StateGuest})
	client.SendOK("Account deleted.")
	client.Send("/GUEST_STATE")
}

func (s *Server) handleAccountInfo(client *Client, st ClientState) {
	client.Send(fmt.Sprintf("Username: %s", st.Username))
}

func (s *Server) handleRoomCreate(client *Client, st ClientState, name string, whitelist bool) {
	if name == "" {
		client.SendWarn("Usage: /room create <name> [whitelist]")
		return
	}
	_, err, created := s.rooms.Create(name, whitelist, st.Username)
	if err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	if !created {
		client.SendWarn(fmt.Sprintf("Room %q already exists.", name))
		return
	}
	client.SendOK(fmt.Sprintf("Room %q created.", name))
	s.handleRoomJoin(client, st, name)
}

func (s *Server) handleRoomJoin(client *Client, st ClientState, name string) {
	r, ok := s.rooms.Get(name)
	if !ok {
		client.SendWarn(fmt.Sprintf("Room %q does not exist.", name))
		return
	}

	r.mu.Lock()
	if r.WhitelistEnabled {
		isOwner := false
		if u, ok := r.Users[st.Username]; ok && u.Role == "owner" {
			isOwner = true
		}
		allowed := isOwner
		if !allowed {
			for _, w := range r.Whitelist {
				if w == st.Username {
					allowed = true
					break
				}
			}
		}
		if !allowed {
			r.mu.Unlock()
			client.SendError(fmt.Sprintf("Room %q is whitelist-only.", name))
			return
		}
	}
	u, existed := r.Users[st.Username]
	if existed && u.Banned {
		now := unixNow()
		if u.BanLength == 0 || now < u.BanStamp+u.BanLength {
			reason := u.BanReason
			remaining := "Permanent"
			if u.BanLength != 0 {
				remaining = formatRemaining(u.BanStamp + u.BanLength - now)
			}
			r.mu.Unlock()
			if reason == "" {
				client.SendError(fmt.Sprintf("You are banned from this room (%s)", remaining))
			} else {
				client.SendError(fmt.Sprintf("You are banned from this room: %s\n> %s", reason, remaining))
			}
			return
		}
		u.Banned = false
		u.BanStamp = 0
		u.BanLength = 0
		u.BanReason = ""
		r.Users[st.Username] = u
	}
	if !existed {
		r.Users[st.Username] = &RoomUser{Role: "user", LastSeen: unixNow()}
	} else {
		u.LastSeen = unixNow()
		r.Users[st.Username] = u
	}
	role := r.Users[st.Username].Role
	r.OnlineUsers = append(r.OnlineUsers, st.Username)
	r.mu.Unlock()

	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
	}

	now := time.Now()
	client.SetState(ClientState{Kind: StateInRoom, Username: st.Username, Room: name, JoinedAt: now, InactiveSince: now})
	client.SendOK(fmt.Sprintf("Joined room %q.", name))
	client.Send("/ROOM_STATE")
	client.Send("/ROOM_NAME " + name)
	client.Send("/ROLE " + role)

	s.syncUserCommands(client, name, st.Username)
	s.syncRoomMembers(name)
	s.broadcastUserList(name)
	s.syncRoomCommands(name)
}

func (s *Server) handleRoomImport(client *Client, st ClientState, path string) {
	name, rm, err := s.store.ImportRoomVault(path)
	if err != nil {
		client.SendWarn("Could not import that vault file.")
		return
	}
	ok, err := s.rooms.Import(name, rm)
	if err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	if !ok {
		client.SendWarn(fmt.Sprintf("Room %q already exists.", name))
		return
	}
	client.SendOK(fmt.Sprintf("Imported room %q.", name))
}

func (s *Server) handleRoomDelete(client *Client, st ClientState, name string, force bool) {
	r, ok := s.rooms.Get(name)
	if !ok {
		client.SendWarn(fmt.Sprintf("Room %q does not exist.", name))
		return
	}
	r.mu.Lock()
	u, ok := r.Users[st.Username]
	r.mu.Unlock()
	if !ok || u.Role != "owner" {
		client.SendError("Only the room owner may delete it.")
		return
	}
	if !force {
		client.SendWarn(fmt.Sprintf("This will permanently delete room %q. Run /room delete %s force to confirm.", name, name))
		return
	}
	for _, c := range s.clients.InRoom(name) {
		c.SendWarn(fmt.Sprintf("Room %q was deleted by its owner.", name))
		ost := c.State()
		c.SetState(ClientState{Kind: StateLoggedIn, Username: ost.Username})
		c.Send("/LOBBY_STATE")
	}
	if err := s.rooms.Delete(name); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK(fmt.Sprintf("Room %q deleted.", name))
}
