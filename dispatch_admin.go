package main

import (
	"fmt"
	"sort"
	"strings"

	"streamline/internal/color"
	"streamline/internal/command"
)

func (s *Server) callerRank(roomName, username string) int {
	r, ok := s.rooms.Get(roomName)
	if !ok {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.Users[username]
	if !ok {
		return rankUser
	}
	return roleRank(u.Role)
}

func (s *Server) handleSuperUsers(client *Client, st ClientState) {
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	names := make([]string, 0, len(r.Users))
	for n := range r.Users {
		names = append(names, n)
	}
	sort.Strings(names)
	var lines []string
	for _, n := range names {
		u := r.Users[n]
		lines = append(lines, fmt.Sprintf("%s: role=%s nick=%q hidden=%v banned=%v muted=%v last_seen=%d",
			n, u.Role, u.Nick, u.Hidden, u.Banned, u.Muted, u.LastSeen))
	}
	r.mu.Unlock()
	if len(lines) == 0 {
		client.Send("No recorded users.")
		return
	}
	client.Send(strings.Join(lines, "\n"))
}

func (s *Server) handleSuperRename(client *Client, st ClientState, newName string) {
	if newName == "" {
		client.SendWarn("Usage: /super rename <name>")
		return
	}
	exists, err := s.store.RoomExists(newName)
	if err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	if exists {
		client.SendWarn(fmt.Sprintf("Room %q already exists.", newName))
		return
	}

	oldName := st.Room
	r, ok := s.rooms.Get(oldName)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}

	r.mu.Lock()
	r.Name = newName
	p := r.toPersisted()
	r.mu.Unlock()

	if err := s.store.PutRoom(newName, p); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	if err := s.store.DeleteRoom(oldName); err != nil {
		client.SendError("Storage failure, please try again.")
	}
	s.rooms.mu.Lock()
	delete(s.rooms.rooms, oldName)
	s.rooms.rooms[newName] = r
	s.rooms.mu.Unlock()

	for _, c := range s.clients.InRoom(oldName) {
		cst := c.State()
		cst.Room = newName
		c.SetState(cst)
		c.Send("/ROOM_NAME " + newName)
	}
	client.SendOK(fmt.Sprintf("Room renamed to %q.", newName))
	s.audit.Record(newName, st.Username, "room.rename", oldName, newName)
}

func (s *Server) handleSuperExport(client *Client, st ClientState) {
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	p := r.toPersisted()
	r.mu.Unlock()
	path, err := s.store.ExportRoomVault(st.Room, p)
	if err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK("Exported room to " + path)
}

func (s *Server) handleWhitelistInfo(client *Client, st ClientState) {
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	enabled := r.WhitelistEnabled
	list := append([]string{}, r.Whitelist...)
	r.mu.Unlock()
	if !enabled {
		client.Send("Whitelist is disabled.")
		return
	}
	client.Send("Whitelist: " + strings.Join(list, ", "))
}

func (s *Server) handleWhitelistToggle(client *Client, st ClientState) {
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	r.WhitelistEnabled = !r.WhitelistEnabled
	enabled := r.WhitelistEnabled
	r.mu.Unlock()
	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	if enabled {
		client.SendOK("Whitelist enabled.")
	} else {
		client.SendOK("Whitelist disabled.")
	}
}

func (s *Server) handleWhitelistAdd(client *Client, st ClientState, target string) {
	if target == "" {
		client.SendWarn("Usage: /super whitelist add <user>")
		return
	}
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	for _, w := range r.Whitelist {
		if w == target {
			r.mu.Unlock()
			client.SendWarn(fmt.Sprintf("%s is already whitelisted.", target))
			return
		}
	}
	r.Whitelist = append(r.Whitelist, target)
	r.mu.Unlock()
	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK(fmt.Sprintf("%s added to whitelist.", target))
}

func (s *Server) handleWhitelistRemove(client *Client, st ClientState, target string) {
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	var kept []string
	for _, w := range r.Whitelist {
		if w != target {
			kept = append(kept, w)
		}
	}
	r.Whitelist = kept
	r.mu.Unlock()
	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK(fmt.Sprintf("%s removed from whitelist.", target))
}

func (s *Server) handleLimitInfo(client *Client, st ClientState) {
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	rate, sess := r.MsgRate, r.SessionTimeout
	r.mu.Unlock()
	client.Send(fmt.Sprintf("Message rate: %s. Session timeout: %s.", limitDisplay(uint32(rate)), limitDisplay(sess)))
}

func limitDisplay(v uint32) string {
	if v == 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", v)
}

func (s *Server) handleLimitRate(client *Client, st ClientState, spec string) {
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	var rate uint8
	if spec != "*" {
		var v int
		if _, err := fmt.Sscanf(spec, "%d", &v); err != nil || v < 0 || v > 255 {
			client.SendWarn("Usage: /super limit rate <n|*>")
			return
		}
		rate = uint8(v)
	}
	r.mu.Lock()
	r.MsgRate = rate
	r.mu.Unlock()
	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK("Message rate updated.")
}

func (s *Server) handleLimitSession(client *Client, st ClientState, spec string) {
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	var timeout uint32
	if spec != "*" {
		var v int
		if _, err := fmt.Sscanf(spec, "%d", &v); err != nil || v < 0 {
			client.SendWarn("Usage: /super limit session <n|*>")
			return
		}
		timeout = uint32(v)
	}
	r.mu.Lock()
	r.SessionTimeout = timeout
	r.mu.Unlock()
	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK("Session timeout updated.")
}

func (s *Server) handleRolesList(client *Client, st ClientState) {
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	mod := append([]string{}, r.Roles.Moderator...)
	usr := append([]string{}, r.Roles.User...)
	r.mu.Unlock()
	client.Send(fmt.Sprintf("moderator: %s\nuser: %s", strings.Join(mod, " "), strings.Join(usr, " ")))
}

func (s *Server) handleRolesGrant(client *Client, st ClientState, role string, tokens []string, add bool) {
	if role != "moderator" && role != "user" {
		client.SendWarn("Usage: /super roles add|revoke moderator|user <cmd...>")
		return
	}
	for _, t := range tokens {
		if !command.RestrictedCommands[t] {
			client.SendWarn(fmt.Sprintf("Unknown command token %q.", t))
			return
		}
	}
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	var list *[]string
	if role == "moderator" {
		list = &r.Roles.Moderator
	} else {
		list = &r.Roles.User
	}
	changed := false
	if add {
		for _, t := range tokens {
			found := false
			for _, existing := range *list {
				if existing == t {
					found = true
					break
				}
			}
			if !found {
				*list = append(*list, t)
				changed = true
			}
		}
	} else {
		remove := make(map[string]bool, len(tokens))
		for _, t := range tokens {
			remove[t] = true
		}
		var kept []string
		for _, existing := range *list {
			if remove[existing] {
				changed = true
			} else {
				kept = append(kept, existing)
			}
		}
		*list = kept
	}
	r.mu.Unlock()
	if !changed {
		client.SendOK("No changes made.")
		return
	}
	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK("Roles updated.")
	s.syncRoomCommands(st.Room)
}

func (s *Server) handleRolesAssign(client *Client, st ClientState, role string, users []string) {
	if role != "admin" && role != "moderator" && role != "user" && role != "owner" {
		client.SendWarn("Usage: /super roles assign admin|moderator|user|owner <user...>")
		return
	}
	if role == "owner" {
		if len(users) != 1 {
			client.SendWarn("Usage: /super roles assign owner <user>")
			return
		}
		if s.callerRank(st.Room, st.Username) != rankOwner {
			client.SendError("Only the current owner may transfer ownership.")
			return
		}
		client.SendWarn(fmt.Sprintf("Transfer room ownership to %s? (y/n)", users[0]))
		client.BeginConfirm(st.Room, users[0])
		return
	}

	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	callerRank := s.callerRank(st.Room, st.Username)
	var assigned []string
	for _, target := range users {
		r.mu.Lock()
		u, ok := r.Users[target]
		if !ok {
			u = &RoomUser{LastSeen: unixNow()}
		}
		targetRank := roleRank(u.Role)
		if targetRank >= callerRank {
			r.mu.Unlock()
			client.SendError(fmt.Sprintf("Cannot assign a role to %s.", target))
			continue
		}
		u.Role = role
		r.Users[target] = u
		r.mu.Unlock()
		assigned = append(assigned, target)
	}
	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK("Roles assigned.")
	s.syncRoomCommands(st.Room)
	s.broadcastUserList(st.Room)
	for _, target := range assigned {
		s.audit.Record(st.Room, st.Username, "role.assign", target, role)
	}
}

// handleOwnerTransferConfirm completes or cancels an in-flight
// /super roles assign owner confirmation.
func (s *Server) handleOwnerTransferConfirm(client *Client, pc *pendingConfirm, confirm bool) {
	if !confirm {
		client.SendWarn("Ownership transfer cancelled.")
		return
	}
	st := client.State()
	r, ok := s.rooms.Get(pc.room)
	if !ok {
		client.SendWarn("Room no longer exists.")
		return
	}
	r.mu.Lock()
	caller, ok := r.Users[st.Username]
	if !ok || caller.Role != "owner" {
		r.mu.Unlock()
		client.SendError("You are no longer the owner.")
		return
	}
	target, ok := r.Users[pc.newOwner]
	if !ok {
		target = &RoomUser{LastSeen: unixNow()}
	}
	caller.Role = "admin"
	target.Role = "owner"
	r.Users[st.Username] = caller
	r.Users[pc.newOwner] = target
	r.mu.Unlock()

	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK(fmt.Sprintf("Ownership transferred to %s.", pc.newOwner))
	s.syncRoomCommands(pc.room)
	s.broadcastUserList(pc.room)
	s.audit.Record(pc.room, st.Username, "room.owner_transfer", pc.newOwner, "")
}

func (s *Server) handleRolesRecolor(client *Client, st ClientState, role, hex string) {
	if role != "owner" && role != "admin" && role != "moderator" && role != "user" {
		client.SendWarn("Usage: /super roles recolor owner|admin|moderator|user <#hex>")
		return
	}
	if !color.ValidHex(hex) {
		client.SendWarn("Color must be a 6-digit hex code, e.g. #1E90FF.")
		return
	}
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	if r.Roles.Colors == nil {
		r.Roles.Colors = make(map[string]string)
	}
	r.Roles.Colors[role] = hex
	r.mu.Unlock()
	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK("Role color updated.")
	s.broadcastUserList(st.Room)
}

func (s *Server) handleUserRename(client *Client, st ClientState, value, target string) {
	username := st.Username
	if target != "" && target != st.Username {
		if s.callerRank(st.Room, st.Username) <= s.callerRank(st.Room, target) {
			client.SendError("Cannot rename a user of equal or higher rank.")
			return
		}
		username = target
	}
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	u, ok := r.Users[username]
	if !ok {
		r.mu.Unlock()
		client.SendWarn(fmt.Sprintf("No record of %q in this room.", username))
		return
	}
	switch value {
	case "reset", "*":
		u.Nick = ""
	default:
		u.Nick = value
	}
	r.Users[username] = u
	r.mu.Unlock()
	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK("Nickname updated.")
	s.broadcastUserList(st.Room)
}

func (s *Server) handleUserRecolor(client *Client, st ClientState, hex, target string) {
	username := st.Username
	if target != "" && target != st.Username {
		if s.callerRank(st.Room, st.Username) <= s.callerRank(st.Room, target) {
			client.SendError("Cannot recolor a user of equal or higher rank.")
			return
		}
		username = target
	}
	if hex != "reset" && hex != "*" && !color.ValidHex(hex) {
		client.SendWarn("Color must be a 6-digit hex code, e.g. #1E90FF.")
		return
	}
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	u, ok := r.Users[username]
	if !ok {
		r.mu.Unlock()
		client.SendWarn(fmt.Sprintf("No record of %q in this room.", username))
		return
	}
	if hex == "reset" || hex == "*" {
		u.Color = ""
	} else {
		u.Color = hex
	}
	r.Users[username] = u
	r.mu.Unlock()
	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK("Color updated.")
	s.broadcastUserList(st.Room)
}

func (s *Server) handleUserHide(client *Client, st ClientState) {
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	u, ok := r.Users[st.Username]
	if !ok {
		r.mu.Unlock()
		client.SendWarn("No record of you in this room.")
		return
	}
	u.Hidden = !u.Hidden
	r.Users[st.Username] = u
	hidden := u.Hidden
	r.mu.Unlock()
	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	if hidden {
		client.SendOK("You are now hidden from /user list.")
	} else {
		client.SendOK("You are now visible in /user list.")
	}
	s.broadcastUserList(st.Room)
	s.syncRoomMembers(st.Room)
}

func (s *Server) handleModInfo(client *Client, st ClientState) {
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	var lines []string
	names := make([]string, 0, len(r.Users))
	for n := range r.Users {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		u := r.Users[n]
		if u.Banned {
			lines = append(lines, fmt.Sprintf("%s: banned (%s)", n, u.BanReason))
		}
		if u.Muted {
			lines = append(lines, fmt.Sprintf("%s: muted (%s)", n, u.MuteReason))
		}
	}
	r.mu.Unlock()
	if len(lines) == 0 {
		client.Send("No active bans or mutes.")
		return
	}
	client.Send(strings.Join(lines, "\n"))
}

func (s *Server) disconnectFromRoom(roomName, username, reason string) {
	c, ok := s.clients.ByUsername(username)
	if !ok {
		return
	}
	cst := c.State()
	if cst.Kind != StateInRoom || cst.Room != roomName {
		return
	}
	s.leaveRoom(c, roomName, username)
	c.SetState(ClientState{Kind: StateLoggedIn, Username: username})
	c.SendError(reason)
	c.Send("/LOBBY_STATE")
}

func (s *Server) handleModKick(client *Client, st ClientState, target, reason string) {
	if s.callerRank(st.Room, st.Username) <= s.callerRank(st.Room, target) {
		client.SendError("Cannot kick a user of equal or higher rank.")
		return
	}
	msg := "You were kicked from the room."
	if reason != "" {
		msg += " Reason: " + reason
	}
	s.disconnectFromRoom(st.Room, target, msg)
	client.SendOK(fmt.Sprintf("%s kicked.", target))
	s.audit.Record(st.Room, st.Username, "kick", target, reason)
}

func (s *Server) handleModBan(client *Client, st ClientState, target, durSpec, reason string) {
	if s.callerRank(st.Room, st.Username) <= s.callerRank(st.Room, target) {
		client.SendError("Cannot ban a user of equal or higher rank.")
		return
	}
	if !command.DurationFormatPasses(durSpec) {
		client.SendWarn("Invalid duration. Use combinations like 1d2h30m, or * for permanent.")
		return
	}
	length, err := command.ParseDuration(durSpec)
	if err != nil {
		client.SendWarn("Invalid duration.")
		return
	}
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	u, ok := r.Users[target]
	if !ok {
		u = &RoomUser{Role: "user"}
	}
	u.Banned = true
	u.BanStamp = unixNow()
	u.BanLength = length
	u.BanReason = reason
	r.Users[target] = u
	r.mu.Unlock()
	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	msg := "You were banned from the room."
	if reason != "" {
		msg += " Reason: " + reason
	}
	s.disconnectFromRoom(st.Room, target, msg)
	client.SendOK(fmt.Sprintf("%s banned.", target))
	s.audit.Record(st.Room, st.Username, "ban", target, reason)
}

func (s *Server) handleModUnban(client *Client, st ClientState, target string) {
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	u, ok := r.Users[target]
	if !ok || !u.Banned {
		r.mu.Unlock()
		client.SendWarn(fmt.Sprintf("%s is not banned.", target))
		return
	}
	u.Banned = false
	u.BanStamp = 0
	u.BanLength = 0
	u.BanReason = ""
	r.Users[target] = u
	r.mu.Unlock()
	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK(fmt.Sprintf("%s unbanned.", target))
	s.audit.Record(st.Room, st.Username, "unban", target, "")
}

func (s *Server) handleModMute(client *Client, st ClientState, target, durSpec, reason string) {
	if s.callerRank(st.Room, st.Username) <= s.callerRank(st.Room, target) {
		client.SendError("Cannot mute a user of equal or higher rank.")
		return
	}
	if !command.DurationFormatPasses(durSpec) {
		client.SendWarn("Invalid duration. Use combinations like 1d2h30m, or * for permanent.")
		return
	}
	length, err := command.ParseDuration(durSpec)
	if err != nil {
		client.SendWarn("Invalid duration.")
		return
	}
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	u, ok := r.Users[target]
	if !ok {
		u = &RoomUser{Role: "user"}
	}
	u.Muted = true
	u.MuteStamp = unixNow()
	u.MuteLength = length
	u.MuteReason = reason
	r.Users[target] = u
	r.mu.Unlock()
	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK(fmt.Sprintf("%s muted.", target))
	s.audit.Record(st.Room, st.Username, "mute", target, reason)
}

func (s *Server) handleModUnmute(client *Client, st ClientState, target string) {
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn("Room not found.")
		return
	}
	r.mu.Lock()
	u, ok := r.Users[target]
	if !ok || !u.Muted {
		r.mu.Unlock()
		client.SendWarn(fmt.Sprintf("%s is not muted.", target))
		return
	}
	u.Muted = false
	u.MuteStamp = 0
	u.MuteLength = 0
	u.MuteReason = ""
	r.Users[target] = u
	r.mu.Unlock()
	if err := r.persist(s.store); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SendOK(fmt.Sprintf("%s unmuted.", target))
	s.audit.Record(st.Room, st.Username, "unmute", target, "")
}
