package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"streamline/internal/color"
	"streamline/internal/command"
)

// allow implements the permission engine: owner/admin always pass;
// moderator/user pass if any dotted prefix of token appears in their grant
// list; unknown roles are denied.
func allow(role, token string, roles Roles) bool {
	switch role {
	case "owner", "admin":
		return true
	case "moderator":
		return granted(roles.Moderator, token)
	case "user":
		return granted(roles.User, token)
	default:
		return false
	}
}

func granted(grants []string, token string) bool {
	for _, g := range grants {
		if g == token {
			return true
		}
	}
	parts := strings.Split(token, ".")
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], ".")
		for _, g := range grants {
			if g == prefix {
				return true
			}
		}
	}
	return false
}

// allowedTokensFor computes the full restricted-token set a role may use in
// this room, expanding prefixes the same way allow() matches them.
func allowedTokensFor(role string, roles Roles) map[string]bool {
	switch role {
	case "owner", "admin":
		out := make(map[string]bool, len(command.RestrictedCommands))
		for tok := range command.RestrictedCommands {
			out[tok] = true
		}
		return out
	case "moderator":
		return command.ExpandGrants(roles.Moderator)
	case "user":
		return command.ExpandGrants(roles.User)
	default:
		return map[string]bool{}
	}
}

// syncUserCommands sends /CMDS to one session based on its room role.
func (s *Server) syncUserCommands(client *Client, roomName, username string) {
	r, ok := s.rooms.Get(roomName)
	if !ok {
		return
	}
	r.mu.Lock()
	u, ok := r.Users[username]
	role := "user"
	if ok {
		role = u.Role
	}
	roles := r.Roles
	r.mu.Unlock()
	if !ok {
		return
	}

	tokens := command.SortedTokens(allowedTokensFor(role, roles))
	if len(tokens) == 0 {
		client.Send("/CMDS")
		return
	}
	client.Send("/CMDS " + strings.Join(tokens, " "))
}

// syncRoomCommands re-sends /CMDS to every InRoom(roomName) session.
func (s *Server) syncRoomCommands(roomName string) {
	for _, c := range s.clients.InRoom(roomName) {
		st := c.State()
		s.syncUserCommands(c, roomName, st.Username)
	}
}

// syncRoomMembers sends /members <user:pubkey ...> to every InRoom(roomName)
// session, omitting hidden users from viewers below admin rank.
func (s *Server) syncRoomMembers(roomName string) {
	r, ok := s.rooms.Get(roomName)
	if !ok {
		return
	}
	r.mu.Lock()
	online := append([]string{}, r.OnlineUsers...)
	hidden := make(map[string]bool, len(r.Users))
	roleOf := make(map[string]string, len(r.Users))
	for name, u := range r.Users {
		hidden[name] = u.Hidden
		roleOf[name] = u.Role
	}
	r.mu.Unlock()

	pkeys := s.keys.Snapshot(online)

	for _, recipient := range s.clients.InRoom(roomName) {
		st := recipient.State()
		viewerRole := roleOf[st.Username]
		canSeeHidden := viewerRole == "owner" || viewerRole == "admin"

		var pairs []string
		for _, uname := range online {
			if hidden[uname] && !canSeeHidden {
				continue
			}
			if key, ok := pkeys[uname]; ok {
				pairs = append(pairs, fmt.Sprintf("%s:%s", uname, key))
			}
		}
		if len(pairs) == 0 {
			recipient.Send("/members")
		} else {
			recipient.Send("/members " + strings.Join(pairs, " "))
		}
	}
}

// formatBroadcast returns the colored role prefix (e.g. "[Owner]") and
// display name (nick/color applied) for username in roomName.
func formatBroadcast(r *Room, username string) (prefix, display string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	display = username
	u, ok := r.Users[username]
	if !ok {
		return "", display
	}

	roleKey := strings.ToLower(u.Role)
	if hex, ok := r.Roles.Colors[roleKey]; ok {
		label := map[string]string{"owner": "[Owner]", "admin": "[Admin]", "moderator": "[Mod]"}[roleKey]
		if label == "" {
			label = "[User]"
		}
		prefix = color.TrueColor(label, hex)
	}

	switch {
	case u.Nick != "" && u.Color != "":
		display = color.Italic(color.TrueColor(u.Nick, u.Color))
	case u.Nick != "":
		display = color.Italic(u.Nick)
	case u.Color != "":
		display = color.TrueColor(username, u.Color)
	}
	return prefix, display
}

// broadcastUserList sends /USERS to every InRoom(roomName) session: a
// \x1F-separated, role-colored, nick-aware roster omitting hidden and AFK
// users.
func (s *Server) broadcastUserList(roomName string) {
	r, ok := s.rooms.Get(roomName)
	if !ok {
		return
	}

	r.mu.Lock()
	online := append([]string{}, r.OnlineUsers...)
	visible := make([]string, 0, len(online))
	for _, uname := range online {
		if u, ok := r.Users[uname]; ok && !u.Hidden {
			visible = append(visible, uname)
		}
	}
	r.mu.Unlock()

	afk := make(map[string]bool)
	for _, c := range s.clients.InRoom(roomName) {
		st := c.State()
		if st.IsAFK {
			afk[st.Username] = true
		}
	}

	var parts []string
	for _, uname := range visible {
		if afk[uname] {
			continue
		}
		prefix, display := formatBroadcast(r, uname)
		if prefix == "" {
			parts = append(parts, display)
		} else {
			parts = append(parts, prefix+" "+display)
		}
	}

	line := "/USERS " + strings.Join(parts, "\x1F")
	for _, c := range s.clients.InRoom(roomName) {
		c.Send(line)
	}
}

// broadcastMessage writes msg verbatim to every InRoom(roomName) session,
// honoring includeSender/bypassIgnores.
func (s *Server) broadcastMessage(roomName, sender, msg string, includeSender, bypassIgnores bool) {
	for _, c := range s.clients.InRoom(roomName) {
		st := c.State()
		if !includeSender && st.Username == sender {
			continue
		}
		if !bypassIgnores {
			ignored := false
			for _, u := range c.IgnoreList() {
				if u == sender {
					ignored = true
					break
				}
			}
			if ignored {
				continue
			}
		}
		c.Send(msg)
	}
}

// broadcastRoomList sends /ROOMS to every LoggedIn session matching
// username, listing rooms visible to them (non-whitelisted, or whitelisted
// rooms they belong to).
func (s *Server) broadcastRoomList(username string) {
	client, ok := s.clients.ByUsername(username)
	if !ok || client.State().Kind != StateLoggedIn {
		return
	}
	names, err := s.store.ListRoomNames()
	if err != nil {
		return
	}
	var parts []string
	for _, name := range names {
		r, ok := s.rooms.Get(name)
		if !ok {
			continue
		}
		r.mu.Lock()
		visible := !r.WhitelistEnabled
		if !visible {
			for _, w := range r.Whitelist {
				if w == username {
					visible = true
					break
				}
			}
		}
		count := len(r.OnlineUsers)
		r.mu.Unlock()
		if visible {
			parts = append(parts, fmt.Sprintf("%s:%d", name, count))
		}
	}
	sort.Strings(parts)
	client.Send("/ROOMS " + strings.Join(parts, " "))
}

// checkMute inspects username's mute state in roomName. If still muted, it
// returns the advisory message to show the caller. If a mute has expired,
// it clears and persists the fields first and returns "".
func (s *Server) checkMute(r *Room, username string) string {
	r.mu.Lock()
	u, ok := r.Users[username]
	if !ok || !u.Muted {
		r.mu.Unlock()
		return ""
	}

	now := unixNow()
	stillMuted := u.MuteLength == 0 || now < u.MuteStamp+u.MuteLength
	if stillMuted {
		reason := u.MuteReason
		stamp, length := u.MuteStamp, u.MuteLength
		r.mu.Unlock()

		var remaining string
		if length == 0 {
			remaining = "Permanent"
		} else {
			remaining = formatRemaining(stamp + length - now)
		}
		if reason == "" {
			return fmt.Sprintf("You are muted (%s)", remaining)
		}
		return fmt.Sprintf("You are muted: %s\n> %s", reason, remaining)
	}

	u.Muted = false
	u.MuteStamp = 0
	u.MuteLength = 0
	u.MuteReason = ""
	r.mu.Unlock()

	if err := r.persist(s.store); err != nil {
		return ""
	}
	return ""
}

// checkRateLimit reports whether the session may send another message right
// now in a room with the given msg_rate (messages per msgRateWindow),
// rebuilding the session's token-bucket limiter whenever the room's
// configured rate has changed since it was last built.
func checkRateLimit(client *Client, msgRate uint8) bool {
	if msgRate == 0 {
		return true
	}
	st := client.State()
	if st.RateLimiter == nil || st.LimiterRate != msgRate {
		st.RateLimiter = rate.NewLimiter(rate.Every(msgRateWindow/time.Duration(msgRate)), int(msgRate))
		st.LimiterRate = msgRate
		client.SetState(st)
	}
	return st.RateLimiter.Allow()
}
