package main

import (
	"fmt"

	"streamline/internal/command"
)

// dispatch routes one parsed Command according to the session's current
// state. It returns true when the connection should be closed.
func (s *Server) dispatch(client *Client, cmd command.Command) bool {
	st := client.State()

	switch cmd.Kind {
	case command.Invalid:
		client.SendWarn(cmd.Help)
		return false
	case command.Ping:
		client.Send("/PONG " + cmd.Args[0])
		return false
	case command.Quit:
		client.SendOK("Goodbye.")
		return true
	case command.Help:
		s.handleHelp(client, st)
		return false
	}

	switch st.Kind {
	case StateGuest:
		return s.dispatchGuest(client, cmd, st)
	case StateLoggedIn:
		return s.dispatchLoggedIn(client, cmd, st)
	case StateInRoom:
		return s.dispatchInRoom(client, cmd, st)
	}
	return false
}

func (s *Server) handleHelp(client *Client, st ClientState) {
	switch st.Kind {
	case StateGuest:
		client.Send(command.HelpGuest)
	case StateLoggedIn:
		client.Send(command.HelpLoggedIn)
	case StateInRoom:
		r, ok := s.rooms.Get(st.Room)
		if !ok {
			client.Send(command.HelpLoggedIn)
			return
		}
		r.mu.Lock()
		u, ok := r.Users[st.Username]
		role := "user"
		roles := r.Roles
		if ok {
			role = u.Role
		}
		r.mu.Unlock()
		client.Send(command.HelpInRoom(allowedTokensFor(role, roles)))
	}
}

// requirePermission checks a restricted command against the caller's room
// role, sending an Unauthorized advisory and returning false if denied.
func (s *Server) requirePermission(client *Client, st ClientState, cmd command.Command) bool {
	token := cmd.PermToken()
	if token == "" {
		return true
	}
	r, ok := s.rooms.Get(st.Room)
	if !ok {
		client.SendWarn(fmt.Sprintf("Room %q no longer exists.", st.Room))
		return false
	}
	r.mu.Lock()
	u, ok := r.Users[st.Username]
	role := "user"
	roles := r.Roles
	if ok {
		role = u.Role
	}
	r.mu.Unlock()
	if !allow(role, token, roles) {
		client.SendError("You do not have permission to use this command.")
		return false
	}
	return true
}
