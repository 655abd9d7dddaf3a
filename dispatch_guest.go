package main

import (
	"fmt"

	"streamline/internal/command"
	"streamline/internal/store"
)

func (s *Server) dispatchGuest(client *Client, cmd command.Command, st ClientState) bool {
	switch cmd.Kind {
	case command.AccountRegister:
		s.handleRegister(client, cmd.Target, cmd.Text)
	case command.AccountLogin:
		s.handleLogin(client, cmd.Target, cmd.Text)
	case command.Chat:
		client.SendWarn("You must log in before chatting. Try /account login <user> <pass>.")
	default:
		client.SendWarn("You must log in first. Try /account register or /account login.")
	}
	return false
}

func (s *Server) handleRegister(client *Client, username, password string) {
	if !client.RecordLoginAttempt() {
		client.SendError("Too many attempts. Please wait before trying again.")
		return
	}
	if username == "" || password == "" {
		client.SendWarn("Usage: /account register <user> <pass>")
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
	u := store.User{Password: generateHash(password), Ignore: []string{}}
	if err := s.store.PutUser(username, u); err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	client.SetIgnoreList(nil)
	client.SetState(ClientState{Kind: StateLoggedIn, Username: username})
	client.SendOK(fmt.Sprintf("Registered and logged in as %s.", username))
	client.Send("/LOGIN_OK " + username)
	client.Send("/LOBBY_STATE")
}

func (s *Server) handleLogin(client *Client, username, password string) {
	if !client.RecordLoginAttempt() {
		client.SendError("Too many attempts. Please wait before trying again.")
		return
	}
	u, exists, err := s.store.GetUser(username)
	if err != nil {
		client.SendError("Storage failure, please try again.")
		return
	}
	if !exists || u.Password != generateHash(password) {
		client.SendWarn("Invalid username or password.")
		return
	}
	if _, already := s.clients.ByUsername(username); already {
		client.SendWarn(fmt.Sprintf("User %q is already logged in.", username))
		return
	}
	client.SetIgnoreList(u.Ignore)
	client.SetState(ClientState{Kind: StateLoggedIn, Username: username})
	client.SendOK(fmt.Sprintf("Logged in as %s.", username))
	client.Send("/LOGIN_OK " + username)
	client.Send("/LOBBY_STATE")
	s.broadcastRoomList(username)
}
