package main

import (
	"context"
	"log"
	"time"

	"github.com/dustin/go-humanize"
)

// runSweeps starts the background goroutines that enforce time-based state:
// session idle timeouts and ban/mute expiry, plus the periodic metrics log
// line. Each ticks independently and exits when ctx is canceled.
func (s *Server) runSweeps(ctx context.Context) {
	go s.sweepSessions(ctx)
	go s.sweepExpiries(ctx)
	go s.logMetrics(ctx)
}

// sweepSessions drops InRoom sessions that have been idle (not AFK, simply
// unauthenticated-by-activity) past their room's session_timeout.
func (s *Server) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepSessionsOnce()
		}
	}
}

func (s *Server) sweepSessionsOnce() {
	for _, c := range s.clients.All() {
		st := c.State()
		if st.Kind != StateInRoom || st.IsAFK {
			continue
		}
		r, ok := s.rooms.Get(st.Room)
		if !ok {
			continue
		}
		r.mu.Lock()
		timeout := r.SessionTimeout
		r.mu.Unlock()
		if timeout == 0 {
			continue
		}
		if time.Since(st.InactiveSince) < time.Duration(timeout)*time.Second {
			continue
		}
		s.leaveRoom(c, st.Room, st.Username)
		c.SetState(ClientState{Kind: StateLoggedIn, Username: st.Username})
		c.SendWarn("Removed from room after an idle session timeout.")
		c.Send("/IDLE_TIMEOUT " + st.Room)
		c.Send("/LOBBY_STATE")
	}
}

// sweepExpiries clears bans and mutes whose duration has lapsed across every
// cached room, persisting each change.
func (s *Server) sweepExpiries(ctx context.Context) {
	ticker := time.NewTicker(expirySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepExpiriesOnce()
		}
	}
}

func (s *Server) sweepExpiriesOnce() {
	s.rooms.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms.rooms))
	for _, r := range s.rooms.rooms {
		rooms = append(rooms, r)
	}
	s.rooms.mu.Unlock()

	now := unixNow()
	for _, r := range rooms {
		r.mu.Lock()
		changed := false
		for _, u := range r.Users {
			if u.Banned && u.BanLength != 0 && now >= u.BanStamp+u.BanLength {
				u.Banned, u.BanStamp, u.BanLength, u.BanReason = false, 0, 0, ""
				changed = true
			}
			if u.Muted && u.MuteLength != 0 && now >= u.MuteStamp+u.MuteLength {
				u.Muted, u.MuteStamp, u.MuteLength, u.MuteReason = false, 0, 0, ""
				changed = true
			}
		}
		r.mu.Unlock()
		if changed {
			if err := r.persist(s.store); err != nil {
				log.Printf("[sweep] persist %s: %v", r.Name, err)
			}
		}
	}
}

// logMetrics periodically logs aggregate server stats.
func (s *Server) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsLogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m := s.Metrics()
			log.Printf("[metrics] connections=%s rooms=%s messages=%s uptime=%s",
				humanize.Comma(int64(m.Connections)), humanize.Comma(int64(m.Rooms)),
				humanize.Comma(m.Messages), humanize.RelTime(s.startedAt, time.Now(), "ago", "from now"))
		}
	}
}
