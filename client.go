package main

import (
	"bufio"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"streamline/internal/color"
)

// StateKind discriminates the ClientState tagged union. Go has no sum
// types; this enum plus a flat field set (only some populated per Kind)
// is the idiomatic stand-in, matched exhaustively wherever dispatch reads
// client.state.
type StateKind int

const (
	StateGuest StateKind = iota
	StateLoggedIn
	StateInRoom
)

// ClientState is the per-session state machine value. Only the fields
// relevant to Kind are meaningful.
type ClientState struct {
	Kind StateKind

	Username string // LoggedIn, InRoom

	Room          string // InRoom
	JoinedAt      time.Time
	InactiveSince time.Time
	IsAFK         bool

	// RateLimiter enforces the room's msg_rate (messages per 5s window).
	// Rebuilt whenever LimiterRate no longer matches the room's configured
	// rate (including on room join and after /super limit rate changes).
	RateLimiter *rate.Limiter
	LimiterRate uint8
}

// pendingConfirm tracks an in-flight interactive y/n prompt (currently only
// used by owner-transfer). The next input line is parsed and, if it is a
// bare Confirm, handled without going through the dispatcher; any other
// line cancels the prompt and is dispatched as usual.
type pendingConfirm struct {
	room     string
	newOwner string
}

// Client is one TCP connection's session record: network stream, identity,
// ignore list, and rate-limit bookkeeping for login/register attempts.
// Exactly one goroutine (the reader spawned on accept) owns the connection;
// other goroutines touch only mu-guarded fields to write cross-session
// output.
type Client struct {
	conn   net.Conn
	addr   string
	connID string

	mu              sync.Mutex // guards everything below and serializes writes
	w               *bufio.Writer
	state           ClientState
	ignoreList      []string
	pubkey          string
	loginLimiter    *rate.Limiter
	awaitingConfirm *pendingConfirm
}

// NewClient wraps an accepted connection in Guest state.
func NewClient(conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		addr:   conn.RemoteAddr().String(),
		connID: uuid.NewString(),
		w:      bufio.NewWriter(conn),
		state:  ClientState{Kind: StateGuest},
		loginLimiter: rate.NewLimiter(
			rate.Every(loginAttemptWindow/time.Duration(maxLoginAttempts)), maxLoginAttempts),
	}
}

// Addr returns the client's remote address, used as its key in the
// connection registry.
func (c *Client) Addr() string { return c.addr }

// ConnID returns the connection's unique correlation ID, used in log lines.
func (c *Client) ConnID() string { return c.connID }

// send writes one line verbatim, terminated by \n, and flushes immediately.
// Socket write failures are swallowed here; the reader loop detects a dead
// connection via its own read error and tears the session down.
func (c *Client) send(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.WriteString(line)
	c.w.WriteByte('\n')
	c.w.Flush()
}

// Send writes a plain (uncolored) line.
func (c *Client) Send(line string) { c.send(line) }

// SendError writes a red advisory line (Unauthorized/StorageFailure/Internal).
func (c *Client) SendError(line string) { c.send(color.Red(line)) }

// SendWarn writes a yellow advisory line (Syntax/State/Conflict/NotFound/Validation).
func (c *Client) SendWarn(line string) { c.send(color.Yellow(line)) }

// SendOK writes a green success line.
func (c *Client) SendOK(line string) { c.send(color.Green(line)) }

// State returns a copy of the client's current state.
func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetState replaces the client's state wholesale.
func (c *Client) SetState(s ClientState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// IgnoreList returns a copy of the client's ignore list.
func (c *Client) IgnoreList() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.ignoreList))
	copy(out, c.ignoreList)
	return out
}

// SetIgnoreList replaces the client's ignore list.
func (c *Client) SetIgnoreList(list []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ignoreList = list
}

// Pubkey returns the client's registered public key, if any.
func (c *Client) Pubkey() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pubkey
}

// SetPubkey registers the client's public key.
func (c *Client) SetPubkey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pubkey = key
}

// RecordLoginAttempt reports whether the session is within the allowed
// register/login rate (maxLoginAttempts per loginAttemptWindow), consuming
// one token if so.
func (c *Client) RecordLoginAttempt() bool {
	return c.loginLimiter.Allow()
}

// BeginConfirm puts the session into an awaiting-confirmation state: a bare
// y/n on the next input line answers the prompt instead of being dispatched.
func (c *Client) BeginConfirm(room, newOwner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.awaitingConfirm = &pendingConfirm{room: room, newOwner: newOwner}
}

// TakeConfirm returns and clears any pending confirmation context.
func (c *Client) TakeConfirm() *pendingConfirm {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.awaitingConfirm
	c.awaitingConfirm = nil
	return p
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
