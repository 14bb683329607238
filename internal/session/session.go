// Package session holds the state owned by one client connection: the
// player it is bound to and at most one multi-step game in progress.
package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"casino-backend/internal/game"
)

var (
	ErrNotAuthenticated     = errors.New("login required")
	ErrAlreadyAuthenticated = errors.New("connection is already logged in")
	ErrNoActiveSession      = errors.New("no active game")
	ErrGameInProgress       = errors.New("another game is in progress")
)

// Session is created when a connection opens and discarded when it closes.
// Callers hold Lock for the whole of one request so that game transitions and
// their settlement are never interleaved on the same connection.
type Session struct {
	sync.Mutex

	id          string
	origin      string
	connectedAt time.Time
	lastActive  atomic.Int64

	player string
	active game.Session
}

func New(id, origin string) *Session {
	now := time.Now()
	s := &Session{id: id, origin: origin, connectedAt: now}
	s.lastActive.Store(now.UnixNano())
	return s
}

func (s *Session) ID() string             { return s.id }
func (s *Session) Origin() string         { return s.origin }
func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

// Touch records inbound activity. Safe to call without the lock.
func (s *Session) Touch() { s.lastActive.Store(time.Now().UnixNano()) }

func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastActive.Load()))
}

// Bind attaches the player identity. A connection binds exactly once.
func (s *Session) Bind(player string) error {
	if s.player != "" {
		return ErrAlreadyAuthenticated
	}
	s.player = player
	return nil
}

// Player returns the bound identity or ErrNotAuthenticated.
func (s *Session) Player() (string, error) {
	if s.player == "" {
		return "", ErrNotAuthenticated
	}
	return s.player, nil
}

func (s *Session) Active() game.Session { return s.active }

// Begin installs a new game; it fails while another one is still open.
func (s *Session) Begin(g game.Session) error {
	if s.active != nil {
		return ErrGameInProgress
	}
	s.active = g
	return nil
}

// Idle reports whether a new game may start.
func (s *Session) Idle() error {
	if s.active != nil {
		return ErrGameInProgress
	}
	return nil
}

func (s *Session) Blackjack() (*game.Blackjack, error) {
	if bj, ok := s.active.(*game.Blackjack); ok {
		return bj, nil
	}
	return nil, ErrNoActiveSession
}

func (s *Session) HighLow() (*game.HighLow, error) {
	if hl, ok := s.active.(*game.HighLow); ok {
		return hl, nil
	}
	return nil, ErrNoActiveSession
}

// End clears the active game if it is g.
func (s *Session) End(g game.Session) {
	if s.active == g {
		s.active = nil
	}
}

// Close releases the session and returns the game it abandons, if any.
// The abandoned game is forfeited, never settled.
func (s *Session) Close() game.Session {
	g := s.active
	s.active = nil
	return g
}
