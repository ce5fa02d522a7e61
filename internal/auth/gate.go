// Package auth implements the login gate in front of the vault.
//
// The gate has three states. Unauthenticated is left only through Submit, which passes through
// Authenticating (a short synthetic wait, so forms can be disabled) and lands in Authenticated or back
// in Unauthenticated. Logout returns to Unauthenticated. A persisted session found at construction starts
// the gate Authenticated without checking credentials again; an unreadable one is deleted.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrCorruptSession       = errors.New("corrupt persisted session")
	ErrLoginInProgress      = errors.New("login already in progress")
	ErrAlreadyAuthenticated = errors.New("already authenticated")
)

type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Gate guards the application. It is safe for concurrent use.
type Gate struct {
	verifier Verifier
	store    Persistence
	delay    time.Duration
	now      func() time.Time

	mu         sync.Mutex
	state      State
	session    Session
	restoreErr error
}

type Option func(*Gate)

// WithDelay sets how long Submit stays in Authenticating before checking credentials.
func WithDelay(d time.Duration) Option { return func(g *Gate) { g.delay = d } }

func WithClock(now func() time.Time) Option { return func(g *Gate) { g.now = now } }

// NewGate builds a gate and restores any session found in p.
func NewGate(v Verifier, p Persistence, opts ...Option) *Gate {
	g := &Gate{
		verifier: v,
		store:    p,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.restore()
	return g
}

func (g *Gate) restore() {
	data, err := g.store.Load()
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			g.restoreErr = fmt.Errorf("load session: %w", err)
		}
		return
	}
	s, err := decodeSession(data)
	if err != nil {
		g.restoreErr = err
		if delErr := g.store.Delete(); delErr != nil {
			g.restoreErr = errors.Join(err, fmt.Errorf("delete corrupt session: %w", delErr))
		}
		return
	}
	g.state = Authenticated
	g.session = s
}

// RestoreErr reports what went wrong while restoring the persisted session, if anything.
// It wraps ErrCorruptSession when the stored data could not be parsed.
func (g *Gate) RestoreErr() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.restoreErr
}

// Submit attempts a login. Wrong credentials return ErrInvalidCredentials and persist nothing.
func (g *Gate) Submit(ctx context.Context, username, password string) (Session, error) {
	g.mu.Lock()
	switch g.state {
	case Authenticating:
		g.mu.Unlock()
		return Session{}, ErrLoginInProgress
	case Authenticated:
		g.mu.Unlock()
		return Session{}, ErrAlreadyAuthenticated
	}
	g.state = Authenticating
	g.mu.Unlock()

	if err := g.wait(ctx); err != nil {
		g.reset()
		return Session{}, err
	}

	if !g.verifier.Verify(username, password) {
		g.reset()
		return Session{}, ErrInvalidCredentials
	}

	s := Session{Username: username, LoginTime: g.now().UTC()}
	if el, ok := g.verifier.(EmailLookup); ok {
		s.Email = el.EmailFor(username)
	}
	data, err := encodeSession(s)
	if err == nil {
		err = g.store.Save(data)
	}
	if err != nil {
		g.reset()
		return Session{}, fmt.Errorf("persist session: %w", err)
	}

	g.mu.Lock()
	g.state = Authenticated
	g.session = s
	g.mu.Unlock()
	return s, nil
}

// Logout deletes the persisted session. Calling it while not authenticated does nothing.
// The gate ends Unauthenticated even when the delete fails.
func (g *Gate) Logout() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Authenticated {
		return nil
	}
	g.state = Unauthenticated
	g.session = Session{}
	if err := g.store.Delete(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Session returns the current session; ok is false unless the gate is Authenticated.
func (g *Gate) Session() (s Session, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Authenticated {
		return Session{}, false
	}
	return g.session, true
}

func (g *Gate) wait(ctx context.Context) error {
	if g.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(g.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (g *Gate) reset() {
	g.mu.Lock()
	g.state = Unauthenticated
	g.mu.Unlock()
}
