package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SessionKey is the fixed key the session is persisted under (a cookie name, a file name).
const SessionKey = "documentVaultUser"

// Session is the persisted proof of a completed login.
type Session struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	LoginTime time.Time `json:"loginTime"`
}

// ErrNoSession is returned by Persistence.Load when nothing is stored.
var ErrNoSession = errors.New("no persisted session")

// Persistence is the durable storage behind the gate. The gate reads it once at construction and
// writes it only on login and logout.
type Persistence interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Delete() error
}

func encodeSession(s Session) ([]byte, error) {
	return json.Marshal(s)
}

func decodeSession(data []byte) (Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrCorruptSession, err)
	}
	if strings.TrimSpace(s.Username) == "" {
		return Session{}, fmt.Errorf("%w: username missing", ErrCorruptSession)
	}
	return s, nil
}
