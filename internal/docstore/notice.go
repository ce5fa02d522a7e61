package docstore

import "time"

// SuccessTTL is how long a success notice stays visible.
const SuccessTTL = 3 * time.Second

type NoticeKind string

const (
	NoticeNone    NoticeKind = ""
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is the banner shown above the views. Error notices have no expiry and stay
// until the next operation starts.
type Notice struct {
	Kind      NoticeKind `json:"kind,omitempty"`
	Message   string     `json:"message,omitempty"`
	ExpiresAt time.Time  `json:"expiresAt,omitempty"`
}

func (n Notice) visible(now time.Time) bool {
	if n.Kind == NoticeNone {
		return false
	}
	return n.ExpiresAt.IsZero() || now.Before(n.ExpiresAt)
}
