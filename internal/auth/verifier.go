package auth

import "crypto/subtle"

// Verifier decides whether a username/password pair is accepted.
type Verifier interface {
	Verify(username, password string) bool
}

// EmailLookup is optionally implemented by a Verifier to fill Session.Email.
type EmailLookup interface {
	EmailFor(username string) string
}

// FixedCredentials is the mock credential check: a comparison against one constant pair.
// It is NOT a security boundary. Anyone reading the configuration or the source knows the
// password, and the resulting session is trusted by the client alone. Replace the Verifier
// for anything real.
type FixedCredentials struct {
	Username string
	Password string
	Email    string
}

// DefaultCredentials are the demo credentials shown on the login page.
func DefaultCredentials() FixedCredentials {
	return FixedCredentials{
		Username: "admin",
		Password: "admin123",
		Email:    "admin@documentvault.com",
	}
}

func (f FixedCredentials) Verify(username, password string) bool {
	u := subtle.ConstantTimeCompare([]byte(username), []byte(f.Username))
	p := subtle.ConstantTimeCompare([]byte(password), []byte(f.Password))
	return u&p == 1
}

func (f FixedCredentials) EmailFor(username string) string {
	if username == f.Username {
		return f.Email
	}
	return ""
}
