package web

import (
	"encoding/base64"
	"time"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/auth"
)

const sessionCookieMaxAge = 30 * 24 * time.Hour

// cookiePersistence keeps the session in the documentVaultUser cookie of one request/response pair.
// The value is base64url-encoded JSON so it survives cookie quoting rules.
type cookiePersistence struct {
	c      *fiber.Ctx
	secure bool
}

var _ auth.Persistence = (*cookiePersistence)(nil)

func newCookiePersistence(c *fiber.Ctx, secure bool) *cookiePersistence {
	return &cookiePersistence{c: c, secure: secure}
}

func (p *cookiePersistence) Load() ([]byte, error) {
	v := p.c.Cookies(auth.SessionKey)
	if v == "" {
		return nil, auth.ErrNoSession
	}
	data, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		// Handed to the gate as is: it fails to parse and the cookie gets cleared.
		return []byte(v), nil
	}
	return data, nil
}

func (p *cookiePersistence) Save(data []byte) error {
	p.c.Cookie(&fiber.Cookie{
		Name:     auth.SessionKey,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		MaxAge:   int(sessionCookieMaxAge / time.Second),
		Secure:   p.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

func (p *cookiePersistence) Delete() error {
	p.c.Cookie(&fiber.Cookie{
		Name:     auth.SessionKey,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   p.secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}
