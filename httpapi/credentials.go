package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CredentialChannel carries the refresh token between server and client.
// Handlers never touch the carrier directly, so deployments can swap the
// cookie for another channel without changing the endpoints.
type CredentialChannel interface {
	Write(c *gin.Context, token string, ttl time.Duration)
	Read(c *gin.Context) (string, bool)
	Clear(c *gin.Context)
}

// CookieChannel stores the refresh token in an httpOnly SameSite=Lax cookie.
// The browser attaches it automatically and scripts cannot read it, which
// keeps the long-lived credential out of reach of injected code.
type CookieChannel struct {
	// Name defaults to "refresh_token".
	Name   string
	Path   string
	Domain string
	// Secure should be true everywhere except local development.
	Secure bool
}

func (ch CookieChannel) name() string {
	if ch.Name == "" {
		return "refresh_token"
	}
	return ch.Name
}

func (ch CookieChannel) path() string {
	if ch.Path == "" {
		return "/"
	}
	return ch.Path
}

func (ch CookieChannel) Write(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ch.name(), token, int(ttl.Seconds()), ch.path(), ch.Domain, ch.Secure, true)
}

func (ch CookieChannel) Read(c *gin.Context) (string, bool) {
	token, err := c.Cookie(ch.name())
	if err != nil || token == "" {
		return "", false
	}
	return token, true
}

func (ch CookieChannel) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(ch.name(), "", -1, ch.path(), ch.Domain, ch.Secure, true)
}
