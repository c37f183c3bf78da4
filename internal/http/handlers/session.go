package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/devcamper/internal/auth"
	"github.com/geocoder89/devcamper/internal/http/middlewares"
)

// SessionCookies writes the session token as an HTTP-only cookie.
type SessionCookies struct {
	Secure bool
	now    func() time.Time
}

func NewSessionCookies(secure bool) *SessionCookies {
	return &SessionCookies{Secure: secure, now: time.Now}
}

// Set mirrors the token's lifetime in the cookie. The logout marker is
// written already expired.
func (s *SessionCookies) Set(ctx *gin.Context, sess auth.Session) {
	maxAge := -1

	if sess.Token != auth.LoggedOutToken {
		maxAge = int(sess.ExpiresAt.Sub(s.now()).Seconds())
		if maxAge <= 0 {
			maxAge = -1
		}
	}

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		middlewares.SessionCookieName,
		sess.Token,
		maxAge,
		"/",
		"",
		s.Secure,
		true, // HttpOnly.
	)
}
