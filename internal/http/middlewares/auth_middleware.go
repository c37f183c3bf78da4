package middlewares

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/devcamper/internal/actorctx"
	"github.com/geocoder89/devcamper/internal/apperr"
	"github.com/geocoder89/devcamper/internal/auth"
	"github.com/geocoder89/devcamper/internal/cache"
	"github.com/geocoder89/devcamper/internal/config"
	"github.com/geocoder89/devcamper/internal/domain/user"
)

const notAuthorized = "Not authorized to access this route"

// Keep these small so tests can fake them easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type UserLoader interface {
	Get(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users UserLoader
	cache *cache.Cache[user.User]
	log   *slog.Logger
}

// NewAuthMiddleware resolves the user behind every token so a role change
// or deletion takes effect without waiting for the token to expire. A short
// cache bounds the lookups; cacheTTL <= 0 disables it.
func NewAuthMiddleware(jwt TokenVerifier, users UserLoader, cacheTTL time.Duration, log *slog.Logger) *AuthMiddleware {
	m := &AuthMiddleware{jwt: jwt, users: users, log: log}
	if cacheTTL > 0 {
		m.cache = cache.New[user.User](cacheTTL)
	}
	return m
}

// Forget drops a cached user after an admin change.
func (m *AuthMiddleware) Forget(userID string) {
	if m.cache != nil {
		m.cache.Delete(userID)
	}
}

// tokenFrom prefers the Authorization header and falls back to the cookie.
func tokenFrom(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		if raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer")); raw != "" {
			return raw
		}
	}

	if raw, err := c.Cookie(SessionCookieName); err == nil && raw != "" && raw != auth.LoggedOutToken {
		return raw
	}

	return ""
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenFrom(c)
		if raw == "" {
			abortErr(c, apperr.Unauthenticated(notAuthorized))
			return
		}

		claims, err := m.jwt.Verify(raw)
		if err != nil {
			abortErr(c, err)
			return
		}

		u, err := m.load(c.Request.Context(), claims.UserID)
		if err != nil {
			if apperr.Is(err, apperr.CodeNotFound) {
				abortErr(c, apperr.Unauthenticated(notAuthorized))
				return
			}
			if m.log != nil {
				m.log.ErrorContext(c.Request.Context(), "auth.load_user_failed", "user_id", claims.UserID, "err", err)
			}
			abortErr(c, err)
			return
		}

		// Stash useful bits of identity on the context
		c.Set(CtxUserID, u.ID)
		c.Set(CtxRole, u.Role)
		c.Set(CtxUser, u)
		c.Request = c.Request.WithContext(actorctx.WithUserID(c.Request.Context(), u.ID))

		c.Next()
	}
}

func (m *AuthMiddleware) load(ctx context.Context, id string) (user.User, error) {
	if m.cache != nil {
		if u, ok := m.cache.Get(id); ok {
			return u, nil
		}
	}

	cctx, cancel := config.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	u, err := m.users.Get(cctx, id)
	if err != nil {
		return user.User{}, err
	}

	if m.cache != nil {
		m.cache.Set(id, u)
	}
	return u, nil
}

// Optional helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func RoleFromContext(c *gin.Context) (user.Role, bool) {
	v, ok := c.Get(CtxRole)
	if !ok {
		return "", false
	}
	role, ok := v.(user.Role)
	return role, ok
}

func UserFromContext(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return user.User{}, false
	}
	u, ok := v.(user.User)
	return u, ok
}
