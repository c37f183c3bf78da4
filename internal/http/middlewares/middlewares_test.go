package middlewares

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/devcamper/internal/actorctx"
	"github.com/geocoder89/devcamper/internal/apperr"
	"github.com/geocoder89/devcamper/internal/auth"
	"github.com/geocoder89/devcamper/internal/domain/user"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers struct {
	calls int
	users map[string]user.User
	err   error
}

func (f *fakeUsers) Get(_ context.Context, id string) (user.User, error) {
	f.calls++
	if f.err != nil {
		return user.User{}, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return user.User{}, apperr.NotFound("User not found")
	}
	return u, nil
}

type errorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId"`
}

func decodeErr(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

func newAuthRouter(t *testing.T, users *fakeUsers, roles ...user.Role) (*gin.Engine, *auth.Manager) {
	t.Helper()

	jwtm := auth.NewManager("test-secret", time.Hour)
	m := NewAuthMiddleware(jwtm, users, 0, quietLogger())

	r := gin.New()
	r.Use(RequestID())
	chain := []gin.HandlerFunc{m.RequireAuth()}
	if len(roles) > 0 {
		chain = append(chain, m.RequireRole(roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		id, _ := UserIDFromContext(c)
		role, _ := RoleFromContext(c)
		actor, _ := actorctx.UserIDFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": id, "role": role, "actor": actor})
	})
	r.GET("/private", chain...)

	return r, jwtm
}

func TestRequireAuth(t *testing.T) {
	users := &fakeUsers{users: map[string]user.User{
		"u-1": {ID: "u-1", Role: user.RoleUser},
	}}
	r, jwtm := newAuthRouter(t, users)

	good, err := jwtm.Issue("u-1")
	require.NoError(t, err)
	ghost, err := jwtm.Issue("deleted-user")
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
	}{
		{"bearer header", "Bearer " + good.Token, "", http.StatusOK},
		{"cookie fallback", "", good.Token, http.StatusOK},
		{"header wins over cookie", "Bearer " + good.Token, "garbage", http.StatusOK},
		{"no credentials", "", "", http.StatusUnauthorized},
		{"logged out cookie", "", auth.LoggedOutToken, http.StatusUnauthorized},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized},
		{"user no longer exists", "Bearer " + ghost.Token, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusOK {
				assert.Contains(t, w.Body.String(), `"actor":"u-1"`)
				return
			}

			body := decodeErr(t, w)
			assert.False(t, body.Success)
			assert.Equal(t, apperr.CodeUnauthenticated, body.Code)
			assert.Equal(t, "Not authorized to access this route", body.Error)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestRequireAuth_StoreFailureIsServerError(t *testing.T) {
	users := &fakeUsers{err: apperr.Server("db", assert.AnError)}
	r, jwtm := newAuthRouter(t, users)

	sess, err := jwtm.Issue("u-1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Server Error", decodeErr(t, w).Error)
}

func TestRequireAuth_CacheAndForget(t *testing.T) {
	users := &fakeUsers{users: map[string]user.User{"u-1": {ID: "u-1", Role: user.RoleUser}}}
	jwtm := auth.NewManager("test-secret", time.Hour)
	m := NewAuthMiddleware(jwtm, users, time.Minute, quietLogger())

	r := gin.New()
	r.GET("/private", m.RequireAuth(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	sess, err := jwtm.Issue("u-1")
	require.NoError(t, err)

	do := func() {
		req := httptest.NewRequest(http.MethodGet, "/private", nil)
		req.Header.Set("Authorization", "Bearer "+sess.Token)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	do()
	do()
	assert.Equal(t, 1, users.calls)

	m.Forget("u-1")
	do()
	assert.Equal(t, 2, users.calls)
}

func TestRequireRole(t *testing.T) {
	users := &fakeUsers{users: map[string]user.User{
		"admin": {ID: "admin", Role: user.RoleAdmin},
		"pub":   {ID: "pub", Role: user.RolePublisher},
		"plain": {ID: "plain", Role: user.RoleUser},
	}}
	r, jwtm := newAuthRouter(t, users, user.RoleAdmin, user.RolePublisher)

	tests := map[string]int{
		"admin": http.StatusOK,
		"pub":   http.StatusOK,
		"plain": http.StatusForbidden,
	}

	for id, want := range tests {
		t.Run(id, func(t *testing.T) {
			sess, err := jwtm.Issue(id)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			req.Header.Set("Authorization", "Bearer "+sess.Token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, want, w.Code)
			if want == http.StatusForbidden {
				body := decodeErr(t, w)
				assert.Equal(t, apperr.CodeForbidden, body.Code)
				assert.Equal(t, "User role user is not authorized to access this route", body.Error)
			}
		})
	}
}

type recordingObserver struct{ routes []string }

func (o *recordingObserver) RateLimited(route string) { o.routes = append(o.routes, route) }

func TestRateLimit_Memory(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	obs := &recordingObserver{}

	r := gin.New()
	r.POST("/login", RateLimit(limiter, "login", KeyByIP, quietLogger(), obs), func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":12345"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, hit("10.0.0.1").Code)

	w := hit("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", decodeErr(t, w).Code)
	assert.Equal(t, []string{"/login"}, obs.routes)

	// other clients have their own bucket
	assert.Equal(t, http.StatusOK, hit("10.0.0.2").Code)

	now = now.Add(61 * time.Second)
	assert.Equal(t, http.StatusOK, hit("10.0.0.1").Code)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return false, 0, assert.AnError
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := gin.New()
	r.GET("/x", RateLimit(brokenLimiter{}, "x", KeyByIP, quietLogger(), nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRedisLimiter_Decide(t *testing.T) {
	l := NewRedisLimiter(nil, 3, time.Minute)

	ok, _, err := l.decide(3, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, retry, err := l.decide(4, 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 30*time.Second, retry)

	_, retry, _ = l.decide(5, -1)
	assert.Equal(t, time.Minute, retry)
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(RequireJSON())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "Application/JSON; charset=utf-8")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// logout carries no body
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodyBytes(8))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"a":"0123456789"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}), SecurityHeaders(true))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(quietLogger()))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, requestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Body.String(), 36)
}
