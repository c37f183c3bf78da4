package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/devcamper/internal/apperr"
	"github.com/geocoder89/devcamper/internal/auth"
	"github.com/geocoder89/devcamper/internal/domain/user"
	"github.com/geocoder89/devcamper/internal/http/handlers"
	"github.com/geocoder89/devcamper/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuth struct {
	registerFn func(context.Context, auth.RegisterInput) (auth.Result, error)
	loginFn    func(context.Context, string, string) (auth.Result, error)
	meFn       func(context.Context, string) (user.User, error)
	profileFn  func(context.Context, string, user.ProfileUpdate) (user.User, error)
	passwordFn func(context.Context, string, string, string) (auth.Result, error)
	forgotFn   func(context.Context, auth.ForgotPasswordInput) error
	resetFn    func(context.Context, string, string) (auth.Result, error)
}

func (f *fakeAuth) Register(ctx context.Context, in auth.RegisterInput) (auth.Result, error) {
	return f.registerFn(ctx, in)
}

func (f *fakeAuth) Login(ctx context.Context, email, password string) (auth.Result, error) {
	return f.loginFn(ctx, email, password)
}

func (f *fakeAuth) CurrentUser(ctx context.Context, id string) (user.User, error) {
	return f.meFn(ctx, id)
}

func (f *fakeAuth) UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error) {
	return f.profileFn(ctx, id, upd)
}

func (f *fakeAuth) ChangePassword(ctx context.Context, id, current, next string) (auth.Result, error) {
	return f.passwordFn(ctx, id, current, next)
}

func (f *fakeAuth) ForgotPassword(ctx context.Context, in auth.ForgotPasswordInput) error {
	return f.forgotFn(ctx, in)
}

func (f *fakeAuth) ResetPassword(ctx context.Context, token, password string) (auth.Result, error) {
	return f.resetFn(ctx, token, password)
}

func (f *fakeAuth) Logout() auth.Session {
	return auth.Session{Token: auth.LoggedOutToken, ExpiresAt: time.Unix(0, 0)}
}

func okResult(token string) auth.Result {
	return auth.Result{
		User:    user.User{ID: "u-1", Name: "Sam", Email: "sam@example.com", Role: user.RoleUser},
		Session: auth.Session{Token: token, ExpiresAt: time.Now().Add(time.Hour)},
	}
}

// withUser stands in for RequireAuth.
func withUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.CtxUserID, id)
		c.Next()
	}
}

func authRouter(svc handlers.AuthService, baseURL string, authed bool) *gin.Engine {
	h := handlers.NewAuthHandler(svc, handlers.NewSessionCookies(true), baseURL)

	r := gin.New()
	g := r.Group("/api/v1/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/forgotpassword", h.ForgotPassword)
	g.PUT("/resetpassword/:resettoken", h.ResetPassword)
	g.GET("/logout", h.Logout)

	private := g.Group("")
	if authed {
		private.Use(withUser("u-1"))
	}
	private.GET("/me", h.Me)
	private.PUT("/updatedetails", h.UpdateDetails)
	private.PUT("/updatepassword", h.UpdatePassword)

	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == middlewares.SessionCookieName {
			return c
		}
	}
	t.Fatalf("session cookie not set")
	return nil
}

func TestRegister_SetsTokenAndCookie(t *testing.T) {
	var got auth.RegisterInput
	svc := &fakeAuth{registerFn: func(_ context.Context, in auth.RegisterInput) (auth.Result, error) {
		got = in
		return okResult("tok-1"), nil
	}}

	w := do(authRouter(svc, "", false), http.MethodPost, "/api/v1/auth/register",
		`{"name":"Sam","email":"sam@example.com","password":"secret1"}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "sam@example.com", got.Email)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "tok-1", body["token"])
	assert.Equal(t, map[string]any{"id": "u-1"}, body["data"])

	c := sessionCookie(t, w)
	assert.Equal(t, "tok-1", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Positive(t, c.MaxAge)
}

func TestRegister_DuplicateEmailIsConflict(t *testing.T) {
	svc := &fakeAuth{registerFn: func(context.Context, auth.RegisterInput) (auth.Result, error) {
		return auth.Result{}, apperr.Conflict("Email is already in use")
	}}

	w := do(authRouter(svc, "", false), http.MethodPost, "/api/v1/auth/register",
		`{"name":"Sam","email":"sam@example.com","password":"secret1"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Email is already in use", body["error"])
	assert.Equal(t, apperr.CodeConflict, body["code"])
	assert.Empty(t, w.Result().Cookies())
}

func TestLogin_MissingFieldsReachService(t *testing.T) {
	svc := &fakeAuth{loginFn: func(_ context.Context, email, password string) (auth.Result, error) {
		if email == "" || password == "" {
			return auth.Result{}, apperr.BadRequest("Please provide an email and a password")
		}
		return okResult("tok"), nil
	}}

	w := do(authRouter(svc, "", false), http.MethodPost, "/api/v1/auth/login", `{"email":"sam@example.com"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please provide an email and a password", decode(t, w)["error"])
}

func TestLogin_BadCredentialsIs401(t *testing.T) {
	svc := &fakeAuth{loginFn: func(context.Context, string, string) (auth.Result, error) {
		return auth.Result{}, apperr.Unauthenticated("Invalid credentials")
	}}

	w := do(authRouter(svc, "", false), http.MethodPost, "/api/v1/auth/login",
		`{"email":"sam@example.com","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decode(t, w)["error"])
}

func TestServerErrorNeverLeaksCause(t *testing.T) {
	svc := &fakeAuth{loginFn: func(context.Context, string, string) (auth.Result, error) {
		return auth.Result{}, apperr.Server("credentials.get_by_email", errors.New("dial tcp 10.0.0.7:5432: refused"))
	}}

	w := do(authRouter(svc, "", false), http.MethodPost, "/api/v1/auth/login",
		`{"email":"sam@example.com","password":"x"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperr.GenericServerMessage, decode(t, w)["error"])
	assert.NotContains(t, w.Body.String(), "10.0.0.7")
}

func TestMe(t *testing.T) {
	svc := &fakeAuth{meFn: func(_ context.Context, id string) (user.User, error) {
		return user.User{ID: id, Name: "Sam", Email: "sam@example.com", PasswordHash: "never"}, nil
	}}

	t.Run("authenticated", func(t *testing.T) {
		w := do(authRouter(svc, "", true), http.MethodGet, "/api/v1/auth/me", "")

		require.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w)["data"].(map[string]any)
		assert.Equal(t, "u-1", data["id"])
		assert.NotContains(t, w.Body.String(), "never")
	})

	t.Run("no user in context", func(t *testing.T) {
		w := do(authRouter(svc, "", false), http.MethodGet, "/api/v1/auth/me", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestUpdateDetails_PassesOnlyProfileFields(t *testing.T) {
	var got user.ProfileUpdate
	svc := &fakeAuth{profileFn: func(_ context.Context, _ string, upd user.ProfileUpdate) (user.User, error) {
		got = upd
		return user.User{ID: "u-1", Name: *upd.Name}, nil
	}}

	w := do(authRouter(svc, "", true), http.MethodPut, "/api/v1/auth/updatedetails",
		`{"name":"New Name","role":"admin","password":"hijack"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, got.Name)
	assert.Equal(t, "New Name", *got.Name)
	assert.Nil(t, got.Email)
}

func TestUpdatePassword_IssuesFreshSession(t *testing.T) {
	svc := &fakeAuth{passwordFn: func(_ context.Context, id, current, next string) (auth.Result, error) {
		if current != "old-secret" {
			return auth.Result{}, apperr.Unauthenticated("Password is incorrect")
		}
		return okResult("fresh"), nil
	}}
	r := authRouter(svc, "", true)

	w := do(r, http.MethodPut, "/api/v1/auth/updatepassword", `{"currentPassword":"old-secret","newPassword":"new-secret"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "fresh", decode(t, w)["token"])
	assert.Equal(t, "fresh", sessionCookie(t, w).Value)

	w = do(r, http.MethodPut, "/api/v1/auth/updatepassword", `{"currentPassword":"guess","newPassword":"new-secret"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Password is incorrect", decode(t, w)["error"])
}

func TestForgotPassword_ResetBase(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{"configured", "https://api.devcamper.io", "https://api.devcamper.io"},
		{"request host", "", "http://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got auth.ForgotPasswordInput
			svc := &fakeAuth{forgotFn: func(_ context.Context, in auth.ForgotPasswordInput) error {
				got = in
				return nil
			}}

			w := do(authRouter(svc, tt.baseURL, false), http.MethodPost, "/api/v1/auth/forgotpassword",
				`{"email":"sam@example.com"}`)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "Email sent", decode(t, w)["data"])
			assert.Equal(t, tt.want, got.ResetURLBase)
			assert.Equal(t, "sam@example.com", got.Email)
		})
	}
}

func TestForgotPassword_DeliveryFailure(t *testing.T) {
	svc := &fakeAuth{forgotFn: func(context.Context, auth.ForgotPasswordInput) error {
		return apperr.ServerMsg("auth.forgot_password", "Email could not be sent")
	}}

	w := do(authRouter(svc, "", false), http.MethodPost, "/api/v1/auth/forgotpassword", `{"email":"sam@example.com"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Email could not be sent", decode(t, w)["error"])
}

func TestResetPassword_UsesPathToken(t *testing.T) {
	var gotToken string
	svc := &fakeAuth{resetFn: func(_ context.Context, token, _ string) (auth.Result, error) {
		gotToken = token
		if token != "abc123" {
			return auth.Result{}, apperr.InvalidToken("Invalid token")
		}
		return okResult("after-reset"), nil
	}}
	r := authRouter(svc, "", false)

	w := do(r, http.MethodPut, "/api/v1/auth/resetpassword/abc123", `{"password":"brand-new"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "abc123", gotToken)
	assert.Equal(t, "after-reset", decode(t, w)["token"])

	w = do(r, http.MethodPut, "/api/v1/auth/resetpassword/other", `{"password":"brand-new"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid token", decode(t, w)["error"])
}

func TestLogout_ExpiresCookie(t *testing.T) {
	w := do(authRouter(&fakeAuth{}, "", false), http.MethodGet, "/api/v1/auth/logout", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	c := sessionCookie(t, w)
	assert.Equal(t, auth.LoggedOutToken, c.Value)
	assert.Negative(t, c.MaxAge)
	assert.True(t, c.HttpOnly)
}
