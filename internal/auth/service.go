package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/geocoder89/devcamper/internal/apperr"
	"github.com/geocoder89/devcamper/internal/credentials"
	"github.com/geocoder89/devcamper/internal/domain/user"
	"github.com/geocoder89/devcamper/internal/notifications"
)

// LoggedOutToken is the cookie value written over a session on logout.
const LoggedOutToken = "none"

const (
	msgInvalidCredentials = "Invalid credentials"
	msgMissingCredentials = "Please provide an email and a password"
	msgPasswordIncorrect  = "Password is incorrect"
	msgEmailNotSent       = "Email could not be sent"

	resetSubject = "Password reset token"
	resetPath    = "/api/v1/auth/resetpassword/"
)

// Credentials is the slice of the credential store the auth flows need.
type Credentials interface {
	Create(ctx context.Context, in credentials.NewUser) (user.User, error)
	FindByEmailWithSecret(ctx context.Context, email string) (user.User, error)
	FindByEmail(ctx context.Context, email string) (user.User, error)
	VerifyPassword(u user.User, raw string) bool
	CheckPassword(ctx context.Context, id, raw string) (bool, error)
	Get(ctx context.Context, id string) (user.User, error)
	UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error)
	SetPassword(ctx context.Context, id, raw string) error
}

// EventRecorder counts auth outcomes, e.g. login/failure.
type EventRecorder interface {
	AuthEvent(event, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) AuthEvent(string, string) {}

type Service struct {
	creds    Credentials
	tokens   *Manager
	resets   *ResetTokens
	notifier notifications.Notifier
	log      *slog.Logger
	events   EventRecorder
}

func NewService(
	creds Credentials,
	tokens *Manager,
	resets *ResetTokens,
	notifier notifications.Notifier,
	log *slog.Logger,
	events EventRecorder,
) *Service {
	if events == nil {
		events = nopRecorder{}
	}

	return &Service{
		creds:    creds,
		tokens:   tokens,
		resets:   resets,
		notifier: notifier,
		log:      log,
		events:   events,
	}
}

// Result is what a successful authenticating flow hands back to the caller.
type Result struct {
	User    user.User
	Session Session
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type ForgotPasswordInput struct {
	Email string
	// ResetURLBase is scheme://host the reset link is built on.
	ResetURLBase string
}

// Register creates a user with the default role and logs them in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Result, error) {
	u, err := s.creds.Create(ctx, credentials.NewUser{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		s.events.AuthEvent("register", "failure")
		return Result{}, err
	}

	return s.issue("register", u)
}

// Login fails identically for an unknown email and a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Result{}, apperr.BadRequest(msgMissingCredentials)
	}

	u, err := s.creds.FindByEmailWithSecret(ctx, email)
	if err != nil {
		if !apperr.Is(err, apperr.CodeNotFound) {
			return Result{}, err
		}
		// pay for a bcrypt compare anyway so timing matches a wrong password
		u = user.User{}
	}

	if !s.creds.VerifyPassword(u, password) {
		s.events.AuthEvent("login", "failure")
		return Result{}, apperr.Unauthenticated(msgInvalidCredentials)
	}

	return s.issue("login", u.WithoutSecrets())
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (user.User, error) {
	return s.creds.Get(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, upd user.ProfileUpdate) (user.User, error) {
	return s.creds.UpdateProfile(ctx, userID, upd)
}

// ChangePassword leaves the stored hash untouched unless current matches.
// A fresh session is issued on success.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) (Result, error) {
	ok, err := s.creds.CheckPassword(ctx, userID, current)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		s.events.AuthEvent("change_password", "failure")
		return Result{}, apperr.Unauthenticated(msgPasswordIncorrect)
	}

	if err := s.creds.SetPassword(ctx, userID, next); err != nil {
		return Result{}, err
	}

	u, err := s.creds.Get(ctx, userID)
	if err != nil {
		return Result{}, err
	}

	return s.issue("change_password", u)
}

// ForgotPassword issues a reset token and mails the link. An unknown email
// is reported as success so the endpoint cannot be used to probe accounts.
// If delivery fails the token is revoked before the error is returned.
func (s *Service) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	if strings.TrimSpace(in.Email) == "" {
		return apperr.BadRequest("Please provide an email")
	}

	u, err := s.creds.FindByEmail(ctx, in.Email)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			s.log.InfoContext(ctx, "auth.forgot_password.unknown_email")
			s.events.AuthEvent("forgot_password", "unknown_email")
			return nil
		}
		return err
	}

	token, err := s.resets.Generate(ctx, u)
	if err != nil {
		return err
	}

	resetURL := strings.TrimRight(in.ResetURLBase, "/") + resetPath + token

	msg := notifications.Message{
		To:      u.Email,
		Subject: resetSubject,
		Body: fmt.Sprintf(
			"You are receiving this email because you (or someone else) has requested the reset of a password. Please make a PUT request to: \n\n %s",
			resetURL,
		),
	}

	if sendErr := s.notifier.Send(ctx, msg); sendErr != nil {
		s.log.ErrorContext(ctx, "auth.forgot_password.send_failed", "user_id", u.ID, "err", sendErr)

		// the token must not outlive a failed delivery
		if err := s.resets.Revoke(context.WithoutCancel(ctx), u.ID); err != nil {
			s.log.ErrorContext(ctx, "auth.forgot_password.revoke_failed", "user_id", u.ID, "err", err)
		}

		s.events.AuthEvent("forgot_password", "failure")
		return apperr.ServerMsg("auth.forgot_password", msgEmailNotSent)
	}

	s.events.AuthEvent("forgot_password", "success")
	return nil
}

// ResetPassword spends a reset token. Setting the password clears the token
// fields, so a second use fails like any unknown token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (Result, error) {
	u, err := s.resets.Redeem(ctx, token, newPassword)
	if err != nil {
		s.events.AuthEvent("reset_password", "failure")
		return Result{}, err
	}

	return s.issue("reset_password", u)
}

// Logout returns the marker session delivered over the client's cookie.
// Tokens are stateless; nothing is revoked server-side.
func (s *Service) Logout() Session {
	return Session{Token: LoggedOutToken, ExpiresAt: time.Unix(0, 0).UTC()}
}

func (s *Service) issue(event string, u user.User) (Result, error) {
	sess, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Result{}, err
	}

	s.events.AuthEvent(event, "success")
	return Result{User: u, Session: sess}, nil
}
