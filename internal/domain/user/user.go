package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RolePublisher Role = "publisher"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RolePublisher, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// reset token fields are always written together
	ResetPasswordTokenHash *string    `json:"-"`
	ResetPasswordExpire    *time.Time `json:"-"`
}

// WithoutSecrets returns a copy safe to hand out of the credential store.
func (u User) WithoutSecrets() User {
	u.PasswordHash = ""
	u.ResetPasswordTokenHash = nil
	u.ResetPasswordExpire = nil
	return u
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

// NormalizeEmail makes email comparison case-insensitive at every entry point.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// New builds a user ready to be persisted. passwordHash must already be hashed.
func New(name, email, passwordHash string, role Role) User {
	now := time.Now().UTC()

	if role == "" {
		role = RoleUser
	}

	return User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ProfileUpdate enumerates the only fields a user may change on themselves.
type ProfileUpdate struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=50" validate:"omitempty,min=1,max=50"`
	Email *string `json:"email" binding:"omitempty,email" validate:"omitempty,email"`
}

func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil
}

type ListFilter struct {
	Limit int
	// keyset position, zero values mean "from the start"
	AfterCreatedAt time.Time
	AfterID        string
}
