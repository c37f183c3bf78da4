package credentials

import (
	"context"
	"time"

	"github.com/geocoder89/devcamper/internal/domain/user"
)

// Repository is the persistence boundary for user records. Implementations
// live under internal/repo and report user.ErrNotFound / user.ErrEmailTaken.
//
// Reads return the full row, secrets included; the Store decides what leaves.
type Repository interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	List(ctx context.Context, filter user.ListFilter) ([]user.User, error)
	UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error)
	UpdateRole(ctx context.Context, id string, role user.Role) (user.User, error)

	// UpdatePassword stores a new hash and clears any reset token in the same write.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error

	// ConsumeResetToken stores passwordHash on the user holding tokenHash with
	// an expiry strictly after now, and clears the token in the same write. A token
	// can therefore be spent once; every other caller gets user.ErrNotFound.
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (user.User, error)

	// ClearExpiredResetTokens drops every reset token whose expiry is at or
	// before now and reports how many were cleared.
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)

	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}
