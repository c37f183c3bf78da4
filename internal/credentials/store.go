// Package credentials owns user records: password hashing and comparison,
// secret-free reads, and the persistence of reset-token digests.
package credentials

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/geocoder89/devcamper/internal/apperr"
	"github.com/geocoder89/devcamper/internal/domain/user"
	"github.com/geocoder89/devcamper/internal/security"
)

type Store struct {
	repo     Repository
	hasher   *security.Hasher
	validate *validator.Validate
}

func NewStore(repo Repository, hasher *security.Hasher) *Store {
	return &Store{
		repo:     repo,
		hasher:   hasher,
		validate: newValidator(),
	}
}

type NewUser struct {
	Name     string    `json:"name" validate:"required,max=50"`
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,min=6,max=72"`
	Role     user.Role `json:"role"`
}

type passwordInput struct {
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Create hashes the password and persists a new user. An empty role means
// user; callers outside the admin path must leave it empty.
func (s *Store) Create(ctx context.Context, in NewUser) (user.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = user.NormalizeEmail(in.Email)

	if err := s.validateStruct(in); err != nil {
		return user.User{}, err
	}

	if in.Role != "" && !in.Role.Valid() {
		return user.User{}, apperr.Validation("role must be one of user, publisher, admin")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return user.User{}, apperr.Server("credentials.hash", err)
	}

	created, err := s.repo.Create(ctx, user.New(in.Name, in.Email, hash, in.Role))
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.User{}, apperr.Conflict("Email is already in use")
		}
		return user.User{}, apperr.Server("credentials.create", err)
	}

	return created.WithoutSecrets(), nil
}

// FindByEmailWithSecret is the only read that returns the password hash.
func (s *Store) FindByEmailWithSecret(ctx context.Context, email string) (user.User, error) {
	u, err := s.repo.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		return user.User{}, s.lookupErr("credentials.get_by_email", err)
	}

	return u, nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (user.User, error) {
	u, err := s.FindByEmailWithSecret(ctx, email)
	if err != nil {
		return user.User{}, err
	}

	return u.WithoutSecrets(), nil
}

func (s *Store) VerifyPassword(u user.User, raw string) bool {
	return s.hasher.Verify(u.PasswordHash, raw)
}

// CheckPassword verifies raw against the stored hash of id without the hash
// ever leaving the store.
func (s *Store) CheckPassword(ctx context.Context, id, raw string) (bool, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, s.lookupErr("credentials.get_by_id", err)
	}

	return s.hasher.Verify(u.PasswordHash, raw), nil
}

func (s *Store) Get(ctx context.Context, id string) (user.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return user.User{}, s.lookupErr("credentials.get_by_id", err)
	}

	return u.WithoutSecrets(), nil
}

func (s *Store) List(ctx context.Context, filter user.ListFilter) ([]user.User, error) {
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Server("credentials.list", err)
	}

	out := make([]user.User, 0, len(items))
	for _, u := range items {
		out = append(out, u.WithoutSecrets())
	}

	return out, nil
}

// UpdateProfile applies the whitelisted profile fields only.
func (s *Store) UpdateProfile(ctx context.Context, id string, upd user.ProfileUpdate) (user.User, error) {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		upd.Name = &name
	}
	if upd.Email != nil {
		email := user.NormalizeEmail(*upd.Email)
		upd.Email = &email
	}

	if err := s.validateStruct(upd); err != nil {
		return user.User{}, err
	}

	if upd.Empty() {
		return s.Get(ctx, id)
	}

	u, err := s.repo.UpdateProfile(ctx, id, upd)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.User{}, apperr.Conflict("Email is already in use")
		}
		return user.User{}, s.lookupErr("credentials.update_profile", err)
	}

	return u.WithoutSecrets(), nil
}

// SetPassword re-hashes and persists a new password. Any outstanding reset
// token is cleared by the same write.
func (s *Store) SetPassword(ctx context.Context, id, raw string) error {
	if err := s.validateStruct(passwordInput{Password: raw}); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(raw)
	if err != nil {
		return apperr.Server("credentials.hash", err)
	}

	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return s.lookupErr("credentials.update_password", err)
	}

	return nil
}

func (s *Store) SetRole(ctx context.Context, id string, role user.Role) (user.User, error) {
	if !role.Valid() {
		return user.User{}, apperr.Validation("role must be one of user, publisher, admin")
	}

	u, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		return user.User{}, s.lookupErr("credentials.update_role", err)
	}

	return u.WithoutSecrets(), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.lookupErr("credentials.delete", err)
	}

	return nil
}

func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, apperr.Server("credentials.delete_all", err)
	}

	return n, nil
}

func (s *Store) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	if err := s.repo.SetResetToken(ctx, id, tokenHash, expiresAt); err != nil {
		return s.lookupErr("credentials.set_reset_token", err)
	}

	return nil
}

func (s *Store) ClearResetToken(ctx context.Context, id string) error {
	if err := s.repo.ClearResetToken(ctx, id); err != nil {
		return s.lookupErr("credentials.clear_reset_token", err)
	}

	return nil
}

func (s *Store) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.ClearExpiredResetTokens(ctx, now)
	if err != nil {
		return 0, apperr.Server("credentials.clear_expired_reset_tokens", err)
	}

	return n, nil
}

// RedeemResetToken validates and hashes raw first, then spends the reset
// digest and sets the password in a single write. A spent, expired or
// unknown digest is NotFound.
func (s *Store) RedeemResetToken(ctx context.Context, tokenHash string, now time.Time, raw string) (user.User, error) {
	if err := s.validateStruct(passwordInput{Password: raw}); err != nil {
		return user.User{}, err
	}

	hash, err := s.hasher.Hash(raw)
	if err != nil {
		return user.User{}, apperr.Server("credentials.hash", err)
	}

	u, err := s.repo.ConsumeResetToken(ctx, tokenHash, now, hash)
	if err != nil {
		return user.User{}, s.lookupErr("credentials.consume_reset_token", err)
	}

	return u.WithoutSecrets(), nil
}

func (s *Store) lookupErr(op string, err error) error {
	if errors.Is(err, user.ErrNotFound) {
		return apperr.NotFound("User not found")
	}

	return apperr.Server(op, err)
}
