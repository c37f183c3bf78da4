package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/geocoder89/devcamper/internal/apperr"
	"github.com/geocoder89/devcamper/internal/domain/user"
)

const (
	ResetTokenBytes      = 32 // 64 hex chars
	DefaultResetTokenTTL = 10 * time.Minute

	invalidTokenMessage = "Invalid token"
)

// ResetTokenStore persists reset digests on the user record.
type ResetTokenStore interface {
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	RedeemResetToken(ctx context.Context, tokenHash string, now time.Time, newPassword string) (user.User, error)
}

// ResetTokens issues one-time password reset tokens. Only the sha256 digest
// and the expiry are stored; the plaintext exists once, in Generate's result.
type ResetTokens struct {
	store ResetTokenStore
	ttl   time.Duration
	now   func() time.Time
}

func NewResetTokens(store ResetTokenStore, ttl time.Duration) *ResetTokens {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}

	return &ResetTokens{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Generate creates a token for u, stores its digest, and returns the plaintext.
func (r *ResetTokens) Generate(ctx context.Context, u user.User) (string, error) {
	buf := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", apperr.Server("reset.generate", err)
	}

	token := hex.EncodeToString(buf)

	if err := r.store.SetResetToken(ctx, u.ID, HashResetToken(token), r.now().UTC().Add(r.ttl)); err != nil {
		return "", err
	}

	return token, nil
}

// Redeem spends a presented token and sets newPassword on its user in one
// store write, so concurrent redemptions of the same token succeed once.
// Unknown, malformed, expired and already spent tokens fail identically.
func (r *ResetTokens) Redeem(ctx context.Context, token, newPassword string) (user.User, error) {
	if token == "" {
		return user.User{}, apperr.InvalidToken(invalidTokenMessage)
	}

	u, err := r.store.RedeemResetToken(ctx, HashResetToken(token), r.now().UTC(), newPassword)
	if err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			return user.User{}, apperr.InvalidToken(invalidTokenMessage)
		}
		return user.User{}, err
	}

	return u, nil
}

// Revoke clears any outstanding token for userID.
func (r *ResetTokens) Revoke(ctx context.Context, userID string) error {
	return r.store.ClearResetToken(ctx, userID)
}

func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
