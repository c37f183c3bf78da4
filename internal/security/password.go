package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrEmptyPassword = errors.New("password cannot be empty")

// Hasher hashes passwords with bcrypt at a fixed work factor.
type Hasher struct {
	cost int
	// compared against when there is no stored hash, at the same cost
	placeholder []byte
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	placeholder, _ := bcrypt.GenerateFromPassword([]byte("devcamper-no-such-account"), cost)

	return &Hasher{cost: cost, placeholder: placeholder}
}

// Hash password hashes a plain text password with bcrypt.
func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Verify compares a bcrypt hash with a plaintext password. bcrypt does the
// comparison in constant time; a malformed hash is a mismatch. An empty hash
// still costs one full comparison, so a missing account answers no faster
// than a wrong password.
func (h *Hasher) Verify(hash, plain string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(h.placeholder, []byte(plain))
		return false
	}
	if plain == "" {
		return false
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
