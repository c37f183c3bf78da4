package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// UserCursor is the keyset position of the admin user listing, ordered by
// created_at then id.
type UserCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func EncodeUserCursor(createdAt time.Time, id string) (string, error) {
	b, err := json.Marshal(UserCursor{CreatedAt: createdAt, ID: id})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeUserCursor(cursor string) (UserCursor, error) {
	if cursor == "" {
		return UserCursor{}, errors.New("empty cursor")
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return UserCursor{}, err
	}
	var c UserCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return UserCursor{}, err
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		return UserCursor{}, errors.New("invalid cursor payload")
	}
	return c, nil
}
