package utils

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCursor_RoundTrip(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 30, 0, 123, time.UTC)

	enc, err := EncodeUserCursor(at, "b7c1")
	require.NoError(t, err)

	got, err := DecodeUserCursor(enc)
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(at))
	assert.Equal(t, "b7c1", got.ID)
}

func TestDecodeUserCursor_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"not base64":   "%%%",
		"not json":     base64.RawURLEncoding.EncodeToString([]byte("nope")),
		"missing id":   base64.RawURLEncoding.EncodeToString([]byte(`{"createdAt":"2026-01-01T00:00:00Z"}`)),
		"missing time": base64.RawURLEncoding.EncodeToString([]byte(`{"id":"x"}`)),
	}

	for name, cursor := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeUserCursor(cursor)
			assert.Error(t, err)
		})
	}
}
