package apperr_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geocoder89/devcamper/internal/apperr"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"validation", apperr.Validation("name is required"), http.StatusBadRequest, apperr.CodeValidation},
		{"bad request", apperr.BadRequest("missing"), http.StatusBadRequest, apperr.CodeBadRequest},
		{"conflict", apperr.Conflict("taken"), http.StatusConflict, apperr.CodeConflict},
		{"unauthenticated", apperr.Unauthenticated("Invalid credentials"), http.StatusUnauthorized, apperr.CodeUnauthenticated},
		{"forbidden", apperr.Forbidden("nope"), http.StatusForbidden, apperr.CodeForbidden},
		{"invalid token", apperr.InvalidToken("Invalid token"), http.StatusBadRequest, apperr.CodeInvalidToken},
		{"not found", apperr.NotFound("missing"), http.StatusNotFound, apperr.CodeNotFound},
		{"server", apperr.Server("db", errors.New("boom")), http.StatusInternalServerError, apperr.CodeServerError},
		{"plain error", errors.New("unclassified"), http.StatusInternalServerError, apperr.CodeServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.HTTPStatus(tt.err))
			assert.Equal(t, tt.code, apperr.Code(tt.err))
			assert.True(t, apperr.Is(tt.err, tt.code))
		})
	}
}

func TestPublicMessage_HidesServerCause(t *testing.T) {
	err := apperr.Server("users.create", errors.New("pq: connection refused on 10.0.0.3"))

	assert.Equal(t, apperr.GenericServerMessage, apperr.PublicMessage(err))
	assert.Equal(t, apperr.GenericServerMessage, apperr.PublicMessage(errors.New("raw")))
	assert.Equal(t, "Invalid token", apperr.PublicMessage(apperr.InvalidToken("Invalid token")))
	assert.Equal(t, "Email could not be sent", apperr.PublicMessage(apperr.ServerMsg("mail", "Email could not be sent")))
}

func TestCode_Nil(t *testing.T) {
	assert.Equal(t, "", apperr.Code(nil))
	assert.False(t, apperr.Is(nil, apperr.CodeServerError))
}
