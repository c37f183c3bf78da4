// Package apperr defines the failure kinds surfaced by the services and the
// HTTP status each one maps to.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/samber/oops"
)

const (
	CodeValidation      = "validation_error"
	CodeBadRequest      = "bad_request"
	CodeConflict        = "conflict"
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeInvalidToken    = "invalid_token"
	CodeNotFound        = "not_found"
	CodeServerError     = "server_error"
)

const publicMessageKey = "public_message"

// GenericServerMessage is the only text a client ever sees for a server_error.
const GenericServerMessage = "Server Error"

func Validation(format string, args ...any) error {
	return oops.Code(CodeValidation).Errorf(format, args...)
}

func BadRequest(format string, args ...any) error {
	return oops.Code(CodeBadRequest).Errorf(format, args...)
}

func Conflict(format string, args ...any) error {
	return oops.Code(CodeConflict).Errorf(format, args...)
}

func Unauthenticated(format string, args ...any) error {
	return oops.Code(CodeUnauthenticated).Errorf(format, args...)
}

func Forbidden(format string, args ...any) error {
	return oops.Code(CodeForbidden).Errorf(format, args...)
}

func InvalidToken(format string, args ...any) error {
	return oops.Code(CodeInvalidToken).Errorf(format, args...)
}

func NotFound(format string, args ...any) error {
	return oops.Code(CodeNotFound).Errorf(format, args...)
}

// Server wraps an infrastructure failure. operation ends up in the log context.
func Server(operation string, err error) error {
	return oops.Code(CodeServerError).With("operation", operation).Wrap(err)
}

// ServerMsg builds a server_error whose text is meant for the client.
func ServerMsg(operation, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)

	return oops.Code(CodeServerError).
		With("operation", operation).
		With(publicMessageKey, msg).
		Errorf("%s", msg)
}

// Code extracts the failure kind; anything unclassified is a server error.
func Code(err error) string {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return CodeServerError
	}

	code, ok := oopsErr.Code().(string)
	if !ok || code == "" {
		return CodeServerError
	}

	return code
}

// Is reports whether err carries the given kind.
func Is(err error, code string) bool {
	return err != nil && Code(err) == code
}

func HTTPStatus(err error) int {
	switch Code(err) {
	case CodeValidation, CodeBadRequest, CodeInvalidToken:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to show a client. Server errors never
// leak their cause; ones built with ServerMsg keep their own text.
func PublicMessage(err error) string {
	if Code(err) != CodeServerError {
		return err.Error()
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return GenericServerMessage
	}

	if msg, ok := oopsErr.Context()[publicMessageKey].(string); ok && msg != "" {
		return msg
	}

	return GenericServerMessage
}
