package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

func init() {
	// report json names ("currentPassword") rather than Go field names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonTagName)
	}
}

func jsonTagName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// BindJSON decodes and validates the body into out. On failure it has
// already answered the request and returns false.
func BindJSON(ctx *gin.Context, out any) bool {
	err := ctx.ShouldBindJSON(out)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large", nil)
		return false
	}

	message, details := describeBindError(err)
	RespondBadRequest(ctx, message, details)
	return false
}

func describeBindError(err error) (string, any) {
	var (
		invalid   validator.ValidationErrors
		syntax    *json.SyntaxError
		wrongType *json.UnmarshalTypeError
	)

	switch {
	case errors.As(err, &invalid):
		fields := make([]FieldError, len(invalid))
		parts := make([]string, len(invalid))
		for i, fe := range invalid {
			msg := ruleMessage(fe.Tag(), fe.Param())
			fields[i] = FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param(), Message: msg}
			parts[i] = fe.Field() + " " + msg
		}
		return strings.Join(parts, ", "), gin.H{"fields": fields}

	case errors.As(err, &syntax), errors.Is(err, io.ErrUnexpectedEOF):
		return "Invalid request body", gin.H{"json": "invalid_json_syntax"}

	case errors.Is(err, io.EOF):
		return "Request body is required", gin.H{"json": "empty_body"}

	case errors.As(err, &wrongType):
		// Field is already the dotted json path
		field := wrongType.Field
		return field + " has the wrong type", gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{{
				Field:   field,
				Rule:    "type",
				Message: "must be of type " + wrongType.Type.String(),
			}},
		}
	}

	return "Invalid request body", nil
}

func ruleMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	}

	if param != "" {
		return fmt.Sprintf("failed %s validation (%s)", rule, param)
	}
	return "failed " + rule + " validation"
}
