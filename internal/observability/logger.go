package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// attribute keys whose values never reach the log
var redactedKeys = map[string]bool{
	"password":      true,
	"newpassword":   true,
	"token":         true,
	"reset_token":   true,
	"authorization": true,
	"cookie":        true,
}

// NewLogger builds the JSON logger. Records carry trace_id/span_id and the
// acting user_id when the context has them.
func NewLogger(env string) *slog.Logger {
	return newLogger(env, os.Stdout)
}

func newLogger(env string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redact,
	})

	return slog.New(NewContextHandler(handler)).With("service", ServiceName)
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if redactedKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}
