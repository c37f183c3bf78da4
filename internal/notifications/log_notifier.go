package notifications

import (
	"context"
	"errors"
	"log/slog"
)

// LogNotifier records messages in the log instead of delivering them. It is
// the dev default when no SMTP host is configured.
type LogNotifier struct {
	log  *slog.Logger
	fail bool
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Failing makes every Send return an error; handy for rehearsing outages.
func (n *LogNotifier) Failing() *LogNotifier {
	return &LogNotifier{log: n.log, fail: true}
}

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if n.fail {
		return errors.New("provider down (simulated)")
	}

	// the body carries a one-time secret, so only the envelope is logged
	n.log.InfoContext(ctx, "notification.sent", "to", msg.To, "subject", msg.Subject, "body_bytes", len(msg.Body))
	return nil
}
