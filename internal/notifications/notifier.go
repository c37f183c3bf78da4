package notifications

import "context"

type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers a message or reports why it could not.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
