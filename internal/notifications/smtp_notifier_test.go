package notifications

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPNotifier_Send(t *testing.T) {
	var (
		gotAddr string
		gotAuth smtp.Auth
		gotFrom string
		gotTo   []string
		gotMsg  string
	)

	n := NewSMTPNotifier(SMTPConfig{Host: "mail.local", Port: 2525, Username: "u", Password: "p", From: "noreply@devcamper.io"})
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotFrom, gotTo, gotMsg = addr, a, from, to, string(msg)
		return nil
	}

	err := n.Send(context.Background(), Message{To: "jane@example.com", Subject: "Password reset token", Body: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, "noreply@devcamper.io", gotFrom)
	assert.Equal(t, []string{"jane@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "From: noreply@devcamper.io\r\n"))
	assert.Contains(t, gotMsg, "Subject: Password reset token\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\nhello"))
}

func TestSMTPNotifier_NoAuthWithoutUsername(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "mail.local", Port: 25, From: "a@b.c"})

	var gotAuth smtp.Auth = smtp.PlainAuth("", "x", "y", "z")
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAuth = a
		return nil
	}

	require.NoError(t, n.Send(context.Background(), Message{To: "jane@example.com"}))
	assert.Nil(t, gotAuth)
}

func TestSMTPNotifier_RejectsHeaderInjection(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "mail.local", Port: 25})
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}

	err := n.Send(context.Background(), Message{To: "jane@example.com\r\nBcc: evil@example.com"})
	assert.Error(t, err)

	err = n.Send(context.Background(), Message{To: "jane@example.com", Subject: "hi\nBcc: x"})
	assert.Error(t, err)
}

func TestSMTPNotifier_ProviderError(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "mail.local", Port: 25})
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("421 service not available")
	}

	err := n.Send(context.Background(), Message{To: "jane@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp send")
}

func TestSMTPNotifier_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	n := NewSMTPNotifier(SMTPConfig{Host: "mail.local", Port: 25})
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		<-release
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := n.Send(ctx, Message{To: "jane@example.com"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
