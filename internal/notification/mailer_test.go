package notification

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumpipe/internal/config"
	"forumpipe/internal/logger"
)

func TestNewMailer_Selection(t *testing.T) {
	_, ok := NewMailer(config.EmailConfig{}, logger.NopLogger()).(*LogMailer)
	assert.True(t, ok, "disabled email logs")

	_, ok = NewMailer(config.EmailConfig{Enabled: true}, logger.NopLogger()).(*LogMailer)
	assert.True(t, ok, "no host logs")

	_, ok = NewMailer(config.EmailConfig{Enabled: true, SMTPHost: "smtp.example.edu"}, logger.NopLogger()).(*SMTPMailer)
	assert.True(t, ok)
}

func TestSMTPMailer_Send(t *testing.T) {
	m := NewSMTPMailer(config.EmailConfig{
		Enabled:  true,
		SMTPHost: "smtp.example.edu",
		Username: "forum@example.edu",
		Password: "secret",
	})

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "mod@example.edu", "Hello", "line1\nline2"))

	assert.Equal(t, "smtp.example.edu:587", gotAddr)
	assert.Equal(t, "forum@example.edu", gotFrom)
	assert.Equal(t, []string{"mod@example.edu"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Hello\r\n")
	assert.True(t, strings.HasSuffix(gotMsg, "\r\n\r\nline1\r\nline2"))
}

func TestSMTPMailer_SendError(t *testing.T) {
	m := NewSMTPMailer(config.EmailConfig{SMTPHost: "smtp.example.edu", SMTPPort: 25})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := m.Send(context.Background(), "a@example.edu", "s", "b")
	assert.ErrorContains(t, err, "connection refused")
}

func TestSMTPMailer_CancelledContext(t *testing.T) {
	m := NewSMTPMailer(config.EmailConfig{SMTPHost: "smtp.example.edu"})
	called := false
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, "a@example.edu", "s", "b"), context.Canceled)
	assert.False(t, called)
}
