package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendVerificationEmail(t *testing.T) {
	m := NewMailer("smtp.example.com", "587", "noreply@example.com", "secret")

	var gotAddr string
	var gotMsg []byte
	m.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotMsg = msg
		assert.Equal(t, []string{"owner@example.com"}, to)
		return nil
	}

	require.NoError(t, m.SendVerificationEmail(context.Background(), "owner@example.com", "482913"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)

	msg := string(gotMsg)
	assert.True(t, strings.HasPrefix(msg, "From: noreply@example.com\r\nTo: owner@example.com\r\n"))
	assert.Contains(t, msg, "<strong>482913</strong>")
}

func TestSendEmailStopsOnCanceledContext(t *testing.T) {
	m := NewMailer("smtp.example.com", "587", "noreply@example.com", "secret")

	calls := 0
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		calls++
		return errors.New("421 service not available")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.SendVerificationEmail(ctx, "owner@example.com", "000000")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
