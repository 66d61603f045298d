package email

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSenderBuildsMessage(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	s := &smtpSender{
		config: SMTPConfig{Host: "mail.test", Port: 2525, From: "housing@test"},
		logger: zerolog.Nop(),
		send: func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
			gotAddr, gotTo, gotMsg = addr, to, string(msg)
			return nil
		},
	}

	err := s.Send(context.Background(), Message{To: []string{"a@test", "b@test"}, Subject: "New request", Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "mail.test:2525", gotAddr)
	assert.Equal(t, []string{"a@test", "b@test"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: New request\r\n")
	assert.Contains(t, gotMsg, "To: a@test, b@test\r\n")
	assert.Contains(t, gotMsg, "\r\n\r\nhello")
}

func TestNewSenderWithoutHostOnlyLogs(t *testing.T) {
	s := NewSender(SMTPConfig{}, zerolog.Nop())
	_, ok := s.(*logSender)
	assert.True(t, ok)
	assert.NoError(t, s.Send(context.Background(), Message{To: []string{"a@test"}}))
}
