package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Message is a plain text email
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender delivers email messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds configuration for SMTP server
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewSender returns an SMTP sender, or a sender that only logs when no host
// is configured.
func NewSender(config SMTPConfig, logger zerolog.Logger) Sender {
	if config.Host == "" {
		return &logSender{logger: logger}
	}
	return &smtpSender{config: config, logger: logger, send: smtp.SendMail}
}

type smtpSender struct {
	config SMTPConfig
	logger zerolog.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// Send implements Sender
func (s *smtpSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	addr := s.config.Host + ":" + strconv.Itoa(s.config.Port)
	if err := s.send(addr, auth, s.config.From, msg.To, buildMessage(s.config.From, msg)); err != nil {
		s.logger.Error().Err(err).Str("server", addr).Msg("Failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func buildMessage(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

type logSender struct {
	logger zerolog.Logger
}

// Send implements Sender by logging the message
func (s *logSender) Send(_ context.Context, msg Message) error {
	s.logger.Info().
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Msg("SMTP not configured - email logged instead of sent")
	return nil
}
