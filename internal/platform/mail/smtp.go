// Package mail delivers transactional email over plain SMTP (Mailpit in development).
package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Message is a single plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// SendFunc matches smtp.SendMail so tests can capture outgoing mail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender delivers messages through an SMTP relay.
type Sender struct {
	addr string
	from string
	send SendFunc
}

// NewSender builds a Sender for host:port. A nil send uses smtp.SendMail.
func NewSender(host string, port int, from string, send SendFunc) *Sender {
	if send == nil {
		send = smtp.SendMail
	}
	return &Sender{addr: net.JoinHostPort(host, strconv.Itoa(port)), from: from, send: send}
}

// Send delivers msg. The context is only checked before dialing.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if s == nil {
		return errors.New("mail: sender not configured")
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mail: recipient required")
	}
	if strings.ContainsAny(msg.To+msg.Subject, "\r\n") {
		return errors.New("mail: header injection rejected")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.send(s.addr, nil, s.from, []string{msg.To}, s.render(msg)); err != nil {
		return fmt.Errorf("mail: send to %s: %w", msg.To, err)
	}
	return nil
}

func (s *Sender) render(msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + s.from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}
