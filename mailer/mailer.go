// mailer.go - Outgoing email for password resets and address verification

package mailer

import (
	"errors"
	"log"
	"net/smtp"
	"strings"

	"go-user-backend/config"
)

var ErrNotConfigured = errors.New("smtp not configured")

// Mailer sends a plain-text message to one recipient.
type Mailer interface {
	Send(to, subject, body string) error
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTPMailer struct {
	host string
	port string
	user string
	pass string
	from string
	send SendFunc
}

func NewSMTPMailer(host, port, user, pass, from string) (*SMTPMailer, error) {
	if host == "" || port == "" || user == "" || pass == "" {
		return nil, ErrNotConfigured
	}
	if from == "" {
		from = user
	}
	return &SMTPMailer{host: host, port: port, user: user, pass: pass, from: from, send: smtp.SendMail}, nil
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return errors.New("mailer: header values must not contain line breaks")
	}

	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	return m.send(m.host+":"+m.port, auth, m.from, []string{to}, buildMessage(m.from, to, subject, body))
}

func buildMessage(from, to, subject, body string) []byte {
	msg := "From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n" +
		body + "\r\n"
	return []byte(msg)
}

// LogMailer prints messages instead of sending them. Used when SMTP is not configured.
type LogMailer struct{}

func (LogMailer) Send(to, subject, body string) error {
	log.Printf("mail to %s: %s\n%s", to, subject, body)
	return nil
}

// New returns an SMTP mailer when the host is set, otherwise a LogMailer.
func New(cfg *config.Config) (Mailer, error) {
	if cfg.SMTPHost == "" {
		log.Println("mailer: SMTP_HOST not set, logging outgoing mail")
		return LogMailer{}, nil
	}
	return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
}
