package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/cargohitch/server/internal/config"
)

// Mailer delivers account emails. Handlers depend on the interface so tests
// can stub delivery, and so a send failure never fails the request that
// triggered it.
type Mailer interface {
	SendVerification(to, link string) error
	SendPasswordReset(to, link string) error
}

// SMTPMailer sends through a plain SMTP relay with AUTH PLAIN.
type SMTPMailer struct {
	cfg config.SMTPConfig
}

func NewSMTP(cfg config.SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) SendVerification(to, link string) error {
	body := fmt.Sprintf(
		"Welcome to CargoHitch!\r\n\r\n"+
			"Please click the link below to verify your email address:\r\n%s\r\n\r\n"+
			"This link will expire in 48 hours.\r\n\r\n"+
			"If you didn't create this account, please ignore this email.\r\n",
		link,
	)
	return m.send(to, "Verify Your Email - CargoHitch", body)
}

func (m *SMTPMailer) SendPasswordReset(to, link string) error {
	body := fmt.Sprintf(
		"You requested a password reset for your CargoHitch account.\r\n\r\n"+
			"Click the link below to reset your password:\r\n%s\r\n\r\n"+
			"This link will expire in 1 hour for security reasons.\r\n\r\n"+
			"If you didn't request this reset, please ignore this email.\r\n",
		link,
	)
	return m.send(to, "Reset Your Password - CargoHitch", body)
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.cfg.From, to, subject, body)

	var a smtp.Auth
	if m.cfg.Username != "" {
		a = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := m.cfg.Host + ":" + m.cfg.Port
	if err := smtp.SendMail(addr, a, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
