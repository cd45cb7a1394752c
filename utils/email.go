// utils/email.go
package utils

import (
	"fmt"
	"net/smtp"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// EmailService sends HTML mail over SMTP with PLAIN auth.
type EmailService struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailService(cfg SMTPConfig) *EmailService {
	return &EmailService{cfg: cfg, send: smtp.SendMail}
}

func (s *EmailService) SendEmail(to, subject, body string) error {
	if s.cfg.Host == "" || s.cfg.User == "" {
		return fmt.Errorf("SMTP not configured")
	}

	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	msg := []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/html; charset=utf-8\r\n"+
		"\r\n"+
		"%s\r\n", s.cfg.From, to, subject, body))

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	return s.send(addr, auth, s.cfg.From, []string{to}, msg)
}
