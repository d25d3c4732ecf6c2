package config

import (
	"crypto/tls"
	"fmt"
	"html"

	mail "github.com/go-mail/mail/v2"
)

// Mailer sends notification e-mails over SMTP with mandatory STARTTLS.
type Mailer struct {
	from string
	send func(m *mail.Message) error
}

func NewMailer(cfg *Config) *Mailer {
	d := mail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.SMTPHost,
		InsecureSkipVerify: cfg.SMTPSkipTLSVerify,
	}
	return &Mailer{from: cfg.SMTPFrom, send: func(m *mail.Message) error { return d.DialAndSend(m) }}
}

func (m *Mailer) Send(to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("mail %q: no recipient", subject)
	}
	return m.send(m.message(to, subject, body))
}

func (m *Mailer) message(to, subject, body string) *mail.Message {
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	msg.AddAlternative("text/html", "<p>"+html.EscapeString(body)+"</p>")
	return msg
}
