// Package mail отправляет письма через SMTP. Без настроенного SMTP
// используется заглушка, которая пишет письмо в лог.
package mail

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/propelhq/propel-backend/internal/logger"
)

// Mailer отправляет письма.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer отправляет письма через SMTP-сервер.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	from     string
}

// NewSMTPMailer создаёт SMTP-отправитель.
func NewSMTPMailer(host, port, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send отправляет письмо получателю.
func (m *SMTPMailer) Send(to, subject, body string) error {
	msg := buildMessage(m.from, to, subject, body)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("mail: отправка через %s: %w", addr, err)
	}
	return nil
}

// LogMailer пишет письма в лог вместо отправки. Используется в окружениях
// без SMTP: локальная разработка и тесты.
type LogMailer struct{}

// NewLogMailer создаёт лог-отправитель.
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// Send пишет письмо в лог.
func (m *LogMailer) Send(to, subject, body string) error {
	if logger.Log != nil {
		logger.Log.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).Info("mail: SMTP не настроен, письмо записано в лог")
		logger.Log.Debug(body)
	}
	return nil
}

// buildMessage собирает RFC 5322 сообщение с plain-text телом.
func buildMessage(from, to, subject, body string) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")
	return []byte(sb.String())
}
