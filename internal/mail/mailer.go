// Package mail delivers transactional email for Quill over SMTP.
package mail

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

// Config holds SMTP configuration.
type Config struct {
	// Enabled determines whether mail delivery is active. When disabled,
	// Send calls are no-ops and callers fall back to their own delivery
	// (typically logging for local development).
	Enabled bool

	// Host is the SMTP server hostname.
	Host string

	// Port is the SMTP server port (typically 25, 465, or 587).
	Port int

	// User is the username for SMTP authentication (optional).
	User string

	// Password is the password for SMTP authentication (optional).
	Password string

	// FromAddress is the sender email address.
	FromAddress string

	// FromName is the sender display name.
	FromName string

	// UseTLS enables a direct TLS connection (port 465).
	UseTLS bool

	// UseSTARTTLS enables a STARTTLS upgrade (port 587).
	UseSTARTTLS bool

	// InsecureSkipVerify skips TLS certificate verification (for testing only).
	InsecureSkipVerify bool
}

// Mailer sends email through a configured SMTP server.
type Mailer struct {
	config Config
}

// NewMailer creates a new Mailer with the given configuration.
func NewMailer(config Config) *Mailer {
	return &Mailer{config: config}
}

// IsEnabled returns true when delivery is enabled and configured.
func (m *Mailer) IsEnabled() bool {
	return m.config.Enabled &&
		m.config.Host != "" &&
		m.config.FromAddress != ""
}

// verificationHTML is the HTML body for verification-code email.
var verificationHTML = template.Must(template.New("verify-mail").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Verify your email</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .code {
            font-size: 32px;
            font-weight: bold;
            letter-spacing: 6px;
            text-align: center;
            background-color: #f9fafb;
            border: 1px solid #e5e7eb;
            border-radius: 8px;
            padding: 20px;
            margin: 20px 0;
        }
        .footer {
            font-size: 12px;
            color: #9ca3af;
            margin-top: 20px;
        }
    </style>
</head>
<body>
    <p>Hi {{.Username}},</p>
    <p>Enter this code to verify your email address:</p>
    <div class="code">{{.Code}}</div>
    <p>The code expires in {{.ExpiresIn}}.</p>
    <div class="footer">
        <p>If you did not request this, you can ignore this email.</p>
    </div>
</body>
</html>`))

type verificationData struct {
	Username  string
	Code      string
	ExpiresIn string
}

// SendVerificationCode sends a verification code to the given address.
func (m *Mailer) SendVerificationCode(to, username, code, expiresIn string) error {
	if !m.IsEnabled() {
		return nil
	}

	data := verificationData{Username: username, Code: code, ExpiresIn: expiresIn}

	var html bytes.Buffer
	if err := verificationHTML.Execute(&html, data); err != nil {
		return fmt.Errorf("building email body: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Hi %s,\n\n", username)
	fmt.Fprintf(&text, "Enter this code to verify your email address: %s\n\n", code)
	fmt.Fprintf(&text, "The code expires in %s.\n\n", expiresIn)
	text.WriteString("If you did not request this, you can ignore this email.\n")

	msg := m.buildMessage(to, "Your Quill verification code", html.String(), text.String())
	return m.send(to, msg)
}

// buildMessage assembles a multipart/alternative message with text and HTML
// parts.
func (m *Mailer) buildMessage(to, subject, htmlBody, textBody string) []byte {
	var msg bytes.Buffer

	fromHeader := m.config.FromAddress
	if m.config.FromName != "" {
		fromHeader = fmt.Sprintf("%s <%s>", m.config.FromName, m.config.FromAddress)
	}
	fmt.Fprintf(&msg, "From: %s\r\n", fromHeader)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")

	boundary := "boundary-quill-mail"
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=%s\r\n", boundary)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(textBody)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)
	msg.WriteString("\r\n")

	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return msg.Bytes()
}

// send dispatches the message using the configured connection type.
func (m *Mailer) send(to string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)

	var auth smtp.Auth
	if m.config.User != "" && m.config.Password != "" {
		auth = smtp.PlainAuth("", m.config.User, m.config.Password, m.config.Host)
	}

	tlsConfig := &tls.Config{
		ServerName:         m.config.Host,
		InsecureSkipVerify: m.config.InsecureSkipVerify,
	}

	if m.config.UseTLS {
		return m.sendWithTLS(addr, auth, tlsConfig, to, msg)
	}
	if m.config.UseSTARTTLS {
		return m.sendWithSTARTTLS(addr, auth, tlsConfig, to, msg)
	}

	return smtp.SendMail(addr, auth, m.config.FromAddress, []string{to}, msg)
}

// sendWithTLS uses a direct TLS connection (port 465).
func (m *Mailer) sendWithTLS(addr string, auth smtp.Auth, tlsConfig *tls.Config, to string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	return m.sendWithClient(client, auth, to, msg)
}

// sendWithSTARTTLS upgrades a plain connection (port 587).
func (m *Mailer) sendWithSTARTTLS(addr string, auth smtp.Auth, tlsConfig *tls.Config, to string, msg []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("SMTP dial: %w", err)
	}
	defer client.Close()

	if err := client.Hello("localhost"); err != nil {
		return fmt.Errorf("EHLO: %w", err)
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("STARTTLS: %w", err)
		}
	}

	return m.sendWithClient(client, auth, to, msg)
}

// sendWithClient runs the SMTP conversation on an established client.
func (m *Mailer) sendWithClient(client *smtp.Client, auth smtp.Auth, to string, msg []byte) error {
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth: %w", err)
		}
	}

	if err := client.Mail(m.config.FromAddress); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO %s: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data writer: %w", err)
	}

	return client.Quit()
}
