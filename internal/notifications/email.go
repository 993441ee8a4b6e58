// Package notifications provides email delivery and in-app notifications.
// Both are best-effort collaborators: callers log and discard failures so a
// delivery problem never fails the primary mutation.
package notifications

import (
	"bytes"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/ironbeam/crewdeck/internal/config"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

// EmailService handles sending email notifications over SMTP.
type EmailService struct {
	config    config.SMTPSettings
	templates *template.Template
	logger    zerolog.Logger
}

// NewEmailService creates a new email service.
func NewEmailService(cfg config.SMTPSettings, logger zerolog.Logger) (*EmailService, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("smtp host, port and from address are required")
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}

	return &EmailService{
		config:    cfg,
		templates: tmpl,
		logger:    logger.With().Str("component", "email_service").Logger(),
	}, nil
}

// InviteData holds data for the invitation email template.
type InviteData struct {
	OrgName     string
	InviterName string
	Role        string
	InviteLink  string
	ExpiresAt   time.Time
}

// TimesheetDecisionData holds data for the timesheet decision email template.
type TimesheetDecisionData struct {
	OrgName      string
	PersonName   string
	WorkDate     time.Time
	Hours        float64
	Approved     bool
	DecisionNote string
}

// SendInvite sends an invitation email.
func (s *EmailService) SendInvite(to string, data InviteData) error {
	subject := fmt.Sprintf("You're invited to join %s on Crewdeck", data.OrgName)
	return s.sendTemplate([]string{to}, subject, "invite.html", data)
}

// SendTimesheetDecision sends a timesheet approval/rejection email.
func (s *EmailService) SendTimesheetDecision(to string, data TimesheetDecisionData) error {
	verdict := "approved"
	if !data.Approved {
		verdict = "rejected"
	}
	subject := fmt.Sprintf("Timesheet %s: %s", verdict, data.WorkDate.Format("2006-01-02"))
	return s.sendTemplate([]string{to}, subject, "timesheet_decision.html", data)
}

// sendTemplate renders a template and sends the email.
func (s *EmailService) sendTemplate(to []string, subject, templateName string, data any) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("execute template %s: %w", templateName, err)
	}
	return s.send(to, subject, body.String())
}

// send sends an email with the given subject and HTML body.
func (s *EmailService) send(to []string, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	msg := s.buildMessage(to, subject, htmlBody)

	var err error
	if s.config.TLS {
		err = s.sendTLS(addr, to, msg)
	} else {
		err = s.sendPlain(addr, to, msg)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("subject", subject).Msg("failed to send email")
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info().Strs("to", to).Str("subject", subject).Msg("email sent")
	return nil
}

// buildMessage constructs the email message with headers.
func (s *EmailService) buildMessage(to []string, subject, htmlBody string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", s.config.From)
	fmt.Fprintf(&buf, "To: %s\r\n", to[0])
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(htmlBody)
	return buf.Bytes()
}

// sendPlain sends email without TLS (for port 25 or trusted networks).
func (s *EmailService) sendPlain(addr string, to []string, msg []byte) error {
	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}
	return smtp.SendMail(addr, auth, s.config.From, to, msg)
}

// sendTLS sends email over implicit TLS (port 465).
func (s *EmailService) sendTLS(addr string, to []string, msg []byte) error {
	tlsConfig := &tls.Config{
		ServerName: s.config.Host,
		MinVersion: tls.VersionTLS12,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("tls dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	defer client.Close()

	if s.config.Username != "" {
		auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err = client.Mail(s.config.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, recipient := range to {
		if err = client.Rcpt(recipient); err != nil {
			return fmt.Errorf("smtp rcpt to %s: %w", recipient, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}

	return client.Quit()
}
