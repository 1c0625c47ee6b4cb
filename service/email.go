package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"pos/config"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// EmailService backoffice alert mail
type EmailService struct {
	cfg *config.EmailConfig
	log *zap.Logger
}

// NewEmailService creates the email service
func NewEmailService(cfg *config.EmailConfig, log *zap.Logger) *EmailService {
	if log == nil {
		log = zap.NewNop()
	}
	return &EmailService{cfg: cfg, log: log}
}

// AlertsEnabled reports whether alerts have somewhere to go
func (s *EmailService) AlertsEnabled() bool {
	return s != nil && s.cfg.Enabled && s.cfg.AlertTo != ""
}

// SendAlert mails a backoffice alert to the configured recipient
func (s *EmailService) SendAlert(title string, lines ...string) error {
	if !s.AlertsEnabled() {
		return fmt.Errorf("email alerts are not enabled")
	}
	subject := "[POS] " + title
	return s.sendEmail(s.cfg.AlertTo, subject, s.generateAlertBody(title, lines, time.Now()))
}

// Alert sends an alert in the background; failures are only logged
func (s *EmailService) Alert(title string, lines ...string) {
	if !s.AlertsEnabled() {
		return
	}
	go func() {
		if err := s.SendAlert(title, lines...); err != nil {
			s.log.Warn("send alert email failed", zap.String("title", title), zap.Error(err))
		}
	}()
}

// generateAlertBody renders the alert HTML
func (s *EmailService) generateAlertBody(title string, lines []string, at time.Time) string {
	var items strings.Builder
	for _, l := range lines {
		items.WriteString("<li>" + html.EscapeString(l) + "</li>")
	}
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; }
        .header { background: #1d4ed8; color: white; padding: 24px; }
        .header h1 { margin: 0; font-size: 20px; }
        .content { padding: 24px; color: #333; line-height: 1.6; }
        .footer { background: #f8f9fa; padding: 16px 24px; color: #6c757d; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>%s</h1></div>
        <div class="content"><ul>%s</ul></div>
        <div class="footer">Sent by the POS backoffice at %s</div>
    </div>
</body>
</html>
`, html.EscapeString(title), items.String(), at.Format("2006-01-02 15:04:05"))
}

// sendEmail sends one HTML message
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	return nil
}
