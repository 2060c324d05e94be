package mailer

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendApiKeyRotated(toEmail, digest string, at time.Time) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	appURL      string
}

// NewEmailService returns a gomail-backed sender, or a no-op sender when no
// SMTP host is configured.
func NewEmailService(host string, port int, username, password, senderEmail, appURL string) IEmailService {
	if host == "" {
		return noopEmailService{}
	}
	return &emailService{
		dialer:      gomail.NewDialer(host, port, username, password),
		senderEmail: senderEmail,
		appURL:      appURL,
	}
}

func (s *emailService) SendApiKeyRotated(toEmail, digest string, at time.Time) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Your QueryMate API key was regenerated")

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Your API key was regenerated</h2>
			<p>A new widget API key (<code>qm_%s_…</code>) was issued on %s.</p>
			<p>The previous key stopped working immediately. Update the <code>data-api-key</code> attribute of your embed snippet.</p>
			<p><a href="%s/integration">Open the integration page</a></p>
			<p>If you didn't do this, log in and regenerate the key again.</p>
		</div>
	`, digest, at.UTC().Format(time.RFC1123), s.appURL)

	m.SetBody("text/html", body)
	return s.dialer.DialAndSend(m)
}

type noopEmailService struct{}

func (noopEmailService) SendApiKeyRotated(string, string, time.Time) error { return nil }
