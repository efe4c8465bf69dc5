package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/resend/resend-go/v2"

	"github.com/kindred-wellness/kindred/internal/config"
	"github.com/kindred-wellness/kindred/internal/logging"
)

// Email represents an email to be sent
type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// EmailProvider is the interface for sending emails
type EmailProvider interface {
	Send(ctx context.Context, email *Email) error
}

// EmailService sends invite links by email.
type EmailService struct {
	provider    EmailProvider
	fromAddress string
	fromName    string
}

// NewEmailService creates a new email service based on configuration
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	var provider EmailProvider

	switch cfg.Provider {
	case "resend":
		provider = NewResendProvider(cfg.ResendAPIKey)
	case "smtp":
		provider = NewSMTPProvider(cfg.SMTPHost, cfg.SMTPPort)
	default:
		provider = NewConsoleProvider()
	}

	return &EmailService{
		provider:    provider,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
	}
}

var inviteEmailTemplate = template.Must(template.New("invite").Parse(`
<p>{{.InviterName}} wants to connect with you on Kindred.</p>
<p><a href="{{.InviteURL}}">Accept the invite</a></p>
<p>This link is personal to the sender and stops working once it expires or
runs out of uses.</p>
`))

// SendInviteEmail emails a shareable invite link to a recipient.
func (s *EmailService) SendInviteEmail(ctx context.Context, toEmail, inviterName, inviteURL string) error {
	var html bytes.Buffer
	err := inviteEmailTemplate.Execute(&html, map[string]string{
		"InviterName": inviterName,
		"InviteURL":   inviteURL,
	})
	if err != nil {
		return fmt.Errorf("rendering invite email: %w", err)
	}

	email := &Email{
		From:    fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress),
		To:      toEmail,
		Subject: fmt.Sprintf("%s invited you to Kindred", inviterName),
		HTML:    html.String(),
		Text:    fmt.Sprintf("%s wants to connect with you on Kindred. Accept the invite: %s", inviterName, inviteURL),
	}

	if err := s.provider.Send(ctx, email); err != nil {
		return Transientf("sending invite email: %w", err)
	}
	return nil
}

// ConsoleProvider logs emails instead of sending them. Used in development.
type ConsoleProvider struct{}

func NewConsoleProvider() *ConsoleProvider {
	return &ConsoleProvider{}
}

func (p *ConsoleProvider) Send(ctx context.Context, email *Email) error {
	logging.Info("Email (console provider)", map[string]interface{}{
		"to":      email.To,
		"subject": email.Subject,
		"text":    email.Text,
	})
	return nil
}

// SMTPProvider delivers through a plain SMTP relay (Mailpit in local dev).
type SMTPProvider struct {
	host string
	port int
}

func NewSMTPProvider(host string, port int) *SMTPProvider {
	return &SMTPProvider{host: host, port: port}
}

func (p *SMTPProvider) Send(ctx context.Context, email *Email) error {
	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		email.From, email.To, email.Subject, email.HTML,
	)
	if err := smtp.SendMail(addr, nil, "noreply@localhost", []string{email.To}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// ResendProvider delivers through the Resend API.
type ResendProvider struct {
	client *resend.Client
}

func NewResendProvider(apiKey string) *ResendProvider {
	return &ResendProvider{client: resend.NewClient(apiKey)}
}

func (p *ResendProvider) Send(ctx context.Context, email *Email) error {
	params := &resend.SendEmailRequest{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}
	if _, err := p.client.Emails.Send(params); err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	return nil
}
