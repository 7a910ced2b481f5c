package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

// ErrSendFailed wraps every provider failure
var ErrSendFailed = errors.New("email delivery failed")

// Message is a rendered email
type Message struct {
	ToEmail  string
	ToName   string
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender delivers a rendered message through one provider
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// EmailService defines the interface for email operations
type EmailService interface {
	SendPasswordResetEmail(ctx context.Context, toEmail, toName, token string, validFor time.Duration) error
}

// Config configures the templating side of the service
type Config struct {
	AppName     string
	FrontendURL string
	Timeout     time.Duration
}

// EmailServiceImpl renders templates and hands them to a Sender
type EmailServiceImpl struct {
	config Config
	sender Sender
	logger zerolog.Logger
}

func NewEmailService(config Config, sender Sender, logger zerolog.Logger) *EmailServiceImpl {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &EmailServiceImpl{config: config, sender: sender, logger: logger}
}

var passwordResetTemplate = template.Must(template.New("password_reset").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Reset your {{.AppName}} password</h2>
    <p>Hello {{.Name}},</p>
    <p>We received a request to reset the password of your account. Click the button below to choose a new one.</p>
    <p style="text-align: center; margin: 30px 0;">
      <a href="{{.ResetURL}}" style="background-color: #1a73e8; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Reset password</a>
    </p>
    <p>Or paste this link into your browser:<br>{{.ResetURL}}</p>
    <p>The link expires in {{.ValidFor}}. If you did not ask for a reset you can ignore this email.</p>
    <p>Regards,<br>The {{.AppName}} team</p>
  </div>
</body>
</html>`))

type passwordResetData struct {
	AppName  string
	Name     string
	ResetURL string
	ValidFor string
}

// ResetURL builds the frontend link carrying token
func (s *EmailServiceImpl) ResetURL(token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", s.config.FrontendURL, url.QueryEscape(token))
}

// SendPasswordResetEmail renders the reset template and sends it within the configured timeout
func (s *EmailServiceImpl) SendPasswordResetEmail(ctx context.Context, toEmail, toName, token string, validFor time.Duration) error {
	resetURL := s.ResetURL(token)

	var body bytes.Buffer
	err := passwordResetTemplate.Execute(&body, passwordResetData{
		AppName:  s.config.AppName,
		Name:     toName,
		ResetURL: resetURL,
		ValidFor: humanDuration(validFor),
	})
	if err != nil {
		return fmt.Errorf("failed to render password reset email: %w", err)
	}

	msg := Message{
		ToEmail:  toEmail,
		ToName:   toName,
		Subject:  fmt.Sprintf("Reset your %s password", s.config.AppName),
		HTMLBody: body.String(),
		TextBody: fmt.Sprintf("Reset your password: %s (valid for %s)", resetURL, humanDuration(validFor)),
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error().Err(err).Str("to", toEmail).Msg("Failed to send password reset email")
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	s.logger.Info().Str("to", toEmail).Msg("Password reset email sent")
	return nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}

// LogSender writes messages to the log instead of delivering them. Used when no
// provider is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Warn().
		Str("to", msg.ToEmail).
		Str("subject", msg.Subject).
		Str("text", msg.TextBody).
		Msg("Email provider not configured, message logged instead of sent")
	return nil
}
