package email

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// SendGridSender delivers mail through the SendGrid v3 API
type SendGridSender struct {
	key  string
	from *sgmail.Email
	call func(rest.Request) (*rest.Response, error)
}

func NewSendGridSender(apiKey, fromName, fromEmail string) *SendGridSender {
	return &SendGridSender{
		key:  apiKey,
		from: sgmail.NewEmail(fromName, fromEmail),
		call: sendgrid.API,
	}
}

func (s *SendGridSender) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", msg.TextBody),
		sgmail.NewContent("text/html", msg.HTMLBody),
	)
	return m
}

// Send posts the message. The SDK call has no context parameter, so it runs on
// its own goroutine and ctx bounds how long the caller waits.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	req := sendgrid.GetRequest(s.key, sendGridEndpoint, sendGridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	type result struct {
		res *rest.Response
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := s.call(req)
		done <- result{res, err}
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("sendgrid request abandoned: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return fmt.Errorf("sendgrid request failed: %w", r.err)
		}
		if r.res.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("sendgrid returned status %d: %s", r.res.StatusCode, r.res.Body)
		}
		return nil
	}
}
