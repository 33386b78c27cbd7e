package mailer

import (
	"bytes"
	"context"
	"html/template"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/pkg/errors"

	"github.com/adi27online/meruglobalconnect/logger"
)

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Mailgun delivers mail through the Mailgun HTTP API.
type Mailgun struct {
	client mailgun.Mailgun
	from   string
}

func NewMailgun(domain, apiKey, from string) *Mailgun {
	return &Mailgun{client: mailgun.NewMailgun(domain, apiKey), from: from}
}

func (m *Mailgun) Send(ctx context.Context, msg Message) error {
	message := m.client.NewMessage(m.from, msg.Subject, msg.Text, msg.To)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}

	_, id, err := m.client.Send(ctx, message)
	if err != nil {
		return errors.Wrap(err, "mailgun send")
	}
	logger.Info().Str("to", msg.To).Str("id", id).Msg("email sent")
	return nil
}

// LogMailer records that a message was dropped. Used when no provider is
// configured. Bodies carry live verification links and are never logged.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) error {
	logger.Warn().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Msg("email not sent: no mail provider configured")
	return nil
}

var verificationTemplate = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #222;">
    <h2>Welcome to Meru Global Connect, {{.Name}}!</h2>
    <p>Please confirm your email address to activate your account.</p>
    <p><a href="{{.Link}}" style="background:#1f6feb;color:#fff;padding:10px 18px;border-radius:4px;text-decoration:none;">Verify email</a></p>
    <p>This link expires in one hour. If you did not create an account you can ignore this email.</p>
  </body>
</html>`))

// VerificationEmail renders the account verification message.
func VerificationEmail(to, name, link string) (Message, error) {
	var html bytes.Buffer
	if err := verificationTemplate.Execute(&html, struct{ Name, Link string }{name, link}); err != nil {
		return Message{}, errors.Wrap(err, "render verification email")
	}
	return Message{
		To:      to,
		Subject: "Verify your email for Meru Global Connect",
		Text:    "Hi " + name + ",\n\nVerify your email address by opening this link within one hour:\n" + link + "\n",
		HTML:    html.String(),
	}, nil
}
