package notify

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Attachment is a file carried by an outbound message.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// Message is a rendered mail ready for a transport.
type Message struct {
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Mailer delivers one message. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// LogMailer writes messages to the log instead of sending them. It is the
// default transport for local development.
type LogMailer struct {
	Log zerolog.Logger
}

// Send implements Mailer.
func (l LogMailer) Send(_ context.Context, m Message) error {
	l.Log.Info().
		Str("to", m.To).
		Str("subject", m.Subject).
		Int("attachments", len(m.Attachments)).
		Msg("mail (log transport)")
	return nil
}

// Override redirects every message to a single mailbox and prefixes the
// subject with the intended recipient. An empty To disables the redirect.
type Override struct {
	Next Mailer
	To   string
}

// Send implements Mailer.
func (o Override) Send(ctx context.Context, m Message) error {
	if strings.TrimSpace(o.To) == "" {
		return o.Next.Send(ctx, m)
	}
	m.Subject = "[to " + m.To + "] " + m.Subject
	m.To = strings.TrimSpace(o.To)
	return o.Next.Send(ctx, m)
}
