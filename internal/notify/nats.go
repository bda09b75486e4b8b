package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// publisher is the subset of *nats.Conn used by NATSMailer.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSMailer hands messages to a mail relay listening on a NATS subject. The
// payload is the JSON encoding of Message.
type NATSMailer struct {
	Subject string
	pub     publisher
	conn    *nats.Conn
}

// NewNATSMailer connects to url and publishes on subject.
func NewNATSMailer(url, subject string) (*NATSMailer, error) {
	nc, err := nats.Connect(url, nats.Name("claims-notify"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSMailer{Subject: subject, pub: nc, conn: nc}, nil
}

// Send implements Mailer.
func (n *NATSMailer) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode mail: %w", err)
	}
	return n.pub.Publish(n.Subject, data)
}

// Close drains the connection, flushing buffered publishes.
func (n *NATSMailer) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}
