package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"venuebooking/internal/domain"
)

// SubjectNotifySend is the default subject notification messages are published on.
const SubjectNotifySend = "notify.send"

// Message is the JSON payload published for each recipient.
type Message struct {
	Type      string    `json:"type"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// publisher is the subset of *nats.Conn the sink needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes notifications on a NATS subject for an out-of-process delivery worker.
type NATSSink struct {
	conn    *nats.Conn
	pub     publisher
	subject string
	logger  *slog.Logger
	now     func() time.Time
}

// NewNATSSink connects to url and returns a sink publishing on subject
// (SubjectNotifySend when empty).
func NewNATSSink(url, subject string, logger *slog.Logger) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("venuebooking"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	s := newNATSSink(conn, subject, logger)
	s.conn = conn
	return s, nil
}

func newNATSSink(pub publisher, subject string, logger *slog.Logger) *NATSSink {
	if subject == "" {
		subject = SubjectNotifySend
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSSink{pub: pub, subject: subject, logger: logger, now: time.Now}
}

// Send publishes one message per recipient.
func (s *NATSSink) Send(ctx context.Context, recipients []string, subject, body string) error {
	var errs []error
	for _, to := range recipients {
		payload, err := json.Marshal(Message{
			Type:      "email",
			Recipient: to,
			Subject:   subject,
			Body:      body,
			CreatedAt: s.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal notification: %w", err)
		}
		s.logger.DebugContext(ctx, "publishing notification", "subject", s.subject, "recipient", to)
		if err := s.pub.Publish(s.subject, payload); err != nil {
			errs = append(errs, fmt.Errorf("publish to %s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}

// Close drains the underlying connection.
func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}

var _ domain.NotificationSink = (*NATSSink)(nil)
