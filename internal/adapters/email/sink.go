package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"venuebooking/internal/domain"
)

type mailSink struct {
	mailer domain.Mailer
	logger *slog.Logger
}

// NewMailSink returns a NotificationSink that mails each recipient separately, with the
// plain-text body and an HTML rendition of it.
func NewMailSink(mailer domain.Mailer, logger *slog.Logger) domain.NotificationSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &mailSink{mailer: mailer, logger: logger}
}

func (s *mailSink) Send(ctx context.Context, recipients []string, subject, body string) error {
	html, err := renderHTML(subject, body)
	if err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	var errs []error
	for _, to := range recipients {
		if err := s.mailer.Send(ctx, to, subject, html, body); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", to, err))
			continue
		}
		s.logger.DebugContext(ctx, "notification mailed", "to", to, "subject", subject)
	}
	return errors.Join(errs...)
}
