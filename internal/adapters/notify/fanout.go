package notify

import (
	"context"
	"errors"

	"venuebooking/internal/domain"
)

type fanout []domain.NotificationSink

// NewFanout returns a sink that forwards every notification to each non-nil sink. All
// sinks are tried; their errors are joined.
func NewFanout(sinks ...domain.NotificationSink) domain.NotificationSink {
	f := make(fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			f = append(f, s)
		}
	}
	if len(f) == 1 {
		return f[0]
	}
	return f
}

func (f fanout) Send(ctx context.Context, recipients []string, subject, body string) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(ctx, recipients, subject, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
