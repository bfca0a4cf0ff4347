package services

import (
	"context"
	"log/slog"
	"time"

	"venuebooking/internal/domain"
)

// notifier renders lifecycle templates and hands them to the sink. Every failure is
// logged and swallowed; a transition is never failed by its notifications.
type notifier struct {
	sink     domain.NotificationSink
	renderer domain.EmailTemplateRenderer
	settings domain.NotificationSettings
	logger   *slog.Logger
	timeout  time.Duration
}

func newNotifier(sink domain.NotificationSink, renderer domain.EmailTemplateRenderer, settings domain.NotificationSettings, logger *slog.Logger, timeout time.Duration) *notifier {
	return &notifier{sink: sink, renderer: renderer, settings: settings, logger: logger, timeout: timeout}
}

// requester notifies the request's own contact address.
func (n *notifier) requester(ctx context.Context, templateName string, r *domain.EventRequest) {
	n.send(ctx, []string{r.RequesterEmail}, templateName, r)
}

// admins notifies the configured admin recipients.
func (n *notifier) admins(ctx context.Context, templateName string, r *domain.EventRequest) {
	n.send(ctx, n.settings.AdminRecipients, templateName, r)
}

func (n *notifier) send(ctx context.Context, recipients []string, templateName string, r *domain.EventRequest) {
	if n == nil || n.sink == nil || n.renderer == nil || !n.settings.NotificationsEnabled {
		return
	}
	if len(recipients) == 0 {
		n.logger.DebugContext(ctx, "notification skipped, no recipients", "template", templateName, "request_id", r.ID)
		return
	}
	subject, body, err := n.renderer.Render(templateName, domain.NewRequestNotificationData(r))
	if err != nil {
		n.logger.ErrorContext(ctx, "render notification failed", "template", templateName, "request_id", r.ID, "err", err)
		return
	}
	// The transition is already committed; a caller that goes away must not cut the send short.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()
	if err := n.sink.Send(sendCtx, recipients, subject, body); err != nil {
		n.logger.WarnContext(ctx, "notification send failed", "template", templateName, "request_id", r.ID, "recipients", len(recipients), "err", err)
		return
	}
	n.logger.InfoContext(ctx, "notification sent", "template", templateName, "request_id", r.ID, "recipients", len(recipients))
}
