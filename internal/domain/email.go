package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending a single email (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// NotificationSink delivers a rendered message to recipients. Callers treat it as
// fire-and-forget: a returned error is logged, never propagated.
type NotificationSink interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}

// EmailTemplateRenderer renders notification content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, body string, err error)
}

// Notification template names.
const (
	TemplateRequestReceived       = "request_received"
	TemplateRequestSubmittedAdmin = "request_submitted_admin"
	TemplateInitialAccepted       = "initial_accepted"
	TemplateDetailsSubmittedAdmin = "details_submitted_admin"
	TemplateRequestRejected       = "request_rejected"
	TemplateFinalApproved         = "final_approved"
	TemplateFinalAcceptedAdmin    = "final_accepted_admin"
	TemplateRequestCancelled      = "request_cancelled"
)

// RequestNotificationData is the template data for every lifecycle notification.
type RequestNotificationData struct {
	RequestID       string
	Title           string
	RequesterName   string
	RequesterEmail  string
	Stage           Stage
	StartDate       time.Time
	EndDate         time.Time
	ExactStart      *time.Time
	ExactEnd        *time.Time
	AdminNotes      string
	RejectionReason string
}

// NewRequestNotificationData copies the notification-relevant fields of r.
func NewRequestNotificationData(r *EventRequest) *RequestNotificationData {
	d := &RequestNotificationData{
		RequestID:      r.ID,
		Title:          r.Title,
		RequesterName:  r.RequesterName,
		RequesterEmail: r.RequesterEmail,
		Stage:          r.Stage,
		StartDate:      r.StartDate,
		EndDate:        r.EndDate,
		ExactStart:     r.ExactStart,
		ExactEnd:       r.ExactEnd,
	}
	if r.AdminNotes != nil {
		d.AdminNotes = *r.AdminNotes
	}
	if r.RejectionReason != nil {
		d.RejectionReason = *r.RejectionReason
	}
	return d
}

// NotificationSettings replaces the admin settings the UI used to keep in browser storage.
type NotificationSettings struct {
	NotificationsEnabled bool
	AdminRecipients      []string
}
