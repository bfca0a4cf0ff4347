package services

import (
	"regexp"
	"strings"
	"time"

	"venuebooking/internal/domain"
)

const (
	maxEmailLength = 254
	maxPhoneLength = 20
)

var (
	emailRegexp       = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	phoneRegexp       = regexp.MustCompile(`^(\+49|0)[1-9]\d{1,14}$`)
	unsafeCharsRegexp = regexp.MustCompile(`[<>'"]`)
	controlRegexp     = regexp.MustCompile(`[\x{0000}-\x{001F}\x{007F}-\x{009F}]`)
	spaceRegexp       = regexp.MustCompile(`\s+`)
)

// exactTimeLayouts are accepted for exact datetimes, most specific first. Layouts
// without a zone are read in the configured venue location.
var exactTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

func validEmail(email string) bool {
	return len(email) <= maxEmailLength && emailRegexp.MatchString(email)
}

func validPhone(phone string) bool {
	return len(phone) <= maxPhoneLength && phoneRegexp.MatchString(phone)
}

// sanitizeText strips markup characters and control characters and collapses whitespace.
func sanitizeText(s string) string {
	s = unsafeCharsRegexp.ReplaceAllString(s, "")
	s = controlRegexp.ReplaceAllString(s, " ")
	s = spaceRegexp.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func parseExactTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range exactTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// validateInitial checks and normalizes a first submission into a new EventRequest.
func validateInitial(in domain.InitialRequestInput) (*domain.EventRequest, error) {
	var problems []string

	email := normalizeEmail(in.RequesterEmail)
	if !validEmail(email) {
		problems = append(problems, "requester_email is not a valid email address")
	}
	var phone *string
	if p := strings.ReplaceAll(strings.TrimSpace(in.RequesterPhone), " ", ""); p != "" {
		if !validPhone(p) {
			problems = append(problems, "requester_phone is not a valid phone number")
		}
		phone = &p
	}
	title := sanitizeText(in.Title)
	if title == "" {
		problems = append(problems, "title is required")
	}
	name := sanitizeText(in.RequesterName)
	if name == "" {
		problems = append(problems, "requester_name is required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		problems = append(problems, "start_date and end_date are required")
	} else if in.EndDate.Before(in.StartDate) {
		problems = append(problems, "start_date must not be after end_date")
	}
	eventType := domain.EventTypeFor(in.IsPrivate)
	if in.EventType != "" {
		t, ok := domain.ParseEventType(in.EventType)
		if !ok {
			problems = append(problems, "event_type must be Private or Public")
		}
		eventType = t
	}
	if len(problems) > 0 {
		return nil, domain.NewValidationError(problems...)
	}

	return &domain.EventRequest{
		Title:          title,
		Description:    sanitizeText(in.Description),
		RequesterName:  name,
		RequesterEmail: email,
		RequesterPhone: phone,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		IsPrivate:      in.IsPrivate,
		EventType:      eventType,
		Stage:          domain.StageInitial,
	}, nil
}

// parsedDetails holds a validated details submission.
type parsedDetails struct {
	exactStart  time.Time
	exactEnd    time.Time
	keyHandover *time.Time
	keyReturn   *time.Time
	contractRef string
	location    *string
	maxPart     *int
	notes       *string
}

func validateDetails(d domain.DetailsInput, loc *time.Location) (*parsedDetails, error) {
	var problems []string
	out := &parsedDetails{}

	start, okStart := parseExactTime(d.ExactStart, loc)
	if !okStart {
		problems = append(problems, "exact_start must be a valid datetime")
	}
	end, okEnd := parseExactTime(d.ExactEnd, loc)
	if !okEnd {
		problems = append(problems, "exact_end must be a valid datetime")
	}
	if okStart && okEnd && !start.Before(end) {
		problems = append(problems, "exact_start must be before exact_end")
	}
	out.exactStart, out.exactEnd = start, end

	if strings.TrimSpace(d.KeyHandoverAt) != "" {
		t, ok := parseExactTime(d.KeyHandoverAt, loc)
		if !ok {
			problems = append(problems, "key_handover_at must be a valid datetime")
		} else {
			out.keyHandover = &t
		}
	}
	if strings.TrimSpace(d.KeyReturnAt) != "" {
		t, ok := parseExactTime(d.KeyReturnAt, loc)
		if !ok {
			problems = append(problems, "key_return_at must be a valid datetime")
		} else {
			out.keyReturn = &t
		}
	}
	if out.keyHandover != nil && out.keyReturn != nil && out.keyReturn.Before(*out.keyHandover) {
		problems = append(problems, "key_return_at must not be before key_handover_at")
	}

	out.contractRef = strings.TrimSpace(d.SignedContractRef)
	if out.contractRef == "" {
		problems = append(problems, "signed_contract_ref is required")
	}
	if d.MaxParticipants != nil && *d.MaxParticipants < 1 {
		problems = append(problems, "max_participants must be positive")
	}
	if len(problems) > 0 {
		return nil, domain.NewValidationError(problems...)
	}

	if place := sanitizeText(d.Location); place != "" {
		out.location = &place
	}
	if notes := sanitizeText(d.AdditionalNotes); notes != "" {
		out.notes = &notes
	}
	out.maxPart = d.MaxParticipants
	return out, nil
}
