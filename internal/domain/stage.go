package domain

import "fmt"

// Stage is the lifecycle stage of an EventRequest. The string values are the
// persisted vocabulary and must not change.
type Stage string

const (
	StageInitial          Stage = "initial"
	StageInitialAccepted  Stage = "initial_accepted"
	StageDetailsSubmitted Stage = "details_submitted"
	StageFinalAccepted    Stage = "final_accepted"
	StageRejected         Stage = "rejected"
	StageCancelled        Stage = "cancelled"
)

// AllStages lists every stage in lifecycle order.
var AllStages = []Stage{
	StageInitial,
	StageInitialAccepted,
	StageDetailsSubmitted,
	StageFinalAccepted,
	StageRejected,
	StageCancelled,
}

// HeldStages are the stages during which a request keeps a TemporaryBlock.
var HeldStages = []Stage{StageInitialAccepted, StageDetailsSubmitted}

// ParseStage returns the Stage for s, or false if s is not a known stage.
func ParseStage(s string) (Stage, bool) {
	switch Stage(s) {
	case StageInitial, StageInitialAccepted, StageDetailsSubmitted, StageFinalAccepted, StageRejected, StageCancelled:
		return Stage(s), true
	default:
		return "", false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Stage) IsTerminal() bool {
	return s == StageFinalAccepted || s == StageRejected || s == StageCancelled
}

// HoldsBlock reports whether a request in this stage owns a TemporaryBlock.
func (s Stage) HoldsBlock() bool {
	return s == StageInitialAccepted || s == StageDetailsSubmitted
}

// HasExactTimes reports whether exactStart/exactEnd must be populated in this stage.
func (s Stage) HasExactTimes() bool {
	return s == StageDetailsSubmitted || s == StageFinalAccepted
}

// Status derives the legacy status mirror from the stage.
func (s Stage) Status() Status {
	switch s {
	case StageFinalAccepted:
		return StatusApproved
	case StageRejected:
		return StatusRejected
	case StageCancelled:
		return StatusCancelled
	default:
		return StatusPending
	}
}

// Status is the legacy/display status. It is always derived from Stage.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Action names a lifecycle operation.
type Action string

const (
	ActionSubmitInitial Action = "submit_initial"
	ActionAcceptInitial Action = "accept_initial"
	ActionReject        Action = "reject"
	ActionCancel        Action = "cancel"
	ActionSubmitDetails Action = "submit_details"
	ActionFinalAccept   Action = "final_accept"
)

// transitions maps an action to the stages it may be applied from and the stage it produces.
var transitions = map[Action]struct {
	from []Stage
	to   Stage
}{
	ActionAcceptInitial: {from: []Stage{StageInitial}, to: StageInitialAccepted},
	ActionReject:        {from: []Stage{StageInitial, StageInitialAccepted, StageDetailsSubmitted}, to: StageRejected},
	ActionCancel:        {from: []Stage{StageInitial, StageInitialAccepted, StageDetailsSubmitted}, to: StageCancelled},
	ActionSubmitDetails: {from: []Stage{StageInitialAccepted}, to: StageDetailsSubmitted},
	ActionFinalAccept:   {from: []Stage{StageDetailsSubmitted}, to: StageFinalAccepted},
}

// NextStage returns the stage reached by applying action to a request in stage from.
// It returns a *StageError if the action is not legal from that stage.
func NextStage(requestID string, from Stage, action Action) (Stage, error) {
	t, ok := transitions[action]
	if !ok {
		return "", fmt.Errorf("unknown action %q", action)
	}
	for _, s := range t.from {
		if s == from {
			return t.to, nil
		}
	}
	return "", &StageError{RequestID: requestID, Stage: from, Action: action}
}

// EventType is the public/private classification of a booking.
type EventType string

const (
	EventTypePrivate EventType = "Private"
	EventTypePublic  EventType = "Public"
)

// ParseEventType accepts the canonical values plus the German labels used by stored data.
func ParseEventType(s string) (EventType, bool) {
	switch s {
	case string(EventTypePrivate), "Privates Event":
		return EventTypePrivate, true
	case string(EventTypePublic), "Öffentliches Event":
		return EventTypePublic, true
	default:
		return "", false
	}
}

// EventTypeFor returns the default EventType for the privacy flag.
func EventTypeFor(isPrivate bool) EventType {
	if isPrivate {
		return EventTypePrivate
	}
	return EventTypePublic
}
