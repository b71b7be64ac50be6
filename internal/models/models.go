// Package models defines the core data structures for SMTG.
//
// It includes the usage, nudge, and focus-session record types shared across
// the analyzer, insights, flow, store, and api modules. All records are
// immutable, append-only facts; derived results (risk levels, scores) are
// never persisted by the engine itself.
package models

import (
	"errors"
	"time"
)

// SessionType classifies the activity of a usage session, not the app.
type SessionType string

const (
	// SessionTypeScroll marks passive feed-scrolling activity.
	SessionTypeScroll SessionType = "scroll"
	// SessionTypeProductive marks deliberate work or study activity.
	SessionTypeProductive SessionType = "productive"
	// SessionTypeFocus marks engine-generated focus blocks.
	SessionTypeFocus SessionType = "focus"
	// SessionTypeOther marks activity that fits no other category.
	SessionTypeOther SessionType = "other"
)

// TriggerReason identifies why a nudge was offered.
type TriggerReason string

const (
	// TriggerScrollThreshold fires after contiguous scroll usage passes the configured threshold.
	TriggerScrollThreshold TriggerReason = "scroll_threshold"
	// TriggerLateNight fires on usage inside the late-night window.
	TriggerLateNight TriggerReason = "late_night"
	// TriggerManual marks a nudge requested explicitly by the user.
	TriggerManual TriggerReason = "manual"
)

// NudgeResponse is the user's answer to a nudge. A nudge starts pending and
// transitions exactly once to one of the terminal responses.
type NudgeResponse string

const (
	// ResponsePending means the nudge is awaiting a user decision.
	ResponsePending NudgeResponse = "pending"
	// ResponseStartFocus means the user accepted the nudge into a focus session.
	ResponseStartFocus NudgeResponse = "start_focus"
	// ResponseSnooze means the user deferred the nudge.
	ResponseSnooze NudgeResponse = "snooze"
	// ResponseDismiss means the user declined the nudge.
	ResponseDismiss NudgeResponse = "dismiss"
)

// Validation constants for record fields.
const (
	// FocusAppName is the reserved app label for engine-generated focus sessions.
	FocusAppName = "SMTG Focus"
	// MaxAppNameLength caps free-text app labels.
	MaxAppNameLength = 100
	// MaxSessionMinutes caps a single recorded session.
	MaxSessionMinutes = 600
	// DefaultPlannedFocusMinutes is the default focus-session length.
	DefaultPlannedFocusMinutes = 15
	// MaxPlannedFocusMinutes caps a planned focus session.
	MaxPlannedFocusMinutes = 180
)

// Error variables for better error handling and testability.
var (
	ErrEmptyAppName          = errors.New("app_name cannot be empty")
	ErrAppNameTooLong        = errors.New("app_name exceeds maximum length")
	ErrInvalidSessionType    = errors.New("invalid session type")
	ErrInvalidDuration       = errors.New("duration_min must be positive")
	ErrDurationTooLong       = errors.New("duration_min exceeds maximum value")
	ErrZeroOccurredAt        = errors.New("occurred_at is required")
	ErrInvalidTriggerReason  = errors.New("invalid nudge trigger reason")
	ErrInvalidNudgeResponse  = errors.New("invalid nudge response")
	ErrInvalidPlannedMinutes = errors.New("planned_min must be positive")
	ErrPlannedTooLong        = errors.New("planned_min exceeds maximum value")
	ErrInvalidCompleted      = errors.New("completed_min must be between 0 and planned_min")
	ErrInvalidGoalMinutes    = errors.New("goal_minutes must be positive")
	ErrInvalidNudgeThreshold = errors.New("nudge_threshold_min must be positive")

	// ErrInvalidState marks operations attempted against a record that has
	// already reached a terminal state, such as double-responding to a nudge
	// or completing an already-completed focus session.
	ErrInvalidState = errors.New("invalid state")
)

// IsValidSessionType checks if the given session type is supported.
func IsValidSessionType(st SessionType) bool {
	switch st {
	case SessionTypeScroll, SessionTypeProductive, SessionTypeFocus, SessionTypeOther:
		return true
	default:
		return false
	}
}

// IsValidTriggerReason checks if the given trigger reason is supported.
func IsValidTriggerReason(tr TriggerReason) bool {
	switch tr {
	case TriggerScrollThreshold, TriggerLateNight, TriggerManual:
		return true
	default:
		return false
	}
}

// IsValidNudgeResponse checks if the given response value is supported,
// including the non-terminal pending state.
func IsValidNudgeResponse(nr NudgeResponse) bool {
	switch nr {
	case ResponsePending, ResponseStartFocus, ResponseSnooze, ResponseDismiss:
		return true
	default:
		return false
	}
}

// IsTerminalNudgeResponse reports whether the response resolves a nudge.
func IsTerminalNudgeResponse(nr NudgeResponse) bool {
	return nr == ResponseStartFocus || nr == ResponseSnooze || nr == ResponseDismiss
}

// Session represents one completed usage interval.
//
// Productive is independent of SessionType: a scroll session can still be
// marked productive (e.g. research). OccurredAt is the instant the session
// ended or was logged; records may arrive out of order and consumers must
// sort internally where order matters.
type Session struct {
	ID          string      `json:"id,omitempty"`
	AppName     string      `json:"app_name"`
	SessionType SessionType `json:"session_type"`
	DurationMin int         `json:"duration_min"`
	Productive  bool        `json:"productive"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// Validate performs field validation on a Session.
func (s *Session) Validate() error {
	if s.AppName == "" {
		return ErrEmptyAppName
	}
	if len(s.AppName) > MaxAppNameLength {
		return ErrAppNameTooLong
	}
	if !IsValidSessionType(s.SessionType) {
		return ErrInvalidSessionType
	}
	if s.DurationMin <= 0 {
		return ErrInvalidDuration
	}
	if s.DurationMin > MaxSessionMinutes {
		return ErrDurationTooLong
	}
	if s.OccurredAt.IsZero() {
		return ErrZeroOccurredAt
	}
	return nil
}

// Nudge represents one intervention offer.
type Nudge struct {
	ID            string        `json:"id"`
	TriggerReason TriggerReason `json:"trigger_reason"`
	Response      NudgeResponse `json:"response"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

// Validate performs field validation on a Nudge.
func (n *Nudge) Validate() error {
	if !IsValidTriggerReason(n.TriggerReason) {
		return ErrInvalidTriggerReason
	}
	if !IsValidNudgeResponse(n.Response) {
		return ErrInvalidNudgeResponse
	}
	if n.OccurredAt.IsZero() {
		return ErrZeroOccurredAt
	}
	return nil
}

// Resolved reports whether the nudge has received its terminal response.
func (n *Nudge) Resolved() bool {
	return IsTerminalNudgeResponse(n.Response)
}

// FocusSession represents the outcome of a focus attempt.
//
// AcceptedFromNudge is true iff the session originated from a start_focus
// nudge response. The engine does not store a foreign key to the nudge; the
// surrounding system preserves that correspondence when appending records.
type FocusSession struct {
	ID                string    `json:"id"`
	PlannedMin        int       `json:"planned_min"`
	CompletedMin      int       `json:"completed_min"`
	AcceptedFromNudge bool      `json:"accepted_from_nudge"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// Validate performs field validation on a FocusSession.
func (f *FocusSession) Validate() error {
	if f.PlannedMin <= 0 {
		return ErrInvalidPlannedMinutes
	}
	if f.PlannedMin > MaxPlannedFocusMinutes {
		return ErrPlannedTooLong
	}
	if f.CompletedMin < 0 || f.CompletedMin > f.PlannedMin {
		return ErrInvalidCompleted
	}
	if f.OccurredAt.IsZero() {
		return ErrZeroOccurredAt
	}
	return nil
}

// Completed reports whether the focus session ran its full planned length.
func (f *FocusSession) Completed() bool {
	return f.CompletedMin >= f.PlannedMin
}

// GoalContext carries the read-only profile/settings inputs the engine
// needs. It is owned by the profile layer, never by the engine.
type GoalContext struct {
	GoalMinutes       int            `json:"goal_minutes"`
	NudgeThresholdMin int            `json:"nudge_threshold_min"`
	Location          *time.Location `json:"-"`
}

// Validate performs field validation on a GoalContext.
func (g *GoalContext) Validate() error {
	if g.GoalMinutes <= 0 {
		return ErrInvalidGoalMinutes
	}
	if g.NudgeThresholdMin <= 0 {
		return ErrInvalidNudgeThreshold
	}
	return nil
}

// Loc returns the context's location, defaulting to UTC.
func (g *GoalContext) Loc() *time.Location {
	if g.Location == nil {
		return time.UTC
	}
	return g.Location
}
