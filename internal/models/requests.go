// Package models defines API request payloads for SMTG endpoints.
package models

import "time"

// SessionRequest is the payload for recording a usage session.
type SessionRequest struct {
	AppName     string      `json:"app_name"`
	SessionType SessionType `json:"session_type"`
	DurationMin int         `json:"duration_min"`
	Productive  bool        `json:"productive"`
	OccurredAt  *time.Time  `json:"occurred_at,omitempty"` // defaults to the request time
}

// Session builds the record, stamping the fallback instant when the caller
// omitted occurred_at.
func (r *SessionRequest) Session(fallback time.Time) Session {
	occurred := fallback
	if r.OccurredAt != nil {
		occurred = *r.OccurredAt
	}
	return Session{
		AppName:     r.AppName,
		SessionType: r.SessionType,
		DurationMin: r.DurationMin,
		Productive:  r.Productive,
		OccurredAt:  occurred,
	}
}

// FocusSessionRequest is the payload for recording an externally completed
// focus session, bypassing the live countdown flow.
type FocusSessionRequest struct {
	PlannedMin        int        `json:"planned_min"`
	CompletedMin      int        `json:"completed_min"`
	AcceptedFromNudge bool       `json:"accepted_from_nudge"`
	OccurredAt        *time.Time `json:"occurred_at,omitempty"`
}

// FocusSession builds the record, stamping the fallback instant when the
// caller omitted occurred_at.
func (r *FocusSessionRequest) FocusSession(fallback time.Time) FocusSession {
	occurred := fallback
	if r.OccurredAt != nil {
		occurred = *r.OccurredAt
	}
	return FocusSession{
		PlannedMin:        r.PlannedMin,
		CompletedMin:      r.CompletedMin,
		AcceptedFromNudge: r.AcceptedFromNudge,
		OccurredAt:        occurred,
	}
}

// NudgeRespondRequest is the payload for resolving a pending nudge.
type NudgeRespondRequest struct {
	NudgeID  string        `json:"nudge_id"`
	Response NudgeResponse `json:"response"`
}

// FocusStartRequest is the payload for starting a focus session. NudgeID is
// set when the session originates from an accepted nudge.
type FocusStartRequest struct {
	NudgeID    string `json:"nudge_id,omitempty"`
	PlannedMin int    `json:"planned_min,omitempty"` // defaults to DefaultPlannedFocusMinutes
}

// FocusEndRequest is the payload for ending a focus session early.
type FocusEndRequest struct {
	SessionID string `json:"session_id"`
}

// ProfileUpdateRequest is the payload for updating the profile.
type ProfileUpdateRequest struct {
	Name        string `json:"name"`
	GoalMinutes int    `json:"goal_minutes"`
	Timezone    string `json:"timezone"`
}

// SettingsUpdateRequest is the payload for updating moderation settings.
type SettingsUpdateRequest struct {
	StudyMode         bool  `json:"study_mode"`
	WorkMode          bool  `json:"work_mode"`
	SleepMode         bool  `json:"sleep_mode"`
	NudgeEnabled      bool  `json:"nudge_enabled"`
	NudgeThresholdMin int   `json:"nudge_threshold_min"`
	Theme             Theme `json:"theme"`
	OnboardingDone    bool  `json:"onboarding_done"`
}

// SubscriptionUpdateRequest is the payload for switching plans.
type SubscriptionUpdateRequest struct {
	Plan Plan `json:"plan"`
}
