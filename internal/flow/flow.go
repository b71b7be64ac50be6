// Package flow implements the nudge intervention state machine.
//
// The lifecycle runs idle -> triggered (pending nudge) -> responded ->
// [focus_active -> focus_completed], returning to idle after a response that
// does not start a focus session. A completed focus session leaves the
// machine in the completed state until the next trigger or start. Per-user
// state is mutated under a per-user lock so that at most one nudge is
// pending at a time and each nudge receives exactly one terminal response.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smtguard/smtg/internal/models"
)

// State constants for the nudge intervention flow.
const (
	StateIdle           = "IDLE"
	StateTriggered      = "TRIGGERED"
	StateResponded      = "RESPONDED"
	StateFocusActive    = "FOCUS_ACTIVE"
	StateFocusCompleted = "FOCUS_COMPLETED"
)

// Recorder appends the records produced by flow transitions. The store
// satisfies this; the flow itself never reads records back.
type Recorder interface {
	AppendNudge(ctx context.Context, n models.Nudge) error
	SetNudgeResponse(ctx context.Context, nudgeID string, response models.NudgeResponse) error
	AppendFocusSession(ctx context.Context, f models.FocusSession) error
	AppendSession(ctx context.Context, s models.Session) error
}

// Notifier delivers a freshly triggered nudge to the user. Delivery is
// best-effort and never blocks or fails a transition.
type Notifier interface {
	NotifyNudge(ctx context.Context, n models.Nudge) error
}

// userState holds the per-user machine state. Guarded by its own mutex so
// concurrent responses to the same nudge serialize and only the first wins.
type userState struct {
	mu      sync.Mutex
	current string
	pending *models.Nudge
	// accepted is the nudge that received start_focus and awaits its focus
	// session; cleared when the session starts.
	accepted *models.Nudge
	active   *activeFocus
}

type activeFocus struct {
	session   models.FocusSession
	startedAt time.Time
	timerID   string
	ended     bool
}

// NudgeFlow manages the intervention lifecycle for all users.
type NudgeFlow struct {
	recorder Recorder
	timer    Timer
	notifier Notifier // may be nil

	mu    sync.Mutex
	users map[string]*userState
}

// NewNudgeFlow creates a NudgeFlow writing records through the given
// Recorder and driving focus countdowns through the given Timer. The
// notifier is optional.
func NewNudgeFlow(recorder Recorder, timer Timer, notifier Notifier) *NudgeFlow {
	slog.Debug("Creating NudgeFlow")
	return &NudgeFlow{
		recorder: recorder,
		timer:    timer,
		notifier: notifier,
		users:    make(map[string]*userState),
	}
}

// user returns the state object for a user, creating it on first use.
func (f *NudgeFlow) user(userID string) *userState {
	f.mu.Lock()
	defer f.mu.Unlock()
	us, ok := f.users[userID]
	if !ok {
		us = &userState{current: StateIdle}
		f.users[userID] = us
	}
	return us
}

// State reports the user's current flow state.
func (f *NudgeFlow) State(userID string) string {
	us := f.user(userID)
	us.mu.Lock()
	defer us.mu.Unlock()
	return us.current
}

// Pending returns the user's pending nudge, if any.
func (f *NudgeFlow) Pending(userID string) *models.Nudge {
	us := f.user(userID)
	us.mu.Lock()
	defer us.mu.Unlock()
	if us.pending == nil {
		return nil
	}
	n := *us.pending
	return &n
}

// Trigger evaluates the trigger conditions against the user's recent
// sessions and, when one holds, files a pending nudge. A new trigger while
// one is pending is suppressed and returns nil without error.
func (f *NudgeFlow) Trigger(ctx context.Context, userID string, tc TriggerContext) (*models.Nudge, error) {
	reason, ok := tc.Evaluate()
	if !ok {
		slog.Debug("NudgeFlow.Trigger: no trigger condition holds", "user", userID)
		return nil, nil
	}
	return f.fileNudge(ctx, userID, reason, tc.Now)
}

// TriggerManual files a manually requested nudge, subject to the same
// one-pending-nudge suppression as automatic triggers.
func (f *NudgeFlow) TriggerManual(ctx context.Context, userID string, now time.Time) (*models.Nudge, error) {
	return f.fileNudge(ctx, userID, models.TriggerManual, now)
}

func (f *NudgeFlow) fileNudge(ctx context.Context, userID string, reason models.TriggerReason, now time.Time) (*models.Nudge, error) {
	us := f.user(userID)
	us.mu.Lock()
	defer us.mu.Unlock()

	if us.pending != nil {
		slog.Debug("NudgeFlow.fileNudge: pending nudge exists, suppressing", "user", userID, "pendingID", us.pending.ID)
		return nil, nil
	}

	n := models.Nudge{
		ID:            uuid.NewString(),
		TriggerReason: reason,
		Response:      models.ResponsePending,
		OccurredAt:    now,
	}
	if err := n.Validate(); err != nil {
		return nil, fmt.Errorf("invalid nudge: %w", err)
	}
	if err := f.recorder.AppendNudge(ctx, n); err != nil {
		slog.Error("NudgeFlow.fileNudge: append failed", "error", err, "user", userID)
		return nil, fmt.Errorf("failed to record nudge: %w", err)
	}

	us.pending = &n
	us.current = StateTriggered
	slog.Info("NudgeFlow.fileNudge: nudge filed", "user", userID, "nudgeID", n.ID, "reason", reason)

	if f.notifier != nil {
		nudge := n
		go func() {
			if err := f.notifier.NotifyNudge(context.Background(), nudge); err != nil {
				slog.Warn("NudgeFlow.fileNudge: notification failed", "error", err, "nudgeID", nudge.ID)
			}
		}()
	}

	result := n
	return &result, nil
}

// Respond records the user's single terminal response to the pending nudge.
// A second response to the same nudge, a response to an unknown nudge, or a
// non-terminal response value all fail.
func (f *NudgeFlow) Respond(ctx context.Context, userID, nudgeID string, response models.NudgeResponse, now time.Time) (*models.Nudge, error) {
	if !models.IsTerminalNudgeResponse(response) {
		return nil, fmt.Errorf("response %q is not terminal: %w", response, models.ErrInvalidNudgeResponse)
	}

	us := f.user(userID)
	us.mu.Lock()
	defer us.mu.Unlock()

	if us.pending == nil || us.pending.ID != nudgeID {
		slog.Warn("NudgeFlow.Respond: no matching pending nudge", "user", userID, "nudgeID", nudgeID)
		return nil, fmt.Errorf("nudge %s has no pending response: %w", nudgeID, models.ErrInvalidState)
	}

	if err := f.recorder.SetNudgeResponse(ctx, nudgeID, response); err != nil {
		slog.Error("NudgeFlow.Respond: record update failed", "error", err, "nudgeID", nudgeID)
		return nil, fmt.Errorf("failed to record nudge response: %w", err)
	}

	resolved := *us.pending
	resolved.Response = response
	us.pending = nil

	if response == models.ResponseStartFocus {
		us.accepted = &resolved
		us.current = StateResponded
	} else {
		us.accepted = nil
		us.current = StateIdle
	}
	slog.Info("NudgeFlow.Respond: nudge resolved", "user", userID, "nudgeID", nudgeID, "response", response)
	return &resolved, nil
}

// StartFocus begins a focus session. nudgeID may name the start_focus nudge
// the session originates from, or be empty for a user-initiated session.
// plannedMin defaults to models.DefaultPlannedFocusMinutes when zero.
func (f *NudgeFlow) StartFocus(ctx context.Context, userID, nudgeID string, plannedMin int, now time.Time) (*models.FocusSession, error) {
	if plannedMin == 0 {
		plannedMin = models.DefaultPlannedFocusMinutes
	}
	if plannedMin < 0 {
		return nil, fmt.Errorf("planned minutes: %w", models.ErrInvalidPlannedMinutes)
	}
	if plannedMin > models.MaxPlannedFocusMinutes {
		return nil, fmt.Errorf("planned minutes: %w", models.ErrPlannedTooLong)
	}

	us := f.user(userID)
	us.mu.Lock()
	defer us.mu.Unlock()

	if us.active != nil && !us.active.ended {
		return nil, fmt.Errorf("focus session %s still active: %w", us.active.session.ID, models.ErrInvalidState)
	}

	accepted := false
	if nudgeID != "" {
		if us.accepted == nil || us.accepted.ID != nudgeID {
			return nil, fmt.Errorf("nudge %s did not accept a focus session: %w", nudgeID, models.ErrInvalidState)
		}
		accepted = true
		us.accepted = nil
	}

	session := models.FocusSession{
		ID:                uuid.NewString(),
		PlannedMin:        plannedMin,
		CompletedMin:      0,
		AcceptedFromNudge: accepted,
		OccurredAt:        now,
	}

	us.active = &activeFocus{session: session, startedAt: now}
	us.current = StateFocusActive

	// Natural expiry ends the session at its full planned length. The
	// callback is a no-op if the session was already ended early.
	timerID, err := f.timer.ScheduleAfter(time.Duration(plannedMin)*time.Minute, func() {
		if _, _, err := f.finishFocus(context.Background(), userID, session.ID, time.Now(), true); err != nil {
			slog.Debug("NudgeFlow focus expiry skipped", "sessionID", session.ID, "reason", err)
		}
	})
	if err != nil {
		us.active = nil
		us.current = StateIdle
		return nil, fmt.Errorf("failed to schedule focus countdown: %w", err)
	}
	us.active.timerID = timerID

	slog.Info("NudgeFlow.StartFocus: focus session started", "user", userID, "sessionID", session.ID, "plannedMin", plannedMin, "fromNudge", accepted)
	result := session
	return &result, nil
}

// EndFocus terminates the active focus session early. Completed minutes are
// the planned length minus the remaining whole minutes, floored at 1.
func (f *NudgeFlow) EndFocus(ctx context.Context, userID, sessionID string, now time.Time) (*models.FocusSession, *models.Session, error) {
	return f.finishFocus(ctx, userID, sessionID, now, false)
}

// Remaining reports the time left on the user's active focus countdown.
func (f *NudgeFlow) Remaining(userID string) (time.Duration, bool) {
	us := f.user(userID)
	us.mu.Lock()
	defer us.mu.Unlock()
	if us.active == nil || us.active.ended {
		return 0, false
	}
	return f.timer.Remaining(us.active.timerID)
}

// finishFocus completes the active session, either on natural expiry or
// early termination. Completion is idempotent against double invocation:
// the second caller gets an invalid-state error and no records are written.
func (f *NudgeFlow) finishFocus(ctx context.Context, userID, sessionID string, now time.Time, expired bool) (*models.FocusSession, *models.Session, error) {
	us := f.user(userID)
	us.mu.Lock()
	defer us.mu.Unlock()

	if us.active == nil || us.active.session.ID != sessionID {
		return nil, nil, fmt.Errorf("focus session %s is not active: %w", sessionID, models.ErrInvalidState)
	}
	if us.active.ended {
		return nil, nil, fmt.Errorf("focus session %s already completed: %w", sessionID, models.ErrInvalidState)
	}

	focus := us.active.session
	if expired {
		focus.CompletedMin = focus.PlannedMin
	} else {
		elapsed := now.Sub(us.active.startedAt)
		remainingWhole := focus.PlannedMin - int(elapsed.Minutes())
		completed := focus.PlannedMin - remainingWhole
		if completed < 1 {
			completed = 1
		}
		if completed > focus.PlannedMin {
			completed = focus.PlannedMin
		}
		focus.CompletedMin = completed
	}
	focus.OccurredAt = now

	// Companion generic session record decouples focus telemetry from the
	// activity telemetry the classifier consumes.
	companion := models.Session{
		ID:          uuid.NewString(),
		AppName:     models.FocusAppName,
		SessionType: models.SessionTypeFocus,
		DurationMin: focus.PlannedMin,
		Productive:  true,
		OccurredAt:  now,
	}

	if err := f.recorder.AppendFocusSession(ctx, focus); err != nil {
		slog.Error("NudgeFlow.finishFocus: focus session append failed", "error", err, "sessionID", sessionID)
		return nil, nil, fmt.Errorf("failed to record focus session: %w", err)
	}
	if err := f.recorder.AppendSession(ctx, companion); err != nil {
		slog.Error("NudgeFlow.finishFocus: companion session append failed", "error", err, "sessionID", sessionID)
		return nil, nil, fmt.Errorf("failed to record companion session: %w", err)
	}

	us.active.ended = true
	if us.active.timerID != "" {
		_ = f.timer.Cancel(us.active.timerID)
	}
	// The machine rests in the completed state; the next trigger or focus
	// start moves it on.
	us.current = StateFocusCompleted

	slog.Info("NudgeFlow.finishFocus: focus session completed", "user", userID, "sessionID", sessionID, "completedMin", focus.CompletedMin, "expired", expired)
	result := focus
	comp := companion
	return &result, &comp, nil
}
