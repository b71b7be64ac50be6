package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smtguard/smtg/internal/models"
)

var t0 = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

// fakeRecorder captures appended records in memory.
type fakeRecorder struct {
	mu       sync.Mutex
	nudges   []models.Nudge
	resolved map[string]models.NudgeResponse
	focus    []models.FocusSession
	sessions []models.Session
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{resolved: make(map[string]models.NudgeResponse)}
}

func (r *fakeRecorder) AppendNudge(ctx context.Context, n models.Nudge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nudges = append(r.nudges, n)
	return nil
}

func (r *fakeRecorder) SetNudgeResponse(ctx context.Context, nudgeID string, response models.NudgeResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, done := r.resolved[nudgeID]; done {
		return fmt.Errorf("nudge %s already resolved: %w", nudgeID, models.ErrInvalidState)
	}
	r.resolved[nudgeID] = response
	return nil
}

func (r *fakeRecorder) AppendFocusSession(ctx context.Context, f models.FocusSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focus = append(r.focus, f)
	return nil
}

func (r *fakeRecorder) AppendSession(ctx context.Context, s models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
	return nil
}

// fakeTimer collects scheduled callbacks for manual firing.
type fakeTimer struct {
	mu   sync.Mutex
	fns  map[string]func()
	next int
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{fns: make(map[string]func())}
}

func (t *fakeTimer) ScheduleAfter(delay time.Duration, fn func()) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	id := fmt.Sprintf("fake_%d", t.next)
	t.fns[id] = fn
	return id, nil
}

func (t *fakeTimer) Cancel(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.fns, id)
	return nil
}

func (t *fakeTimer) Remaining(id string) (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.fns[id]
	return 0, ok
}

// fire runs and removes the single scheduled callback.
func (t *fakeTimer) fire(tb testing.TB) {
	t.mu.Lock()
	var fn func()
	for id, f := range t.fns {
		fn = f
		delete(t.fns, id)
		break
	}
	t.mu.Unlock()
	if fn == nil {
		tb.Fatal("no scheduled callback to fire")
	}
	fn()
}

func TestTriggerSuppressedWhilePending(t *testing.T) {
	rec := newFakeRecorder()
	nf := NewNudgeFlow(rec, newFakeTimer(), nil)

	first, err := nf.TriggerManual(context.Background(), "u1", t0)
	if err != nil || first == nil {
		t.Fatalf("first trigger failed: %v %v", first, err)
	}
	if nf.State("u1") != StateTriggered {
		t.Errorf("state = %s, want %s", nf.State("u1"), StateTriggered)
	}

	second, err := nf.TriggerManual(context.Background(), "u1", t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("suppressed trigger returned error: %v", err)
	}
	if second != nil {
		t.Error("second trigger should be suppressed while one is pending")
	}
	if len(rec.nudges) != 1 {
		t.Errorf("recorded %d nudges, want 1", len(rec.nudges))
	}

	// A different user is unaffected.
	other, err := nf.TriggerManual(context.Background(), "u2", t0)
	if err != nil || other == nil {
		t.Errorf("other user's trigger failed: %v %v", other, err)
	}
}

func TestRespondOnceOnly(t *testing.T) {
	rec := newFakeRecorder()
	nf := NewNudgeFlow(rec, newFakeTimer(), nil)

	n, err := nf.TriggerManual(context.Background(), "u1", t0)
	if err != nil {
		t.Fatal(err)
	}

	resolved, err := nf.Respond(context.Background(), "u1", n.ID, models.ResponseDismiss, t0.Add(time.Minute))
	if err != nil {
		t.Fatalf("first response failed: %v", err)
	}
	if resolved.Response != models.ResponseDismiss {
		t.Errorf("response = %s, want dismiss", resolved.Response)
	}
	if nf.State("u1") != StateIdle {
		t.Errorf("state after dismiss = %s, want %s", nf.State("u1"), StateIdle)
	}

	_, err = nf.Respond(context.Background(), "u1", n.ID, models.ResponseSnooze, t0.Add(2*time.Minute))
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("second response: got %v, want ErrInvalidState", err)
	}
}

func TestRespondRejectsNonTerminal(t *testing.T) {
	nf := NewNudgeFlow(newFakeRecorder(), newFakeTimer(), nil)
	_, err := nf.Respond(context.Background(), "u1", "whatever", models.ResponsePending, t0)
	if !errors.Is(err, models.ErrInvalidNudgeResponse) {
		t.Errorf("got %v, want ErrInvalidNudgeResponse", err)
	}
}

func TestRespondUnknownNudge(t *testing.T) {
	nf := NewNudgeFlow(newFakeRecorder(), newFakeTimer(), nil)
	_, err := nf.Respond(context.Background(), "u1", "missing", models.ResponseDismiss, t0)
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("got %v, want ErrInvalidState", err)
	}
}

func TestStartFocusFromAcceptedNudge(t *testing.T) {
	rec := newFakeRecorder()
	nf := NewNudgeFlow(rec, newFakeTimer(), nil)

	n, err := nf.TriggerManual(context.Background(), "u1", t0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := nf.Respond(context.Background(), "u1", n.ID, models.ResponseStartFocus, t0.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if nf.State("u1") != StateResponded {
		t.Errorf("state after accept = %s, want %s", nf.State("u1"), StateResponded)
	}

	session, err := nf.StartFocus(context.Background(), "u1", n.ID, 0, t0.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("start focus failed: %v", err)
	}
	if session.PlannedMin != models.DefaultPlannedFocusMinutes {
		t.Errorf("planned = %d, want default %d", session.PlannedMin, models.DefaultPlannedFocusMinutes)
	}
	if !session.AcceptedFromNudge {
		t.Error("session should be marked as accepted from nudge")
	}
	if nf.State("u1") != StateFocusActive {
		t.Errorf("state = %s, want %s", nf.State("u1"), StateFocusActive)
	}
}

func TestStartFocusWrongNudge(t *testing.T) {
	nf := NewNudgeFlow(newFakeRecorder(), newFakeTimer(), nil)
	_, err := nf.StartFocus(context.Background(), "u1", "unaccepted", 0, t0)
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("got %v, want ErrInvalidState", err)
	}
}

func TestStartFocusPlannedBounds(t *testing.T) {
	nf := NewNudgeFlow(newFakeRecorder(), newFakeTimer(), nil)
	_, err := nf.StartFocus(context.Background(), "u1", "", models.MaxPlannedFocusMinutes+1, t0)
	if !errors.Is(err, models.ErrPlannedTooLong) {
		t.Errorf("got %v, want ErrPlannedTooLong", err)
	}
	_, err = nf.StartFocus(context.Background(), "u1", "", -5, t0)
	if !errors.Is(err, models.ErrInvalidPlannedMinutes) {
		t.Errorf("got %v, want ErrInvalidPlannedMinutes", err)
	}
}

func TestEndFocusEarly(t *testing.T) {
	rec := newFakeRecorder()
	nf := NewNudgeFlow(rec, newFakeTimer(), nil)

	session, err := nf.StartFocus(context.Background(), "u1", "", 15, t0)
	if err != nil {
		t.Fatal(err)
	}

	focus, companion, err := nf.EndFocus(context.Background(), "u1", session.ID, t0.Add(5*time.Minute+30*time.Second))
	if err != nil {
		t.Fatalf("end focus failed: %v", err)
	}
	if focus.CompletedMin != 5 {
		t.Errorf("completed = %d, want 5 whole minutes", focus.CompletedMin)
	}
	if companion.AppName != models.FocusAppName || companion.SessionType != models.SessionTypeFocus {
		t.Errorf("unexpected companion session: %+v", companion)
	}
	if companion.DurationMin != 15 || !companion.Productive {
		t.Errorf("companion should carry the planned length as productive time: %+v", companion)
	}
	if nf.State("u1") != StateFocusCompleted {
		t.Errorf("state = %s, want %s", nf.State("u1"), StateFocusCompleted)
	}
	if len(rec.focus) != 1 || len(rec.sessions) != 1 {
		t.Errorf("recorded %d focus, %d sessions; want 1 and 1", len(rec.focus), len(rec.sessions))
	}

	// The completed state does not block the next intervention.
	nudge, err := nf.TriggerManual(context.Background(), "u1", t0.Add(time.Hour))
	if err != nil || nudge == nil {
		t.Fatalf("trigger after completion: nudge=%v err=%v", nudge, err)
	}
	if nf.State("u1") != StateTriggered {
		t.Errorf("state = %s, want %s", nf.State("u1"), StateTriggered)
	}
}

func TestEndFocusImmediatelyFloorsAtOne(t *testing.T) {
	nf := NewNudgeFlow(newFakeRecorder(), newFakeTimer(), nil)
	session, err := nf.StartFocus(context.Background(), "u1", "", 15, t0)
	if err != nil {
		t.Fatal(err)
	}
	focus, _, err := nf.EndFocus(context.Background(), "u1", session.ID, t0.Add(10*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if focus.CompletedMin != 1 {
		t.Errorf("completed = %d, want floor of 1", focus.CompletedMin)
	}
}

func TestEndFocusIdempotent(t *testing.T) {
	rec := newFakeRecorder()
	nf := NewNudgeFlow(rec, newFakeTimer(), nil)

	session, err := nf.StartFocus(context.Background(), "u1", "", 15, t0)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := nf.EndFocus(context.Background(), "u1", session.ID, t0.Add(3*time.Minute)); err != nil {
		t.Fatal(err)
	}

	_, _, err = nf.EndFocus(context.Background(), "u1", session.ID, t0.Add(4*time.Minute))
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("second end: got %v, want ErrInvalidState", err)
	}
	if len(rec.focus) != 1 || len(rec.sessions) != 1 {
		t.Errorf("double completion wrote extra records: %d focus, %d sessions", len(rec.focus), len(rec.sessions))
	}
}

func TestNaturalExpiryCompletesFullLength(t *testing.T) {
	rec := newFakeRecorder()
	timer := newFakeTimer()
	nf := NewNudgeFlow(rec, timer, nil)

	session, err := nf.StartFocus(context.Background(), "u1", "", 25, t0)
	if err != nil {
		t.Fatal(err)
	}
	timer.fire(t)

	if len(rec.focus) != 1 {
		t.Fatalf("recorded %d focus sessions, want 1", len(rec.focus))
	}
	if rec.focus[0].CompletedMin != 25 {
		t.Errorf("completed = %d, want full planned 25", rec.focus[0].CompletedMin)
	}
	if nf.State("u1") != StateFocusCompleted {
		t.Errorf("state = %s, want %s", nf.State("u1"), StateFocusCompleted)
	}

	_, _, err = nf.EndFocus(context.Background(), "u1", session.ID, t0.Add(30*time.Minute))
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("end after expiry: got %v, want ErrInvalidState", err)
	}
}

// notifierFunc adapts a function to the Notifier interface.
type notifierFunc func(ctx context.Context, n models.Nudge) error

func (f notifierFunc) NotifyNudge(ctx context.Context, n models.Nudge) error { return f(ctx, n) }

func TestTriggerNotifiesAsynchronously(t *testing.T) {
	delivered := make(chan models.Nudge, 1)
	nf := NewNudgeFlow(newFakeRecorder(), newFakeTimer(), notifierFunc(func(ctx context.Context, n models.Nudge) error {
		delivered <- n
		return nil
	}))

	n, err := nf.TriggerManual(context.Background(), "u1", t0)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-delivered:
		if got.ID != n.ID {
			t.Errorf("delivered nudge %s, want %s", got.ID, n.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("notification never delivered")
	}
}
