package flow

import (
	"testing"
	"time"

	"github.com/smtguard/smtg/internal/models"
)

func scrollSession(minutes int, at time.Time) models.Session {
	return models.Session{
		AppName:     "Instagram",
		SessionType: models.SessionTypeScroll,
		DurationMin: minutes,
		OccurredAt:  at,
	}
}

func TestContiguousScrollMinutes(t *testing.T) {
	base := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

	// Unsorted input; the trailing run is the two newest scroll sessions.
	sessions := []models.Session{
		scrollSession(12, base.Add(-10*time.Minute)),
		{AppName: "Docs", SessionType: models.SessionTypeProductive, DurationMin: 30, Productive: true, OccurredAt: base.Add(-30 * time.Minute)},
		scrollSession(10, base.Add(-20*time.Minute)),
	}
	if got := ContiguousScrollMinutes(sessions); got != 22 {
		t.Errorf("got %d, want 22", got)
	}

	// A newer non-scroll session breaks the run entirely.
	sessions = append(sessions, models.Session{
		AppName: "Docs", SessionType: models.SessionTypeProductive, DurationMin: 5, Productive: true, OccurredAt: base.Add(-time.Minute),
	})
	if got := ContiguousScrollMinutes(sessions); got != 0 {
		t.Errorf("got %d, want 0 after a productive interruption", got)
	}

	// Productive scroll does not count toward the run.
	research := []models.Session{{
		AppName: "Instagram", SessionType: models.SessionTypeScroll, DurationMin: 40, Productive: true, OccurredAt: base,
	}}
	if got := ContiguousScrollMinutes(research); got != 0 {
		t.Errorf("got %d, want 0 for productive scrolling", got)
	}

	if got := ContiguousScrollMinutes(nil); got != 0 {
		t.Errorf("got %d, want 0 for empty input", got)
	}
}

func TestTriggerContextEvaluate(t *testing.T) {
	goal := models.GoalContext{GoalMinutes: 120, NudgeThresholdMin: 18}
	afternoon := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	night := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)

	overThreshold := TriggerContext{
		Recent: []models.Session{scrollSession(20, afternoon.Add(-5 * time.Minute))},
		Goal:   goal,
		Now:    afternoon,
	}
	if reason, ok := overThreshold.Evaluate(); !ok || reason != models.TriggerScrollThreshold {
		t.Errorf("got %v %v, want scroll_threshold", reason, ok)
	}

	// Scroll threshold wins when both conditions hold.
	both := TriggerContext{
		Recent: []models.Session{scrollSession(20, night.Add(-5 * time.Minute))},
		Goal:   goal,
		Now:    night,
	}
	if reason, _ := both.Evaluate(); reason != models.TriggerScrollThreshold {
		t.Errorf("got %v, want scroll_threshold to take precedence", reason)
	}

	lateOnly := TriggerContext{
		Recent: []models.Session{{AppName: "YouTube", SessionType: models.SessionTypeOther, DurationMin: 10, OccurredAt: night.Add(-5 * time.Minute)}},
		Goal:   goal,
		Now:    night,
	}
	if reason, ok := lateOnly.Evaluate(); !ok || reason != models.TriggerLateNight {
		t.Errorf("got %v %v, want late_night", reason, ok)
	}

	// No activity at night means nothing to nudge about.
	idleNight := TriggerContext{Goal: goal, Now: night}
	if _, ok := idleNight.Evaluate(); ok {
		t.Error("empty recent window should not trigger")
	}

	// Only daytime usage on record: being awake late is not by itself a
	// late-night usage pattern.
	daytimeOnly := TriggerContext{
		Recent: []models.Session{{AppName: "Docs", SessionType: models.SessionTypeProductive, DurationMin: 45, Productive: true, OccurredAt: afternoon}},
		Goal:   goal,
		Now:    night,
	}
	if reason, ok := daytimeOnly.Evaluate(); ok {
		t.Errorf("got %v, want no trigger when no session fell in the late-night window", reason)
	}

	underThreshold := TriggerContext{
		Recent: []models.Session{scrollSession(17, afternoon.Add(-5 * time.Minute))},
		Goal:   goal,
		Now:    afternoon,
	}
	if _, ok := underThreshold.Evaluate(); ok {
		t.Error("17 scroll minutes is under an 18 minute threshold")
	}
}
