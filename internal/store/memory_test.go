package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smtguard/smtg/internal/models"
)

var base = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)

func testSession(id string, at time.Time) models.Session {
	return models.Session{
		ID:          id,
		AppName:     "Instagram",
		SessionType: models.SessionTypeScroll,
		DurationMin: 20,
		OccurredAt:  at,
	}
}

func TestInMemoryStoreSessionWindowing(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	for i, at := range []time.Time{base, base.AddDate(0, 0, -1), base.AddDate(0, 0, -8)} {
		if err := s.AppendSession(ctx, testSession(string(rune('a'+i)), at)); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListSessions(ctx, Window{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("open window returned %d sessions, want 3", len(all))
	}

	week, err := s.ListSessions(ctx, TrailingWindow(base, 7, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(week) != 2 {
		t.Errorf("trailing week returned %d sessions, want 2", len(week))
	}

	day, err := s.ListSessions(ctx, DayWindow(base, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(day) != 1 {
		t.Errorf("day window returned %d sessions, want 1", len(day))
	}
}

func TestInMemoryStoreAppendDeduplicates(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	sess := testSession("dup", base)
	if err := s.AppendSession(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendSession(ctx, sess); err != nil {
		t.Fatal(err)
	}

	all, _ := s.ListSessions(ctx, Window{})
	if len(all) != 1 {
		t.Errorf("duplicate append produced %d records, want 1", len(all))
	}

	// Blank IDs each get a fresh identity.
	blank := testSession("", base)
	if err := s.AppendSession(ctx, blank); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendSession(ctx, blank); err != nil {
		t.Fatal(err)
	}
	all, _ = s.ListSessions(ctx, Window{})
	if len(all) != 3 {
		t.Errorf("blank-ID appends produced %d records, want 3", len(all))
	}
}

func TestInMemoryStoreSetNudgeResponseOnce(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	n := models.Nudge{ID: "n1", TriggerReason: models.TriggerManual, Response: models.ResponsePending, OccurredAt: base}
	if err := s.AppendNudge(ctx, n); err != nil {
		t.Fatal(err)
	}

	if err := s.SetNudgeResponse(ctx, "n1", models.ResponseStartFocus); err != nil {
		t.Fatalf("first response failed: %v", err)
	}
	err := s.SetNudgeResponse(ctx, "n1", models.ResponseDismiss)
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("second response: got %v, want ErrInvalidState", err)
	}

	nudges, _ := s.ListNudges(ctx, Window{})
	if len(nudges) != 1 || nudges[0].Response != models.ResponseStartFocus {
		t.Errorf("unexpected nudge state: %+v", nudges)
	}

	err = s.SetNudgeResponse(ctx, "missing", models.ResponseDismiss)
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("unknown nudge: got %v, want ErrInvalidState", err)
	}

	err = s.SetNudgeResponse(ctx, "n1", models.ResponsePending)
	if !errors.Is(err, models.ErrInvalidNudgeResponse) {
		t.Errorf("non-terminal response: got %v, want ErrInvalidNudgeResponse", err)
	}
}

func TestInMemoryStoreValidatesOnAppend(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	bad := testSession("x", base)
	bad.DurationMin = 0
	if err := s.AppendSession(ctx, bad); !errors.Is(err, models.ErrInvalidDuration) {
		t.Errorf("got %v, want ErrInvalidDuration", err)
	}
}

func TestInMemoryStoreSingletons(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	p, err := s.GetProfile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if p.GoalMinutes != models.DefaultGoalMinutes || p.Timezone != "UTC" {
		t.Errorf("unexpected default profile: %+v", p)
	}

	created := p.CreatedAt
	p.Name = "Sam"
	p.GoalMinutes = 90
	p.CreatedAt = base // must be ignored
	if err := s.UpdateProfile(ctx, p); err != nil {
		t.Fatal(err)
	}
	p, _ = s.GetProfile(ctx)
	if p.Name != "Sam" || p.GoalMinutes != 90 {
		t.Errorf("profile update lost: %+v", p)
	}
	if !p.CreatedAt.Equal(created) {
		t.Error("profile update must not rewrite the creation time")
	}

	set, _ := s.GetSettings(ctx)
	if !set.NudgeEnabled || set.NudgeThresholdMin != models.DefaultNudgeThreshold {
		t.Errorf("unexpected default settings: %+v", set)
	}

	sub, _ := s.GetSubscription(ctx)
	if sub.Plan != models.PlanFree {
		t.Errorf("unexpected default plan: %s", sub.Plan)
	}
	if sub.TrialEndsAt == nil {
		t.Fatal("trial end should be seeded on a fresh store")
	}
	wantTrial := time.Now().UTC().AddDate(0, 0, models.TrialDays)
	if d := sub.TrialEndsAt.Sub(wantTrial); d < -time.Minute || d > time.Minute {
		t.Errorf("trial ends at %v, want about %d days out", sub.TrialEndsAt, models.TrialDays)
	}
	sub.Plan = models.PlanPro
	if err := s.UpdateSubscription(ctx, sub); err != nil {
		t.Fatal(err)
	}
	sub, _ = s.GetSubscription(ctx)
	if sub.Plan != models.PlanPro {
		t.Errorf("subscription update lost: %s", sub.Plan)
	}
}

func TestInMemoryStoreDeleteAllRecords(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	if err := s.AppendSession(ctx, testSession("s1", base)); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendNudge(ctx, models.Nudge{ID: "n1", TriggerReason: models.TriggerManual, Response: models.ResponsePending, OccurredAt: base}); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendFocusSession(ctx, models.FocusSession{ID: "f1", PlannedMin: 15, CompletedMin: 15, OccurredAt: base}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteAllRecords(ctx); err != nil {
		t.Fatal(err)
	}

	sessions, _ := s.ListSessions(ctx, Window{})
	nudges, _ := s.ListNudges(ctx, Window{})
	focus, _ := s.ListFocusSessions(ctx, Window{})
	if len(sessions)+len(nudges)+len(focus) != 0 {
		t.Error("records survived deletion")
	}

	// Profile and settings survive a data deletion request.
	p, _ := s.GetProfile(ctx)
	if p.Name == "" {
		t.Error("profile should survive record deletion")
	}

	// Deleted IDs are reusable afterwards.
	if err := s.AppendSession(ctx, testSession("s1", base)); err != nil {
		t.Fatal(err)
	}
	sessions, _ = s.ListSessions(ctx, Window{})
	if len(sessions) != 1 {
		t.Errorf("re-append after deletion produced %d records, want 1", len(sessions))
	}
}

func TestSeedDemoData(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	if err := SeedDemoData(ctx, s, base); err != nil {
		t.Fatal(err)
	}
	sessions, _ := s.ListSessions(ctx, Window{})
	if len(sessions) != 6 {
		t.Fatalf("seeded %d sessions, want 6", len(sessions))
	}

	// A second run against a non-empty store is a no-op.
	if err := SeedDemoData(ctx, s, base.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	sessions, _ = s.ListSessions(ctx, Window{})
	if len(sessions) != 6 {
		t.Errorf("repeat seeding grew the store to %d sessions", len(sessions))
	}
}

func TestWindowHelpers(t *testing.T) {
	w := DayWindow(base, time.UTC)
	if !w.Contains(base) {
		t.Error("day window should contain its anchor instant")
	}
	if w.Contains(w.Until) {
		t.Error("window upper bound is exclusive")
	}
	if !w.Contains(w.Since) {
		t.Error("window lower bound is inclusive")
	}

	tw := TrailingWindow(base, 7, time.UTC)
	if !tw.Contains(base.AddDate(0, 0, -6)) {
		t.Error("trailing window should include the oldest covered day")
	}
	if tw.Contains(base.AddDate(0, 0, -7)) {
		t.Error("trailing window should exclude the day before its range")
	}
}

func TestDetectDSNType(t *testing.T) {
	cases := map[string]string{
		"":                            "memory",
		":memory:":                    "memory",
		"/var/lib/smtg/smtg.db":       "sqlite",
		"smtg.db":                     "sqlite",
		"postgres://u:p@host/db":      "postgres",
		"postgresql://u:p@host/db":    "postgres",
		"host=localhost dbname=smtg":  "postgres",
	}
	for dsn, want := range cases {
		if got := DetectDSNType(dsn); got != want {
			t.Errorf("DetectDSNType(%q) = %q, want %q", dsn, got, want)
		}
	}
}
