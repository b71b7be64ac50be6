package models

import (
	"errors"
	"testing"
	"time"
)

func TestProfileValidate(t *testing.T) {
	p := Profile{Name: "User", GoalMinutes: 120, Timezone: "America/Toronto"}
	if err := p.Validate(); err != nil {
		t.Errorf("valid profile failed validation: %v", err)
	}

	p.GoalMinutes = MinGoalMinutes - 1
	if err := p.Validate(); !errors.Is(err, ErrGoalOutOfRange) {
		t.Errorf("got %v, want ErrGoalOutOfRange", err)
	}
	p.GoalMinutes = MaxGoalMinutes + 1
	if err := p.Validate(); !errors.Is(err, ErrGoalOutOfRange) {
		t.Errorf("got %v, want ErrGoalOutOfRange", err)
	}

	p.GoalMinutes = 120
	p.Timezone = "Mars/Olympus_Mons"
	if err := p.Validate(); !errors.Is(err, ErrInvalidTimezone) {
		t.Errorf("got %v, want ErrInvalidTimezone", err)
	}
	if p.Location() != time.UTC {
		t.Error("unresolvable timezone should fall back to UTC")
	}
}

func TestSettingsValidate(t *testing.T) {
	s := Settings{NudgeThresholdMin: 18, Theme: ThemeDark}
	if err := s.Validate(); err != nil {
		t.Errorf("valid settings failed validation: %v", err)
	}

	s.NudgeThresholdMin = MaxNudgeThresholdMin + 1
	if err := s.Validate(); !errors.Is(err, ErrThresholdOutOfRange) {
		t.Errorf("got %v, want ErrThresholdOutOfRange", err)
	}

	s.NudgeThresholdMin = 18
	s.Theme = "neon"
	if err := s.Validate(); !errors.Is(err, ErrInvalidTheme) {
		t.Errorf("got %v, want ErrInvalidTheme", err)
	}
}

func TestSubscriptionValidate(t *testing.T) {
	sub := Subscription{Plan: PlanPro}
	if err := sub.Validate(); err != nil {
		t.Errorf("valid subscription failed validation: %v", err)
	}
	sub.Plan = "enterprise"
	if err := sub.Validate(); !errors.Is(err, ErrInvalidPlan) {
		t.Errorf("got %v, want ErrInvalidPlan", err)
	}
}

func TestGoalContextFrom(t *testing.T) {
	p := Profile{Name: "User", GoalMinutes: 150, Timezone: "America/Toronto"}
	s := Settings{NudgeThresholdMin: 20, Theme: ThemeLight}
	g := GoalContextFrom(p, s)
	if g.GoalMinutes != 150 || g.NudgeThresholdMin != 20 {
		t.Errorf("unexpected goal context: %+v", g)
	}
	if g.Loc().String() != "America/Toronto" {
		t.Errorf("unexpected location: %s", g.Loc())
	}
}
