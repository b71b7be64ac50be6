// Package models defines profile, settings, and subscription structures for SMTG.
package models

import (
	"errors"
	"time"
)

// Theme identifies a client color theme.
type Theme string

const (
	ThemeLight       Theme = "light"
	ThemeDark        Theme = "dark"
	ThemeAmoled      Theme = "amoled"
	ThemeCalmBlue    Theme = "calm_blue"
	ThemeForestGreen Theme = "forest_green"
)

// Plan identifies a subscription plan.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// TrialDays is the length of the trial granted on first run.
const TrialDays = 14

// Profile/settings validation bounds.
const (
	MaxProfileNameLength  = 60
	MaxTimezoneLength     = 60
	MinGoalMinutes        = 30
	MaxGoalMinutes        = 360
	DefaultGoalMinutes    = 120
	MinNudgeThresholdMin  = 5
	MaxNudgeThresholdMin  = 60
	DefaultNudgeThreshold = 18
)

var (
	ErrEmptyProfileName    = errors.New("name cannot be empty")
	ErrProfileNameTooLong  = errors.New("name exceeds maximum length")
	ErrGoalOutOfRange      = errors.New("goal_minutes out of allowed range")
	ErrInvalidTimezone     = errors.New("invalid timezone")
	ErrThresholdOutOfRange = errors.New("nudge_threshold_min out of allowed range")
	ErrInvalidTheme        = errors.New("invalid theme")
	ErrInvalidPlan         = errors.New("invalid plan")
)

// IsValidTheme checks if the given theme is supported.
func IsValidTheme(t Theme) bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeAmoled, ThemeCalmBlue, ThemeForestGreen:
		return true
	default:
		return false
	}
}

// IsValidPlan checks if the given plan is supported.
func IsValidPlan(p Plan) bool {
	switch p {
	case PlanFree, PlanPro:
		return true
	default:
		return false
	}
}

// Profile is the singleton user profile.
type Profile struct {
	Name        string    `json:"name"`
	GoalMinutes int       `json:"goal_minutes"`
	Timezone    string    `json:"timezone"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate performs field validation on a Profile.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return ErrEmptyProfileName
	}
	if len(p.Name) > MaxProfileNameLength {
		return ErrProfileNameTooLong
	}
	if p.GoalMinutes < MinGoalMinutes || p.GoalMinutes > MaxGoalMinutes {
		return ErrGoalOutOfRange
	}
	if p.Timezone == "" || len(p.Timezone) > MaxTimezoneLength {
		return ErrInvalidTimezone
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return ErrInvalidTimezone
	}
	return nil
}

// Location resolves the profile timezone, defaulting to UTC on failure.
func (p *Profile) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Settings is the singleton moderation configuration.
type Settings struct {
	StudyMode         bool      `json:"study_mode"`
	WorkMode          bool      `json:"work_mode"`
	SleepMode         bool      `json:"sleep_mode"`
	NudgeEnabled      bool      `json:"nudge_enabled"`
	NudgeThresholdMin int       `json:"nudge_threshold_min"`
	Theme             Theme     `json:"theme"`
	OnboardingDone    bool      `json:"onboarding_done"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Validate performs field validation on Settings.
func (s *Settings) Validate() error {
	if s.NudgeThresholdMin < MinNudgeThresholdMin || s.NudgeThresholdMin > MaxNudgeThresholdMin {
		return ErrThresholdOutOfRange
	}
	if !IsValidTheme(s.Theme) {
		return ErrInvalidTheme
	}
	return nil
}

// Subscription is the singleton plan record.
type Subscription struct {
	Plan        Plan       `json:"plan"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Validate performs field validation on a Subscription.
func (s *Subscription) Validate() error {
	if !IsValidPlan(s.Plan) {
		return ErrInvalidPlan
	}
	return nil
}

// GoalContextFrom derives the engine's read-only inputs from the stored
// profile and settings.
func GoalContextFrom(p Profile, s Settings) GoalContext {
	return GoalContext{
		GoalMinutes:       p.GoalMinutes,
		NudgeThresholdMin: s.NudgeThresholdMin,
		Location:          p.Location(),
	}
}

// Export bundles every stored record for a data-export request.
type Export struct {
	Profile       Profile        `json:"profile"`
	Settings      Settings       `json:"settings"`
	Subscription  Subscription   `json:"subscription"`
	Sessions      []Session      `json:"sessions"`
	FocusSessions []FocusSession `json:"focus_sessions"`
	Nudges        []Nudge        `json:"nudges"`
}
