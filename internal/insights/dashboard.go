// Package insights implements the dashboard and longitudinal-insight
// aggregators for SMTG.
//
// All functions here are pure computations over already-materialized record
// windows. Time-dependent rules take the reference instant and timezone as
// explicit parameters and never read a global clock.
package insights

import (
	"fmt"
	"math"
	"time"

	"github.com/smtguard/smtg/internal/models"
)

// History is the recent record window consumed by streak computation.
type History struct {
	Sessions      []models.Session
	FocusSessions []models.FocusSession
}

// Dashboard is the daily summary shown on the home screen.
type Dashboard struct {
	UsedMinutes int `json:"used_minutes"`
	FocusScore  int `json:"focus_score"`
	StreakDays  int `json:"streak_days"`
}

// BuildDashboard derives today's usage total, the composite focus score, and
// the qualifying-day streak from today's sessions and the recent history.
// The reference instant `today` anchors calendar-day bucketing in the goal
// context's location.
func BuildDashboard(sessionsToday []models.Session, history History, goal models.GoalContext, today time.Time) (Dashboard, error) {
	if err := goal.Validate(); err != nil {
		return Dashboard{}, fmt.Errorf("invalid goal context: %w", err)
	}
	for i := range sessionsToday {
		if err := sessionsToday[i].Validate(); err != nil {
			return Dashboard{}, fmt.Errorf("invalid session record: %w", err)
		}
	}
	for i := range history.Sessions {
		if err := history.Sessions[i].Validate(); err != nil {
			return Dashboard{}, fmt.Errorf("invalid history session record: %w", err)
		}
	}
	for i := range history.FocusSessions {
		if err := history.FocusSessions[i].Validate(); err != nil {
			return Dashboard{}, fmt.Errorf("invalid focus session record: %w", err)
		}
	}

	used := 0
	productiveMin := 0
	for _, s := range sessionsToday {
		used += s.DurationMin
		if s.Productive {
			productiveMin += s.DurationMin
		}
	}

	// Focus score blends goal adherence and productive ratio, 50% each.
	adherence := 0.0
	if goal.GoalMinutes > 0 {
		adherence = clamp(100*(1-float64(used)/float64(goal.GoalMinutes)), 0, 100)
	}
	productivePct := 0.0
	if used > 0 {
		productivePct = clamp(100*float64(productiveMin)/float64(used), 0, 100)
	}
	score := int(math.Round(0.5*adherence + 0.5*productivePct))

	return Dashboard{
		UsedMinutes: used,
		FocusScore:  score,
		StreakDays:  streakDays(sessionsToday, history, goal, today),
	}, nil
}

// streakDays counts consecutive qualifying calendar days, walking backward
// from yesterday, then adds one when today already qualifies. A day
// qualifies when its usage stayed within the goal or at least one focus
// session ran to completion. The walk is bounded by the earliest day present
// in the history window; the streak breaks on the first non-qualifying day.
func streakDays(sessionsToday []models.Session, history History, goal models.GoalContext, today time.Time) int {
	loc := goal.Loc()
	usedByDay := make(map[time.Time]int)
	completedByDay := make(map[time.Time]bool)

	earliest := dayOf(today, loc)
	observe := func(day time.Time) {
		if day.Before(earliest) {
			earliest = day
		}
	}
	for _, s := range history.Sessions {
		day := dayOf(s.OccurredAt, loc)
		usedByDay[day] += s.DurationMin
		observe(day)
	}
	for _, f := range history.FocusSessions {
		day := dayOf(f.OccurredAt, loc)
		if f.Completed() {
			completedByDay[day] = true
		}
		observe(day)
	}

	todayDay := dayOf(today, loc)
	qualifies := func(day time.Time) bool {
		return usedByDay[day] <= goal.GoalMinutes || completedByDay[day]
	}

	streak := 0
	for day := todayDay.AddDate(0, 0, -1); !day.Before(earliest); day = day.AddDate(0, 0, -1) {
		if !qualifies(day) {
			break
		}
		streak++
	}

	usedToday := 0
	completedToday := completedByDay[todayDay]
	for _, s := range sessionsToday {
		usedToday += s.DurationMin
	}
	if usedToday <= goal.GoalMinutes || completedToday {
		streak++
	}
	return streak
}

// dayOf truncates an instant to its calendar day in the given location.
func dayOf(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
