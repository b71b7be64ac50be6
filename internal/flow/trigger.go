// Package flow: trigger-condition evaluation over recent session records.
package flow

import (
	"sort"
	"time"

	"github.com/smtguard/smtg/internal/analyzer"
	"github.com/smtguard/smtg/internal/models"
)

// TriggerContext carries everything a trigger decision needs. The reference
// instant is explicit so evaluation stays deterministic and testable.
type TriggerContext struct {
	Recent []models.Session
	Goal   models.GoalContext
	Now    time.Time
}

// Evaluate decides whether a trigger condition holds for the recent window.
// Scroll-threshold wins over late-night when both hold.
func (tc TriggerContext) Evaluate() (models.TriggerReason, bool) {
	if ContiguousScrollMinutes(tc.Recent) >= tc.Goal.NudgeThresholdMin {
		return models.TriggerScrollThreshold, true
	}
	if analyzer.IsLateNight(tc.Now, tc.Goal.Loc()) && tc.hasLateNightUsage() {
		return models.TriggerLateNight, true
	}
	return "", false
}

// hasLateNightUsage reports whether any recent session itself fell in the
// late-night window. Daytime usage alone never arms the late-night trigger.
func (tc TriggerContext) hasLateNightUsage() bool {
	loc := tc.Goal.Loc()
	for _, s := range tc.Recent {
		if analyzer.IsLateNight(s.OccurredAt, loc) {
			return true
		}
	}
	return false
}

// ContiguousScrollMinutes sums the trailing run of unproductive scroll
// sessions, newest first. The run breaks at the first session of any other
// kind. Input may be unsorted; records are ordered internally.
func ContiguousScrollMinutes(sessions []models.Session) int {
	sorted := make([]models.Session, len(sessions))
	copy(sorted, sessions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.After(sorted[j].OccurredAt)
	})

	total := 0
	for _, s := range sorted {
		if s.SessionType != models.SessionTypeScroll || s.Productive {
			break
		}
		total += s.DurationMin
	}
	return total
}
