// Package analyzer implements the rules-based behavior classifier for SMTG.
//
// Analyze is a pure function over an already-materialized window of records:
// it never reads a clock or touches storage, so it is safe to invoke
// concurrently as long as the input window is a consistent snapshot.
package analyzer

import (
	"fmt"
	"math"
	"time"

	"github.com/smtguard/smtg/internal/models"
)

// RiskLevel is the ordinal classification of unhealthy usage patterns.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Rank returns the ordinal rank of the risk level (low < medium < high).
func (r RiskLevel) Rank() int {
	switch r {
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return 0
	}
}

// Late-night window boundaries, in local hours: [22:00, 05:00).
const (
	lateNightStartHour = 22
	lateNightEndHour   = 5
)

// Recommendation rule thresholds.
const (
	scrollBreakThresholdPct   = 60
	lowAcceptRateThreshold    = 0.4
	productivePraiseThreshold = 50
)

// Recommendation messages, appended in fixed rule order.
const (
	RecScrollBreak = "Take a scroll break"
	RecLateNight   = "Avoid late-night sessions"
	RecAcceptNudge = "Try accepting the next nudge"
	RecProductive  = "Great job staying productive"
	RecOnTrack     = "Healthy usage pattern. Keep it up!"
	RecNoActivity  = "No activity recorded yet today."
)

// Weights holds the risk-score weighting constants and level thresholds.
// Product tuning is expected to change these, so they are configuration
// rather than literals; DefaultWeights is calibrated so that the score
// strictly increases with scroll ratio, with late-night presence, and with
// lower nudge acceptance.
type Weights struct {
	Scroll           float64 `json:"scroll"`             // weight on scroll ratio percentage
	LateNight        float64 `json:"late_night"`         // weight on the late-night presence term
	NudgeDecline     float64 `json:"nudge_decline"`      // weight on (1 - accept rate) * 100
	LateNightPenalty float64 `json:"late_night_penalty"` // score term applied when any late-night usage exists
	MediumThreshold  float64 `json:"medium_threshold"`   // R >= MediumThreshold -> at least medium
	HighThreshold    float64 `json:"high_threshold"`     // R >= HighThreshold -> high
}

// DefaultWeights returns the calibrated default weighting.
func DefaultWeights() Weights {
	return Weights{
		Scroll:           0.5,
		LateNight:        0.2,
		NudgeDecline:     0.3,
		LateNightPenalty: 20,
		MediumThreshold:  35,
		HighThreshold:    65,
	}
}

// BehaviorAnalysis is the classifier output for one analysis window.
type BehaviorAnalysis struct {
	ScrollRatioPct     int       `json:"scroll_ratio_pct"`
	ProductiveRatioPct int       `json:"productive_ratio_pct"`
	LateNightMin       int       `json:"late_night_min"`
	NudgeAcceptRate    float64   `json:"nudge_accept_rate"`
	RiskScore          float64   `json:"risk_score"`
	RiskLevel          RiskLevel `json:"risk_level"`
	Recommendations    []string  `json:"recommendations"`
}

// Analyze classifies a window of session and nudge records into a risk level
// with component ratios and an ordered, never-empty recommendation list.
// The location determines the local hour used for the late-night window.
// Malformed records are rejected with a validation error before any
// aggregation; invalid enum values are never silently coerced.
func Analyze(sessions []models.Session, nudges []models.Nudge, goal models.GoalContext, w Weights) (BehaviorAnalysis, error) {
	if err := goal.Validate(); err != nil {
		return BehaviorAnalysis{}, fmt.Errorf("invalid goal context: %w", err)
	}
	for i := range sessions {
		if err := sessions[i].Validate(); err != nil {
			return BehaviorAnalysis{}, fmt.Errorf("invalid session record: %w", err)
		}
	}
	for i := range nudges {
		if err := nudges[i].Validate(); err != nil {
			return BehaviorAnalysis{}, fmt.Errorf("invalid nudge record: %w", err)
		}
	}

	totalMin := 0
	scrollMin := 0
	productiveMin := 0
	lateNightMin := 0
	loc := goal.Loc()
	for _, s := range sessions {
		totalMin += s.DurationMin
		if s.SessionType == models.SessionTypeScroll && !s.Productive {
			scrollMin += s.DurationMin
		}
		if s.Productive {
			productiveMin += s.DurationMin
		}
		if isLateNight(s.OccurredAt.In(loc)) {
			lateNightMin += s.DurationMin
		}
	}

	// No activity yet is an expected, common state, not a failure.
	if totalMin == 0 {
		return BehaviorAnalysis{
			NudgeAcceptRate: 1.0,
			RiskLevel:       RiskLow,
			Recommendations: []string{RecNoActivity},
		}, nil
	}

	scrollPct := ratioPct(scrollMin, totalMin)
	productivePct := ratioPct(productiveMin, totalMin)
	acceptRate := NudgeAcceptRate(nudges)

	lateTerm := 0.0
	if lateNightMin > 0 {
		lateTerm = w.LateNightPenalty
	}
	score := w.Scroll*float64(scrollPct) + w.LateNight*lateTerm + w.NudgeDecline*(1-acceptRate)*100

	// R < medium -> low, medium <= R < high -> medium, R >= high -> high.
	level := RiskLow
	switch {
	case score >= w.HighThreshold:
		level = RiskHigh
	case score >= w.MediumThreshold:
		level = RiskMedium
	}

	return BehaviorAnalysis{
		ScrollRatioPct:     scrollPct,
		ProductiveRatioPct: productivePct,
		LateNightMin:       lateNightMin,
		NudgeAcceptRate:    acceptRate,
		RiskScore:          score,
		RiskLevel:          level,
		Recommendations:    recommendations(scrollPct, productivePct, lateNightMin, acceptRate),
	}, nil
}

// NudgeAcceptRate returns start_focus responses over terminal responses,
// or 1.0 when no nudge has resolved yet: absence of opportunity is never
// penalized.
func NudgeAcceptRate(nudges []models.Nudge) float64 {
	terminal := 0
	accepted := 0
	for _, n := range nudges {
		if !n.Resolved() {
			continue
		}
		terminal++
		if n.Response == models.ResponseStartFocus {
			accepted++
		}
	}
	if terminal == 0 {
		return 1.0
	}
	return float64(accepted) / float64(terminal)
}

// IsLateNight reports whether the instant's local hour falls in [22:00, 05:00).
func IsLateNight(t time.Time, loc *time.Location) bool {
	return isLateNight(t.In(loc))
}

func isLateNight(local time.Time) bool {
	h := local.Hour()
	return h >= lateNightStartHour || h < lateNightEndHour
}

// recommendations builds the ordered recommendation list by testing each
// contributing condition in fixed order. The list is never empty.
func recommendations(scrollPct, productivePct, lateNightMin int, acceptRate float64) []string {
	var recs []string
	if scrollPct >= scrollBreakThresholdPct {
		recs = append(recs, RecScrollBreak)
	}
	if lateNightMin > 0 {
		recs = append(recs, RecLateNight)
	}
	if acceptRate < lowAcceptRateThreshold {
		recs = append(recs, RecAcceptNudge)
	}
	if productivePct >= productivePraiseThreshold {
		recs = append(recs, RecProductive)
	}
	if len(recs) == 0 {
		recs = append(recs, RecOnTrack)
	}
	return recs
}

// ratioPct rounds 100*part/total to the nearest integer, clamped to [0,100].
func ratioPct(part, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(part) / float64(total)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
