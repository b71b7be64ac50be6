// Package insights: weekly trend, time-saved, and insight-sentence builders.
package insights

import (
	"fmt"
	"math"
	"time"

	"github.com/smtguard/smtg/internal/analyzer"
	"github.com/smtguard/smtg/internal/models"
)

// WeekDays is the length of the insight window.
const WeekDays = 7

// BaselineDays is the rolling-baseline lookback used for time-saved values.
const BaselineDays = 14

// Insight sentence templates. One fixed template per signal; selection is a
// pure priority lookup so identical inputs always render identical output.
const (
	SentenceTrendDown  = "Your daily usage is trending down this week. Nice momentum."
	SentenceTrendUp    = "Your daily usage is trending up this week. Consider tightening your goal."
	SentenceAcceptance = "You act on most nudges. Focus sessions are working for you."
	SentenceLateNight  = "A large share of your usage happens late at night."
	SentenceNoPattern  = "Not enough activity this week to spot a pattern yet."
)

// highAcceptanceThresholdPct is the accept rate above which nudge acceptance
// counts as an insight signal.
const highAcceptanceThresholdPct = 60

// Insights is the longitudinal summary for the trailing week.
type Insights struct {
	WeeklyMinutes      []int  `json:"weekly_minutes"`    // oldest to newest, one per calendar day
	TimeSavedWeekly    []int  `json:"time_saved_weekly"` // minutes saved vs personal baseline
	NudgeAcceptRatePct int    `json:"nudge_accept_rate"`
	AISentence         string `json:"ai_sentence"`
}

// BuildInsights derives the weekly usage series, per-day time saved against
// the personal 14-day rolling baseline, the nudge acceptance percentage, and
// a deterministic natural-language insight sentence.
//
// history should cover the trailing week plus up to BaselineDays before it;
// records outside that range are ignored. The reference instant `today`
// anchors the newest bucket in the goal context's location.
func BuildInsights(history []models.Session, nudges []models.Nudge, goal models.GoalContext, today time.Time) (Insights, error) {
	if err := goal.Validate(); err != nil {
		return Insights{}, fmt.Errorf("invalid goal context: %w", err)
	}
	for i := range history {
		if err := history[i].Validate(); err != nil {
			return Insights{}, fmt.Errorf("invalid session record: %w", err)
		}
	}
	for i := range nudges {
		if err := nudges[i].Validate(); err != nil {
			return Insights{}, fmt.Errorf("invalid nudge record: %w", err)
		}
	}

	loc := goal.Loc()
	minutesByDay := make(map[time.Time]int)
	lateNightMin := 0
	totalMin := 0
	for _, s := range history {
		minutesByDay[dayOf(s.OccurredAt, loc)] += s.DurationMin
		totalMin += s.DurationMin
		if analyzer.IsLateNight(s.OccurredAt, loc) {
			lateNightMin += s.DurationMin
		}
	}

	todayDay := dayOf(today, loc)
	weekStart := todayDay.AddDate(0, 0, -(WeekDays - 1))

	weekly := make([]int, WeekDays)
	weekTotal := 0
	for i := 0; i < WeekDays; i++ {
		weekly[i] = minutesByDay[weekStart.AddDate(0, 0, i)]
		weekTotal += weekly[i]
	}
	weekAvg := float64(weekTotal) / WeekDays

	saved := make([]int, WeekDays)
	for i := 0; i < WeekDays; i++ {
		day := weekStart.AddDate(0, 0, i)
		baseline := rollingBaseline(minutesByDay, day, weekAvg)
		saved[i] = int(math.Max(0, math.Round(baseline-float64(weekly[i]))))
	}

	acceptPct := int(math.Round(analyzer.NudgeAcceptRate(nudges) * 100))

	return Insights{
		WeeklyMinutes:      weekly,
		TimeSavedWeekly:    saved,
		NudgeAcceptRatePct: acceptPct,
		AISentence:         insightSentence(weekly, weekTotal, acceptPct, lateNightMin, totalMin),
	}, nil
}

// rollingBaseline averages daily usage over the BaselineDays days before the
// given day, counting only days with recorded activity. Absent any such
// history the current week's own average stands in, so time saved always
// measures reduction against the user's own behavior.
func rollingBaseline(minutesByDay map[time.Time]int, day time.Time, weekAvg float64) float64 {
	sum := 0
	observed := 0
	for i := 1; i <= BaselineDays; i++ {
		if mins, ok := minutesByDay[day.AddDate(0, 0, -i)]; ok && mins > 0 {
			sum += mins
			observed++
		}
	}
	if observed == 0 {
		return weekAvg
	}
	return float64(sum) / float64(observed)
}

// insightSentence selects the single highest-magnitude signal among the
// weekly trend, nudge acceptance, and late-night share, and renders its
// fixed template. Ties resolve in that priority order.
func insightSentence(weekly []int, weekTotal, acceptPct, lateNightMin, totalMin int) string {
	if weekTotal == 0 {
		return SentenceNoPattern
	}

	// Percent change between the first and last thirds of the week.
	firstAvg := float64(weekly[0]+weekly[1]+weekly[2]) / 3
	lastAvg := float64(weekly[4]+weekly[5]+weekly[6]) / 3
	trendPct := 0.0
	if firstAvg > 0 {
		trendPct = 100 * (lastAvg - firstAvg) / firstAvg
	} else if lastAvg > 0 {
		trendPct = 100
	}

	acceptSignal := 0.0
	if acceptPct >= highAcceptanceThresholdPct {
		acceptSignal = float64(acceptPct)
	}

	lateSignal := 0.0
	if totalMin > 0 {
		lateSignal = 100 * float64(lateNightMin) / float64(totalMin)
	}

	trendSignal := math.Abs(trendPct)
	switch {
	case trendSignal >= acceptSignal && trendSignal >= lateSignal && trendSignal > 0:
		if trendPct < 0 {
			return SentenceTrendDown
		}
		return SentenceTrendUp
	case acceptSignal >= lateSignal && acceptSignal > 0:
		return SentenceAcceptance
	case lateSignal > 0:
		return SentenceLateNight
	default:
		return SentenceNoPattern
	}
}
