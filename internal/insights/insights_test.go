package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smtguard/smtg/internal/models"
)

func dismissedNudge(id string, dayOffset int) models.Nudge {
	return models.Nudge{
		ID:            id,
		TriggerReason: models.TriggerScrollThreshold,
		Response:      models.ResponseDismiss,
		OccurredAt:    today.AddDate(0, 0, dayOffset),
	}
}

// weekSessions lays one session per day across the trailing week, oldest
// value first.
func weekSessions(minutes []int) []models.Session {
	sessions := make([]models.Session, 0, len(minutes))
	for i, m := range minutes {
		sessions = append(sessions, daySession(i-(len(minutes)-1), m, false))
	}
	return sessions
}

func TestBuildInsightsWeeklySeries(t *testing.T) {
	history := weekSessions([]int{200, 180, 150, 140, 130, 120, 90})
	nudges := []models.Nudge{dismissedNudge("n1", -2), dismissedNudge("n2", -1)}

	got, err := BuildInsights(history, nudges, testGoal, today)
	require.NoError(t, err)

	assert.Equal(t, []int{200, 180, 150, 140, 130, 120, 90}, got.WeeklyMinutes, "buckets run oldest to newest")
	assert.Equal(t, 0, got.NudgeAcceptRatePct)

	// Each day's baseline averages the preceding observed days, so a falling
	// weekly series produces a rising time-saved series.
	assert.Equal(t, []int{0, 20, 40, 37, 38, 40, 63}, got.TimeSavedWeekly)
	for i := 2; i < len(got.TimeSavedWeekly); i++ {
		assert.GreaterOrEqual(t, got.TimeSavedWeekly[i], got.TimeSavedWeekly[1], "day %d", i)
	}

	assert.Equal(t, SentenceTrendDown, got.AISentence)
}

func TestBuildInsightsTrendUpSentence(t *testing.T) {
	history := weekSessions([]int{60, 70, 80, 120, 150, 170, 200})
	nudges := []models.Nudge{dismissedNudge("n1", -1)}

	got, err := BuildInsights(history, nudges, testGoal, today)
	require.NoError(t, err)
	assert.Equal(t, SentenceTrendUp, got.AISentence)
}

func TestBuildInsightsAcceptanceSentence(t *testing.T) {
	// Flat usage silences the trend signal.
	history := weekSessions([]int{100, 100, 100, 100, 100, 100, 100})
	nudges := []models.Nudge{
		{ID: "n1", TriggerReason: models.TriggerManual, Response: models.ResponseStartFocus, OccurredAt: today.AddDate(0, 0, -1)},
		{ID: "n2", TriggerReason: models.TriggerManual, Response: models.ResponseStartFocus, OccurredAt: today.AddDate(0, 0, -2)},
		{ID: "n3", TriggerReason: models.TriggerManual, Response: models.ResponseDismiss, OccurredAt: today.AddDate(0, 0, -3)},
	}

	got, err := BuildInsights(history, nudges, testGoal, today)
	require.NoError(t, err)
	assert.Equal(t, 67, got.NudgeAcceptRatePct)
	assert.Equal(t, SentenceAcceptance, got.AISentence)
}

func TestBuildInsightsLateNightSentence(t *testing.T) {
	var history []models.Session
	for i := -6; i <= 0; i++ {
		history = append(history, models.Session{
			AppName:     "TestApp",
			SessionType: models.SessionTypeScroll,
			DurationMin: 100,
			OccurredAt:  time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC).AddDate(0, 0, i),
		})
	}
	nudges := []models.Nudge{dismissedNudge("n1", -1)}

	got, err := BuildInsights(history, nudges, testGoal, today)
	require.NoError(t, err)
	assert.Equal(t, SentenceLateNight, got.AISentence)
}

func TestBuildInsightsNoActivity(t *testing.T) {
	got, err := BuildInsights(nil, nil, testGoal, today)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 0}, got.WeeklyMinutes)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 0, 0}, got.TimeSavedWeekly)
	assert.Equal(t, SentenceNoPattern, got.AISentence)
}

func TestBuildInsightsDeterministic(t *testing.T) {
	history := weekSessions([]int{200, 180, 150, 140, 130, 120, 90})
	nudges := []models.Nudge{dismissedNudge("n1", -1)}

	first, err := BuildInsights(history, nudges, testGoal, today)
	require.NoError(t, err)
	second, err := BuildInsights(history, nudges, testGoal, today)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
