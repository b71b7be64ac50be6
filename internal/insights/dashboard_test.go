package insights

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smtguard/smtg/internal/models"
)

var testGoal = models.GoalContext{GoalMinutes: 120, NudgeThresholdMin: 18}

var today = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func daySession(dayOffset, minutes int, productive bool) models.Session {
	return models.Session{
		AppName:     "TestApp",
		SessionType: models.SessionTypeOther,
		DurationMin: minutes,
		Productive:  productive,
		OccurredAt:  today.AddDate(0, 0, dayOffset),
	}
}

func TestBuildDashboardFocusScore(t *testing.T) {
	sessions := []models.Session{
		daySession(0, 30, true),
		daySession(0, 30, false),
	}
	got, err := BuildDashboard(sessions, History{}, testGoal, today)
	require.NoError(t, err)

	assert.Equal(t, 60, got.UsedMinutes)
	// Adherence 100*(1-60/120)=50, productive share 50, blended 50/50.
	assert.Equal(t, 50, got.FocusScore)
}

func TestBuildDashboardNoUsageToday(t *testing.T) {
	got, err := BuildDashboard(nil, History{}, testGoal, today)
	require.NoError(t, err)

	assert.Equal(t, 0, got.UsedMinutes)
	// Full adherence, no productive share to blend in.
	assert.Equal(t, 50, got.FocusScore)
	assert.Equal(t, 1, got.StreakDays, "an untouched day still qualifies")
}

func TestStreakCountsBackToFirstFailure(t *testing.T) {
	history := History{
		Sessions: []models.Session{
			daySession(-1, 100, false),
			daySession(-2, 90, false),
			daySession(-3, 110, false),
			daySession(-4, 40, false),
			daySession(-5, 200, false), // over goal, breaks the walk
			daySession(-6, 30, false),  // unreachable behind the break
		},
	}
	sessionsToday := []models.Session{daySession(0, 50, true)}

	got, err := BuildDashboard(sessionsToday, history, testGoal, today)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StreakDays, "four qualifying prior days plus today")
}

func TestStreakOverGoalDayRescuedByCompletedFocus(t *testing.T) {
	history := History{
		Sessions: []models.Session{daySession(-1, 200, false)},
		FocusSessions: []models.FocusSession{{
			ID:           "f1",
			PlannedMin:   15,
			CompletedMin: 15,
			OccurredAt:   today.AddDate(0, 0, -1),
		}},
	}
	got, err := BuildDashboard(nil, history, testGoal, today)
	require.NoError(t, err)
	assert.Equal(t, 2, got.StreakDays, "completed focus session rescues an over-goal day")

	// Without the completed session the same day breaks the streak.
	history.FocusSessions = nil
	got, err = BuildDashboard(nil, history, testGoal, today)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StreakDays)
}

func TestStreakTodayOverGoal(t *testing.T) {
	sessionsToday := []models.Session{daySession(0, 300, false)}
	history := History{Sessions: []models.Session{
		daySession(-1, 50, false),
		daySession(-2, 60, false),
		daySession(-3, 70, false),
		daySession(-4, 80, false),
		daySession(-5, 90, false),
	}}

	got, err := BuildDashboard(sessionsToday, history, testGoal, today)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StreakDays, "today over goal does not extend the streak")
}

func TestBuildDashboardRejectsMalformedRecords(t *testing.T) {
	bad := models.Session{AppName: "X", SessionType: "nope", DurationMin: 10, OccurredAt: today}
	_, err := BuildDashboard([]models.Session{bad}, History{}, testGoal, today)
	assert.ErrorIs(t, err, models.ErrInvalidSessionType)
}
