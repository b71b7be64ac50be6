// Package store: demo data seeding for first-run installs.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/smtguard/smtg/internal/models"
)

// seedSession is one row of the demo data set.
type seedSession struct {
	app        string
	kind       models.SessionType
	minutes    int
	productive bool
}

// demoSessions is the fixed demo window: one session per day over the prior
// six days, giving a fresh install something to chart.
var demoSessions = []seedSession{
	{"Instagram", models.SessionTypeScroll, 28, false},
	{"YouTube", models.SessionTypeOther, 20, false},
	{"Docs", models.SessionTypeProductive, 50, true},
	{"TikTok", models.SessionTypeScroll, 32, false},
	{"Chrome", models.SessionTypeOther, 25, true},
	{"Instagram", models.SessionTypeScroll, 18, false},
}

// SeedDemoData inserts the demo session set when the store holds no session
// records yet. Safe to call on every startup.
func SeedDemoData(ctx context.Context, s Store, now time.Time) error {
	existing, err := s.ListSessions(ctx, Window{})
	if err != nil {
		return fmt.Errorf("failed to check for existing sessions: %w", err)
	}
	if len(existing) > 0 {
		slog.Debug("SeedDemoData: sessions already present, skipping", "count", len(existing))
		return nil
	}

	start := now.AddDate(0, 0, -6)
	for i, seed := range demoSessions {
		sess := models.Session{
			ID:          fmt.Sprintf("seed_%d", i+1),
			AppName:     seed.app,
			SessionType: seed.kind,
			DurationMin: seed.minutes,
			Productive:  seed.productive,
			OccurredAt:  start.AddDate(0, 0, i).Add(3 * time.Hour),
		}
		if err := s.AppendSession(ctx, sess); err != nil {
			return fmt.Errorf("failed to seed session %s: %w", sess.ID, err)
		}
	}
	slog.Info("SeedDemoData: demo sessions inserted", "count", len(demoSessions))
	return nil
}
