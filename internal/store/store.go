// Package store provides storage backends for SMTG records.
//
// Records are append-only facts: sessions, nudges, and focus sessions are
// inserted once and never mutated, except for a nudge's single terminal
// response which is written exactly once. Appends are keyed by caller or
// store assigned IDs so duplicate submission of the same logical record
// never double-counts minutes. Backends exist for SQLite, PostgreSQL, and
// memory.
package store

import (
	"context"
	"time"

	"github.com/smtguard/smtg/internal/models"
)

// Window bounds a record fetch. Zero values leave the bound open.
type Window struct {
	Since time.Time
	Until time.Time
}

// Contains reports whether the instant falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Since.IsZero() && t.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && !t.Before(w.Until) {
		return false
	}
	return true
}

// DayWindow returns the window covering the calendar day of the given
// instant in the given location.
func DayWindow(t time.Time, loc *time.Location) Window {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{Since: start, Until: start.AddDate(0, 0, 1)}
}

// TrailingWindow returns the window covering the trailing number of whole
// calendar days ending with (and including) the day of the given instant.
func TrailingWindow(t time.Time, days int, loc *time.Location) Window {
	day := DayWindow(t, loc)
	return Window{Since: day.Since.AddDate(0, 0, -(days - 1)), Until: day.Until}
}

// Store is the record store consumed by the engine's surrounding layers.
type Store interface {
	AppendSession(ctx context.Context, s models.Session) error
	ListSessions(ctx context.Context, w Window) ([]models.Session, error)

	AppendNudge(ctx context.Context, n models.Nudge) error
	// SetNudgeResponse writes a nudge's single terminal response. It fails
	// with models.ErrInvalidState when the nudge is unknown or has already
	// resolved.
	SetNudgeResponse(ctx context.Context, nudgeID string, response models.NudgeResponse) error
	ListNudges(ctx context.Context, w Window) ([]models.Nudge, error)

	AppendFocusSession(ctx context.Context, f models.FocusSession) error
	ListFocusSessions(ctx context.Context, w Window) ([]models.FocusSession, error)

	GetProfile(ctx context.Context) (models.Profile, error)
	UpdateProfile(ctx context.Context, p models.Profile) error
	GetSettings(ctx context.Context) (models.Settings, error)
	UpdateSettings(ctx context.Context, s models.Settings) error
	GetSubscription(ctx context.Context) (models.Subscription, error)
	UpdateSubscription(ctx context.Context, s models.Subscription) error

	// DeleteAllRecords removes all activity data (sessions, nudges, focus
	// sessions) for a data-deletion request. Profile and settings remain.
	DeleteAllRecords(ctx context.Context) error

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database DSN (file path for SQLite, connection string
// for PostgreSQL).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}
