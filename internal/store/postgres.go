// Package store: PostgreSQL-backed record store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/smtguard/smtg/internal/models"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is a PostgreSQL-backed Store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AppendSession(ctx context.Context, sess models.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, app_name, session_type, duration_min, productive, occurred_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING`,
		sess.ID, sess.AppName, string(sess.SessionType), sess.DurationMin, sess.Productive, sess.OccurredAt.UTC())
	if err != nil {
		slog.Error("PostgresStore AppendSession failed", "error", err, "id", sess.ID)
		return fmt.Errorf("failed to insert session %s: %w", sess.ID, err)
	}
	slog.Debug("PostgresStore AppendSession succeeded", "id", sess.ID, "app", sess.AppName)
	return nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, w Window) ([]models.Session, error) {
	query, args := windowQuery(
		`SELECT id, app_name, session_type, duration_min, productive, occurred_at FROM sessions`, w, "$")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("PostgresStore ListSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var sess models.Session
		var st string
		if err := rows.Scan(&sess.ID, &sess.AppName, &st, &sess.DurationMin, &sess.Productive, &sess.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sess.SessionType = models.SessionType(st)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	slog.Debug("PostgresStore ListSessions succeeded", "count", len(sessions))
	return sessions, nil
}

func (s *PostgresStore) AppendNudge(ctx context.Context, n models.Nudge) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO nudges (id, trigger_reason, response, occurred_at) VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
		n.ID, string(n.TriggerReason), string(n.Response), n.OccurredAt.UTC())
	if err != nil {
		slog.Error("PostgresStore AppendNudge failed", "error", err, "id", n.ID)
		return fmt.Errorf("failed to insert nudge %s: %w", n.ID, err)
	}
	slog.Debug("PostgresStore AppendNudge succeeded", "id", n.ID, "reason", n.TriggerReason)
	return nil
}

func (s *PostgresStore) SetNudgeResponse(ctx context.Context, nudgeID string, response models.NudgeResponse) error {
	if !models.IsTerminalNudgeResponse(response) {
		return models.ErrInvalidNudgeResponse
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE nudges SET response = $1 WHERE id = $2 AND response = $3`,
		string(response), nudgeID, string(models.ResponsePending))
	if err != nil {
		slog.Error("PostgresStore SetNudgeResponse failed", "error", err, "id", nudgeID)
		return fmt.Errorf("failed to update nudge %s: %w", nudgeID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result for nudge %s: %w", nudgeID, err)
	}
	if affected == 0 {
		slog.Warn("PostgresStore SetNudgeResponse: nudge missing or already resolved", "id", nudgeID)
		return fmt.Errorf("nudge %s missing or already resolved: %w", nudgeID, models.ErrInvalidState)
	}
	slog.Debug("PostgresStore SetNudgeResponse succeeded", "id", nudgeID, "response", response)
	return nil
}

func (s *PostgresStore) ListNudges(ctx context.Context, w Window) ([]models.Nudge, error) {
	query, args := windowQuery(`SELECT id, trigger_reason, response, occurred_at FROM nudges`, w, "$")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("PostgresStore ListNudges query failed", "error", err)
		return nil, fmt.Errorf("failed to query nudges: %w", err)
	}
	defer rows.Close()

	var nudges []models.Nudge
	for rows.Next() {
		var n models.Nudge
		var reason, response string
		if err := rows.Scan(&n.ID, &reason, &response, &n.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan nudge row: %w", err)
		}
		n.TriggerReason = models.TriggerReason(reason)
		n.Response = models.NudgeResponse(response)
		nudges = append(nudges, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nudge rows: %w", err)
	}
	slog.Debug("PostgresStore ListNudges succeeded", "count", len(nudges))
	return nudges, nil
}

func (s *PostgresStore) AppendFocusSession(ctx context.Context, f models.FocusSession) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO focus_sessions (id, planned_min, completed_min, accepted_from_nudge, occurred_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
		f.ID, f.PlannedMin, f.CompletedMin, f.AcceptedFromNudge, f.OccurredAt.UTC())
	if err != nil {
		slog.Error("PostgresStore AppendFocusSession failed", "error", err, "id", f.ID)
		return fmt.Errorf("failed to insert focus session %s: %w", f.ID, err)
	}
	slog.Debug("PostgresStore AppendFocusSession succeeded", "id", f.ID, "completedMin", f.CompletedMin)
	return nil
}

func (s *PostgresStore) ListFocusSessions(ctx context.Context, w Window) ([]models.FocusSession, error) {
	query, args := windowQuery(
		`SELECT id, planned_min, completed_min, accepted_from_nudge, occurred_at FROM focus_sessions`, w, "$")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Error("PostgresStore ListFocusSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query focus sessions: %w", err)
	}
	defer rows.Close()

	var focusSessions []models.FocusSession
	for rows.Next() {
		var f models.FocusSession
		if err := rows.Scan(&f.ID, &f.PlannedMin, &f.CompletedMin, &f.AcceptedFromNudge, &f.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan focus session row: %w", err)
		}
		focusSessions = append(focusSessions, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate focus session rows: %w", err)
	}
	slog.Debug("PostgresStore ListFocusSessions succeeded", "count", len(focusSessions))
	return focusSessions, nil
}

func (s *PostgresStore) GetProfile(ctx context.Context) (models.Profile, error) {
	var p models.Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT name, goal_minutes, timezone, created_at, updated_at FROM profile WHERE id = 1`).
		Scan(&p.Name, &p.GoalMinutes, &p.Timezone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore GetProfile failed", "error", err)
		return p, fmt.Errorf("failed to read profile: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, p models.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE profile SET name = $1, goal_minutes = $2, timezone = $3, updated_at = $4 WHERE id = 1`,
		p.Name, p.GoalMinutes, p.Timezone, time.Now().UTC())
	if err != nil {
		slog.Error("PostgresStore UpdateProfile failed", "error", err)
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSettings(ctx context.Context) (models.Settings, error) {
	var set models.Settings
	var theme string
	err := s.db.QueryRowContext(ctx,
		`SELECT study_mode, work_mode, sleep_mode, nudge_enabled, nudge_threshold_min, theme, onboarding_done, updated_at FROM settings WHERE id = 1`).
		Scan(&set.StudyMode, &set.WorkMode, &set.SleepMode, &set.NudgeEnabled, &set.NudgeThresholdMin, &theme, &set.OnboardingDone, &set.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore GetSettings failed", "error", err)
		return set, fmt.Errorf("failed to read settings: %w", err)
	}
	set.Theme = models.Theme(theme)
	return set, nil
}

func (s *PostgresStore) UpdateSettings(ctx context.Context, set models.Settings) error {
	if err := set.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE settings SET study_mode = $1, work_mode = $2, sleep_mode = $3, nudge_enabled = $4, nudge_threshold_min = $5, theme = $6, onboarding_done = $7, updated_at = $8 WHERE id = 1`,
		set.StudyMode, set.WorkMode, set.SleepMode, set.NudgeEnabled, set.NudgeThresholdMin, string(set.Theme), set.OnboardingDone, time.Now().UTC())
	if err != nil {
		slog.Error("PostgresStore UpdateSettings failed", "error", err)
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSubscription(ctx context.Context) (models.Subscription, error) {
	var sub models.Subscription
	var plan string
	var trial sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT plan, trial_ends_at, updated_at FROM subscription WHERE id = 1`).
		Scan(&plan, &trial, &sub.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore GetSubscription failed", "error", err)
		return sub, fmt.Errorf("failed to read subscription: %w", err)
	}
	sub.Plan = models.Plan(plan)
	if trial.Valid {
		sub.TrialEndsAt = &trial.Time
	}
	return sub, nil
}

func (s *PostgresStore) UpdateSubscription(ctx context.Context, sub models.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE subscription SET plan = $1, trial_ends_at = $2, updated_at = $3 WHERE id = 1`,
		string(sub.Plan), nullableTime(sub.TrialEndsAt), time.Now().UTC())
	if err != nil {
		slog.Error("PostgresStore UpdateSubscription failed", "error", err)
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteAllRecords(ctx context.Context) error {
	for _, table := range []string{"sessions", "nudges", "focus_sessions"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			slog.Error("PostgresStore DeleteAllRecords failed", "error", err, "table", table)
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}
	slog.Info("PostgresStore DeleteAllRecords succeeded")
	return nil
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
