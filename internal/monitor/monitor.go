// Package monitor provides periodic trigger evaluation for SMTG.
//
// It polls the record store on a cron schedule, evaluates the nudge trigger
// conditions against the recent window, and files nudges through the
// intervention flow. The flow's own suppression rule keeps repeated
// evaluations from stacking up pending nudges.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/smtguard/smtg/internal/flow"
	"github.com/smtguard/smtg/internal/models"
	"github.com/smtguard/smtg/internal/store"
)

// DefaultCronSpec evaluates trigger conditions every five minutes.
const DefaultCronSpec = "*/5 * * * *"

// DefaultUserID identifies the single local user of this deployment.
const DefaultUserID = "local"

// Monitor runs scheduled trigger evaluation.
type Monitor struct {
	store store.Store
	flow  *flow.NudgeFlow
	cron  *cron.Cron
	spec  string
}

// New creates a Monitor with the given cron spec; an empty spec selects
// DefaultCronSpec.
func New(st store.Store, nf *flow.NudgeFlow, spec string) *Monitor {
	if spec == "" {
		spec = DefaultCronSpec
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Monitor{store: st, flow: nf, cron: c, spec: spec}
}

// Start registers the evaluation job and starts the scheduler.
func (m *Monitor) Start() error {
	if _, err := m.cron.AddFunc(m.spec, func() {
		m.Evaluate(context.Background(), time.Now())
	}); err != nil {
		return err
	}
	m.cron.Start()
	slog.Info("Monitor started", "spec", m.spec)
	return nil
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (m *Monitor) Stop() {
	m.cron.Stop()
	slog.Info("Monitor stopped")
}

// Evaluate runs one trigger evaluation pass against the store at the given
// reference instant. Exported so the API layer and tests can drive a pass
// directly.
func (m *Monitor) Evaluate(ctx context.Context, now time.Time) {
	profile, err := m.store.GetProfile(ctx)
	if err != nil {
		slog.Error("Monitor.Evaluate: profile read failed", "error", err)
		return
	}
	settings, err := m.store.GetSettings(ctx)
	if err != nil {
		slog.Error("Monitor.Evaluate: settings read failed", "error", err)
		return
	}
	if !settings.NudgeEnabled {
		slog.Debug("Monitor.Evaluate: nudges disabled, skipping")
		return
	}

	goal := models.GoalContextFrom(profile, settings)
	recent, err := m.store.ListSessions(ctx, store.DayWindow(now, goal.Loc()))
	if err != nil {
		slog.Error("Monitor.Evaluate: session read failed", "error", err)
		return
	}

	nudge, err := m.flow.Trigger(ctx, DefaultUserID, flow.TriggerContext{
		Recent: recent,
		Goal:   goal,
		Now:    now,
	})
	if err != nil {
		slog.Error("Monitor.Evaluate: trigger failed", "error", err)
		return
	}
	if nudge != nil {
		slog.Info("Monitor.Evaluate: nudge filed", "nudgeID", nudge.ID, "reason", nudge.TriggerReason)
	}
}
