// Package store: in-memory backend used in tests and as a dev fallback.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smtguard/smtg/internal/models"
)

// InMemoryStore is a mutex-guarded store backend holding all records in
// process memory.
type InMemoryStore struct {
	mu            sync.RWMutex
	sessions      []models.Session
	nudges        []models.Nudge
	focusSessions []models.FocusSession
	profile       models.Profile
	settings      models.Settings
	subscription  models.Subscription
	seen          map[string]bool
}

// NewInMemoryStore creates an in-memory store pre-populated with the default
// singleton profile, settings, and subscription rows.
func NewInMemoryStore() *InMemoryStore {
	now := time.Now().UTC()
	trialEnds := now.AddDate(0, 0, models.TrialDays)
	return &InMemoryStore{
		profile: models.Profile{
			Name:        "User",
			GoalMinutes: models.DefaultGoalMinutes,
			Timezone:    "UTC",
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		settings: models.Settings{
			StudyMode:         true,
			WorkMode:          true,
			SleepMode:         true,
			NudgeEnabled:      true,
			NudgeThresholdMin: models.DefaultNudgeThreshold,
			Theme:             models.ThemeLight,
			UpdatedAt:         now,
		},
		subscription: models.Subscription{
			Plan:        models.PlanFree,
			TrialEndsAt: &trialEnds,
			UpdatedAt:   now,
		},
		seen: make(map[string]bool),
	}
}

// dedupe marks an ID as seen and reports whether it was already present.
// Blank IDs are replaced with a fresh UUID and never collide.
func (s *InMemoryStore) dedupe(id *string) bool {
	if *id == "" {
		*id = uuid.NewString()
	}
	if s.seen[*id] {
		return true
	}
	s.seen[*id] = true
	return false
}

func (s *InMemoryStore) AppendSession(ctx context.Context, sess models.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dedupe(&sess.ID) {
		return nil
	}
	s.sessions = append(s.sessions, sess)
	return nil
}

func (s *InMemoryStore) ListSessions(ctx context.Context, w Window) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Session
	for _, sess := range s.sessions {
		if w.Contains(sess.OccurredAt) {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (s *InMemoryStore) AppendNudge(ctx context.Context, n models.Nudge) error {
	if err := n.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dedupe(&n.ID) {
		return nil
	}
	s.nudges = append(s.nudges, n)
	return nil
}

func (s *InMemoryStore) SetNudgeResponse(ctx context.Context, nudgeID string, response models.NudgeResponse) error {
	if !models.IsTerminalNudgeResponse(response) {
		return models.ErrInvalidNudgeResponse
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.nudges {
		if s.nudges[i].ID != nudgeID {
			continue
		}
		if s.nudges[i].Resolved() {
			return fmt.Errorf("nudge %s already resolved: %w", nudgeID, models.ErrInvalidState)
		}
		s.nudges[i].Response = response
		return nil
	}
	return fmt.Errorf("nudge %s not found: %w", nudgeID, models.ErrInvalidState)
}

func (s *InMemoryStore) ListNudges(ctx context.Context, w Window) ([]models.Nudge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Nudge
	for _, n := range s.nudges {
		if w.Contains(n.OccurredAt) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *InMemoryStore) AppendFocusSession(ctx context.Context, f models.FocusSession) error {
	if err := f.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dedupe(&f.ID) {
		return nil
	}
	s.focusSessions = append(s.focusSessions, f)
	return nil
}

func (s *InMemoryStore) ListFocusSessions(ctx context.Context, w Window) ([]models.FocusSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.FocusSession
	for _, f := range s.focusSessions {
		if w.Contains(f.OccurredAt) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *InMemoryStore) GetProfile(ctx context.Context) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile, nil
}

func (s *InMemoryStore) UpdateProfile(ctx context.Context, p models.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.CreatedAt = s.profile.CreatedAt
	s.profile = p
	return nil
}

func (s *InMemoryStore) GetSettings(ctx context.Context) (models.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *InMemoryStore) UpdateSettings(ctx context.Context, set models.Settings) error {
	if err := set.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = set
	return nil
}

func (s *InMemoryStore) GetSubscription(ctx context.Context) (models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscription, nil
}

func (s *InMemoryStore) UpdateSubscription(ctx context.Context, sub models.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscription = sub
	return nil
}

func (s *InMemoryStore) DeleteAllRecords(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = nil
	s.nudges = nil
	s.focusSessions = nil
	s.seen = make(map[string]bool)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
