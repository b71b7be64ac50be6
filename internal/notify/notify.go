// Package notify delivers nudge prompts to the user over an out-of-band
// channel. Delivery is best-effort: the intervention flow never blocks on it.
package notify

import (
	"context"

	"github.com/smtguard/smtg/internal/models"
)

// Nudge message templates, one fixed template per trigger reason so
// delivery content is deterministic given the same nudge.
const (
	MsgScrollThreshold = "You've been scrolling for a while. Start a 15-minute focus session?"
	MsgLateNight       = "It's late. Wind down with a focus session before bed?"
	MsgManual          = "Ready for a focus session?"
)

// Notifier delivers a nudge prompt to the user.
type Notifier interface {
	NotifyNudge(ctx context.Context, n models.Nudge) error
}

// MessageFor renders the fixed prompt text for a nudge.
func MessageFor(n models.Nudge) string {
	switch n.TriggerReason {
	case models.TriggerScrollThreshold:
		return MsgScrollThreshold
	case models.TriggerLateNight:
		return MsgLateNight
	default:
		return MsgManual
	}
}

// NoopNotifier discards all notifications. Used when no delivery channel is
// configured; the nudge still reaches the client by polling the API.
type NoopNotifier struct{}

// NotifyNudge implements Notifier.
func (NoopNotifier) NotifyNudge(ctx context.Context, n models.Nudge) error {
	return nil
}
