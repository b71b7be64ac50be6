// Package notify: Twilio SMS delivery channel for nudge prompts.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/smtguard/smtg/internal/models"
)

// phoneNumberRegex strips everything but digits during canonicalization.
var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// Opts holds configuration options for the Twilio SMS notifier.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	ToNumber   string
}

// Option defines a configuration option for the Twilio SMS notifier.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the sending phone number.
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// WithToNumber sets the user's phone number.
func WithToNumber(to string) Option {
	return func(o *Opts) { o.ToNumber = to }
}

// TwilioNotifier sends nudge prompts as SMS messages via the Twilio API.
type TwilioNotifier struct {
	client *twilio.RestClient
	from   string
	to     string
}

// NewTwilioNotifier creates a Twilio-backed notifier. Options fall back to
// the TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_FROM_NUMBER, and
// SMTG_NUDGE_TO_NUMBER environment variables.
func NewTwilioNotifier(opts ...Option) (*TwilioNotifier, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	if cfg.ToNumber == "" {
		cfg.ToNumber = os.Getenv("SMTG_NUDGE_TO_NUMBER")
	}
	slog.Debug("Twilio notifier config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromNumber_set", cfg.FromNumber != "",
		"ToNumber_set", cfg.ToNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" || cfg.ToNumber == "" {
		return nil, fmt.Errorf("from and to numbers must be provided")
	}

	to, err := CanonicalizeNumber(cfg.ToNumber)
	if err != nil {
		return nil, fmt.Errorf("invalid destination number: %w", err)
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})

	return &TwilioNotifier{client: client, from: cfg.FromNumber, to: "+" + to}, nil
}

// CanonicalizeNumber strips non-digits and validates the result has at
// least 6 digits.
func CanonicalizeNumber(number string) (string, error) {
	if number == "" {
		return "", fmt.Errorf("phone number cannot be empty")
	}
	canonical := phoneNumberRegex.ReplaceAllString(number, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in %q", number)
	}
	if len(canonical) < 6 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits required)", canonical)
	}
	if canonical != number {
		slog.Debug("TwilioNotifier canonicalized number", "original", number, "canonical", canonical)
	}
	return canonical, nil
}

// NotifyNudge sends the nudge's fixed prompt text as an SMS.
func (t *TwilioNotifier) NotifyNudge(ctx context.Context, n models.Nudge) error {
	body := MessageFor(n)
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(t.to)
	params.SetFrom(t.from)
	params.SetBody(body)

	if _, err := t.client.Api.CreateMessage(params); err != nil {
		slog.Error("TwilioNotifier NotifyNudge failed", "error", err, "nudgeID", n.ID)
		return fmt.Errorf("failed to send nudge SMS: %w", err)
	}
	slog.Info("TwilioNotifier NotifyNudge succeeded", "nudgeID", n.ID, "reason", n.TriggerReason)
	return nil
}
