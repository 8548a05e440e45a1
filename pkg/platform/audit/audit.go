// Package audit captures key account and profile actions for the operations
// trail. Events are emitted from domain logic and fanned out by a Publisher;
// keep the Event transport-agnostic so sinks can vary per deployment.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategorySecurity covers events relevant to security monitoring.
	// Examples: sign-in failures, password resets, session issuance.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for operational visibility.
	// Examples: profile creation, insurance uploads, withdrawals.
	CategoryOperations EventCategory = "operations"
)

// Action names for the events this service emits.
const (
	ActionDriverSignedUp    = "driver_signed_up"
	ActionDriverSignedIn    = "driver_signed_in"
	ActionSignInFailed      = "sign_in_failed"
	ActionPasswordResetSent = "password_reset_sent"
	ActionPasswordChanged   = "password_changed"
	ActionProfileCreated    = "profile_created"
	ActionProfileUpdated    = "profile_updated"
	ActionWithdrawal        = "withdrawal_requested"
)

// Event is a single audit record.
type Event struct {
	Category  EventCategory `json:"category"`
	Action    string        `json:"action"`
	DriverID  string        `json:"driver_id,omitempty"`
	Email     string        `json:"email,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Publisher delivers audit events to a sink. Implementations must not block
// the request path on sink latency beyond their configured timeouts.
type Publisher interface {
	Publish(ctx context.Context, e Event)
	Close()
}

// LogPublisher writes audit events to the application log. Used when no
// broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) {
	p.logger.Info("audit event",
		"category", string(e.Category),
		"action", e.Action,
		"driver_id", e.DriverID,
		"request_id", e.RequestID,
	)
}

func (p *LogPublisher) Close() {}
