package wizard

import (
	"context"
	"time"

	"github.com/scholarpress/quire/model"
)

// SessionStore persists wizard sessions and their audit events.
type SessionStore interface {
	// Create persists a new wizard session.
	Create(ctx context.Context, session model.WizardSession) error

	// Get retrieves a session by ID, scoped to a tenant. Returns
	// WIZARD_NOT_FOUND if the session doesn't exist or belongs to a
	// different tenant.
	Get(ctx context.Context, tenantID, sessionID string) (model.WizardSession, error)

	// Update persists an updated session with optimistic locking. The
	// version must match the current stored version. Returns CONFLICT if
	// the version has changed.
	Update(ctx context.Context, session model.WizardSession) error

	// AppendEvent adds an event to the session's audit trail.
	AppendEvent(ctx context.Context, event model.WizardEvent) error

	// GetEvents retrieves all events for a session, scoped to a tenant,
	// ordered by timestamp.
	GetEvents(ctx context.Context, tenantID, sessionID string) ([]model.WizardEvent, error)

	// FindActive returns active sessions for a tenant, optionally filtered.
	FindActive(ctx context.Context, tenantID string, filters SessionFilters) ([]model.WizardSession, error)

	// FindExpired returns active sessions whose expires_at is before the
	// given cutoff time.
	FindExpired(ctx context.Context, cutoff time.Time) ([]model.WizardSession, error)

	// Delete removes a session and its events.
	Delete(ctx context.Context, tenantID, sessionID string) error
}

// SessionFilters are optional filters for listing wizard sessions.
type SessionFilters struct {
	SubjectID string
	Status    string
	Limit     int
	Offset    int
}
