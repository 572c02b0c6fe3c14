package wizard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/scholarpress/quire/model"
)

// MemorySessionStore is an in-memory SessionStore for testing and
// single-instance deployments.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]model.WizardSession // key: session ID
	events   map[string][]model.WizardEvent // key: session ID
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]model.WizardSession),
		events:   make(map[string][]model.WizardEvent),
	}
}

// HealthCheck always succeeds for the in-memory store.
func (s *MemorySessionStore) HealthCheck(_ context.Context) error {
	return nil
}

// Create persists a new wizard session.
func (s *MemorySessionStore) Create(_ context.Context, session model.WizardSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return model.NewConflictError(
			fmt.Sprintf("wizard session %q already exists", session.ID),
		)
	}

	s.sessions[session.ID] = session
	return nil
}

// Get retrieves a session by ID, scoped to tenant.
func (s *MemorySessionStore) Get(_ context.Context, tenantID, sessionID string) (model.WizardSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists || session.TenantID != tenantID {
		return model.WizardSession{}, model.NewWizardNotFoundError(
			fmt.Sprintf("wizard session %q not found", sessionID),
		)
	}
	return session, nil
}

// Update persists an updated session with optimistic locking.
func (s *MemorySessionStore) Update(_ context.Context, session model.WizardSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.sessions[session.ID]
	if !exists {
		return model.NewWizardNotFoundError(
			fmt.Sprintf("wizard session %q not found", session.ID),
		)
	}

	// Optimistic lock check.
	if existing.Version != session.Version {
		return model.NewConflictError(
			fmt.Sprintf("wizard session %q version conflict (expected %d, got %d)", session.ID, session.Version, existing.Version),
		)
	}

	session.Version++
	session.UpdatedAt = time.Now().UTC()
	s.sessions[session.ID] = session
	return nil
}

// AppendEvent adds an event to the session's audit trail.
func (s *MemorySessionStore) AppendEvent(_ context.Context, event model.WizardEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[event.SessionID] = append(s.events[event.SessionID], event)
	return nil
}

// GetEvents retrieves all events for a session, ordered by timestamp.
func (s *MemorySessionStore) GetEvents(_ context.Context, tenantID, sessionID string) ([]model.WizardEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Verify tenant access.
	session, exists := s.sessions[sessionID]
	if !exists || session.TenantID != tenantID {
		return nil, model.NewWizardNotFoundError(
			fmt.Sprintf("wizard session %q not found", sessionID),
		)
	}

	events := s.events[sessionID]
	// Return sorted copy.
	result := make([]model.WizardEvent, len(events))
	copy(result, events)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// FindActive returns active sessions for a tenant.
func (s *MemorySessionStore) FindActive(_ context.Context, tenantID string, filters SessionFilters) ([]model.WizardSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.WizardSession
	for _, session := range s.sessions {
		if session.TenantID != tenantID {
			continue
		}
		if session.Status != model.SessionStatusActive {
			continue
		}
		if filters.SubjectID != "" && session.SubjectID != filters.SubjectID {
			continue
		}
		result = append(result, session)
	}

	// Sort by created_at descending.
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	// Apply offset and limit.
	if filters.Offset > 0 {
		if filters.Offset >= len(result) {
			return []model.WizardSession{}, nil
		}
		result = result[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(result) {
		result = result[:filters.Limit]
	}

	return result, nil
}

// FindExpired returns active sessions past their expiration time.
func (s *MemorySessionStore) FindExpired(_ context.Context, cutoff time.Time) ([]model.WizardSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.WizardSession
	for _, session := range s.sessions {
		if session.Status != model.SessionStatusActive {
			continue
		}
		if session.ExpiresAt == nil || !session.ExpiresAt.Before(cutoff) {
			continue
		}
		result = append(result, session)
	}

	// Sort by expires_at ascending.
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(*result[j].ExpiresAt)
	})

	return result, nil
}

// Delete removes a session and its events.
func (s *MemorySessionStore) Delete(_ context.Context, tenantID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[sessionID]
	if !exists || session.TenantID != tenantID {
		return model.NewWizardNotFoundError(
			fmt.Sprintf("wizard session %q not found", sessionID),
		)
	}

	delete(s.sessions, sessionID)
	delete(s.events, sessionID)
	return nil
}

// Len returns the total number of sessions. For testing.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
