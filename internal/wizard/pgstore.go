package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholarpress/quire/model"
)

// PgSessionStore is a PostgreSQL-backed SessionStore using pgx/v5. Draft and
// card state are stored as JSONB columns; everything the queries filter on
// has its own column.
type PgSessionStore struct {
	pool *pgxpool.Pool
}

// NewPgSessionStore creates a new PostgreSQL session store.
func NewPgSessionStore(pool *pgxpool.Pool) *PgSessionStore {
	return &PgSessionStore{pool: pool}
}

// Create inserts a new wizard session.
func (s *PgSessionStore) Create(ctx context.Context, session model.WizardSession) error {
	draftJSON, err := json.Marshal(session.Draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	cardJSON, err := json.Marshal(session.Card)
	if err != nil {
		return fmt.Errorf("marshal card state: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO wizard_sessions (
			id, tenant_id, subject_id,
			step, status, draft, card, paid_transaction_id, version,
			created_at, updated_at, expires_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7, $8, $9,
			$10, $11, $12
		)`,
		session.ID, session.TenantID, session.SubjectID,
		int(session.Step), session.Status, draftJSON, cardJSON, session.PaidTransactionID, session.Version,
		session.CreatedAt, session.UpdatedAt, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert wizard session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID, scoped to tenant.
func (s *PgSessionStore) Get(ctx context.Context, tenantID, sessionID string) (model.WizardSession, error) {
	var session model.WizardSession
	var step int
	var draftJSON, cardJSON []byte

	err := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, subject_id,
		       step, status, draft, card, paid_transaction_id, version,
		       created_at, updated_at, expires_at
		FROM wizard_sessions
		WHERE id = $1 AND tenant_id = $2`,
		sessionID, tenantID,
	).Scan(
		&session.ID, &session.TenantID, &session.SubjectID,
		&step, &session.Status, &draftJSON, &cardJSON, &session.PaidTransactionID, &session.Version,
		&session.CreatedAt, &session.UpdatedAt, &session.ExpiresAt,
	)
	if err == pgx.ErrNoRows {
		return model.WizardSession{}, model.NewWizardNotFoundError(
			fmt.Sprintf("wizard session %q not found", sessionID),
		)
	}
	if err != nil {
		return model.WizardSession{}, fmt.Errorf("query wizard session: %w", err)
	}

	session.Step = model.WizardStep(step)
	if draftJSON != nil {
		if err := json.Unmarshal(draftJSON, &session.Draft); err != nil {
			return model.WizardSession{}, fmt.Errorf("unmarshal draft: %w", err)
		}
	}
	if cardJSON != nil {
		if err := json.Unmarshal(cardJSON, &session.Card); err != nil {
			return model.WizardSession{}, fmt.Errorf("unmarshal card state: %w", err)
		}
	}

	return session, nil
}

// Update persists an updated session with optimistic locking.
func (s *PgSessionStore) Update(ctx context.Context, session model.WizardSession) error {
	draftJSON, err := json.Marshal(session.Draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	cardJSON, err := json.Marshal(session.Card)
	if err != nil {
		return fmt.Errorf("marshal card state: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE wizard_sessions SET
			step = $1,
			status = $2,
			draft = $3,
			card = $4,
			paid_transaction_id = $5,
			version = $6,
			updated_at = $7,
			expires_at = $8
		WHERE id = $9 AND version = $10`,
		int(session.Step), session.Status, draftJSON, cardJSON,
		session.PaidTransactionID, session.Version+1,
		time.Now().UTC(), session.ExpiresAt,
		session.ID, session.Version,
	)
	if err != nil {
		return fmt.Errorf("update wizard session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewConflictError(
			fmt.Sprintf("wizard session %q version conflict (expected %d)", session.ID, session.Version),
		)
	}
	return nil
}

// AppendEvent adds an event to the session audit trail.
func (s *PgSessionStore) AppendEvent(ctx context.Context, event model.WizardEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wizard_events (
			id, session_id, step, event, actor_id, comment, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.SessionID, int(event.Step), event.Event,
		event.ActorID, event.Comment, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert wizard event: %w", err)
	}
	return nil
}

// GetEvents retrieves all events for a session.
func (s *PgSessionStore) GetEvents(ctx context.Context, tenantID, sessionID string) ([]model.WizardEvent, error) {
	// Verify tenant access.
	_, err := s.Get(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, step, event, actor_id, comment, created_at
		FROM wizard_events
		WHERE session_id = $1
		ORDER BY created_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query wizard events: %w", err)
	}
	defer rows.Close()

	var events []model.WizardEvent
	for rows.Next() {
		var evt model.WizardEvent
		var step int
		if err := rows.Scan(
			&evt.ID, &evt.SessionID, &step, &evt.Event,
			&evt.ActorID, &evt.Comment, &evt.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan wizard event: %w", err)
		}
		evt.Step = model.WizardStep(step)
		events = append(events, evt)
	}
	return events, rows.Err()
}

// FindActive returns active sessions for a tenant.
func (s *PgSessionStore) FindActive(ctx context.Context, tenantID string, filters SessionFilters) ([]model.WizardSession, error) {
	query := `SELECT id, tenant_id, subject_id,
	                 step, status, draft, card, paid_transaction_id, version,
	                 created_at, updated_at, expires_at
	          FROM wizard_sessions
	          WHERE tenant_id = $1 AND status = 'active'`
	args := []any{tenantID}
	argIdx := 2

	if filters.SubjectID != "" {
		query += fmt.Sprintf(" AND subject_id = $%d", argIdx)
		args = append(args, filters.SubjectID)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
		argIdx++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filters.Offset)
	}

	return s.querySessions(ctx, query, args...)
}

// FindExpired returns active sessions past their expiration time.
func (s *PgSessionStore) FindExpired(ctx context.Context, cutoff time.Time) ([]model.WizardSession, error) {
	query := `SELECT id, tenant_id, subject_id,
	                 step, status, draft, card, paid_transaction_id, version,
	                 created_at, updated_at, expires_at
	          FROM wizard_sessions
	          WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at < $1
	          ORDER BY expires_at ASC`
	return s.querySessions(ctx, query, cutoff)
}

// Delete removes a session and its events.
func (s *PgSessionStore) Delete(ctx context.Context, tenantID, sessionID string) error {
	// Delete events first (foreign key).
	_, err := s.pool.Exec(ctx, `
		DELETE FROM wizard_events
		WHERE session_id = $1
		AND session_id IN (SELECT id FROM wizard_sessions WHERE tenant_id = $2)`,
		sessionID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("delete wizard events: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM wizard_sessions
		WHERE id = $1 AND tenant_id = $2`,
		sessionID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("delete wizard session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewWizardNotFoundError(
			fmt.Sprintf("wizard session %q not found", sessionID),
		)
	}
	return nil
}

// HealthCheck verifies database connectivity for readiness probes.
func (s *PgSessionStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// querySessions executes a query and returns wizard sessions.
func (s *PgSessionStore) querySessions(ctx context.Context, query string, args ...any) ([]model.WizardSession, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query wizard sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.WizardSession
	for rows.Next() {
		var session model.WizardSession
		var step int
		var draftJSON, cardJSON []byte
		if err := rows.Scan(
			&session.ID, &session.TenantID, &session.SubjectID,
			&step, &session.Status, &draftJSON, &cardJSON, &session.PaidTransactionID, &session.Version,
			&session.CreatedAt, &session.UpdatedAt, &session.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan wizard session: %w", err)
		}
		session.Step = model.WizardStep(step)
		if draftJSON != nil {
			_ = json.Unmarshal(draftJSON, &session.Draft)
		}
		if cardJSON != nil {
			_ = json.Unmarshal(cardJSON, &session.Card)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
