package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Recorder accepts login attempt events
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}

// NopRecorder discards events. Used when the audit trail is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(ctx context.Context, event *Event) error { return nil }

// DBRecorder persists login attempts to PostgreSQL
type DBRecorder struct {
	db *sql.DB
}

// NewDBRecorder creates a database-backed recorder and ensures the
// table exists.
func NewDBRecorder(db *sql.DB) (*DBRecorder, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	recorder := &DBRecorder{db: db}
	if err := recorder.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure sso_login_attempts table: %w", err)
	}

	return recorder, nil
}

// ensureTable creates the sso_login_attempts table if it doesn't exist
func (r *DBRecorder) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS sso_login_attempts (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
		email VARCHAR(255) NOT NULL,
		outcome VARCHAR(20) NOT NULL,
		reason VARCHAR(50),
		user_id BIGINT,
		ip_address VARCHAR(45),
		request_id VARCHAR(100),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_sso_login_attempts_timestamp ON sso_login_attempts(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_sso_login_attempts_email ON sso_login_attempts(email);
	CREATE INDEX IF NOT EXISTS idx_sso_login_attempts_outcome ON sso_login_attempts(outcome);
	`

	_, err := r.db.Exec(query)
	return err
}

// Record inserts one login attempt
func (r *DBRecorder) Record(ctx context.Context, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO sso_login_attempts (
			timestamp, email, outcome, reason, user_id, ip_address, request_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		event.Timestamp, event.Email, event.Outcome, event.Reason,
		event.UserID, event.IPAddress, event.RequestID,
	).Scan(&event.ID)

	if err != nil {
		return fmt.Errorf("failed to insert login attempt: %w", err)
	}

	return nil
}

// Cleanup deletes attempts older than the retention period and returns
// the number of rows removed.
func (r *DBRecorder) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sso_login_attempts WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup login attempts: %w", err)
	}

	return result.RowsAffected()
}

// RecentFailures counts rejected attempts for an email within the
// window. Useful for alerting on brute-force probes.
func (r *DBRecorder) RecentFailures(ctx context.Context, email string, window time.Duration) (int64, error) {
	since := time.Now().UTC().Add(-window)

	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sso_login_attempts
		WHERE email = $1 AND outcome = $2 AND timestamp > $3
	`, email, OutcomeRejected, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count failures: %w", err)
	}

	return count, nil
}
