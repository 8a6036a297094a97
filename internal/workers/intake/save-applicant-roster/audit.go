// internal/workers/intake/save-applicant-roster/audit.go
package saveapplicantroster

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"applicant-intake/internal/intake/persist"

	"github.com/google/uuid"
)

// AuditStore writes one row per save attempt, one row per applicant outcome
// and an audit_log entry, in a single transaction.
type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS save_attempts (
	id           VARCHAR(36) PRIMARY KEY,
	booking_id   VARCHAR(255) NOT NULL,
	retry_failed BOOLEAN NOT NULL DEFAULT FALSE,
	saved_count  INTEGER NOT NULL,
	failed_count INTEGER NOT NULL,
	message      TEXT,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_save_attempts_booking ON save_attempts (booking_id);
CREATE TABLE IF NOT EXISTS save_outcomes (
	attempt_id   VARCHAR(36) NOT NULL REFERENCES save_attempts (id),
	applicant_id VARCHAR(255) NOT NULL,
	persisted_id VARCHAR(255),
	outcome      VARCHAR(32) NOT NULL,
	reason       TEXT
);
CREATE TABLE IF NOT EXISTS audit_log (
	id            SERIAL PRIMARY KEY,
	event_type    VARCHAR(100) NOT NULL,
	resource_type VARCHAR(100) NOT NULL,
	resource_id   VARCHAR(255) NOT NULL,
	details       JSONB,
	created_at    TIMESTAMPTZ NOT NULL
);`

// EnsureSchema creates the audit tables when they are missing.
func (s *AuditStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}

// Record stores the report and returns the attempt id.
func (s *AuditStore) Record(ctx context.Context, report persist.Report, retryFailed bool) (string, error) {
	attemptID := uuid.New().String()
	createdAt := time.Now().UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin audit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO save_attempts (
			id, booking_id, retry_failed, saved_count, failed_count, message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		attemptID,
		report.BookingID,
		retryFailed,
		report.SavedCount,
		len(report.Failed()),
		report.Message,
		createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert save attempt: %w", err)
	}

	for _, res := range report.Results {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO save_outcomes (attempt_id, applicant_id, persisted_id, outcome, reason)
			VALUES ($1, $2, $3, $4, $5)`,
			attemptID,
			res.ApplicantID,
			res.PersistedID,
			string(res.Outcome),
			res.Reason,
		)
		if err != nil {
			return "", fmt.Errorf("insert outcome %s: %w", res.ApplicantID, err)
		}
	}

	details, err := json.Marshal(map[string]interface{}{
		"savedCount":       report.SavedCount,
		"failed":           report.Failed(),
		"focusApplicantId": report.FocusApplicantID,
		"retryFailed":      retryFailed,
	})
	if err != nil {
		details = []byte("{}")
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		"applicant_roster_saved",
		"booking",
		report.BookingID,
		details,
		createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert audit log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit audit: %w", err)
	}
	return attemptID, nil
}
