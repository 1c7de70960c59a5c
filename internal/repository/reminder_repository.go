package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/simandok/be-documents/internal/apperrors"
	"github.com/simandok/be-documents/internal/database"
)

// ReminderRepository logs the grouped reminders sent by the sweep.
// These records are operational bookkeeping, separate from the
// document history ledger.
type ReminderRepository struct {
	db *database.DB
}

// NewReminderRepository creates a new ReminderRepository.
func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// Log records one reminder sent to an approver.
func (r *ReminderRepository) Log(ctx context.Context, entry *ReminderEntry) error {
	query := `
		INSERT INTO reminder_log (approver_id, document_count)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query, entry.ApproverID, entry.DocumentCount).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to log reminder")
	}
	return nil
}

// LastSentAt returns when the approver was last reminded, or nil.
func (r *ReminderRepository) LastSentAt(ctx context.Context, approverID string) (*time.Time, error) {
	query := `
		SELECT created_at
		FROM reminder_log
		WHERE approver_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var sentAt time.Time
	err := r.db.QueryRow(ctx, query, approverID).Scan(&sentAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sentAt, nil
}
