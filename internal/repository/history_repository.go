package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/simandok/be-documents/internal/apperrors"
	"github.com/simandok/be-documents/internal/database"
)

// HistoryRepository reads the append-only document history. Writes made
// during state transitions happen inside those transactions via
// insertHistory; the table is never updated or deleted from.
type HistoryRepository struct {
	db *database.DB
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

const historyColumns = `
	id, document_id, actor_id, action,
	from_status, to_status, remarks, created_at`

// ListByDocument returns the trail for a document. Ascending order
// serves the full-journey view; descending serves recent activity.
func (r *HistoryRepository) ListByDocument(ctx context.Context, documentID string, descending bool) ([]*HistoryEntry, error) {
	order := "ASC"
	if descending {
		order = "DESC"
	}

	query := `SELECT ` + historyColumns + `
		FROM document_history
		WHERE document_id = $1
		ORDER BY created_at ` + order

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get document history")
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

// LatestByAction returns the most recent entry with the given action
// for a document, or nil when none exists.
func (r *HistoryRepository) LatestByAction(ctx context.Context, documentID string, action HistoryAction) (*HistoryEntry, error) {
	query := `SELECT ` + historyColumns + `
		FROM document_history
		WHERE document_id = $1 AND action = $2
		ORDER BY created_at DESC
		LIMIT 1`

	entry, err := scanHistoryEntry(r.db.QueryRow(ctx, query, documentID, action))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return entry, err
}

// insertHistory appends one entry within an open transaction. Shared by
// the transactional transition methods across the repository package.
func insertHistory(ctx context.Context, tx pgx.Tx, entry *HistoryEntry) error {
	query := `
		INSERT INTO document_history
		    (document_id, actor_id, action, from_status, to_status, remarks)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query,
		entry.DocumentID,
		entry.ActorID,
		entry.Action,
		entry.FromStatus,
		entry.ToStatus,
		entry.Remarks,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to append history entry")
	}
	return nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type historyScanner interface {
	Scan(dest ...any) error
}

func scanHistoryEntry(sc historyScanner) (*HistoryEntry, error) {
	entry := &HistoryEntry{}
	err := sc.Scan(
		&entry.ID,
		&entry.DocumentID,
		&entry.ActorID,
		&entry.Action,
		&entry.FromStatus,
		&entry.ToStatus,
		&entry.Remarks,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func scanHistoryRows(rows pgx.Rows) ([]*HistoryEntry, error) {
	var entries []*HistoryEntry
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan history entry")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
