package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/simandok/be-documents/internal/apperrors"
	"github.com/simandok/be-documents/internal/database"
)

// ApproverRepository manages the approver slots of a document's review
// chain. Slot creation replaces the whole set in one transaction so
// sequence orders always form a contiguous 1..N run.
type ApproverRepository struct {
	db *database.DB
}

// NewApproverRepository creates a new ApproverRepository.
func NewApproverRepository(db *database.DB) *ApproverRepository {
	return &ApproverRepository{db: db}
}

const slotColumns = `
	id, document_id, approver_id, sequence_order, status,
	viewed_at, decided_at, remarks, created_at, updated_at`

// ReplaceSlots deletes any existing slots for the document and inserts
// the given set, updating total_approvers on the document. Allowed only
// while the document is a draft.
func (r *ApproverRepository) ReplaceSlots(ctx context.Context, documentID string, slots []*ApproverSlot) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		guard := `
			UPDATE documents
			SET total_approvers = $2,
			    version         = version + 1,
			    updated_at      = NOW()
			WHERE id = $1
			  AND status = 'draft'
			RETURNING id
		`

		var returnedID string
		err := tx.QueryRow(ctx, guard, documentID, len(slots)).Scan(&returnedID)
		if err == pgx.ErrNoRows {
			return apperrors.Conflict("approvers can only be assigned while the document is a draft")
		}
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM approver_slots WHERE document_id = $1`, documentID); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to clear approver slots")
		}

		insert := `
			INSERT INTO approver_slots
			    (document_id, approver_id, sequence_order, status)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at
		`

		for _, slot := range slots {
			slot.DocumentID = documentID
			slot.Status = SlotPending

			err := tx.QueryRow(ctx, insert,
				slot.DocumentID,
				slot.ApproverID,
				slot.SequenceOrder,
				slot.Status,
			).Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt)
			if err != nil {
				return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create approver slot")
			}
		}

		return nil
	})
}

// ListByDocument returns all slots for a document ordered by sequence.
func (r *ApproverRepository) ListByDocument(ctx context.Context, documentID string) ([]*ApproverSlot, error) {
	query := `SELECT ` + slotColumns + `
		FROM approver_slots
		WHERE document_id = $1
		ORDER BY sequence_order ASC`

	rows, err := r.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list approver slots")
	}
	defer rows.Close()

	return scanSlots(rows)
}

// GetByDocumentAndApprover returns the slot a user holds on a document.
func (r *ApproverRepository) GetByDocumentAndApprover(ctx context.Context, documentID, approverID string) (*ApproverSlot, error) {
	query := `SELECT ` + slotColumns + `
		FROM approver_slots
		WHERE document_id = $1 AND approver_id = $2`

	slot, err := scanSlot(r.db.QueryRow(ctx, query, documentID, approverID))
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("approver slot", approverID)
	}
	return slot, err
}

// GetByDocumentAndSequence returns the slot at a sequence position, or
// nil when the chain ends before it.
func (r *ApproverRepository) GetByDocumentAndSequence(ctx context.Context, documentID string, sequence int) (*ApproverSlot, error) {
	query := `SELECT ` + slotColumns + `
		FROM approver_slots
		WHERE document_id = $1 AND sequence_order = $2`

	slot, err := scanSlot(r.db.QueryRow(ctx, query, documentID, sequence))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return slot, err
}

// MarkViewed stamps viewed_at on first view and flips a submitted
// document to opened, in one transaction. Returns nil when the slot
// does not exist or was already viewed; repeat calls are no-ops.
func (r *ApproverRepository) MarkViewed(ctx context.Context, documentID, approverID string) (*ApproverSlot, error) {
	var slot *ApproverSlot
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE approver_slots
			SET viewed_at  = NOW(),
			    updated_at = NOW()
			WHERE document_id = $1
			  AND approver_id = $2
			  AND viewed_at IS NULL
			RETURNING ` + slotColumns

		var err error
		slot, err = scanSlot(tx.QueryRow(ctx, query, documentID, approverID))
		if err == pgx.ErrNoRows {
			slot = nil
			return nil
		}
		if err != nil {
			return err
		}

		open := `
			UPDATE documents
			SET status     = $2,
			    version    = version + 1,
			    updated_at = NOW()
			WHERE id = $1
			  AND status = 'submitted'
		`
		tag, err := tx.Exec(ctx, open, documentID, StatusOpened)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		from, to := string(StatusSubmitted), string(StatusOpened)
		return insertHistory(ctx, tx, &HistoryEntry{
			DocumentID: documentID,
			ActorID:    approverID,
			Action:     ActionOpened,
			FromStatus: &from,
			ToStatus:   &to,
		})
	})
	return slot, err
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type slotScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row slotScanner) (*ApproverSlot, error) {
	s := &ApproverSlot{}
	err := row.Scan(
		&s.ID,
		&s.DocumentID,
		&s.ApproverID,
		&s.SequenceOrder,
		&s.Status,
		&s.ViewedAt,
		&s.DecidedAt,
		&s.Remarks,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanSlots(rows pgx.Rows) ([]*ApproverSlot, error) {
	var slots []*ApproverSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan approver slot")
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
