package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/simandok/be-documents/internal/apperrors"
	"github.com/simandok/be-documents/internal/database"
)

// DocumentRepository owns reads and transactional state transitions on
// documents. Every transition that touches more than one row (document
// + approver slot + history) runs inside a single transaction; partial
// application is never visible.
type DocumentRepository struct {
	db *database.DB
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db *database.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `
	id, name, description, external_link, status,
	uploaded_by, current_approver_id, current_sequence, total_approvers,
	rejection_reason, rejected_by, rejection_count,
	is_archived, archived_at, archived_by,
	printed_at, printed_by,
	version, created_at, updated_at`

// ── Creation and draft edits ──────────────────────────────────────────────────

// Create inserts a new draft document and its CREATED history entry in
// one transaction.
func (r *DocumentRepository) Create(ctx context.Context, doc *Document) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO documents
			    (name, description, external_link, status, uploaded_by)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, current_sequence, total_approvers, rejection_count,
			          is_archived, version, created_at, updated_at
		`

		err := tx.QueryRow(ctx, query,
			doc.Name,
			doc.Description,
			doc.ExternalLink,
			StatusDraft,
			doc.UploadedBy,
		).Scan(
			&doc.ID,
			&doc.CurrentSequence,
			&doc.TotalApprovers,
			&doc.RejectionCount,
			&doc.IsArchived,
			&doc.Version,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to create document")
		}
		doc.Status = StatusDraft

		to := string(StatusDraft)
		return insertHistory(ctx, tx, &HistoryEntry{
			DocumentID: doc.ID,
			ActorID:    doc.UploadedBy,
			Action:     ActionCreated,
			ToStatus:   &to,
		})
	})
}

// UpdateContent edits name, description and external link. Only draft
// and rejected documents are editable.
func (r *DocumentRepository) UpdateContent(ctx context.Context, id, name string, description *string, link string) (*Document, error) {
	query := `
		UPDATE documents
		SET name          = $2,
		    description   = $3,
		    external_link = $4,
		    version       = version + 1,
		    updated_at    = NOW()
		WHERE id = $1
		  AND status IN ('draft', 'rejected')
		RETURNING ` + documentColumns

	doc, err := scanDocument(r.db.QueryRow(ctx, query, id, name, description, link))
	if err == pgx.ErrNoRows {
		return nil, apperrors.Conflict("document is not editable in its current status")
	}
	return doc, err
}

// ── Reads ─────────────────────────────────────────────────────────────────────

// GetByID retrieves one document.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("document", id)
	}
	return doc, err
}

// ListFilter narrows List results. Nil fields are not applied.
type ListFilter struct {
	UploadedBy *string
	Status     *DocumentStatus
	Archived   *bool
	Page       int
	PageSize   int
}

// List returns documents matching the filter, newest first, with the
// total match count for pagination.
func (r *DocumentRepository) List(ctx context.Context, f ListFilter) ([]*Document, int, error) {
	where := ` WHERE ($1::text IS NULL OR uploaded_by = $1)
	  AND ($2::text IS NULL OR status = $2)
	  AND ($3::boolean IS NULL OR is_archived = $3)`

	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents`+where,
		f.UploadedBy, statusArg(f.Status), f.Archived).Scan(&total)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to count documents")
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 50
	}

	query := `SELECT ` + documentColumns + ` FROM documents` + where + `
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`

	rows, err := r.db.Query(ctx, query,
		f.UploadedBy, statusArg(f.Status), f.Archived,
		f.PageSize, (f.Page-1)*f.PageSize)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list documents")
	}
	defer rows.Close()

	docs, err := scanDocuments(rows)
	return docs, total, err
}

// ListAwaitingApproval returns every non-archived document currently
// waiting on an approver. Used by the reminder sweep.
func (r *DocumentRepository) ListAwaitingApproval(ctx context.Context) ([]*Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE status IN ('submitted', 'opened', 'in_review')
		  AND is_archived = false
		  AND current_approver_id IS NOT NULL
		ORDER BY current_approver_id, created_at ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list pending documents")
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// ListPendingForApprover returns the documents currently waiting on
// one approver, oldest first. An approver's work queue.
func (r *DocumentRepository) ListPendingForApprover(ctx context.Context, approverID string) ([]*Document, error) {
	query := `SELECT ` + documentColumns + `
		FROM documents
		WHERE current_approver_id = $1
		  AND status IN ('submitted', 'opened', 'in_review')
		  AND is_archived = false
		ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, approverID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list pending documents")
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// ── State transitions ─────────────────────────────────────────────────────────

// SubmitParams starts the approval cycle.
type SubmitParams struct {
	DocumentID      string
	ActorID         string
	FirstApproverID string
}

// Submit moves a draft into the approval chain: status submitted,
// sequence 1, first approver assigned, history row appended.
func (r *DocumentRepository) Submit(ctx context.Context, p SubmitParams) (*Document, error) {
	var doc *Document
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE documents
			SET status              = $2,
			    current_approver_id = $3,
			    current_sequence    = 1,
			    version             = version + 1,
			    updated_at          = NOW()
			WHERE id = $1
			  AND status = 'draft'
			RETURNING ` + documentColumns

		var err error
		doc, err = scanDocument(tx.QueryRow(ctx, query, p.DocumentID, StatusSubmitted, p.FirstApproverID))
		if err == pgx.ErrNoRows {
			return apperrors.Conflict("document has already been submitted")
		}
		if err != nil {
			return err
		}

		from, to := string(StatusDraft), string(StatusSubmitted)
		return insertHistory(ctx, tx, &HistoryEntry{
			DocumentID: p.DocumentID,
			ActorID:    p.ActorID,
			Action:     ActionSubmitted,
			FromStatus: &from,
			ToStatus:   &to,
		})
	})
	return doc, err
}

// AdvanceParams records one approval and moves the chain forward. The
// update is conditioned on the approver and sequence observed by the
// caller, so a stale concurrent approval fails instead of
// double-advancing.
type AdvanceParams struct {
	DocumentID     string
	SlotID         string
	ApproverID     string
	PrevSequence   int
	FromStatus     DocumentStatus
	Remarks        *string
	NextStatus     DocumentStatus
	NextApproverID *string // nil on the last approver
	NextSequence   int
}

// Advance marks the current slot approved and advances the document to
// the next approver (or ready_to_print), atomically with the history row.
func (r *DocumentRepository) Advance(ctx context.Context, p AdvanceParams) (*Document, error) {
	var doc *Document
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		if err := decideSlot(ctx, tx, p.SlotID, SlotApproved, p.Remarks); err != nil {
			return err
		}

		query := `
			UPDATE documents
			SET status              = $2,
			    current_approver_id = $3,
			    current_sequence    = $4,
			    version             = version + 1,
			    updated_at          = NOW()
			WHERE id = $1
			  AND current_approver_id = $5
			  AND current_sequence = $6
			RETURNING ` + documentColumns

		var err error
		doc, err = scanDocument(tx.QueryRow(ctx, query,
			p.DocumentID, p.NextStatus, p.NextApproverID, p.NextSequence,
			p.ApproverID, p.PrevSequence))
		if err == pgx.ErrNoRows {
			return apperrors.Conflict("approval state changed concurrently")
		}
		if err != nil {
			return err
		}

		from, to := string(p.FromStatus), string(p.NextStatus)
		return insertHistory(ctx, tx, &HistoryEntry{
			DocumentID: p.DocumentID,
			ActorID:    p.ApproverID,
			Action:     ActionApproved,
			FromStatus: &from,
			ToStatus:   &to,
			Remarks:    p.Remarks,
		})
	})
	return doc, err
}

// RejectParams records a rejection by the current approver.
type RejectParams struct {
	DocumentID   string
	SlotID       string
	ApproverID   string
	PrevSequence int
	FromStatus   DocumentStatus
	Reason       string
}

// Reject marks the current slot rejected and terminates the cycle,
// atomically with the history row. Same staleness guard as Advance.
func (r *DocumentRepository) Reject(ctx context.Context, p RejectParams) (*Document, error) {
	var doc *Document
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		if err := decideSlot(ctx, tx, p.SlotID, SlotRejected, &p.Reason); err != nil {
			return err
		}

		query := `
			UPDATE documents
			SET status              = $2,
			    rejection_reason    = $3,
			    rejected_by         = $4,
			    rejection_count     = rejection_count + 1,
			    current_approver_id = NULL,
			    version             = version + 1,
			    updated_at          = NOW()
			WHERE id = $1
			  AND current_approver_id = $4
			  AND current_sequence = $5
			RETURNING ` + documentColumns

		var err error
		doc, err = scanDocument(tx.QueryRow(ctx, query,
			p.DocumentID, StatusRejected, p.Reason, p.ApproverID, p.PrevSequence))
		if err == pgx.ErrNoRows {
			return apperrors.Conflict("approval state changed concurrently")
		}
		if err != nil {
			return err
		}

		from, to := string(p.FromStatus), string(StatusRejected)
		return insertHistory(ctx, tx, &HistoryEntry{
			DocumentID: p.DocumentID,
			ActorID:    p.ApproverID,
			Action:     ActionRejected,
			FromStatus: &from,
			ToStatus:   &to,
			Remarks:    &p.Reason,
		})
	})
	return doc, err
}

// ResubmitParams restarts the cycle after a rejection.
type ResubmitParams struct {
	DocumentID      string
	ActorID         string
	FirstApproverID *string
	Remarks         *string
}

// Resubmit resets every slot to pending, clears the rejection fields
// and returns the document to the start of the chain.
func (r *DocumentRepository) Resubmit(ctx context.Context, p ResubmitParams) (*Document, error) {
	var doc *Document
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		reset := `
			UPDATE approver_slots
			SET status     = 'pending',
			    viewed_at  = NULL,
			    decided_at = NULL,
			    remarks    = NULL,
			    updated_at = NOW()
			WHERE document_id = $1
		`
		if _, err := tx.Exec(ctx, reset, p.DocumentID); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to reset approver slots")
		}

		query := `
			UPDATE documents
			SET status              = $2,
			    current_approver_id = $3,
			    current_sequence    = 1,
			    rejection_reason    = NULL,
			    rejected_by         = NULL,
			    version             = version + 1,
			    updated_at          = NOW()
			WHERE id = $1
			  AND status = 'rejected'
			RETURNING ` + documentColumns

		var err error
		doc, err = scanDocument(tx.QueryRow(ctx, query, p.DocumentID, StatusSubmitted, p.FirstApproverID))
		if err == pgx.ErrNoRows {
			return apperrors.Conflict("only rejected documents can be resubmitted")
		}
		if err != nil {
			return err
		}

		from, to := string(StatusRejected), string(StatusSubmitted)
		return insertHistory(ctx, tx, &HistoryEntry{
			DocumentID: p.DocumentID,
			ActorID:    p.ActorID,
			Action:     ActionResubmitted,
			FromStatus: &from,
			ToStatus:   &to,
			Remarks:    p.Remarks,
		})
	})
	return doc, err
}

// MarkPrinted finalizes a ready_to_print document.
func (r *DocumentRepository) MarkPrinted(ctx context.Context, documentID, actorID string) (*Document, error) {
	var doc *Document
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE documents
			SET status     = $2,
			    printed_at = NOW(),
			    printed_by = $3,
			    version    = version + 1,
			    updated_at = NOW()
			WHERE id = $1
			  AND status = 'ready_to_print'
			RETURNING ` + documentColumns

		var err error
		doc, err = scanDocument(tx.QueryRow(ctx, query, documentID, StatusPrinted, actorID))
		if err == pgx.ErrNoRows {
			return apperrors.Conflict("document is not ready to print")
		}
		if err != nil {
			return err
		}

		from, to := string(StatusReadyToPrint), string(StatusPrinted)
		return insertHistory(ctx, tx, &HistoryEntry{
			DocumentID: documentID,
			ActorID:    actorID,
			Action:     ActionPrinted,
			FromStatus: &from,
			ToStatus:   &to,
		})
	})
	return doc, err
}

// ArchiveParams soft-archives a terminal document.
type ArchiveParams struct {
	DocumentID string
	ActorID    string
	FromStatus DocumentStatus
	Reason     *string
}

// Archive sets the archived flag and metadata. Only ready_to_print and
// rejected documents can be archived; the prior status is preserved in
// the history row for Restore.
func (r *DocumentRepository) Archive(ctx context.Context, p ArchiveParams) (*Document, error) {
	var doc *Document
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE documents
			SET is_archived = true,
			    archived_at = NOW(),
			    archived_by = $2,
			    version     = version + 1,
			    updated_at  = NOW()
			WHERE id = $1
			  AND is_archived = false
			  AND status IN ('ready_to_print', 'rejected')
			RETURNING ` + documentColumns

		var err error
		doc, err = scanDocument(tx.QueryRow(ctx, query, p.DocumentID, p.ActorID))
		if err == pgx.ErrNoRows {
			return apperrors.Conflict("document cannot be archived in its current status")
		}
		if err != nil {
			return err
		}

		from := string(p.FromStatus)
		to := HistoryStateArchived
		return insertHistory(ctx, tx, &HistoryEntry{
			DocumentID: p.DocumentID,
			ActorID:    p.ActorID,
			Action:     ActionArchived,
			FromStatus: &from,
			ToStatus:   &to,
			Remarks:    p.Reason,
		})
	})
	return doc, err
}

// Restore reverses an archive, setting status back to the value
// recorded when the document was archived.
func (r *DocumentRepository) Restore(ctx context.Context, documentID, actorID string, restored DocumentStatus) (*Document, error) {
	var doc *Document
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE documents
			SET is_archived = false,
			    archived_at = NULL,
			    archived_by = NULL,
			    status      = $2,
			    version     = version + 1,
			    updated_at  = NOW()
			WHERE id = $1
			  AND is_archived = true
			RETURNING ` + documentColumns

		var err error
		doc, err = scanDocument(tx.QueryRow(ctx, query, documentID, restored))
		if err == pgx.ErrNoRows {
			return apperrors.Conflict("document is not archived")
		}
		if err != nil {
			return err
		}

		from := HistoryStateArchived
		to := string(restored)
		return insertHistory(ctx, tx, &HistoryEntry{
			DocumentID: documentID,
			ActorID:    actorID,
			Action:     ActionRestored,
			FromStatus: &from,
			ToStatus:   &to,
		})
	})
	return doc, err
}

// ── helpers ───────────────────────────────────────────────────────────────────

// decideSlot finalizes a pending approver slot. A slot that is no
// longer pending means a concurrent decision already landed.
func decideSlot(ctx context.Context, tx pgx.Tx, slotID string, status SlotStatus, remarks *string) error {
	query := `
		UPDATE approver_slots
		SET status     = $2,
		    decided_at = NOW(),
		    remarks    = $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'pending'
		RETURNING id
	`

	var returnedID string
	err := tx.QueryRow(ctx, query, slotID, status, remarks).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return apperrors.Conflict("approver slot has already been decided")
	}
	return err
}

func statusArg(s *DocumentStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

type documentScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row documentScanner) (*Document, error) {
	doc := &Document{}
	err := row.Scan(
		&doc.ID,
		&doc.Name,
		&doc.Description,
		&doc.ExternalLink,
		&doc.Status,
		&doc.UploadedBy,
		&doc.CurrentApproverID,
		&doc.CurrentSequence,
		&doc.TotalApprovers,
		&doc.RejectionReason,
		&doc.RejectedBy,
		&doc.RejectionCount,
		&doc.IsArchived,
		&doc.ArchivedAt,
		&doc.ArchivedBy,
		&doc.PrintedAt,
		&doc.PrintedBy,
		&doc.Version,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func scanDocuments(rows pgx.Rows) ([]*Document, error) {
	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to scan document")
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
