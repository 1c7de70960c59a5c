package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/simandok/be-documents/internal/apperrors"
	"github.com/simandok/be-documents/internal/logger"
	"github.com/simandok/be-documents/internal/repository"
)

// DocumentStore is the persistence surface the engine mutates
// documents through. Each transition method runs its row updates and
// history append in one transaction; a staleness conflict rolls the
// whole transition back.
type DocumentStore interface {
	Create(ctx context.Context, doc *repository.Document) error
	GetByID(ctx context.Context, id string) (*repository.Document, error)
	UpdateContent(ctx context.Context, id, name string, description *string, link string) (*repository.Document, error)
	List(ctx context.Context, f repository.ListFilter) ([]*repository.Document, int, error)
	ListAwaitingApproval(ctx context.Context) ([]*repository.Document, error)
	ListPendingForApprover(ctx context.Context, approverID string) ([]*repository.Document, error)
	Submit(ctx context.Context, p repository.SubmitParams) (*repository.Document, error)
	Advance(ctx context.Context, p repository.AdvanceParams) (*repository.Document, error)
	Reject(ctx context.Context, p repository.RejectParams) (*repository.Document, error)
	Resubmit(ctx context.Context, p repository.ResubmitParams) (*repository.Document, error)
	MarkPrinted(ctx context.Context, documentID, actorID string) (*repository.Document, error)
	Archive(ctx context.Context, p repository.ArchiveParams) (*repository.Document, error)
	Restore(ctx context.Context, documentID, actorID string, restored repository.DocumentStatus) (*repository.Document, error)
}

// ApproverStore manages a document's approver slots.
type ApproverStore interface {
	ReplaceSlots(ctx context.Context, documentID string, slots []*repository.ApproverSlot) error
	ListByDocument(ctx context.Context, documentID string) ([]*repository.ApproverSlot, error)
	GetByDocumentAndApprover(ctx context.Context, documentID, approverID string) (*repository.ApproverSlot, error)
	GetByDocumentAndSequence(ctx context.Context, documentID string, sequence int) (*repository.ApproverSlot, error)
	MarkViewed(ctx context.Context, documentID, approverID string) (*repository.ApproverSlot, error)
}

// HistoryStore reads the append-only transition ledger.
type HistoryStore interface {
	ListByDocument(ctx context.Context, documentID string, descending bool) ([]*repository.HistoryEntry, error)
	LatestByAction(ctx context.Context, documentID string, action repository.HistoryAction) (*repository.HistoryEntry, error)
}

// NotificationSink receives workflow events after commit. Fire and
// forget: implementations must never fail the calling operation.
type NotificationSink interface {
	Notify(ctx context.Context, recipientID, eventType, title, message string, documentID *string)
}

// Notification event types.
const (
	EventApprovalRequired = "approval_required"
	EventDocumentApproved = "document_approved"
	EventDocumentRejected = "document_rejected"
	EventReadyToPrint     = "ready_to_print"
	EventPendingReminder  = "approvals_pending_reminder"
)

// ApprovalService owns the document approval state machine: assigning
// approvers, the submit/approve/reject/resubmit cycle, printing and
// the archive sub-flow. State is mutated only through this service.
type ApprovalService struct {
	documents DocumentStore
	slots     ApproverStore
	history   HistoryStore
	users     UserDirectory
	hierarchy *HierarchyService
	notifier  NotificationSink
	log       *logger.Logger
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(
	documents DocumentStore,
	slots ApproverStore,
	history HistoryStore,
	users UserDirectory,
	hierarchy *HierarchyService,
	notifier NotificationSink,
	log *logger.Logger,
) *ApprovalService {
	return &ApprovalService{
		documents: documents,
		slots:     slots,
		history:   history,
		users:     users,
		hierarchy: hierarchy,
		notifier:  notifier,
		log:       log,
	}
}

// ── Approver assignment ───────────────────────────────────────────────────────

// SetApprovers assigns the review chain for a draft document. The
// given users are ordered ascending by hierarchy level (stable on
// ties) and replace any previously assigned set. Every approver must
// outrank the uploader.
func (s *ApprovalService) SetApprovers(ctx context.Context, documentID string, userIDs []string) ([]*repository.ApproverSlot, error) {
	if len(userIDs) == 0 {
		return nil, apperrors.InvalidInput("approvers", "at least one approver is required")
	}
	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			return nil, apperrors.InvalidInput("approvers", fmt.Sprintf("duplicate approver %q", id))
		}
		seen[id] = true
	}

	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != repository.StatusDraft {
		return nil, apperrors.Conflict("approvers can only be assigned while the document is a draft")
	}

	for _, id := range userIDs {
		ok, err := s.hierarchy.CanApprove(ctx, id, doc.UploadedBy)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.InvalidInput("approvers", fmt.Sprintf("user %q is not senior to the uploader", id))
		}
	}

	ordered, err := s.hierarchy.SortByHierarchy(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	slots := make([]*repository.ApproverSlot, 0, len(ordered))
	for i, approverID := range ordered {
		slots = append(slots, &repository.ApproverSlot{
			ApproverID:    approverID,
			SequenceOrder: i + 1,
		})
	}

	if err := s.slots.ReplaceSlots(ctx, documentID, slots); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("document_id", documentID).
		Int("approvers", len(slots)).
		Msg("Approver chain assigned")

	return slots, nil
}

// ── Submission ────────────────────────────────────────────────────────────────

// SubmitForApproval starts the approval cycle of a draft document and
// notifies the first approver.
func (s *ApprovalService) SubmitForApproval(ctx context.Context, documentID, actorID string) (*repository.Document, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != repository.StatusDraft {
		return nil, apperrors.Conflict("document has already been submitted")
	}

	first, err := s.slots.GetByDocumentAndSequence(ctx, documentID, 1)
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, apperrors.InvalidInput("approvers", "document has no approvers assigned")
	}

	updated, err := s.documents.Submit(ctx, repository.SubmitParams{
		DocumentID:      documentID,
		ActorID:         actorID,
		FirstApproverID: first.ApproverID,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("document_id", documentID).
		Str("first_approver", first.ApproverID).
		Int("total_approvers", updated.TotalApprovers).
		Msg("Document submitted for approval")

	s.notifier.Notify(ctx, first.ApproverID, EventApprovalRequired,
		"New document awaiting your approval",
		fmt.Sprintf("Document %q was submitted and is waiting for your review.", updated.Name),
		&documentID)

	return updated, nil
}

// ── Viewing ───────────────────────────────────────────────────────────────────

// MarkAsViewed stamps the approver's first view of the document and
// moves a freshly submitted document to opened. Repeat calls, or calls
// by users without a slot, return nil without error.
func (s *ApprovalService) MarkAsViewed(ctx context.Context, documentID, approverID string) (*repository.ApproverSlot, error) {
	return s.slots.MarkViewed(ctx, documentID, approverID)
}

// ── Decisions ─────────────────────────────────────────────────────────────────

// Approve records the current approver's approval and advances the
// chain: to the next approver, or to ready_to_print after the last one.
func (s *ApprovalService) Approve(ctx context.Context, documentID, approverID string, remarks *string) (*repository.Document, error) {
	doc, slot, err := s.currentDecision(ctx, documentID, approverID)
	if err != nil {
		return nil, err
	}

	next, err := s.slots.GetByDocumentAndSequence(ctx, documentID, doc.CurrentSequence+1)
	if err != nil {
		return nil, err
	}

	params := repository.AdvanceParams{
		DocumentID:   documentID,
		SlotID:       slot.ID,
		ApproverID:   approverID,
		PrevSequence: doc.CurrentSequence,
		FromStatus:   doc.Status,
		Remarks:      remarks,
	}
	if next != nil {
		params.NextStatus = repository.StatusInReview
		params.NextApproverID = &next.ApproverID
		params.NextSequence = doc.CurrentSequence + 1
	} else {
		params.NextStatus = repository.StatusReadyToPrint
		params.NextApproverID = nil
		params.NextSequence = doc.CurrentSequence
	}

	updated, err := s.documents.Advance(ctx, params)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("document_id", documentID).
		Str("approver_id", approverID).
		Int("sequence", doc.CurrentSequence).
		Str("status", string(updated.Status)).
		Msg("Document approved")

	approverName := s.displayName(ctx, approverID)
	if next != nil {
		s.notifier.Notify(ctx, next.ApproverID, EventApprovalRequired,
			"New document awaiting your approval",
			fmt.Sprintf("Document %q is waiting for your review.", updated.Name),
			&documentID)
		s.notifier.Notify(ctx, updated.UploadedBy, EventDocumentApproved,
			"Your document moved forward",
			fmt.Sprintf("%s approved document %q.", approverName, updated.Name),
			&documentID)
	} else {
		s.notifier.Notify(ctx, updated.UploadedBy, EventReadyToPrint,
			"Your document is ready to print",
			fmt.Sprintf("Document %q passed all approvals and is ready to print.", updated.Name),
			&documentID)
	}

	return updated, nil
}

// Reject records the current approver's rejection; the cycle ends until
// the uploader resubmits.
func (s *ApprovalService) Reject(ctx context.Context, documentID, approverID, reason string) (*repository.Document, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.InvalidInput("reason", "rejection reason is required")
	}

	doc, slot, err := s.currentDecision(ctx, documentID, approverID)
	if err != nil {
		return nil, err
	}

	updated, err := s.documents.Reject(ctx, repository.RejectParams{
		DocumentID:   documentID,
		SlotID:       slot.ID,
		ApproverID:   approverID,
		PrevSequence: doc.CurrentSequence,
		FromStatus:   doc.Status,
		Reason:       reason,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("document_id", documentID).
		Str("approver_id", approverID).
		Int("sequence", doc.CurrentSequence).
		Msg("Document rejected")

	s.notifier.Notify(ctx, updated.UploadedBy, EventDocumentRejected,
		"Your document was rejected",
		fmt.Sprintf("%s rejected document %q: %s", s.displayName(ctx, approverID), updated.Name, reason),
		&documentID)

	return updated, nil
}

// currentDecision validates that the document is awaiting approval and
// that approverID is both an assigned approver and the current one.
func (s *ApprovalService) currentDecision(ctx context.Context, documentID, approverID string) (*repository.Document, *repository.ApproverSlot, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	if !doc.Status.AwaitingApproval() {
		return nil, nil, apperrors.Conflict(
			fmt.Sprintf("document is not awaiting approval (status: %s)", doc.Status))
	}
	if doc.CurrentApproverID == nil || *doc.CurrentApproverID != approverID {
		return nil, nil, apperrors.Unauthorized("user is not the current approver for this document")
	}

	slot, err := s.slots.GetByDocumentAndApprover(ctx, documentID, approverID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeNotFound {
			return nil, nil, apperrors.Unauthorized("user is not an approver of this document")
		}
		return nil, nil, err
	}

	return doc, slot, nil
}

// ── Resubmission ──────────────────────────────────────────────────────────────

// Resubmit restarts the approval cycle of a rejected document. Only the
// uploader may resubmit; every slot returns to pending and the chain
// starts over at sequence 1.
func (s *ApprovalService) Resubmit(ctx context.Context, documentID, actorID string, remarks *string) (*repository.Document, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.IsArchived {
		return nil, apperrors.Conflict("archived documents must be restored before resubmission")
	}
	if doc.Status != repository.StatusRejected {
		return nil, apperrors.Conflict("only rejected documents can be resubmitted")
	}
	if doc.UploadedBy != actorID {
		return nil, apperrors.Unauthorized("only the uploader can resubmit the document")
	}

	first, err := s.slots.GetByDocumentAndSequence(ctx, documentID, 1)
	if err != nil {
		return nil, err
	}

	params := repository.ResubmitParams{
		DocumentID: documentID,
		ActorID:    actorID,
		Remarks:    remarks,
	}
	if first != nil {
		params.FirstApproverID = &first.ApproverID
	}

	updated, err := s.documents.Resubmit(ctx, params)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("document_id", documentID).
		Int("rejection_count", updated.RejectionCount).
		Msg("Document resubmitted")

	if first != nil {
		s.notifier.Notify(ctx, first.ApproverID, EventApprovalRequired,
			"Document resubmitted for your approval",
			fmt.Sprintf("Document %q was revised and resubmitted for your review.", updated.Name),
			&documentID)
	}

	return updated, nil
}

// ── Printing ──────────────────────────────────────────────────────────────────

// MarkAsPrinted finalizes a fully approved document. Only the uploader
// may print.
func (s *ApprovalService) MarkAsPrinted(ctx context.Context, documentID, actorID string) (*repository.Document, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != repository.StatusReadyToPrint {
		return nil, apperrors.Conflict(
			fmt.Sprintf("document is not ready to print (status: %s)", doc.Status))
	}
	if doc.UploadedBy != actorID {
		return nil, apperrors.Unauthorized("only the uploader can mark the document as printed")
	}

	updated, err := s.documents.MarkPrinted(ctx, documentID, actorID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("document_id", documentID).Msg("Document printed")
	return updated, nil
}

// ── Archive sub-flow ──────────────────────────────────────────────────────────

// ArchiveDocument soft-archives a terminal document. The prior status
// is preserved in the history row so Restore can return to it.
func (s *ApprovalService) ArchiveDocument(ctx context.Context, documentID, actorID string, reason *string) (*repository.Document, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.IsArchived {
		return nil, apperrors.Conflict("document is already archived")
	}
	if doc.Status != repository.StatusReadyToPrint && doc.Status != repository.StatusRejected {
		return nil, apperrors.Conflict(
			fmt.Sprintf("document cannot be archived from status %s", doc.Status))
	}

	updated, err := s.documents.Archive(ctx, repository.ArchiveParams{
		DocumentID: documentID,
		ActorID:    actorID,
		FromStatus: doc.Status,
		Reason:     reason,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("document_id", documentID).
		Str("prior_status", string(doc.Status)).
		Msg("Document archived")

	return updated, nil
}

// RestoreDocument reverses an archive. The status comes from the most
// recent archive history entry, defaulting to ready_to_print when the
// ledger has no record.
func (s *ApprovalService) RestoreDocument(ctx context.Context, documentID, actorID string) (*repository.Document, error) {
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.IsArchived {
		return nil, apperrors.Conflict("document is not archived")
	}

	restored := repository.StatusReadyToPrint
	entry, err := s.history.LatestByAction(ctx, documentID, repository.ActionArchived)
	if err != nil {
		return nil, err
	}
	if entry != nil && entry.FromStatus != nil {
		restored = repository.DocumentStatus(*entry.FromStatus)
	}

	updated, err := s.documents.Restore(ctx, documentID, actorID, restored)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("document_id", documentID).
		Str("restored_status", string(restored)).
		Msg("Document restored from archive")

	return updated, nil
}

// ── Read projections ──────────────────────────────────────────────────────────

// GetDocument returns one document.
func (s *ApprovalService) GetDocument(ctx context.Context, documentID string) (*repository.Document, error) {
	return s.documents.GetByID(ctx, documentID)
}

// ListPendingForApprover returns the user's approval work queue: every
// document currently waiting on them, oldest first.
func (s *ApprovalService) ListPendingForApprover(ctx context.Context, approverID string) ([]*repository.Document, error) {
	return s.documents.ListPendingForApprover(ctx, approverID)
}

// GetApprovers returns the document's review chain in sequence order.
func (s *ApprovalService) GetApprovers(ctx context.Context, documentID string) ([]*repository.ApproverSlot, error) {
	if _, err := s.documents.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return s.slots.ListByDocument(ctx, documentID)
}

// GetHistory returns the document's audit trail, oldest-first for the
// full journey or newest-first for recent activity.
func (s *ApprovalService) GetHistory(ctx context.Context, documentID string, descending bool) ([]*repository.HistoryEntry, error) {
	if _, err := s.documents.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return s.history.ListByDocument(ctx, documentID, descending)
}

// displayName returns the user's full name, or the raw ID when the
// lookup fails. Names only decorate notifications.
func (s *ApprovalService) displayName(ctx context.Context, userID string) string {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return userID
	}
	return u.FullName
}
