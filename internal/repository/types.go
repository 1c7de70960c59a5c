package repository

import "time"

// ── Domain types for the document approval workflow ──────────────────────────

// DocumentStatus is the lifecycle state of a document.
type DocumentStatus string

const (
	StatusDraft        DocumentStatus = "draft"
	StatusSubmitted    DocumentStatus = "submitted"
	StatusOpened       DocumentStatus = "opened"
	StatusInReview     DocumentStatus = "in_review"
	StatusReadyToPrint DocumentStatus = "ready_to_print"
	StatusPrinted      DocumentStatus = "printed"
	StatusRejected     DocumentStatus = "rejected"
)

// AwaitingApproval reports whether the status has a pending approver,
// i.e. current_approver_id must be set.
func (s DocumentStatus) AwaitingApproval() bool {
	return s == StatusSubmitted || s == StatusOpened || s == StatusInReview
}

// Terminal reports whether no further approver action is pending.
// Rejected documents may still re-enter the chain via resubmission.
func (s DocumentStatus) Terminal() bool {
	return s == StatusReadyToPrint || s == StatusPrinted || s == StatusRejected
}

// SlotStatus is the state of one approver slot.
type SlotStatus string

const (
	SlotPending  SlotStatus = "pending"
	SlotApproved SlotStatus = "approved"
	SlotRejected SlotStatus = "rejected"
	SlotSkipped  SlotStatus = "skipped"
)

// HistoryAction identifies a recorded transition.
type HistoryAction string

const (
	ActionCreated     HistoryAction = "created"
	ActionSubmitted   HistoryAction = "submitted"
	ActionOpened      HistoryAction = "opened"
	ActionApproved    HistoryAction = "approved"
	ActionRejected    HistoryAction = "rejected"
	ActionResubmitted HistoryAction = "resubmitted"
	ActionPrinted     HistoryAction = "printed"
	ActionArchived    HistoryAction = "archived"
	ActionRestored    HistoryAction = "restored"
)

// Document is the unit under approval. Documents are external links,
// never binary content, and are archived rather than deleted.
type Document struct {
	ID                string
	Name              string
	Description       *string
	ExternalLink      string
	Status            DocumentStatus
	UploadedBy        string
	CurrentApproverID *string
	CurrentSequence   int
	TotalApprovers    int
	RejectionReason   *string
	RejectedBy        *string
	RejectionCount    int
	IsArchived        bool
	ArchivedAt        *time.Time
	ArchivedBy        *string
	PrintedAt         *time.Time
	PrintedBy         *string
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ApproverSlot is one approver's fixed position in a document's
// sequential review chain. Sequence orders form a contiguous 1..N set
// assigned at creation time, ascending by hierarchy level.
type ApproverSlot struct {
	ID            string
	DocumentID    string
	ApproverID    string
	SequenceOrder int
	Status        SlotStatus
	ViewedAt      *time.Time
	DecidedAt     *time.Time
	Remarks       *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HistoryStateArchived is the ledger marker for the archived flag.
// Archival is orthogonal to DocumentStatus, so it appears only in the
// history vocabulary, never as a live status.
const HistoryStateArchived = "archived"

// HistoryEntry is one immutable record in the document's audit trail.
// FromStatus/ToStatus use the ledger vocabulary: any DocumentStatus
// value, or HistoryStateArchived.
type HistoryEntry struct {
	ID         string
	DocumentID string
	ActorID    string
	Action     HistoryAction
	FromStatus *string
	ToStatus   *string
	Remarks    *string
	CreatedAt  time.Time
}

// User is a directory entry with a role hierarchy level. Higher level
// means more senior, reviewing later in the chain.
type User struct {
	ID             string
	FullName       string
	Position       string
	HierarchyLevel int
}

// ReminderEntry logs one grouped reminder sent to an approver,
// distinct from the workflow history.
type ReminderEntry struct {
	ID            string
	ApproverID    string
	DocumentCount int
	CreatedAt     time.Time
}
