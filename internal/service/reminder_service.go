package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/simandok/be-documents/internal/logger"
	"github.com/simandok/be-documents/internal/repository"
)

// ReminderStore logs grouped reminders, separate from document history.
type ReminderStore interface {
	Log(ctx context.Context, entry *repository.ReminderEntry) error
	LastSentAt(ctx context.Context, approverID string) (*time.Time, error)
}

// ReminderService runs the batch reminder sweep: every document still
// waiting on an approver is grouped by that approver, and each approver
// with at least one pending document gets a single summary
// notification. Sweeps only read workflow state.
type ReminderService struct {
	documents DocumentStore
	reminders ReminderStore
	notifier  NotificationSink
	cooldown  time.Duration
	running   *semaphore.Weighted
	log       *logger.Logger
}

// NewReminderService creates a new ReminderService. cooldown suppresses
// repeat reminders to the same approver within the window; zero
// disables suppression.
func NewReminderService(
	documents DocumentStore,
	reminders ReminderStore,
	notifier NotificationSink,
	cooldown time.Duration,
	log *logger.Logger,
) *ReminderService {
	return &ReminderService{
		documents: documents,
		reminders: reminders,
		notifier:  notifier,
		cooldown:  cooldown,
		running:   semaphore.NewWeighted(1),
		log:       log,
	}
}

// Run executes one sweep and returns how many approvers were notified.
// At most one sweep runs at a time; an overlapping call is skipped
// rather than queued.
func (s *ReminderService) Run(ctx context.Context) (int, error) {
	if !s.running.TryAcquire(1) {
		s.log.Warn().Msg("Reminder sweep already running, skipping")
		return 0, nil
	}
	defer s.running.Release(1)

	docs, err := s.documents.ListAwaitingApproval(ctx)
	if err != nil {
		return 0, err
	}

	byApprover := make(map[string][]*repository.Document)
	var order []string
	for _, doc := range docs {
		if doc.CurrentApproverID == nil {
			continue
		}
		id := *doc.CurrentApproverID
		if _, ok := byApprover[id]; !ok {
			order = append(order, id)
		}
		byApprover[id] = append(byApprover[id], doc)
	}

	notified := 0
	for _, approverID := range order {
		pending := byApprover[approverID]

		if s.cooldown > 0 {
			lastSent, err := s.reminders.LastSentAt(ctx, approverID)
			if err != nil {
				s.log.Warn().Err(err).Str("approver_id", approverID).Msg("Reminder lookup failed, skipping approver")
				continue
			}
			if lastSent != nil && time.Since(*lastSent) < s.cooldown {
				continue
			}
		}

		s.notifier.Notify(ctx, approverID, EventPendingReminder,
			"Documents awaiting your approval",
			summaryMessage(pending), nil)

		if err := s.reminders.Log(ctx, &repository.ReminderEntry{
			ApproverID:    approverID,
			DocumentCount: len(pending),
		}); err != nil {
			s.log.Warn().Err(err).Str("approver_id", approverID).Msg("Failed to log reminder")
		}
		notified++
	}

	s.log.Info().
		Int("pending_documents", len(docs)).
		Int("approvers_notified", notified).
		Msg("Reminder sweep completed")

	return notified, nil
}

// summaryMessage builds one message covering all of an approver's
// pending documents, naming at most the first three.
func summaryMessage(docs []*repository.Document) string {
	if len(docs) == 1 {
		return fmt.Sprintf("Document %q is waiting for your review.", docs[0].Name)
	}

	names := ""
	for i, doc := range docs {
		if i == 3 {
			names += fmt.Sprintf(" and %d more", len(docs)-3)
			break
		}
		if i > 0 {
			names += ", "
		}
		names += fmt.Sprintf("%q", doc.Name)
	}
	return fmt.Sprintf("You have %d documents waiting for your review: %s.", len(docs), names)
}
