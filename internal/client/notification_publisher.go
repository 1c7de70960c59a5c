package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NotificationPublisher publishes approval workflow events to NATS for
// consumption by the notifications service.
//
// Subject convention: notifications.documents.<event_type>
// Event types: approval_required, document_approved, document_rejected,
//              ready_to_print, approvals_pending_reminder
//
// All publish operations are non-fatal: errors are logged but never
// propagated to the caller, so notification failures never interrupt an
// approval decision.
type NotificationPublisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// NotificationEvent is the JSON schema published to NATS.
type NotificationEvent struct {
	EventType   string         `json:"event_type"`
	RecipientID string         `json:"recipient_id"`
	ActorID     string         `json:"actor_id,omitempty"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	DocumentID  string         `json:"document_id,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// NewNotificationPublisher connects to NATS. A nil publisher (or a
// publisher built from an empty URL) silently drops events, which keeps
// local development working without a broker.
func NewNotificationPublisher(url string, log zerolog.Logger) (*NotificationPublisher, error) {
	if url == "" {
		return &NotificationPublisher{log: log}, nil
	}

	conn, err := nats.Connect(url,
		nats.Name("be-documents"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NotificationPublisher{conn: conn, log: log}, nil
}

// Close drains the connection.
func (p *NotificationPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// Notify publishes one workflow event to notifications.documents.<eventType>.
func (p *NotificationPublisher) Notify(ctx context.Context, recipientID, eventType, title, message string, documentID *string) {
	if p == nil || p.conn == nil {
		return
	}
	if recipientID == "" {
		return
	}

	event := &NotificationEvent{
		EventType:   eventType,
		RecipientID: recipientID,
		Title:       title,
		Message:     message,
	}
	if documentID != nil {
		event.DocumentID = *documentID
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("event_type", eventType).Msg("notification: failed to marshal event")
		return
	}

	subject := fmt.Sprintf("notifications.documents.%s", eventType)
	if err := p.conn.Publish(subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("recipient_id", recipientID).
			Msg("notification: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("recipient_id", recipientID).
		Msg("notification: event published")
}
