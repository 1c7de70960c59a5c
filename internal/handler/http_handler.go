package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/simandok/be-documents/internal/apperrors"
	"github.com/simandok/be-documents/internal/logger"
	"github.com/simandok/be-documents/internal/repository"
	"github.com/simandok/be-documents/internal/service"
)

// HTTPHandler exposes the document approval operations over HTTP.
// Authentication happens upstream; the acting user arrives in the
// X-User-ID header set by the gateway.
type HTTPHandler struct {
	documents *service.DocumentService
	approvals *service.ApprovalService
	reminders *service.ReminderService
	log       *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(
	documents *service.DocumentService,
	approvals *service.ApprovalService,
	reminders *service.ReminderService,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		documents: documents,
		approvals: approvals,
		reminders: reminders,
		log:       log,
	}
}

// CreateDocument handles POST /api/v1/documents.
func (h *HTTPHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req service.CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.UploadedBy = actor

	doc, err := h.documents.CreateDocument(r.Context(), &req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, doc)
}

// GetDocument handles GET /api/v1/documents/get?id=.
func (h *HTTPHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Document ID is required", http.StatusBadRequest)
		return
	}

	doc, err := h.approvals.GetDocument(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, doc)
}

// ListDocuments handles GET /api/v1/documents.
func (h *HTTPHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f repository.ListFilter
	if v := q.Get("uploaded_by"); v != "" {
		f.UploadedBy = &v
	}
	if v := q.Get("status"); v != "" {
		status := repository.DocumentStatus(v)
		f.Status = &status
	}
	if v := q.Get("archived"); v != "" {
		archived := v == "true"
		f.Archived = &archived
	}

	f.Page, _ = strconv.Atoi(q.Get("page"))
	if f.Page < 1 {
		f.Page = 1
	}
	f.PageSize, _ = strconv.Atoi(q.Get("page_size"))
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 50
	}

	docs, total, err := h.documents.ListDocuments(r.Context(), f)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     total,
		"page":      f.Page,
		"pageSize":  f.PageSize,
	})
}

// ListPending handles GET /api/v1/documents/pending: the acting user's
// approval queue.
func (h *HTTPHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	docs, err := h.approvals.ListPendingForApprover(r.Context(), actor)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, docs)
}

// UpdateDocument handles POST /api/v1/documents/update.
func (h *HTTPHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		ID string `json:"id"`
		service.UpdateDocumentRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := h.documents.UpdateDocument(r.Context(), req.ID, actor, &req.UpdateDocumentRequest)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, doc)
}

// SetApprovers handles POST /api/v1/documents/approvers.
func (h *HTTPHandler) SetApprovers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}

	var req struct {
		ID        string   `json:"id"`
		Approvers []string `json:"approvers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	slots, err := h.approvals.SetApprovers(r.Context(), req.ID, req.Approvers)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, slots)
}

// GetApprovers handles GET /api/v1/documents/approvers?id=.
func (h *HTTPHandler) GetApprovers(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Document ID is required", http.StatusBadRequest)
		return
	}

	slots, err := h.approvals.GetApprovers(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, slots)
}

// SubmitDocument handles POST /api/v1/documents/submit.
func (h *HTTPHandler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.approvals.SubmitForApproval)
}

// MarkViewed handles POST /api/v1/documents/view.
func (h *HTTPHandler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	slot, err := h.approvals.MarkAsViewed(r.Context(), req.ID, actor)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if slot == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.respondJSON(w, http.StatusOK, slot)
}

// ApproveDocument handles POST /api/v1/documents/approve.
func (h *HTTPHandler) ApproveDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		ID      string  `json:"id"`
		Remarks *string `json:"remarks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := h.approvals.Approve(r.Context(), req.ID, actor, req.Remarks)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, doc)
}

// RejectDocument handles POST /api/v1/documents/reject.
func (h *HTTPHandler) RejectDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := h.approvals.Reject(r.Context(), req.ID, actor, req.Reason)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, doc)
}

// ResubmitDocument handles POST /api/v1/documents/resubmit.
func (h *HTTPHandler) ResubmitDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		ID      string  `json:"id"`
		Remarks *string `json:"remarks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := h.approvals.Resubmit(r.Context(), req.ID, actor, req.Remarks)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, doc)
}

// PrintDocument handles POST /api/v1/documents/print.
func (h *HTTPHandler) PrintDocument(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.approvals.MarkAsPrinted)
}

// ArchiveDocument handles POST /api/v1/documents/archive.
func (h *HTTPHandler) ArchiveDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		ID     string  `json:"id"`
		Reason *string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := h.approvals.ArchiveDocument(r.Context(), req.ID, actor, req.Reason)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, doc)
}

// RestoreDocument handles POST /api/v1/documents/restore.
func (h *HTTPHandler) RestoreDocument(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.approvals.RestoreDocument)
}

// GetHistory handles GET /api/v1/documents/history?id=&order=.
func (h *HTTPHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Document ID is required", http.StatusBadRequest)
		return
	}
	descending := r.URL.Query().Get("order") == "desc"

	entries, err := h.approvals.GetHistory(r.Context(), id, descending)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, entries)
}

// RunReminderSweep handles POST /api/v1/reminders/run.
func (h *HTTPHandler) RunReminderSweep(w http.ResponseWriter, r *http.Request) {
	notified, err := h.reminders.Run(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]int{"approvers_notified": notified})
}

// ── helpers ───────────────────────────────────────────────────────────────────

// transition serves the engine operations that take only the document
// ID and the acting user.
func (h *HTTPHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, documentID, actorID string) (*repository.Document, error),
) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	doc, err := op(r.Context(), req.ID, actor)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, doc)
}

func (h *HTTPHandler) actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	actor := r.Header.Get("X-User-ID")
	if actor == "" {
		http.Error(w, "X-User-ID header is required", http.StatusUnauthorized)
		return "", false
	}
	return actor, true
}

func (h *HTTPHandler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":    string(apperrors.CodeOf(err)),
		"message": apperrors.MessageOf(err),
	})
}
