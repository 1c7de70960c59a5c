package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simandok/be-documents/internal/apperrors"
	"github.com/simandok/be-documents/internal/repository"
)

func newDocumentFixture(t *testing.T) (*DocumentService, *ApprovalService, *memStore) {
	t.Helper()
	store := newMemStore()
	users := testDirectory()
	hierarchy := NewHierarchyService(users)
	approvals := NewApprovalService(store, store, historyView{store}, users, hierarchy, &fakeNotifier{}, testLogger())
	documents := NewDocumentService(store, testLogger())
	return documents, approvals, store
}

func TestCreateDocument(t *testing.T) {
	documents, _, store := newDocumentFixture(t)

	doc, err := documents.CreateDocument(context.Background(), &CreateDocumentRequest{
		Name:         "Nota Dinas Anggaran",
		Description:  strptr("Q3 budget adjustment"),
		ExternalLink: "https://drive.example.com/nota-dinas",
		UploadedBy:   uploaderID,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, repository.StatusDraft, doc.Status)
	assert.Equal(t, uploaderID, doc.UploadedBy)
	assert.False(t, doc.IsArchived)

	history := store.history[doc.ID]
	require.Len(t, history, 1)
	assert.Equal(t, repository.ActionCreated, history[0].Action)
}

func TestCreateDocument_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateDocumentRequest
	}{
		{"missing name", CreateDocumentRequest{ExternalLink: "https://x.test/doc", UploadedBy: uploaderID}},
		{"name too short", CreateDocumentRequest{Name: "ab", ExternalLink: "https://x.test/doc", UploadedBy: uploaderID}},
		{"missing link", CreateDocumentRequest{Name: "Surat Tugas", UploadedBy: uploaderID}},
		{"link not a url", CreateDocumentRequest{Name: "Surat Tugas", ExternalLink: "not a link", UploadedBy: uploaderID}},
		{"missing uploader", CreateDocumentRequest{Name: "Surat Tugas", ExternalLink: "https://x.test/doc"}},
		{"description too long", CreateDocumentRequest{
			Name:         "Surat Tugas",
			Description:  strptr(strings.Repeat("x", 2001)),
			ExternalLink: "https://x.test/doc",
			UploadedBy:   uploaderID,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			documents, _, store := newDocumentFixture(t)

			_, err := documents.CreateDocument(context.Background(), &tt.req)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeInvalidInput, apperrors.CodeOf(err))
			assert.Empty(t, store.docs)
		})
	}
}

func TestUpdateDocument(t *testing.T) {
	documents, approvals, store := newDocumentFixture(t)
	ctx := context.Background()
	doc := createDraft(t, store)

	updated, err := documents.UpdateDocument(ctx, doc.ID, uploaderID, &UpdateDocumentRequest{
		Name:         "Surat Keputusan 2026 rev2",
		ExternalLink: "https://drive.example.com/sk-2026-rev2",
	})
	require.NoError(t, err)
	assert.Equal(t, "Surat Keputusan 2026 rev2", updated.Name)
	assert.Nil(t, updated.Description)

	// Someone else's edit is refused.
	_, err = documents.UpdateDocument(ctx, doc.ID, approver1ID, &UpdateDocumentRequest{
		Name:         "Hijacked",
		ExternalLink: "https://drive.example.com/other",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.CodeOf(err))

	// Once submitted the content is frozen.
	_, err = approvals.SetApprovers(ctx, doc.ID, []string{approver1ID})
	require.NoError(t, err)
	_, err = approvals.SubmitForApproval(ctx, doc.ID, uploaderID)
	require.NoError(t, err)

	_, err = documents.UpdateDocument(ctx, doc.ID, uploaderID, &UpdateDocumentRequest{
		Name:         "Too late",
		ExternalLink: "https://drive.example.com/late",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestUpdateDocument_RejectedStaysEditable(t *testing.T) {
	documents, approvals, store := newDocumentFixture(t)
	ctx := context.Background()
	doc := createDraft(t, store)

	_, err := approvals.SetApprovers(ctx, doc.ID, []string{approver1ID})
	require.NoError(t, err)
	_, err = approvals.SubmitForApproval(ctx, doc.ID, uploaderID)
	require.NoError(t, err)
	_, err = approvals.Reject(ctx, doc.ID, approver1ID, "figures outdated")
	require.NoError(t, err)

	updated, err := documents.UpdateDocument(ctx, doc.ID, uploaderID, &UpdateDocumentRequest{
		Name:         "Surat Keputusan 2026 rev3",
		ExternalLink: "https://drive.example.com/sk-2026-rev3",
	})
	require.NoError(t, err)
	assert.Equal(t, "Surat Keputusan 2026 rev3", updated.Name)
}

func TestListDocuments_Filters(t *testing.T) {
	documents, approvals, store := newDocumentFixture(t)
	ctx := context.Background()

	draft := createDraft(t, store)
	inFlight := createDraft(t, store)
	_, err := approvals.SetApprovers(ctx, inFlight.ID, []string{approver1ID})
	require.NoError(t, err)
	_, err = approvals.SubmitForApproval(ctx, inFlight.ID, uploaderID)
	require.NoError(t, err)

	status := repository.StatusDraft
	drafts, total, err := documents.ListDocuments(ctx, repository.ListFilter{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, drafts, 1)
	assert.Equal(t, draft.ID, drafts[0].ID)

	mine, total, err := documents.ListDocuments(ctx, repository.ListFilter{UploadedBy: strptr(uploaderID)})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, mine, 2)
}
