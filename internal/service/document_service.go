package service

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/simandok/be-documents/internal/apperrors"
	"github.com/simandok/be-documents/internal/logger"
	"github.com/simandok/be-documents/internal/repository"
)

// DocumentService handles document CRUD around the approval engine:
// creating drafts, editing them and listing. All status transitions go
// through ApprovalService.
type DocumentService struct {
	documents DocumentStore
	validate  *validator.Validate
	log       *logger.Logger
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(documents DocumentStore, log *logger.Logger) *DocumentService {
	return &DocumentService{
		documents: documents,
		validate:  validator.New(),
		log:       log,
	}
}

// CreateDocumentRequest creates a draft. The link points at externally
// hosted content; the service never stores document bytes.
type CreateDocumentRequest struct {
	Name         string  `json:"name" validate:"required,min=3,max=255"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
	ExternalLink string  `json:"external_link" validate:"required,url"`
	UploadedBy   string  `json:"-" validate:"required"`
}

// UpdateDocumentRequest edits a draft or rejected document.
type UpdateDocumentRequest struct {
	Name         string  `json:"name" validate:"required,min=3,max=255"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
	ExternalLink string  `json:"external_link" validate:"required,url"`
}

// CreateDocument creates a new draft owned by the uploader.
func (s *DocumentService) CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*repository.Document, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "invalid document payload")
	}

	doc := &repository.Document{
		Name:         req.Name,
		Description:  req.Description,
		ExternalLink: req.ExternalLink,
		UploadedBy:   req.UploadedBy,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("document_id", doc.ID).
		Str("uploaded_by", doc.UploadedBy).
		Msg("Document created")

	return doc, nil
}

// UpdateDocument edits the document's content fields. Only the uploader
// may edit, and only while the document is a draft or rejected.
func (s *DocumentService) UpdateDocument(ctx context.Context, documentID, actorID string, req *UpdateDocumentRequest) (*repository.Document, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidInput, "invalid document payload")
	}

	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.UploadedBy != actorID {
		return nil, apperrors.Unauthorized("only the uploader can edit the document")
	}

	return s.documents.UpdateContent(ctx, documentID, req.Name, req.Description, req.ExternalLink)
}

// ListDocuments returns documents matching the filter with the total
// match count.
func (s *DocumentService) ListDocuments(ctx context.Context, f repository.ListFilter) ([]*repository.Document, int, error) {
	return s.documents.List(ctx, f)
}
