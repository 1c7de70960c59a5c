package service

import (
	"context"
	"sort"

	"github.com/simandok/be-documents/internal/apperrors"
	"github.com/simandok/be-documents/internal/repository"
)

// UserDirectory resolves users and their role hierarchy levels.
type UserDirectory interface {
	// GetByID returns one user, or a NOT_FOUND error.
	GetByID(ctx context.Context, id string) (*repository.User, error)
	// GetByIDs returns users keyed by ID; unknown IDs are absent.
	GetByIDs(ctx context.Context, ids []string) (map[string]*repository.User, error)
}

// HierarchyService answers seniority questions about users. Pure
// lookups, no side effects.
type HierarchyService struct {
	users UserDirectory
}

// NewHierarchyService creates a new HierarchyService.
func NewHierarchyService(users UserDirectory) *HierarchyService {
	return &HierarchyService{users: users}
}

// LevelOf returns the user's role hierarchy level; higher is more senior.
func (s *HierarchyService) LevelOf(ctx context.Context, userID string) (int, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.HierarchyLevel, nil
}

// SortByHierarchy orders user IDs ascending by hierarchy level, so the
// most junior reviewer comes first. Equal levels keep their input
// order. Fails when any ID does not resolve.
func (s *HierarchyService) SortByHierarchy(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	users, err := s.users.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range userIDs {
		if _, ok := users[id]; !ok {
			return nil, apperrors.NotFound("user", id)
		}
	}

	ordered := make([]string, len(userIDs))
	copy(ordered, userIDs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return users[ordered[i]].HierarchyLevel < users[ordered[j]].HierarchyLevel
	})
	return ordered, nil
}

// CanApprove reports whether the approver outranks the uploader.
func (s *HierarchyService) CanApprove(ctx context.Context, approverID, uploaderID string) (bool, error) {
	approverLevel, err := s.LevelOf(ctx, approverID)
	if err != nil {
		return false, err
	}
	uploaderLevel, err := s.LevelOf(ctx, uploaderID)
	if err != nil {
		return false, err
	}
	return approverLevel > uploaderLevel, nil
}
