package integration

import (
	"context"

	"github.com/crm/backend/internal/domain/partner"
)

// ConflictReviewService exposes the identity conflict review queue
type ConflictReviewService struct {
	conflicts partner.IdentityConflictRepository
}

// NewConflictReviewService creates a new ConflictReviewService
func NewConflictReviewService(conflicts partner.IdentityConflictRepository) *ConflictReviewService {
	return &ConflictReviewService{conflicts: conflicts}
}

// ListUnresolved returns unresolved conflicts, newest first
func (s *ConflictReviewService) ListUnresolved(ctx context.Context, limit int) ([]ConflictResponse, error) {
	conflicts, err := s.conflicts.ListUnresolved(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]ConflictResponse, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, ToConflictResponse(c))
	}
	return out, nil
}
