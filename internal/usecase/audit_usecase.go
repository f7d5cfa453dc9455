package usecase

import (
	"context"

	"github.com/lexhq/trustledger/internal/domain"
)

// AuditUseCase exposes the audit trail read-only for compliance
// export. The trail is never an input surface.
type AuditUseCase struct {
	auditRepo AuditRepository
}

// NewAuditUseCase creates a new AuditUseCase.
func NewAuditUseCase(auditRepo AuditRepository) *AuditUseCase {
	return &AuditUseCase{auditRepo: auditRepo}
}

// List returns audit entries matching the filter.
func (uc *AuditUseCase) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.TrustAuditLog, error) {
	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)
	return uc.auditRepo.List(ctx, filter)
}

// GetByResource returns the audit history of one entity.
func (uc *AuditUseCase) GetByResource(ctx context.Context, resourceType, resourceID string) ([]*domain.TrustAuditLog, error) {
	return uc.auditRepo.GetByResourceID(ctx, resourceType, resourceID)
}
