package storage

import (
	"context"

	"gorm.io/gorm"

	"matchlink/internal/models"
)

// InvitationEventRepository defines the interface for the invitation audit
// trail written by the event worker.
type InvitationEventRepository interface {
	Create(ctx context.Context, event *models.InvitationEvent) error
	ListByInvitationID(ctx context.Context, invitationID string) ([]models.InvitationEvent, error)
}

// gormInvitationEventRepository implements InvitationEventRepository using GORM.
type gormInvitationEventRepository struct {
	db *gorm.DB
}

// NewGormInvitationEventRepository creates a new GORM-based InvitationEventRepository.
func NewGormInvitationEventRepository(db *gorm.DB) InvitationEventRepository {
	return &gormInvitationEventRepository{db: db}
}

// Create appends an event to the audit trail.
func (r *gormInvitationEventRepository) Create(ctx context.Context, event *models.InvitationEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListByInvitationID returns the audit trail for one invitation in the order
// the events occurred.
func (r *gormInvitationEventRepository) ListByInvitationID(ctx context.Context, invitationID string) ([]models.InvitationEvent, error) {
	var events []models.InvitationEvent
	err := r.db.WithContext(ctx).
		Where("invitation_id = ?", invitationID).
		Order("occurred_at ASC").
		Find(&events).Error
	return events, err
}
