package models

import "time"

// Actions recorded for invitation lifecycle events.
const (
	InvitationEventCreated       = "created"
	InvitationEventAccepted      = "accepted"
	InvitationEventDeclined      = "declined"
	InvitationEventMutual        = "mutual"
	InvitationEventAdminOverride = "admin_override"
)

// InvitationEvent is the audit record persisted by the event worker for each
// invitation lifecycle event consumed from Kafka.
type InvitationEvent struct {
	BaseModel
	InvitationID string           `gorm:"type:varchar(36);not null;index" json:"invitationId"`
	SenderID     uint             `gorm:"not null" json:"senderId"`
	ReceiverID   uint             `gorm:"not null" json:"receiverId"`
	Action       string           `gorm:"type:varchar(20);not null" json:"action"`
	Status       InvitationStatus `gorm:"type:varchar(20);not null" json:"status"`
	OccurredAt   time.Time        `gorm:"not null" json:"occurredAt"`
}

// TableName specifies the table name for the InvitationEvent model.
func (InvitationEvent) TableName() string {
	return "invitation_events"
}
