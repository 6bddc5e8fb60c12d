package models

import "time"

// InvitationStatus defines the lifecycle state of an invitation.
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
	InvitationStatusMutual   InvitationStatus = "mutual"
)

// OutstandingStatuses are the states that block a new invitation for the same
// ordered (sender, receiver) pair. Declined records are history and do not
// block a later invitation in the same direction.
var OutstandingStatuses = []InvitationStatus{
	InvitationStatusPending,
	InvitationStatusAccepted,
	InvitationStatusMutual,
}

// ValidInvitationStatus reports whether s is one of the four known states.
func ValidInvitationStatus(s InvitationStatus) bool {
	switch s {
	case InvitationStatusPending, InvitationStatusAccepted,
		InvitationStatusDeclined, InvitationStatusMutual:
		return true
	}
	return false
}

// Invitation is a directed interest record from one user toward another.
// Records are never deleted; declined and mutual are terminal for all
// non-admin operations.
type Invitation struct {
	ID         string           `gorm:"type:varchar(36);primarykey" json:"id"`
	SenderID   uint             `gorm:"not null;index:idx_invitation_pair,priority:1;index:idx_invitation_sender" json:"senderId"`
	ReceiverID uint             `gorm:"not null;index:idx_invitation_pair,priority:2;index:idx_invitation_receiver" json:"receiverId"`
	Status     InvitationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Message    string           `gorm:"type:varchar(500)" json:"message,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// TableName specifies the table name for the Invitation model.
func (Invitation) TableName() string {
	return "invitations"
}

// Terminal reports whether the record accepts no further transitions from
// normal (non-admin) operations.
func (i *Invitation) Terminal() bool {
	return i.Status == InvitationStatusDeclined || i.Status == InvitationStatusMutual
}

// InvitationView is the caller-visible shape of an invitation: the record
// itself plus the display projection of both referenced profiles.
type InvitationView struct {
	Invitation
	Sender   *ProfileCard `json:"sender,omitempty"`
	Receiver *ProfileCard `json:"receiver,omitempty"`
}

// InvitationCounts aggregates statuses over the full filtered set of
// invitations, independent of the pagination window.
type InvitationCounts struct {
	Pending  int64 `json:"pending"`
	Accepted int64 `json:"accepted"`
	Declined int64 `json:"declined"`
	Mutual   int64 `json:"mutual"`
	Total    int64 `json:"total"`
}
