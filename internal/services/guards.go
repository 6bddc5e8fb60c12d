package services

import "matchlink/internal/models"

// Authorization guard predicates. Pure checks with no side effects; every
// mutating operation invokes the ones it needs before touching the store.

// requireReceiver fails unless the caller is the invitation's receiver. The
// failure is reported as not-found so that non-receivers cannot probe for a
// record's existence or state.
func requireReceiver(invitation *models.Invitation, callerID uint) error {
	if invitation.ReceiverID != callerID {
		return ErrInvitationNotFound
	}
	return nil
}

// requireAdmin fails unless the caller holds the admin role.
func requireAdmin(role string) error {
	if role != models.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// requireNotSelf fails when a user targets themselves.
func requireNotSelf(senderID, targetID uint) error {
	if senderID == targetID {
		return ErrSelfInvitation
	}
	return nil
}
