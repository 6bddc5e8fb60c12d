package services

import "errors"

// Sentinel errors returned by the service layer. Handlers map these onto
// HTTP status codes with errors.Is; anything else is an internal error.
var (
	// Authentication / account errors.
	ErrUserAlreadyExists  = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")

	// Profile errors.
	ErrProfileExists   = errors.New("profile already exists")
	ErrProfileNotFound = errors.New("profile not found")

	// Invitation errors. ErrInvitationNotFound covers records that are
	// absent, not pending, or not addressed to the caller: state and
	// ownership are never revealed to callers who lack them.
	ErrInvitationNotFound  = errors.New("invitation not found")
	ErrSelfInvitation      = errors.New("cannot send an invitation to yourself")
	ErrDuplicateInvitation = errors.New("an outstanding invitation for this pair already exists")
	ErrMessageTooLong      = errors.New("invitation message exceeds 500 characters")
	ErrInvalidStatus       = errors.New("invalid invitation status")
	ErrForbidden           = errors.New("operation not permitted")

	// ErrTransient is returned after the single internal retry of an aborted
	// transaction has failed; the caller may resubmit.
	ErrTransient = errors.New("storage conflict, please retry")
)
