package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchlink/internal/models"
	"matchlink/internal/services"
)

func TestSendCreatesPendingInvitation(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "555-0101")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "555-0202")

	view, err := f.svc.Send(ctx, u1.ID, u2.ID, "hello there")
	require.NoError(t, err)

	assert.Equal(t, models.InvitationStatusPending, view.Status)
	assert.Equal(t, u1.ID, view.SenderID)
	assert.Equal(t, u2.ID, view.ReceiverID)
	assert.Equal(t, "hello there", view.Message)
	assert.NotEmpty(t, view.ID)

	stored, err := f.invitationRepo.GetByID(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusPending, stored.Status)
}

func TestSendRejectsSelfInvitation(t *testing.T) {
	f := newInvitationFixture(t)
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")

	_, err := f.svc.Send(context.Background(), u1.ID, u1.ID, "")
	assert.ErrorIs(t, err, services.ErrSelfInvitation)
}

func TestSendRequiresApprovedReceiverProfile(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	pending := seedUser(t, f.db, "bob", models.ProfileStatusPending, "")
	rejected := seedUser(t, f.db, "carol", models.ProfileStatusRejected, "")
	bare := seedUserWithoutProfile(t, f.db, "dave")

	_, err := f.svc.Send(ctx, u1.ID, pending.ID, "")
	assert.ErrorIs(t, err, services.ErrProfileNotFound)

	_, err = f.svc.Send(ctx, u1.ID, rejected.ID, "")
	assert.ErrorIs(t, err, services.ErrProfileNotFound)

	_, err = f.svc.Send(ctx, u1.ID, bare.ID, "")
	assert.ErrorIs(t, err, services.ErrProfileNotFound)
}

func TestSendRejectsDuplicateOutstanding(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "")

	first, err := f.svc.Send(ctx, u1.ID, u2.ID, "")
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, u1.ID, u2.ID, "again")
	assert.ErrorIs(t, err, services.ErrDuplicateInvitation)

	// Accepted invitations still block a resend in the same direction.
	_, err = f.svc.Accept(ctx, u2.ID, first.ID)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, u1.ID, u2.ID, "once more")
	assert.ErrorIs(t, err, services.ErrDuplicateInvitation)
}

func TestSendAllowedAfterDecline(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "")

	first, err := f.svc.Send(ctx, u1.ID, u2.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Decline(ctx, u2.ID, first.ID)
	require.NoError(t, err)

	second, err := f.svc.Send(ctx, u1.ID, u2.ID, "second try")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, models.InvitationStatusPending, second.Status)

	// The declined record is history, not overwritten.
	old, err := f.invitationRepo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusDeclined, old.Status)
}

func TestSendMessageSanitization(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "")

	view, err := f.svc.Send(ctx, u1.ID, u2.ID, "  <b>hi</b> bob <script>x()</script> ")
	require.NoError(t, err)
	assert.Equal(t, "hi bob x()", view.Message)
}

func TestSendRejectsOverlongMessage(t *testing.T) {
	f := newInvitationFixture(t)
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "")

	_, err := f.svc.Send(context.Background(), u1.ID, u2.ID, strings.Repeat("x", 501))
	assert.ErrorIs(t, err, services.ErrMessageTooLong)
}

// Crossing invitations converge: the second send finds the reverse pending
// record and both sides read back as mutual.
func TestSendTimeMutualConvergence(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "555-0101")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "555-0202")

	first, err := f.svc.Send(ctx, u1.ID, u2.ID, "")
	require.NoError(t, err)
	require.Equal(t, models.InvitationStatusPending, first.Status)

	second, err := f.svc.Send(ctx, u2.ID, u1.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusMutual, second.Status)

	promoted, err := f.invitationRepo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusMutual, promoted.Status)

	// One confirmed connection, two directed records.
	list, err := f.svc.List(ctx, u1.ID, models.RoleUser, 1, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Counts.Mutual)
	assert.Equal(t, int64(2), list.Counts.Total)
	assert.Len(t, list.Items, 2)
}

func TestAcceptWithoutReverseStaysAccepted(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "")

	sent, err := f.svc.Send(ctx, u1.ID, u2.ID, "")
	require.NoError(t, err)

	accepted, err := f.svc.Accept(ctx, u2.ID, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusAccepted, accepted.Status)
}

// A reverse pending record at accept time promotes both sides, exactly as a
// crossing send would. The both-pending state is seeded directly since Send
// reconciles eagerly.
func TestAcceptTimeMutualConvergence(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "")

	forward := &models.Invitation{ID: "inv-forward", SenderID: u1.ID, ReceiverID: u2.ID, Status: models.InvitationStatusPending}
	reverse := &models.Invitation{ID: "inv-reverse", SenderID: u2.ID, ReceiverID: u1.ID, Status: models.InvitationStatusPending}
	require.NoError(t, f.invitationRepo.Create(ctx, forward))
	require.NoError(t, f.invitationRepo.Create(ctx, reverse))

	view, err := f.svc.Accept(ctx, u2.ID, forward.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusMutual, view.Status)

	promoted, err := f.invitationRepo.GetByID(ctx, reverse.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusMutual, promoted.Status)
}

func TestAcceptOnlyByReceiver(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "")
	u3 := seedUser(t, f.db, "carol", models.ProfileStatusApproved, "")

	sent, err := f.svc.Send(ctx, u1.ID, u2.ID, "")
	require.NoError(t, err)

	// Neither the sender nor a third party can resolve it, and the error is
	// indistinguishable from the record not existing.
	_, err = f.svc.Accept(ctx, u1.ID, sent.ID)
	assert.ErrorIs(t, err, services.ErrInvitationNotFound)
	_, err = f.svc.Accept(ctx, u3.ID, sent.ID)
	assert.ErrorIs(t, err, services.ErrInvitationNotFound)

	_, err = f.svc.Accept(ctx, u2.ID, "no-such-invitation")
	assert.ErrorIs(t, err, services.ErrInvitationNotFound)
}

func TestDeclineIsTerminal(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "")

	sent, err := f.svc.Send(ctx, u1.ID, u2.ID, "")
	require.NoError(t, err)

	declined, err := f.svc.Decline(ctx, u2.ID, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusDeclined, declined.Status)

	// No further transitions from normal operations.
	_, err = f.svc.Accept(ctx, u2.ID, sent.ID)
	assert.ErrorIs(t, err, services.ErrInvitationNotFound)
	_, err = f.svc.Decline(ctx, u2.ID, sent.ID)
	assert.ErrorIs(t, err, services.ErrInvitationNotFound)

	// A later reverse invitation does not resurrect the declined record.
	reverse, err := f.svc.Send(ctx, u2.ID, u1.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusPending, reverse.Status)
	old, err := f.invitationRepo.GetByID(ctx, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusDeclined, old.Status)
}

func TestResolvedInvitationCannotBeResolvedAgain(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "")

	sent, err := f.svc.Send(ctx, u1.ID, u2.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, u2.ID, sent.ID)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, u2.ID, sent.ID)
	assert.ErrorIs(t, err, services.ErrInvitationNotFound)
	_, err = f.svc.Decline(ctx, u2.ID, sent.ID)
	assert.ErrorIs(t, err, services.ErrInvitationNotFound)
}

func TestContactDisclosureFollowsStatus(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "555-0101")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "555-0202")

	sent, err := f.svc.Send(ctx, u1.ID, u2.ID, "")
	require.NoError(t, err)
	require.NotNil(t, sent.Sender)
	require.NotNil(t, sent.Receiver)
	assert.Nil(t, sent.Sender.Phone, "no contact details while pending")
	assert.Nil(t, sent.Receiver.Phone, "no contact details while pending")
	assert.Equal(t, "alice", sent.Sender.DisplayName)

	accepted, err := f.svc.Accept(ctx, u2.ID, sent.ID)
	require.NoError(t, err)
	require.NotNil(t, accepted.Sender.Phone)
	require.NotNil(t, accepted.Receiver.Phone)
	assert.Equal(t, "555-0101", *accepted.Sender.Phone)
	assert.Equal(t, "555-0202", *accepted.Receiver.Phone)
}

func TestContactDisclosureSkipsEmptyPhone(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "555-0202")

	sent, err := f.svc.Send(ctx, u1.ID, u2.ID, "")
	require.NoError(t, err)
	accepted, err := f.svc.Accept(ctx, u2.ID, sent.ID)
	require.NoError(t, err)

	assert.Nil(t, accepted.Sender.Phone, "no phone on file, nothing to disclose")
	require.NotNil(t, accepted.Receiver.Phone)
	assert.Equal(t, "555-0202", *accepted.Receiver.Phone)
}

func TestAdminSetStatus(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "")

	sent, err := f.svc.Send(ctx, u1.ID, u2.ID, "")
	require.NoError(t, err)

	_, err = f.svc.AdminSetStatus(ctx, models.RoleUser, sent.ID, models.InvitationStatusAccepted)
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = f.svc.AdminSetStatus(ctx, models.RoleAdmin, sent.ID, models.InvitationStatus("blocked"))
	assert.ErrorIs(t, err, services.ErrInvalidStatus)

	_, err = f.svc.AdminSetStatus(ctx, models.RoleAdmin, "no-such-invitation", models.InvitationStatusAccepted)
	assert.ErrorIs(t, err, services.ErrInvitationNotFound)

	view, err := f.svc.AdminSetStatus(ctx, models.RoleAdmin, sent.ID, models.InvitationStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusAccepted, view.Status)

	// Idempotent: applying the same override again succeeds.
	view, err = f.svc.AdminSetStatus(ctx, models.RoleAdmin, sent.ID, models.InvitationStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusAccepted, view.Status)

	// The override bypasses the terminal-state restriction.
	view, err = f.svc.AdminSetStatus(ctx, models.RoleAdmin, sent.ID, models.InvitationStatusDeclined)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusDeclined, view.Status)
	view, err = f.svc.AdminSetStatus(ctx, models.RoleAdmin, sent.ID, models.InvitationStatusPending)
	require.NoError(t, err)
	assert.Equal(t, models.InvitationStatusPending, view.Status)
}

// Reviving a resolved record collides with a newer outstanding invitation
// for the same pair; the partial unique index reports the conflict.
func TestAdminRevivalConflictsWithNewerInvitation(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "")

	first, err := f.svc.Send(ctx, u1.ID, u2.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Decline(ctx, u2.ID, first.ID)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, u1.ID, u2.ID, "")
	require.NoError(t, err)

	_, err = f.svc.AdminSetStatus(ctx, models.RoleAdmin, first.ID, models.InvitationStatusPending)
	assert.ErrorIs(t, err, services.ErrDuplicateInvitation)
}

func TestListPaginationAndCounts(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")

	for i := 0; i < 12; i++ {
		receiver := seedUser(t, f.db, fmt.Sprintf("user%02d", i), models.ProfileStatusApproved, "")
		_, err := f.svc.Send(ctx, u1.ID, receiver.ID, "")
		require.NoError(t, err)
	}

	page1, err := f.svc.List(ctx, u1.ID, models.RoleUser, 1, 10, nil)
	require.NoError(t, err)
	assert.Len(t, page1.Items, 10)
	assert.Equal(t, int64(12), page1.Counts.Total)
	assert.Equal(t, int64(12), page1.Counts.Pending)
	assert.Equal(t, int64(12), page1.Pagination.TotalItems)
	assert.Equal(t, int64(2), page1.Pagination.TotalPages)
	assert.Equal(t, 1, page1.Pagination.Page)

	page2, err := f.svc.List(ctx, u1.ID, models.RoleUser, 2, 10, nil)
	require.NoError(t, err)
	assert.Len(t, page2.Items, 2)
	assert.Equal(t, int64(12), page2.Counts.Total, "counts cover the full set regardless of the page")

	// Pages do not overlap.
	seen := make(map[string]bool)
	for _, item := range page1.Items {
		seen[item.ID] = true
	}
	for _, item := range page2.Items {
		assert.False(t, seen[item.ID], "invitation %s appeared on both pages", item.ID)
	}
}

func TestListScopeAndStatusFilter(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "")
	u3 := seedUser(t, f.db, "carol", models.ProfileStatusApproved, "")
	u4 := seedUser(t, f.db, "dave", models.ProfileStatusApproved, "")

	sent, err := f.svc.Send(ctx, u1.ID, u2.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, u2.ID, sent.ID)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, u3.ID, u4.ID, "")
	require.NoError(t, err)

	// Participants see their own invitations from either side.
	forU1, err := f.svc.List(ctx, u1.ID, models.RoleUser, 1, 10, nil)
	require.NoError(t, err)
	require.Len(t, forU1.Items, 1)
	assert.Equal(t, sent.ID, forU1.Items[0].ID)

	forU2, err := f.svc.List(ctx, u2.ID, models.RoleUser, 1, 10, nil)
	require.NoError(t, err)
	require.Len(t, forU2.Items, 1)

	// Admins see everything.
	forAdmin, err := f.svc.List(ctx, 0, models.RoleAdmin, 1, 10, nil)
	require.NoError(t, err)
	assert.Len(t, forAdmin.Items, 2)

	// Status filter narrows items and counts alike.
	pendingOnly := models.InvitationStatusPending
	filtered, err := f.svc.List(ctx, 0, models.RoleAdmin, 1, 10, &pendingOnly)
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	assert.Equal(t, models.InvitationStatusPending, filtered.Items[0].Status)
	assert.Equal(t, int64(1), filtered.Counts.Total)
	assert.Equal(t, int64(1), filtered.Counts.Pending)
	assert.Equal(t, int64(0), filtered.Counts.Accepted)

	bogus := models.InvitationStatus("blocked")
	_, err = f.svc.List(ctx, 0, models.RoleAdmin, 1, 10, &bogus)
	assert.ErrorIs(t, err, services.ErrInvalidStatus)
}

func TestListNormalizesPagination(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")

	list, err := f.svc.List(ctx, u1.ID, models.RoleUser, 0, -5, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Pagination.Page)
	assert.Equal(t, services.DefaultPageSize, list.Pagination.Limit)

	list, err = f.svc.List(ctx, u1.ID, models.RoleUser, 1, 1000, nil)
	require.NoError(t, err)
	assert.Equal(t, services.MaxPageSize, list.Pagination.Limit)
}

func TestLifecycleEventsPublished(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "")

	first, err := f.svc.Send(ctx, u1.ID, u2.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, u2.ID, u1.ID, "")
	require.NoError(t, err)

	// The first send publishes one created event; the crossing send
	// publishes its own created event plus the promotion of the reverse
	// record.
	require.Len(t, f.producer.messages, 3)

	var actions []string
	for _, msg := range f.producer.messages {
		assert.Equal(t, "invitation-events-test", msg.Topic)
		var event services.InvitationEventMessage
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		actions = append(actions, event.Action)
	}
	assert.Equal(t, []string{
		models.InvitationEventCreated,
		models.InvitationEventCreated,
		models.InvitationEventMutual,
	}, actions)

	// The promotion event reflects the committed state.
	var promoted services.InvitationEventMessage
	require.NoError(t, json.Unmarshal(f.producer.messages[2].Payload, &promoted))
	assert.Equal(t, first.ID, promoted.InvitationID)
	assert.Equal(t, models.InvitationStatusMutual, promoted.Status)
}

func TestDeclineEventPublished(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()
	u1 := seedUser(t, f.db, "alice", models.ProfileStatusApproved, "")
	u2 := seedUser(t, f.db, "bob", models.ProfileStatusApproved, "")

	sent, err := f.svc.Send(ctx, u1.ID, u2.ID, "")
	require.NoError(t, err)
	_, err = f.svc.Decline(ctx, u2.ID, sent.ID)
	require.NoError(t, err)

	require.Len(t, f.producer.messages, 2)
	var event services.InvitationEventMessage
	require.NoError(t, json.Unmarshal(f.producer.messages[1].Payload, &event))
	assert.Equal(t, models.InvitationEventDeclined, event.Action)
	assert.Equal(t, sent.ID, event.InvitationID)
}
