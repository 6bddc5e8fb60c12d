package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"matchlink/internal/config"
	"matchlink/internal/kafka"
	"matchlink/internal/models"
	"matchlink/internal/storage"
)

// Pagination limits for invitation listings.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// InvitationEventMessage is the payload published to Kafka after a committed
// invitation transition. The event worker persists these to the audit table.
type InvitationEventMessage struct {
	InvitationID string                  `json:"invitationId"`
	SenderID     uint                    `json:"senderId"`
	ReceiverID   uint                    `json:"receiverId"`
	Action       string                  `json:"action"`
	Status       models.InvitationStatus `json:"status"`
	Timestamp    time.Time               `json:"timestamp"`
}

// Pagination describes the window of a listing response.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
}

// InvitationList is the listing response: the page of projected invitations
// plus aggregate counts over the full filtered set.
type InvitationList struct {
	Items      []models.InvitationView `json:"items"`
	Counts     models.InvitationCounts `json:"counts"`
	Pagination Pagination              `json:"pagination"`
}

// InvitationService defines the interface for invitation operations.
type InvitationService interface {
	Send(ctx context.Context, senderID, receiverID uint, message string) (*models.InvitationView, error)
	Accept(ctx context.Context, callerID uint, invitationID string) (*models.InvitationView, error)
	Decline(ctx context.Context, callerID uint, invitationID string) (*models.InvitationView, error)
	AdminSetStatus(ctx context.Context, callerRole, invitationID string, status models.InvitationStatus) (*models.InvitationView, error)
	List(ctx context.Context, callerID uint, callerRole string, page, limit int, statusFilter *models.InvitationStatus) (*InvitationList, error)
}

type invitationService struct {
	db             *gorm.DB // for reconciliation transactions
	invitationRepo storage.InvitationRepository
	profileRepo    storage.ProfileRepository
	producer       kafka.MessageProducer
	kafkaCfg       config.KafkaConfig
}

// NewInvitationService creates a new InvitationService instance. The producer
// may be nil, in which case lifecycle events are not published.
func NewInvitationService(
	db *gorm.DB,
	invitationRepo storage.InvitationRepository,
	profileRepo storage.ProfileRepository,
	producer kafka.MessageProducer,
	kafkaCfg config.KafkaConfig,
) InvitationService {
	return &invitationService{
		db:             db,
		invitationRepo: invitationRepo,
		profileRepo:    profileRepo,
		producer:       producer,
		kafkaCfg:       kafkaCfg,
	}
}

// Send validates and creates a new pending invitation, detecting a reverse
// pending invitation inside the same transaction and promoting both records
// to mutual when found.
func (s *invitationService) Send(ctx context.Context, senderID, receiverID uint, message string) (*models.InvitationView, error) {
	if err := requireNotSelf(senderID, receiverID); err != nil {
		return nil, err
	}

	msg, err := sanitizeMessage(message)
	if err != nil {
		return nil, err
	}

	// The receiver must have an approved profile at creation time.
	receiverProfile, err := s.profileRepo.FindApprovedByUserID(ctx, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up receiver profile: %w", err)
	}
	if receiverProfile == nil {
		return nil, ErrProfileNotFound
	}

	// Friendly pre-check before opening the transaction; the partial unique
	// index catches the concurrent-duplicate race the pre-check cannot.
	existing, err := s.invitationRepo.FindOutstanding(ctx, senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for an outstanding invitation: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateInvitation
	}

	var invitation, reverse *models.Invitation
	err = s.withRetry(ctx, func(tx *gorm.DB) error {
		txRepo := storage.NewGormInvitationRepository(tx)
		reverse = nil

		invitation = &models.Invitation{
			ID:         uuid.NewString(),
			SenderID:   senderID,
			ReceiverID: receiverID,
			Status:     models.InvitationStatusPending,
			Message:    msg,
		}
		if err := txRepo.Create(ctx, invitation); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateInvitation
			}
			return fmt.Errorf("failed to create invitation: %w", err)
		}

		var err error
		reverse, err = s.reconcile(ctx, txRepo, invitation)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, invitation, models.InvitationEventCreated)
	if reverse != nil {
		s.publishEvent(ctx, reverse, models.InvitationEventMutual)
	}

	return s.project(ctx, invitation)
}

// Accept transitions a pending invitation addressed to the caller to
// accepted, then checks for the caller's own prior outbound invitation to
// the sender and promotes both to mutual when it exists.
func (s *invitationService) Accept(ctx context.Context, callerID uint, invitationID string) (*models.InvitationView, error) {
	var invitation, reverse *models.Invitation
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		txRepo := storage.NewGormInvitationRepository(tx)
		reverse = nil

		inv, err := s.getPendingForReceiver(ctx, txRepo, invitationID, callerID)
		if err != nil {
			return err
		}

		if err := txRepo.UpdateStatus(ctx, inv.ID, models.InvitationStatusAccepted); err != nil {
			return fmt.Errorf("failed to accept invitation: %w", err)
		}
		inv.Status = models.InvitationStatusAccepted

		reverse, err = s.reconcile(ctx, txRepo, inv)
		if err != nil {
			return err
		}
		invitation = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := models.InvitationEventAccepted
	if invitation.Status == models.InvitationStatusMutual {
		action = models.InvitationEventMutual
	}
	s.publishEvent(ctx, invitation, action)
	if reverse != nil {
		s.publishEvent(ctx, reverse, models.InvitationEventMutual)
	}

	return s.project(ctx, invitation)
}

// Decline transitions a pending invitation addressed to the caller to
// declined. Declining never creates a mutual match, so no reconciliation
// is needed.
func (s *invitationService) Decline(ctx context.Context, callerID uint, invitationID string) (*models.InvitationView, error) {
	var invitation *models.Invitation
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		txRepo := storage.NewGormInvitationRepository(tx)

		inv, err := s.getPendingForReceiver(ctx, txRepo, invitationID, callerID)
		if err != nil {
			return err
		}

		if err := txRepo.UpdateStatus(ctx, inv.ID, models.InvitationStatusDeclined); err != nil {
			return fmt.Errorf("failed to decline invitation: %w", err)
		}
		inv.Status = models.InvitationStatusDeclined
		invitation = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, invitation, models.InvitationEventDeclined)

	return s.project(ctx, invitation)
}

// AdminSetStatus unconditionally sets the invitation status, bypassing the
// reconciliation algorithm and the terminal-state restriction. Operational
// escape hatch; admin only.
func (s *invitationService) AdminSetStatus(ctx context.Context, callerRole, invitationID string, status models.InvitationStatus) (*models.InvitationView, error) {
	if err := requireAdmin(callerRole); err != nil {
		return nil, err
	}
	if !models.ValidInvitationStatus(status) {
		return nil, ErrInvalidStatus
	}

	var invitation *models.Invitation
	err := s.withRetry(ctx, func(tx *gorm.DB) error {
		txRepo := storage.NewGormInvitationRepository(tx)

		inv, err := txRepo.GetByIDForUpdate(ctx, invitationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvitationNotFound
			}
			return fmt.Errorf("failed to retrieve invitation: %w", err)
		}

		if err := txRepo.UpdateStatus(ctx, inv.ID, status); err != nil {
			// Reviving a resolved record can collide with a newer outstanding
			// invitation for the same pair.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateInvitation
			}
			return fmt.Errorf("failed to override invitation status: %w", err)
		}
		inv.Status = status
		invitation = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, invitation, models.InvitationEventAdminOverride)

	return s.project(ctx, invitation)
}

// List returns a page of invitations visible to the caller, newest first,
// with aggregate counts over the full filtered set. Non-admin callers only
// see invitations they participate in.
func (s *invitationService) List(ctx context.Context, callerID uint, callerRole string, page, limit int, statusFilter *models.InvitationStatus) (*InvitationList, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if statusFilter != nil && !models.ValidInvitationStatus(*statusFilter) {
		return nil, ErrInvalidStatus
	}

	var scopeUser *uint
	if callerRole != models.RoleAdmin {
		scopeUser = &callerID
	}

	offset := (page - 1) * limit
	invitations, err := s.invitationRepo.List(ctx, scopeUser, statusFilter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}

	counts, err := s.invitationRepo.Counts(ctx, scopeUser, statusFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to count invitations: %w", err)
	}

	items, err := s.projectAll(ctx, invitations)
	if err != nil {
		return nil, err
	}

	totalPages := (counts.Total + int64(limit) - 1) / int64(limit)
	return &InvitationList{
		Items:  items,
		Counts: *counts,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			TotalItems: counts.Total,
			TotalPages: totalPages,
		},
	}, nil
}

// getPendingForReceiver locks and returns the invitation when it exists, is
// pending, and is addressed to the caller. Any other situation reports
// not-found: resolved records and records owned by others are
// indistinguishable from absent ones.
func (s *invitationService) getPendingForReceiver(ctx context.Context, txRepo storage.InvitationRepository, invitationID string, callerID uint) (*models.Invitation, error) {
	inv, err := txRepo.GetByIDForUpdate(ctx, invitationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to retrieve invitation: %w", err)
	}
	if err := requireReceiver(inv, callerID); err != nil {
		log.Printf("User %d attempted to resolve invitation %s addressed to user %d", callerID, inv.ID, inv.ReceiverID)
		return nil, err
	}
	if inv.Status != models.InvitationStatusPending {
		return nil, ErrInvitationNotFound
	}
	return inv, nil
}

// reconcile looks up the reverse pending invitation (record.ReceiverID ->
// record.SenderID) and, when found, promotes both records to mutual within
// the caller's transaction. The record is updated in place; the promoted
// reverse record is returned, or nil when no reverse invitation exists.
func (s *invitationService) reconcile(ctx context.Context, txRepo storage.InvitationRepository, record *models.Invitation) (*models.Invitation, error) {
	reverse, err := txRepo.FindPendingForUpdate(ctx, record.ReceiverID, record.SenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up reverse invitation: %w", err)
	}
	if reverse == nil {
		return nil, nil
	}

	if err := txRepo.UpdateStatus(ctx, reverse.ID, models.InvitationStatusMutual); err != nil {
		return nil, fmt.Errorf("failed to promote reverse invitation %s: %w", reverse.ID, err)
	}
	if err := txRepo.UpdateStatus(ctx, record.ID, models.InvitationStatusMutual); err != nil {
		return nil, fmt.Errorf("failed to promote invitation %s: %w", record.ID, err)
	}
	record.Status = models.InvitationStatusMutual
	reverse.Status = models.InvitationStatusMutual
	return reverse, nil
}

// reconcileTxOptions force serializable isolation on reconciliation
// transactions. At read committed, two crossing Sends can each look up the
// other's uncommitted reverse row, find nothing, and both commit as pending.
// Under serializable isolation PostgreSQL aborts one side with a
// serialization failure (SQLSTATE 40001) instead, which withRetry classifies
// and retries; the re-read then sees the committed reverse row and promotes
// both records. SQLite serializes writers regardless and accepts the option
// as a no-op.
var reconcileTxOptions = &sql.TxOptions{Isolation: sql.LevelSerializable}

// withRetry runs fn in a serializable transaction, retrying exactly once
// when the transaction aborts due to a concurrent writer. A second abort
// surfaces as ErrTransient; the caller may resubmit.
func (s *invitationService) withRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := s.db.WithContext(ctx).Transaction(fn, reconcileTxOptions)
	if err == nil || !storage.IsRetryableTxError(err) {
		return err
	}
	log.Printf("Invitation transaction aborted by a concurrent writer, retrying once: %v", err)
	err = s.db.WithContext(ctx).Transaction(fn, reconcileTxOptions)
	if err != nil && storage.IsRetryableTxError(err) {
		return ErrTransient
	}
	return err
}

// publishEvent publishes a lifecycle event for a committed transition.
// Best effort: a publish failure is logged, never unwound into the caller,
// since the database is the source of truth.
func (s *invitationService) publishEvent(ctx context.Context, invitation *models.Invitation, action string) {
	if s.producer == nil {
		return
	}

	event := InvitationEventMessage{
		InvitationID: invitation.ID,
		SenderID:     invitation.SenderID,
		ReceiverID:   invitation.ReceiverID,
		Action:       action,
		Status:       invitation.Status,
		Timestamp:    time.Now(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshalling invitation event for Kafka: %v", err)
		return
	}

	topic := s.kafkaCfg.InvitationEventTopic
	if err := s.producer.SendMessage(ctx, topic, []byte(invitation.ID), payload); err != nil {
		log.Printf("Error producing invitation event %q for %s to topic %s: %v", action, invitation.ID, topic, err)
	}
}

// disclosureAllowed reports whether contact details may be revealed for an
// invitation in the given state.
func disclosureAllowed(status models.InvitationStatus) bool {
	return status == models.InvitationStatusAccepted || status == models.InvitationStatusMutual
}

// project builds the caller-visible view of a single invitation.
func (s *invitationService) project(ctx context.Context, invitation *models.Invitation) (*models.InvitationView, error) {
	views, err := s.projectAll(ctx, []models.Invitation{*invitation})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// projectAll builds the caller-visible views for a set of invitations with a
// single profile lookup.
func (s *invitationService) projectAll(ctx context.Context, invitations []models.Invitation) ([]models.InvitationView, error) {
	userIDSet := make(map[uint]struct{}, len(invitations)*2)
	for i := range invitations {
		userIDSet[invitations[i].SenderID] = struct{}{}
		userIDSet[invitations[i].ReceiverID] = struct{}{}
	}
	userIDs := make([]uint, 0, len(userIDSet))
	for id := range userIDSet {
		userIDs = append(userIDs, id)
	}

	profiles, err := s.profileRepo.FindByUserIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles for projection: %w", err)
	}

	views := make([]models.InvitationView, 0, len(invitations))
	for i := range invitations {
		inv := invitations[i]
		views = append(views, models.InvitationView{
			Invitation: inv,
			Sender:     cardFor(profiles[inv.SenderID], inv.Status),
			Receiver:   cardFor(profiles[inv.ReceiverID], inv.Status),
		})
	}
	return views, nil
}

// cardFor builds the visible projection of one side's profile. Contact
// details are withheld from both parties until the connection is confirmed.
func cardFor(profile *models.Profile, status models.InvitationStatus) *models.ProfileCard {
	if profile == nil {
		return nil
	}
	card := profile.Card()
	if disclosureAllowed(status) && profile.Phone != "" {
		phone := profile.Phone
		card.Phone = &phone
	}
	return card
}
