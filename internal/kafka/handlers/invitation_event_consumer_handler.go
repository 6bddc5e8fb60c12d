package kafkahandlers

import (
	"context"
	"encoding/json"
	"log"

	"matchlink/internal/models"
	"matchlink/internal/services"
	"matchlink/internal/storage"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// InvitationEventConsumerLogic persists invitation lifecycle events consumed
// from Kafka into the audit table.
type InvitationEventConsumerLogic struct {
	eventRepo storage.InvitationEventRepository
}

// NewInvitationEventConsumerLogic creates a new InvitationEventConsumerLogic.
func NewInvitationEventConsumerLogic(eventRepo storage.InvitationEventRepository) *InvitationEventConsumerLogic {
	if eventRepo == nil {
		log.Panic("InvitationEventRepository cannot be nil")
	}
	return &InvitationEventConsumerLogic{eventRepo: eventRepo}
}

// HandleInvitationEvent processes a single Kafka message carrying an
// invitation lifecycle event. Malformed messages are skipped (their offset
// is committed); storage errors are returned so the message is redelivered.
func (h *InvitationEventConsumerLogic) HandleInvitationEvent(ctx context.Context, msg *kafka.Message) error {
	var event services.InvitationEventMessage
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Printf("Error unmarshalling invitation event (Value: %q): %v. Skipping message.", string(msg.Value), err)
		return nil
	}

	record := &models.InvitationEvent{
		InvitationID: event.InvitationID,
		SenderID:     event.SenderID,
		ReceiverID:   event.ReceiverID,
		Action:       event.Action,
		Status:       event.Status,
		OccurredAt:   event.Timestamp,
	}
	if err := h.eventRepo.Create(ctx, record); err != nil {
		log.Printf("Error saving invitation event for %s (%s): %v", event.InvitationID, event.Action, err)
		return err // Retryable
	}

	log.Printf("Invitation event recorded: %s %s -> %s", event.InvitationID, event.Action, event.Status)
	return nil
}
