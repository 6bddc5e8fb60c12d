package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"matchlink/internal/config"
	"matchlink/internal/models"
	"matchlink/internal/storage"
)

// Operator CLI for inspecting and correcting invitation state directly
// against the database.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  ./admin show-invitation <invitationID>      - show an invitation and its audit trail")
		fmt.Println("  ./admin list-user <userID>                  - list a user's invitations")
		fmt.Println("  ./admin set-status <invitationID> <status>  - force an invitation status")
		fmt.Println("  ./admin grant-admin <username>              - grant the admin role to a user")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	invitationRepo := storage.NewGormInvitationRepository(db)
	eventRepo := storage.NewGormInvitationEventRepository(db)
	userRepo := storage.NewGormUserRepository(db)

	switch os.Args[1] {
	case "show-invitation":
		if len(os.Args) < 3 {
			log.Fatalf("invitation ID required")
		}
		showInvitation(ctx, invitationRepo, eventRepo, os.Args[2])

	case "list-user":
		if len(os.Args) < 3 {
			log.Fatalf("user ID required")
		}
		userID, err := strconv.ParseUint(os.Args[2], 10, 32)
		if err != nil {
			log.Fatalf("invalid user ID: %v", err)
		}
		listUser(ctx, invitationRepo, uint(userID))

	case "set-status":
		if len(os.Args) < 4 {
			log.Fatalf("invitation ID and status required")
		}
		status := models.InvitationStatus(os.Args[3])
		if !models.ValidInvitationStatus(status) {
			log.Fatalf("invalid status %q", os.Args[3])
		}
		if err := invitationRepo.UpdateStatus(ctx, os.Args[2], status); err != nil {
			log.Fatalf("failed to set status: %v", err)
		}
		fmt.Printf("invitation %s set to %s\n", os.Args[2], status)

	case "grant-admin":
		if len(os.Args) < 3 {
			log.Fatalf("username required")
		}
		grantAdmin(ctx, userRepo, os.Args[2])

	default:
		log.Fatalf("unknown command %q", os.Args[1])
	}
}

func showInvitation(ctx context.Context, invitationRepo storage.InvitationRepository, eventRepo storage.InvitationEventRepository, id string) {
	invitation, err := invitationRepo.GetByID(ctx, id)
	if err != nil {
		log.Fatalf("failed to load invitation %s: %v", id, err)
	}
	fmt.Printf("Invitation %s\n", invitation.ID)
	terminal := ""
	if invitation.Terminal() {
		terminal = "  (terminal)"
	}
	fmt.Printf("  %d -> %d  status=%s%s\n", invitation.SenderID, invitation.ReceiverID, invitation.Status, terminal)
	fmt.Printf("  created=%s updated=%s\n", invitation.CreatedAt, invitation.UpdatedAt)
	if invitation.Message != "" {
		fmt.Printf("  message: %s\n", invitation.Message)
	}

	events, err := eventRepo.ListByInvitationID(ctx, id)
	if err != nil {
		log.Fatalf("failed to load events for %s: %v", id, err)
	}
	for _, event := range events {
		fmt.Printf("  event: %s -> %s at %s\n", event.Action, event.Status, event.OccurredAt)
	}
}

func listUser(ctx context.Context, invitationRepo storage.InvitationRepository, userID uint) {
	invitations, err := invitationRepo.List(ctx, &userID, nil, 0, 100)
	if err != nil {
		log.Fatalf("failed to list invitations for user %d: %v", userID, err)
	}
	for _, invitation := range invitations {
		fmt.Printf("%s  %d -> %d  %s  %s\n",
			invitation.ID, invitation.SenderID, invitation.ReceiverID, invitation.Status, invitation.CreatedAt)
	}
	fmt.Printf("%d invitation(s)\n", len(invitations))
}

func grantAdmin(ctx context.Context, userRepo storage.UserRepository, username string) {
	user, err := userRepo.GetByUsername(ctx, username)
	if err != nil {
		log.Fatalf("failed to load user %q: %v", username, err)
	}
	user.Role = models.RoleAdmin
	if err := userRepo.Update(ctx, user); err != nil {
		log.Fatalf("failed to grant admin to %q: %v", username, err)
	}
	fmt.Printf("user %q is now an admin\n", username)
}
