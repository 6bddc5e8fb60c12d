package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"matchlink/internal/config"
	"matchlink/internal/models"
	"matchlink/internal/services"
	"matchlink/internal/storage"
)

// openTestDB opens an in-memory SQLite database with the full schema.
// MaxOpenConns is pinned to 1 so every session sees the same in-memory
// database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, storage.AutoMigrateTables(db))
	return db
}

// capturedMessage is one message recorded by fakeProducer.
type capturedMessage struct {
	Topic   string
	Key     []byte
	Payload []byte
}

// fakeProducer records published messages instead of talking to a broker.
type fakeProducer struct {
	messages []capturedMessage
}

func (p *fakeProducer) SendMessage(ctx context.Context, topic string, key []byte, payload []byte) error {
	p.messages = append(p.messages, capturedMessage{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (p *fakeProducer) Close() {}

// invitationFixture bundles the service under test with everything needed to
// seed and inspect state around it.
type invitationFixture struct {
	db             *gorm.DB
	svc            services.InvitationService
	producer       *fakeProducer
	invitationRepo storage.InvitationRepository
	profileRepo    storage.ProfileRepository
}

func newInvitationFixture(t *testing.T) *invitationFixture {
	t.Helper()

	db := openTestDB(t)
	producer := &fakeProducer{}
	invitationRepo := storage.NewGormInvitationRepository(db)
	profileRepo := storage.NewGormProfileRepository(db)
	svc := services.NewInvitationService(db, invitationRepo, profileRepo, producer,
		config.KafkaConfig{InvitationEventTopic: "invitation-events-test"})

	return &invitationFixture{
		db:             db,
		svc:            svc,
		producer:       producer,
		invitationRepo: invitationRepo,
		profileRepo:    profileRepo,
	}
}

// seedUser creates a user together with a profile in the given moderation
// state. An empty phone leaves the profile without contact details.
func seedUser(t *testing.T, db *gorm.DB, username string, status models.ProfileStatus, phone string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		PasswordHash: "not-a-real-hash",
		Role:         models.RoleUser,
	}
	require.NoError(t, db.Create(user).Error)

	profile := &models.Profile{
		UserID:      user.ID,
		DisplayName: username,
		Age:         30,
		Location:    "Springfield",
		Phone:       phone,
		Status:      status,
	}
	require.NoError(t, db.Create(profile).Error)

	return user
}

// seedUserWithoutProfile creates a bare account with no profile record.
func seedUserWithoutProfile(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        fmt.Sprintf("%s@example.com", username),
		PasswordHash: "not-a-real-hash",
		Role:         models.RoleUser,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
