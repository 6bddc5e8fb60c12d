package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"matchlink/internal/models"
	"matchlink/internal/storage"
)

// ProfileInput carries the caller-editable profile fields.
type ProfileInput struct {
	DisplayName string `json:"displayName"`
	Age         int    `json:"age"`
	Gender      string `json:"gender"`
	Location    string `json:"location"`
	PhotoURL    string `json:"photoUrl"`
	Bio         string `json:"bio"`
	Phone       string `json:"phone"`
}

// ProfileService defines the interface for profile management and the
// moderation flag consumed by the invitation core.
type ProfileService interface {
	CreateProfile(ctx context.Context, userID uint, input ProfileInput) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID uint, input ProfileInput) (*models.Profile, error)
	GetOwnProfile(ctx context.Context, userID uint) (*models.Profile, error)
	// GetPublicProfile returns the profile of another user; non-owners only
	// see approved profiles.
	GetPublicProfile(ctx context.Context, viewerID, userID uint) (*models.Profile, error)
	// Moderate sets the moderation status of a user's profile. Admin only.
	Moderate(ctx context.Context, callerRole string, userID uint, approve bool) (*models.Profile, error)
	// ListByStatus returns profiles in a moderation state. Admin only.
	ListByStatus(ctx context.Context, callerRole string, status models.ProfileStatus, page, limit int) ([]models.Profile, error)
}

// profileService is the implementation of ProfileService.
type profileService struct {
	profileRepo storage.ProfileRepository
}

// NewProfileService creates a new ProfileService instance.
func NewProfileService(profileRepo storage.ProfileRepository) ProfileService {
	return &profileService{profileRepo: profileRepo}
}

// CreateProfile publishes a new profile in the pending moderation state.
func (s *profileService) CreateProfile(ctx context.Context, userID uint, input ProfileInput) (*models.Profile, error) {
	if input.DisplayName == "" {
		return nil, errors.New("display name is required")
	}

	existing, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check for an existing profile: %w", err)
	}
	if existing != nil {
		return nil, ErrProfileExists
	}

	profile := &models.Profile{
		UserID:      userID,
		DisplayName: input.DisplayName,
		Age:         input.Age,
		Gender:      input.Gender,
		Location:    input.Location,
		PhotoURL:    input.PhotoURL,
		Bio:         input.Bio,
		Phone:       input.Phone,
		Status:      models.ProfileStatusPending,
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrProfileExists
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile replaces the editable fields and sends the profile back
// through moderation.
func (s *profileService) UpdateProfile(ctx context.Context, userID uint, input ProfileInput) (*models.Profile, error) {
	if input.DisplayName == "" {
		return nil, errors.New("display name is required")
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to retrieve profile: %w", err)
	}

	profile.DisplayName = input.DisplayName
	profile.Age = input.Age
	profile.Gender = input.Gender
	profile.Location = input.Location
	profile.PhotoURL = input.PhotoURL
	profile.Bio = input.Bio
	profile.Phone = input.Phone
	profile.Status = models.ProfileStatusPending

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return profile, nil
}

// GetOwnProfile returns the caller's profile regardless of moderation state.
func (s *profileService) GetOwnProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to retrieve profile: %w", err)
	}
	return profile, nil
}

// GetPublicProfile returns another user's profile. Unapproved profiles are
// only visible to their owner.
func (s *profileService) GetPublicProfile(ctx context.Context, viewerID, userID uint) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to retrieve profile: %w", err)
	}
	if profile.Status != models.ProfileStatusApproved && viewerID != userID {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// Moderate approves or rejects a user's profile.
func (s *profileService) Moderate(ctx context.Context, callerRole string, userID uint, approve bool) (*models.Profile, error) {
	if err := requireAdmin(callerRole); err != nil {
		return nil, err
	}

	status := models.ProfileStatusRejected
	if approve {
		status = models.ProfileStatusApproved
	}

	if err := s.profileRepo.UpdateStatus(ctx, userID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to update profile status: %w", err)
	}
	log.Printf("Profile of user %d moderated to %s", userID, status)

	return s.profileRepo.GetByUserID(ctx, userID)
}

// ListByStatus returns a page of profiles in the given moderation state.
func (s *profileService) ListByStatus(ctx context.Context, callerRole string, status models.ProfileStatus, page, limit int) ([]models.Profile, error) {
	if err := requireAdmin(callerRole); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	return s.profileRepo.ListByStatus(ctx, status, (page-1)*limit, limit)
}
