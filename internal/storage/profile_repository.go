package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"matchlink/internal/models"
)

// ProfileRepository defines the interface for profile data operations.
// FindApprovedByUserID and FindByUserIDs form the read boundary the
// invitation core consumes; the rest serves profile management.
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, profile *models.Profile) error
	GetByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	// FindApprovedByUserID returns the approved profile for the user, or nil
	// if the user has no profile or the profile is not approved.
	FindApprovedByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	// FindByUserIDs returns the profiles for the given users keyed by user ID.
	// Users without a profile are simply absent from the map.
	FindByUserIDs(ctx context.Context, userIDs []uint) (map[uint]*models.Profile, error)
	ListByStatus(ctx context.Context, status models.ProfileStatus, offset, limit int) ([]models.Profile, error)
	UpdateStatus(ctx context.Context, userID uint, status models.ProfileStatus) error
}

// gormProfileRepository implements ProfileRepository using GORM.
type gormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a new GORM-based ProfileRepository.
func NewGormProfileRepository(db *gorm.DB) ProfileRepository {
	return &gormProfileRepository{db: db}
}

// Create creates a new profile record in the database.
func (r *gormProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// Update persists all fields of an existing profile.
func (r *gormProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	if profile.ID == 0 {
		return gorm.ErrMissingWhereClause
	}
	return r.db.WithContext(ctx).Save(profile).Error
}

// GetByUserID retrieves a profile by the owning user's ID.
func (r *gormProfileRepository) GetByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindApprovedByUserID returns the approved profile for the user, or nil if
// none exists. Absence is not an error at this layer.
func (r *gormProfileRepository) FindApprovedByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.ProfileStatusApproved).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// FindByUserIDs returns the profiles for the given users keyed by user ID.
func (r *gormProfileRepository) FindByUserIDs(ctx context.Context, userIDs []uint) (map[uint]*models.Profile, error) {
	result := make(map[uint]*models.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	var profiles []models.Profile
	err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		result[profiles[i].UserID] = &profiles[i]
	}
	return result, nil
}

// ListByStatus returns profiles in the given moderation state, oldest first
// so moderators work through the queue in submission order.
func (r *gormProfileRepository) ListByStatus(ctx context.Context, status models.ProfileStatus, offset, limit int) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

// UpdateStatus sets the moderation status of the user's profile.
func (r *gormProfileRepository) UpdateStatus(ctx context.Context, userID uint, status models.ProfileStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
