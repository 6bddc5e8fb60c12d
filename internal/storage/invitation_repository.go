package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"matchlink/internal/models"
)

// InvitationRepository defines the interface for invitation data operations.
// The ForUpdate variants must be called inside a transaction: they lock the
// returned row so that two racing reconciliations cannot both read stale
// state for the same pair.
type InvitationRepository interface {
	Create(ctx context.Context, invitation *models.Invitation) error
	GetByID(ctx context.Context, id string) (*models.Invitation, error)
	GetByIDForUpdate(ctx context.Context, id string) (*models.Invitation, error)
	// FindOutstanding returns the invitation from senderID to receiverID whose
	// status still blocks a new one (pending, accepted or mutual), or nil.
	FindOutstanding(ctx context.Context, senderID, receiverID uint) (*models.Invitation, error)
	// FindPendingForUpdate locks and returns the pending invitation for the
	// ordered (senderID, receiverID) pair, or nil if none exists.
	FindPendingForUpdate(ctx context.Context, senderID, receiverID uint) (*models.Invitation, error)
	UpdateStatus(ctx context.Context, id string, status models.InvitationStatus) error
	// List returns invitations newest-created first. A nil userID means no
	// participant scoping (admin); a nil status means no status filter.
	List(ctx context.Context, userID *uint, status *models.InvitationStatus, offset, limit int) ([]models.Invitation, error)
	// Counts aggregates statuses over the same scope List uses, ignoring
	// pagination.
	Counts(ctx context.Context, userID *uint, status *models.InvitationStatus) (*models.InvitationCounts, error)
}

// gormInvitationRepository implements InvitationRepository using GORM.
type gormInvitationRepository struct {
	db *gorm.DB
}

// NewGormInvitationRepository creates a new GORM-based InvitationRepository.
func NewGormInvitationRepository(db *gorm.DB) InvitationRepository {
	return &gormInvitationRepository{db: db}
}

// lockForUpdate applies a row lock on PostgreSQL. SQLite (used in tests)
// serializes writers on its own and rejects the FOR UPDATE syntax.
func (r *gormInvitationRepository) lockForUpdate(q *gorm.DB) *gorm.DB {
	if r.db.Dialector.Name() == "postgres" {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// Create inserts a new invitation record.
func (r *gormInvitationRepository) Create(ctx context.Context, invitation *models.Invitation) error {
	return r.db.WithContext(ctx).Create(invitation).Error
}

// GetByID retrieves an invitation by its ID.
func (r *gormInvitationRepository) GetByID(ctx context.Context, id string) (*models.Invitation, error) {
	var invitation models.Invitation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// GetByIDForUpdate retrieves an invitation by its ID with a row lock.
func (r *gormInvitationRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Invitation, error) {
	var invitation models.Invitation
	err := r.lockForUpdate(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// FindOutstanding returns the blocking invitation for the ordered pair, or nil.
func (r *gormInvitationRepository) FindOutstanding(ctx context.Context, senderID, receiverID uint) (*models.Invitation, error) {
	var invitation models.Invitation
	err := r.db.WithContext(ctx).
		Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
		Where("status IN ?", models.OutstandingStatuses).
		First(&invitation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // No outstanding invitation is not an error here
		}
		return nil, err
	}
	return &invitation, nil
}

// FindPendingForUpdate locks and returns the pending invitation for the
// ordered pair, or nil if none exists.
func (r *gormInvitationRepository) FindPendingForUpdate(ctx context.Context, senderID, receiverID uint) (*models.Invitation, error) {
	var invitation models.Invitation
	err := r.lockForUpdate(r.db.WithContext(ctx)).
		Where("sender_id = ? AND receiver_id = ?", senderID, receiverID).
		Where("status = ?", models.InvitationStatusPending).
		First(&invitation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invitation, nil
}

// UpdateStatus sets the status of the invitation, bumping updated_at.
func (r *gormInvitationRepository) UpdateStatus(ctx context.Context, id string, status models.InvitationStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// scoped applies participant and status filtering shared by List and Counts.
func (r *gormInvitationRepository) scoped(q *gorm.DB, userID *uint, status *models.InvitationStatus) *gorm.DB {
	if userID != nil {
		q = q.Where("sender_id = ? OR receiver_id = ?", *userID, *userID)
	}
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	return q
}

// List returns invitations newest-created first for the given scope.
func (r *gormInvitationRepository) List(ctx context.Context, userID *uint, status *models.InvitationStatus, offset, limit int) ([]models.Invitation, error) {
	var invitations []models.Invitation
	err := r.scoped(r.db.WithContext(ctx).Model(&models.Invitation{}), userID, status).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&invitations).Error
	return invitations, err
}

// Counts aggregates per-status totals over the full scoped set.
func (r *gormInvitationRepository) Counts(ctx context.Context, userID *uint, status *models.InvitationStatus) (*models.InvitationCounts, error) {
	type statusCount struct {
		Status models.InvitationStatus
		Count  int64
	}

	var rows []statusCount
	err := r.scoped(r.db.WithContext(ctx).Model(&models.Invitation{}), userID, status).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := &models.InvitationCounts{}
	for _, row := range rows {
		switch row.Status {
		case models.InvitationStatusPending:
			counts.Pending = row.Count
		case models.InvitationStatusAccepted:
			counts.Accepted = row.Count
		case models.InvitationStatusDeclined:
			counts.Declined = row.Count
		}
		counts.Total += row.Count
	}

	// Mutual records exist as a pair of directed rows for one confirmed
	// connection; the mutual bucket reports connections, not rows. Total
	// keeps the row count since it drives pagination.
	if status == nil || *status == models.InvitationStatusMutual {
		mutual, err := r.countMutualPairs(ctx, userID)
		if err != nil {
			return nil, err
		}
		counts.Mutual = mutual
	}
	return counts, nil
}

// countMutualPairs counts distinct unordered pairs among mutual records in
// the participant scope. Deduplication happens here rather than in SQL
// because portable least/greatest expressions differ between PostgreSQL and
// SQLite.
func (r *gormInvitationRepository) countMutualPairs(ctx context.Context, userID *uint) (int64, error) {
	var pairs []struct {
		SenderID   uint
		ReceiverID uint
	}
	q := r.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("status = ?", models.InvitationStatusMutual)
	if userID != nil {
		q = q.Where("sender_id = ? OR receiver_id = ?", *userID, *userID)
	}
	if err := q.Select("sender_id, receiver_id").Scan(&pairs).Error; err != nil {
		return 0, err
	}

	seen := make(map[[2]uint]struct{}, len(pairs))
	for _, p := range pairs {
		a, b := p.SenderID, p.ReceiverID
		if a > b {
			a, b = b, a
		}
		seen[[2]uint{a, b}] = struct{}{}
	}
	return int64(len(seen)), nil
}
