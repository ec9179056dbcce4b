package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"opptick/internal/model"
)

// ErrNotFoundOrUnauthorized is returned when an opp_id does not exist or is
// owned by another user. The two cases are deliberately indistinguishable.
var ErrNotFoundOrUnauthorized = errors.New("opportunity not found")

// OpportunityRepository handles CRUD for opportunities.
type OpportunityRepository struct {
	db *gorm.DB
}

func NewOpportunityRepository(db *gorm.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

// Insert stores a new opportunity, assigning its id when empty.
func (r *OpportunityRepository) Insert(ctx context.Context, opp *model.Opportunity) error {
	if opp.OppID == "" {
		opp.OppID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(opp).Error; err != nil {
		return fmt.Errorf("create opportunity: %w", err)
	}
	return nil
}

// Get fetches by id without an ownership check. Used by the scheduler's
// fire-time guard, which holds ids it learned from the store itself.
func (r *OpportunityRepository) Get(ctx context.Context, oppID string) (*model.Opportunity, error) {
	var opp model.Opportunity
	err := r.db.WithContext(ctx).Where("opp_id = ?", oppID).First(&opp).Error
	switch {
	case err == nil:
		return &opp, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFoundOrUnauthorized
	default:
		return nil, fmt.Errorf("find opportunity: %w", err)
	}
}

// FindByID fetches an opportunity scoped to its owner.
func (r *OpportunityRepository) FindByID(ctx context.Context, userID int64, oppID string) (*model.Opportunity, error) {
	var opp model.Opportunity
	err := r.db.WithContext(ctx).Where("user_id = ? AND opp_id = ?", userID, oppID).First(&opp).Error
	switch {
	case err == nil:
		return &opp, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFoundOrUnauthorized
	default:
		return nil, fmt.Errorf("find opportunity: %w", err)
	}
}

// ResolvePrefix finds the single active-or-archived opportunity of the user
// whose id starts with the given prefix (ids are long; the bot shows the
// first 8 chars).
func (r *OpportunityRepository) ResolvePrefix(ctx context.Context, userID int64, prefix string) (*model.Opportunity, error) {
	if prefix == "" {
		return nil, ErrNotFoundOrUnauthorized
	}
	var opps []model.Opportunity
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND opp_id LIKE ?", userID, prefix+"%").
		Limit(2).Find(&opps).Error
	if err != nil {
		return nil, fmt.Errorf("resolve opportunity id: %w", err)
	}
	if len(opps) != 1 {
		return nil, ErrNotFoundOrUnauthorized
	}
	return &opps[0], nil
}

// ListActive returns the user's non-archived opportunities, soonest deadline
// first.
func (r *OpportunityRepository) ListActive(ctx context.Context, userID int64) ([]model.Opportunity, error) {
	var opps []model.Opportunity
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND archived = ?", userID, false).
		Order("deadline ASC").
		Find(&opps).Error
	if err != nil {
		return nil, err
	}
	return opps, nil
}

// ListArchived returns the user's archived opportunities, soonest deadline
// first.
func (r *OpportunityRepository) ListArchived(ctx context.Context, userID int64) ([]model.Opportunity, error) {
	var opps []model.Opportunity
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND archived = ?", userID, true).
		Order("deadline ASC").
		Find(&opps).Error
	if err != nil {
		return nil, err
	}
	return opps, nil
}

// ListSchedulable returns every opportunity, across users, that may still
// need reminders. Recovery input after a restart.
func (r *OpportunityRepository) ListSchedulable(ctx context.Context) ([]model.Opportunity, error) {
	var opps []model.Opportunity
	err := r.db.WithContext(ctx).
		Where("archived = ? AND done = ?", false, false).
		Order("deadline ASC").
		Find(&opps).Error
	if err != nil {
		return nil, err
	}
	return opps, nil
}

// ListOverdueUnnotified returns opportunities whose deadline passed without
// a missed alert, across users.
func (r *OpportunityRepository) ListOverdueUnnotified(ctx context.Context, now time.Time) ([]model.Opportunity, error) {
	var opps []model.Opportunity
	err := r.db.WithContext(ctx).
		Where("deadline < ? AND archived = ? AND done = ? AND missed_notified = ?", now, false, false, false).
		Order("deadline ASC").
		Find(&opps).Error
	if err != nil {
		return nil, err
	}
	return opps, nil
}

// SetArchived archives an opportunity owned by the user.
func (r *OpportunityRepository) SetArchived(ctx context.Context, userID int64, oppID string) error {
	return r.ownedUpdate(ctx, userID, oppID, map[string]interface{}{"archived": true})
}

// SetDone marks an opportunity done. Done implies archived.
func (r *OpportunityRepository) SetDone(ctx context.Context, userID int64, oppID string) error {
	return r.ownedUpdate(ctx, userID, oppID, map[string]interface{}{"done": true, "archived": true})
}

// MarkMissedNotified flips the alert-once flag for an overdue opportunity.
func (r *OpportunityRepository) MarkMissedNotified(ctx context.Context, oppID string) error {
	err := r.db.WithContext(ctx).Model(&model.Opportunity{}).
		Where("opp_id = ?", oppID).
		Update("missed_notified", true).Error
	if err != nil {
		return fmt.Errorf("mark missed notified: %w", err)
	}
	return nil
}

// Delete removes an opportunity owned by the user.
func (r *OpportunityRepository) Delete(ctx context.Context, userID int64, oppID string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND opp_id = ?", userID, oppID).
		Delete(&model.Opportunity{})
	if res.Error != nil {
		return fmt.Errorf("delete opportunity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFoundOrUnauthorized
	}
	return nil
}

func (r *OpportunityRepository) ownedUpdate(ctx context.Context, userID int64, oppID string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Opportunity{}).
		Where("user_id = ? AND opp_id = ?", userID, oppID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update opportunity: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFoundOrUnauthorized
	}
	return nil
}
