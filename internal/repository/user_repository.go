package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"opptick/internal/model"
)

// UserRepository handles CRUD for users and their preferences.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertFromTelegram finds or creates a user based on TelegramID and updates
// basic profile info. A default preference row is created alongside.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID int64, firstName, lastName, username string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"first_name": firstName,
			"last_name":  lastName,
			"username":   username,
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		return &user, nil
	case err == gorm.ErrRecordNotFound:
		user = model.User{
			TelegramID: telegramID,
			FirstName:  firstName,
			LastName:   lastName,
			Username:   username,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		if err := r.ensurePreference(ctx, telegramID); err != nil {
			return nil, err
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

func (r *UserRepository) ensurePreference(ctx context.Context, telegramID int64) error {
	pref := model.Preference{UserID: telegramID, DailySummary: true}
	err := r.db.WithContext(ctx).Where("user_id = ?", telegramID).FirstOrCreate(&pref).Error
	if err != nil {
		return fmt.Errorf("ensure preference: %w", err)
	}
	return nil
}

// Preference returns the user's settings, falling back to defaults when no
// row exists yet.
func (r *UserRepository) Preference(ctx context.Context, telegramID int64) (model.Preference, error) {
	var pref model.Preference
	err := r.db.WithContext(ctx).Where("user_id = ?", telegramID).First(&pref).Error
	switch {
	case err == nil:
		return pref, nil
	case err == gorm.ErrRecordNotFound:
		return model.Preference{UserID: telegramID, DailySummary: true}, nil
	default:
		return pref, fmt.Errorf("find preference: %w", err)
	}
}

// SetTimezoneOffset stores the user's UTC offset in whole hours.
func (r *UserRepository) SetTimezoneOffset(ctx context.Context, telegramID int64, hours int) error {
	if err := r.ensurePreference(ctx, telegramID); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Model(&model.Preference{}).
		Where("user_id = ?", telegramID).
		Update("timezone_offset", hours).Error
	if err != nil {
		return fmt.Errorf("set timezone: %w", err)
	}
	return nil
}

// SetDailySummary toggles the daily summary push for a user.
func (r *UserRepository) SetDailySummary(ctx context.Context, telegramID int64, enabled bool) error {
	if err := r.ensurePreference(ctx, telegramID); err != nil {
		return err
	}
	err := r.db.WithContext(ctx).Model(&model.Preference{}).
		Where("user_id = ?", telegramID).
		Update("daily_summary", enabled).Error
	if err != nil {
		return fmt.Errorf("set daily summary: %w", err)
	}
	return nil
}

// ListSummaryRecipients returns users whose daily summary is enabled.
func (r *UserRepository) ListSummaryRecipients(ctx context.Context) ([]model.Preference, error) {
	var prefs []model.Preference
	if err := r.db.WithContext(ctx).Where("daily_summary = ?", true).Find(&prefs).Error; err != nil {
		return nil, err
	}
	return prefs, nil
}
