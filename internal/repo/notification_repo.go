// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// SlackNotification model.
//
// Delivery statuses are keyed one-to-one by meal_choice_id. Two write shapes
// exist on purpose:
//
//   - EnsurePendingNotification: create-if-absent, used during reconciliation
//     so a meal choice never exists without a status row. It never resets an
//     existing status back to pending.
//   - UpsertNotificationStatus: wholesale replace, used after every send
//     attempt. Re-running a notification for the same meal choice always
//     overwrites the prior outcome (at-least-once delivery, last write wins).
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nikola-86/jelovnik/internal/domain"
)

// GetNotificationByMealChoice fetches the delivery status row for a meal
// choice. If none exists, it returns ErrNotFound; callers treat that as
// "pending".
func GetNotificationByMealChoice(ctx context.Context, db *gorm.DB, mealChoiceID string) (*domain.SlackNotification, error) {
	var n domain.SlackNotification
	err := db.WithContext(ctx).
		Where("meal_choice_id = ?", mealChoiceID).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// EnsurePendingNotification creates a "pending" status row for the meal
// choice if none exists yet. An existing row, whatever its status, is left
// untouched.
func EnsurePendingNotification(ctx context.Context, db *gorm.DB, mealChoiceID string) error {
	_, err := GetNotificationByMealChoice(ctx, db, mealChoiceID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	n := &domain.SlackNotification{
		ID:           uuid.NewString(),
		MealChoiceID: mealChoiceID,
		Status:       domain.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(n).Error
}

// UpsertNotificationStatus records the outcome of a send attempt for the meal
// choice, replacing any prior row wholesale. sentAt must be non-nil only for
// StatusSent. The write is idempotent: exactly one row per meal choice exists
// afterwards, carrying the most recent outcome.
func UpsertNotificationStatus(ctx context.Context, db *gorm.DB, mealChoiceID, status string, sentAt *time.Time) error {
	existing, err := GetNotificationByMealChoice(ctx, db, mealChoiceID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		n := &domain.SlackNotification{
			ID:           uuid.NewString(),
			MealChoiceID: mealChoiceID,
			Status:       status,
			SentAt:       sentAt,
			CreatedAt:    time.Now().UTC(),
		}
		return db.WithContext(ctx).Create(n).Error
	}

	return db.WithContext(ctx).
		Model(&domain.SlackNotification{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"status":  status,
			"sent_at": sentAt,
		}).Error
}
