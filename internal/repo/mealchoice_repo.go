// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the MealChoice
// model.
//
// The (employee_id, date) pair is unique per the schema; reconciliation looks
// a choice up by that key and either creates a fresh row or overwrites the
// choice label in place. Listing functions preload the owning employee and
// the delivery-status row so callers can render results in one round trip.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nikola-86/jelovnik/internal/domain"
)

// GetMealChoiceByEmployeeDate fetches the meal choice for one employee on one
// ISO calendar date. If no row exists, it returns ErrNotFound.
func GetMealChoiceByEmployeeDate(ctx context.Context, db *gorm.DB, employeeID, date string) (*domain.MealChoice, error) {
	var mc domain.MealChoice
	err := db.WithContext(ctx).
		Where("employee_id = ? AND date = ?", employeeID, date).
		First(&mc).Error
	if err != nil {
		return nil, err
	}
	return &mc, nil
}

// CreateMealChoice inserts a new MealChoice row keyed by (employeeID, date).
// The row ID is a randomly generated UUID and CreatedAt is set to UTC. A
// duplicate (employee, date) insert surfaces the DB unique-constraint error.
func CreateMealChoice(ctx context.Context, db *gorm.DB, employeeID, choice, date string) (*domain.MealChoice, error) {
	mc := &domain.MealChoice{
		ID:         uuid.NewString(),
		EmployeeID: employeeID,
		Choice:     choice,
		Date:       date,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(mc).Error; err != nil {
		return nil, err
	}
	return mc, nil
}

// UpdateMealChoiceChoice overwrites the free-text choice label of an existing
// meal choice. If no rows are affected, it returns ErrNotFound.
func UpdateMealChoiceChoice(ctx context.Context, db *gorm.DB, id, choice string) error {
	res := db.WithContext(ctx).
		Model(&domain.MealChoice{}).
		Where("id = ?", id).
		Update("choice", choice)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListMealChoices returns all meal choices with their employee and delivery
// status preloaded, newest date first. It returns an empty slice when the
// table is empty.
func ListMealChoices(ctx context.Context, db *gorm.DB) ([]domain.MealChoice, error) {
	var out []domain.MealChoice
	err := db.WithContext(ctx).
		Preload("Employee").
		Preload("Notification").
		Order("date desc").
		Find(&out).Error
	return out, err
}

// ListPendingMealChoices returns up to limit meal choices whose delivery
// status is absent or in {pending, failed}. When force is true the status
// filter is skipped and any meal choice qualifies. Employee and Notification
// are preloaded for dispatching. Order follows insertion order.
func ListPendingMealChoices(ctx context.Context, db *gorm.DB, limit int, force bool) ([]domain.MealChoice, error) {
	q := db.WithContext(ctx).
		Model(&domain.MealChoice{}).
		Preload("Employee").
		Preload("Notification")

	if !force {
		q = q.
			Joins("LEFT JOIN slack_notifications ON slack_notifications.meal_choice_id = meal_choices.id").
			Where("slack_notifications.status IS NULL OR slack_notifications.status IN ?",
				[]string{domain.StatusPending, domain.StatusFailed})
	}

	var out []domain.MealChoice
	err := q.Limit(limit).Find(&out).Error
	return out, err
}

// CountMealChoices returns the total number of meal choices.
func CountMealChoices(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.MealChoice{}).Count(&total).Error
	return total, err
}
