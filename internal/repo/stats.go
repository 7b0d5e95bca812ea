// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// by the statistics endpoint: counts of employees and meal choices split by
// whether a Slack recipient identifier is known. Each function is
// context-aware and safe to call from services or handlers.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/nikola-86/jelovnik/internal/domain"
)

// RecipientStats is an aggregate count split by Slack-reachability.
type RecipientStats struct {
	Total          int64 `json:"total"`
	WithSlackID    int64 `json:"with_slack_id"`
	WithoutSlackID int64 `json:"without_slack_id"`
}

// EmployeeStats returns how many employees exist and how many of them carry a
// usable Slack ID.
func EmployeeStats(ctx context.Context, db *gorm.DB) (RecipientStats, error) {
	var s RecipientStats
	q := db.WithContext(ctx).Model(&domain.Employee{})

	if err := q.Count(&s.Total).Error; err != nil {
		return RecipientStats{}, err
	}
	err := db.WithContext(ctx).
		Model(&domain.Employee{}).
		Where("slack_id IS NOT NULL AND slack_id != ''").
		Count(&s.WithSlackID).Error
	if err != nil {
		return RecipientStats{}, err
	}
	s.WithoutSlackID = s.Total - s.WithSlackID
	return s, nil
}

// MealChoiceStats returns how many meal choices exist and how many belong to
// an employee with a usable Slack ID.
func MealChoiceStats(ctx context.Context, db *gorm.DB) (RecipientStats, error) {
	var s RecipientStats

	if err := db.WithContext(ctx).Model(&domain.MealChoice{}).Count(&s.Total).Error; err != nil {
		return RecipientStats{}, err
	}
	err := db.WithContext(ctx).
		Model(&domain.MealChoice{}).
		Joins("JOIN employees ON employees.id = meal_choices.employee_id").
		Where("employees.slack_id IS NOT NULL AND employees.slack_id != ''").
		Count(&s.WithSlackID).Error
	if err != nil {
		return RecipientStats{}, err
	}
	s.WithoutSlackID = s.Total - s.WithSlackID
	return s, nil
}
