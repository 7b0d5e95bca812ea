// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Employee model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an employee is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nikola-86/jelovnik/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetEmployeeByEmail fetches a single employee by their unique email.
// If the record does not exist, it returns ErrNotFound.
func GetEmployeeByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Employee, error) {
	var e domain.Employee
	err := db.WithContext(ctx).
		Where("email = ?", email).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetEmployee fetches a single employee by primary key.
// If the record does not exist, it returns ErrNotFound.
func GetEmployee(ctx context.Context, db *gorm.DB, id string) (*domain.Employee, error) {
	var e domain.Employee
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEmployee inserts a new Employee row. The employee ID is a randomly
// generated UUID (string), and CreatedAt is set to UTC. The email must be
// unique; a duplicate insert surfaces the DB constraint error.
//
// On success, it returns the persisted Employee. On failure, it returns a DB error.
func CreateEmployee(ctx context.Context, db *gorm.DB, name, email, slackID string) (*domain.Employee, error) {
	e := &domain.Employee{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		SlackID:   slackID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateEmployeeFields applies the given column updates to the employee
// identified by id. Callers decide which fields changed; an empty updates map
// is a no-op. If no rows are affected, it returns ErrNotFound.
func UpdateEmployeeFields(ctx context.Context, db *gorm.DB, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Employee{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateEmployeeSlackID sets the Slack recipient identifier of an employee.
// If the employee does not exist, it returns ErrNotFound.
func UpdateEmployeeSlackID(ctx context.Context, db *gorm.DB, id, slackID string) error {
	return UpdateEmployeeFields(ctx, db, id, map[string]any{"slack_id": slackID})
}
