// Package domain defines the persistence models for employees, meal choices,
// and Slack delivery statuses. These types are mapped with GORM and form the
// core data layer of the meal-choice import application.
package domain

import (
	"time"
)

// Notification delivery states. A missing SlackNotification row is read as
// StatusPending by every consumer.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Employee represents a person whose meal choices are imported. Employees are
// identified by their email address and are created on first sighting during
// reconciliation; they are never deleted by the import path.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: display name as supplied by the most recent import row.
//   - Email: unique identity of the employee, kept case-sensitive as given.
//   - SlackID: optional Slack recipient identifier (user or channel, possibly
//     prefixed with "@" or "#"). Empty string means unknown.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Employee struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	Email     string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex:ux_employees_email"`
	SlackID   string    `json:"slack_id"   gorm:"type:varchar(64)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Employee.
func (Employee) TableName() string { return "employees" }

// HasSlackID reports whether the employee has a known Slack recipient
// identifier.
func (e Employee) HasSlackID() bool { return e.SlackID != "" }

// MealChoice records what an employee chose to eat on a given calendar day.
// At most one row may exist per (employee, date) pair; later imports for the
// same pair overwrite the choice in place.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - EmployeeID: foreign key to the owning employee.
//   - Choice: free-text meal label.
//   - Date: ISO calendar date ("2006-01-02"), no time component. Stored as a
//     plain varchar so reads yield the string unchanged (a DATE-typed column
//     would be driver-converted to a timestamp) and the composite uniqueness
//     constraint compares exact days regardless of timezone.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - Employee: FK association; choices are cascade-deleted with their employee.
type MealChoice struct {
	ID         string    `json:"id"          gorm:"type:char(36);primaryKey"`
	EmployeeID string    `json:"employee_id" gorm:"type:char(36);not null;uniqueIndex:ux_meal_choices_employee_date,priority:1"`
	Choice     string    `json:"choice"      gorm:"type:text;not null"`
	Date       string    `json:"date"        gorm:"type:varchar(10);not null;uniqueIndex:ux_meal_choices_employee_date,priority:2"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Employee Employee `json:"-" gorm:"foreignKey:EmployeeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	// Notification is the has-one delivery status row, nil when no send was
	// recorded yet (read as pending).
	Notification *SlackNotification `json:"-" gorm:"foreignKey:MealChoiceID;references:ID"`
}

// TableName returns the database table name for MealChoice.
func (MealChoice) TableName() string { return "meal_choices" }

// SlackNotification tracks the last-known delivery outcome of notifying about
// a specific meal choice. Exactly zero or one row exists per meal choice; the
// row is created as "pending" when the choice is reconciled and overwritten
// wholesale after every send attempt (at-least-once delivery, last write wins).
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - MealChoiceID: foreign key to the meal choice; unique (one status per choice).
//   - Status: "pending", "sent", or "failed" (enforced by DB constraint).
//   - SentAt: set only when Status is "sent".
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - MealChoice: FK association; statuses are cascade-deleted with their choice.
type SlackNotification struct {
	ID           string     `json:"id"             gorm:"type:char(36);primaryKey"`
	MealChoiceID string     `json:"meal_choice_id" gorm:"type:char(36);not null;uniqueIndex:ux_slack_notifications_meal_choice"`
	Status       string     `json:"status"         gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','sent','failed')"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	MealChoice MealChoice `json:"-" gorm:"foreignKey:MealChoiceID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for SlackNotification.
func (SlackNotification) TableName() string { return "slack_notifications" }
