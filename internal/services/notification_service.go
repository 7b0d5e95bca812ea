// Package services – NotificationService
//
// This file implements the notification worker body (executed asynchronously
// by the queue) and the pending-notification scanner (the batch maintenance
// entry point that re-schedules everything not yet delivered).
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/nikola-86/jelovnik/internal/domain"
	"github.com/nikola-86/jelovnik/internal/notify"
	"github.com/nikola-86/jelovnik/internal/queue"
	"github.com/nikola-86/jelovnik/internal/repo"
)

// MealNotifier is the outbound collaborator contract consumed by the worker.
// notify.SlackNotifier implements it; tests substitute fakes.
type MealNotifier interface {
	Notify(ctx context.Context, employee domain.Employee, choice domain.MealChoice, isNew bool) error
}

// NotificationService executes notification jobs and re-schedules pending
// ones. It is safe for concurrent use; every delivery-status write is an
// upsert keyed by meal-choice id, so interleaved attempts settle on
// last-write-wins.
type NotificationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Notifier performs the outbound webhook call.
	Notifier MealNotifier
	// Dispatcher receives re-scheduled jobs from SendPending.
	Dispatcher queue.Dispatcher
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, notifier MealNotifier, dispatcher queue.Dispatcher) *NotificationService {
	return &NotificationService{DB: db, Notifier: notifier, Dispatcher: dispatcher}
}

// Process is the worker body for one notification job. It sends the message
// and persists the outcome:
//
//   - success: status "sent" with the current timestamp
//   - configuration fault: status "failed", then the error is returned so the
//     queue can surface it (the one error that crosses the worker boundary)
//   - any other fault: status "failed", logged, swallowed (retryable later)
func (s *NotificationService) Process(ctx context.Context, job queue.Job) error {
	err := s.Notifier.Notify(ctx, job.Employee, job.MealChoice, job.IsNew)
	if err == nil {
		now := time.Now().UTC()
		if uerr := repo.UpsertNotificationStatus(ctx, s.DB, job.MealChoice.ID, domain.StatusSent, &now); uerr != nil {
			log.Error().Err(uerr).
				Str("meal_choice_id", job.MealChoice.ID).
				Msg("failed to record sent status")
		}
		return nil
	}

	if uerr := repo.UpsertNotificationStatus(ctx, s.DB, job.MealChoice.ID, domain.StatusFailed, nil); uerr != nil {
		log.Error().Err(uerr).
			Str("meal_choice_id", job.MealChoice.ID).
			Msg("failed to record failed status")
	}

	if errors.Is(err, notify.ErrNotConfigured) {
		return err
	}

	log.Warn().Err(err).
		Str("meal_choice_id", job.MealChoice.ID).
		Str("employee_id", job.Employee.ID).
		Msg("slack notification failed")
	return nil
}

// SendPending selects up to limit meal choices whose delivery status is
// absent, pending, or failed (all of them when force is true) and schedules
// one job each. It returns the number of jobs dispatched; an empty selection
// is not an error.
func (s *NotificationService) SendPending(ctx context.Context, limit int, force bool) (int, error) {
	if limit < 1 {
		limit = 50
	}

	choices, err := repo.ListPendingMealChoices(ctx, s.DB, limit, force)
	if err != nil {
		return 0, err
	}

	for _, mc := range choices {
		wasNew := mc.Notification == nil || mc.Notification.Status != domain.StatusSent
		s.Dispatcher.Schedule(queue.Job{
			MealChoice: mc,
			Employee:   mc.Employee,
			IsNew:      wasNew,
		})
	}

	if len(choices) > 0 {
		log.Info().Int("dispatched", len(choices)).Bool("force", force).
			Msg("re-scheduled pending notifications")
	}
	return len(choices), nil
}
