// Package services – ImportService
//
// This file implements the reconciliation engine: it takes the normalized
// rows produced by a tabular.DataProvider and merges them into the employee
// and meal-choice tables, classifying every row as a create or an update.
// All row effects for one import happen inside a single transaction; a fault
// on any row rolls back the whole batch.
//
// Notification jobs are collected during the transaction and handed to the
// dispatcher only after the commit succeeds, so workers never race a rollback.
package services

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/nikola-86/jelovnik/internal/domain"
	"github.com/nikola-86/jelovnik/internal/queue"
	"github.com/nikola-86/jelovnik/internal/repo"
	"github.com/nikola-86/jelovnik/internal/tabular"
)

var (
	// importRunsTotal counts whole import calls by outcome.
	importRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_runs_total",
			Help: "Total number of import runs.",
		},
		[]string{"outcome"},
	)

	// importRowsTotal counts reconciled rows by classification.
	importRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_rows_total",
			Help: "Total number of reconciled import rows.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(importRunsTotal, importRowsTotal)
}

// ImportStats reports the outcome of one import call. Total counts only rows
// that survived parser-side filtering, so Created+Updated == Total always
// holds.
type ImportStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

// ImportService reconciles parsed rows into persisted entities and schedules
// one notification job per affected meal choice.
type ImportService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Provider supplies normalized rows for a source identifier.
	Provider tabular.DataProvider
	// Dispatcher receives one job per reconciled row after commit.
	Dispatcher queue.Dispatcher
}

// NewImportService constructs an ImportService.
func NewImportService(db *gorm.DB, provider tabular.DataProvider, dispatcher queue.Dispatcher) *ImportService {
	return &ImportService{DB: db, Provider: provider, Dispatcher: dispatcher}
}

// Import parses the source and reconciles every surviving row inside one
// transaction. It returns ErrNoValidRows when the parser produced nothing,
// and propagates tabular.ErrSourceUnreadable from the provider untouched.
func (s *ImportService) Import(ctx context.Context, source string) (ImportStats, error) {
	tr := otel.Tracer("services/ImportService")
	ctx, span := tr.Start(ctx, "Import",
		trace.WithAttributes(attribute.String("import.source", source)),
	)
	defer span.End()

	rows, err := s.Provider.GetData(source)
	if err != nil {
		importRunsTotal.WithLabelValues("unreadable").Inc()
		return ImportStats{}, err
	}
	if len(rows) == 0 {
		importRunsTotal.WithLabelValues("empty").Inc()
		return ImportStats{}, ErrNoValidRows
	}

	var stats ImportStats
	jobs := make([]queue.Job, 0, len(rows))

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			emp, err := s.reconcileEmployee(ctx, tx, row)
			if err != nil {
				return err
			}

			mc, wasNew, err := s.reconcileMealChoice(ctx, tx, emp.ID, row)
			if err != nil {
				return err
			}
			if wasNew {
				stats.Created++
			} else {
				stats.Updated++
			}

			// The status row must exist before the job is even scheduled,
			// so a meal choice is never observable without one.
			if err := repo.EnsurePendingNotification(ctx, tx, mc.ID); err != nil {
				return err
			}

			jobs = append(jobs, queue.Job{MealChoice: *mc, Employee: *emp, IsNew: wasNew})
		}
		return nil
	})
	if err != nil {
		importRunsTotal.WithLabelValues("error").Inc()
		return ImportStats{}, err
	}

	stats.Total = len(rows)
	importRunsTotal.WithLabelValues("ok").Inc()
	importRowsTotal.WithLabelValues("created").Add(float64(stats.Created))
	importRowsTotal.WithLabelValues("updated").Add(float64(stats.Updated))
	span.SetAttributes(
		attribute.Int("import.created", stats.Created),
		attribute.Int("import.updated", stats.Updated),
	)

	for _, job := range jobs {
		s.Dispatcher.Schedule(job)
	}
	return stats, nil
}

// reconcileEmployee finds the employee by email or creates them from the row.
// On a match, the name is refreshed when it changed, and the Slack ID is
// refreshed only when the row supplies a non-empty one; a row without a
// Slack ID never erases a previously known identifier.
func (s *ImportService) reconcileEmployee(ctx context.Context, tx *gorm.DB, row tabular.Row) (*domain.Employee, error) {
	emp, err := repo.GetEmployeeByEmail(ctx, tx, row.Email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.CreateEmployee(ctx, tx, row.Name, row.Email, row.SlackID)
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if emp.Name != row.Name {
		updates["name"] = row.Name
		emp.Name = row.Name
	}
	if row.SlackID != "" && emp.SlackID != row.SlackID {
		updates["slack_id"] = row.SlackID
		emp.SlackID = row.SlackID
	}
	if err := repo.UpdateEmployeeFields(ctx, tx, emp.ID, updates); err != nil {
		return nil, err
	}
	return emp, nil
}

// reconcileMealChoice looks the meal choice up by (employee, date). Absence
// creates a fresh row (wasNew true); presence overwrites the choice label in
// place (wasNew false).
func (s *ImportService) reconcileMealChoice(ctx context.Context, tx *gorm.DB, employeeID string, row tabular.Row) (*domain.MealChoice, bool, error) {
	mc, err := repo.GetMealChoiceByEmployeeDate(ctx, tx, employeeID, row.Date)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		created, err := repo.CreateMealChoice(ctx, tx, employeeID, row.Choice, row.Date)
		if err != nil {
			return nil, false, err
		}
		return created, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	if err := repo.UpdateMealChoiceChoice(ctx, tx, mc.ID, row.Choice); err != nil {
		return nil, false, err
	}
	mc.Choice = row.Choice
	return mc, false, nil
}
