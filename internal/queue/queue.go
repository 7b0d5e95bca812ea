// Package queue provides the in-process asynchronous unit-of-work runtime
// for notification delivery. Jobs are typed messages on a buffered channel,
// consumed by a pool of independent worker goroutines (the same goroutine
// fan-out model the store's import path stays isolated from).
//
// Guarantees and non-guarantees:
//   - Scheduling is fire-and-forget: Schedule returns as soon as the message
//     is on the channel (it blocks only when the buffer is full).
//   - No ordering between jobs; workers run concurrently.
//   - One job's failure or panic never affects other jobs.
//   - A handler error that escapes the job is treated as fatal-by-contract
//     (notifier misconfiguration) and is logged at error level so operators
//     can alert on it; the queue itself keeps running.
package queue

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/nikola-86/jelovnik/internal/domain"
)

var (
	// jobsTotal counts processed notification jobs by outcome. "ok" covers
	// both delivered and recorded-as-failed jobs (the handler swallowed the
	// fault); "fatal" marks configuration errors; "panic" marks recovered
	// handler panics.
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_jobs_total",
			Help: "Total number of processed notification jobs.",
		},
		[]string{"outcome"},
	)

	// jobsInflight gauges the number of jobs currently being processed.
	jobsInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_jobs_inflight",
			Help: "Current number of in-flight notification jobs.",
		},
	)
)

func init() {
	prometheus.MustRegister(jobsTotal, jobsInflight)
}

// Job carries copies of everything a notification worker needs. Copies, not
// references: the job must stay valid after the originating transaction and
// across retries.
type Job struct {
	MealChoice domain.MealChoice
	Employee   domain.Employee
	IsNew      bool
}

// Handler executes one notification job. Returning a non-nil error signals a
// fatal condition (configuration fault) that the queue surfaces; transient
// faults must be handled inside and reported as nil.
type Handler func(ctx context.Context, job Job) error

// Dispatcher is the narrow scheduling contract the import path and the
// pending scanner depend on. Its only promise is "message enqueued".
type Dispatcher interface {
	Schedule(job Job)
}

// Queue is a buffered-channel work queue with a fixed worker pool.
// Construct with New, then Start once; Schedule may be called from any
// goroutine until Stop.
type Queue struct {
	jobs    chan Job
	handler Handler

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a queue with the given channel capacity and job handler.
func New(buffer int, handler Handler) *Queue {
	if buffer < 1 {
		buffer = 1
	}
	return &Queue{
		jobs:    make(chan Job, buffer),
		handler: handler,
	}
}

// Start launches workers goroutines consuming the queue. ctx is passed to
// every job execution; cancelling it aborts in-flight outbound calls but does
// not drop queued jobs (Stop drains them).
func (q *Queue) Start(ctx context.Context, workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for job := range q.jobs {
				q.run(ctx, job)
			}
		}()
	}
	log.Info().Int("workers", workers).Int("buffer", cap(q.jobs)).Msg("notification queue started")
}

// Schedule enqueues one job. It blocks only while the buffer is full and
// must not be called after Stop.
func (q *Queue) Schedule(job Job) {
	q.jobs <- job
}

// Stop closes the queue and waits for all queued jobs to finish. Safe to
// call more than once.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.jobs)
		q.wg.Wait()
		log.Info().Msg("notification queue drained")
	})
}

// run executes a single job inside its own failure domain.
func (q *Queue) run(ctx context.Context, job Job) {
	jobsInflight.Inc()
	defer jobsInflight.Dec()

	defer func() {
		if r := recover(); r != nil {
			jobsTotal.WithLabelValues("panic").Inc()
			log.Error().
				Interface("panic", r).
				Str("meal_choice_id", job.MealChoice.ID).
				Msg("notification job panicked")
		}
	}()

	if err := q.handler(ctx, job); err != nil {
		// The handler only lets configuration faults escape; everything
		// transient is recorded as a failed status inside the handler.
		jobsTotal.WithLabelValues("fatal").Inc()
		log.Error().
			Err(err).
			Str("meal_choice_id", job.MealChoice.ID).
			Str("employee_id", job.Employee.ID).
			Msg("notification job failed fatally, alert required")
		return
	}
	jobsTotal.WithLabelValues("ok").Inc()
}
