// Package executor drives jobs through their lifecycle state machine. Each
// execution attempt transitions a job pending -> running -> terminal, emits
// progress checkpoints, and fans status changes out through the notification
// bus. Re-dispatching a job that already reached a terminal state is an
// absorbed no-op, which makes at-least-once delivery from the dispatch layer
// safe.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/voxworks/studio-api/internal/bus"
	"github.com/voxworks/studio-api/internal/domain"
	"github.com/voxworks/studio-api/internal/store"
	"github.com/voxworks/studio-api/internal/telemetry"
)

// ErrRoutineFailed tags a routine error as a logical failure: the job is
// marked failed immediately, with no retry and no result record.
var ErrRoutineFailed = errors.New("routine reported failure")

// errAttemptAborted stops an attempt whose job reached a terminal state
// externally (cancellation) between checkpoints.
var errAttemptAborted = errors.New("attempt aborted: job is terminal")

// Config holds executor tuning knobs.
type Config struct {
	// MaxAttempts bounds how many times one Execute call runs the routine
	// before giving up. Faults beyond the last attempt mark the job failed.
	MaxAttempts int

	// RetryDelay is the fixed pause between attempts after an unexpected fault.
	RetryDelay time.Duration
}

// DefaultConfig returns the executor defaults: three total attempts with a
// one-minute pause between them.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		RetryDelay:  time.Minute,
	}
}

// Executor runs job attempts against the store and publishes every state
// change to the notification bus.
type Executor struct {
	store    store.JobStore
	bus      bus.Bus
	registry *Registry
	locks    *jobLocks
	cfg      Config
	logger   *slog.Logger

	// sleep is injectable for tests; defaults to time.Sleep semantics but
	// honors context cancellation.
	sleep func(ctx context.Context, d time.Duration)
}

// New creates an Executor.
func New(
	jobStore store.JobStore,
	notifyBus bus.Bus,
	registry *Registry,
	cfg Config,
	logger *slog.Logger,
) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}

	return &Executor{
		store:    jobStore,
		bus:      notifyBus,
		registry: registry,
		locks:    newJobLocks(),
		cfg:      cfg,
		logger:   logger.With("component", "executor"),
		sleep: func(ctx context.Context, d time.Duration) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
		},
	}
}

// Execute drives one job to a terminal outcome and returns the job's final
// status. A job already in a terminal state is reported back unchanged, so
// duplicate dispatches are harmless. The per-job lock is held only across
// the pending -> running read-modify-write; once the running transition is
// durable, the single in-flight attempt needs no further locking.
func (e *Executor) Execute(ctx context.Context, jobID uuid.UUID) (domain.JobStatus, error) {
	log := e.logger.With("job_id", jobID)

	release := e.locks.acquire(jobID)

	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		release()
		return "", fmt.Errorf("load job: %w", err)
	}

	if job.Status.IsTerminal() {
		release()
		log.Info("job already in terminal state, skipping", "status", job.Status)
		return job.Status, nil
	}

	swapped, err := e.store.CompareAndSetStatus(ctx, jobID, domain.JobStatusPending, domain.JobStatusRunning)
	if err != nil {
		release()
		return "", fmt.Errorf("transition to running: %w", err)
	}
	if !swapped {
		// Another attempt won the race; report whatever state it reached.
		release()
		current, err := e.store.GetJob(ctx, jobID)
		if err != nil {
			return "", fmt.Errorf("load job after lost race: %w", err)
		}
		log.Info("duplicate dispatch absorbed", "status", current.Status)
		return current.Status, nil
	}
	release()

	telemetry.JobsStarted.Inc()
	e.publishStatusChange(ctx, jobID, domain.JobStatusRunning, domain.JobStatusPending, "")
	log.Info("job started", "type", job.Type)

	routine := e.registry.Resolve(job.Type)

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		outcome, err := e.runAttempt(ctx, job, routine)

		switch {
		case err == nil:
			return e.finishCompleted(ctx, job, outcome, log)

		case errors.Is(err, errAttemptAborted):
			// Cancellation (or another terminal transition) happened under us.
			current, getErr := e.store.GetJob(ctx, jobID)
			if getErr != nil {
				return "", fmt.Errorf("load job after aborted attempt: %w", getErr)
			}
			log.Info("attempt aborted by external transition", "status", current.Status)
			return current.Status, nil

		case errors.Is(err, ErrRoutineFailed):
			return e.finishFailed(ctx, jobID, err.Error(), log)

		default:
			log.Error("attempt faulted",
				"attempt", attempt,
				"max_attempts", e.cfg.MaxAttempts,
				"error", err)
			if attempt < e.cfg.MaxAttempts {
				telemetry.JobRetries.Inc()
				e.sleep(ctx, e.cfg.RetryDelay)
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
			}
		}
	}

	// Retries exhausted: mark the job failed rather than leaving it stuck
	// in running forever.
	return e.finishFailed(ctx, jobID, "execution failed after retries exhausted", log)
}

// UpdateProgress persists a progress nudge from an external caller, clamped
// into [0, 100], optionally updating the status, and publishes the change.
func (e *Executor) UpdateProgress(
	ctx context.Context,
	jobID uuid.UUID,
	progress int,
	status domain.JobStatus,
) error {
	if err := e.store.UpdateProgress(ctx, jobID, progress, status); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}

	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job after progress update: %w", err)
	}

	e.publishProgress(ctx, jobID, job.Progress, job.Status)
	return nil
}

// Cancel transitions a running job to cancelled and publishes the change.
// It returns false when the job is not currently running; that is a reported
// no-op, not an error.
func (e *Executor) Cancel(ctx context.Context, jobID uuid.UUID) (bool, error) {
	swapped, err := e.store.CompareAndSetStatus(ctx, jobID, domain.JobStatusRunning, domain.JobStatusCancelled)
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	if !swapped {
		e.logger.Info("job cannot be cancelled", "job_id", jobID)
		return false, nil
	}

	telemetry.JobsCancelled.Inc()
	e.publishStatusChange(ctx, jobID, domain.JobStatusCancelled, domain.JobStatusRunning, "")
	e.logger.Info("job cancelled", "job_id", jobID)
	return true, nil
}

// runAttempt executes the routine once, converting panics into ordinary
// retriable errors so a faulty routine cannot take the worker down.
func (e *Executor) runAttempt(
	ctx context.Context,
	job *domain.Job,
	routine Routine,
) (outcome *RoutineOutcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			outcome = nil
			err = fmt.Errorf("routine panic: %v", p)
		}
	}()

	report := func(ctx context.Context, progress int) error {
		// Observe external transitions (cancellation) before persisting, so
		// a cancelled job is not overwritten by a straggling checkpoint.
		current, err := e.store.GetJob(ctx, job.ID)
		if err != nil {
			return fmt.Errorf("checkpoint status read: %w", err)
		}
		if current.Status.IsTerminal() {
			return errAttemptAborted
		}

		if err := e.store.UpdateProgress(ctx, job.ID, progress, ""); err != nil {
			return fmt.Errorf("checkpoint persist: %w", err)
		}

		e.publishProgress(ctx, job.ID, domain.ClampProgress(progress), domain.JobStatusRunning)
		return nil
	}

	return routine.Run(ctx, job, report)
}

// finishCompleted persists the completed state and result, then publishes
// the final progress event.
func (e *Executor) finishCompleted(
	ctx context.Context,
	job *domain.Job,
	outcome *RoutineOutcome,
	log *slog.Logger,
) (domain.JobStatus, error) {
	swapped, err := e.store.CompareAndSetStatus(ctx, job.ID, domain.JobStatusRunning, domain.JobStatusCompleted)
	if err != nil {
		return "", fmt.Errorf("transition to completed: %w", err)
	}
	if !swapped {
		// Cancelled between the last checkpoint and completion.
		current, getErr := e.store.GetJob(ctx, job.ID)
		if getErr != nil {
			return "", fmt.Errorf("load job after lost completion race: %w", getErr)
		}
		log.Info("completion superseded by external transition", "status", current.Status)
		return current.Status, nil
	}

	if err := e.store.UpdateProgress(ctx, job.ID, 100, ""); err != nil {
		return "", fmt.Errorf("persist final progress: %w", err)
	}

	result, err := domain.NewJobResult(job.ID, outcome.ResultURL, outcome.Logs, outcome.Meta)
	if err != nil {
		return "", fmt.Errorf("build result: %w", err)
	}
	if err := e.store.UpsertResult(ctx, result); err != nil {
		return "", fmt.Errorf("persist result: %w", err)
	}

	telemetry.JobsCompleted.Inc()
	e.publishProgress(ctx, job.ID, 100, domain.JobStatusCompleted)
	log.Info("job completed", "type", job.Type)
	return domain.JobStatusCompleted, nil
}

// finishFailed persists the failed state and publishes the status change
// with the error description.
func (e *Executor) finishFailed(
	ctx context.Context,
	jobID uuid.UUID,
	reason string,
	log *slog.Logger,
) (domain.JobStatus, error) {
	swapped, err := e.store.CompareAndSetStatus(ctx, jobID, domain.JobStatusRunning, domain.JobStatusFailed)
	if err != nil {
		return "", fmt.Errorf("transition to failed: %w", err)
	}
	if !swapped {
		current, getErr := e.store.GetJob(ctx, jobID)
		if getErr != nil {
			return "", fmt.Errorf("load job after lost failure race: %w", getErr)
		}
		log.Info("failure superseded by external transition", "status", current.Status)
		return current.Status, nil
	}

	telemetry.JobsFailed.Inc()
	e.publishStatusChange(ctx, jobID, domain.JobStatusFailed, domain.JobStatusRunning, reason)
	log.Warn("job failed", "reason", reason)
	return domain.JobStatusFailed, nil
}

// publishStatusChange fans a status-change event out to the job topic and
// the creator's user topic. Bus delivery is best-effort; failures to build
// the snapshot are logged and swallowed.
func (e *Executor) publishStatusChange(
	ctx context.Context,
	jobID uuid.UUID,
	status, previous domain.JobStatus,
	errMsg string,
) {
	snapshot, err := e.store.GetSnapshot(ctx, jobID)
	if err != nil {
		e.logger.Error("failed to build snapshot for status change", "job_id", jobID, "error", err)
		return
	}

	event := bus.Event{
		Type:           bus.EventTypeJobStatusChange,
		JobID:          jobID,
		Job:            snapshot,
		Progress:       snapshot.Progress,
		Status:         status,
		PreviousStatus: previous,
		Error:          errMsg,
		Timestamp:      time.Now().UTC(),
	}

	e.bus.Publish(ctx, bus.JobTopic(jobID), event)
	e.bus.Publish(ctx, bus.UserTopic(snapshot.CreatedByID), event)
}

// publishProgress fans a progress event out to the job topic and the
// creator's user topic.
func (e *Executor) publishProgress(
	ctx context.Context,
	jobID uuid.UUID,
	progress int,
	status domain.JobStatus,
) {
	snapshot, err := e.store.GetSnapshot(ctx, jobID)
	if err != nil {
		e.logger.Error("failed to build snapshot for progress event", "job_id", jobID, "error", err)
		return
	}

	event := bus.Event{
		Type:      bus.EventTypeJobProgress,
		JobID:     jobID,
		Job:       snapshot,
		Progress:  progress,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}

	e.bus.Publish(ctx, bus.JobTopic(jobID), event)
	e.bus.Publish(ctx, bus.UserTopic(snapshot.CreatedByID), event)
}
