// internal/service/scheduler.go
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	appErrors "github.com/driftmailhq/driftmail-backend/internal/errors"
	"github.com/driftmailhq/driftmail-backend/internal/metrics"
	"github.com/driftmailhq/driftmail-backend/internal/model"
	"github.com/driftmailhq/driftmail-backend/internal/repository"
	"github.com/driftmailhq/driftmail-backend/internal/schedule"
)

// JobScheduler wakes on a fixed tick, claims jobs whose next_run_at has
// passed and hands them to the dispatch engine. Claiming is an atomic
// idle -> running transition, so overlapping workers never run the same
// job twice.
type JobScheduler struct {
	Jobs       repository.JobRepositoryInterface
	Templates  repository.TemplateRepositoryInterface
	Recipients repository.RecipientRepositoryInterface
	Engine     *DispatchEngine
	Logger     zerolog.Logger

	Tick          time.Duration
	MaxConcurrent int
}

// Run blocks until ctx is cancelled, executing due jobs once per tick.
func (s *JobScheduler) Run(ctx context.Context) {
	tick := s.Tick
	if tick <= 0 {
		tick = time.Minute
	}
	s.Logger.Info().Dur("tick", tick).Msg("job scheduler started")

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info().Msg("job scheduler stopped")
			return
		case now := <-ticker.C:
			start := time.Now()
			// ctx stops the ticker only. A claimed batch keeps its
			// detached context and finishes every recipient, so a
			// shutdown never records half a batch as failed.
			if err := s.RunDueJobsOnce(context.WithoutCancel(ctx), now.UTC()); err != nil {
				s.Logger.Error().Err(err).Msg("scheduler tick failed")
			}
			took := time.Since(start)
			metrics.ObserveTick(took)
			if took > tick {
				metrics.IncTickOverrun()
				s.Logger.Warn().Dur("took", took).Dur("tick", tick).Msg("scheduler tick overran its interval")
			}
		}
	}
}

// RunDueJobsOnce executes every job due at now and waits for all of them
// to finish before returning, so a tick's duration reflects its real work.
func (s *JobScheduler) RunDueJobsOnce(ctx context.Context, now time.Time) error {
	due, err := s.Jobs.ListDue(now)
	if err != nil {
		return fmt.Errorf("list due jobs: %w", err)
	}
	if len(due) == 0 {
		return nil
	}
	s.Logger.Info().Int("due", len(due)).Msg("picking up due jobs")

	maxConcurrent := s.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for i := range due {
		claimed, err := s.Jobs.Claim(due[i].ID)
		if err != nil {
			s.Logger.Error().Err(err).Int("job_id", due[i].ID).Msg("failed to claim job")
			continue
		}
		if !claimed {
			// another worker got there first, or the job was disabled
			// between listing and claiming
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(job model.Job) {
			defer wg.Done()
			defer func() { <-sem }()
			s.executeJob(ctx, job, now)
		}(due[i])
	}
	wg.Wait()
	return nil
}

// RunJobNow claims and executes a single job outside the tick loop.
// The job must belong to the tenant and be enabled and idle.
func (s *JobScheduler) RunJobNow(ctx context.Context, jobID, tenantID int) error {
	job, err := s.Jobs.GetByID(jobID, tenantID)
	if err != nil {
		return err
	}
	claimed, err := s.Jobs.Claim(job.ID)
	if err != nil {
		return fmt.Errorf("claim job %d: %w", job.ID, err)
	}
	if !claimed {
		return fmt.Errorf("job %d is disabled or already running", job.ID)
	}
	s.executeJob(ctx, *job, time.Now().UTC())
	return nil
}

func (s *JobScheduler) executeJob(ctx context.Context, job model.Job, now time.Time) {
	log := s.Logger.With().Int("job_id", job.ID).Int("tenant_id", job.TenantID).Str("name", job.Name).Logger()

	// A recurring job must yield a valid next fire time before anything
	// is sent, otherwise a broken expression could strand it in running
	// or fire it twice.
	var nextRun *time.Time
	if job.ScheduleKind == model.ScheduleRecurring {
		next, err := schedule.NextAfter(job.CronExpr, now)
		if err != nil {
			log.Error().Err(err).Str("cron", job.CronExpr).Msg("job has an invalid cron expression, disabling")
			s.markBroken(job.ID, fmt.Sprintf("invalid cron expression: %v", err))
			return
		}
		nextRun = &next
	}

	tmpl, err := s.Templates.GetByID(job.TemplateID, job.TenantID)
	if err != nil {
		if appErrors.IsTemplateNotFound(err) {
			log.Error().Int("template_id", job.TemplateID).Msg("job references a missing template, disabling")
			s.markBroken(job.ID, fmt.Sprintf("template %d not found", job.TemplateID))
			return
		}
		log.Error().Err(err).Msg("failed to load job template, releasing job")
		s.release(job.ID)
		return
	}

	recipients, err := s.Recipients.ListByAddresses(job.TenantID, job.RecipientAddresses)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve job recipients, releasing job")
		s.release(job.ID)
		return
	}

	// One-time jobs are retired after this run regardless of outcome.
	enabled := job.ScheduleKind == model.ScheduleRecurring

	if len(recipients) == 0 {
		log.Warn().Msg("job resolved no recipients")
		s.saveResult(job.ID, nextRun, now, model.JobStatusFailed, "no recipients resolved", enabled)
		metrics.IncJobRun(model.JobStatusFailed)
		return
	}

	results := s.Engine.DispatchBulk(ctx, job.TenantID, tmpl, recipients, &job.ID, "")
	status, lastErr := aggregateStatus(results)
	s.saveResult(job.ID, nextRun, now, status, lastErr, enabled)
	metrics.IncJobRun(status)

	log.Info().Str("status", status).Int("recipients", len(results)).Msg("job run finished")
}

func (s *JobScheduler) saveResult(id int, nextRunAt *time.Time, ranAt time.Time, status, lastErr string, enabled bool) {
	if err := s.Jobs.SaveResult(id, nextRunAt, ranAt, status, lastErr, enabled); err != nil {
		s.Logger.Error().Err(err).Int("job_id", id).Msg("failed to save job result")
	}
}

func (s *JobScheduler) markBroken(id int, reason string) {
	if err := s.Jobs.MarkScheduleError(id, reason); err != nil {
		s.Logger.Error().Err(err).Int("job_id", id).Msg("failed to mark job schedule error")
	}
	metrics.IncJobRun(model.JobStatusScheduleError)
}

func (s *JobScheduler) release(id int) {
	if err := s.Jobs.Release(id); err != nil {
		s.Logger.Error().Err(err).Int("job_id", id).Msg("failed to release job")
	}
}

// aggregateStatus folds per-recipient outcomes into the job's last_status.
// The last failing recipient's provider error is kept as a sample.
func aggregateStatus(results []model.SendLog) (string, string) {
	sent, failed := 0, 0
	lastErr := ""
	for i := range results {
		if results[i].Status == model.SendStatusSent {
			sent++
			continue
		}
		failed++
		if results[i].ProviderError != "" {
			lastErr = results[i].ProviderError
		}
	}
	switch {
	case failed == 0:
		return model.JobStatusSent, ""
	case sent == 0:
		return model.JobStatusFailed, lastErr
	default:
		return model.JobStatusPartial, lastErr
	}
}
