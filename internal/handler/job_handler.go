// internal/handler/job_handler.go
package handler

import (
    "encoding/json"
    "net/http"
    "strconv"
    "time"

    "github.com/go-chi/chi/v5"

    appErrors "github.com/driftmailhq/driftmail-backend/internal/errors"
    "github.com/driftmailhq/driftmail-backend/internal/model"
    "github.com/driftmailhq/driftmail-backend/internal/queue"
    "github.com/driftmailhq/driftmail-backend/internal/repository"
    "github.com/driftmailhq/driftmail-backend/internal/schedule"
)

type JobHandler struct {
    Jobs      repository.JobRepositoryInterface
    Templates repository.TemplateRepositoryInterface
    Queue     Publisher
    Topic     string
}

// CreateJobHandler validates the schedule, computes the first run time and
// stores the job enabled and idle.
func (h *JobHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Name               string     `json:"name"`
        TemplateID         int        `json:"template_id"`
        RecipientAddresses []string   `json:"recipient_addresses"`
        ScheduleType       string     `json:"schedule_type"` // once, daily, weekly, monthly, cron
        RunAt              *time.Time `json:"run_at"`
        TimeOfDay          string     `json:"time_of_day"`
        CronExpr           string     `json:"cron_expr"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    if body.Name == "" {
        http.Error(w, "name is required", http.StatusBadRequest)
        return
    }
    if len(body.RecipientAddresses) == 0 {
        http.Error(w, "recipient_addresses must not be empty", http.StatusBadRequest)
        return
    }

    // The template must exist up front; jobs pointing at a missing template
    // would only be disabled by the scheduler later.
    if _, err := h.Templates.GetByID(body.TemplateID, tenantID(r)); err != nil {
        if appErrors.IsTemplateNotFound(err) {
            http.Error(w, "template not found", http.StatusBadRequest)
            return
        }
        http.Error(w, "failed to check template: "+err.Error(), http.StatusInternalServerError)
        return
    }

    now := time.Now().UTC()
    job := &model.Job{
        TenantID:           tenantID(r),
        Name:               body.Name,
        TemplateID:         body.TemplateID,
        RecipientAddresses: body.RecipientAddresses,
        State:              model.JobStateIdle,
        Enabled:            true,
    }

    switch body.ScheduleType {
    case "once":
        if body.RunAt == nil {
            http.Error(w, "run_at is required for schedule_type once", http.StatusBadRequest)
            return
        }
        runAt := body.RunAt.UTC()
        job.ScheduleKind = model.ScheduleOneTime
        job.RunAt = &runAt
        job.NextRunAt = &runAt

    case "daily", "weekly", "monthly":
        expr, err := schedule.FromShorthand(body.ScheduleType, body.TimeOfDay, now)
        if err != nil {
            http.Error(w, err.Error(), http.StatusBadRequest)
            return
        }
        next, err := schedule.NextAfter(expr, now)
        if err != nil {
            http.Error(w, err.Error(), http.StatusBadRequest)
            return
        }
        job.ScheduleKind = model.ScheduleRecurring
        job.CronExpr = expr
        job.NextRunAt = &next

    case "cron":
        if err := schedule.Validate(body.CronExpr); err != nil {
            http.Error(w, err.Error(), http.StatusBadRequest)
            return
        }
        next, err := schedule.NextAfter(body.CronExpr, now)
        if err != nil {
            http.Error(w, err.Error(), http.StatusBadRequest)
            return
        }
        job.ScheduleKind = model.ScheduleRecurring
        job.CronExpr = body.CronExpr
        job.NextRunAt = &next

    default:
        http.Error(w, "schedule_type must be one of once, daily, weekly, monthly, cron", http.StatusBadRequest)
        return
    }

    if err := h.Jobs.Create(job); err != nil {
        http.Error(w, "failed to create job: "+err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(job)
}

// ListJobsHandler returns a paginated list of the tenant's jobs
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
    page, pageSize := pageParams(r)

    jobs, total, err := h.Jobs.ListByTenant(tenantID(r), (page-1)*pageSize, pageSize)
    if err != nil {
        http.Error(w, "failed to fetch jobs: "+err.Error(), http.StatusInternalServerError)
        return
    }

    json.NewEncoder(w).Encode(map[string]interface{}{
        "data":       jobs,
        "pagination": paginate(page, pageSize, total),
    })
}

// GetJobHandler returns a single job by ID, including its last run outcome
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
    id, err := strconv.Atoi(chi.URLParam(r, "id"))
    if err != nil {
        http.Error(w, "invalid job id", http.StatusBadRequest)
        return
    }

    job, err := h.Jobs.GetByID(id, tenantID(r))
    if err != nil {
        if appErrors.IsJobNotFound(err) {
            http.Error(w, "job not found", http.StatusNotFound)
            return
        }
        http.Error(w, "failed to fetch job: "+err.Error(), http.StatusInternalServerError)
        return
    }

    json.NewEncoder(w).Encode(job)
}

// DisableJobHandler turns a job off. History stays, the job just never
// becomes due again.
func (h *JobHandler) DisableJobHandler(w http.ResponseWriter, r *http.Request) {
    id, err := strconv.Atoi(chi.URLParam(r, "id"))
    if err != nil {
        http.Error(w, "invalid job id", http.StatusBadRequest)
        return
    }

    if err := h.Jobs.Disable(id, tenantID(r)); err != nil {
        if appErrors.IsJobNotFound(err) {
            http.Error(w, "job not found", http.StatusNotFound)
            return
        }
        http.Error(w, "failed to disable job: "+err.Error(), http.StatusInternalServerError)
        return
    }

    w.WriteHeader(http.StatusNoContent)
}

// RunJobHandler queues an immediate run of the job, outside its schedule
func (h *JobHandler) RunJobHandler(w http.ResponseWriter, r *http.Request) {
    id, err := strconv.Atoi(chi.URLParam(r, "id"))
    if err != nil {
        http.Error(w, "invalid job id", http.StatusBadRequest)
        return
    }

    if _, err := h.Jobs.GetByID(id, tenantID(r)); err != nil {
        if appErrors.IsJobNotFound(err) {
            http.Error(w, "job not found", http.StatusNotFound)
            return
        }
        http.Error(w, "failed to fetch job: "+err.Error(), http.StatusInternalServerError)
        return
    }

    err = h.Queue.Publish(h.Topic, queue.DispatchRequest{
        Kind:     queue.KindJob,
        TenantID: tenantID(r),
        JobID:    id,
    })
    if err != nil {
        http.Error(w, "failed to queue job run: "+err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusAccepted)
    json.NewEncoder(w).Encode(map[string]interface{}{
        "job_id": id,
        "status": "queued",
    })
}
