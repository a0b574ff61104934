// internal/handler/send_handler.go
package handler

import (
    "context"
    "encoding/json"
    "net/http"
    "strconv"

    "github.com/google/uuid"

    appErrors "github.com/driftmailhq/driftmail-backend/internal/errors"
    "github.com/driftmailhq/driftmail-backend/internal/model"
    "github.com/driftmailhq/driftmail-backend/internal/queue"
    "github.com/driftmailhq/driftmail-backend/internal/repository"
)

// Publisher is the queue surface handlers need.
type Publisher interface {
    Publish(topic string, req queue.DispatchRequest) error
}

// Dispatcher is the synchronous send surface, used when the caller asks for
// the result inline instead of a queued batch.
type Dispatcher interface {
    DispatchNow(ctx context.Context, tenantID, templateID int, addresses []string, batchID string) ([]model.SendLog, error)
}

type SendHandler struct {
    Engine   Dispatcher
    Queue    Publisher
    Topic    string
    SendLogs repository.SendLogRepositoryInterface
}

// SendMessageHandler handles POST /send. The default path queues the batch
// and returns 202 with a batch_id to poll logs with; ?sync=true dispatches
// inline and returns the per-recipient outcomes.
func (h *SendHandler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
    var body struct {
        TemplateID int      `json:"template_id"`
        Addresses  []string `json:"addresses"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }
    if len(body.Addresses) == 0 {
        http.Error(w, "addresses must not be empty", http.StatusBadRequest)
        return
    }

    batchID := uuid.NewString()

    if r.URL.Query().Get("sync") == "true" {
        // a dispatch that started keeps running if the client disconnects,
    // so every recipient still gets a log entry
    results, err := h.Engine.DispatchNow(context.WithoutCancel(r.Context()), tenantID(r), body.TemplateID, body.Addresses, batchID)
        if err != nil {
            if appErrors.IsTemplateNotFound(err) {
                http.Error(w, "template not found", http.StatusNotFound)
                return
            }
            http.Error(w, "failed to dispatch: "+err.Error(), http.StatusInternalServerError)
            return
        }

        sent := 0
        for i := range results {
            if results[i].Status == model.SendStatusSent {
                sent++
            }
        }

        w.Header().Set("Content-Type", "application/json")
        json.NewEncoder(w).Encode(map[string]interface{}{
            "batch_id": batchID,
            "sent":     sent,
            "failed":   len(results) - sent,
            "results":  results,
        })
        return
    }

    err := h.Queue.Publish(h.Topic, queue.DispatchRequest{
        Kind:       queue.KindAdhoc,
        TenantID:   tenantID(r),
        TemplateID: body.TemplateID,
        Addresses:  body.Addresses,
        BatchID:    batchID,
    })
    if err != nil {
        http.Error(w, "failed to queue send: "+err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusAccepted)
    json.NewEncoder(w).Encode(map[string]interface{}{
        "batch_id":   batchID,
        "recipients": len(body.Addresses),
        "status":     "queued",
    })
}

// ListSendLogsHandler returns the tenant's send history, filterable by
// job_id, batch_id and status
func (h *SendHandler) ListSendLogsHandler(w http.ResponseWriter, r *http.Request) {
    page, pageSize := pageParams(r)

    var filter repository.SendLogFilter
    if jobID, err := strconv.Atoi(r.URL.Query().Get("job_id")); err == nil && jobID > 0 {
        filter.JobID = jobID
    }
    filter.BatchID = r.URL.Query().Get("batch_id")
    filter.Status = r.URL.Query().Get("status")

    logs, total, err := h.SendLogs.List(tenantID(r), filter, (page-1)*pageSize, pageSize)
    if err != nil {
        http.Error(w, "failed to fetch send logs: "+err.Error(), http.StatusInternalServerError)
        return
    }

    json.NewEncoder(w).Encode(map[string]interface{}{
        "data":       logs,
        "pagination": paginate(page, pageSize, total),
    })
}
