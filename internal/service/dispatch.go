// internal/service/dispatch.go
package service

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog"
    "golang.org/x/time/rate"

    appErrors "github.com/driftmailhq/driftmail-backend/internal/errors"
    "github.com/driftmailhq/driftmail-backend/internal/metrics"
    "github.com/driftmailhq/driftmail-backend/internal/model"
    "github.com/driftmailhq/driftmail-backend/internal/provider"
    "github.com/driftmailhq/driftmail-backend/internal/repository"
)

// DispatchEngine renders and sends one message per recipient, rotating
// across the tenant's credentials and recording one SendLog per recipient
// no matter how the send went.
type DispatchEngine struct {
    Templates  repository.TemplateRepositoryInterface
    Recipients repository.RecipientRepositoryInterface
    SendLogs   repository.SendLogRepositoryInterface
    Profiles   repository.SenderProfileRepositoryInterface
    Rotator    *CredentialRotator
    Sender     provider.Sender
    Logger     zerolog.Logger

    Workers     int
    MaxFailover int
    SendTimeout time.Duration
    RatePerSec  int

    DefaultFrom     string
    DefaultFromName string

    limMu    sync.Mutex
    limiters map[int]*rate.Limiter
}

// DispatchBulk sends the template to every recipient. Recipients are
// independent: they are processed on a bounded worker pool, one recipient's
// failure never aborts the batch, and the returned slice holds exactly one
// entry per recipient in input order.
func (e *DispatchEngine) DispatchBulk(ctx context.Context, tenantID int, tmpl *model.MessageTemplate, recipients []model.Recipient, jobID *int, batchID string) []model.SendLog {
    if batchID == "" {
        batchID = uuid.NewString()
    }
    from, fromName := e.resolveSender(tenantID)
    start := time.Now()

    workers := e.Workers
    if workers <= 0 {
        workers = 4
    }

    results := make([]model.SendLog, len(recipients))
    sem := make(chan struct{}, workers)
    var wg sync.WaitGroup

    for i := range recipients {
        wg.Add(1)
        sem <- struct{}{}
        go func(i int) {
            defer wg.Done()
            defer func() { <-sem }()
            results[i] = e.sendOne(ctx, tenantID, from, fromName, tmpl, recipients[i], jobID, batchID)
        }(i)
    }
    wg.Wait()

    sent := 0
    for i := range results {
        if results[i].Status == model.SendStatusSent {
            sent++
        }
    }
    metrics.ObserveDispatch(time.Since(start))
    e.Logger.Info().
        Str("batch_id", batchID).
        Int("tenant_id", tenantID).
        Int("sent", sent).
        Int("failed", len(results)-sent).
        Dur("took", time.Since(start)).
        Msg("dispatch batch finished")

    return results
}

// DispatchNow is the ad-hoc immediate send path. Addresses with a stored
// recipient record get full personalization; unknown addresses are sent to
// with the address alone. An empty batchID gets a fresh one.
func (e *DispatchEngine) DispatchNow(ctx context.Context, tenantID, templateID int, addresses []string, batchID string) ([]model.SendLog, error) {
    tmpl, err := e.Templates.GetByID(templateID, tenantID)
    if err != nil {
        return nil, err
    }

    known, err := e.Recipients.ListByAddresses(tenantID, addresses)
    if err != nil {
        return nil, err
    }
    byAddress := make(map[string]model.Recipient, len(known))
    for _, rc := range known {
        byAddress[rc.Address] = rc
    }

    recipients := make([]model.Recipient, 0, len(addresses))
    for _, addr := range addresses {
        if rc, ok := byAddress[addr]; ok {
            recipients = append(recipients, rc)
            continue
        }
        recipients = append(recipients, model.Recipient{TenantID: tenantID, Address: addr})
    }

    return e.DispatchBulk(ctx, tenantID, tmpl, recipients, nil, batchID), nil
}

// sendOne handles a single recipient: render, acquire a credential, send,
// and fail over across distinct credentials on credential-level failures.
// It always produces a SendLog entry.
func (e *DispatchEngine) sendOne(ctx context.Context, tenantID int, from, fromName string, tmpl *model.MessageTemplate, rcpt model.Recipient, jobID *int, batchID string) model.SendLog {
    entry := model.SendLog{
        TenantID:         tenantID,
        JobID:            jobID,
        BatchID:          batchID,
        RecipientAddress: rcpt.Address,
        Subject:          RenderTemplate(tmpl.SubjectPattern, rcpt),
        Status:           model.SendStatusFailed,
    }
    body := RenderTemplate(tmpl.BodyPattern, rcpt)

    maxFailover := e.MaxFailover
    if maxFailover <= 0 {
        maxFailover = 3
    }

    tried := make([]int, 0, maxFailover)
    var lastErr error

    for len(tried) < maxFailover {
        // credentials already tried are excluded, so an active pool
        // smaller than the failover budget ends the loop here instead
        // of burning a use on a repeat acquisition
        cred, err := e.Rotator.Acquire(tenantID, tried...)
        if err != nil {
            if errors.Is(err, appErrors.ErrNoCredentialAvailable) {
                entry.ProviderError = err.Error()
            } else {
                lastErr = err
            }
            break
        }
        tried = append(tried, cred.ID)
        entry.CredentialID = &cred.ID

        if lim := e.limiterFor(tenantID); lim != nil {
            if err := lim.Wait(ctx); err != nil {
                lastErr = fmt.Errorf("rate limit wait: %w", err)
                break
            }
        }

        sctx := ctx
        var cancel context.CancelFunc
        if e.SendTimeout > 0 {
            sctx, cancel = context.WithTimeout(ctx, e.SendTimeout)
        }
        err = e.Sender.Send(sctx, cred.Secret, provider.Message{
            To:       rcpt.Address,
            ToName:   rcpt.DisplayName,
            From:     from,
            FromName: fromName,
            Subject:  entry.Subject,
            Body:     body,
        })
        if cancel != nil {
            cancel()
        }

        if err == nil {
            _ = e.Rotator.Report(cred.ID, OutcomeSuccess)
            entry.Status = model.SendStatusSent
            lastErr = nil
            break
        }
        lastErr = err

        class := provider.Classify(err)
        if class == provider.ClassRecipientRejected {
            // permanent for this recipient, a different credential
            // cannot change the outcome
            break
        }

        outcome := OutcomeTransientFailure
        if class == provider.ClassCredentialRejected {
            outcome = OutcomeRejectedByProvider
        }
        if rerr := e.Rotator.Report(cred.ID, outcome); rerr != nil {
            e.Logger.Error().Err(rerr).Int("credential_id", cred.ID).Msg("failed to report credential outcome")
        }
        e.Logger.Debug().
            Err(err).
            Int("tenant_id", tenantID).
            Str("recipient", rcpt.Address).
            Int("credential_id", cred.ID).
            Msg("send failed, trying next credential")
    }

    if entry.Status != model.SendStatusSent && lastErr != nil {
        entry.ProviderError = lastErr.Error()
    }
    entry.SentAt = time.Now().UTC()

    metrics.IncSend(entry.Status)
    if err := e.SendLogs.Append(&entry); err != nil {
        e.Logger.Error().Err(err).Str("recipient", rcpt.Address).Msg("failed to append send log")
    }
    return entry
}

func (e *DispatchEngine) resolveSender(tenantID int) (string, string) {
    if e.Profiles != nil {
        p, err := e.Profiles.DefaultForTenant(tenantID)
        if err != nil {
            e.Logger.Warn().Err(err).Int("tenant_id", tenantID).Msg("sender profile lookup failed, using defaults")
        } else if p != nil {
            return p.FromAddress, p.FromName
        }
    }
    return e.DefaultFrom, e.DefaultFromName
}

// limiterFor returns the tenant's send rate limiter, or nil when rate
// limiting is disabled.
func (e *DispatchEngine) limiterFor(tenantID int) *rate.Limiter {
    if e.RatePerSec <= 0 {
        return nil
    }
    e.limMu.Lock()
    defer e.limMu.Unlock()
    if e.limiters == nil {
        e.limiters = make(map[int]*rate.Limiter)
    }
    lim, ok := e.limiters[tenantID]
    if !ok {
        lim = rate.NewLimiter(rate.Limit(e.RatePerSec), e.RatePerSec)
        e.limiters[tenantID] = lim
    }
    return lim
}
