// cmd/worker/main.go
package main

import (
    "context"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/rs/zerolog"

    "github.com/driftmailhq/driftmail-backend/internal/config"
    "github.com/driftmailhq/driftmail-backend/internal/db"
    "github.com/driftmailhq/driftmail-backend/internal/logger"
    "github.com/driftmailhq/driftmail-backend/internal/provider"
    "github.com/driftmailhq/driftmail-backend/internal/queue"
    "github.com/driftmailhq/driftmail-backend/internal/repository"
    "github.com/driftmailhq/driftmail-backend/internal/service"
)

func main() {
    if err := godotenv.Load(); err != nil {
        log.Println("⚠️ No .env file found, relying on OS environment variables")
    }

    cfg := config.Load()
    logg := logger.New(cfg.AppEnv)

    conn, err := db.Open(cfg.DatabaseURL)
    if err != nil {
        logg.Fatal().Err(err).Msg("failed to connect to database")
    }
    if err := db.RunMigrations(conn); err != nil {
        logg.Fatal().Err(err).Msg("failed to run migrations")
    }

    recipientRepo := &repository.RecipientRepository{DB: conn}
    templateRepo := &repository.TemplateRepository{DB: conn}
    credentialRepo := repository.NewCredentialRepository(conn, cfg.CredentialEncryptionKey)
    jobRepo := &repository.JobRepository{DB: conn}
    sendLogRepo := &repository.SendLogRepository{DB: conn}
    profileRepo := &repository.SenderProfileRepository{DB: conn}

    rotator := service.NewCredentialRotator(credentialRepo, logg)
    engine := &service.DispatchEngine{
        Templates:       templateRepo,
        Recipients:      recipientRepo,
        SendLogs:        sendLogRepo,
        Profiles:        profileRepo,
        Rotator:         rotator,
        Sender:          newSender(cfg),
        Logger:          logg,
        Workers:         cfg.DispatchWorkers,
        MaxFailover:     cfg.DispatchMaxFailover,
        SendTimeout:     cfg.SendTimeout,
        RatePerSec:      cfg.DispatchRatePerSec,
        DefaultFrom:     cfg.DefaultFromAddress,
        DefaultFromName: cfg.DefaultFromName,
    }

    sched := &service.JobScheduler{
        Jobs:          jobRepo,
        Templates:     templateRepo,
        Recipients:    recipientRepo,
        Engine:        engine,
        Logger:        logg,
        Tick:          cfg.SchedulerTick,
        MaxConcurrent: cfg.SchedulerParallel,
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    // Queued dispatch requests from the API arrive over AMQP. Without a
    // broker the API handles its own queue in-process and the worker only
    // runs the schedule loop.
    if cfg.AMQPURL != "" {
        amqpQueue, err := queue.DialAMQP(cfg.AMQPURL, logg)
        if err != nil {
            logg.Fatal().Err(err).Msg("failed to connect to message broker")
        }
        defer amqpQueue.Close()
        queue.StartDispatchSubscriber(amqpQueue, cfg.QueueName, sched, engine, logg)
    } else {
        logg.Warn().Msg("AMQP_URL not set, consuming no dispatch queue")
    }

    go func() {
        http.Handle("/metrics", promhttp.Handler())
        if err := http.ListenAndServe(cfg.WorkerMetricsAddr, nil); err != nil {
            logg.Error().Err(err).Msg("metrics listener stopped")
        }
    }()

    startRetentionLoop(ctx, sendLogRepo, cfg.LogRetentionDays, logg)

    logg.Info().Msg("🚀 worker running")
    sched.Run(ctx)
    logg.Info().Msg("worker stopped")
}

func newSender(cfg config.Config) provider.Sender {
    if cfg.Provider == "http" {
        return provider.NewHTTPSender(cfg.ProviderURL, cfg.SendTimeout)
    }
    return &provider.MockSender{}
}

// startRetentionLoop prunes send logs past the retention window once a day.
// Retention is off unless LOG_RETENTION_DAYS is set.
func startRetentionLoop(ctx context.Context, repo repository.SendLogRepositoryInterface, days int, logg zerolog.Logger) {
    if days <= 0 {
        return
    }
    go func() {
        ticker := time.NewTicker(24 * time.Hour)
        defer ticker.Stop()
        for {
            cutoff := time.Now().UTC().AddDate(0, 0, -days)
            n, err := repo.PruneOlderThan(cutoff)
            if err != nil {
                logg.Error().Err(err).Msg("send log retention prune failed")
            } else if n > 0 {
                logg.Info().Int64("rows", n).Time("cutoff", cutoff).Msg("pruned old send logs")
            }
            select {
            case <-ctx.Done():
                return
            case <-ticker.C:
            }
        }
    }()
}
