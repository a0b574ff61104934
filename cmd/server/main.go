// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/driftmailhq/driftmail-backend/internal/config"
	"github.com/driftmailhq/driftmail-backend/internal/db"
	"github.com/driftmailhq/driftmail-backend/internal/handler"
	"github.com/driftmailhq/driftmail-backend/internal/logger"
	"github.com/driftmailhq/driftmail-backend/internal/provider"
	"github.com/driftmailhq/driftmail-backend/internal/queue"
	"github.com/driftmailhq/driftmail-backend/internal/repository"
	"github.com/driftmailhq/driftmail-backend/internal/service"
)

func main() {
	// Load .env
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

	// AMQP when configured, otherwise in-memory with the dispatch
	// subscriber running in-process so dev setups need no broker.
	var q queue.Queue
	if cfg.AMQPURL != "" {
		amqpQueue, err := queue.DialAMQP(cfg.AMQPURL, logg)
		if err != nil {
			logg.Fatal().Err(err).Msg("failed to connect to message broker")
		}
		defer amqpQueue.Close()
		q = amqpQueue
	} else {
		q = queue.NewInMemoryQueue(logg)
	}

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

	if cfg.AMQPURL == "" {
		sched := &service.JobScheduler{
			Jobs:       jobRepo,
			Templates:  templateRepo,
			Recipients: recipientRepo,
			Engine:     engine,
			Logger:     logg,
		}
		queue.StartDispatchSubscriber(q, cfg.QueueName, sched, engine, logg)
	}

	recipientHandler := handler.NewRecipientHandler(recipientRepo)
	templateHandler := handler.NewTemplateHandler(templateRepo, recipientRepo)
	credentialHandler := handler.NewCredentialHandler(credentialRepo)
	profileHandler := handler.NewProfileHandler(profileRepo)
	jobHandler := &handler.JobHandler{
		Jobs:      jobRepo,
		Templates: templateRepo,
		Queue:     q,
		Topic:     cfg.QueueName,
	}
	sendHandler := &handler.SendHandler{
		Engine:   engine,
		Queue:    q,
		Topic:    cfg.QueueName,
		SendLogs: sendLogRepo,
	}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := conn.Ping(); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(handler.TenantFromHeader)

		// Recipient routes
		r.Post("/recipients", recipientHandler.CreateRecipientHandler)
		r.Get("/recipients", recipientHandler.ListRecipientsHandler)
		r.Get("/recipients/{id}", recipientHandler.GetRecipientHandler)
		r.Delete("/recipients/{id}", recipientHandler.DeleteRecipientHandler)

		// Template routes
		r.Post("/templates", templateHandler.CreateTemplateHandler)
		r.Get("/templates", templateHandler.ListTemplatesHandler)
		r.Get("/templates/{id}", templateHandler.GetTemplateHandler)
		r.Put("/templates/{id}", templateHandler.UpdateTemplateHandler)
		r.Delete("/templates/{id}", templateHandler.DeleteTemplateHandler)
		r.Post("/templates/{id}/preview", templateHandler.PreviewTemplateHandler)

		// Credential routes
		r.Post("/credentials", credentialHandler.CreateCredentialHandler)
		r.Get("/credentials", credentialHandler.ListCredentialsHandler)
		r.Delete("/credentials/{id}", credentialHandler.DeleteCredentialHandler)

		// Sender profile routes
		r.Post("/profiles", profileHandler.CreateProfileHandler)
		r.Get("/profiles", profileHandler.ListProfilesHandler)
		r.Delete("/profiles/{id}", profileHandler.DeleteProfileHandler)

		// Job routes
		r.Post("/jobs", jobHandler.CreateJobHandler)
		r.Get("/jobs", jobHandler.ListJobsHandler)
		r.Get("/jobs/{id}", jobHandler.GetJobHandler)
		r.Delete("/jobs/{id}", jobHandler.DisableJobHandler)
		r.Post("/jobs/{id}/run", jobHandler.RunJobHandler)

		// Send routes
		r.Post("/send", sendHandler.SendMessageHandler)
		r.Get("/logs", sendHandler.ListSendLogsHandler)
	})

	logg.Info().Str("addr", cfg.ListenAddr).Msg("🚀 server running")
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		logg.Fatal().Err(err).Msg("server stopped")
	}
}

func newSender(cfg config.Config) provider.Sender {
	if cfg.Provider == "http" {
		return provider.NewHTTPSender(cfg.ProviderURL, cfg.SendTimeout)
	}
	return &provider.MockSender{}
}
