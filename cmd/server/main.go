package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/simandok/be-documents/internal/client"
	"github.com/simandok/be-documents/internal/config"
	"github.com/simandok/be-documents/internal/database"
	"github.com/simandok/be-documents/internal/handler"
	"github.com/simandok/be-documents/internal/logger"
	"github.com/simandok/be-documents/internal/middleware"
	"github.com/simandok/be-documents/internal/repository"
	"github.com/simandok/be-documents/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting document approval service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize repositories
	documentRepo := repository.NewDocumentRepository(db)
	approverRepo := repository.NewApproverRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	userRepo := repository.NewUserRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	// Initialize notification publisher
	natsURL := ""
	if cfg.NATS.Enabled {
		natsURL = cfg.NATS.URL
	}
	notifier, err := client.NewNotificationPublisher(natsURL, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer notifier.Close()

	// Initialize services
	hierarchyService := service.NewHierarchyService(userRepo)
	approvalService := service.NewApprovalService(
		documentRepo, approverRepo, historyRepo, userRepo,
		hierarchyService, notifier, log)
	documentService := service.NewDocumentService(documentRepo, log)
	reminderService := service.NewReminderService(
		documentRepo, reminderRepo, notifier, cfg.Reminder.Cooldown, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(documentService, approvalService, reminderService, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Document routes
	mux.HandleFunc("/api/v1/documents", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListDocuments(w, r)
		case http.MethodPost:
			httpHandler.CreateDocument(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/documents/approvers", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.GetApprovers(w, r)
		case http.MethodPost:
			httpHandler.SetApprovers(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/documents/get", httpHandler.GetDocument)
	mux.HandleFunc("/api/v1/documents/pending", httpHandler.ListPending)
	mux.HandleFunc("/api/v1/documents/update", httpHandler.UpdateDocument)
	mux.HandleFunc("/api/v1/documents/submit", httpHandler.SubmitDocument)
	mux.HandleFunc("/api/v1/documents/view", httpHandler.MarkViewed)
	mux.HandleFunc("/api/v1/documents/approve", httpHandler.ApproveDocument)
	mux.HandleFunc("/api/v1/documents/reject", httpHandler.RejectDocument)
	mux.HandleFunc("/api/v1/documents/resubmit", httpHandler.ResubmitDocument)
	mux.HandleFunc("/api/v1/documents/print", httpHandler.PrintDocument)
	mux.HandleFunc("/api/v1/documents/archive", httpHandler.ArchiveDocument)
	mux.HandleFunc("/api/v1/documents/restore", httpHandler.RestoreDocument)
	mux.HandleFunc("/api/v1/documents/history", httpHandler.GetHistory)
	mux.HandleFunc("/api/v1/reminders/run", httpHandler.RunReminderSweep)

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(cfg.Server.WriteTimeout)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Scheduled reminder sweep
	if cfg.Reminder.Enabled {
		go runReminderLoop(ctx, reminderService, cfg.Reminder.Interval, log)
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}

// runReminderLoop triggers the reminder sweep on a fixed interval until
// the context is cancelled. Overlap protection lives in the service.
func runReminderLoop(ctx context.Context, reminders *service.ReminderService, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("Reminder sweep scheduled")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := reminders.Run(ctx); err != nil {
				log.Error().Err(err).Msg("Reminder sweep failed")
			}
		}
	}
}
