package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/corefin/billing-service/internal/config"
	"github.com/corefin/billing-service/internal/handler"
	"github.com/corefin/billing-service/internal/integrations/einvoice"
	"github.com/corefin/billing-service/internal/jobs"
	"github.com/corefin/billing-service/internal/middleware"
	"github.com/corefin/billing-service/internal/repository"
	"github.com/corefin/billing-service/internal/service"
	"github.com/corefin/billing-service/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	svc := service.NewService(repo, logger, cfg)
	builder := einvoice.NewBuilder(logger)
	h := handler.NewHandler(svc, builder, logger)

	// Start the auto-bill reminder sweep
	sender := email.NewSender(cfg, logger)
	reminders := jobs.NewReminderScheduler(repo, sender, logger, cfg)
	if err := reminders.Start(); err != nil {
		logger.Fatalf("Failed to start reminder scheduler: %v", err)
	}
	defer reminders.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/clients", h.CreateClient).Methods("POST")
	authRouter.HandleFunc("/clients/{id}", h.GetClient).Methods("GET")
	authRouter.HandleFunc("/invoices", h.CreateInvoice).Methods("POST")
	authRouter.HandleFunc("/invoices/{id}", h.GetInvoice).Methods("GET")
	authRouter.HandleFunc("/invoices/{id}/document", h.ExportInvoiceDocument).Methods("GET")
	authRouter.HandleFunc("/invoices/{id}/schedule", h.GetSchedule).Methods("GET")
	authRouter.HandleFunc("/invoices/{id}/schedule", h.ReplaceSchedule).Methods("PUT")
	authRouter.HandleFunc("/invoices/{id}/schedule/installments", h.AddInstallment).Methods("POST")
	authRouter.HandleFunc("/invoices/{id}/schedule/installments/{index}", h.UpdateInstallment).Methods("PUT")
	authRouter.HandleFunc("/invoices/{id}/schedule/installments/{index}", h.RemoveInstallment).Methods("DELETE")
	authRouter.HandleFunc("/invoices/{id}/schedule/mode", h.ChangeScheduleMode).Methods("POST")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
