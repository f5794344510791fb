package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/travelcomp/offer-service/internal/config"
	"github.com/travelcomp/offer-service/internal/engine"
	"github.com/travelcomp/offer-service/internal/handler"
	"github.com/travelcomp/offer-service/internal/integrations/gsa"
	"github.com/travelcomp/offer-service/internal/middleware"
	"github.com/travelcomp/offer-service/internal/repository"
	"github.com/travelcomp/offer-service/internal/scheduler"
	"github.com/travelcomp/offer-service/internal/service"
	"github.com/travelcomp/offer-service/internal/taxes"
	"github.com/travelcomp/offer-service/internal/utils/email"
)

func main() {
	// .env is optional; real deployments set environment variables directly
	_ = godotenv.Load()

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
	eng := engine.New(taxes.DefaultTable())
	gsaClient := gsa.NewClient(cfg, logger)
	mailSender := email.NewSender(cfg, logger)
	svc := service.NewService(repo, eng, gsaClient, mailSender, logger, cfg)
	h := handler.NewHandler(svc)

	// Start background jobs
	sched := scheduler.NewScheduler(svc, logger)
	if err := sched.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/offers", h.CreateOffer).Methods("POST")
	authRouter.HandleFunc("/offers", h.ListOffers).Methods("GET")
	authRouter.HandleFunc("/offers/{id}", h.GetOffer).Methods("GET")
	authRouter.HandleFunc("/offers/{id}", h.UpdateOffer).Methods("PUT")
	authRouter.HandleFunc("/offers/{id}", h.DeleteOffer).Methods("DELETE")
	authRouter.HandleFunc("/offers/{id}/compliance", h.OfferCompliance).Methods("GET")
	authRouter.HandleFunc("/offers/{id}/savings", h.OfferSavings).Methods("GET")
	authRouter.HandleFunc("/compare", h.Compare).Methods("POST")
	authRouter.HandleFunc("/per-diem", h.PerDiem).Methods("GET")

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
