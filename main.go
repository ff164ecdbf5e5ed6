package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/shoplane/ordermail/api"
	"github.com/shoplane/ordermail/datastore"
	"github.com/shoplane/ordermail/delivery"
	"github.com/shoplane/ordermail/mail"
	"github.com/shoplane/ordermail/render"
	rh "github.com/shoplane/ordermail/route-handlers"
)

const (
	defaultPort        = "8080"
	defaultDatabaseURL = "user=postgres password=password dbname=ordermail host=localhost port=5432 sslmode=disable"
	defaultSMTPPort    = 587
	defaultFromName    = "Shoplane Orders"
	dbPingTimeout      = 5 * time.Second
	shutdownTimeout    = 15 * time.Second
	dbMaxOpenConns     = 25
	dbMaxIdleConns     = 25
	dbConnMaxLifetime  = 5 * time.Minute
)

type config struct {
	port        string
	databaseURL string
	smtp        mail.SMTPConfig
	replyTo     string
	maxRetries  int
}

func main() {
	cfg := loadConfig()

	db, err := setupDatabase(cfg.databaseURL)
	if err != nil {
		log.Fatalf("Database setup failed: %v", err)
	}
	defer db.Close()

	attemptRepo := datastore.NewAttemptRepository(db)
	orderRepo := datastore.NewOrderRepository(db)

	// Transport construction is fatal on bad config; missing credentials
	// are not bad config, sending just fails downstream.
	transport, err := mail.NewSMTPTransport(cfg.smtp)
	if err != nil {
		log.Fatalf("SMTP transport setup failed: %v", err)
	}

	renderer := render.New(cfg.smtp.FromName, cfg.replyTo)
	deliveryService := delivery.NewService(transport, attemptRepo, nil).
		WithRetryPolicy(cfg.maxRetries, delivery.DefaultBackoffBase)
	mailer := delivery.NewMailer(renderer, deliveryService, nil)

	orderEmailHandler := rh.NewOrderEmailHandler(orderRepo, attemptRepo, mailer)
	failedMessageHandler := rh.NewFailedMessageHandler(attemptRepo, orderRepo, mailer)

	router := api.SetupRoutes(orderEmailHandler, failedMessageHandler)

	startServer(cfg.port, router)
}

func loadConfig() config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	dbURL := os.Getenv("DB_CONNECTION_STRING")
	if dbURL == "" {
		dbURL = defaultDatabaseURL
		log.Println("WARNING: DB_CONNECTION_STRING not set, using default local connection string.")
	}

	smtpHost := os.Getenv("SMTP_HOST")
	if smtpHost == "" {
		log.Println("WARNING: SMTP_HOST not set. Email delivery will fail at runtime.")
	}

	smtpUser := os.Getenv("SMTP_USER")
	if smtpUser == "" {
		log.Println("WARNING: SMTP_USER not set. Email delivery will fail at runtime.")
	}

	fromName := os.Getenv("SMTP_FROM_NAME")
	if fromName == "" {
		fromName = defaultFromName
	}

	replyTo := os.Getenv("REPLY_TO_EMAIL")
	if replyTo == "" {
		replyTo = smtpUser
	}

	return config{
		port:        port,
		databaseURL: dbURL,
		smtp: mail.SMTPConfig{
			Host:     smtpHost,
			Port:     getEnvInt("SMTP_PORT", defaultSMTPPort),
			Secure:   os.Getenv("SMTP_SECURE") == "true",
			Username: smtpUser,
			Password: os.Getenv("SMTP_PASSWORD"),
			FromName: fromName,
		},
		replyTo:    replyTo,
		maxRetries: getEnvInt("EMAIL_MAX_RETRIES", delivery.DefaultMaxRetries),
	}
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARNING: invalid int for %s (%q), using default %d", key, v, def)
		return def
	}
	return n
}

func setupDatabase(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(dbMaxOpenConns)
	db.SetMaxIdleConns(dbMaxIdleConns)
	db.SetConnMaxLifetime(dbConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close() // Close unusable connection pool
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection successful")
	return db, nil
}

func startServer(port string, router http.Handler) {
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownSignal // Block until signal received
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}

	log.Println("Server gracefully stopped")
}
