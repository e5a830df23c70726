package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stellaselena/PG6100-bookexam/internal/book"
	"github.com/stellaselena/PG6100-bookexam/internal/config"
	"github.com/stellaselena/PG6100-bookexam/internal/db"
	"github.com/stellaselena/PG6100-bookexam/internal/events"
	"github.com/stellaselena/PG6100-bookexam/internal/web"
	"github.com/stellaselena/PG6100-bookexam/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load("book", "8081")

	// Initialize logger
	log := logger.NewLogger(cfg.ServiceName, cfg.LogLevel)
	defer log.Sync()

	log.Info("Starting book service", zap.String("port", cfg.HTTPPort))

	// Connect to database
	database, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(&book.Book{}); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize event publisher for sale postings
	publisher, err := events.NewPublisher(cfg.RabbitMQURL, events.ExchangeBookForSale, log)
	if err != nil {
		log.Fatal("Failed to initialize event publisher", zap.Error(err))
	}
	defer publisher.Close()

	repo := book.NewRepository(database, log)
	handler := book.NewHandler(repo, publisher, log)

	r := chi.NewRouter()
	r.Use(web.Instrument(cfg.ServiceName, log))
	r.Mount("/books", handler.Routes())
	r.Handle("/metrics", web.MetricsHandler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := database.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
