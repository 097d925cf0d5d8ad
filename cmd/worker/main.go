// The worker drains the booking job queue: each job is applied against
// ticket inventory in its own database transaction. It runs alongside
// the API server and shares its configuration.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/palakgarg19/Happening/internal/config"
	"github.com/palakgarg19/Happening/internal/database"
	"github.com/palakgarg19/Happening/internal/queue"
	"github.com/palakgarg19/Happening/internal/repository"
	"github.com/palakgarg19/Happening/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.AMQPURL == "" {
		log.Fatal("worker requires RABBITMQ_URL (or AMQP_URL) to be set")
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// No publisher here: the worker is the consuming end of the queue.
	bookingSvc := service.NewBookingService(db, repository.NewEventRepo(db), repository.NewBookingRepo(db), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("[worker] consuming %s (env=%s)", queue.BookingJobQueue, cfg.Env)
	_ = queue.NewConsumer(cfg.AMQPURL, bookingSvc).Start(ctx)
	log.Printf("[worker] shut down")
}
