package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/ticket-booking/internal/config"
	"github.com/iliyamo/ticket-booking/internal/database"
	"github.com/iliyamo/ticket-booking/internal/pool"
	"github.com/iliyamo/ticket-booking/internal/queue"
	"github.com/iliyamo/ticket-booking/internal/repository"
)

// The worker drains the bookings queue: it consumes BookingRequested events
// published by the API's payment path and persists each as a confirmed
// booking.  It shares the repository layer with the server but only ever
// writes, so its pools are sized down accordingly.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.AMQPURL == "" {
		log.Fatal("RABBITMQ_URL (or AMQP_URL) is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Both pools share one database, so the driver cap covers the write
	// handles plus the single read slot.
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.WritePoolSize+1)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	pools := pool.New(ctx, db, db, cfg.WritePoolSize, 1)
	defer pools.Close()

	bookings := repository.NewBookingRepo(pools)

	log.Printf("worker consuming %q", queue.BookingQueueName)
	if err := queue.StartBookingConsumer(ctx, cfg.AMQPURL, bookings); err != nil && ctx.Err() == nil {
		log.Fatalf("consumer: %v", err)
	}
	log.Println("worker stopped")
}
