package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-booking/internal/auth"
	"ms-booking/internal/bookings"
	"ms-booking/internal/bookings/booking_api"
	booking_db "ms-booking/internal/bookings/db"
	rediswrap "ms-booking/internal/bookings/redis"
	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/events"
	event_db "ms-booking/internal/events/db"
	"ms-booking/internal/events/event_api"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/notification"
)

func connectPostgres(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Addr))
	return client
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Booking Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB := connectPostgres(cfg.Database, log)
	defer bunDB.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
		}
		log.Info("DATABASE", "Migrations applied")
	}

	redisClient := connectRedis(ctx, cfg.Redis, log)
	defer redisClient.Close()

	emailSender := notification.NewEmailSender(cfg.Email, log)

	var notifier bookings.Notifier
	var kafkaProducer *kafka.Producer
	if cfg.Kafka.Enabled {
		kafkaProducer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer kafkaProducer.Close()

		requiredTopics := []string{
			cfg.Kafka.Topics.BookingConfirmed,
			cfg.Kafka.Topics.BookingCancelled,
			cfg.Kafka.Topics.PaymentFailed,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}

		notifier = notification.NewKafkaNotifier(kafkaProducer, cfg.Kafka.Topics, log)
	} else {
		log.Warn("KAFKA", "Kafka disabled, sending notifications in-process")
		notifier = notification.NewDirectNotifier(emailSender, log)
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		log.Fatal("AUTH", fmt.Sprintf("Failed to initialize token verifier: %v", err))
	}

	eventService := events.NewEventService(&event_db.DB{Bun: bunDB}, log)
	bookingService := bookings.NewBookingService(
		&booking_db.DB{Bun: bunDB},
		&event_db.DB{Bun: bunDB},
		rediswrap.NewRedis(redisClient),
		notifier,
		log,
	)

	stripeClient, err := bookings.NewStripeClient()
	if err != nil {
		log.Warn("STRIPE", fmt.Sprintf("Stripe disabled: %v", err))
	} else {
		bookingService.Stripe = stripeClient
		log.Info("STRIPE", "Stripe client initialized")
	}

	eventHandler := event_api.NewHandler(eventService, log, cfg.DevMode)
	bookingHandler := booking_api.NewHandler(bookingService, log, cfg.DevMode)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	eventHandler.RegisterPublicRoutes(r)
	log.Info("ROUTER", "Public event endpoints registered under /api/events")

	// Stripe authenticates webhook calls by signature, not bearer token.
	r.Post("/api/payments/webhook", bookingHandler.StripeWebhook)
	log.Info("ROUTER", "Stripe webhook registered at /api/payments/webhook")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier))
		log.Info("AUTH", "JWT middleware applied to protected API routes")

		eventHandler.RegisterProtectedRoutes(r)
		log.Info("ROUTER", "Protected event routes registered under /api/events")

		bookingHandler.RegisterProtectedRoutes(r)
		log.Info("ROUTER", "Booking and payment routes registered under /api/bookings and /api/payments")
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.BookingConfirmed, cfg.Kafka.GroupID)
		worker := notification.NewWorker(consumer, emailSender, log)
		go worker.Run(workerCtx)
		defer consumer.Close()
		log.Info("KAFKA", "Notification worker started")
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Booking Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	stopWorker()
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "Booking Service shutdown complete")
	}
}
