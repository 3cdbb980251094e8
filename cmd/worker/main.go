package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	adapterdb "github.com/galabid/galabid/internal/adapters/database"
	"github.com/galabid/galabid/internal/mailer"
	pkgdb "github.com/galabid/galabid/pkg/database"
	pkgevents "github.com/galabid/galabid/pkg/events"
)

const notificationExchange = "auction.notifications"

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load environment variables (local overrides .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutting down worker...")
		cancel()
	}()

	// 1. Initialize Postgres Connection Pool
	dbURL := os.Getenv("AUCTION_DB_URL")
	if dbURL == "" {
		logger.Error("AUCTION_DB_URL is not set")
		os.Exit(1)
	}

	pool, err := pkgdb.NewPool(ctx, dbURL)
	if err != nil {
		logger.Error("Unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if pingErr := pool.Ping(ctx); pingErr != nil {
		logger.Error("Unable to ping database", "error", pingErr)
		os.Exit(1)
	}
	logger.Info("Postgres Connected")

	// 2. Initialize RabbitMQ
	rabbitURL := os.Getenv("RABBITMQ_URL")
	if rabbitURL == "" {
		logger.Error("RABBITMQ_URL is not set")
		os.Exit(1)
	}

	amqpConn, err := amqp.Dial(rabbitURL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()
	logger.Info("RabbitMQ Connected")

	publisher, err := pkgevents.NewRabbitMQPublisher(amqpConn, notificationExchange)
	if err != nil {
		logger.Error("Failed to create RabbitMQ publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// 3. Outbox Relay
	// Set lock timeout to 3 seconds
	txManager := pkgdb.NewPostgresTransactionManager(pool, 3*time.Second)
	outboxRepo := adapterdb.NewPostgresOutboxRepository(pool)

	relay := pkgevents.NewOutboxRelay(
		outboxRepo,
		publisher,
		txManager,
		10,                   // Batch size
		500*time.Millisecond, // Polling interval
		notificationExchange,
		logger,
	)

	// 4. Mail Dispatcher
	sender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     envInt("SMTP_PORT", 587),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	})
	if err != nil {
		logger.Error("Failed to create SMTP sender", "error", err)
		os.Exit(1)
	}

	dispatcher := mailer.NewDispatcher(amqpConn, sender, mailer.DispatcherConfig{
		Exchange:    notificationExchange,
		Queue:       "auction.notifications.mail",
		BaseURL:     os.Getenv("PUBLIC_BASE_URL"),
		MinInterval: time.Duration(envInt("MAIL_MIN_INTERVAL_MS", 600)) * time.Millisecond,
		SendTimeout: time.Duration(envInt("MAIL_SEND_TIMEOUT_S", 10)) * time.Second,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting Outbox Relay...")
		return relay.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting Mail Dispatcher...")
		return dispatcher.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped")
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
