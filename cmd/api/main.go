package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vaidashi/garment-order-tracker/internal/api"
	"github.com/vaidashi/garment-order-tracker/internal/auth"
	"github.com/vaidashi/garment-order-tracker/internal/clients"
	"github.com/vaidashi/garment-order-tracker/internal/config"
	"github.com/vaidashi/garment-order-tracker/internal/database"
	"github.com/vaidashi/garment-order-tracker/internal/handlers"
	"github.com/vaidashi/garment-order-tracker/internal/inventory"
	"github.com/vaidashi/garment-order-tracker/internal/models"
	"github.com/vaidashi/garment-order-tracker/internal/outbox"
	"github.com/vaidashi/garment-order-tracker/internal/repository"
	"github.com/vaidashi/garment-order-tracker/internal/service"
	"github.com/vaidashi/garment-order-tracker/internal/tracking"
	"github.com/vaidashi/garment-order-tracker/pkg/circuitbreaker"
	"github.com/vaidashi/garment-order-tracker/pkg/kafka"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
	"github.com/vaidashi/garment-order-tracker/pkg/retry"
)

// storage is the persistence the server runs on
type storage struct {
	store       repository.Store
	outbox      repository.OutboxStore
	deadLetters repository.DeadLetterStore
	close       func() error
}

func openStorage(ctx context.Context, cfg *config.Config, l logger.Logger) (*storage, error) {
	if cfg.Storage == config.StorageMemory {
		l.Warn("Using in-memory storage; data is lost on restart")
		mem := repository.NewMemoryStore()
		return &storage{
			store:       mem,
			outbox:      mem.Outbox(),
			deadLetters: mem.DeadLetters(),
			close:       func() error { return nil },
		}, nil
	}

	db, err := database.New(cfg, l)
	if err != nil {
		return nil, err
	}

	if err := db.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	pg := repository.NewPostgresStore(db, l)
	return &storage{
		store:       pg,
		outbox:      pg.Outbox(),
		deadLetters: pg.DeadLetters(),
		close:       db.Close,
	}, nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Failed to read .env file: %v", err)
	}

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	l := logger.NewLogger(cfg.LogLevel)
	l.Info("Starting API server...", "env", cfg.Env, "storage", cfg.Storage)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	st, err := openStorage(startupCtx, cfg, l)
	if err != nil {
		l.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}

	// Outbox publication goes to Kafka when brokers are configured, otherwise to the log
	var (
		publisher      outbox.MessageHandler = outbox.NewLoggingHandler(l)
		kafkaProducer  *kafka.Producer
		kafkaConsumer  *kafka.Consumer
		paymentGateway service.PaymentGateway = clients.DisabledPaymentGateway{}
		breakers       []*circuitbreaker.CircuitBreaker
	)

	if cfg.KafkaEnabled() {
		kafkaProducer, err = kafka.NewProducer(cfg.Kafka.Brokers, l)
		if err != nil {
			l.Error("Failed to create Kafka producer", "error", err)
			os.Exit(1)
		}
		publisher = outbox.NewKafkaHandler(kafkaProducer, cfg.Kafka.OrdersTopic, l)

		kafkaConsumer, err = kafka.NewConsumer(&kafka.ConsumerConfig{
			Brokers:       cfg.Kafka.Brokers,
			Topics:        []string{cfg.Kafka.OrdersTopic},
			ConsumerGroup: cfg.Kafka.ConsumerGroup,
		}, l)
		if err != nil {
			l.Error("Failed to create Kafka consumer", "error", err)
			os.Exit(1)
		}
		kafkaConsumer.RegisterHandler(cfg.Kafka.OrdersTopic, handlers.NewOrderEventsHandler(handlers.NewLogNotifier(l), l))
	} else {
		l.Warn("KAFKA_BROKERS not set; outbox events are logged only")
	}

	if cfg.PaymentsEnabled() {
		paymentClient := clients.NewPaymentClient(cfg.Payment, l)
		paymentGateway = paymentClient
		breakers = append(breakers, paymentClient.Breaker())
	} else {
		l.Warn("PAYMENT_BASE_URL not set; card payments are disabled")
	}

	// Services
	ledger := inventory.NewLedger(l)
	trackingLog := tracking.NewLog(st.store, l)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	userService := service.NewUserService(st.store, tokens, l)
	productService := service.NewProductService(st.store, ledger, l)
	orderService := service.NewOrderService(st.store, ledger, trackingLog, paymentGateway, cfg.Payment.Currency, l)

	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		if err := userService.EnsureAdmin(startupCtx, "Administrator", cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			l.Error("Failed to create bootstrap admin", "error", err)
			os.Exit(1)
		}
	}

	// Outbox and dead letter processors
	outboxProcessor := outbox.NewProcessor(st.outbox, st.deadLetters, outbox.ProcessorConfig{
		PollingInterval: cfg.Outbox.PollInterval,
		BatchSize:       cfg.Outbox.BatchSize,
		MaxRetries:      cfg.Outbox.MaxRetries,
	}, l)

	deadLetterProcessor := outbox.NewDeadLetterProcessor(st.deadLetters, l, &outbox.DeadLetterProcessorConfig{
		PollingInterval: cfg.Outbox.DLQPollInterval,
		BatchSize:       5,
		MaxRetries:      5,
		BackoffStrategy: &retry.ExponentialBackoff{
			InitialInterval: 1 * time.Second,
			MaxInterval:     2 * time.Minute,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
	})

	for _, eventType := range models.EventTypes {
		outboxProcessor.RegisterHandler(eventType, publisher)
		deadLetterProcessor.RegisterHandler(eventType, publisher)
	}

	server := api.NewServer(cfg, api.Deps{
		Users:       userService,
		Products:    productService,
		Orders:      orderService,
		DeadLetters: deadLetterProcessor,
		DLQStore:    st.deadLetters,
		Outbox:      st.outbox,
		Breakers:    breakers,
	}, l)

	outboxProcessor.Start()
	deadLetterProcessor.Start()

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Start(); err != nil {
			// Non-fatal, orders still flow without notifications
			l.Error("Failed to start Kafka consumer", "error", err)
		}
	}

	// Start the server in a goroutine
	go func() {
		l.Info(fmt.Sprintf("Server is starting on port %d", cfg.Port))

		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown via interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	l.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		l.Error("Server forced to shutdown", "error", err)
	}

	outboxProcessor.Stop()
	deadLetterProcessor.Stop()

	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			l.Error("Error stopping Kafka consumer", "error", err)
		}
	}

	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			l.Error("Error closing Kafka producer", "error", err)
		}
	}

	if err := st.close(); err != nil {
		l.Error("Error closing storage", "error", err)
	}

	l.Info("Server exiting")
}
