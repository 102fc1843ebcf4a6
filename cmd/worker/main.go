package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/config"
	"campaignhub/internal/logger"
	"campaignhub/internal/queue"
	"campaignhub/internal/repository"
	"campaignhub/internal/service"
)

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	log := logger.New(cfg.LogLevel, cfg.Env).WithField("component", "worker")

	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("failed to ping database")
	}
	log.Info("connected to database")

	sender := service.NewSenderService(cfg.Sender.SuccessRate)
	processor := service.NewDeliveryProcessor(
		repository.NewCampaignRepository(db),
		repository.NewCustomerRepository(db),
		repository.NewDeliveryRepository(db),
		sender,
		service.ProcessorConfig{
			MaxAttempts:  cfg.Dispatch.MaxAttempts,
			RetryBackoff: cfg.Dispatch.RetryBackoff,
			SendTimeout:  cfg.Dispatch.SendTimeout,
		},
		log,
	)

	conn, err := queue.NewConnection(cfg.GetRabbitMQURL(), log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to RabbitMQ")
	}
	defer conn.Close()
	log.Info("connected to RabbitMQ")

	consumer, err := queue.NewConsumer(conn, cfg.RabbitMQ.QueueName, cfg.Dispatch.Workers, processor.Process, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start consumer")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down gracefully")
	// In-flight jobs see a cancelled context; their rows stay RETRYING or
	// PENDING and the unacked messages are redelivered
	consumer.Stop()
	log.Info("worker stopped")
}
