package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/cache"
	"campaignhub/internal/config"
	"campaignhub/internal/handler"
	"campaignhub/internal/logger"
	"campaignhub/internal/nlrule"
	"campaignhub/internal/queue"
	"campaignhub/internal/repository"
	"campaignhub/internal/rules"
	"campaignhub/internal/service"
	"campaignhub/internal/worker"
)

const version = "1.0.0"

func main() {
	// Load .env file (ignore error in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	log := logger.New(cfg.LogLevel, cfg.Env)

	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.WithError(err).Fatal("failed to ping database")
	}
	log.Info("connected to database")

	// Repositories
	customerRepo := repository.NewCustomerRepository(db)
	segmentRepo := repository.NewSegmentRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)

	var audienceCache cache.AudienceCache
	if cfg.Redis.Enabled {
		audienceCache = cache.NewRedisCache(cfg.Redis)
		log.WithField("addr", cfg.Redis.Address).Info("using redis audience cache")
	} else {
		audienceCache = cache.NewMemoryCache(cfg.Redis.TTL)
	}
	defer audienceCache.Close()

	evaluator := rules.NewEvaluator(log)

	// Job transport: in-process pool or RabbitMQ
	var (
		submitter service.JobSubmitter
		pool      *worker.Pool
		queueURL  string
	)
	if cfg.UsesQueue() {
		queueURL = cfg.GetRabbitMQURL()
		conn, err := queue.NewConnection(queueURL, log)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to RabbitMQ")
		}
		defer conn.Close()

		publisher, err := queue.NewPublisher(conn, cfg.RabbitMQ.QueueName)
		if err != nil {
			log.WithError(err).Fatal("failed to create publisher")
		}
		submitter = publisher
		log.WithField("queue", cfg.RabbitMQ.QueueName).Info("dispatching through RabbitMQ")
	} else {
		sender := service.NewSenderService(cfg.Sender.SuccessRate)
		processor := service.NewDeliveryProcessor(campaignRepo, customerRepo, deliveryRepo, sender, service.ProcessorConfig{
			MaxAttempts:  cfg.Dispatch.MaxAttempts,
			RetryBackoff: cfg.Dispatch.RetryBackoff,
			SendTimeout:  cfg.Dispatch.SendTimeout,
		}, log)
		pool = worker.NewPool(cfg.Dispatch.Workers, cfg.Dispatch.QueueSize, processor.Process, log)
		submitter = pool
		log.WithField("workers", cfg.Dispatch.Workers).Info("dispatching through in-process worker pool")
	}

	var suggester service.RuleSuggester
	if cfg.NLRule.URL != "" {
		suggester = nlrule.NewClient(cfg.NLRule.URL, cfg.NLRule.Timeout)
	}

	// Services
	dispatcher := service.NewDispatcher(segmentRepo, customerRepo, deliveryRepo, evaluator, audienceCache, submitter, log)
	segmentSvc := service.NewSegmentService(segmentRepo, customerRepo, evaluator, audienceCache, suggester, log)
	campaignSvc := service.NewCampaignService(campaignRepo, segmentRepo, deliveryRepo, dispatcher, log)
	trackerSvc := service.NewTrackerService(campaignRepo, deliveryRepo, cfg.Dispatch.MaxAttempts, log)
	healthSvc := service.NewHealthService(db, service.PingFunc(audienceCache.Ping), queueURL, version)

	router := handler.NewRouter(handler.Handlers{
		Segments:   handler.NewSegmentHandler(segmentSvc, log),
		Campaigns:  handler.NewCampaignHandler(campaignSvc, trackerSvc, log),
		Deliveries: handler.NewDeliveryHandler(trackerSvc, log),
		Health:     handler.NewHealthHandler(healthSvc),
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port": cfg.Server.Port,
			"env":  cfg.Env,
			"mode": cfg.Dispatch.Mode,
		}).Info("API server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}

	// Background dispatches finish submitting before the pool drains
	campaignSvc.Wait()
	if pool != nil {
		if err := pool.Close(ctx); err != nil {
			log.WithError(err).Warn("worker pool did not drain before timeout")
		}
	}

	log.Info("shutdown complete")
}
