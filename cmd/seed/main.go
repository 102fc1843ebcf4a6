package main

import (
	"context"
	"database/sql"
	"flag"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/config"
	"campaignhub/internal/logger"
	"campaignhub/internal/repository"
)

var (
	customersCount = flag.Int("customers", 200, "Number of customers to create")
	withSegments   = flag.Bool("segments", true, "Also create sample segments")
)

func main() {
	flag.Parse()

	// Load .env file (ignore error if not present)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	log := logger.New(cfg.LogLevel, cfg.Env).WithField("component", "seed")

	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.WithError(err).Fatal("failed to ping database")
	}

	seeder := &Seeder{
		customers: repository.NewCustomerRepository(db),
		segments:  repository.NewSegmentRepository(db),
		logger:    log,
	}

	if _, err := seeder.SeedCustomers(ctx, buildCustomers(*customersCount, time.Now().UTC())); err != nil {
		log.WithError(err).Fatal("failed to seed customers")
	}

	if *withSegments {
		if _, err := seeder.SeedSegments(ctx); err != nil {
			log.WithError(err).Fatal("failed to seed segments")
		}
	}

	log.Info("seeding completed")
}
