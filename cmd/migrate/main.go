package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/config"
	"campaignhub/internal/logger"
)

func printUsage() {
	fmt.Println("Usage: migrate <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up      apply all pending migrations")
	fmt.Println("  down    roll back the last migration")
	fmt.Println("  status  show applied and pending migrations")
	fmt.Println("  reset   roll back everything and reapply")
}

func main() {
	// Load .env file (ignore error if not present)
	_ = godotenv.Load()

	command := "help"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	switch command {
	case "up", "down", "status", "reset":
	default:
		printUsage()
		if command != "help" {
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	log := logger.New(cfg.LogLevel, cfg.Env).WithField("command", command)

	db, err := sql.Open("postgres", cfg.GetDatabaseDSN())
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		log.WithError(err).Fatal("failed to ping database")
	}

	migrator := NewMigrator(db, getMigrationsDir(), log)
	if err := migrator.EnsureTable(ctx); err != nil {
		log.WithError(err).Fatal("failed to prepare migration table")
	}

	switch command {
	case "up":
		n, err := migrator.Up(ctx)
		if err != nil {
			log.WithError(err).Fatal("migration failed")
		}
		log.WithField("applied", n).Info("migrations up to date")
	case "down":
		rolledBack, err := migrator.Down(ctx)
		if err != nil {
			log.WithError(err).Fatal("rollback failed")
		}
		if !rolledBack {
			log.Warn("no migrations to roll back")
		}
	case "reset":
		n, err := migrator.Reset(ctx)
		if err != nil {
			log.WithError(err).Fatal("reset failed")
		}
		log.WithField("applied", n).Info("database reset")
	case "status":
		migrations, err := migrator.Status(ctx)
		if err != nil {
			log.WithError(err).Fatal("failed to read status")
		}
		printStatus(migrations)
	}
}

func getMigrationsDir() string {
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		return dir
	}
	return "migrations"
}

func printStatus(migrations []Migration) {
	fmt.Printf("%-10s %-40s %-12s %-20s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Println(strings.Repeat("-", 85))

	applied := 0
	for _, mig := range migrations {
		status, appliedAt := "pending", "-"
		if mig.Applied {
			applied++
			status = "applied"
			if mig.AppliedAt != nil {
				appliedAt = mig.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Printf("%03d        %-40s %-12s %-20s\n", mig.Version, mig.Name, status, appliedAt)
	}

	fmt.Println(strings.Repeat("-", 85))
	fmt.Printf("%d/%d migrations applied\n", applied, len(migrations))
}
