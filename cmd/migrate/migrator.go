package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Migration is one numbered SQL file under the migrations directory
type Migration struct {
	Version   int
	Name      string
	FilePath  string
	Applied   bool
	AppliedAt *time.Time
}

var migrationPattern = regexp.MustCompile(`^(\d{3})_(.+)\.sql$`)

// rollbacks undo each schema version; dependants are dropped first
var rollbacks = map[int]string{
	1: "DROP TABLE IF EXISTS customers CASCADE;",
	2: "DROP TABLE IF EXISTS segments CASCADE;",
	3: "DROP TABLE IF EXISTS campaigns CASCADE;",
	4: "DROP TABLE IF EXISTS delivery_logs CASCADE;",
}

// Migrator applies and rolls back schema migrations, tracking them in
// schema_migrations
type Migrator struct {
	db     *sql.DB
	dir    string
	logger logrus.FieldLogger
}

// NewMigrator creates a migrator reading SQL files from dir
func NewMigrator(db *sql.DB, dir string, logger logrus.FieldLogger) *Migrator {
	return &Migrator{db: db, dir: dir, logger: logger}
}

// EnsureTable creates the schema_migrations tracking table
func (m *Migrator) EnsureTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]Migration, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version, name, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]Migration)
	for rows.Next() {
		var mig Migration
		if err := rows.Scan(&mig.Version, &mig.Name, &mig.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		mig.Applied = true
		applied[mig.Version] = mig
	}
	return applied, rows.Err()
}

// Files lists the migration files in version order
func (m *Migrator) Files() ([]Migration, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matches := migrationPattern.FindStringSubmatch(entry.Name())
		if len(matches) != 3 {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			FilePath: filepath.Join(m.dir, entry.Name()),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Up applies every pending migration in order and returns how many ran
func (m *Migrator) Up(ctx context.Context) (int, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}
	files, err := m.Files()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range files {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return count, fmt.Errorf("failed to apply migration %03d_%s: %w", mig.Version, mig.Name, err)
		}
		count++
	}
	return count, nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	content, err := os.ReadFile(mig.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", mig.Version, mig.Name); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	m.logger.WithFields(logrus.Fields{"version": mig.Version, "name": mig.Name}).Info("migration applied")
	return nil
}

// Down rolls back the most recent migration. It reports false when
// nothing was applied.
func (m *Migrator) Down(ctx context.Context) (bool, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return false, err
	}
	if len(applied) == 0 {
		return false, nil
	}

	last := 0
	for version := range applied {
		if version > last {
			last = version
		}
	}
	return true, m.rollback(ctx, last)
}

func (m *Migrator) rollback(ctx context.Context, version int) error {
	dropSQL, ok := rollbacks[version]
	if !ok {
		return fmt.Errorf("no rollback defined for migration version %d", version)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, dropSQL); err != nil {
		return fmt.Errorf("failed to execute rollback SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = $1", version); err != nil {
		return fmt.Errorf("failed to remove migration record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	m.logger.WithField("version", version).Info("migration rolled back")
	return nil
}

// Reset rolls back every applied migration in reverse order, then reapplies all
func (m *Migrator) Reset(ctx context.Context) (int, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	versions := make([]int, 0, len(applied))
	for version := range applied {
		versions = append(versions, version)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(versions)))

	for _, version := range versions {
		if err := m.rollback(ctx, version); err != nil {
			return 0, err
		}
	}
	return m.Up(ctx)
}

// Status returns every migration file with its applied state
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	files, err := m.Files()
	if err != nil {
		return nil, err
	}

	for i, mig := range files {
		if a, ok := applied[mig.Version]; ok {
			files[i].Applied = true
			files[i].AppliedAt = a.AppliedAt
		}
	}
	return files, nil
}
