package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"

	"campaignhub/internal/testutil"
)

func writeMigrations(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func newTestMigrator(t *testing.T, dir string) (*Migrator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := testutil.NewMockDB(t)
	t.Cleanup(func() { db.Close() })
	logger, _ := test.NewNullLogger()
	return NewMigrator(db, dir, logger), mock
}

func TestMigrator_Files_SortedAndFiltered(t *testing.T) {
	dir := writeMigrations(t, "002_create_segments.sql", "001_create_customers.sql", "README.md", "1_bad.sql")
	m, _ := newTestMigrator(t, dir)

	files, err := m.Files()

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(files), 2)
	testutil.AssertEqual(t, files[0].Version, 1)
	testutil.AssertEqual(t, files[0].Name, "create_customers")
	testutil.AssertEqual(t, files[1].Version, 2)
}

func TestMigrator_Files_MissingDir(t *testing.T) {
	m, _ := newTestMigrator(t, filepath.Join(t.TempDir(), "nope"))

	files, err := m.Files()

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(files), 0)
}

func TestMigrator_Up_AppliesOnlyPending(t *testing.T) {
	dir := writeMigrations(t, "001_create_customers.sql", "002_create_segments.sql")
	m, mock := newTestMigrator(t, dir)

	mock.ExpectQuery("SELECT version, name, applied_at FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "applied_at"}).AddRow(1, "create_customers", time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec("SELECT 1;").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(2, "create_segments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := m.Up(context.Background())

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, n, 1)
	testutil.AssertNoError(t, mock.ExpectationsWereMet())
}

func TestMigrator_Down_RollsBackLatest(t *testing.T) {
	m, mock := newTestMigrator(t, t.TempDir())

	mock.ExpectQuery("SELECT version, name, applied_at FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "applied_at"}).
			AddRow(1, "create_customers", time.Now()).
			AddRow(4, "create_delivery_logs", time.Now()))
	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE IF EXISTS delivery_logs CASCADE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM schema_migrations WHERE version = \\$1").WithArgs(4).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rolledBack, err := m.Down(context.Background())

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, rolledBack, true)
	testutil.AssertNoError(t, mock.ExpectationsWereMet())
}

func TestMigrator_Down_NothingApplied(t *testing.T) {
	m, mock := newTestMigrator(t, t.TempDir())
	mock.ExpectQuery("SELECT version, name, applied_at FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "applied_at"}))

	rolledBack, err := m.Down(context.Background())

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, rolledBack, false)
}

func TestMigrator_Status(t *testing.T) {
	dir := writeMigrations(t, "001_create_customers.sql", "002_create_segments.sql")
	m, mock := newTestMigrator(t, dir)
	appliedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT version, name, applied_at FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "applied_at"}).AddRow(1, "create_customers", appliedAt))

	status, err := m.Status(context.Background())

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, status[0].Applied, true)
	testutil.AssertEqual(t, *status[0].AppliedAt, appliedAt)
	testutil.AssertEqual(t, status[1].Applied, false)
}
