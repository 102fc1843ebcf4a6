package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"campaignhub/internal/models"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("duplicate")
)

// Postgres error codes
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// CustomerRepository defines read access to the customer base
type CustomerRepository interface {
	Create(ctx context.Context, customer *models.Customer) error
	GetByID(ctx context.Context, id int) (*models.Customer, error)
	ListAll(ctx context.Context) ([]*models.Customer, error)
}

// SegmentRepository defines segment data access operations
type SegmentRepository interface {
	Create(ctx context.Context, segment *models.Segment) error
	GetByID(ctx context.Context, id int) (*models.Segment, error)
	List(ctx context.Context) ([]*models.Segment, error)
}

// CampaignRepository defines campaign data access operations
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id int) (*models.Campaign, error)
	List(ctx context.Context, filters CampaignFilters) ([]*models.Campaign, int, error)
}

// CampaignFilters defines filters for listing campaigns
type CampaignFilters struct {
	Page      int
	PageSize  int
	SegmentID *int
}

// DeliveryRepository defines delivery log data access operations
type DeliveryRepository interface {
	// UpsertPending inserts a PENDING row per customer and returns only the
	// rows that did not exist yet
	UpsertPending(ctx context.Context, campaignID int, message string, customerIDs []int) ([]*models.DeliveryLog, error)
	Get(ctx context.Context, campaignID, customerID int) (*models.DeliveryLog, error)
	// ApplyOutcome locks the row and applies the outcome through the delivery state machine
	ApplyOutcome(ctx context.Context, campaignID, customerID int, outcome models.Outcome, lastError *string, maxAttempts int) (*models.DeliveryLog, error)
	ListByCampaign(ctx context.Context, campaignID int) ([]*models.DeliveryLog, error)
	Stats(ctx context.Context, campaignID int) (models.CampaignStats, error)
}

// DB is a wrapper around *sql.DB to allow passing in transaction
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// pqErrorCode returns the postgres error code, if any
func pqErrorCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}
