package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"campaignhub/internal/models"
)

const deliveryColumns = `id, campaign_id, customer_id, message, status, attempts, last_error, created_at, updated_at`

// upsertBatchSize bounds the array bound to a single INSERT
const upsertBatchSize = 1000

type deliveryRepository struct {
	db *sql.DB
}

// NewDeliveryRepository creates a new delivery log repository
func NewDeliveryRepository(db *sql.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

// UpsertPending creates PENDING rows for customers that have none for this
// campaign yet. Existing rows are left untouched.
func (r *deliveryRepository) UpsertPending(ctx context.Context, campaignID int, message string, customerIDs []int) ([]*models.DeliveryLog, error) {
	created := []*models.DeliveryLog{}
	if len(customerIDs) == 0 {
		return created, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO delivery_logs (campaign_id, customer_id, message, status, attempts)
		SELECT $1, customer_id, $3, 'PENDING', 0
		FROM unnest($2::int[]) AS customer_id
		ON CONFLICT (campaign_id, customer_id) DO NOTHING
		RETURNING ` + deliveryColumns

	for start := 0; start < len(customerIDs); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(customerIDs) {
			end = len(customerIDs)
		}

		rows, err := tx.QueryContext(ctx, query, campaignID, pq.Array(customerIDs[start:end]), message)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert delivery logs: %w", err)
		}

		for rows.Next() {
			log, err := scanDeliveryLog(rows)
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan delivery log: %w", err)
			}
			created = append(created, log)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to iterate delivery logs: %w", err)
		}
		rows.Close()
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return created, nil
}

// Get retrieves the delivery log for one recipient of a campaign
func (r *deliveryRepository) Get(ctx context.Context, campaignID, customerID int) (*models.DeliveryLog, error) {
	query := `SELECT ` + deliveryColumns + ` FROM delivery_logs WHERE campaign_id = $1 AND customer_id = $2`

	log, err := scanDeliveryLog(r.db.QueryRowContext(ctx, query, campaignID, customerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delivery log for campaign %d customer %d: %w", campaignID, customerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery log: %w", err)
	}

	return log, nil
}

// ApplyOutcome applies one reported outcome under a row lock.
// Rows already in a terminal state are returned unchanged.
func (r *deliveryRepository) ApplyOutcome(ctx context.Context, campaignID, customerID int, outcome models.Outcome, lastError *string, maxAttempts int) (*models.DeliveryLog, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	selectQuery := `SELECT ` + deliveryColumns + ` FROM delivery_logs WHERE campaign_id = $1 AND customer_id = $2 FOR UPDATE`

	log, err := scanDeliveryLog(tx.QueryRowContext(ctx, selectQuery, campaignID, customerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delivery log for campaign %d customer %d: %w", campaignID, customerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock delivery log: %w", err)
	}

	transition := models.NextDeliveryStatus(log.Status, log.Attempts, outcome, maxAttempts)
	if !transition.Applied {
		return log, nil
	}

	if outcome == models.OutcomeFailure {
		log.LastError = lastError
	}
	log.Status = transition.Status
	log.Attempts = transition.Attempts

	updateQuery := `
		UPDATE delivery_logs
		SET status = $1, attempts = $2, last_error = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
		RETURNING updated_at
	`

	err = tx.QueryRowContext(ctx, updateQuery, log.Status, log.Attempts, log.LastError, log.ID).Scan(&log.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update delivery log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return log, nil
}

// ListByCampaign retrieves all delivery logs of a campaign ordered by customer
func (r *deliveryRepository) ListByCampaign(ctx context.Context, campaignID int) ([]*models.DeliveryLog, error) {
	query := `SELECT ` + deliveryColumns + ` FROM delivery_logs WHERE campaign_id = $1 ORDER BY customer_id ASC`

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.DeliveryLog{}
	for rows.Next() {
		log, err := scanDeliveryLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate delivery logs: %w", err)
	}

	return logs, nil
}

// Stats counts delivery logs of a campaign by status
func (r *deliveryRepository) Stats(ctx context.Context, campaignID int) (models.CampaignStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'SENT') AS sent,
			COUNT(*) FILTER (WHERE status = 'FAILED') AS failed,
			COUNT(*) FILTER (WHERE status IN ('PENDING', 'RETRYING')) AS pending
		FROM delivery_logs
		WHERE campaign_id = $1
	`

	stats := models.CampaignStats{}
	err := r.db.QueryRowContext(ctx, query, campaignID).Scan(
		&stats.Total,
		&stats.Sent,
		&stats.Failed,
		&stats.Pending,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return stats, fmt.Errorf("failed to get campaign stats: %w", err)
	}

	return stats, nil
}

func scanDeliveryLog(row rowScanner) (*models.DeliveryLog, error) {
	log := &models.DeliveryLog{}
	err := row.Scan(
		&log.ID,
		&log.CampaignID,
		&log.CustomerID,
		&log.Message,
		&log.Status,
		&log.Attempts,
		&log.LastError,
		&log.CreatedAt,
		&log.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return log, nil
}
