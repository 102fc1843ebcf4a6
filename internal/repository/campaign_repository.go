package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"campaignhub/internal/models"
)

type campaignRepository struct {
	db DB
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db DB) CampaignRepository {
	return &campaignRepository{db: db}
}

// Create creates a new campaign
func (r *campaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	query := `
		INSERT INTO campaigns (name, segment_id, message, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		campaign.Name,
		campaign.SegmentID,
		campaign.Message,
		campaign.ImageURL,
	).Scan(&campaign.ID, &campaign.CreatedAt)

	if err != nil {
		if pqErrorCode(err) == pqForeignKeyViolation {
			return fmt.Errorf("segment %d: %w", campaign.SegmentID, ErrNotFound)
		}
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	return nil
}

// GetByID retrieves a campaign by ID
func (r *campaignRepository) GetByID(ctx context.Context, id int) (*models.Campaign, error) {
	query := `
		SELECT id, name, segment_id, message, image_url, created_at
		FROM campaigns
		WHERE id = $1
	`

	campaign := &models.Campaign{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&campaign.ID,
		&campaign.Name,
		&campaign.SegmentID,
		&campaign.Message,
		&campaign.ImageURL,
		&campaign.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("campaign %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return campaign, nil
}

// List retrieves campaigns with filters and pagination
func (r *campaignRepository) List(ctx context.Context, filters CampaignFilters) ([]*models.Campaign, int, error) {
	// Build query with filters
	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(`
		SELECT id, name, segment_id, message, image_url, created_at
		FROM campaigns
		WHERE 1=1
	`)

	args := []interface{}{}
	argPos := 1

	if filters.SegmentID != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND segment_id = $%d", argPos))
		args = append(args, *filters.SegmentID)
		argPos++
	}

	// Order by ID DESC for stable pagination
	queryBuilder.WriteString(" ORDER BY id DESC")

	limit := filters.PageSize
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	offset := (filters.Page - 1) * limit
	if offset < 0 {
		offset = 0
	}

	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1))
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*models.Campaign{}
	for rows.Next() {
		campaign := &models.Campaign{}
		err := rows.Scan(
			&campaign.ID,
			&campaign.Name,
			&campaign.SegmentID,
			&campaign.Message,
			&campaign.ImageURL,
			&campaign.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate campaigns: %w", err)
	}

	// Get total count
	countQuery := "SELECT COUNT(*) FROM campaigns WHERE 1=1"
	countArgs := []interface{}{}

	if filters.SegmentID != nil {
		countQuery += " AND segment_id = $1"
		countArgs = append(countArgs, *filters.SegmentID)
	}

	var totalCount int
	err = r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get total count: %w", err)
	}

	return campaigns, totalCount, nil
}
