package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"campaignhub/internal/models"
)

type segmentRepository struct {
	db DB
}

// NewSegmentRepository creates a new segment repository
func NewSegmentRepository(db DB) SegmentRepository {
	return &segmentRepository{db: db}
}

// Create persists a segment; names are unique
func (r *segmentRepository) Create(ctx context.Context, segment *models.Segment) error {
	query := `
		INSERT INTO segments (name, rules)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, segment.Name, segment.Rules).
		Scan(&segment.ID, &segment.CreatedAt)
	if err != nil {
		if pqErrorCode(err) == pqUniqueViolation {
			return fmt.Errorf("segment %q: %w", segment.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to create segment: %w", err)
	}

	return nil
}

// GetByID retrieves a segment by ID
func (r *segmentRepository) GetByID(ctx context.Context, id int) (*models.Segment, error) {
	query := `
		SELECT id, name, rules, created_at
		FROM segments
		WHERE id = $1
	`

	segment := &models.Segment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&segment.ID,
		&segment.Name,
		&segment.Rules,
		&segment.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("segment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get segment: %w", err)
	}

	return segment, nil
}

// List retrieves all segments ordered by ID
func (r *segmentRepository) List(ctx context.Context) ([]*models.Segment, error) {
	query := `
		SELECT id, name, rules, created_at
		FROM segments
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	defer rows.Close()

	segments := []*models.Segment{}
	for rows.Next() {
		segment := &models.Segment{}
		if err := rows.Scan(&segment.ID, &segment.Name, &segment.Rules, &segment.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, segment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate segments: %w", err)
	}

	return segments, nil
}
