package cache

import (
	"context"
	"errors"
	"fmt"
)

// ErrMiss is returned when no audience size is cached for a segment
var ErrMiss = errors.New("cache miss")

// AudienceCache stores the last computed audience size per segment.
// Values are derived data and may be dropped at any time.
type AudienceCache interface {
	GetAudienceSize(ctx context.Context, segmentID int) (int, error)
	SetAudienceSize(ctx context.Context, segmentID int, size int) error
	Invalidate(ctx context.Context, segmentID int) error
	Ping(ctx context.Context) error
	Close() error
}

func audienceKey(segmentID int) string {
	return fmt.Sprintf("segment:%d:audience_size", segmentID)
}
