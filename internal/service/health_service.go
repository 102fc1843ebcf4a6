package service

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Health status constants
const (
	StatusHealthy      = "healthy"
	StatusDegraded     = "degraded"
	StatusUnhealthy    = "unhealthy"
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDisabled     = "disabled"
)

// HealthStatus represents the overall health status of the application
type HealthStatus struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
}

// Pinger is satisfied by *sql.DB and the audience caches
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthChecker handles health check operations
type HealthChecker struct {
	db       Pinger
	cache    Pinger
	queueURL string
	version  string
	dial     func(url string) error
}

// NewHealthService creates a new HealthChecker instance.
// An empty queueURL reports the queue as disabled (inline dispatch).
func NewHealthService(db Pinger, cache Pinger, queueURL, version string) *HealthChecker {
	return &HealthChecker{
		db:       db,
		cache:    cache,
		queueURL: queueURL,
		version:  version,
		dial:     dialAMQP,
	}
}

func dialAMQP(url string) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return err
	}
	return conn.Close()
}

func ping(ctx context.Context, p Pinger) string {
	if p == nil {
		return StatusDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := p.PingContext(ctx); err != nil {
		return StatusDisconnected
	}
	return StatusConnected
}

// checkQueue verifies RabbitMQ connectivity
func (h *HealthChecker) checkQueue() string {
	if h.queueURL == "" {
		return StatusDisabled
	}
	if err := h.dial(h.queueURL); err != nil {
		return StatusDisconnected
	}
	return StatusConnected
}

// determineOverallStatus: the database is required, everything else degrades
func (h *HealthChecker) determineOverallStatus(services map[string]string) string {
	if services["database"] == StatusDisconnected {
		return StatusUnhealthy
	}
	if services["queue"] == StatusDisconnected || services["cache"] == StatusDisconnected {
		return StatusDegraded
	}
	return StatusHealthy
}

// CheckHealth performs health checks on all dependencies and returns the overall status
func (h *HealthChecker) CheckHealth(ctx context.Context) *HealthStatus {
	services := map[string]string{
		"database": ping(ctx, h.db),
		"cache":    ping(ctx, h.cache),
		"queue":    h.checkQueue(),
	}

	return &HealthStatus{
		Status:    h.determineOverallStatus(services),
		Services:  services,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
}
