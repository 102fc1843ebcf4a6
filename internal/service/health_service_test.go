package service

import (
	"context"
	"errors"
	"testing"

	"campaignhub/internal/testutil"
)

var (
	up   = PingFunc(func(context.Context) error { return nil })
	down = PingFunc(func(context.Context) error { return errors.New("connection refused") })
)

func TestHealthChecker_Statuses(t *testing.T) {
	tests := []struct {
		name     string
		db       Pinger
		cache    Pinger
		queueURL string
		dialErr  error
		want     string
	}{
		{name: "all up inline", db: up, cache: up, want: StatusHealthy},
		{name: "all up with queue", db: up, cache: up, queueURL: "amqp://x", want: StatusHealthy},
		{name: "database down", db: down, cache: up, want: StatusUnhealthy},
		{name: "cache down", db: up, cache: down, want: StatusDegraded},
		{name: "queue down", db: up, cache: up, queueURL: "amqp://x", dialErr: errors.New("refused"), want: StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthService(tt.db, tt.cache, tt.queueURL, "test")
			h.dial = func(string) error { return tt.dialErr }

			status := h.CheckHealth(context.Background())
			testutil.AssertEqual(t, status.Status, tt.want)
		})
	}
}

func TestHealthChecker_QueueDisabledInline(t *testing.T) {
	h := NewHealthService(up, up, "", "test")

	status := h.CheckHealth(context.Background())
	testutil.AssertEqual(t, status.Services["queue"], StatusDisabled)
	testutil.AssertEqual(t, status.Version, "test")
}
