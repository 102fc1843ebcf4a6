package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// SendRequest is one message addressed to one recipient
type SendRequest struct {
	RecipientID int
	Phone       string
	Message     string
	ImageURL    *string
}

// SendResult represents the result of a send attempt
type SendResult struct {
	Success bool
	Error   error
	Latency time.Duration
}

// Sender delivers a message over an external channel. Rejections and
// timeouts are both reported as an unsuccessful result.
type Sender interface {
	Send(ctx context.Context, req SendRequest) *SendResult
}

var simulatedFailures = []string{
	"network timeout",
	"invalid phone number",
	"rate limit exceeded",
	"service temporarily unavailable",
	"insufficient balance",
}

// SenderService is the simulated message channel
type SenderService struct {
	successRate float64 // 0.0 to 1.0 (e.g., 0.9 = 90% success)
	minLatency  time.Duration
	maxLatency  time.Duration

	mu   sync.Mutex
	rand *rand.Rand
}

// NewSenderService creates a new simulated sender.
// successRate is clamped to [0, 1].
func NewSenderService(successRate float64) *SenderService {
	return &SenderService{
		successRate: clampRate(successRate),
		minLatency:  50 * time.Millisecond,
		maxLatency:  200 * time.Millisecond,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithLatency overrides the simulated latency range
func (s *SenderService) WithLatency(min, max time.Duration) *SenderService {
	if max < min {
		max = min
	}
	s.minLatency = min
	s.maxLatency = max
	return s
}

// Send simulates delivering a message
func (s *SenderService) Send(ctx context.Context, req SendRequest) *SendResult {
	start := time.Now()

	s.mu.Lock()
	latency := s.minLatency
	if span := s.maxLatency - s.minLatency; span > 0 {
		latency += time.Duration(s.rand.Int63n(int64(span)))
	}
	success := s.rand.Float64() < s.successRate
	reason := simulatedFailures[s.rand.Intn(len(simulatedFailures))]
	s.mu.Unlock()

	if req.Phone == "" {
		return &SendResult{
			Error:   fmt.Errorf("customer %d has no phone number", req.RecipientID),
			Latency: time.Since(start),
		}
	}

	timer := time.NewTimer(latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return &SendResult{
			Error:   fmt.Errorf("send to %s aborted: %w", req.Phone, ctx.Err()),
			Latency: time.Since(start),
		}
	case <-timer.C:
	}

	result := &SendResult{
		Success: success,
		Latency: time.Since(start),
	}
	if !success {
		result.Error = fmt.Errorf("failed to send to %s: %s", req.Phone, reason)
	}

	return result
}

// GetSuccessRate returns the configured success rate
func (s *SenderService) GetSuccessRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.successRate
}

// SetSuccessRate updates the success rate (for testing)
func (s *SenderService) SetSuccessRate(rate float64) {
	s.mu.Lock()
	s.successRate = clampRate(rate)
	s.mu.Unlock()
}

func clampRate(rate float64) float64 {
	if rate < 0.0 {
		return 0.0
	}
	if rate > 1.0 {
		return 1.0
	}
	return rate
}
