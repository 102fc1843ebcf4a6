package models_test

import (
	"testing"

	"campaignhub/internal/models"
	"campaignhub/internal/testutil"
)

func TestNextDeliveryStatus_Table(t *testing.T) {
	tests := []struct {
		name        string
		current     models.DeliveryStatus
		attempts    int
		outcome     models.Outcome
		maxAttempts int
		want        models.Transition
	}{
		{
			name:        "pending success is sent",
			current:     models.DeliveryStatusPending,
			outcome:     models.OutcomeSuccess,
			maxAttempts: 1,
			want:        models.Transition{Status: models.DeliveryStatusSent, Attempts: 1, Applied: true},
		},
		{
			name:        "pending failure with single attempt is failed",
			current:     models.DeliveryStatusPending,
			outcome:     models.OutcomeFailure,
			maxAttempts: 1,
			want:        models.Transition{Status: models.DeliveryStatusFailed, Attempts: 1, Applied: true},
		},
		{
			name:        "pending failure with attempts left is retrying",
			current:     models.DeliveryStatusPending,
			outcome:     models.OutcomeFailure,
			maxAttempts: 3,
			want:        models.Transition{Status: models.DeliveryStatusRetrying, Attempts: 1, Applied: true},
		},
		{
			name:        "retrying failure on last attempt is failed",
			current:     models.DeliveryStatusRetrying,
			attempts:    2,
			outcome:     models.OutcomeFailure,
			maxAttempts: 3,
			want:        models.Transition{Status: models.DeliveryStatusFailed, Attempts: 3, Applied: true},
		},
		{
			name:        "retrying success is sent",
			current:     models.DeliveryStatusRetrying,
			attempts:    1,
			outcome:     models.OutcomeSuccess,
			maxAttempts: 3,
			want:        models.Transition{Status: models.DeliveryStatusSent, Attempts: 2, Applied: true},
		},
		{
			name:        "sent is terminal",
			current:     models.DeliveryStatusSent,
			attempts:    1,
			outcome:     models.OutcomeSuccess,
			maxAttempts: 3,
			want:        models.Transition{Status: models.DeliveryStatusSent, Attempts: 1},
		},
		{
			name:        "failed is terminal even on success report",
			current:     models.DeliveryStatusFailed,
			attempts:    1,
			outcome:     models.OutcomeSuccess,
			maxAttempts: 1,
			want:        models.Transition{Status: models.DeliveryStatusFailed, Attempts: 1},
		},
		{
			name:        "zero max attempts behaves as one",
			current:     models.DeliveryStatusPending,
			outcome:     models.OutcomeFailure,
			maxAttempts: 0,
			want:        models.Transition{Status: models.DeliveryStatusFailed, Attempts: 1, Applied: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := models.NextDeliveryStatus(tt.current, tt.attempts, tt.outcome, tt.maxAttempts)
			testutil.AssertEqual(t, got, tt.want)
		})
	}
}

func TestNextDeliveryStatus_RepeatedReportIsNoOp(t *testing.T) {
	first := models.NextDeliveryStatus(models.DeliveryStatusPending, 0, models.OutcomeSuccess, 1)
	second := models.NextDeliveryStatus(first.Status, first.Attempts, models.OutcomeSuccess, 1)

	testutil.AssertEqual(t, second.Applied, false)
	testutil.AssertEqual(t, second.Status, models.DeliveryStatusSent)
	testutil.AssertEqual(t, second.Attempts, 1)
}

func TestOutcomeForStatus(t *testing.T) {
	outcome, ok := models.OutcomeForStatus(models.DeliveryStatusSent)
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, outcome, models.OutcomeSuccess)

	outcome, ok = models.OutcomeForStatus(models.DeliveryStatusFailed)
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, outcome, models.OutcomeFailure)

	_, ok = models.OutcomeForStatus(models.DeliveryStatusPending)
	testutil.AssertEqual(t, ok, false)
}
