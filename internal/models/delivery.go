package models

import "time"

// DeliveryStatus represents the state of one recipient's delivery
type DeliveryStatus string

const (
	DeliveryStatusPending  DeliveryStatus = "PENDING"
	DeliveryStatusRetrying DeliveryStatus = "RETRYING"
	DeliveryStatusSent     DeliveryStatus = "SENT"
	DeliveryStatusFailed   DeliveryStatus = "FAILED"
)

// IsTerminal reports whether no further transitions are possible
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusSent || s == DeliveryStatusFailed
}

// DeliveryLog is the per-recipient record of a campaign send.
// At most one row exists per (CampaignID, CustomerID).
type DeliveryLog struct {
	ID         int            `json:"id" db:"id"`
	CampaignID int            `json:"campaignId" db:"campaign_id"`
	CustomerID int            `json:"customerId" db:"customer_id"`
	Message    string         `json:"message" db:"message"`
	Status     DeliveryStatus `json:"status" db:"status"`
	Attempts   int            `json:"attempts" db:"attempts"`
	LastError  *string        `json:"lastError,omitempty" db:"last_error"`
	CreatedAt  time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time      `json:"updatedAt" db:"updated_at"`
}

// DeliveryJob identifies one send attempt to perform
type DeliveryJob struct {
	CampaignID int `json:"campaign_id"`
	CustomerID int `json:"customer_id"`
}
