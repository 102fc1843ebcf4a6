package models

import "time"

// Campaign is a message bound to one segment.
// Campaigns are created once and never mutated.
type Campaign struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	SegmentID int       `json:"segmentId" db:"segment_id"`
	Message   string    `json:"message" db:"message"`
	ImageURL  *string   `json:"imageUrl,omitempty" db:"image_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// CampaignStats represents campaign statistics derived from delivery logs
type CampaignStats struct {
	Total   int `json:"total"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

// CampaignWithStats represents a campaign with its statistics
type CampaignWithStats struct {
	Campaign
	Stats CampaignStats `json:"stats"`
}

