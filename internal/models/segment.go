package models

import "time"

// Segment is a named, persisted rule set defining an audience
type Segment struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Rules     RuleSet   `json:"rules" db:"rules"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// AudienceSize is the last computed audience, nil if never computed.
	// It is derived from the cache and never authoritative.
	AudienceSize *int `json:"audienceSize"`
}
