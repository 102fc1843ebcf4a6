package models

import "time"

// Customer represents a customer in the system
// Attribute columns are nullable; a nil value means the attribute is unknown
type Customer struct {
	ID               int        `json:"id" db:"id"`
	Name             *string    `json:"name,omitempty" db:"name"`
	Email            *string    `json:"email,omitempty" db:"email"`
	Phone            *string    `json:"phone,omitempty" db:"phone"`
	Spend            *float64   `json:"spend,omitempty" db:"spend"`
	Visits           *int       `json:"visits,omitempty" db:"visits"`
	InactiveDays     *int       `json:"inactiveDays,omitempty" db:"inactive_days"`
	TotalSpent       *float64   `json:"totalSpent,omitempty" db:"total_spent"`
	LastPurchaseDate *time.Time `json:"lastPurchaseDate,omitempty" db:"last_purchase_date"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
}

// Attribute returns the raw value of a recognized attribute.
// The second return value is false when the field is unknown or the value is missing.
func (c *Customer) Attribute(field Field) (interface{}, bool) {
	switch field {
	case FieldSpend:
		if c.Spend != nil {
			return *c.Spend, true
		}
	case FieldVisits:
		if c.Visits != nil {
			return *c.Visits, true
		}
	case FieldInactiveDays:
		if c.InactiveDays != nil {
			return *c.InactiveDays, true
		}
	case FieldTotalSpent:
		if c.TotalSpent != nil {
			return *c.TotalSpent, true
		}
	case FieldLastPurchaseDate:
		if c.LastPurchaseDate != nil {
			return *c.LastPurchaseDate, true
		}
	}
	return nil, false
}

// DisplayName returns the customer's name or a fallback
func (c *Customer) DisplayName() string {
	if c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return "Customer"
}
