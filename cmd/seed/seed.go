package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"campaignhub/internal/models"
	"campaignhub/internal/repository"
)

var (
	firstNames = []string{"Michael", "Sophia", "James", "Olivia", "Daniel", "Emma", "Benjamin", "Ava", "Lucas", "Mia", "Noah", "Isabella", "William", "Charlotte", "Alexander"}
	lastNames  = []string{"Kamau", "Wanjiku", "Ochieng", "Atieno", "Mwangi", "Akinyi", "Kipchoge", "Chebet", "Kiptoo", "Jepchirchir", "Mutua", "Mumbua", "Omondi", "Adhiambo", "Nzomo"}
)

// sampleSegments are created alongside the customers so the API has
// something to dispatch to right away
var sampleSegments = []models.Segment{
	{
		Name:  "High spenders",
		Rules: models.RuleSet{{Field: models.FieldSpend, Operator: models.OpGreaterThan, Value: "5000"}},
	},
	{
		Name: "Lapsed regulars",
		Rules: models.RuleSet{
			{Field: models.FieldVisits, Operator: models.OpGreaterThanWord, Value: "10"},
			{Field: models.FieldLastPurchaseDate, Operator: models.OpOlderThan, Value: "60"},
		},
	},
	{
		Name:  "Inactive",
		Rules: models.RuleSet{{Field: models.FieldInactiveDays, Operator: models.OpOlderThan, Value: "90"}},
	},
}

// buildCustomers generates count customers with varied attributes. Some
// attributes are left nil so segments exercise the missing-value path.
func buildCustomers(count int, now time.Time) []*models.Customer {
	customers := make([]*models.Customer, 0, count)
	for i := 1; i <= count; i++ {
		name := fmt.Sprintf("%s %s", firstNames[i%len(firstNames)], lastNames[(i*7)%len(lastNames)])
		email := fmt.Sprintf("customer%03d@example.com", i)
		c := &models.Customer{
			Name:  &name,
			Email: &email,
		}

		// 90% have a phone number
		if i%10 != 1 {
			phone := fmt.Sprintf("+254700010%03d", i)
			c.Phone = &phone
		}
		// 80% have spend figures
		if i%5 != 0 {
			spend := float64((i * 731) % 12000)
			total := spend * float64(1+i%4)
			c.Spend = &spend
			c.TotalSpent = &total
		}
		visits := (i * 13) % 40
		c.Visits = &visits

		inactive := (i * 17) % 200
		c.InactiveDays = &inactive
		// 75% have a last purchase date, consistent with inactiveDays
		if i%4 != 0 {
			last := now.AddDate(0, 0, -inactive)
			c.LastPurchaseDate = &last
		}

		customers = append(customers, c)
	}
	return customers
}

// Seeder inserts sample customers and segments through the repositories
type Seeder struct {
	customers repository.CustomerRepository
	segments  repository.SegmentRepository
	logger    logrus.FieldLogger
}

// SeedCustomers inserts customers, skipping those whose email already exists
func (s *Seeder) SeedCustomers(ctx context.Context, customers []*models.Customer) (int, error) {
	created := 0
	for _, c := range customers {
		if err := s.customers.Create(ctx, c); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return created, fmt.Errorf("failed to insert customer %s: %w", *c.Email, err)
		}
		created++
	}

	s.logger.WithFields(logrus.Fields{
		"created": created,
		"skipped": len(customers) - created,
	}).Info("customers seeded")
	return created, nil
}

// SeedSegments inserts the sample segments, skipping existing names
func (s *Seeder) SeedSegments(ctx context.Context) (int, error) {
	created := 0
	for i := range sampleSegments {
		segment := sampleSegments[i]
		if err := s.segments.Create(ctx, &segment); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue
			}
			return created, fmt.Errorf("failed to insert segment %q: %w", segment.Name, err)
		}
		created++
	}

	s.logger.WithField("created", created).Info("segments seeded")
	return created, nil
}
