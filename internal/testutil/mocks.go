package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"campaignhub/internal/models"
	"campaignhub/internal/repository"
)

// callCounter tracks method calls; safe for use from dispatch goroutines
type callCounter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *callCounter) record(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[name]++
}

// CallCount returns how many times the named method was called
func (c *callCounter) CallCount(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

// MockCustomerRepository mocks CustomerRepository
type MockCustomerRepository struct {
	callCounter

	CreateFunc  func(ctx context.Context, customer *models.Customer) error
	GetByIDFunc func(ctx context.Context, id int) (*models.Customer, error)
	ListAllFunc func(ctx context.Context) ([]*models.Customer, error)

	// Customers backs the default behaviour when no Func is set
	Customers []*models.Customer
}

// NewMockCustomerRepository creates a mock serving the given customers
func NewMockCustomerRepository(customers ...*models.Customer) *MockCustomerRepository {
	return &MockCustomerRepository{Customers: customers}
}

func (m *MockCustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	m.record("Create")
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, customer)
	}
	customer.ID = len(m.Customers) + 1
	customer.CreatedAt = time.Now()
	m.Customers = append(m.Customers, customer)
	return nil
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id int) (*models.Customer, error) {
	m.record("GetByID")
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	for _, c := range m.Customers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("customer %d: %w", id, repository.ErrNotFound)
}

func (m *MockCustomerRepository) ListAll(ctx context.Context) ([]*models.Customer, error) {
	m.record("ListAll")
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return m.Customers, nil
}

// MockSegmentRepository mocks SegmentRepository with an in-memory store
type MockSegmentRepository struct {
	callCounter

	CreateFunc  func(ctx context.Context, segment *models.Segment) error
	GetByIDFunc func(ctx context.Context, id int) (*models.Segment, error)
	ListFunc    func(ctx context.Context) ([]*models.Segment, error)

	mu       sync.Mutex
	segments []*models.Segment
}

// NewMockSegmentRepository creates a mock seeded with segments
func NewMockSegmentRepository(segments ...*models.Segment) *MockSegmentRepository {
	return &MockSegmentRepository{segments: segments}
}

func (m *MockSegmentRepository) Create(ctx context.Context, segment *models.Segment) error {
	m.record("Create")
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, segment)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.segments {
		if s.Name == segment.Name {
			return fmt.Errorf("segment %q: %w", segment.Name, repository.ErrDuplicate)
		}
	}
	segment.ID = len(m.segments) + 1
	segment.CreatedAt = time.Now()
	m.segments = append(m.segments, segment)
	return nil
}

func (m *MockSegmentRepository) GetByID(ctx context.Context, id int) (*models.Segment, error) {
	m.record("GetByID")
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.segments {
		if s.ID == id {
			copied := *s
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("segment %d: %w", id, repository.ErrNotFound)
}

func (m *MockSegmentRepository) List(ctx context.Context) ([]*models.Segment, error) {
	m.record("List")
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Segment, 0, len(m.segments))
	for _, s := range m.segments {
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

// MockCampaignRepository mocks CampaignRepository with an in-memory store
type MockCampaignRepository struct {
	callCounter

	CreateFunc  func(ctx context.Context, campaign *models.Campaign) error
	GetByIDFunc func(ctx context.Context, id int) (*models.Campaign, error)
	ListFunc    func(ctx context.Context, filters repository.CampaignFilters) ([]*models.Campaign, int, error)

	mu        sync.Mutex
	campaigns []*models.Campaign
}

// NewMockCampaignRepository creates a mock seeded with campaigns
func NewMockCampaignRepository(campaigns ...*models.Campaign) *MockCampaignRepository {
	return &MockCampaignRepository{campaigns: campaigns}
}

func (m *MockCampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	m.record("Create")
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, campaign)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	campaign.ID = len(m.campaigns) + 1
	campaign.CreatedAt = time.Now()
	m.campaigns = append(m.campaigns, campaign)
	return nil
}

func (m *MockCampaignRepository) GetByID(ctx context.Context, id int) (*models.Campaign, error) {
	m.record("GetByID")
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.campaigns {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("campaign %d: %w", id, repository.ErrNotFound)
}

func (m *MockCampaignRepository) List(ctx context.Context, filters repository.CampaignFilters) ([]*models.Campaign, int, error) {
	m.record("List")
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filters)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Campaign{}
	for _, c := range m.campaigns {
		if filters.SegmentID != nil && c.SegmentID != *filters.SegmentID {
			continue
		}
		out = append(out, c)
	}

	total := len(out)
	if filters.PageSize > 0 && filters.Page > 0 {
		start := (filters.Page - 1) * filters.PageSize
		if start > total {
			start = total
		}
		end := start + filters.PageSize
		if end > total {
			end = total
		}
		out = out[start:end]
	}
	return out, total, nil
}

// MemoryDeliveryRepository is a map-backed DeliveryRepository that applies
// the same state machine and uniqueness rules as the SQL implementation
type MemoryDeliveryRepository struct {
	callCounter

	// UpsertPendingFunc overrides UpsertPending when set
	UpsertPendingFunc func(ctx context.Context, campaignID int, message string, customerIDs []int) ([]*models.DeliveryLog, error)

	mu     sync.Mutex
	nextID int
	rows   map[[2]int]*models.DeliveryLog
}

// NewMemoryDeliveryRepository creates an empty delivery store
func NewMemoryDeliveryRepository() *MemoryDeliveryRepository {
	return &MemoryDeliveryRepository{rows: make(map[[2]int]*models.DeliveryLog)}
}

func (m *MemoryDeliveryRepository) UpsertPending(ctx context.Context, campaignID int, message string, customerIDs []int) ([]*models.DeliveryLog, error) {
	m.record("UpsertPending")
	if m.UpsertPendingFunc != nil {
		return m.UpsertPendingFunc(ctx, campaignID, message, customerIDs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	created := []*models.DeliveryLog{}
	for _, customerID := range customerIDs {
		key := [2]int{campaignID, customerID}
		if _, exists := m.rows[key]; exists {
			continue
		}
		m.nextID++
		now := time.Now()
		row := &models.DeliveryLog{
			ID:         m.nextID,
			CampaignID: campaignID,
			CustomerID: customerID,
			Message:    message,
			Status:     models.DeliveryStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		m.rows[key] = row
		copied := *row
		created = append(created, &copied)
	}
	return created, nil
}

func (m *MemoryDeliveryRepository) Get(ctx context.Context, campaignID, customerID int) (*models.DeliveryLog, error) {
	m.record("Get")

	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[[2]int{campaignID, customerID}]
	if !ok {
		return nil, fmt.Errorf("delivery log for campaign %d customer %d: %w", campaignID, customerID, repository.ErrNotFound)
	}
	copied := *row
	return &copied, nil
}

func (m *MemoryDeliveryRepository) ApplyOutcome(ctx context.Context, campaignID, customerID int, outcome models.Outcome, lastError *string, maxAttempts int) (*models.DeliveryLog, error) {
	m.record("ApplyOutcome")

	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[[2]int{campaignID, customerID}]
	if !ok {
		return nil, fmt.Errorf("delivery log for campaign %d customer %d: %w", campaignID, customerID, repository.ErrNotFound)
	}

	transition := models.NextDeliveryStatus(row.Status, row.Attempts, outcome, maxAttempts)
	if transition.Applied {
		row.Status = transition.Status
		row.Attempts = transition.Attempts
		if outcome == models.OutcomeFailure {
			row.LastError = lastError
		}
		row.UpdatedAt = time.Now()
	}
	copied := *row
	return &copied, nil
}

func (m *MemoryDeliveryRepository) ListByCampaign(ctx context.Context, campaignID int) ([]*models.DeliveryLog, error) {
	m.record("ListByCampaign")

	m.mu.Lock()
	defer m.mu.Unlock()
	logs := []*models.DeliveryLog{}
	for key, row := range m.rows {
		if key[0] == campaignID {
			copied := *row
			logs = append(logs, &copied)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].CustomerID < logs[j].CustomerID })
	return logs, nil
}

func (m *MemoryDeliveryRepository) Stats(ctx context.Context, campaignID int) (models.CampaignStats, error) {
	m.record("Stats")

	m.mu.Lock()
	defer m.mu.Unlock()
	stats := models.CampaignStats{}
	for key, row := range m.rows {
		if key[0] != campaignID {
			continue
		}
		stats.Total++
		switch row.Status {
		case models.DeliveryStatusSent:
			stats.Sent++
		case models.DeliveryStatusFailed:
			stats.Failed++
		default:
			stats.Pending++
		}
	}
	return stats, nil
}

// Seed inserts a row in the given state, bypassing the state machine
func (m *MemoryDeliveryRepository) Seed(campaignID, customerID int, status models.DeliveryStatus, attempts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.rows[[2]int{campaignID, customerID}] = &models.DeliveryLog{
		ID:         m.nextID,
		CampaignID: campaignID,
		CustomerID: customerID,
		Status:     status,
		Attempts:   attempts,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

// Len returns the number of stored rows
func (m *MemoryDeliveryRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
