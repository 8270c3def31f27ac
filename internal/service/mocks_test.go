package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/id-scanner/internal/lookup"
	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/payment"
)

var errStoreDown = errors.New("store down")

// memProfileStore keeps profiles in memory. failReads and failWrites
// simulate an unavailable store.
type memProfileStore struct {
	mu         sync.Mutex
	profiles   map[string]map[string]json.RawMessage
	failReads  bool
	failWrites bool
	writes     int
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{profiles: make(map[string]map[string]json.RawMessage)}
}

func (m *memProfileStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failReads {
		return nil, errStoreDown
	}
	meta, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	copied := make(map[string]json.RawMessage, len(meta))
	for k, v := range meta {
		copied[k] = v
	}
	return &models.UserProfile{ID: userID, Metadata: copied}, nil
}

func (m *memProfileStore) UpdateMetadata(ctx context.Context, userID string, patch map[string]json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errStoreDown
	}
	meta, ok := m.profiles[userID]
	if !ok {
		meta = make(map[string]json.RawMessage)
		m.profiles[userID] = meta
	}
	for k, v := range patch {
		meta[k] = v
	}
	m.writes++
	return nil
}

func (m *memProfileStore) put(userID string, state models.SubscriptionState) {
	raw, err := json.Marshal(state)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[userID] = map[string]json.RawMessage{models.SubscriptionMetadataKey: raw}
}

func (m *memProfileStore) state(userID string) *models.SubscriptionState {
	m.mu.Lock()
	raw, ok := m.profiles[userID][models.SubscriptionMetadataKey]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	var s models.SubscriptionState
	if err := json.Unmarshal(raw, &s); err != nil {
		panic(err)
	}
	return &s
}

// mockFinder serves a fixed set of records keyed by ID number
type mockFinder struct {
	records map[string]*models.ScanRecord
	err     error
	calls   int
}

func (m *mockFinder) FindByExactField(ctx context.Context, field, value string, opts lookup.FindOptions) (*models.ScanRecord, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.records[value], nil
}

type mockEvents struct {
	events []*models.ScanEvent
	err    error
}

func (m *mockEvents) Record(ctx context.Context, event *models.ScanEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

type mockSigner struct {
	err error
}

func (m *mockSigner) PhotoURL(ctx context.Context, photoID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "https://photos.test/" + photoID + "?sig=1", nil
}

// mockGateway returns canned charge results and statuses
type mockGateway struct {
	charge    *payment.ChargeResult
	chargeErr error
	status    payment.Status
	statusErr error

	requests []payment.ChargeRequest
	lookups  []string
}

func (m *mockGateway) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	m.requests = append(m.requests, req)
	if m.chargeErr != nil {
		return nil, m.chargeErr
	}
	return m.charge, nil
}

func (m *mockGateway) Status(ctx context.Context, reference string) (payment.Status, error) {
	m.lookups = append(m.lookups, reference)
	if m.statusErr != nil {
		return "", m.statusErr
	}
	return m.status, nil
}

type memPaymentStore struct {
	payments  []*models.Payment
	failWrite bool
	seq       int
	now       time.Time
}

func (m *memPaymentStore) Create(ctx context.Context, p *models.Payment) error {
	if m.failWrite {
		return errStoreDown
	}
	m.seq++
	p.ID = fmt.Sprintf("pay-%d", m.seq)
	p.CreatedAt = m.now
	stored := *p
	m.payments = append(m.payments, &stored)
	return nil
}

func (m *memPaymentStore) UpdateStatus(ctx context.Context, id, status string) error {
	for _, p := range m.payments {
		if p.ID == id {
			p.Status = status
			return nil
		}
	}
	return fmt.Errorf("payment %s not found", id)
}

func (m *memPaymentStore) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	for _, p := range m.payments {
		if p.ID == id {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memPaymentStore) ListByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	var out []*models.Payment
	for i := len(m.payments) - 1; i >= 0; i-- {
		if m.payments[i].UserID == userID {
			out = append(out, m.payments[i])
		}
	}
	return out, nil
}

// mockRecords is an in-memory RecordStore
type mockRecords struct {
	records    []*models.ScanRecord
	err        error
	statsCalls int
	lastLimit  int
}

func (m *mockRecords) ListRecent(ctx context.Context, limit int) ([]*models.ScanRecord, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	if limit <= 0 || limit > len(m.records) {
		return m.records, nil
	}
	return m.records[:limit], nil
}

func (m *mockRecords) Search(ctx context.Context, term string, limit int) ([]*models.ScanRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.ScanRecord
	for _, r := range m.records {
		if r.IDNumber == term || (r.LastName != nil && *r.LastName == term) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRecords) AllForIDNumber(ctx context.Context, idNumber string) ([]*models.ScanRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.ScanRecord
	for _, r := range m.records {
		if r.IDNumber == idNumber {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRecords) Statistics(ctx context.Context, recent int) (*models.ScanStatistics, error) {
	m.statsCalls++
	if m.err != nil {
		return nil, m.err
	}
	recent = min(recent, len(m.records))
	return &models.ScanStatistics{TotalScans: int64(len(m.records)), RecentScans: m.records[:recent]}, nil
}

// mockCache stores JSON in memory
type mockCache struct {
	data map[string][]byte
	err  error
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}) error {
	if m.err != nil {
		return m.err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = raw
	return nil
}

type mockAnalytics struct {
	since  time.Time
	counts []models.DailyScanCount
}

func (m *mockAnalytics) DailyCounts(ctx context.Context, since time.Time) ([]models.DailyScanCount, error) {
	m.since = since
	return m.counts, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func strPtr(s string) *string { return &s }
