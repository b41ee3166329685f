//go:build !integration

// File: internal/usecase/mocks_test.go
package usecase_test

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"marketplace-spotlight/internal/domain"
	"marketplace-spotlight/internal/domain/model"
	"marketplace-spotlight/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

// noTx is the opaque transaction handle the mock tx manager hands out.
type noTx struct{}

// mockTxManager serializes callbacks with a mutex, standing in for the
// advisory lock the real transaction manager provides.
type mockTxManager struct {
	mu sync.Mutex
	// BeginErr simulates a failure to open a transaction.
	BeginErr error
}

func (m *mockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.BeginErr != nil {
		return m.BeginErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, noTx{})
}

// memRequestRepo is an in-memory RequestRepository with the same conditional
// update semantics as the SQL implementation.
type memRequestRepo struct {
	mu    sync.RWMutex
	store map[string]*model.SpotlightRequest

	saveErr error
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{store: make(map[string]*model.SpotlightRequest)}
}

func (m *memRequestRepo) Save(ctx context.Context, tx repository.Tx, r *model.SpotlightRequest) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *memRequestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SpotlightRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRequestRepo) list(filter func(*model.SpotlightRequest) bool) []*model.SpotlightRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.SpotlightRequest
	for _, r := range m.store {
		if filter(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *memRequestRepo) ListByProject(ctx context.Context, tx repository.Tx, projectID string) ([]*model.SpotlightRequest, error) {
	return m.list(func(r *model.SpotlightRequest) bool { return r.ProjectID == projectID }), nil
}

func (m *memRequestRepo) ListByStatus(ctx context.Context, tx repository.Tx, statuses ...model.RequestStatus) ([]*model.SpotlightRequest, error) {
	want := map[model.RequestStatus]bool{}
	for _, s := range statuses {
		want[s] = true
	}
	return m.list(func(r *model.SpotlightRequest) bool { return want[r.Status] }), nil
}

func (m *memRequestRepo) ListNonTerminal(ctx context.Context, tx repository.Tx) ([]*model.SpotlightRequest, error) {
	return m.list(func(r *model.SpotlightRequest) bool { return !r.Status.IsTerminal() }), nil
}

func (m *memRequestRepo) CountActive(ctx context.Context, tx repository.Tx) (int, error) {
	return len(m.list(func(r *model.SpotlightRequest) bool { return r.Status == model.RequestStatusActive })), nil
}

func (m *memRequestRepo) CountOverlappingHolds(ctx context.Context, tx repository.Tx, start, end time.Time, excludeID string) (int, error) {
	matches := m.list(func(r *model.SpotlightRequest) bool {
		switch r.Status {
		case model.RequestStatusApproved, model.RequestStatusPaid, model.RequestStatusActive:
		default:
			return false
		}
		return r.ID != excludeID && r.Overlaps(start, end)
	})
	return len(matches), nil
}

func (m *memRequestRepo) HasNonTerminalForProject(ctx context.Context, tx repository.Tx, projectID, excludeID string) (bool, error) {
	matches := m.list(func(r *model.SpotlightRequest) bool {
		return r.ProjectID == projectID && r.ID != excludeID && !r.Status.IsTerminal()
	})
	return len(matches) > 0, nil
}

// cas applies mutate and reports true only when the stored row is still in
// the expected source status.
func (m *memRequestRepo) cas(id string, from model.RequestStatus, mutate func(*model.SpotlightRequest)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok || r.Status != from {
		return false, nil
	}
	mutate(r)
	r.UpdatedAt = time.Now()
	return true, nil
}

func (m *memRequestRepo) MarkApproved(ctx context.Context, tx repository.Tx, id string, terms model.PaymentTerms, approvedAt time.Time) (bool, error) {
	return m.cas(id, model.RequestStatusPending, func(r *model.SpotlightRequest) {
		r.Status = model.RequestStatusApproved
		r.Terms = terms
		at := approvedAt
		r.ApprovedAt = &at
	})
}

func (m *memRequestRepo) MarkRejected(ctx context.Context, tx repository.Tx, id, notes string) (bool, error) {
	return m.cas(id, model.RequestStatusPending, func(r *model.SpotlightRequest) {
		r.Status = model.RequestStatusRejected
		r.AdminNotes = notes
	})
}

func (m *memRequestRepo) MarkPaid(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	return m.cas(id, model.RequestStatusApproved, func(r *model.SpotlightRequest) {
		r.Status = model.RequestStatusPaid
	})
}

func (m *memRequestRepo) MarkActive(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	return m.cas(id, model.RequestStatusPaid, func(r *model.SpotlightRequest) {
		r.Status = model.RequestStatusActive
	})
}

func (m *memRequestRepo) MarkCompleted(ctx context.Context, tx repository.Tx, id string, endDate *time.Time) (bool, error) {
	return m.cas(id, model.RequestStatusActive, func(r *model.SpotlightRequest) {
		r.Status = model.RequestStatusCompleted
		if endDate != nil {
			r.EndDate = *endDate
		}
	})
}

func (m *memRequestRepo) MarkCancelled(ctx context.Context, tx repository.Tx, id, notes string) (bool, error) {
	return m.cas(id, model.RequestStatusPaid, func(r *model.SpotlightRequest) {
		r.Status = model.RequestStatusCancelled
		r.AdminNotes = notes
	})
}

func (m *memRequestRepo) MarkExpired(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.store[id]
	if !ok || r.Status != model.RequestStatusApproved || r.Terms.Free() {
		return false, nil
	}
	r.Status = model.RequestStatusExpired
	r.UpdatedAt = time.Now()
	return true, nil
}

func (m *memRequestRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.RequestStatus]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[model.RequestStatus]int{}
	for _, r := range m.store {
		out[r.Status]++
	}
	return out, nil
}

// memSessionRepo is an in-memory PaymentSessionRepository.
type memSessionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.PaymentSession
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{store: make(map[string]*model.PaymentSession)}
}

func (m *memSessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.PaymentSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *memSessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionRepo) FindCurrentByRequest(ctx context.Context, tx repository.Tx, requestID string) (*model.PaymentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.RequestID == requestID && s.Status != model.SessionStatusExpired {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memSessionRepo) FindLatestByRequest(ctx context.Context, tx repository.Tx, requestID string) (*model.PaymentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *model.PaymentSession
	for _, s := range m.store {
		if s.RequestID != requestID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memSessionRepo) MarkConfirmed(ctx context.Context, tx repository.Tx, id, txHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok || s.Status == model.SessionStatusConfirmed {
		return false, nil
	}
	s.Status = model.SessionStatusConfirmed
	h := txHash
	s.TxHash = &h
	s.UpdatedAt = time.Now()
	return true, nil
}

func (m *memSessionRepo) MarkExpiredByRequest(ctx context.Context, tx repository.Tx, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if s.RequestID == requestID && s.Status == model.SessionStatusAwaiting {
			s.Status = model.SessionStatusExpired
			s.UpdatedAt = time.Now()
		}
	}
	return nil
}

func (m *memSessionRepo) ListAwaitingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.PaymentSession
	for _, s := range m.store {
		if s.Status == model.SessionStatusAwaiting && s.CreatedAt.Before(olderThan) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// mockChainLookup simulates the chain indexer. Transactions are keyed by
// address and exact amount, matching the adapter contract.
type mockChainLookup struct {
	mu  sync.Mutex
	txs map[string]string // address:amount -> txHash

	// Err forces every lookup to fail with the given error.
	Err error
	// Calls counts lookups for assertion on retry behavior.
	Calls int
}

func newMockChainLookup() *mockChainLookup {
	return &mockChainLookup{txs: make(map[string]string)}
}

func chainKey(address string, amount int64) string {
	return address + ":" + strconv.FormatInt(amount, 10)
}

func (m *mockChainLookup) AddTransaction(address string, amount int64, txHash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[chainKey(address, amount)] = txHash
}

func (m *mockChainLookup) FindTransaction(ctx context.Context, address string, amount int64, since time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	h, ok := m.txs[chainKey(address, amount)]
	if !ok {
		return "", domain.ErrTxNotFound
	}
	return h, nil
}

// mockWalletGateway broadcasts by registering the exact amount with the
// chain mock, so a follow-up verify finds the transaction.
type mockWalletGateway struct {
	chain *mockChainLookup

	BroadcastErr error
	LastAmount   int64
}

func (m *mockWalletGateway) Name() string { return "mock-wallet" }

func (m *mockWalletGateway) Broadcast(ctx context.Context, address string, amount int64) (string, error) {
	if m.BroadcastErr != nil {
		return "", m.BroadcastErr
	}
	m.LastAmount = amount
	hash := "tx-" + strconv.FormatInt(amount, 10)
	if m.chain != nil {
		m.chain.AddTransaction(address, amount, hash)
	}
	return hash, nil
}

// mockLocker hands out locks from an in-process map.
type mockLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newMockLocker() *mockLocker { return &mockLocker{held: make(map[string]string)} }

func (m *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.held[key]; busy {
		return "", errors.New("lock held")
	}
	token := "tok-" + key
	m.held[key] = token
	return token, nil
}

func (m *mockLocker) Unlock(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] == token {
		delete(m.held, key)
	}
	return nil
}

// mockNotifier records admin notifications.
type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) NotifyAdmins(ctx context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return nil
}

func (m *mockNotifier) Messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.messages))
	copy(out, m.messages)
	return out
}
