package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/websocket"
	"github.com/stretchr/testify/require"
)

// RecordingPublisher is a websocket.EventPublisher that keeps every event
type RecordingPublisher struct {
	mu     sync.Mutex
	events map[int32][]websocket.Event
}

// NewRecordingPublisher creates a new RecordingPublisher
func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{events: make(map[int32][]websocket.Event)}
}

// Publish records the event
func (p *RecordingPublisher) Publish(userID int32, event websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[userID] = append(p.events[userID], event)
}

// Events returns the events published for a user
func (p *RecordingPublisher) Events(userID int32) []websocket.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]websocket.Event, len(p.events[userID]))
	copy(out, p.events[userID])
	return out
}

// Types returns the event type strings published for a user, in order
func (p *RecordingPublisher) Types(userID int32) []string {
	events := p.Events(userID)
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

// FaultyStore wraps a store and injects errors into repositories used inside units
type FaultyStore struct {
	domain.Store
	BudgetErr       error // returned by Budgets().FindActive
	NotificationErr error // returned by Notifications().Create
	RecurringIDErr  int32 // LockDue fails for this recurring id
}

// WithinTx runs fn with a faulty view of the unit
func (s *FaultyStore) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	return s.Store.WithinTx(ctx, func(tx domain.Tx) error {
		return fn(&faultyTx{Tx: tx, store: s})
	})
}

type faultyTx struct {
	domain.Tx
	store *FaultyStore
}

func (t *faultyTx) Budgets() domain.BudgetRepository {
	return &faultyBudgets{BudgetRepository: t.Tx.Budgets(), err: t.store.BudgetErr}
}

func (t *faultyTx) Notifications() domain.NotificationRepository {
	return &faultyNotifications{NotificationRepository: t.Tx.Notifications(), err: t.store.NotificationErr}
}

func (t *faultyTx) Recurring() domain.RecurringRepository {
	return &faultyRecurring{RecurringRepository: t.Tx.Recurring(), failID: t.store.RecurringIDErr}
}

func (t *faultyTx) Savepoint(ctx context.Context, fn func(tx domain.Tx) error) error {
	return t.Tx.Savepoint(ctx, func(sp domain.Tx) error {
		return fn(&faultyTx{Tx: sp, store: t.store})
	})
}

type faultyBudgets struct {
	domain.BudgetRepository
	err error
}

func (r *faultyBudgets) FindActive(ctx context.Context, userID, categoryID int32, at time.Time) (*domain.Budget, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.BudgetRepository.FindActive(ctx, userID, categoryID, at)
}

type faultyNotifications struct {
	domain.NotificationRepository
	err error
}

func (r *faultyNotifications) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.NotificationRepository.Create(ctx, n)
}

type faultyRecurring struct {
	domain.RecurringRepository
	failID int32
}

func (r *faultyRecurring) LockDue(ctx context.Context, id int32, now time.Time) (*domain.RecurringTransaction, error) {
	if r.failID != 0 && id == r.failID {
		return nil, errInjected
	}
	return r.RecurringRepository.LockDue(ctx, id, now)
}

type injectedError struct{}

func (injectedError) Error() string { return "injected failure" }

var errInjected error = injectedError{}

// ErrInjected is the error FaultyStore returns for RecurringIDErr
var ErrInjected = errInjected

// StaleReadStore wraps a store so that unlocked by-id reads inside units
// return a snapshot taken earlier, as a READ COMMITTED read does when
// another unit commits between the read and the row lock. LockByID always
// sees the committed state.
type StaleReadStore struct {
	domain.Store
	mu           sync.Mutex
	transactions map[int32]domain.Transaction
	recurring    map[int32]domain.RecurringTransaction
	dueLoans     []*domain.Loan
}

// NewStaleReadStore creates a StaleReadStore over store
func NewStaleReadStore(store domain.Store) *StaleReadStore {
	return &StaleReadStore{
		Store:        store,
		transactions: make(map[int32]domain.Transaction),
		recurring:    make(map[int32]domain.RecurringTransaction),
	}
}

// SnapshotTransaction freezes the current committed copy of a transaction
func (s *StaleReadStore) SnapshotTransaction(t testing.TB, userID, id int32) {
	t.Helper()
	current, err := s.Store.Transactions().GetByID(context.Background(), userID, id)
	require.NoError(t, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[id] = *current
}

// SnapshotRecurring freezes the current committed copy of a recurring item
func (s *StaleReadStore) SnapshotRecurring(t testing.TB, userID, id int32) {
	t.Helper()
	current, err := s.Store.Recurring().GetByID(context.Background(), userID, id)
	require.NoError(t, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recurring[id] = *current
}

// SnapshotDueLoans freezes the loans currently due for a reminder, so a
// later list returns them even after another run claimed them
func (s *StaleReadStore) SnapshotDueLoans(t testing.TB, before time.Time) {
	t.Helper()
	loans, err := s.Store.Loans().ListDueForReminder(context.Background(), before)
	require.NoError(t, err)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dueLoans = loans
}

// Loans serves ListDueForReminder from the snapshot once one was taken
func (s *StaleReadStore) Loans() domain.LoanRepository {
	return &staleLoans{LoanRepository: s.Store.Loans(), store: s}
}

// WithinTx runs fn with stale unlocked reads
func (s *StaleReadStore) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	return s.Store.WithinTx(ctx, func(tx domain.Tx) error {
		return fn(&staleTx{Tx: tx, store: s})
	})
}

type staleTx struct {
	domain.Tx
	store *StaleReadStore
}

func (t *staleTx) Transactions() domain.TransactionRepository {
	return &staleTransactions{TransactionRepository: t.Tx.Transactions(), store: t.store}
}

func (t *staleTx) Recurring() domain.RecurringRepository {
	return &staleRecurring{RecurringRepository: t.Tx.Recurring(), store: t.store}
}

func (t *staleTx) Savepoint(ctx context.Context, fn func(tx domain.Tx) error) error {
	return t.Tx.Savepoint(ctx, func(sp domain.Tx) error {
		return fn(&staleTx{Tx: sp, store: t.store})
	})
}

type staleTransactions struct {
	domain.TransactionRepository
	store *StaleReadStore
}

func (r *staleTransactions) GetByID(ctx context.Context, userID int32, id int32) (*domain.Transaction, error) {
	r.store.mu.Lock()
	snap, ok := r.store.transactions[id]
	r.store.mu.Unlock()
	if ok {
		return &snap, nil
	}
	return r.TransactionRepository.GetByID(ctx, userID, id)
}

type staleRecurring struct {
	domain.RecurringRepository
	store *StaleReadStore
}

func (r *staleRecurring) GetByID(ctx context.Context, userID int32, id int32) (*domain.RecurringTransaction, error) {
	r.store.mu.Lock()
	snap, ok := r.store.recurring[id]
	r.store.mu.Unlock()
	if ok {
		return &snap, nil
	}
	return r.RecurringRepository.GetByID(ctx, userID, id)
}

type staleLoans struct {
	domain.LoanRepository
	store *StaleReadStore
}

func (r *staleLoans) ListDueForReminder(ctx context.Context, before time.Time) ([]*domain.Loan, error) {
	r.store.mu.Lock()
	snap := r.store.dueLoans
	r.store.mu.Unlock()
	if snap != nil {
		return snap, nil
	}
	return r.LoanRepository.ListDueForReminder(ctx, before)
}
