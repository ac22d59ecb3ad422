// Package memory implements the ledger store in process memory. A unit of
// work holds the store lock for its whole duration and works on a copy of
// the state, which replaces the committed state only on success.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
)

var (
	_ domain.Store = (*Store)(nil)
	_ domain.Tx    = (*tx)(nil)
)

type state struct {
	seq           map[string]int32
	accounts      map[int32]domain.Account
	categories    map[int32]domain.Category
	transactions  map[int32]domain.Transaction
	budgets       map[int32]domain.Budget
	recurring     map[int32]domain.RecurringTransaction
	notifications map[int32]domain.Notification
	loans         map[int32]domain.Loan
}

func newState() *state {
	return &state{
		seq:           make(map[string]int32),
		accounts:      make(map[int32]domain.Account),
		categories:    make(map[int32]domain.Category),
		transactions:  make(map[int32]domain.Transaction),
		budgets:       make(map[int32]domain.Budget),
		recurring:     make(map[int32]domain.RecurringTransaction),
		notifications: make(map[int32]domain.Notification),
		loans:         make(map[int32]domain.Loan),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone copies every table. Entity values are copied; pointer fields inside
// them are replaced on write, never mutated, so sharing them is safe.
func (s *state) clone() *state {
	return &state{
		seq:           cloneMap(s.seq),
		accounts:      cloneMap(s.accounts),
		categories:    cloneMap(s.categories),
		transactions:  cloneMap(s.transactions),
		budgets:       cloneMap(s.budgets),
		recurring:     cloneMap(s.recurring),
		notifications: cloneMap(s.notifications),
		loans:         cloneMap(s.loans),
	}
}

func (s *state) nextID(table string) int32 {
	s.seq[table]++
	return s.seq[table]
}

// Store is an in-memory domain.Store
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		state: newState(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetTimeSource overrides the clock used for created/updated timestamps
func (s *Store) SetTimeSource(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// view binds repositories either to an open unit (st set) or to the
// committed state, in which case every call takes the store lock.
type view struct {
	store *Store
	st    *state
}

func (v view) read(fn func(st *state) error) error {
	if v.st != nil {
		return fn(v.st)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.state)
}

func (v view) write(fn func(st *state, now time.Time) error) error {
	if v.st != nil {
		return fn(v.st, v.store.now())
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	// single statements are atomic too
	work := v.store.state.clone()
	if err := fn(work, v.store.now()); err != nil {
		return err
	}
	v.store.state = work
	return nil
}

func (s *Store) view() view { return view{store: s} }

func (s *Store) Accounts() domain.AccountRepository           { return &accountRepo{s.view()} }
func (s *Store) Categories() domain.CategoryRepository        { return &categoryRepo{s.view()} }
func (s *Store) Transactions() domain.TransactionRepository   { return &transactionRepo{s.view()} }
func (s *Store) Budgets() domain.BudgetRepository             { return &budgetRepo{s.view()} }
func (s *Store) Recurring() domain.RecurringRepository        { return &recurringRepo{s.view()} }
func (s *Store) Notifications() domain.NotificationRepository { return &notificationRepo{s.view()} }
func (s *Store) Loans() domain.LoanRepository                 { return &loanRepo{s.view()} }

// WithinTx implements domain.Store. Units are fully serialized; repositories
// obtained from the Store itself must not be used inside fn.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{store: s, st: s.state.clone()}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = t.st
	return nil
}

type tx struct {
	store *Store
	st    *state
}

func (t *tx) view() view { return view{store: t.store, st: t.st} }

func (t *tx) Accounts() domain.AccountRepository           { return &accountRepo{t.view()} }
func (t *tx) Categories() domain.CategoryRepository        { return &categoryRepo{t.view()} }
func (t *tx) Transactions() domain.TransactionRepository   { return &transactionRepo{t.view()} }
func (t *tx) Budgets() domain.BudgetRepository             { return &budgetRepo{t.view()} }
func (t *tx) Recurring() domain.RecurringRepository        { return &recurringRepo{t.view()} }
func (t *tx) Notifications() domain.NotificationRepository { return &notificationRepo{t.view()} }
func (t *tx) Loans() domain.LoanRepository                 { return &loanRepo{t.view()} }

// Savepoint implements domain.Tx
func (t *tx) Savepoint(ctx context.Context, fn func(tx domain.Tx) error) error {
	inner := &tx{store: t.store, st: t.st.clone()}
	if err := fn(inner); err != nil {
		return err
	}
	*t.st = *inner.st
	return nil
}
