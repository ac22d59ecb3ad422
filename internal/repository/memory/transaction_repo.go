package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/shopspring/decimal"
)

type transactionRepo struct {
	v view
}

// checkRefs mirrors the foreign keys of the transactions table
func (s *state) checkRefs(accountID, categoryID int32) error {
	if _, ok := s.accounts[accountID]; !ok {
		return fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, accountID)
	}
	if _, ok := s.categories[categoryID]; !ok {
		return fmt.Errorf("%w: id %d", domain.ErrCategoryNotFound, categoryID)
	}
	return nil
}

func (s *state) attachTransaction(t domain.Transaction) *domain.Transaction {
	if a, ok := s.accounts[t.AccountID]; ok {
		t.Account = &a
	}
	if c, ok := s.categories[t.CategoryID]; ok {
		t.Category = &c
	}
	return &t
}

func (r *transactionRepo) Create(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.v.write(func(st *state, now time.Time) error {
		if err := st.checkRefs(transaction.AccountID, transaction.CategoryID); err != nil {
			return err
		}
		t := *transaction
		t.ID = st.nextID("transactions")
		t.ExecutionDate = t.ExecutionDate.UTC()
		t.CreatedAt = now
		t.UpdatedAt = now
		t.Account, t.Category = nil, nil
		st.transactions[t.ID] = t
		out = st.attachTransaction(t)
		return nil
	})
	return out, err
}

func (r *transactionRepo) GetByID(ctx context.Context, userID int32, id int32) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.v.read(func(st *state) error {
		t, ok := st.transactions[id]
		if !ok || st.accounts[t.AccountID].UserID != userID {
			return fmt.Errorf("%w: id %d", domain.ErrTransactionNotFound, id)
		}
		out = st.attachTransaction(t)
		return nil
	})
	return out, err
}

// LockByID is GetByID; units already hold the store lock
func (r *transactionRepo) LockByID(ctx context.Context, userID int32, id int32) (*domain.Transaction, error) {
	return r.GetByID(ctx, userID, id)
}

func (r *transactionRepo) ListByUser(ctx context.Context, userID int32, filters domain.TransactionFilters) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	err := r.v.read(func(st *state) error {
		for _, t := range st.transactions {
			if st.accounts[t.AccountID].UserID != userID {
				continue
			}
			if filters.AccountID != nil && t.AccountID != *filters.AccountID {
				continue
			}
			out = append(out, st.attachTransaction(t))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExecutionDate.Equal(out[j].ExecutionDate) {
			return out[i].ExecutionDate.After(out[j].ExecutionDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func (r *transactionRepo) Update(ctx context.Context, transaction *domain.Transaction) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.v.write(func(st *state, now time.Time) error {
		t, ok := st.transactions[transaction.ID]
		if !ok {
			return fmt.Errorf("%w: id %d", domain.ErrTransactionNotFound, transaction.ID)
		}
		if err := st.checkRefs(transaction.AccountID, transaction.CategoryID); err != nil {
			return err
		}
		t.AccountID = transaction.AccountID
		t.CategoryID = transaction.CategoryID
		t.Amount = transaction.Amount
		t.Description = transaction.Description
		t.ExecutionDate = transaction.ExecutionDate.UTC()
		t.UpdatedAt = now
		st.transactions[t.ID] = t
		out = st.attachTransaction(t)
		return nil
	})
	return out, err
}

func (r *transactionRepo) Delete(ctx context.Context, id int32) error {
	return r.v.write(func(st *state, _ time.Time) error {
		if _, ok := st.transactions[id]; !ok {
			return fmt.Errorf("%w: id %d", domain.ErrTransactionNotFound, id)
		}
		delete(st.transactions, id)
		return nil
	})
}

// SumByCategory totals the user's transactions in the category with
// execution dates in [from, to).
func (r *transactionRepo) SumByCategory(ctx context.Context, userID int32, categoryID int32, from, to time.Time) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.v.read(func(st *state) error {
		for _, t := range st.transactions {
			if t.CategoryID != categoryID || st.accounts[t.AccountID].UserID != userID {
				continue
			}
			if t.ExecutionDate.Before(from) || !t.ExecutionDate.Before(to) {
				continue
			}
			total = total.Add(t.Amount)
		}
		return nil
	})
	return total, err
}
