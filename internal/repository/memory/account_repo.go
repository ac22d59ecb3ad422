package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/shopspring/decimal"
)

type accountRepo struct {
	v view
}

func (r *accountRepo) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	var out domain.Account
	err := r.v.write(func(st *state, now time.Time) error {
		a := *account
		a.ID = st.nextID("accounts")
		a.CreatedAt = now
		a.UpdatedAt = now
		st.accounts[a.ID] = a
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *accountRepo) GetByID(ctx context.Context, userID int32, id int32) (*domain.Account, error) {
	var out domain.Account
	err := r.v.read(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
		}
		if a.UserID != userID {
			return fmt.Errorf("%w: id %d", domain.ErrAccountForbidden, id)
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *accountRepo) ListByUser(ctx context.Context, userID int32) ([]*domain.Account, error) {
	var out []*domain.Account
	err := r.v.read(func(st *state) error {
		for _, a := range st.accounts {
			if a.UserID == userID {
				a := a
				out = append(out, &a)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// LockByIDs returns the current rows; the unit already holds the store lock.
func (r *accountRepo) LockByIDs(ctx context.Context, ids ...int32) (map[int32]*domain.Account, error) {
	out := make(map[int32]*domain.Account, len(ids))
	err := r.v.read(func(st *state) error {
		for _, id := range ids {
			if a, ok := st.accounts[id]; ok {
				out[id] = &a
			}
		}
		return nil
	})
	return out, err
}

// Update writes name, type and currency. Balance only moves through AdjustBalance.
func (r *accountRepo) Update(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	var out domain.Account
	err := r.v.write(func(st *state, now time.Time) error {
		a, ok := st.accounts[account.ID]
		if !ok || a.UserID != account.UserID {
			return fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, account.ID)
		}
		a.Name = account.Name
		a.Type = account.Type
		a.Currency = account.Currency
		a.UpdatedAt = now
		st.accounts[a.ID] = a
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *accountRepo) AdjustBalance(ctx context.Context, id int32, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.v.write(func(st *state, now time.Time) error {
		a, ok := st.accounts[id]
		if !ok {
			return fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
		}
		a.Balance = a.Balance.Add(delta)
		a.UpdatedAt = now
		st.accounts[id] = a
		balance = a.Balance
		return nil
	})
	return balance, err
}

func (r *accountRepo) HasReferences(ctx context.Context, id int32) (bool, error) {
	var found bool
	err := r.v.read(func(st *state) error {
		found = st.accountReferenced(id)
		return nil
	})
	return found, err
}

func (r *accountRepo) Delete(ctx context.Context, userID int32, id int32) error {
	return r.v.write(func(st *state, _ time.Time) error {
		a, ok := st.accounts[id]
		if !ok || a.UserID != userID {
			return fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
		}
		if st.accountReferenced(id) {
			return fmt.Errorf("%w: id %d", domain.ErrAccountInUse, id)
		}
		delete(st.accounts, id)
		return nil
	})
}

func (s *state) accountReferenced(id int32) bool {
	for _, t := range s.transactions {
		if t.AccountID == id {
			return true
		}
	}
	for _, rt := range s.recurring {
		if rt.AccountID == id {
			return true
		}
	}
	return false
}
