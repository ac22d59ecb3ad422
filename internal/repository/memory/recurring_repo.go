package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
)

type recurringRepo struct {
	v view
}

func (s *state) attachRecurring(rt domain.RecurringTransaction) *domain.RecurringTransaction {
	if a, ok := s.accounts[rt.AccountID]; ok {
		rt.Account = &a
	}
	if c, ok := s.categories[rt.CategoryID]; ok {
		rt.Category = &c
	}
	return &rt
}

func (r *recurringRepo) Create(ctx context.Context, rt *domain.RecurringTransaction) (*domain.RecurringTransaction, error) {
	var out *domain.RecurringTransaction
	err := r.v.write(func(st *state, now time.Time) error {
		if err := st.checkRefs(rt.AccountID, rt.CategoryID); err != nil {
			return err
		}
		item := *rt
		item.ID = st.nextID("recurring_transactions")
		item.NextDate = item.NextDate.UTC()
		item.CreatedAt = now
		item.UpdatedAt = now
		item.Account, item.Category = nil, nil
		st.recurring[item.ID] = item
		out = st.attachRecurring(item)
		return nil
	})
	return out, err
}

func (r *recurringRepo) GetByID(ctx context.Context, userID int32, id int32) (*domain.RecurringTransaction, error) {
	var out *domain.RecurringTransaction
	err := r.v.read(func(st *state) error {
		item, ok := st.recurring[id]
		if !ok || st.accounts[item.AccountID].UserID != userID {
			return fmt.Errorf("%w: id %d", domain.ErrRecurringNotFound, id)
		}
		out = st.attachRecurring(item)
		return nil
	})
	return out, err
}

// LockByID is GetByID; units already hold the store lock
func (r *recurringRepo) LockByID(ctx context.Context, userID int32, id int32) (*domain.RecurringTransaction, error) {
	return r.GetByID(ctx, userID, id)
}

func (r *recurringRepo) ListByUser(ctx context.Context, userID int32) ([]*domain.RecurringTransaction, error) {
	var out []*domain.RecurringTransaction
	err := r.v.read(func(st *state) error {
		for _, item := range st.recurring {
			if st.accounts[item.AccountID].UserID == userID {
				out = append(out, st.attachRecurring(item))
			}
		}
		return nil
	})
	sortByNextDate(out)
	return out, err
}

func sortByNextDate(items []*domain.RecurringTransaction) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].NextDate.Equal(items[j].NextDate) {
			return items[i].NextDate.Before(items[j].NextDate)
		}
		return items[i].ID < items[j].ID
	})
}

func (r *recurringRepo) Update(ctx context.Context, rt *domain.RecurringTransaction) (*domain.RecurringTransaction, error) {
	var out *domain.RecurringTransaction
	err := r.v.write(func(st *state, now time.Time) error {
		item, ok := st.recurring[rt.ID]
		if !ok {
			return fmt.Errorf("%w: id %d", domain.ErrRecurringNotFound, rt.ID)
		}
		if err := st.checkRefs(rt.AccountID, rt.CategoryID); err != nil {
			return err
		}
		item.AccountID = rt.AccountID
		item.CategoryID = rt.CategoryID
		item.Amount = rt.Amount
		item.Description = rt.Description
		item.Frequency = rt.Frequency
		item.NextDate = rt.NextDate.UTC()
		item.EndDate = rt.EndDate
		item.UpdatedAt = now
		st.recurring[item.ID] = item
		out = st.attachRecurring(item)
		return nil
	})
	return out, err
}

func (r *recurringRepo) Delete(ctx context.Context, id int32) error {
	return r.v.write(func(st *state, _ time.Time) error {
		if _, ok := st.recurring[id]; !ok {
			return fmt.Errorf("%w: id %d", domain.ErrRecurringNotFound, id)
		}
		delete(st.recurring, id)
		return nil
	})
}

// ListDue returns ids of due items, oldest next date first. limit <= 0 means all.
func (r *recurringRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]int32, error) {
	var due []*domain.RecurringTransaction
	err := r.v.read(func(st *state) error {
		for _, item := range st.recurring {
			if item.IsDue(now) {
				item := item
				due = append(due, &item)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortByNextDate(due)
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	ids := make([]int32, len(due))
	for i, item := range due {
		ids[i] = item.ID
	}
	return ids, nil
}

// LockDue re-reads the item and returns it only if it is still due.
// A nil item with a nil error means it was already advanced or removed.
func (r *recurringRepo) LockDue(ctx context.Context, id int32, now time.Time) (*domain.RecurringTransaction, error) {
	var out *domain.RecurringTransaction
	err := r.v.read(func(st *state) error {
		item, ok := st.recurring[id]
		if !ok || !item.IsDue(now) {
			return nil
		}
		out = st.attachRecurring(item)
		return nil
	})
	return out, err
}

func (r *recurringRepo) SetNextDate(ctx context.Context, id int32, next time.Time) error {
	return r.v.write(func(st *state, now time.Time) error {
		item, ok := st.recurring[id]
		if !ok {
			return fmt.Errorf("%w: id %d", domain.ErrRecurringNotFound, id)
		}
		item.NextDate = next.UTC()
		item.UpdatedAt = now
		st.recurring[id] = item
		return nil
	})
}
