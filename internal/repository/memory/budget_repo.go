package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
)

type budgetRepo struct {
	v view
}

func (s *state) attachBudget(b domain.Budget) *domain.Budget {
	if c, ok := s.categories[b.CategoryID]; ok {
		b.Category = &c
	}
	return &b
}

func (r *budgetRepo) Create(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	var out *domain.Budget
	err := r.v.write(func(st *state, now time.Time) error {
		if _, ok := st.categories[budget.CategoryID]; !ok {
			return fmt.Errorf("%w: id %d", domain.ErrCategoryNotFound, budget.CategoryID)
		}
		b := *budget
		b.ID = st.nextID("budgets")
		b.CreatedAt = now
		b.UpdatedAt = now
		b.Category = nil
		st.budgets[b.ID] = b
		out = st.attachBudget(b)
		return nil
	})
	return out, err
}

func (r *budgetRepo) GetByID(ctx context.Context, userID int32, id int32) (*domain.Budget, error) {
	var out *domain.Budget
	err := r.v.read(func(st *state) error {
		b, ok := st.budgets[id]
		if !ok || b.UserID != userID {
			return fmt.Errorf("%w: id %d", domain.ErrBudgetNotFound, id)
		}
		out = st.attachBudget(b)
		return nil
	})
	return out, err
}

func (r *budgetRepo) ListByUser(ctx context.Context, userID int32) ([]*domain.Budget, error) {
	var out []*domain.Budget
	err := r.v.read(func(st *state) error {
		for _, b := range st.budgets {
			if b.UserID == userID {
				out = append(out, st.attachBudget(b))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func (r *budgetRepo) Update(ctx context.Context, budget *domain.Budget) (*domain.Budget, error) {
	var out *domain.Budget
	err := r.v.write(func(st *state, now time.Time) error {
		b, ok := st.budgets[budget.ID]
		if !ok || b.UserID != budget.UserID {
			return fmt.Errorf("%w: id %d", domain.ErrBudgetNotFound, budget.ID)
		}
		if _, ok := st.categories[budget.CategoryID]; !ok {
			return fmt.Errorf("%w: id %d", domain.ErrCategoryNotFound, budget.CategoryID)
		}
		b.CategoryID = budget.CategoryID
		b.Amount = budget.Amount
		b.StartDate = budget.StartDate
		b.EndDate = budget.EndDate
		b.UpdatedAt = now
		st.budgets[b.ID] = b
		out = st.attachBudget(b)
		return nil
	})
	return out, err
}

func (r *budgetRepo) Delete(ctx context.Context, userID int32, id int32) error {
	return r.v.write(func(st *state, _ time.Time) error {
		b, ok := st.budgets[id]
		if !ok || b.UserID != userID {
			return fmt.Errorf("%w: id %d", domain.ErrBudgetNotFound, id)
		}
		delete(st.budgets, id)
		return nil
	})
}

// FindActive returns the newest budget whose window contains at, or nil.
func (r *budgetRepo) FindActive(ctx context.Context, userID int32, categoryID int32, at time.Time) (*domain.Budget, error) {
	var out *domain.Budget
	err := r.v.read(func(st *state) error {
		var best *domain.Budget
		for _, b := range st.budgets {
			if b.UserID != userID || b.CategoryID != categoryID || !b.Contains(at) {
				continue
			}
			if best == nil || newerBudget(&b, best) {
				b := b
				best = &b
			}
		}
		if best != nil {
			out = st.attachBudget(*best)
		}
		return nil
	})
	return out, err
}

func newerBudget(a, b *domain.Budget) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
