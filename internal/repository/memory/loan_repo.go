package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
)

type loanRepo struct {
	v view
}

func (r *loanRepo) Create(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	var out domain.Loan
	err := r.v.write(func(st *state, now time.Time) error {
		out = *loan
		out.ID = st.nextID("loans")
		if out.Status == "" {
			out.Status = domain.LoanStatusActive
		}
		out.CreatedAt = now
		out.UpdatedAt = now
		st.loans[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *loanRepo) GetByID(ctx context.Context, userID int32, id int32) (*domain.Loan, error) {
	var out domain.Loan
	err := r.v.read(func(st *state) error {
		l, ok := st.loans[id]
		if !ok || l.UserID != userID {
			return fmt.Errorf("%w: id %d", domain.ErrLoanNotFound, id)
		}
		out = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *loanRepo) ListByUser(ctx context.Context, userID int32, status *domain.LoanStatus) ([]*domain.Loan, error) {
	var out []*domain.Loan
	err := r.v.read(func(st *state) error {
		for _, l := range st.loans {
			if l.UserID != userID || (status != nil && l.Status != *status) {
				continue
			}
			l := l
			out = append(out, &l)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (r *loanRepo) Update(ctx context.Context, loan *domain.Loan) (*domain.Loan, error) {
	var out domain.Loan
	err := r.v.write(func(st *state, now time.Time) error {
		l, ok := st.loans[loan.ID]
		if !ok || l.UserID != loan.UserID {
			return fmt.Errorf("%w: id %d", domain.ErrLoanNotFound, loan.ID)
		}
		out = *loan
		out.CreatedAt = l.CreatedAt
		out.UpdatedAt = now
		st.loans[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *loanRepo) Delete(ctx context.Context, userID int32, id int32) error {
	return r.v.write(func(st *state, _ time.Time) error {
		l, ok := st.loans[id]
		if !ok || l.UserID != userID {
			return fmt.Errorf("%w: id %d", domain.ErrLoanNotFound, id)
		}
		delete(st.loans, id)
		return nil
	})
}

// ListDueForReminder returns active, unreminded loans ending at or before before.
func (r *loanRepo) ListDueForReminder(ctx context.Context, before time.Time) ([]*domain.Loan, error) {
	var out []*domain.Loan
	err := r.v.read(func(st *state) error {
		for _, l := range st.loans {
			if l.Status != domain.LoanStatusActive || l.EndDate == nil || l.RemindedAt != nil {
				continue
			}
			if l.EndDate.After(before) {
				continue
			}
			l := l
			out = append(out, &l)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(*out[j].EndDate) {
			return out[i].EndDate.Before(*out[j].EndDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *loanRepo) MarkReminded(ctx context.Context, id int32, at time.Time) (bool, error) {
	claimed := false
	err := r.v.write(func(st *state, now time.Time) error {
		l, ok := st.loans[id]
		if !ok || l.RemindedAt != nil {
			return nil
		}
		claimed = true
		at := at.UTC()
		l.RemindedAt = &at
		l.UpdatedAt = now
		st.loans[id] = l
		return nil
	})
	return claimed, err
}
