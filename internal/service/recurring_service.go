package service

import (
	"context"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// RecurringService handles recurring transaction business logic
type RecurringService struct {
	store domain.Store
	clock domain.Clock
}

// NewRecurringService creates a new RecurringService
func NewRecurringService(store domain.Store, clock domain.Clock) *RecurringService {
	return &RecurringService{store: store, clock: clock}
}

// CreateRecurringInput holds the input for creating a recurring transaction
type CreateRecurringInput struct {
	AccountID   int32
	CategoryID  int32
	Amount      decimal.Decimal
	Description string
	Frequency   domain.Frequency
	NextDate    *time.Time
	EndDate     *time.Time
}

// CreateRecurring creates a new recurring transaction. NextDate defaults to now.
func (s *RecurringService) CreateRecurring(ctx context.Context, userID int32, input CreateRecurringInput) (*domain.RecurringTransaction, error) {
	if input.AccountID <= 0 || input.CategoryID <= 0 {
		return nil, domain.ErrInvalidID
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if !input.Frequency.Valid() {
		return nil, domain.ErrInvalidFrequency
	}
	description, err := domain.ValidateDescription(input.Description)
	if err != nil {
		return nil, err
	}

	nextDate := s.clock.Now()
	if input.NextDate != nil && !input.NextDate.IsZero() {
		nextDate = input.NextDate.UTC()
	}
	var endDate *time.Time
	if input.EndDate != nil {
		end := input.EndDate.UTC()
		if end.Before(nextDate) {
			return nil, domain.ErrInvalidDateRange
		}
		endDate = &end
	}

	// Validate account exists and belongs to the user
	if _, err := s.store.Accounts().GetByID(ctx, userID, input.AccountID); err != nil {
		return nil, err
	}

	return s.store.Recurring().Create(ctx, &domain.RecurringTransaction{
		AccountID:   input.AccountID,
		CategoryID:  input.CategoryID,
		Amount:      input.Amount,
		Description: description,
		Frequency:   input.Frequency,
		NextDate:    nextDate,
		EndDate:     endDate,
	})
}

// ListRecurring lists the user's recurring transactions by next due date
func (s *RecurringService) ListRecurring(ctx context.Context, userID int32) ([]*domain.RecurringTransaction, error) {
	return s.store.Recurring().ListByUser(ctx, userID)
}

// GetRecurringByID retrieves a recurring transaction by ID
func (s *RecurringService) GetRecurringByID(ctx context.Context, userID int32, id int32) (*domain.RecurringTransaction, error) {
	return s.store.Recurring().GetByID(ctx, userID, id)
}

// UpdateRecurring applies the patch. Moving the item to another account
// requires the user to own that account.
func (s *RecurringService) UpdateRecurring(ctx context.Context, userID int32, id int32, patch domain.RecurringPatch) (*domain.RecurringTransaction, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.RecurringTransaction
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		// Locked so a concurrent poster run's next date is not overwritten
		existing, err := tx.Recurring().LockByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if patch.AccountID != nil && *patch.AccountID != existing.AccountID {
			if _, err := tx.Accounts().GetByID(ctx, userID, *patch.AccountID); err != nil {
				return err
			}
		}
		if err := patch.Apply(existing); err != nil {
			return err
		}
		updated, err = tx.Recurring().Update(ctx, existing)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteRecurring removes a recurring transaction. Posted transactions stay.
func (s *RecurringService) DeleteRecurring(ctx context.Context, userID int32, id int32) error {
	return s.store.WithinTx(ctx, func(tx domain.Tx) error {
		if _, err := tx.Recurring().LockByID(ctx, userID, id); err != nil {
			return err
		}
		return tx.Recurring().Delete(ctx, id)
	})
}
