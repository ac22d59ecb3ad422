package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// AccountService handles account-related business logic
type AccountService struct {
	store domain.Store
}

// NewAccountService creates a new AccountService
func NewAccountService(store domain.Store) *AccountService {
	return &AccountService{store: store}
}

// CreateAccountInput holds the input for creating an account
type CreateAccountInput struct {
	Name     string
	Type     domain.AccountType
	Balance  decimal.Decimal
	Currency string
}

// CreateAccount creates a new account. Currency defaults to VND.
func (s *AccountService) CreateAccount(ctx context.Context, userID int32, input CreateAccountInput) (*domain.Account, error) {
	name, err := domain.ValidateName(input.Name)
	if err != nil {
		return nil, err
	}
	if !input.Type.Valid() {
		return nil, domain.ErrInvalidAccountType
	}
	if err := domain.ValidateBalance(input.Balance); err != nil {
		return nil, err
	}
	currency := domain.DefaultCurrency
	if input.Currency != "" {
		if currency, err = domain.NormalizeCurrency(input.Currency); err != nil {
			return nil, err
		}
	}

	return s.store.Accounts().Create(ctx, &domain.Account{
		UserID:   userID,
		Name:     name,
		Type:     input.Type,
		Balance:  input.Balance,
		Currency: currency,
	})
}

// GetAccounts retrieves all accounts of a user
func (s *AccountService) GetAccounts(ctx context.Context, userID int32) ([]*domain.Account, error) {
	return s.store.Accounts().ListByUser(ctx, userID)
}

// GetAccountByID retrieves an account owned by the user. Another user's
// account is reported as not found.
func (s *AccountService) GetAccountByID(ctx context.Context, userID int32, id int32) (*domain.Account, error) {
	return ownedByID(ctx, s.store, userID, id)
}

// ownedByID hides accounts of other users behind ErrAccountNotFound
func ownedByID(ctx context.Context, repos domain.Repositories, userID, id int32) (*domain.Account, error) {
	account, err := repos.Accounts().GetByID(ctx, userID, id)
	if errors.Is(err, domain.ErrForbidden) {
		return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, id)
	}
	return account, err
}

// UpdateAccount edits name, type or currency. The balance is never patched.
func (s *AccountService) UpdateAccount(ctx context.Context, userID int32, id int32, patch domain.AccountPatch) (*domain.Account, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Account
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		account, err := ownedByID(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		patch.Apply(account)
		updated, err = tx.Accounts().Update(ctx, account)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteAccount removes an account that no transaction or recurring item references
func (s *AccountService) DeleteAccount(ctx context.Context, userID int32, id int32) error {
	return s.store.WithinTx(ctx, func(tx domain.Tx) error {
		if _, err := ownedByID(ctx, tx, userID, id); err != nil {
			return err
		}
		inUse, err := tx.Accounts().HasReferences(ctx, id)
		if err != nil {
			return err
		}
		if inUse {
			return domain.ErrAccountInUse
		}
		return tx.Accounts().Delete(ctx, userID, id)
	})
}
