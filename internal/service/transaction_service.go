package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TransactionService is the transaction engine. Every mutation runs in one
// store unit covering ownership checks, balance checks, row writes, balance
// adjustment and budget evaluation.
type TransactionService struct {
	store          domain.Store
	mutator        *BalanceMutator
	monitor        *BudgetMonitor
	clock          domain.Clock
	logger         zerolog.Logger
	metrics        LedgerMetrics
	eventPublisher websocket.EventPublisher
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(store domain.Store, monitor *BudgetMonitor, clock domain.Clock, logger zerolog.Logger) *TransactionService {
	return &TransactionService{
		store:   store,
		mutator: NewBalanceMutator(),
		monitor: monitor,
		clock:   clock,
		logger:  logger.With().Str("component", "transaction_engine").Logger(),
		metrics: nopMetrics{},
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *TransactionService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the metrics sink
func (s *TransactionService) SetMetrics(metrics LedgerMetrics) {
	s.metrics = metrics
}

// publishEvent publishes an event if a publisher is configured
func (s *TransactionService) publishEvent(userID int32, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(userID, event)
	}
}

func (s *TransactionService) publishNotifications(userID int32, notes []*domain.Notification) {
	for _, n := range notes {
		if n != nil {
			s.publishEvent(userID, websocket.NotificationCreated(n))
		}
	}
}

// CreateTransactionInput holds the input for creating a transaction
type CreateTransactionInput struct {
	AccountID     int32
	CategoryID    int32
	Amount        decimal.Decimal
	Description   string
	ExecutionDate *time.Time
}

// Validate checks the input fields and normalizes the description
func (in *CreateTransactionInput) Validate() error {
	if in.AccountID <= 0 || in.CategoryID <= 0 {
		return domain.ErrInvalidID
	}
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return err
	}
	d, err := domain.ValidateDescription(in.Description)
	if err != nil {
		return err
	}
	in.Description = d
	return nil
}

// posting is the outcome of one engine mutation inside a unit
type posting struct {
	transaction   *domain.Transaction
	notifications []*domain.Notification
}

// CreateTransaction posts a new transaction. EXPENSE postings that exceed
// the account balance fail with ErrInsufficientFunds before anything is written.
func (s *TransactionService) CreateTransaction(ctx context.Context, userID int32, input CreateTransactionInput) (*domain.Transaction, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var result *posting
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		var err error
		result, err = s.create(ctx, tx, userID, input)
		return err
	})
	if err != nil {
		s.countRejection(OpCreate, err)
		return nil, err
	}

	s.metrics.Posted(OpCreate)
	s.publishEvent(userID, websocket.TransactionCreated(result.transaction))
	s.publishNotifications(userID, result.notifications)
	return result.transaction, nil
}

// create is the engine create path, shared with the recurring poster
func (s *TransactionService) create(ctx context.Context, tx domain.Tx, userID int32, input CreateTransactionInput) (*posting, error) {
	account, err := s.lockOwned(ctx, tx, userID, input.AccountID)
	if err != nil {
		return nil, err
	}

	catType, err := categoryTypeOf(ctx, tx, input.CategoryID, s.logger, s.metrics)
	if err != nil {
		return nil, err
	}
	delta := catType.Delta(input.Amount)

	if _, err := s.mutator.Project(account, delta, input.Amount, domain.ErrInsufficientFunds); err != nil {
		return nil, err
	}

	executionDate := s.clock.Now()
	if input.ExecutionDate != nil && !input.ExecutionDate.IsZero() {
		executionDate = input.ExecutionDate.UTC()
	}

	created, err := tx.Transactions().Create(ctx, &domain.Transaction{
		AccountID:     account.ID,
		CategoryID:    input.CategoryID,
		Amount:        input.Amount,
		Description:   input.Description,
		ExecutionDate: executionDate,
	})
	if err != nil {
		return nil, err
	}

	balance, err := s.mutator.Adjust(ctx, tx, account.ID, delta)
	if err != nil {
		return nil, err
	}
	if err := s.mutator.Verify(account, balance, input.Amount, domain.ErrInsufficientFunds); err != nil {
		return nil, err
	}
	if created.Account != nil {
		created.Account.Balance = balance
	}

	result := &posting{transaction: created}
	if n := s.monitor.evaluateIsolated(ctx, tx, userID, input.CategoryID); n != nil {
		result.notifications = append(result.notifications, n)
	}

	s.logger.Debug().
		Int32("user_id", userID).
		Int32("transaction_id", created.ID).
		Int32("account_id", account.ID).
		Str("delta", delta.String()).
		Str("balance", balance.String()).
		Msg("Transaction posted")
	return result, nil
}

// UpdateTransaction reverses the stored effect of the transaction and
// applies the patched one. When the account changes, the old account after
// reversal and the new account after application must both stay non-negative.
func (s *TransactionService) UpdateTransaction(ctx context.Context, userID int32, id int32, patch domain.TransactionPatch) (*domain.Transaction, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var result *posting
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		var err error
		result, err = s.update(ctx, tx, userID, id, patch)
		return err
	})
	if err != nil {
		s.countRejection(OpUpdate, err)
		return nil, err
	}

	s.metrics.Posted(OpUpdate)
	s.publishEvent(userID, websocket.TransactionUpdated(result.transaction))
	s.publishNotifications(userID, result.notifications)
	return result.transaction, nil
}

// update locks the transaction row before the accounts, so the effect it
// reverses is the one committed by any unit it waited for
func (s *TransactionService) update(ctx context.Context, tx domain.Tx, userID int32, id int32, patch domain.TransactionPatch) (*posting, error) {
	existing, err := tx.Transactions().LockByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	next := patch.Apply(*existing)
	next.Account, next.Category = nil, nil

	accounts, err := tx.Accounts().LockByIDs(ctx, existing.AccountID, next.AccountID)
	if err != nil {
		return nil, err
	}
	oldAccount, ok := accounts[existing.AccountID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, existing.AccountID)
	}
	newAccount, err := ownedAccount(accounts, userID, next.AccountID)
	if err != nil {
		return nil, err
	}

	oldType, err := categoryTypeOf(ctx, tx, existing.CategoryID, s.logger, s.metrics)
	if err != nil {
		return nil, err
	}
	newType := oldType
	if next.CategoryID != existing.CategoryID {
		if newType, err = categoryTypeOf(ctx, tx, next.CategoryID, s.logger, s.metrics); err != nil {
			return nil, err
		}
	}
	oldDelta := oldType.Delta(existing.Amount)
	newDelta := newType.Delta(next.Amount)

	if oldAccount.ID == newAccount.ID {
		if _, err := s.mutator.Project(oldAccount, newDelta.Sub(oldDelta), next.Amount, domain.ErrNegativeBalance); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.mutator.Project(oldAccount, oldDelta.Neg(), existing.Amount, domain.ErrNegativeBalance); err != nil {
			return nil, err
		}
		if _, err := s.mutator.Project(newAccount, newDelta, next.Amount, domain.ErrNegativeBalance); err != nil {
			return nil, err
		}
	}

	oldBalance, err := s.mutator.Adjust(ctx, tx, oldAccount.ID, oldDelta.Neg())
	if err != nil {
		return nil, err
	}
	updated, err := tx.Transactions().Update(ctx, &next)
	if err != nil {
		return nil, err
	}
	newBalance, err := s.mutator.Adjust(ctx, tx, newAccount.ID, newDelta)
	if err != nil {
		return nil, err
	}
	if oldAccount.ID != newAccount.ID {
		if err := s.mutator.Verify(oldAccount, oldBalance, existing.Amount, domain.ErrNegativeBalance); err != nil {
			return nil, err
		}
	}
	if err := s.mutator.Verify(newAccount, newBalance, next.Amount, domain.ErrNegativeBalance); err != nil {
		return nil, err
	}
	if updated.Account != nil {
		updated.Account.Balance = newBalance
	}

	result := &posting{transaction: updated}
	if n := s.monitor.evaluateIsolated(ctx, tx, userID, next.CategoryID); n != nil {
		result.notifications = append(result.notifications, n)
	}
	return result, nil
}

// DeleteTransaction reverses the transaction's effect and removes it
func (s *TransactionService) DeleteTransaction(ctx context.Context, userID int32, id int32) error {
	var deleted *domain.Transaction
	err := s.store.WithinTx(ctx, func(tx domain.Tx) error {
		existing, err := tx.Transactions().LockByID(ctx, userID, id)
		if err != nil {
			return err
		}
		accounts, err := tx.Accounts().LockByIDs(ctx, existing.AccountID)
		if err != nil {
			return err
		}
		account, ok := accounts[existing.AccountID]
		if !ok {
			return fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, existing.AccountID)
		}

		catType, err := categoryTypeOf(ctx, tx, existing.CategoryID, s.logger, s.metrics)
		if err != nil {
			return err
		}
		reversal := catType.Delta(existing.Amount).Neg()
		if _, err := s.mutator.Project(account, reversal, existing.Amount, domain.ErrNegativeBalance); err != nil {
			return err
		}

		balance, err := s.mutator.Adjust(ctx, tx, account.ID, reversal)
		if err != nil {
			return err
		}
		if err := tx.Transactions().Delete(ctx, existing.ID); err != nil {
			return err
		}
		if err := s.mutator.Verify(account, balance, existing.Amount, domain.ErrNegativeBalance); err != nil {
			return err
		}
		deleted = existing
		return nil
	})
	if err != nil {
		s.countRejection(OpDelete, err)
		return err
	}

	s.metrics.Posted(OpDelete)
	s.publishEvent(userID, websocket.TransactionDeleted(websocket.TransactionDeletedPayload{
		ID:        deleted.ID,
		AccountID: deleted.AccountID,
	}))
	return nil
}

// GetTransaction retrieves one of the user's transactions
func (s *TransactionService) GetTransaction(ctx context.Context, userID int32, id int32) (*domain.Transaction, error) {
	return s.store.Transactions().GetByID(ctx, userID, id)
}

// ListTransactions lists the user's transactions, newest first. An account
// filter must name an account the user owns.
func (s *TransactionService) ListTransactions(ctx context.Context, userID int32, filters domain.TransactionFilters) ([]*domain.Transaction, error) {
	if filters.AccountID != nil {
		if _, err := s.store.Accounts().GetByID(ctx, userID, *filters.AccountID); err != nil {
			return nil, err
		}
	}
	return s.store.Transactions().ListByUser(ctx, userID, filters)
}

// lockOwned locks a single account and checks it belongs to userID
func (s *TransactionService) lockOwned(ctx context.Context, tx domain.Tx, userID, accountID int32) (*domain.Account, error) {
	accounts, err := tx.Accounts().LockByIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return ownedAccount(accounts, userID, accountID)
}

func ownedAccount(accounts map[int32]*domain.Account, userID, accountID int32) (*domain.Account, error) {
	account, ok := accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrAccountNotFound, accountID)
	}
	if account.UserID != userID {
		return nil, fmt.Errorf("%w: id %d", domain.ErrAccountForbidden, accountID)
	}
	return account, nil
}

func (s *TransactionService) countRejection(operation string, err error) {
	var balanceErr *domain.BalanceError
	if errors.As(err, &balanceErr) {
		s.metrics.BalanceRejected(operation)
		s.logger.Info().
			Str("operation", operation).
			Int32("account_id", balanceErr.AccountID).
			Str("balance", balanceErr.Balance.String()).
			Str("amount", balanceErr.Amount.String()).
			Msg("Rejected: balance would become negative")
	}
}
