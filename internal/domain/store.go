package domain

import "context"

// Repositories groups the ledger repositories bound to one connection or
// one unit of work
type Repositories interface {
	Accounts() AccountRepository
	Categories() CategoryRepository
	Transactions() TransactionRepository
	Budgets() BudgetRepository
	Recurring() RecurringRepository
	Notifications() NotificationRepository
	Loans() LoanRepository
}

// Tx is the repository set of an open unit of work
type Tx interface {
	Repositories
	// Savepoint runs fn as a nested unit. An error from fn undoes only the
	// writes fn made; the enclosing unit stays usable.
	Savepoint(ctx context.Context, fn func(tx Tx) error) error
}

// Store is the ledger store. Reads outside WithinTx see committed state.
type Store interface {
	Repositories
	// WithinTx runs fn in one atomic, isolated unit of work. The unit
	// commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
