package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

type engineFixture struct {
	ledger    *testutil.Ledger
	engine    *TransactionService
	publisher *testutil.RecordingPublisher
	food      *domain.Category
	salary    *domain.Category
}

func setupEngine(t *testing.T) *engineFixture {
	t.Helper()
	ledger := testutil.NewLedger(testNow)
	return setupEngineWithStore(t, ledger, ledger.Store)
}

func setupEngineWithStore(t *testing.T, ledger *testutil.Ledger, store domain.Store) *engineFixture {
	t.Helper()
	monitor := NewBudgetMonitor(ledger.Clock, zerolog.Nop(), domain.DefaultCurrency)
	engine := NewTransactionService(store, monitor, ledger.Clock, zerolog.Nop())
	publisher := testutil.NewRecordingPublisher()
	engine.SetEventPublisher(publisher)
	return &engineFixture{
		ledger:    ledger,
		engine:    engine,
		publisher: publisher,
		food:      ledger.Category(t, "Food", domain.CategoryTypeExpense),
		salary:    ledger.Category(t, "Salary", domain.CategoryTypeIncome),
	}
}

func vnd(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func assertBalance(t *testing.T, f *engineFixture, accountID int32, want int64) {
	t.Helper()
	got := f.ledger.Balance(t, accountID)
	if !got.Equal(vnd(want)) {
		t.Errorf("Expected balance %d, got %s", want, got.String())
	}
}

func TestTransactionLifecycle_RoundTrip(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	userID := int32(1)
	account := f.ledger.Account(t, userID, "Wallet", 1_000_000)

	created, err := f.engine.CreateTransaction(ctx, userID, CreateTransactionInput{
		AccountID:  account.ID,
		CategoryID: f.food.ID,
		Amount:     vnd(300_000),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertBalance(t, f, account.ID, 700_000)
	if created.Account == nil || !created.Account.Balance.Equal(vnd(700_000)) {
		t.Errorf("Expected returned account balance 700000, got %+v", created.Account)
	}
	if !created.ExecutionDate.Equal(testNow) {
		t.Errorf("Expected execution date to default to now, got %v", created.ExecutionDate)
	}

	amount := vnd(500_000)
	updated, err := f.engine.UpdateTransaction(ctx, userID, created.ID, domain.TransactionPatch{Amount: &amount})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !updated.Amount.Equal(amount) {
		t.Errorf("Expected amount 500000, got %s", updated.Amount.String())
	}
	assertBalance(t, f, account.ID, 500_000)

	if err := f.engine.DeleteTransaction(ctx, userID, created.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertBalance(t, f, account.ID, 1_000_000)

	if _, err := f.engine.GetTransaction(ctx, userID, created.ID); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Errorf("Expected ErrTransactionNotFound after delete, got %v", err)
	}

	want := []string{"transaction.created", "transaction.updated", "transaction.deleted"}
	got := f.publisher.Types(userID)
	if len(got) != len(want) {
		t.Fatalf("Expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected event %d to be %s, got %s", i, want[i], got[i])
		}
	}
}

func TestCreateTransaction_InsufficientFunds(t *testing.T) {
	f := setupEngine(t)
	userID := int32(1)
	account := f.ledger.Account(t, userID, "Wallet", 100_000)

	_, err := f.engine.CreateTransaction(context.Background(), userID, CreateTransactionInput{
		AccountID:  account.ID,
		CategoryID: f.food.ID,
		Amount:     vnd(150_000),
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	var balanceErr *domain.BalanceError
	if !errors.As(err, &balanceErr) {
		t.Fatalf("Expected *domain.BalanceError, got %T", err)
	}
	if !balanceErr.Balance.Equal(vnd(100_000)) || !balanceErr.Amount.Equal(vnd(150_000)) {
		t.Errorf("Expected error to carry balance 100000 and amount 150000, got %s / %s",
			balanceErr.Balance.String(), balanceErr.Amount.String())
	}

	assertBalance(t, f, account.ID, 100_000)
	if n := len(f.ledger.Transactions(t, userID)); n != 0 {
		t.Errorf("Expected no transaction to be stored, got %d", n)
	}
	if n := len(f.publisher.Events(userID)); n != 0 {
		t.Errorf("Expected no events, got %d", n)
	}
}

func TestCreateTransaction_ExactBalanceAllowed(t *testing.T) {
	f := setupEngine(t)
	userID := int32(1)
	account := f.ledger.Account(t, userID, "Wallet", 150_000)

	_, err := f.engine.CreateTransaction(context.Background(), userID, CreateTransactionInput{
		AccountID:  account.ID,
		CategoryID: f.food.ID,
		Amount:     vnd(150_000),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertBalance(t, f, account.ID, 0)
}

func TestCreateTransaction_IncomeCredits(t *testing.T) {
	f := setupEngine(t)
	userID := int32(1)
	account := f.ledger.Account(t, userID, "Wallet", 0)

	_, err := f.engine.CreateTransaction(context.Background(), userID, CreateTransactionInput{
		AccountID:  account.ID,
		CategoryID: f.salary.ID,
		Amount:     decimal.RequireFromString("2500000.50"),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	got := f.ledger.Balance(t, account.ID)
	if !got.Equal(decimal.RequireFromString("2500000.50")) {
		t.Errorf("Expected balance 2500000.50, got %s", got.String())
	}
}

func TestCreateTransaction_Validation(t *testing.T) {
	f := setupEngine(t)
	userID := int32(1)
	account := f.ledger.Account(t, userID, "Wallet", 100)

	tests := []struct {
		name  string
		input CreateTransactionInput
		want  error
	}{
		{"zero amount", CreateTransactionInput{AccountID: account.ID, CategoryID: f.food.ID, Amount: decimal.Zero}, domain.ErrInvalidAmount},
		{"negative amount", CreateTransactionInput{AccountID: account.ID, CategoryID: f.food.ID, Amount: vnd(-5)}, domain.ErrInvalidAmount},
		{"missing account", CreateTransactionInput{CategoryID: f.food.ID, Amount: vnd(5)}, domain.ErrInvalidID},
		{"missing category", CreateTransactionInput{AccountID: account.ID, Amount: vnd(5)}, domain.ErrInvalidID},
		{"below storage scale", CreateTransactionInput{AccountID: account.ID, CategoryID: f.food.ID, Amount: decimal.RequireFromString("0.00005")}, domain.ErrAmountPrecision},
		{"too many decimals", CreateTransactionInput{AccountID: account.ID, CategoryID: f.food.ID, Amount: decimal.RequireFromString("1.123456789")}, domain.ErrAmountPrecision},
		{"overflows storage", CreateTransactionInput{AccountID: account.ID, CategoryID: f.food.ID, Amount: decimal.RequireFromString("1e30")}, domain.ErrAmountTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.CreateTransaction(context.Background(), userID, tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Expected a validation error, got %v", err)
			}
		})
	}
}

func TestCreateTransaction_IncomeBeyondStorableBalance(t *testing.T) {
	f := setupEngine(t)
	userID := int32(1)
	account := f.ledger.Account(t, userID, "Vault", 9_000_000_000_000_000)

	_, err := f.engine.CreateTransaction(context.Background(), userID, CreateTransactionInput{
		AccountID:  account.ID,
		CategoryID: f.salary.ID,
		Amount:     vnd(1_000_000_000_000_000),
	})
	if !errors.Is(err, domain.ErrBalanceTooLarge) {
		t.Fatalf("Expected ErrBalanceTooLarge, got %v", err)
	}
	assertBalance(t, f, account.ID, 9_000_000_000_000_000)
	if n := len(f.ledger.Transactions(t, userID)); n != 0 {
		t.Errorf("Expected no stored transaction, got %d", n)
	}
}

func TestCreateTransaction_ForeignAccount(t *testing.T) {
	f := setupEngine(t)
	owner := f.ledger.Account(t, 1, "Owner wallet", 1_000)

	_, err := f.engine.CreateTransaction(context.Background(), 2, CreateTransactionInput{
		AccountID:  owner.ID,
		CategoryID: f.food.ID,
		Amount:     vnd(10),
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("Expected ErrForbidden, got %v", err)
	}
	assertBalance(t, f, owner.ID, 1_000)
}

func TestCreateTransaction_UnknownAccount(t *testing.T) {
	f := setupEngine(t)

	_, err := f.engine.CreateTransaction(context.Background(), 1, CreateTransactionInput{
		AccountID:  999,
		CategoryID: f.food.ID,
		Amount:     vnd(10),
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("Expected ErrAccountNotFound, got %v", err)
	}
}

func TestCreateTransaction_MissingCategoryIsRejectedByStore(t *testing.T) {
	f := setupEngine(t)
	account := f.ledger.Account(t, 1, "Wallet", 1_000)

	_, err := f.engine.CreateTransaction(context.Background(), 1, CreateTransactionInput{
		AccountID:  account.ID,
		CategoryID: 4242,
		Amount:     vnd(10),
	})
	if !errors.Is(err, domain.ErrCategoryNotFound) {
		t.Fatalf("Expected ErrCategoryNotFound, got %v", err)
	}
	assertBalance(t, f, account.ID, 1_000)
}

func TestUpdateTransaction_SwitchAccount(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	userID := int32(1)
	a := f.ledger.Account(t, userID, "A", 1_000_000)
	b := f.ledger.Account(t, userID, "B", 400_000)

	created, err := f.engine.CreateTransaction(ctx, userID, CreateTransactionInput{
		AccountID:  a.ID,
		CategoryID: f.food.ID,
		Amount:     vnd(300_000),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	amount := vnd(250_000)
	updated, err := f.engine.UpdateTransaction(ctx, userID, created.ID, domain.TransactionPatch{
		AccountID: &b.ID,
		Amount:    &amount,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.AccountID != b.ID {
		t.Errorf("Expected account %d, got %d", b.ID, updated.AccountID)
	}
	assertBalance(t, f, a.ID, 1_000_000)
	assertBalance(t, f, b.ID, 150_000)
}

func TestUpdateTransaction_SwitchAccountInsufficient(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	userID := int32(1)
	a := f.ledger.Account(t, userID, "A", 1_000_000)
	b := f.ledger.Account(t, userID, "B", 100_000)

	created, err := f.engine.CreateTransaction(ctx, userID, CreateTransactionInput{
		AccountID:  a.ID,
		CategoryID: f.food.ID,
		Amount:     vnd(300_000),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	_, err = f.engine.UpdateTransaction(ctx, userID, created.ID, domain.TransactionPatch{AccountID: &b.ID})
	if !errors.Is(err, domain.ErrNegativeBalance) {
		t.Fatalf("Expected ErrNegativeBalance, got %v", err)
	}
	assertBalance(t, f, a.ID, 700_000)
	assertBalance(t, f, b.ID, 100_000)

	stored, err := f.engine.GetTransaction(ctx, userID, created.ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if stored.AccountID != a.ID {
		t.Errorf("Expected transaction to stay on account %d, got %d", a.ID, stored.AccountID)
	}
}

func TestUpdateTransaction_SwitchToForeignAccount(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	mine := f.ledger.Account(t, 1, "Mine", 1_000)
	theirs := f.ledger.Account(t, 2, "Theirs", 1_000)

	created, err := f.engine.CreateTransaction(ctx, 1, CreateTransactionInput{
		AccountID:  mine.ID,
		CategoryID: f.food.ID,
		Amount:     vnd(100),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	_, err = f.engine.UpdateTransaction(ctx, 1, created.ID, domain.TransactionPatch{AccountID: &theirs.ID})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("Expected ErrForbidden, got %v", err)
	}
	assertBalance(t, f, mine.ID, 900)
	assertBalance(t, f, theirs.ID, 1_000)
}

func TestUpdateTransaction_CategorySwitchFlipsSign(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	userID := int32(1)
	account := f.ledger.Account(t, userID, "Wallet", 1_000)

	created, err := f.engine.CreateTransaction(ctx, userID, CreateTransactionInput{
		AccountID:  account.ID,
		CategoryID: f.food.ID,
		Amount:     vnd(200),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertBalance(t, f, account.ID, 800)

	_, err = f.engine.UpdateTransaction(ctx, userID, created.ID, domain.TransactionPatch{CategoryID: &f.salary.ID})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertBalance(t, f, account.ID, 1_200)
}

func TestUpdateTransaction_IncreaseBeyondBalance(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	userID := int32(1)
	account := f.ledger.Account(t, userID, "Wallet", 1_000)

	created, err := f.engine.CreateTransaction(ctx, userID, CreateTransactionInput{
		AccountID:  account.ID,
		CategoryID: f.food.ID,
		Amount:     vnd(600),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	amount := vnd(1_001)
	_, err = f.engine.UpdateTransaction(ctx, userID, created.ID, domain.TransactionPatch{Amount: &amount})
	if !errors.Is(err, domain.ErrNegativeBalance) {
		t.Fatalf("Expected ErrNegativeBalance, got %v", err)
	}
	assertBalance(t, f, account.ID, 400)

	amount = vnd(1_000)
	if _, err := f.engine.UpdateTransaction(ctx, userID, created.ID, domain.TransactionPatch{Amount: &amount}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertBalance(t, f, account.ID, 0)
}

func TestUpdateTransaction_EmptyPatch(t *testing.T) {
	f := setupEngine(t)

	_, err := f.engine.UpdateTransaction(context.Background(), 1, 1, domain.TransactionPatch{})
	if !errors.Is(err, domain.ErrEmptyPatch) {
		t.Errorf("Expected ErrEmptyPatch, got %v", err)
	}
}

func TestUpdateTransaction_OtherUsersTransaction(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	account := f.ledger.Account(t, 1, "Wallet", 1_000)

	created, err := f.engine.CreateTransaction(ctx, 1, CreateTransactionInput{
		AccountID:  account.ID,
		CategoryID: f.food.ID,
		Amount:     vnd(100),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	amount := vnd(1)
	if _, err := f.engine.UpdateTransaction(ctx, 2, created.ID, domain.TransactionPatch{Amount: &amount}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for update, got %v", err)
	}
	if err := f.engine.DeleteTransaction(ctx, 2, created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for delete, got %v", err)
	}
	assertBalance(t, f, account.ID, 900)
}

func TestDeleteTransaction_IncomeReversalNeedsFunds(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	userID := int32(1)
	account := f.ledger.Account(t, userID, "Wallet", 0)

	income, err := f.engine.CreateTransaction(ctx, userID, CreateTransactionInput{
		AccountID:  account.ID,
		CategoryID: f.salary.ID,
		Amount:     vnd(500),
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := f.engine.CreateTransaction(ctx, userID, CreateTransactionInput{
		AccountID:  account.ID,
		CategoryID: f.food.ID,
		Amount:     vnd(400),
	}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	err = f.engine.DeleteTransaction(ctx, userID, income.ID)
	if !errors.Is(err, domain.ErrNegativeBalance) {
		t.Fatalf("Expected ErrNegativeBalance, got %v", err)
	}
	assertBalance(t, f, account.ID, 100)
	if _, err := f.engine.GetTransaction(ctx, userID, income.ID); err != nil {
		t.Errorf("Expected income transaction to survive, got %v", err)
	}
}

func TestListTransactions_AccountFilterOwnership(t *testing.T) {
	f := setupEngine(t)
	ctx := context.Background()
	mine := f.ledger.Account(t, 1, "Mine", 1_000)
	other := f.ledger.Account(t, 1, "Other", 1_000)
	theirs := f.ledger.Account(t, 2, "Theirs", 1_000)

	for _, id := range []int32{mine.ID, mine.ID, other.ID} {
		if _, err := f.engine.CreateTransaction(ctx, 1, CreateTransactionInput{AccountID: id, CategoryID: f.food.ID, Amount: vnd(1)}); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	all, err := f.engine.ListTransactions(ctx, 1, domain.TransactionFilters{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 transactions, got %d", len(all))
	}

	filtered, err := f.engine.ListTransactions(ctx, 1, domain.TransactionFilters{AccountID: &mine.ID})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("Expected 2 transactions, got %d", len(filtered))
	}

	if _, err := f.engine.ListTransactions(ctx, 1, domain.TransactionFilters{AccountID: &theirs.ID}); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}
}

func TestCreateTransaction_ConcurrentExpensesNeverOverdraw(t *testing.T) {
	f := setupEngine(t)
	userID := int32(1)
	account := f.ledger.Account(t, userID, "Wallet", 300_000)

	const attempts = 50
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.CreateTransaction(context.Background(), userID, CreateTransactionInput{
				AccountID:  account.ID,
				CategoryID: f.food.ID,
				Amount:     vnd(10_000),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientFunds):
				rejected++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 30 || rejected != 20 {
		t.Errorf("Expected 30 posted and 20 rejected, got %d and %d", ok, rejected)
	}
	assertBalance(t, f, account.ID, 0)
	if n := len(f.ledger.Transactions(t, userID)); n != 30 {
		t.Errorf("Expected 30 stored transactions, got %d", n)
	}
}

// A unit that read the row before a concurrent update committed must still
// reverse the committed amount, not the one it first saw.
func TestUpdateTransaction_ReversesCommittedAmount(t *testing.T) {
	ledger := testutil.NewLedger(testNow)
	stale := testutil.NewStaleReadStore(ledger.Store)
	first := setupEngineWithStore(t, ledger, ledger.Store)
	second := NewTransactionService(stale, NewBudgetMonitor(ledger.Clock, zerolog.Nop(), domain.DefaultCurrency), ledger.Clock, zerolog.Nop())
	ctx := context.Background()
	userID := int32(1)
	account := ledger.Account(t, userID, "Wallet", 1_000)

	created, err := first.engine.CreateTransaction(ctx, userID, CreateTransactionInput{AccountID: account.ID, CategoryID: first.food.ID, Amount: vnd(300)})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	stale.SnapshotTransaction(t, userID, created.ID)

	firstAmount := vnd(500)
	if _, err := first.engine.UpdateTransaction(ctx, userID, created.ID, domain.TransactionPatch{Amount: &firstAmount}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertBalance(t, first, account.ID, 500)

	secondAmount := vnd(400)
	updated, err := second.UpdateTransaction(ctx, userID, created.ID, domain.TransactionPatch{Amount: &secondAmount})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !updated.Amount.Equal(vnd(400)) {
		t.Errorf("Expected amount 400, got %s", updated.Amount.String())
	}
	assertBalance(t, first, account.ID, 600)
}

func TestDeleteTransaction_ReversesCommittedAmount(t *testing.T) {
	ledger := testutil.NewLedger(testNow)
	stale := testutil.NewStaleReadStore(ledger.Store)
	first := setupEngineWithStore(t, ledger, ledger.Store)
	second := NewTransactionService(stale, NewBudgetMonitor(ledger.Clock, zerolog.Nop(), domain.DefaultCurrency), ledger.Clock, zerolog.Nop())
	ctx := context.Background()
	userID := int32(1)
	account := ledger.Account(t, userID, "Wallet", 1_000)
	other := ledger.Account(t, userID, "Savings", 1_000)

	created, err := first.engine.CreateTransaction(ctx, userID, CreateTransactionInput{AccountID: account.ID, CategoryID: first.food.ID, Amount: vnd(300)})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	stale.SnapshotTransaction(t, userID, created.ID)

	amount := vnd(500)
	if _, err := first.engine.UpdateTransaction(ctx, userID, created.ID, domain.TransactionPatch{Amount: &amount, AccountID: &other.ID}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertBalance(t, first, account.ID, 1_000)
	assertBalance(t, first, other.ID, 500)

	if err := second.DeleteTransaction(ctx, userID, created.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertBalance(t, first, account.ID, 1_000)
	assertBalance(t, first, other.ID, 1_000)
	if n := len(ledger.Transactions(t, userID)); n != 0 {
		t.Errorf("Expected no stored transaction, got %d", n)
	}
}

func TestCreateTransaction_MonitorFailureIsSwallowed(t *testing.T) {
	ledger := testutil.NewLedger(testNow)
	faulty := &testutil.FaultyStore{Store: ledger.Store, BudgetErr: errors.New("budget lookup down")}
	f := setupEngineWithStore(t, ledger, faulty)
	userID := int32(1)
	account := ledger.Account(t, userID, "Wallet", 1_000)

	created, err := f.engine.CreateTransaction(context.Background(), userID, CreateTransactionInput{
		AccountID:  account.ID,
		CategoryID: f.food.ID,
		Amount:     vnd(100),
	})
	if err != nil {
		t.Fatalf("Expected posting to succeed despite monitor failure, got %v", err)
	}
	if created.ID == 0 {
		t.Error("Expected transaction to be stored")
	}
	assertBalance(t, f, account.ID, 900)
}

func TestCreateTransaction_NotificationSinkFailureIsSwallowed(t *testing.T) {
	ledger := testutil.NewLedger(testNow)
	faulty := &testutil.FaultyStore{Store: ledger.Store, NotificationErr: errors.New("sink down")}
	f := setupEngineWithStore(t, ledger, faulty)
	userID := int32(1)
	account := ledger.Account(t, userID, "Wallet", 1_000)
	ledger.Budget(t, userID, f.food.ID, 100, testNow.AddDate(0, 0, -1), testNow.AddDate(0, 0, 1))

	_, err := f.engine.CreateTransaction(context.Background(), userID, CreateTransactionInput{
		AccountID:  account.ID,
		CategoryID: f.food.ID,
		Amount:     vnd(500),
	})
	if err != nil {
		t.Fatalf("Expected posting to succeed, got %v", err)
	}
	assertBalance(t, f, account.ID, 500)
	if n := len(ledger.Notifications(t, userID)); n != 0 {
		t.Errorf("Expected no notification, got %d", n)
	}
}
