package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeCash         AccountType = "CASH"
	AccountTypeBank         AccountType = "BANK"
	AccountTypeEWallet      AccountType = "E_WALLET"
	AccountTypeInvestment   AccountType = "INVESTMENT"
	AccountTypeCreditCard   AccountType = "CREDIT_CARD"
	AccountTypeCryptoWallet AccountType = "CRYPTO_WALLET"
	AccountTypeOther        AccountType = "OTHER"
)

// DefaultCurrency is used when an account is created without one
const DefaultCurrency = "VND"

// Valid reports whether t is a known account type
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeCash, AccountTypeBank, AccountTypeEWallet, AccountTypeInvestment,
		AccountTypeCreditCard, AccountTypeCryptoWallet, AccountTypeOther:
		return true
	}
	return false
}

type Account struct {
	ID        int32           `json:"id"`
	UserID    int32           `json:"userId"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// AccountPatch lists the account fields that may be edited directly.
// Balance is absent: it only changes through ledger postings.
type AccountPatch struct {
	Name     *string
	Type     *AccountType
	Currency *string
}

// Validate checks and normalizes the patch in place
func (p *AccountPatch) Validate() error {
	if p.Name == nil && p.Type == nil && p.Currency == nil {
		return ErrEmptyPatch
	}
	if p.Name != nil {
		name, err := ValidateName(*p.Name)
		if err != nil {
			return err
		}
		p.Name = &name
	}
	if p.Type != nil && !p.Type.Valid() {
		return ErrInvalidAccountType
	}
	if p.Currency != nil {
		code, err := NormalizeCurrency(*p.Currency)
		if err != nil {
			return err
		}
		p.Currency = &code
	}
	return nil
}

// Apply copies the set fields onto a
func (p AccountPatch) Apply(a *Account) {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Currency != nil {
		a.Currency = *p.Currency
	}
}

// ValidateName trims and length-checks a display name
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameRequired
	}
	if len(name) > MaxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

// NormalizeCurrency upper-cases and checks an ISO 4217 style code
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return code, nil
}

type AccountRepository interface {
	Create(ctx context.Context, account *Account) (*Account, error)
	GetByID(ctx context.Context, userID int32, id int32) (*Account, error)
	ListByUser(ctx context.Context, userID int32) ([]*Account, error)
	// LockByIDs loads the given accounts and holds a write lock on each until
	// the enclosing unit ends. Rows are locked in ascending id order.
	LockByIDs(ctx context.Context, ids ...int32) (map[int32]*Account, error)
	Update(ctx context.Context, account *Account) (*Account, error)
	// AdjustBalance adds delta to the stored balance and returns the result
	AdjustBalance(ctx context.Context, id int32, delta decimal.Decimal) (decimal.Decimal, error)
	HasReferences(ctx context.Context, id int32) (bool, error)
	Delete(ctx context.Context, userID int32, id int32) error
}
