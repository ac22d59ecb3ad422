package handler

import (
	"net/http"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	accountService *service.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// CreateAccountRequest represents the create account request body
type CreateAccountRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Balance  string `json:"balance,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// UpdateAccountRequest represents the account patch body. Balance cannot be edited.
type UpdateAccountRequest struct {
	Name     *string `json:"name,omitempty"`
	Type     *string `json:"type,omitempty"`
	Currency *string `json:"currency,omitempty"`
}

// CreateAccount handles POST /api/v1/accounts
func (h *AccountHandler) CreateAccount(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}

	var req CreateAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	balance := decimal.Zero
	if req.Balance != "" {
		if balance, err = parseAmount(req.Balance); err != nil {
			return NewFieldError(c, "balance", "Must be a valid decimal number")
		}
	}

	account, err := h.accountService.CreateAccount(c.Request().Context(), userID, service.CreateAccountInput{
		Name:     req.Name,
		Type:     domain.AccountType(req.Type),
		Balance:  balance,
		Currency: req.Currency,
	})
	if err != nil {
		return handleServiceError(c, err, "create account")
	}

	return c.JSON(http.StatusCreated, account)
}

// GetAccounts handles GET /api/v1/accounts
func (h *AccountHandler) GetAccounts(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}

	accounts, err := h.accountService.GetAccounts(c.Request().Context(), userID)
	if err != nil {
		return handleServiceError(c, err, "list accounts")
	}
	if accounts == nil {
		accounts = []*domain.Account{}
	}
	return c.JSON(http.StatusOK, accounts)
}

// GetAccount handles GET /api/v1/accounts/:id
func (h *AccountHandler) GetAccount(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid account ID")
	}

	account, err := h.accountService.GetAccountByID(c.Request().Context(), userID, id)
	if err != nil {
		return handleServiceError(c, err, "get account")
	}
	return c.JSON(http.StatusOK, account)
}

// UpdateAccount handles PATCH /api/v1/accounts/:id
func (h *AccountHandler) UpdateAccount(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid account ID")
	}

	var req UpdateAccountRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	patch := domain.AccountPatch{Name: req.Name, Currency: req.Currency}
	if req.Type != nil {
		t := domain.AccountType(*req.Type)
		patch.Type = &t
	}

	account, err := h.accountService.UpdateAccount(c.Request().Context(), userID, id, patch)
	if err != nil {
		return handleServiceError(c, err, "update account")
	}
	return c.JSON(http.StatusOK, account)
}

// DeleteAccount handles DELETE /api/v1/accounts/:id
func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid account ID")
	}

	if err := h.accountService.DeleteAccount(c.Request().Context(), userID, id); err != nil {
		return handleServiceError(c, err, "delete account")
	}
	return c.NoContent(http.StatusNoContent)
}
