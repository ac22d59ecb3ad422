package handler

import (
	"net/http"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// TransactionHandler handles transaction-related HTTP requests
type TransactionHandler struct {
	transactionService *service.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateTransactionRequest represents the create transaction request body
type CreateTransactionRequest struct {
	AccountID     int32   `json:"accountId"`
	CategoryID    int32   `json:"categoryId"`
	Amount        string  `json:"amount"`
	Description   string  `json:"description"`
	ExecutionDate *string `json:"executionDate,omitempty"`
}

// UpdateTransactionRequest represents the patch body. Omitted fields are kept.
type UpdateTransactionRequest struct {
	AccountID     *int32  `json:"accountId,omitempty"`
	CategoryID    *int32  `json:"categoryId,omitempty"`
	Amount        *string `json:"amount,omitempty"`
	Description   *string `json:"description,omitempty"`
	ExecutionDate *string `json:"executionDate,omitempty"`
}

// CreateTransaction handles POST /api/v1/transactions
func (h *TransactionHandler) CreateTransaction(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}

	var req CreateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.AccountID <= 0 {
		return NewFieldError(c, "accountId", "Account ID is required")
	}
	if req.CategoryID <= 0 {
		return NewFieldError(c, "categoryId", "Category ID is required")
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return NewFieldError(c, "amount", "Must be a valid decimal number")
	}
	executionDate, err := parseOptionalDate(req.ExecutionDate)
	if err != nil {
		return NewFieldError(c, "executionDate", "Must be YYYY-MM-DD or RFC 3339")
	}

	transaction, err := h.transactionService.CreateTransaction(c.Request().Context(), userID, service.CreateTransactionInput{
		AccountID:     req.AccountID,
		CategoryID:    req.CategoryID,
		Amount:        amount,
		Description:   req.Description,
		ExecutionDate: executionDate,
	})
	if err != nil {
		return handleServiceError(c, err, "create transaction")
	}

	return c.JSON(http.StatusCreated, transaction)
}

// GetTransactions handles GET /api/v1/transactions?accountId=
func (h *TransactionHandler) GetTransactions(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}

	var filters domain.TransactionFilters
	if raw := c.QueryParam("accountId"); raw != "" {
		accountID, ok := parsePositiveID(raw)
		if !ok {
			return NewFieldError(c, "accountId", "Must be a positive integer")
		}
		filters.AccountID = &accountID
	}

	transactions, err := h.transactionService.ListTransactions(c.Request().Context(), userID, filters)
	if err != nil {
		return handleServiceError(c, err, "list transactions")
	}
	if transactions == nil {
		transactions = []*domain.Transaction{}
	}
	return c.JSON(http.StatusOK, transactions)
}

// GetTransaction handles GET /api/v1/transactions/:id
func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid transaction ID")
	}

	transaction, err := h.transactionService.GetTransaction(c.Request().Context(), userID, id)
	if err != nil {
		return handleServiceError(c, err, "get transaction")
	}
	return c.JSON(http.StatusOK, transaction)
}

// UpdateTransaction handles PATCH /api/v1/transactions/:id
func (h *TransactionHandler) UpdateTransaction(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid transaction ID")
	}

	var req UpdateTransactionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	patch := domain.TransactionPatch{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Description: req.Description,
	}
	if patch.Amount, err = parseOptionalAmount(req.Amount); err != nil {
		return NewFieldError(c, "amount", "Must be a valid decimal number")
	}
	if patch.ExecutionDate, err = parseOptionalDate(req.ExecutionDate); err != nil {
		return NewFieldError(c, "executionDate", "Must be YYYY-MM-DD or RFC 3339")
	}

	transaction, err := h.transactionService.UpdateTransaction(c.Request().Context(), userID, id, patch)
	if err != nil {
		return handleServiceError(c, err, "update transaction")
	}
	return c.JSON(http.StatusOK, transaction)
}

// DeleteTransaction handles DELETE /api/v1/transactions/:id
func (h *TransactionHandler) DeleteTransaction(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid transaction ID")
	}

	if err := h.transactionService.DeleteTransaction(c.Request().Context(), userID, id); err != nil {
		return handleServiceError(c, err, "delete transaction")
	}
	return c.NoContent(http.StatusNoContent)
}
