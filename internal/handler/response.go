package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// BalanceProblem is the problem body for postings rejected by the balance check
type BalanceProblem struct {
	ProblemDetails
	AccountID int32           `json:"accountId"`
	Balance   decimal.Decimal `json:"balance"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation        = "https://ledger.app/errors/validation"
	ErrorTypeInsufficientFunds = "https://ledger.app/errors/insufficient-funds"
	ErrorTypeNegativeBalance   = "https://ledger.app/errors/negative-balance"
	ErrorTypeNotFound          = "https://ledger.app/errors/not-found"
	ErrorTypeUnauthorized      = "https://ledger.app/errors/unauthorized"
	ErrorTypeForbidden         = "https://ledger.app/errors/forbidden"
	ErrorTypeConflict          = "https://ledger.app/errors/conflict"
	ErrorTypeInternal          = "https://ledger.app/errors/internal"
)

func problem(c echo.Context, status int, typ, title, detail string) error {
	return c.JSON(status, ProblemDetails{
		Type:     typ,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ProblemDetails{
		Type:     ErrorTypeValidation,
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errors,
	})
}

// NewFieldError is a validation error for a single field
func NewFieldError(c echo.Context, field, message string) error {
	return NewValidationError(c, "Validation failed", []ValidationError{{Field: field, Message: message}})
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return problem(c, http.StatusNotFound, ErrorTypeNotFound, "Not Found", detail)
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnauthorized, ErrorTypeUnauthorized, "Unauthorized", detail)
}

// NewForbiddenError creates a forbidden error response
func NewForbiddenError(c echo.Context, detail string) error {
	return problem(c, http.StatusForbidden, ErrorTypeForbidden, "Forbidden", detail)
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return problem(c, http.StatusConflict, ErrorTypeConflict, "Conflict", detail)
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return problem(c, http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error", detail)
}

// newBalanceError renders a rejected posting with the figures involved
func newBalanceError(c echo.Context, be *domain.BalanceError) error {
	typ, title := ErrorTypeInsufficientFunds, "Insufficient Funds"
	if errors.Is(be, domain.ErrNegativeBalance) {
		typ, title = ErrorTypeNegativeBalance, "Negative Balance"
	}
	return c.JSON(http.StatusBadRequest, BalanceProblem{
		ProblemDetails: ProblemDetails{
			Type:     typ,
			Title:    title,
			Status:   http.StatusBadRequest,
			Detail:   be.Error(),
			Instance: c.Request().URL.Path,
		},
		AccountID: be.AccountID,
		Balance:   be.Balance,
		Amount:    be.Amount,
		Currency:  be.Currency,
	})
}

// handleServiceError maps a domain error kind to its problem response
func handleServiceError(c echo.Context, err error, action string) error {
	var be *domain.BalanceError
	switch {
	case errors.As(err, &be):
		return newBalanceError(c, be)
	case errors.Is(err, domain.ErrValidation):
		return NewValidationError(c, err.Error(), nil)
	case errors.Is(err, domain.ErrForbidden):
		return NewForbiddenError(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return NewNotFoundError(c, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return NewConflictError(c, err.Error())
	}

	log.Error().Err(err).
		Int32("user_id", middleware.GetUserID(c)).
		Str("path", c.Request().URL.Path).
		Msg("Failed to " + action)
	return NewInternalError(c, "Failed to "+action)
}

// requireUser returns the authenticated user id or writes a 401
func requireUser(c echo.Context) (int32, error) {
	userID := middleware.GetUserID(c)
	if userID == 0 {
		return 0, NewUnauthorizedError(c, "Authentication required")
	}
	return userID, nil
}

// parseID reads a positive int32 path parameter
func parseID(c echo.Context, name string) (int32, bool) {
	return parsePositiveID(c.Param(name))
}

func parsePositiveID(s string) (int32, bool) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil || id <= 0 {
		return 0, false
	}
	return int32(id), true
}

// parseAmount parses a decimal string such as "150000" or "12.50"
func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// parseDate accepts YYYY-MM-DD or RFC 3339 and returns UTC
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// parseOptionalDate parses a nil-able date field
func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseOptionalAmount parses a nil-able amount field
func parseOptionalAmount(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := parseAmount(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
