package handler

import (
	"net/http"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// RecurringHandler handles recurring transaction HTTP requests
type RecurringHandler struct {
	recurringService *service.RecurringService
}

// NewRecurringHandler creates a new RecurringHandler
func NewRecurringHandler(recurringService *service.RecurringService) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService}
}

// RecurringRequest is the create and patch body
type RecurringRequest struct {
	AccountID    *int32  `json:"accountId,omitempty"`
	CategoryID   *int32  `json:"categoryId,omitempty"`
	Amount       *string `json:"amount,omitempty"`
	Description  *string `json:"description,omitempty"`
	Frequency    *string `json:"frequency,omitempty"`
	NextDate     *string `json:"nextDate,omitempty"`
	EndDate      *string `json:"endDate,omitempty"`
	ClearEndDate bool    `json:"clearEndDate,omitempty"`
}

func (r RecurringRequest) patch() (domain.RecurringPatch, *ValidationError) {
	p := domain.RecurringPatch{
		AccountID:    r.AccountID,
		CategoryID:   r.CategoryID,
		Description:  r.Description,
		ClearEndDate: r.ClearEndDate,
	}
	if r.Frequency != nil {
		f := domain.Frequency(*r.Frequency)
		p.Frequency = &f
	}
	var err error
	if p.Amount, err = parseOptionalAmount(r.Amount); err != nil {
		return p, &ValidationError{Field: "amount", Message: "Must be a valid decimal number"}
	}
	if p.NextDate, err = parseOptionalDate(r.NextDate); err != nil {
		return p, &ValidationError{Field: "nextDate", Message: "Must be YYYY-MM-DD or RFC 3339"}
	}
	if p.EndDate, err = parseOptionalDate(r.EndDate); err != nil {
		return p, &ValidationError{Field: "endDate", Message: "Must be YYYY-MM-DD or RFC 3339"}
	}
	return p, nil
}

// CreateRecurring handles POST /api/v1/recurring
func (h *RecurringHandler) CreateRecurring(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}

	var req RecurringRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	var fields []ValidationError
	if req.AccountID == nil {
		fields = append(fields, ValidationError{Field: "accountId", Message: "Account ID is required"})
	}
	if req.CategoryID == nil {
		fields = append(fields, ValidationError{Field: "categoryId", Message: "Category ID is required"})
	}
	if req.Amount == nil {
		fields = append(fields, ValidationError{Field: "amount", Message: "Amount is required"})
	}
	if req.Frequency == nil {
		fields = append(fields, ValidationError{Field: "frequency", Message: "Frequency is required"})
	}
	if len(fields) > 0 {
		return NewValidationError(c, "Validation failed", fields)
	}
	p, verr := req.patch()
	if verr != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{*verr})
	}

	input := service.CreateRecurringInput{
		AccountID:  *p.AccountID,
		CategoryID: *p.CategoryID,
		Amount:     *p.Amount,
		Frequency:  *p.Frequency,
		NextDate:   p.NextDate,
		EndDate:    p.EndDate,
	}
	if p.Description != nil {
		input.Description = *p.Description
	}

	rt, err := h.recurringService.CreateRecurring(c.Request().Context(), userID, input)
	if err != nil {
		return handleServiceError(c, err, "create recurring transaction")
	}
	return c.JSON(http.StatusCreated, rt)
}

// GetRecurring handles GET /api/v1/recurring, ordered by next date
func (h *RecurringHandler) GetRecurring(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}

	items, err := h.recurringService.ListRecurring(c.Request().Context(), userID)
	if err != nil {
		return handleServiceError(c, err, "list recurring transactions")
	}
	if items == nil {
		items = []*domain.RecurringTransaction{}
	}
	return c.JSON(http.StatusOK, items)
}

// GetRecurringByID handles GET /api/v1/recurring/:id
func (h *RecurringHandler) GetRecurringByID(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid recurring transaction ID")
	}

	rt, err := h.recurringService.GetRecurringByID(c.Request().Context(), userID, id)
	if err != nil {
		return handleServiceError(c, err, "get recurring transaction")
	}
	return c.JSON(http.StatusOK, rt)
}

// UpdateRecurring handles PATCH /api/v1/recurring/:id
func (h *RecurringHandler) UpdateRecurring(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid recurring transaction ID")
	}

	var req RecurringRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	p, verr := req.patch()
	if verr != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{*verr})
	}

	rt, err := h.recurringService.UpdateRecurring(c.Request().Context(), userID, id, p)
	if err != nil {
		return handleServiceError(c, err, "update recurring transaction")
	}
	return c.JSON(http.StatusOK, rt)
}

// DeleteRecurring handles DELETE /api/v1/recurring/:id
func (h *RecurringHandler) DeleteRecurring(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid recurring transaction ID")
	}

	if err := h.recurringService.DeleteRecurring(c.Request().Context(), userID, id); err != nil {
		return handleServiceError(c, err, "delete recurring transaction")
	}
	return c.NoContent(http.StatusNoContent)
}
