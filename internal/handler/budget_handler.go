package handler

import (
	"net/http"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// BudgetHandler handles budget-related HTTP requests
type BudgetHandler struct {
	budgetService *service.BudgetService
}

// NewBudgetHandler creates a new BudgetHandler
func NewBudgetHandler(budgetService *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

// BudgetRequest is the create and patch body. Dates are inclusive calendar days.
type BudgetRequest struct {
	CategoryID *int32  `json:"categoryId,omitempty"`
	Amount     *string `json:"amount,omitempty"`
	StartDate  *string `json:"startDate,omitempty"`
	EndDate    *string `json:"endDate,omitempty"`
}

func (r BudgetRequest) patch() (domain.BudgetPatch, *ValidationError) {
	p := domain.BudgetPatch{CategoryID: r.CategoryID}
	var err error
	if p.Amount, err = parseOptionalAmount(r.Amount); err != nil {
		return p, &ValidationError{Field: "amount", Message: "Must be a valid decimal number"}
	}
	if p.StartDate, err = parseOptionalDate(r.StartDate); err != nil {
		return p, &ValidationError{Field: "startDate", Message: "Must be YYYY-MM-DD"}
	}
	if p.EndDate, err = parseOptionalDate(r.EndDate); err != nil {
		return p, &ValidationError{Field: "endDate", Message: "Must be YYYY-MM-DD"}
	}
	return p, nil
}

// CreateBudget handles POST /api/v1/budgets
func (h *BudgetHandler) CreateBudget(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}

	var req BudgetRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.CategoryID == nil {
		return NewFieldError(c, "categoryId", "Category ID is required")
	}
	if req.Amount == nil {
		return NewFieldError(c, "amount", "Amount is required")
	}
	p, verr := req.patch()
	if verr != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{*verr})
	}

	budget, err := h.budgetService.CreateBudget(c.Request().Context(), userID, service.CreateBudgetInput{
		CategoryID: *p.CategoryID,
		Amount:     *p.Amount,
		StartDate:  p.StartDate,
		EndDate:    p.EndDate,
	})
	if err != nil {
		return handleServiceError(c, err, "create budget")
	}
	return c.JSON(http.StatusCreated, budget)
}

// GetBudgets handles GET /api/v1/budgets
func (h *BudgetHandler) GetBudgets(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}

	budgets, err := h.budgetService.ListBudgets(c.Request().Context(), userID)
	if err != nil {
		return handleServiceError(c, err, "list budgets")
	}
	if budgets == nil {
		budgets = []*domain.Budget{}
	}
	return c.JSON(http.StatusOK, budgets)
}

// GetBudget handles GET /api/v1/budgets/:id
func (h *BudgetHandler) GetBudget(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid budget ID")
	}

	budget, err := h.budgetService.GetBudget(c.Request().Context(), userID, id)
	if err != nil {
		return handleServiceError(c, err, "get budget")
	}
	return c.JSON(http.StatusOK, budget)
}

// UpdateBudget handles PATCH /api/v1/budgets/:id
func (h *BudgetHandler) UpdateBudget(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid budget ID")
	}

	var req BudgetRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	p, verr := req.patch()
	if verr != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{*verr})
	}

	budget, err := h.budgetService.UpdateBudget(c.Request().Context(), userID, id, p)
	if err != nil {
		return handleServiceError(c, err, "update budget")
	}
	return c.JSON(http.StatusOK, budget)
}

// DeleteBudget handles DELETE /api/v1/budgets/:id
func (h *BudgetHandler) DeleteBudget(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid budget ID")
	}

	if err := h.budgetService.DeleteBudget(c.Request().Context(), userID, id); err != nil {
		return handleServiceError(c, err, "delete budget")
	}
	return c.NoContent(http.StatusNoContent)
}
