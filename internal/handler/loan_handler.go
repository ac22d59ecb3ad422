package handler

import (
	"net/http"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// LoanHandler handles loan-related HTTP requests
type LoanHandler struct {
	loanService *service.LoanService
}

// NewLoanHandler creates a new LoanHandler
func NewLoanHandler(loanService *service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// LoanRequest is the create and patch body
type LoanRequest struct {
	Lender       *string `json:"lender,omitempty"`
	Principal    *string `json:"principal,omitempty"`
	InterestRate *string `json:"interestRate,omitempty"`
	StartDate    *string `json:"startDate,omitempty"`
	EndDate      *string `json:"endDate,omitempty"`
	Status       *string `json:"status,omitempty"`
}

func (r LoanRequest) patch() (domain.LoanPatch, *ValidationError) {
	p := domain.LoanPatch{Lender: r.Lender}
	if r.Status != nil {
		s := domain.LoanStatus(*r.Status)
		p.Status = &s
	}
	var err error
	if p.Principal, err = parseOptionalAmount(r.Principal); err != nil {
		return p, &ValidationError{Field: "principal", Message: "Must be a valid decimal number"}
	}
	if p.InterestRate, err = parseOptionalAmount(r.InterestRate); err != nil {
		return p, &ValidationError{Field: "interestRate", Message: "Must be a valid decimal number"}
	}
	if p.StartDate, err = parseOptionalDate(r.StartDate); err != nil {
		return p, &ValidationError{Field: "startDate", Message: "Must be YYYY-MM-DD"}
	}
	if p.EndDate, err = parseOptionalDate(r.EndDate); err != nil {
		return p, &ValidationError{Field: "endDate", Message: "Must be YYYY-MM-DD"}
	}
	return p, nil
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}

	var req LoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.Principal == nil {
		return NewFieldError(c, "principal", "Principal is required")
	}
	p, verr := req.patch()
	if verr != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{*verr})
	}

	input := service.CreateLoanInput{
		Lender:       p.Lender,
		Principal:    *p.Principal,
		InterestRate: p.InterestRate,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
	}
	if p.Status != nil {
		input.Status = *p.Status
	}

	loan, err := h.loanService.CreateLoan(c.Request().Context(), userID, input)
	if err != nil {
		return handleServiceError(c, err, "create loan")
	}
	return c.JSON(http.StatusCreated, loan)
}

// GetLoans handles GET /api/v1/loans?status=
func (h *LoanHandler) GetLoans(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}

	var status *domain.LoanStatus
	if raw := c.QueryParam("status"); raw != "" {
		s := domain.LoanStatus(raw)
		status = &s
	}

	loans, err := h.loanService.ListLoans(c.Request().Context(), userID, status)
	if err != nil {
		return handleServiceError(c, err, "list loans")
	}
	if loans == nil {
		loans = []*domain.Loan{}
	}
	return c.JSON(http.StatusOK, loans)
}

// GetLoan handles GET /api/v1/loans/:id
func (h *LoanHandler) GetLoan(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid loan ID")
	}

	loan, err := h.loanService.GetLoan(c.Request().Context(), userID, id)
	if err != nil {
		return handleServiceError(c, err, "get loan")
	}
	return c.JSON(http.StatusOK, loan)
}

// UpdateLoan handles PATCH /api/v1/loans/:id
func (h *LoanHandler) UpdateLoan(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid loan ID")
	}

	var req LoanRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	p, verr := req.patch()
	if verr != nil {
		return NewValidationError(c, "Validation failed", []ValidationError{*verr})
	}

	loan, err := h.loanService.UpdateLoan(c.Request().Context(), userID, id, p)
	if err != nil {
		return handleServiceError(c, err, "update loan")
	}
	return c.JSON(http.StatusOK, loan)
}

// DeleteLoan handles DELETE /api/v1/loans/:id
func (h *LoanHandler) DeleteLoan(c echo.Context) error {
	userID, err := requireUser(c)
	if userID == 0 {
		return err
	}
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid loan ID")
	}

	if err := h.loanService.DeleteLoan(c.Request().Context(), userID, id); err != nil {
		return handleServiceError(c, err, "delete loan")
	}
	return c.NoContent(http.StatusNoContent)
}
