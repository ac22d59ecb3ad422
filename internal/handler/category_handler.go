package handler

import (
	"net/http"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/service"
	"github.com/labstack/echo/v4"
)

// CategoryHandler serves the global category list
type CategoryHandler struct {
	categoryService *service.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// CategoryRequest is the body for creating or renaming a category
type CategoryRequest struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// CreateCategory handles POST /api/v1/categories
func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	category, err := h.categoryService.CreateCategory(c.Request().Context(), req.Name, domain.CategoryType(req.Type))
	if err != nil {
		return handleServiceError(c, err, "create category")
	}
	return c.JSON(http.StatusCreated, category)
}

// GetCategories handles GET /api/v1/categories?type=INCOME|EXPENSE
func (h *CategoryHandler) GetCategories(c echo.Context) error {
	var filter *domain.CategoryType
	if raw := c.QueryParam("type"); raw != "" {
		t := domain.CategoryType(raw)
		filter = &t
	}

	categories, err := h.categoryService.ListCategories(c.Request().Context(), filter)
	if err != nil {
		return handleServiceError(c, err, "list categories")
	}
	if categories == nil {
		categories = []*domain.Category{}
	}
	return c.JSON(http.StatusOK, categories)
}

// GetCategory handles GET /api/v1/categories/:id
func (h *CategoryHandler) GetCategory(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid category ID")
	}

	category, err := h.categoryService.GetCategory(c.Request().Context(), id)
	if err != nil {
		return handleServiceError(c, err, "get category")
	}
	return c.JSON(http.StatusOK, category)
}

// RenameCategory handles PATCH /api/v1/categories/:id. The type cannot change.
func (h *CategoryHandler) RenameCategory(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return NewFieldError(c, "id", "Invalid category ID")
	}
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	if req.Type != "" {
		return NewFieldError(c, "type", "Category type cannot be changed")
	}

	category, err := h.categoryService.RenameCategory(c.Request().Context(), id, req.Name)
	if err != nil {
		return handleServiceError(c, err, "rename category")
	}
	return c.JSON(http.StatusOK, category)
}
