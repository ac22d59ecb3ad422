package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBudget_DefaultsToCurrentMonth(t *testing.T) {
	f := setupAPI(t)
	body := fmt.Sprintf(`{"categoryId": %d, "amount": "200000"}`, f.food.ID)
	c, rec := newContext(http.MethodPost, "/api/v1/budgets", body, 1)

	require.NoError(t, f.handlers.Budget.CreateBudget(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	b := decode[domain.Budget](t, rec)
	assert.Equal(t, "2025-03-01", b.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2025-03-31", b.EndDate.Format("2006-01-02"))
	assert.True(t, b.Amount.Equal(decimal.NewFromInt(200_000)))
}

func TestCreateBudget_Validation(t *testing.T) {
	f := setupAPI(t)
	tests := []struct {
		name string
		body string
	}{
		{"missing category", `{"amount": "1"}`},
		{"missing amount", fmt.Sprintf(`{"categoryId": %d}`, f.food.ID)},
		{"zero amount", fmt.Sprintf(`{"categoryId": %d, "amount": "0"}`, f.food.ID)},
		{"end before start", fmt.Sprintf(`{"categoryId": %d, "amount": "1", "startDate": "2025-03-10", "endDate": "2025-03-01"}`, f.food.ID)},
		{"bad date", fmt.Sprintf(`{"categoryId": %d, "amount": "1", "startDate": "March"}`, f.food.ID)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext(http.MethodPost, "/api/v1/budgets", tt.body, 1)
			require.NoError(t, f.handlers.Budget.CreateBudget(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	c, rec := newContext(http.MethodPost, "/api/v1/budgets", `{"categoryId": 9999, "amount": "1"}`, 1)
	require.NoError(t, f.handlers.Budget.CreateBudget(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBudgetHandler_UpdateAndDelete(t *testing.T) {
	f := setupAPI(t)
	b := f.ledger.Budget(t, 1, f.food.ID, 100_000, testNow, testNow.AddDate(0, 0, 10))
	id := fmt.Sprint(b.ID)

	c, rec := newContext(http.MethodPatch, "/api/v1/budgets/"+id, `{"amount": "150000"}`, 1, "id", id)
	require.NoError(t, f.handlers.Budget.UpdateBudget(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[domain.Budget](t, rec).Amount.Equal(decimal.NewFromInt(150_000)))

	c, rec = newContext(http.MethodPatch, "/api/v1/budgets/"+id, `{"amount": "1"}`, 2, "id", id)
	require.NoError(t, f.handlers.Budget.UpdateBudget(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newContext(http.MethodDelete, "/api/v1/budgets/"+id, "", 1, "id", id)
	require.NoError(t, f.handlers.Budget.DeleteBudget(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, rec = newContext(http.MethodGet, "/api/v1/budgets", "", 1)
	require.NoError(t, f.handlers.Budget.GetBudgets(c))
	assert.Equal(t, "[]\n", rec.Body.String())
}
