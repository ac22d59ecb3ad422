package handler

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/middleware"
	"github.com/dafibh/fortuna/ledger-backend/internal/service"
	"github.com/dafibh/fortuna/ledger-backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

type apiFixture struct {
	ledger    *testutil.Ledger
	publisher *testutil.RecordingPublisher
	handlers  Handlers
	food      *domain.Category
	salary    *domain.Category
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()
	ledger := testutil.NewLedger(testNow)
	store := ledger.Store

	monitor := service.NewBudgetMonitor(ledger.Clock, zerolog.Nop(), domain.DefaultCurrency)
	engine := service.NewTransactionService(store, monitor, ledger.Clock, zerolog.Nop())
	publisher := testutil.NewRecordingPublisher()
	engine.SetEventPublisher(publisher)
	notifications := service.NewNotificationService(store, ledger.Clock)
	notifications.SetEventPublisher(publisher)

	return &apiFixture{
		ledger:    ledger,
		publisher: publisher,
		handlers: Handlers{
			Account:      NewAccountHandler(service.NewAccountService(store)),
			Category:     NewCategoryHandler(service.NewCategoryService(store)),
			Transaction:  NewTransactionHandler(engine),
			Budget:       NewBudgetHandler(service.NewBudgetService(store, ledger.Clock)),
			Recurring:    NewRecurringHandler(service.NewRecurringService(store, ledger.Clock)),
			Notification: NewNotificationHandler(notifications),
			Loan:         NewLoanHandler(service.NewLoanService(store)),
		},
		food:   ledger.Category(t, "Food", domain.CategoryTypeExpense),
		salary: ledger.Category(t, "Salary", domain.CategoryTypeIncome),
	}
}

// newContext builds an echo context for a handler call. userID 0 means anonymous.
func newContext(method, target, body string, userID int32, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if userID != 0 {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) > 0 {
		var names, values []string
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	return c, rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
