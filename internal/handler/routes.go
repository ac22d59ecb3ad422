package handler

import (
	"github.com/dafibh/fortuna/ledger-backend/internal/middleware"
	"github.com/labstack/echo/v4"
)

// Handlers groups the API handlers mounted by RegisterRoutes
type Handlers struct {
	Account      *AccountHandler
	Category     *CategoryHandler
	Transaction  *TransactionHandler
	Budget       *BudgetHandler
	Recurring    *RecurringHandler
	Notification *NotificationHandler
	Loan         *LoanHandler
	WebSocket    *WebSocketHandler
}

// RegisterRoutes sets up all API routes. A nil rate limiter disables limiting.
func RegisterRoutes(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, rateLimiter *middleware.RateLimiter, h Handlers) {
	// The websocket handshake authenticates with a query token
	e.GET("/ws", h.WebSocket.HandleWS)

	api := e.Group("/api/v1")
	api.Use(authMiddleware.Authenticate())
	if rateLimiter != nil {
		api.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	accounts := api.Group("/accounts")
	accounts.POST("", h.Account.CreateAccount)
	accounts.GET("", h.Account.GetAccounts)
	accounts.GET("/:id", h.Account.GetAccount)
	accounts.PATCH("/:id", h.Account.UpdateAccount)
	accounts.DELETE("/:id", h.Account.DeleteAccount)

	categories := api.Group("/categories")
	categories.POST("", h.Category.CreateCategory)
	categories.GET("", h.Category.GetCategories)
	categories.GET("/:id", h.Category.GetCategory)
	categories.PATCH("/:id", h.Category.RenameCategory)

	transactions := api.Group("/transactions")
	transactions.POST("", h.Transaction.CreateTransaction)
	transactions.GET("", h.Transaction.GetTransactions)
	transactions.GET("/:id", h.Transaction.GetTransaction)
	transactions.PATCH("/:id", h.Transaction.UpdateTransaction)
	transactions.DELETE("/:id", h.Transaction.DeleteTransaction)

	budgets := api.Group("/budgets")
	budgets.POST("", h.Budget.CreateBudget)
	budgets.GET("", h.Budget.GetBudgets)
	budgets.GET("/:id", h.Budget.GetBudget)
	budgets.PATCH("/:id", h.Budget.UpdateBudget)
	budgets.DELETE("/:id", h.Budget.DeleteBudget)

	recurring := api.Group("/recurring")
	recurring.POST("", h.Recurring.CreateRecurring)
	recurring.GET("", h.Recurring.GetRecurring)
	recurring.GET("/:id", h.Recurring.GetRecurringByID)
	recurring.PATCH("/:id", h.Recurring.UpdateRecurring)
	recurring.DELETE("/:id", h.Recurring.DeleteRecurring)

	notifications := api.Group("/notifications")
	notifications.GET("", h.Notification.GetNotifications)
	notifications.POST("/read-all", h.Notification.MarkAllRead)
	notifications.POST("/:id/read", h.Notification.MarkRead)
	notifications.DELETE("/:id", h.Notification.DeleteNotification)

	loans := api.Group("/loans")
	loans.POST("", h.Loan.CreateLoan)
	loans.GET("", h.Loan.GetLoans)
	loans.GET("/:id", h.Loan.GetLoan)
	loans.PATCH("/:id", h.Loan.UpdateLoan)
	loans.DELETE("/:id", h.Loan.DeleteLoan)
}
