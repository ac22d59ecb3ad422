package domain

import (
	"context"
	"time"
)

type Notification struct {
	ID        int32     `json:"id"`
	UserID    int32     `json:"userId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	NotifyAt  time.Time `json:"notifyAt"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Notification titles emitted by the ledger
const (
	TitleBudgetExceeded  = "Budget exceeded"
	TitleBudgetWarning   = "Budget warning"
	TitleRecurringPosted = "Recurring transaction processed"
	TitleRecurringFailed = "Recurring transaction failed"
	TitleLoanDueSoon     = "Loan due soon"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) (*Notification, error)
	ListByUser(ctx context.Context, userID int32, unreadOnly bool) ([]*Notification, error)
	MarkRead(ctx context.Context, userID int32, id int32) (*Notification, error)
	MarkAllRead(ctx context.Context, userID int32) (int64, error)
	Delete(ctx context.Context, userID int32, id int32) error
}
