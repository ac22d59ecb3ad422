package service

import (
	"context"
	"strings"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/websocket"
)

// NotificationService is the notification sink plus the read-side operations
type NotificationService struct {
	store          domain.Store
	clock          domain.Clock
	eventPublisher websocket.EventPublisher
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(store domain.Store, clock domain.Clock) *NotificationService {
	return &NotificationService{store: store, clock: clock}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *NotificationService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// Create records a notification for the user. A zero notifyAt means now.
func (s *NotificationService) Create(ctx context.Context, userID int32, title, message string, notifyAt time.Time) (*domain.Notification, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.ErrTitleRequired
	}
	if len(title) > domain.MaxNameLength {
		return nil, domain.ErrNameTooLong
	}
	if notifyAt.IsZero() {
		notifyAt = s.clock.Now()
	}

	n, err := s.store.Notifications().Create(ctx, &domain.Notification{
		UserID:   userID,
		Title:    title,
		Message:  strings.TrimSpace(message),
		NotifyAt: notifyAt.UTC(),
	})
	if err != nil {
		return nil, err
	}
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(userID, websocket.NotificationCreated(n))
	}
	return n, nil
}

// List returns the user's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID int32, unreadOnly bool) ([]*domain.Notification, error) {
	return s.store.Notifications().ListByUser(ctx, userID, unreadOnly)
}

// MarkRead flags one notification as read
func (s *NotificationService) MarkRead(ctx context.Context, userID int32, id int32) (*domain.Notification, error) {
	return s.store.Notifications().MarkRead(ctx, userID, id)
}

// MarkAllRead flags every unread notification and returns how many changed
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int32) (int64, error) {
	return s.store.Notifications().MarkAllRead(ctx, userID)
}

// Delete removes a notification
func (s *NotificationService) Delete(ctx context.Context, userID int32, id int32) error {
	return s.store.Notifications().Delete(ctx, userID, id)
}
