package service

import (
	"context"
	"testing"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/dafibh/fortuna/ledger-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_Lifecycle(t *testing.T) {
	ledger := testutil.NewLedger(testNow)
	notificationService := NewNotificationService(ledger.Store, ledger.Clock)
	publisher := testutil.NewRecordingPublisher()
	notificationService.SetEventPublisher(publisher)
	ctx := context.Background()

	first, err := notificationService.Create(ctx, 1, " Reminder ", "Pay rent", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "Reminder", first.Title)
	assert.True(t, first.NotifyAt.Equal(testNow))
	_, err = notificationService.Create(ctx, 1, "Second", "", testNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"notification.created", "notification.created"}, publisher.Types(1))

	read, err := notificationService.MarkRead(ctx, 1, first.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	unread, err := notificationService.List(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "Second", unread[0].Title)

	changed, err := notificationService.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	assert.ErrorIs(t, notificationService.Delete(ctx, 2, first.ID), domain.ErrNotificationNotFound)
	require.NoError(t, notificationService.Delete(ctx, 1, first.ID))

	all, err := notificationService.List(ctx, 1, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNotificationService_TitleRequired(t *testing.T) {
	ledger := testutil.NewLedger(testNow)
	notificationService := NewNotificationService(ledger.Store, ledger.Clock)

	_, err := notificationService.Create(context.Background(), 1, "   ", "body", time.Time{})
	assert.ErrorIs(t, err, domain.ErrTitleRequired)
}
