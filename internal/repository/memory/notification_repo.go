package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
)

type notificationRepo struct {
	v view
}

func (r *notificationRepo) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	var out domain.Notification
	err := r.v.write(func(st *state, now time.Time) error {
		out = *n
		out.ID = st.nextID("notifications")
		out.Read = false
		if out.NotifyAt.IsZero() {
			out.NotifyAt = now
		}
		out.CreatedAt = now
		out.UpdatedAt = now
		st.notifications[out.ID] = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID int32, unreadOnly bool) ([]*domain.Notification, error) {
	var out []*domain.Notification
	err := r.v.read(func(st *state) error {
		for _, n := range st.notifications {
			if n.UserID != userID || (unreadOnly && n.Read) {
				continue
			}
			n := n
			out = append(out, &n)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NotifyAt.Equal(out[j].NotifyAt) {
			return out[i].NotifyAt.After(out[j].NotifyAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, userID int32, id int32) (*domain.Notification, error) {
	var out domain.Notification
	err := r.v.write(func(st *state, now time.Time) error {
		n, ok := st.notifications[id]
		if !ok || n.UserID != userID {
			return fmt.Errorf("%w: id %d", domain.ErrNotificationNotFound, id)
		}
		if !n.Read {
			n.Read = true
			n.UpdatedAt = now
			st.notifications[id] = n
		}
		out = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID int32) (int64, error) {
	var count int64
	err := r.v.write(func(st *state, now time.Time) error {
		for id, n := range st.notifications {
			if n.UserID != userID || n.Read {
				continue
			}
			n.Read = true
			n.UpdatedAt = now
			st.notifications[id] = n
			count++
		}
		return nil
	})
	return count, err
}

func (r *notificationRepo) Delete(ctx context.Context, userID int32, id int32) error {
	return r.v.write(func(st *state, _ time.Time) error {
		n, ok := st.notifications[id]
		if !ok || n.UserID != userID {
			return fmt.Errorf("%w: id %d", domain.ErrNotificationNotFound, id)
		}
		delete(st.notifications, id)
		return nil
	})
}
