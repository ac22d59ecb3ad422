package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dafibh/fortuna/ledger-backend/internal/websocket"
	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp091.Publishing
}

type fakeChannel struct {
	mu      sync.Mutex
	sent    []published
	fail    error
	closed  bool
	release chan struct{}
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "ledger.transaction.created", RoutingKey(websocket.TransactionCreated(nil)))
	assert.Equal(t, "ledger.recurring.skipped", RoutingKey(websocket.RecurringSkipped(nil)))
}

func TestPublisher_PublishesAfterClose(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "ledger.events", zerolog.Nop())

	p.Publish(3, websocket.TransactionCreated(map[string]interface{}{"id": 9}))
	p.Publish(3, websocket.NotificationCreated(map[string]interface{}{"id": 1}))
	require.NoError(t, p.Close())

	require.Len(t, ch.sent, 2)
	assert.True(t, ch.closed)
	assert.Equal(t, "ledger.events", ch.sent[0].exchange)
	assert.Equal(t, "ledger.transaction.created", ch.sent[0].key)
	assert.Equal(t, "application/json", ch.sent[0].msg.ContentType)
	assert.Equal(t, amqp091.Persistent, ch.sent[0].msg.DeliveryMode)

	var body struct {
		UserID int32 `json:"userId"`
		Event  struct {
			Type string `json:"type"`
		} `json:"event"`
	}
	require.NoError(t, json.Unmarshal(ch.sent[1].msg.Body, &body))
	assert.Equal(t, int32(3), body.UserID)
	assert.Equal(t, "notification.created", body.Event.Type)
}

func TestPublisher_IgnoresPublishAfterClose(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "x", zerolog.Nop())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	assert.NotPanics(t, func() { p.Publish(1, websocket.TransactionCreated(nil)) })
	assert.Empty(t, ch.sent)
}

func TestPublisher_BrokerErrorsAreLogged(t *testing.T) {
	ch := &fakeChannel{fail: errors.New("channel/connection is not open")}
	p := NewPublisher(ch, "x", zerolog.Nop())

	p.Publish(1, websocket.TransactionCreated(nil))
	assert.NoError(t, p.Close())
	assert.Empty(t, ch.sent)
}

func TestPublisher_DropsWhenQueueFull(t *testing.T) {
	ch := &fakeChannel{release: make(chan struct{})}
	p := NewPublisher(ch, "x", zerolog.Nop())

	for i := 0; i < queueSize+10; i++ {
		p.Publish(1, websocket.TransactionCreated(i))
	}
	close(ch.release)
	require.NoError(t, p.Close())

	assert.LessOrEqual(t, len(ch.sent), queueSize+1)
	assert.GreaterOrEqual(t, len(ch.sent), queueSize)
}
