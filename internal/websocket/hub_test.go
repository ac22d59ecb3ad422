package websocket

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is a test double for Client that captures sent messages
type mockClient struct {
	id       string
	userID   int32
	messages [][]byte
	mu       sync.Mutex
	closed   bool
	failSend bool
}

func newMockClient(id string, userID int32) *mockClient {
	return &mockClient{id: id, userID: userID}
}

func (m *mockClient) ID() string { return m.id }

func (m *mockClient) UserID() int32 { return m.userID }

func (m *mockClient) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.failSend {
		return ErrClientClosed
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *mockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockClient) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockClient) Messages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([][]byte, len(m.messages))
	copy(copied, m.messages)
	return copied
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 0)

	client1 := newMockClient("client-1", 1)
	client2 := newMockClient("client-2", 1)
	client3 := newMockClient("client-3", 2)

	require.NoError(t, hub.Register(client1))
	require.NoError(t, hub.Register(client2))
	require.NoError(t, hub.Register(client3))

	assert.Equal(t, 2, hub.ClientCount(1))
	assert.Equal(t, 1, hub.ClientCount(2))
	assert.Equal(t, 3, hub.TotalClientCount())

	hub.Unregister(client1)
	assert.Equal(t, 1, hub.ClientCount(1))

	hub.Unregister(client2)
	assert.Equal(t, 0, hub.ClientCount(1))
	assert.Equal(t, 1, hub.TotalClientCount())

	// Unregistering twice is harmless
	hub.Unregister(client2)
	assert.Equal(t, 1, hub.TotalClientCount())
}

func TestHub_ConnectionCap(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 2)

	require.NoError(t, hub.Register(newMockClient("a", 1)))
	require.NoError(t, hub.Register(newMockClient("b", 1)))
	assert.ErrorIs(t, hub.Register(newMockClient("c", 1)), ErrTooManyConnections)
	assert.NoError(t, hub.Register(newMockClient("d", 2)))
	assert.Equal(t, 2, hub.ClientCount(1))
	assert.True(t, hub.AtCapacity(1))
	assert.False(t, hub.AtCapacity(2))
	assert.False(t, NewHub(zerolog.Nop(), 0).AtCapacity(1))
}

func TestHub_BroadcastOnlyReachesUser(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 0)
	mine := newMockClient("mine", 1)
	alsoMine := newMockClient("also-mine", 1)
	theirs := newMockClient("theirs", 2)
	for _, c := range []*mockClient{mine, alsoMine, theirs} {
		require.NoError(t, hub.Register(c))
	}

	hub.Broadcast(1, TransactionCreated(map[string]interface{}{"id": 42}))

	require.Len(t, mine.Messages(), 1)
	assert.Len(t, alsoMine.Messages(), 1)
	assert.Empty(t, theirs.Messages())

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(mine.Messages()[0], &decoded))
	assert.Equal(t, "transaction.created", decoded["type"])
}

func TestHub_BroadcastSurvivesFailingClient(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 0)
	broken := newMockClient("broken", 1)
	broken.failSend = true
	healthy := newMockClient("healthy", 1)
	require.NoError(t, hub.Register(broken))
	require.NoError(t, hub.Register(healthy))

	hub.Broadcast(1, NotificationCreated(map[string]interface{}{"id": 1}))

	assert.Empty(t, broken.Messages())
	assert.Len(t, healthy.Messages(), 1)
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 0)
	assert.NotPanics(t, func() {
		hub.Broadcast(99, TransactionDeleted(TransactionDeletedPayload{ID: 1, AccountID: 2}))
	})
}

func TestHub_CloseAll(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 0)
	a := newMockClient("a", 1)
	b := newMockClient("b", 2)
	require.NoError(t, hub.Register(a))
	require.NoError(t, hub.Register(b))

	hub.CloseAll()

	assert.True(t, a.IsClosed())
	assert.True(t, b.IsClosed())
	assert.Equal(t, 0, hub.TotalClientCount())
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 0)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c := newMockClient(string(rune('a'+n%26))+string(rune('0'+n/26)), int32(n%5))
			_ = hub.Register(c)
			hub.Broadcast(c.UserID(), RecurringPosted(map[string]interface{}{"n": n}))
			hub.Unregister(c)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, hub.TotalClientCount())
}
