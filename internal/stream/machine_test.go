package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitops/beacon/internal/core/notify"
	"github.com/transitops/beacon/internal/feed"
)

// fakeConn feeds scripted frames to the machine and fails on demand.
type fakeConn struct {
	frames chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		frames: make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.frames:
		return data, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(frame string) {
	c.frames <- []byte(frame)
}

// fakeTransport hands out scripted connections; a nil entry is a dial
// failure. The last entry repeats.
type fakeTransport struct {
	mu     sync.Mutex
	script []*fakeConn
	dials  int
}

func (t *fakeTransport) Dial(ctx context.Context, url string) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.dials
	if idx >= len(t.script) {
		idx = len(t.script) - 1
	}
	t.dials++

	if idx < 0 || t.script[idx] == nil {
		return nil, errors.New("dial refused")
	}
	return t.script[idx], nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func newTestMachine(t *testing.T, transport Transport) (*Machine, *feed.Store) {
	t.Helper()

	store := feed.New(nil, feed.Options{})
	m := New(store, transport, "ws://dashboard.test/ws/notifications?token=x", Options{
		ReconnectDelay: 5 * time.Millisecond,
	})
	t.Cleanup(m.Close)
	return m, store
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		name   string
		secure bool
		host   string
		token  string
		want   string
	}{
		{"insecure", false, "dashboard.test", "abc", "ws://dashboard.test/ws/notifications?token=abc"},
		{"secure", true, "dashboard.test:8443", "abc", "wss://dashboard.test:8443/ws/notifications?token=abc"},
		{"token escaped", false, "dashboard.test", "a b&c", "ws://dashboard.test/ws/notifications?token=a+b%26c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EndpointURL(tt.secure, tt.host, tt.token))
		})
	}
}

func TestMachine_ConnectsAndDeliversMessages(t *testing.T) {
	conn := newFakeConn()
	transport := &fakeTransport{script: []*fakeConn{conn}}
	m, store := newTestMachine(t, transport)

	m.Start(context.Background())

	require.Eventually(t, m.Connected, time.Second, time.Millisecond)
	assert.Equal(t, StateConnected, m.State())

	conn.push(`{"type":"line_delay","line_name":"Linha 101","reason":"Acidente","delay_minutes":15}`)

	require.Eventually(t, func() bool {
		return len(store.ListByKind(notify.KindLineDelay)) == 1
	}, time.Second, time.Millisecond)

	r := store.ListByKind(notify.KindLineDelay)[0]
	assert.Equal(t, "Atraso na Linha 101", r.Title)
	assert.Equal(t, "Motivo: Acidente. Tempo estimado de atraso: 15 minutos.", r.Message)
}

func TestMachine_LowBalancePushSkipsSuppression(t *testing.T) {
	conn := newFakeConn()
	transport := &fakeTransport{script: []*fakeConn{conn}}
	m, store := newTestMachine(t, transport)

	// A same-day balance record already exists; pushes insert anyway.
	store.Add(notify.LowBalanceTitle, notify.LowBalanceMessage(4.0), notify.KindLowBalance, nil)

	m.Start(context.Background())
	require.Eventually(t, m.Connected, time.Second, time.Millisecond)

	conn.push(`{"type":"low_balance","current_balance":3.5}`)

	require.Eventually(t, func() bool {
		return len(store.ListByKind(notify.KindLowBalance)) == 2
	}, time.Second, time.Millisecond)

	newest := store.ListByKind(notify.KindLowBalance)[0]
	assert.Contains(t, newest.Message, "3,50")
}

func TestMachine_MalformedFrameIsDroppedConnectionSurvives(t *testing.T) {
	conn := newFakeConn()
	transport := &fakeTransport{script: []*fakeConn{conn}}
	m, store := newTestMachine(t, transport)

	m.Start(context.Background())
	require.Eventually(t, m.Connected, time.Second, time.Millisecond)

	conn.push(`{"type": "line_delay", truncated`)
	conn.push(`{"type":"reminder","line_name":"x"}`)
	conn.push(`{"type":"low_balance","current_balance":2.0}`)

	require.Eventually(t, func() bool {
		return len(store.List()) == 1
	}, time.Second, time.Millisecond)

	assert.True(t, m.Connected(), "bad frames must not terminate the connection")
	assert.Equal(t, 1, transport.dialCount())
	assert.Equal(t, notify.KindLowBalance, store.List()[0].Kind)
}

func TestMachine_ReconnectsAtFixedDelayForever(t *testing.T) {
	transport := &fakeTransport{script: []*fakeConn{nil}}
	m, _ := newTestMachine(t, transport)

	m.Start(context.Background())

	require.Eventually(t, func() bool {
		return transport.dialCount() >= 4
	}, time.Second, time.Millisecond, "retries must repeat after every failure")

	assert.False(t, m.Connected())
}

func TestMachine_ReconnectsAfterConnectionDrop(t *testing.T) {
	first := newFakeConn()
	second := newFakeConn()
	transport := &fakeTransport{script: []*fakeConn{first, second}}
	m, _ := newTestMachine(t, transport)

	m.Start(context.Background())
	require.Eventually(t, m.Connected, time.Second, time.Millisecond)

	// Drop the connection; exactly one reconnect attempt follows the delay.
	_ = first.Close()

	require.Eventually(t, func() bool {
		return transport.dialCount() == 2 && m.Connected()
	}, time.Second, time.Millisecond)
}

func TestMachine_CloseStopsReconnecting(t *testing.T) {
	transport := &fakeTransport{script: []*fakeConn{nil}}
	store := feed.New(nil, feed.Options{})
	m := New(store, transport, "ws://dashboard.test/ws/notifications", Options{
		ReconnectDelay: 5 * time.Millisecond,
	})

	m.Start(context.Background())
	require.Eventually(t, func() bool { return transport.dialCount() >= 1 }, time.Second, time.Millisecond)

	m.Close()
	assert.Equal(t, StateDisconnected, m.State())

	settled := transport.dialCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, transport.dialCount(), "no dials after Close")
}

func TestMachine_CloseBeforeStart(t *testing.T) {
	store := feed.New(nil, feed.Options{})
	m := New(store, &fakeTransport{}, "ws://dashboard.test/ws/notifications", Options{})

	m.Close()
	assert.Equal(t, StateDisconnected, m.State())
}
