// Package stream maintains the push connection to the notification
// endpoint and drives inbound messages into the feed.
package stream

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/transitops/beacon/internal/core/logging"
	"github.com/transitops/beacon/internal/core/notify"
	"github.com/transitops/beacon/internal/feed"
)

// DefaultReconnectDelay is the fixed pause before each reconnect attempt.
// There is no backoff: the source feed expects clients to retry at a
// steady cadence for the lifetime of the process.
const DefaultReconnectDelay = 5 * time.Second

// State identifies where the connection machine is in its loop.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// Conn is one established streaming connection.
type Conn interface {
	// ReadMessage blocks until the next inbound frame, a transport error,
	// or the peer closes.
	ReadMessage() ([]byte, error)
	Close() error
}

// Transport dials the streaming endpoint. Tests inject a fake; production
// uses the websocket transport.
type Transport interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// envelope is the inbound frame shape: a type discriminator plus the
// union of type-specific fields.
type envelope struct {
	Type           string  `json:"type"`
	LineName       string  `json:"line_name"`
	Reason         string  `json:"reason"`
	DelayMinutes   int     `json:"delay_minutes"`
	CurrentBalance float64 `json:"current_balance"`
}

// Machine runs the Disconnected -> Connecting -> Connected loop. It has no
// terminal state: a closed or failed connection always schedules exactly
// one reconnect after the fixed delay.
type Machine struct {
	store     *feed.Store
	transport Transport
	url       string
	delay     time.Duration
	log       zerolog.Logger

	mu    sync.Mutex
	state State
	conn  Conn

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Options tune a Machine.
type Options struct {
	ReconnectDelay time.Duration
}

// New creates a connection machine targeting the given URL.
func New(store *feed.Store, transport Transport, url string, opts Options) *Machine {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}

	return &Machine{
		store:     store,
		transport: transport,
		url:       url,
		delay:     opts.ReconnectDelay,
		log:       logging.Component("stream"),
		state:     StateDisconnected,
		done:      make(chan struct{}),
	}
}

// EndpointURL composes the streaming URL from the page transport security,
// host, and the opaque credential.
func EndpointURL(secure bool, host, token string) string {
	scheme := "ws"
	if secure {
		scheme = "wss"
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     host,
		Path:     "/ws/notifications",
		RawQuery: url.Values{"token": {token}}.Encode(),
	}
	return u.String()
}

// Start launches the connection loop. It returns immediately; the loop
// runs until ctx is cancelled or Close is called.
func (m *Machine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	go m.run(ctx)
}

// Close stops the machine: it cancels any pending reconnect, closes the
// active connection, and waits for the loop to exit.
func (m *Machine) Close() {
	m.once.Do(func() {
		m.mu.Lock()
		cancel := m.cancel
		conn := m.conn
		m.mu.Unlock()

		if cancel == nil {
			close(m.done)
			return
		}

		cancel()
		if conn != nil {
			_ = conn.Close()
		}
		<-m.done
	})
}

// State returns the current connection state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether push delivery is currently available. Other
// components consult this to decide between push and polling.
func (m *Machine) Connected() bool {
	return m.State() == StateConnected
}

func (m *Machine) run(ctx context.Context) {
	defer close(m.done)
	defer m.setState(StateDisconnected, nil)

	for {
		m.setState(StateConnecting, nil)

		conn, err := m.transport.Dial(ctx, m.url)
		if err != nil {
			m.setState(StateDisconnected, nil)
			m.log.Warn().Err(err).Msg("stream connect failed")
		} else if ctx.Err() != nil {
			// Close raced the dial; drop the connection and exit below.
			_ = conn.Close()
			m.setState(StateDisconnected, nil)
		} else {
			m.setState(StateConnected, conn)
			m.log.Info().Msg("stream connected")
			m.readLoop(conn)
			m.setState(StateDisconnected, nil)
			m.log.Info().Msg("stream disconnected")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.delay):
		}
	}
}

// readLoop consumes frames until the connection errors or closes.
func (m *Machine) readLoop(conn Conn) {
	defer func() {
		if err := conn.Close(); err != nil {
			m.log.Debug().Err(err).Msg("close stream connection")
		}
	}()

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.log.Warn().Err(err).Msg("stream read failed")
			return
		}
		m.handleMessage(data)
	}
}

// handleMessage decodes one inbound frame and inserts the mapped record.
// Push messages are authoritative and already deduplicated upstream, so
// no suppression applies here. Malformed frames are dropped; they never
// terminate the connection.
func (m *Machine) handleMessage(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		m.log.Warn().Err(err).Msg("drop malformed stream message")
		return
	}

	switch env.Type {
	case string(notify.KindLineDelay):
		m.store.Add(
			notify.LineDelayTitle(env.LineName),
			notify.LineDelayMessage(env.Reason, env.DelayMinutes),
			notify.KindLineDelay,
			nil,
		)
	case string(notify.KindLowBalance):
		m.store.Add(
			notify.LowBalanceTitle,
			notify.LowBalanceMessage(env.CurrentBalance),
			notify.KindLowBalance,
			nil,
		)
	default:
		m.log.Debug().Str("type", env.Type).Msg("drop stream message with unknown type")
	}
}

func (m *Machine) setState(s State, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	m.conn = conn
}
