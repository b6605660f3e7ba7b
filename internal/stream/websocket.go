package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// WebsocketTransport dials the streaming endpoint over a websocket.
type WebsocketTransport struct {
	dialer *websocket.Dialer
}

var _ Transport = (*WebsocketTransport)(nil)

// NewWebsocketTransport creates the production transport.
func NewWebsocketTransport() *WebsocketTransport {
	return &WebsocketTransport{
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Dial opens a websocket connection to the given URL.
func (t *WebsocketTransport) Dial(ctx context.Context, url string) (Conn, error) {
	c, resp, err := t.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	return &wsConn{c: c}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := w.c.ReadMessage()
	return data, err
}

func (w *wsConn) Close() error {
	return w.c.Close()
}
