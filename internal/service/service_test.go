package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitops/beacon/internal/core/config"
	"github.com/transitops/beacon/internal/core/notify"
	"github.com/transitops/beacon/internal/stream"
)

// refusingTransport always fails to dial.
type refusingTransport struct{}

func (refusingTransport) Dial(ctx context.Context, url string) (stream.Conn, error) {
	return nil, errors.New("dial refused")
}

func newTestConfig(t *testing.T, backend *httptest.Server) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.EnableDesktop = false
	cfg.ReconnectDelay = config.Duration(10 * time.Millisecond)
	cfg.CheckDelaysInterval = config.Duration(time.Hour)
	if backend != nil {
		cfg.Server.Host = strings.TrimPrefix(backend.URL, "http://")
	}
	return &cfg
}

func TestService_RunPollsAndPersists(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/notifications":
			fmt.Fprint(w, `[{"id": "srv-1", "title": "Recarga confirmada", "message": "R$ 20,00"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer backend.Close()

	cfg := newTestConfig(t, backend)
	svc := New(cfg, Options{Transport: refusingTransport{}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		return svc.Store().HasBackendID("srv-1")
	}, time.Second, 5*time.Millisecond)

	assert.False(t, svc.Connected())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancellation")
	}

	// A fresh service over the same data dir sees the persisted feed.
	reopened := New(cfg, Options{Transport: refusingTransport{}})
	defer reopened.Close()
	assert.True(t, reopened.Store().HasBackendID("srv-1"))

	records := reopened.Store().List()
	require.Len(t, records, 1)
	assert.Equal(t, notify.KindSuccess, records[0].Kind)
}

func TestService_CheckLowBalancePassthrough(t *testing.T) {
	cfg := newTestConfig(t, nil)
	cfg.Server.Host = "127.0.0.1:1"

	svc := New(cfg, Options{Transport: refusingTransport{}})
	defer svc.Close()

	svc.CheckLowBalance(3.00)
	svc.CheckLowBalance(3.00)

	records := svc.Store().ListByKind(notify.KindLowBalance)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Message, "3,00")
}

func TestNotificationsPath(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = "/tmp/beacon-test"

	assert.Equal(t, "/tmp/beacon-test/notifications.json", NotificationsPath(&cfg))
}
