package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitops/beacon/internal/core/notify"
	"github.com/transitops/beacon/internal/feed"
)

func newTestFeed(t *testing.T) *feed.Store {
	t.Helper()
	return feed.New(nil, feed.Options{})
}

func TestPoller_Sync(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": "n1", "title": "Recarga confirmada", "message": "R$ 20,00 adicionados."},
			{"id": "n2", "title": "Atraso na Linha 205", "message": "Motivo: Obras."},
			{"id": "n3", "title": "Manutenção programada", "message": "Domingo, 02h-04h."}
		]`)
	}))
	defer server.Close()

	store := newTestFeed(t)
	poller := NewPoller(store, server.URL)

	require.NoError(t, poller.Sync(context.Background()))

	records := store.List()
	require.Len(t, records, 3)

	byBackend := make(map[string]notify.Record)
	for _, r := range records {
		byBackend[r.BackendID()] = r
	}
	assert.Equal(t, notify.KindSuccess, byBackend["n1"].Kind)
	assert.Equal(t, notify.KindLineDelay, byBackend["n2"].Kind)
	assert.Equal(t, notify.KindInfo, byBackend["n3"].Kind)
}

func TestPoller_Sync_DedupAcrossSyncs(t *testing.T) {
	responses := []string{
		`[{"id": "n1", "title": "Aviso", "message": "primeiro"}]`,
		`[{"id": "n1", "title": "Aviso", "message": "repetido"}, {"id": "n2", "title": "Outro", "message": "novo"}]`,
	}
	call := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, responses[call])
		call++
	}))
	defer server.Close()

	store := newTestFeed(t)
	poller := NewPoller(store, server.URL)

	require.NoError(t, poller.Sync(context.Background()))
	require.NoError(t, poller.Sync(context.Background()))

	records := store.List()
	require.Len(t, records, 2)

	n1Count := 0
	for _, r := range records {
		if r.BackendID() == "n1" {
			n1Count++
			assert.Equal(t, "primeiro", r.Message, "the repeated item must not replace the original")
		}
	}
	assert.Equal(t, 1, n1Count)
}

func TestPoller_Sync_NonSuccessIsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	store := newTestFeed(t)
	poller := NewPoller(store, server.URL)

	require.NoError(t, poller.Sync(context.Background()))
	assert.Empty(t, store.List())
}

func TestPoller_Sync_NetworkErrorIsReported(t *testing.T) {
	store := newTestFeed(t)
	poller := NewPoller(store, "http://127.0.0.1:1/api/notifications")

	assert.Error(t, poller.Sync(context.Background()))
	assert.Empty(t, store.List())
}

func TestClassify_ExplicitKindWins(t *testing.T) {
	tests := []struct {
		name string
		item PollItem
		want notify.Kind
	}{
		{"explicit valid kind", PollItem{Title: "Recarga efetuada", Kind: "warning"}, notify.KindWarning},
		{"explicit invalid kind falls back", PollItem{Title: "Recarga efetuada", Kind: "bogus"}, notify.KindSuccess},
		{"recharge marker", PollItem{Title: "Recarga efetuada"}, notify.KindSuccess},
		{"delay marker", PollItem{Title: "Atraso na Linha 310"}, notify.KindLineDelay},
		{"no marker", PollItem{Title: "Bem-vindo"}, notify.KindInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.item))
		})
	}
}
