// Package ingest feeds the store from the polling endpoint and the local
// threshold checks.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/transitops/beacon/internal/core/logging"
	"github.com/transitops/beacon/internal/core/notify"
	"github.com/transitops/beacon/internal/feed"
)

// Title markers used to classify polled notifications that arrive without
// an explicit kind. Fragile by nature; the upstream kind field wins when
// present.
const (
	markerRecharge = "Recarga"
	markerDelay    = "Atraso"
)

var pollHTTPClient = &http.Client{Timeout: 10 * time.Second}

// PollItem is one externally generated notification from the polling
// endpoint. Kind is an optional upstream classification.
type PollItem struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// Poller converts polled payloads into store insertions, deduplicating by
// the backend-supplied identifier.
type Poller struct {
	store  *feed.Store
	client *http.Client
	url    string
	log    zerolog.Logger
}

// NewPoller creates a polling adapter for the given endpoint URL.
func NewPoller(store *feed.Store, url string) *Poller {
	return &Poller{
		store:  store,
		client: pollHTTPClient,
		url:    url,
		log:    logging.Component("poll"),
	}
}

// Sync fetches the endpoint once and inserts every item the feed has not
// seen. A non-success status means no new data, not an error.
func (p *Poller) Sync(ctx context.Context) error {
	items, err := p.fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch notifications: %w", err)
	}

	for _, item := range items {
		if item.ID == "" || p.store.HasBackendID(item.ID) {
			continue
		}

		p.store.Add(item.Title, item.Message, classify(item), map[string]string{
			notify.AttrBackendID: item.ID,
		})
	}

	return nil
}

func (p *Poller) fetch(ctx context.Context) ([]PollItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			p.log.Debug().Err(err).Msg("close poll response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.log.Debug().Int("status", resp.StatusCode).Msg("poll returned non-success status")
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read poll body: %w", err)
	}

	var items []PollItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode poll body: %w", err)
	}

	return items, nil
}

// classify derives the record kind for a polled item. An explicit valid
// upstream kind takes precedence over title inspection.
func classify(item PollItem) notify.Kind {
	if item.Kind != "" {
		if k, err := notify.ParseKind(item.Kind); err == nil {
			return k
		}
	}

	switch {
	case strings.Contains(item.Title, markerRecharge):
		return notify.KindSuccess
	case strings.Contains(item.Title, markerDelay):
		return notify.KindLineDelay
	default:
		return notify.KindInfo
	}
}
