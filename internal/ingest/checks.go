package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/transitops/beacon/internal/core/logging"
	"github.com/transitops/beacon/internal/core/notify"
	"github.com/transitops/beacon/internal/feed"
)

// DefaultMinBalance is the threshold below which a balance warning fires.
const DefaultMinBalance = 5.00

// delayRepeatWindow is the sliding suppression window for an identical
// line-delay title.
const delayRepeatWindow = time.Hour

// LineStatus is one line from the line-status endpoint. Delay is minutes;
// zero means on time.
type LineStatus struct {
	Name   string `json:"name"`
	Delay  int    `json:"delay"`
	Reason string `json:"reason"`
}

type lineStatusResponse struct {
	Lines []LineStatus `json:"lines"`
}

// simulatedLines drives the fallback generator when the line-status feed
// is unreachable. Chance is the probability the line is affected this
// cycle.
var simulatedLines = []struct {
	Line   LineStatus
	Chance float64
}{
	{LineStatus{Name: "Linha 101 - Centro/Bairro", Delay: 15, Reason: "Acidente na via"}, 0.3},
	{LineStatus{Name: "Linha 205 - Terminal/Universidade", Delay: 5, Reason: "Trâfego intenso"}, 0.2},
	{LineStatus{Name: "Linha 310 - Industrial/Comercial", Delay: 30, Reason: "Problema mecânico"}, 0.1},
}

// Checker derives notifications from domain values: account balance and
// the line-delay feed.
type Checker struct {
	store      *feed.Store
	client     *http.Client
	linesURL   string
	minBalance float64
	now        func() time.Time
	randFloat  func() float64
	log        zerolog.Logger
}

// CheckerOptions tune a Checker. Zero values fall back to defaults.
type CheckerOptions struct {
	MinBalance float64
	Now        func() time.Time
	RandFloat  func() float64
}

// NewChecker creates the threshold checkers against the given line-status
// endpoint.
func NewChecker(store *feed.Store, linesURL string, opts CheckerOptions) *Checker {
	if opts.MinBalance <= 0 {
		opts.MinBalance = DefaultMinBalance
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RandFloat == nil {
		opts.RandFloat = rand.Float64
	}

	return &Checker{
		store:      store,
		client:     pollHTTPClient,
		linesURL:   linesURL,
		minBalance: opts.MinBalance,
		now:        opts.Now,
		randFloat:  opts.RandFloat,
		log:        logging.Component("checks"),
	}
}

// CheckLowBalance emits one low_balance record when balance is under the
// threshold, at most once per calendar day (local time).
func (c *Checker) CheckLowBalance(balance float64) {
	if balance >= c.minBalance {
		return
	}

	today := c.now().Local()
	for _, r := range c.store.ListByKind(notify.KindLowBalance) {
		created := r.CreatedTime().Local()
		if sameDay(created, today) {
			return
		}
	}

	c.store.Add(notify.LowBalanceTitle, notify.LowBalanceMessage(balance), notify.KindLowBalance, nil)
}

// CheckLineDelays fetches the line-status feed and emits one line_delay
// record per affected line. When the fetch fails it falls back to the
// local simulation; the two never run in the same cycle.
func (c *Checker) CheckLineDelays(ctx context.Context) {
	lines, err := c.fetchLines(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("line status unreachable, using simulation")
		c.simulateLineDelays()
		return
	}

	for _, line := range lines {
		if line.Delay > 0 {
			c.maybeAddDelay(line)
		}
	}
}

// simulateLineDelays generates delays from the fixed line table. Used only
// after a failed feed call.
func (c *Checker) simulateLineDelays() {
	for _, sim := range simulatedLines {
		if c.randFloat() < sim.Chance {
			c.maybeAddDelay(sim.Line)
		}
	}
}

// maybeAddDelay inserts a delay record unless an identical title exists
// inside the repeat window.
func (c *Checker) maybeAddDelay(line LineStatus) {
	title := notify.LineDelayTitle(line.Name)

	now := c.now()
	for _, r := range c.store.ListByKind(notify.KindLineDelay) {
		if r.Title == title && r.Age(now) < delayRepeatWindow {
			return
		}
	}

	c.store.Add(title, notify.LineDelayMessage(line.Reason, line.Delay), notify.KindLineDelay, nil)
}

func (c *Checker) fetchLines(ctx context.Context) ([]LineStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.linesURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Debug().Err(err).Msg("close line status response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// The endpoint answered: no fallback, just nothing to report.
		c.log.Debug().Int("status", resp.StatusCode).Msg("line status returned non-success status")
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read line status body: %w", err)
	}

	var parsed lineStatusResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode line status body: %w", err)
	}

	return parsed.Lines, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
