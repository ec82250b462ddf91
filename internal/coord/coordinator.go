// Package coord polls watchlist feeds in the background and delivers inbox
// updates to the running program.
package coord

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/tenderwatch/internal/feed"
	"github.com/abelbrown/tenderwatch/internal/logging"
	"github.com/abelbrown/tenderwatch/internal/model"
	"github.com/abelbrown/tenderwatch/internal/otel"
	"github.com/abelbrown/tenderwatch/internal/ui"
)

// fetchInterval is the time between polling cycles.
const fetchInterval = 10 * time.Minute

// fetchTimeout is the timeout for each individual feed.
const fetchTimeout = 30 * time.Second

// maxConcurrentFetches limits parallel feed requests.
const maxConcurrentFetches = 4

// inboxRetention is how long fetched entries are kept.
const inboxRetention = 30 * 24 * time.Hour

// fetcher interface for dependency injection (testing).
type fetcher interface {
	Fetch(ctx context.Context, src feed.Source) ([]model.InboxEntry, error)
}

// inboxStore is the persistence the coordinator writes to.
type inboxStore interface {
	SaveInboxEntries(entries []model.InboxEntry, fetched time.Time) (int, error)
	PruneInbox(cutoff time.Time) (int64, error)
}

// Sender receives inbox updates. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Coordinator manages background polling.
// Uses context cancellation as the ONLY stop mechanism.
type Coordinator struct {
	store    inboxStore
	fetcher  fetcher
	sources  []feed.Source // IMMUTABLE: set at construction, never modified
	events   *otel.Logger
	interval time.Duration
	wg       sync.WaitGroup
}

// NewCoordinator creates a Coordinator. events may be nil.
func NewCoordinator(s inboxStore, f fetcher, sources []feed.Source, events *otel.Logger) *Coordinator {
	sourcesCopy := make([]feed.Source, len(sources))
	copy(sourcesCopy, sources)

	return &Coordinator{
		store:    s,
		fetcher:  f,
		sources:  sourcesCopy,
		events:   events,
		interval: fetchInterval,
	}
}

// Start begins background polling. Call with a cancellable context.
// Polls immediately, then every interval. A coordinator without sources
// does not start a goroutine.
func (c *Coordinator) Start(ctx context.Context, program Sender) {
	if len(c.sources) == 0 {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.fetchAll(ctx, program)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.fetchAll(ctx, program)
			}
		}
	}()
}

// Wait blocks until the background goroutine exits.
// Call after canceling the context passed to Start.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// fetchAll polls every source in parallel and prunes old entries.
func (c *Coordinator) fetchAll(ctx context.Context, program Sender) {
	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)

	for _, src := range c.sources {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			c.fetchSource(ctx, src, program)
			return nil // errors are reported per source
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return
	}
	if removed, err := c.store.PruneInbox(time.Now().Add(-inboxRetention)); err != nil {
		logging.Warn("inbox prune failed", "error", err)
	} else if removed > 0 {
		logging.Debug("inbox pruned", "removed", removed)
	}
}

// fetchSource polls one feed with timeout and sends ui.InboxUpdated.
func (c *Coordinator) fetchSource(ctx context.Context, src feed.Source, program Sender) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	start := time.Now()
	entries, err := c.fetcher.Fetch(fetchCtx, src)

	newEntries := 0
	if err == nil && len(entries) > 0 {
		var saveErr error
		newEntries, saveErr = c.store.SaveInboxEntries(entries, time.Now())
		if saveErr != nil {
			logging.Error("inbox save failed", "watchlist", src.Name, "error", saveErr)
			err = saveErr
		}
	}

	if err != nil {
		logging.Warn("watchlist fetch failed", "watchlist", src.Name, "error", err)
		c.events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindFeedError, Comp: "coord", Msg: src.Name, Err: err.Error(), Dur: time.Since(start)})
	} else {
		c.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindFeedComplete, Comp: "coord", Msg: src.Name, Count: newEntries, Dur: time.Since(start)})
	}

	if program != nil {
		program.Send(ui.InboxUpdated{
			Watchlist:  src.Name,
			NewEntries: newEntries,
			Err:        err,
		})
	}
}
