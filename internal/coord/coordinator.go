// Package coord drives server fetches into the shared state.
package coord

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/narratives/internal/audit"
	"github.com/abelbrown/narratives/internal/filter"
	"github.com/abelbrown/narratives/internal/logging"
	"github.com/abelbrown/narratives/internal/narrative"
	"github.com/abelbrown/narratives/internal/state"
)

// fetchTimeout bounds each individual server call.
const fetchTimeout = 30 * time.Second

// client is the subset of api.Client the coordinator needs (injectable for
// tests).
type client interface {
	FetchNarratives(ctx context.Context, filters narrative.Filters) ([]narrative.Record, error)
	FetchPublisherOptions(ctx context.Context) ([]narrative.PublisherOption, error)
	EditPublisherOptions(ctx context.Context, opts []narrative.PublisherOption) error
	UpdateDatabase(ctx context.Context) (string, error)
}

// Coordinator fetches from the server and replaces container contents with
// the results. Uses context cancellation as the ONLY stop mechanism.
type Coordinator struct {
	state    *state.State
	client   client
	audit    *audit.Logger // optional
	interval time.Duration

	// fetchMu and optionsMu serialize refreshes of the narratives and
	// publisher option containers, so subscribers see each container's
	// results in completion order. The two refreshes still run in parallel.
	fetchMu   sync.Mutex
	optionsMu sync.Mutex
	wg        sync.WaitGroup
}

// New creates a Coordinator. interval <= 0 disables periodic refresh.
func New(st *state.State, c client, auditLog *audit.Logger, interval time.Duration) *Coordinator {
	return &Coordinator{
		state:    st,
		client:   c,
		audit:    auditLog,
		interval: interval,
	}
}

// Start performs an initial refresh, then refreshes narratives every
// interval until ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		c.refreshAll(ctx)

		if c.interval <= 0 {
			return
		}
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = c.RefreshNarratives(ctx)
			}
		}
	}()
}

// Wait blocks until the background goroutine exits.
// Call after canceling the context passed to Start.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// RefreshNarratives fetches records for the current filter selection and
// replaces the record container. On failure the container is emptied and
// the error returned.
func (c *Coordinator) RefreshNarratives(ctx context.Context) error {
	return c.refreshNarratives(ctx, c.state.SelectedFilters.Get())
}

func (c *Coordinator) refreshNarratives(ctx context.Context, filters narrative.Filters) error {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	start := time.Now()
	c.audit.Emit(audit.Event{Level: audit.LevelInfo, Kind: audit.KindFetchStart, Comp: "coord", Source: "narratives"})

	records, err := c.client.FetchNarratives(fetchCtx, filters)
	if err != nil {
		logging.Error("Fetch narratives failed", "error", err)
		c.audit.Fetch("coord", "narratives", start, 0, err)
		c.state.Narratives.Set([]narrative.Record{})
		return err
	}

	records = filter.Dedup(records)
	logging.Info("Fetched narratives", "count", len(records), "dur", time.Since(start))
	c.audit.Fetch("coord", "narratives", start, len(records), nil)
	c.state.Narratives.Set(records)
	return nil
}

// RefreshPublisherOptions replaces the publisher option container. On
// failure the container is emptied and the error returned.
func (c *Coordinator) RefreshPublisherOptions(ctx context.Context) error {
	c.optionsMu.Lock()
	defer c.optionsMu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	start := time.Now()
	opts, err := c.client.FetchPublisherOptions(fetchCtx)
	if err != nil {
		logging.Error("Fetch publisher options failed", "error", err)
		c.audit.Fetch("coord", "publisher_options", start, 0, err)
		c.state.PublisherOptions.Set([]narrative.PublisherOption{})
		return err
	}

	c.audit.Fetch("coord", "publisher_options", start, len(opts), nil)
	c.state.PublisherOptions.Set(opts)
	return nil
}

// UpdateDatabase asks the server to process pending content, then reloads
// publisher options and narratives in parallel. UpdatingDatabase is true
// for the duration of the call.
func (c *Coordinator) UpdateDatabase(ctx context.Context) (string, error) {
	c.state.UpdatingDatabase.Set(true)
	defer c.state.UpdatingDatabase.Set(false)

	msg, err := c.client.UpdateDatabase(ctx)
	if err != nil {
		logging.Error("Database update failed", "error", err)
		c.audit.Error(audit.KindFetchError, "coord", err)
		return "", err
	}
	logging.Info("Database updated", "message", msg)

	var g errgroup.Group
	g.Go(func() error { return c.RefreshPublisherOptions(ctx) })
	g.Go(func() error { return c.RefreshNarratives(ctx) })
	if err := g.Wait(); err != nil {
		return msg, fmt.Errorf("reload after update: %w", err)
	}
	return msg, nil
}

// EditPublisherOptions saves opts on the server, then reloads narratives
// without filters so every publisher's records reflect the edit.
func (c *Coordinator) EditPublisherOptions(ctx context.Context, opts []narrative.PublisherOption) error {
	if err := c.client.EditPublisherOptions(ctx, opts); err != nil {
		logging.Error("Edit publisher options failed", "error", err)
		c.audit.Error(audit.KindFetchError, "coord", err)
		return err
	}
	return c.refreshNarratives(ctx, narrative.Filters{})
}

// refreshAll loads publisher options and narratives in parallel.
// Errors are already recorded per fetch.
func (c *Coordinator) refreshAll(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error { return c.RefreshPublisherOptions(ctx) })
	g.Go(func() error { return c.RefreshNarratives(ctx) })
	_ = g.Wait()
}
