// Package refresh runs price fetches for metals and reconciles each result
// into the price cache.
//
// Every metal is fetched by its own goroutine with no concurrency cap. A
// fetch is never cancelled because a newer cycle started or because its
// metal left the registry; its completion still writes to the cache. Only
// Close cancels outstanding fetches.
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"metalwatch/internal/domain"
	"metalwatch/internal/fetch"
	"metalwatch/internal/pricecache"
)

// Options configures an Orchestrator.
type Options struct {
	// Interval between full refresh cycles in Run. Defaults to
	// domain.DefaultRefreshInterval.
	Interval time.Duration

	// OnPriceUpdated is called after every cache write, success or failure.
	// It runs on the fetch goroutine.
	OnPriceUpdated func(id string)

	Logger  *slog.Logger
	Metrics *Metrics
}

// Orchestrator launches fetches and records their results.
type Orchestrator struct {
	fetcher  fetch.Fetcher
	cache    *pricecache.Cache
	interval time.Duration
	onUpdate func(id string)
	log      *slog.Logger
	metrics  *Metrics

	base   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	idle    *sync.Cond // signalled when pending drops to zero
	pending int
	closed  bool
}

// New creates an Orchestrator writing into cache.
func New(f fetch.Fetcher, cache *pricecache.Cache, opts Options) *Orchestrator {
	if opts.Interval <= 0 {
		opts.Interval = domain.DefaultRefreshInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.OnPriceUpdated == nil {
		opts.OnPriceUpdated = func(string) {}
	}

	base, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		fetcher:  f,
		cache:    cache,
		interval: opts.Interval,
		onUpdate: opts.OnPriceUpdated,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		base:     base,
		cancel:   cancel,
	}
	o.idle = sync.NewCond(&o.mu)
	return o
}

// Refresh starts one independent fetch per metal and returns immediately.
// After Close it does nothing.
func (o *Orchestrator) Refresh(metals []domain.Metal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}

	o.pending += len(metals)
	for _, m := range metals {
		go o.fetchOne(m)
	}
}

func (o *Orchestrator) fetchOne(m domain.Metal) {
	defer o.done()

	o.metrics.inFlight.Inc()
	start := time.Now()
	text, err := o.fetcher.FetchPrice(o.base, m.URL)
	o.metrics.fetchDuration.Observe(time.Since(start).Seconds())
	o.metrics.inFlight.Dec()

	if err != nil {
		o.metrics.fetchesTotal.WithLabelValues("error").Inc()
		o.log.Warn("price fetch failed", "id", m.ID, "url", m.URL, "error", err)
		o.cache.Record(m.ID, pricecache.Err(err))
	} else {
		o.metrics.fetchesTotal.WithLabelValues("ok").Inc()
		o.log.Debug("price fetched", "id", m.ID, "price", text)
		o.cache.Record(m.ID, pricecache.Ok(text))
	}

	o.onUpdate(m.ID)
}

// Run refreshes all() immediately and then once per interval until ctx is
// done. all is evaluated at each tick so registry changes are picked up.
func (o *Orchestrator) Run(ctx context.Context, all func() []domain.Metal) {
	o.cycle(all)

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.cycle(all)
		}
	}
}

func (o *Orchestrator) cycle(all func() []domain.Metal) {
	metals := all()
	o.metrics.cyclesTotal.Inc()
	o.log.Info("refresh cycle", "metals", len(metals))
	o.Refresh(metals)
}

func (o *Orchestrator) done() {
	o.mu.Lock()
	o.pending--
	if o.pending == 0 {
		o.idle.Broadcast()
	}
	o.mu.Unlock()
}

// Wait blocks until no fetch is in flight. It is safe to call while Run or
// other callers keep starting fetches.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	for o.pending > 0 {
		o.idle.Wait()
	}
	o.mu.Unlock()
}

// Close cancels outstanding fetches, waits for them to finish, and makes
// further Refresh calls no-ops.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	o.cancel()
	o.Wait()
}
