// Package engine keeps the metal registry, the visibility set and the price
// cache in sync with the settings store.
//
// A single control goroutine consumes settings changes. Each change rebuilds
// the registry, re-derives the visibility set (writing back a corrected list
// when sanitization changed it), and fetches prices for metals that were not
// in the previous registry. A periodic cycle refreshes every metal.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"metalwatch/internal/domain"
	"metalwatch/internal/fetch"
	"metalwatch/internal/pricecache"
	"metalwatch/internal/refresh"
	"metalwatch/internal/registry"
	"metalwatch/internal/store"
	"metalwatch/internal/visibility"
)

var (
	// ErrUnknownMetal is returned for ids absent from the registry.
	ErrUnknownMetal = errors.New("engine: unknown metal")

	// ErrBuiltin is returned when removing a built-in metal.
	ErrBuiltin = errors.New("engine: built-in metals cannot be removed")
)

// Hooks are the notifications exposed to presentation layers. Both run
// outside the engine's lock and may call back into the engine.
type Hooks struct {
	// OnPriceUpdated fires after every cache write, success or failure.
	OnPriceUpdated func(id string)

	// OnRegistryChanged fires once per rebuild that changed the registry or
	// the visible set.
	OnRegistryChanged func()
}

// Options configures an Engine.
type Options struct {
	// Builtins defaults to domain.Builtins().
	Builtins []domain.Metal

	// Interval is the full refresh period; defaults to
	// domain.DefaultRefreshInterval.
	Interval time.Duration

	Hooks   Hooks
	Logger  *slog.Logger
	Metrics *refresh.Metrics
}

// State is an immutable snapshot of the registry and the visibility set.
type State struct {
	Registry registry.Registry
	Visible  []string
	Version  uint64
}

// MetalView is one registry entry joined with its cached price and its
// visibility flags.
type MetalView struct {
	domain.Metal
	Price     string
	HasPrice  bool
	Visible   bool
	Removable bool
}

// Engine is the registry/visibility/price-cache synchronization engine.
type Engine struct {
	store    store.SettingsStore
	cache    *pricecache.Cache
	orch     *refresh.Orchestrator
	builtins []domain.Metal
	hooks    Hooks
	log      *slog.Logger

	state atomic.Pointer[State]
	mu    sync.Mutex // serializes rebuilds and settings writes

	subID   int
	changes <-chan store.Change
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an Engine reading from st and fetching through f. Call Start
// to load settings and begin refreshing.
func New(st store.SettingsStore, f fetch.Fetcher, opts Options) *Engine {
	if opts.Builtins == nil {
		opts.Builtins = domain.Builtins()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Hooks.OnPriceUpdated == nil {
		opts.Hooks.OnPriceUpdated = func(string) {}
	}
	if opts.Hooks.OnRegistryChanged == nil {
		opts.Hooks.OnRegistryChanged = func() {}
	}

	e := &Engine{
		store:    st,
		cache:    pricecache.New(),
		builtins: opts.Builtins,
		hooks:    opts.Hooks,
		log:      opts.Logger,
	}
	e.orch = refresh.New(f, e.cache, refresh.Options{
		Interval:       opts.Interval,
		OnPriceUpdated: opts.Hooks.OnPriceUpdated,
		Logger:         opts.Logger,
		Metrics:        opts.Metrics,
	})
	e.state.Store(&State{})
	return e
}

// Start performs the initial rebuild, then launches the periodic refresh
// cycle and the settings change loop. It returns once both are running.
func (e *Engine) Start(ctx context.Context) error {
	e.subID, e.changes = e.store.Subscribe(64)

	e.mu.Lock()
	_, _, err := e.rebuildLocked(ctx)
	e.mu.Unlock()
	if err != nil {
		e.store.Unsubscribe(e.subID)
		return fmt.Errorf("initial rebuild: %w", err)
	}
	e.hooks.OnRegistryChanged()

	loopCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.started = true

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		e.orch.Run(loopCtx, e.allMetals)
	}()
	go func() {
		defer e.wg.Done()
		e.changeLoop(loopCtx)
	}()

	st := e.State()
	e.log.Info("engine started", "metals", st.Registry.Len(), "visible", st.Visible)
	return nil
}

// Stop halts the loops, cancels and waits for in-flight fetches, and clears
// the price cache.
func (e *Engine) Stop() {
	if e.started {
		e.cancel()
		e.wg.Wait()
		e.store.Unsubscribe(e.subID)
		e.started = false
	}
	e.orch.Close()
	e.cache.Clear()
	e.log.Info("engine stopped")
}

// changeLoop is the control goroutine.
func (e *Engine) changeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-e.changes:
			if !ok {
				return
			}
			if err := e.reconcile(ctx, c.Key); err != nil {
				e.log.Error("applying settings change", "key", c.Key, "error", err)
			}
		}
	}
}

// reconcile rebuilds from the store and fetches prices for metals that
// were not in the previous registry. A rebuild that reproduces the current
// snapshot is a no-op, so a command and the change notification it causes
// publish once. Only a custom-metals change can add metals, so a
// visible-metals change never triggers a fetch. Fetches are launched before
// mu is released.
func (e *Engine) reconcile(ctx context.Context, key string) error {
	e.mu.Lock()
	prev := e.State().Registry.IDs()
	st, changed, err := e.rebuildLocked(ctx)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if !changed {
		e.mu.Unlock()
		return nil
	}
	added := registry.Added(prev, st.Registry.IDs())
	if len(added) > 0 {
		e.log.Info("refreshing new metals", "key", key, "ids", added)
		e.orch.Refresh(st.Registry.Select(added))
	}
	e.mu.Unlock()

	e.hooks.OnRegistryChanged()
	return nil
}

// rebuildLocked reads both settings keys, rebuilds the registry and the
// visibility set, and writes back a corrected visible list. A new snapshot
// is published only when it differs from the current one; changed reports
// whether that happened. Must be called with mu held.
func (e *Engine) rebuildLocked(ctx context.Context) (st *State, changed bool, err error) {
	raw, err := e.store.Strings(ctx, domain.KeyCustomMetals)
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", domain.KeyCustomMetals, err)
	}
	reg := registry.Rebuild(e.builtins, raw)

	persisted, err := e.store.Strings(ctx, domain.KeyVisibleMetals)
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", domain.KeyVisibleMetals, err)
	}
	visible, corrected := visibility.Derive(reg.IDs(), persisted)
	if corrected {
		e.log.Info("correcting visible metals", "persisted", persisted, "visible", visible)
		if err := e.store.SetStrings(ctx, domain.KeyVisibleMetals, visible); err != nil {
			// Keep the sanitized set in memory; the next change retries.
			e.log.Error("writing visible metals", "error", err)
		}
	}

	cur := e.State()
	if cur.Version > 0 && slices.Equal(cur.Registry.Metals(), reg.Metals()) && slices.Equal(cur.Visible, visible) {
		return cur, false, nil
	}

	st = &State{
		Registry: reg,
		Visible:  visible,
		Version:  cur.Version + 1,
	}
	e.state.Store(st)
	return st, true, nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// State returns the current snapshot. It must not be modified.
func (e *Engine) State() *State {
	return e.state.Load()
}

// Cache exposes the price cache for read access.
func (e *Engine) Cache() *pricecache.Cache {
	return e.cache
}

func (e *Engine) allMetals() []domain.Metal {
	return e.State().Registry.Metals()
}

// Price returns the cached price for id.
func (e *Engine) Price(id string) (string, bool) {
	return e.cache.Read(id)
}

// View joins every registry metal with its price and visibility flags, in
// registry order.
func (e *Engine) View() []MetalView {
	return e.ViewOf(e.State())
}

// ViewOf is View over a snapshot previously returned by State.
func (e *Engine) ViewOf(st *State) []MetalView {
	metals := st.Registry.Metals()
	out := make([]MetalView, 0, len(metals))
	for _, m := range metals {
		price, ok := e.cache.Read(m.ID)
		shown := visibility.Contains(st.Visible, m.ID)
		out = append(out, MetalView{
			Metal:     m,
			Price:     price,
			HasPrice:  ok,
			Visible:   shown,
			Removable: !shown || visibility.Removable(st.Visible, m.ID),
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

// Toggle shows or hides id and persists the new visible list. Hiding the
// last visible metal returns visibility.ErrWouldEmpty and changes nothing.
func (e *Engine) Toggle(ctx context.Context, id string, show bool) error {
	e.mu.Lock()
	st := e.State()
	if !st.Registry.Contains(id) {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownMetal, id)
	}
	next, err := visibility.Toggle(st.Visible, st.Registry.IDs(), id, show)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	err = e.store.SetStrings(ctx, domain.KeyVisibleMetals, next)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("persisting visible metals: %w", err)
	}
	return e.reconcile(ctx, domain.KeyVisibleMetals)
}

// AddCustom persists a new custom metal and returns its generated id. The
// new metal is fetched immediately.
func (e *Engine) AddCustom(ctx context.Context, name, url string) (string, error) {
	e.mu.Lock()
	raw, err := e.store.Strings(ctx, domain.KeyCustomMetals)
	if err != nil {
		e.mu.Unlock()
		return "", fmt.Errorf("reading %s: %w", domain.KeyCustomMetals, err)
	}
	updated, id, err := registry.AddCustom(raw, name, url, e.builtinIDs()...)
	if err != nil {
		e.mu.Unlock()
		return "", err
	}
	err = e.store.SetStrings(ctx, domain.KeyCustomMetals, updated)
	e.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("persisting custom metals: %w", err)
	}

	e.log.Info("custom metal added", "id", id)
	return id, e.reconcile(ctx, domain.KeyCustomMetals)
}

// RemoveCustom deletes a custom metal and drops it from the visible list.
// Its cached price is left in place.
func (e *Engine) RemoveCustom(ctx context.Context, id string) error {
	if e.isBuiltin(id) {
		return fmt.Errorf("%w: %s", ErrBuiltin, id)
	}

	e.mu.Lock()
	err := e.removeCustomLocked(ctx, id)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.log.Info("custom metal removed", "id", id)
	return e.reconcile(ctx, domain.KeyCustomMetals)
}

func (e *Engine) builtinIDs() []string {
	ids := make([]string, len(e.builtins))
	for i, m := range e.builtins {
		ids[i] = m.ID
	}
	return ids
}

func (e *Engine) isBuiltin(id string) bool {
	for _, m := range e.builtins {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (e *Engine) removeCustomLocked(ctx context.Context, id string) error {
	raw, err := e.store.Strings(ctx, domain.KeyCustomMetals)
	if err != nil {
		return fmt.Errorf("reading %s: %w", domain.KeyCustomMetals, err)
	}
	updated, found := registry.RemoveCustom(raw, id)
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownMetal, id)
	}
	if err := e.store.SetStrings(ctx, domain.KeyCustomMetals, updated); err != nil {
		return fmt.Errorf("persisting custom metals: %w", err)
	}

	visible, err := e.store.Strings(ctx, domain.KeyVisibleMetals)
	if err != nil {
		return fmt.Errorf("reading %s: %w", domain.KeyVisibleMetals, err)
	}
	kept := visible[:0]
	for _, v := range visible {
		if v != id {
			kept = append(kept, v)
		}
	}
	if err := e.store.SetStrings(ctx, domain.KeyVisibleMetals, kept); err != nil {
		return fmt.Errorf("persisting visible metals: %w", err)
	}
	return nil
}

// RefreshAll starts an out-of-cycle refresh of every registry metal.
func (e *Engine) RefreshAll() {
	e.orch.Refresh(e.allMetals())
}

// Wait blocks until every fetch started so far has completed.
func (e *Engine) Wait() {
	e.orch.Wait()
}
