package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"metalwatch/internal/domain"
	"metalwatch/internal/fetch"
	"metalwatch/internal/pricecache"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// updates collects OnPriceUpdated calls.
type updates struct {
	mu  sync.Mutex
	ids []string
	ch  chan string
}

func newUpdates() *updates { return &updates{ch: make(chan string, 64)} }

func (u *updates) record(id string) {
	u.mu.Lock()
	u.ids = append(u.ids, id)
	u.mu.Unlock()
	u.ch <- id
}

func (u *updates) await(t *testing.T) string {
	t.Helper()
	select {
	case id := <-u.ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for price update")
		return ""
	}
}

var gold = domain.Metal{ID: "gold", Name: "Gold", URL: "https://example.com/gold"}

func TestRefreshSuccessAndFailure(t *testing.T) {
	cache := pricecache.New()
	u := newUpdates()
	metrics := NewMetrics(nil)

	silver := domain.Metal{ID: "silver", Name: "Silver", URL: "https://example.com/silver"}
	f := fetch.FetcherFunc(func(_ context.Context, url string) (string, error) {
		if url == gold.URL {
			return fetch.Normalize("2,345.10"), nil
		}
		return "", errors.New("no match")
	})

	o := New(f, cache, Options{OnPriceUpdated: u.record, Logger: quietLogger(), Metrics: metrics})
	defer o.Close()

	o.Refresh([]domain.Metal{gold, silver})
	o.Wait()

	if p, ok := cache.Read("gold"); !ok || p != "2345.10" {
		t.Errorf("Read(gold) = (%q, %v), want (2345.10, true)", p, ok)
	}
	if p, ok := cache.Read("silver"); ok || p != "" {
		t.Errorf("Read(silver) = (%q, %v), want no value", p, ok)
	}

	u.mu.Lock()
	n := len(u.ids)
	u.mu.Unlock()
	if n != 2 {
		t.Errorf("OnPriceUpdated called %d times, want 2", n)
	}

	if got := testutil.ToFloat64(metrics.fetchesTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("fetches_total{ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.fetchesTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("fetches_total{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.inFlight); got != 0 {
		t.Errorf("fetches_in_flight = %v, want 0", got)
	}
}

// TestLastCompletionWins starts fetch A, then fetch B for the same id, lets
// B finish first and A second. The cache must hold A's value.
func TestLastCompletionWins(t *testing.T) {
	cache := pricecache.New()
	u := newUpdates()

	entered := make(chan struct{}, 2)
	var mu sync.Mutex
	var gates []chan string
	f := fetch.FetcherFunc(func(ctx context.Context, _ string) (string, error) {
		gate := make(chan string)
		mu.Lock()
		gates = append(gates, gate)
		mu.Unlock()
		entered <- struct{}{}
		select {
		case v := <-gate:
			return v, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	o := New(f, cache, Options{OnPriceUpdated: u.record, Logger: quietLogger()})
	defer o.Close()

	x := domain.Metal{ID: "x", URL: "https://example.com/x"}

	o.Refresh([]domain.Metal{x}) // A
	<-entered
	o.Refresh([]domain.Metal{x}) // B
	<-entered

	mu.Lock()
	gateA, gateB := gates[0], gates[1]
	mu.Unlock()

	gateB <- "B"
	u.await(t)
	if p, _ := cache.Read("x"); p != "B" {
		t.Fatalf("after B completes Read(x) = %q, want B", p)
	}

	gateA <- "A"
	u.await(t)
	if p, _ := cache.Read("x"); p != "A" {
		t.Errorf("after A completes Read(x) = %q, want A (last to complete wins)", p)
	}
}

func TestRunImmediateAndPeriodic(t *testing.T) {
	cache := pricecache.New()
	u := newUpdates()

	var mu sync.Mutex
	calls := 0
	f := fetch.FetcherFunc(func(context.Context, string) (string, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return "1", nil
	})

	o := New(f, cache, Options{
		Interval:       20 * time.Millisecond,
		OnPriceUpdated: u.record,
		Logger:         quietLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Run(ctx, func() []domain.Metal { return []domain.Metal{gold} })
		close(done)
	}()

	// Immediate cycle plus at least two ticks.
	for i := 0; i < 3; i++ {
		if id := u.await(t); id != "gold" {
			t.Errorf("update id = %q, want gold", id)
		}
	}

	cancel()
	<-done
	o.Close()

	mu.Lock()
	defer mu.Unlock()
	if calls < 3 {
		t.Errorf("fetch calls = %d, want >= 3", calls)
	}
}

func TestCloseCancelsAndStops(t *testing.T) {
	cache := pricecache.New()
	u := newUpdates()

	started := make(chan struct{})
	f := fetch.FetcherFunc(func(ctx context.Context, _ string) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})

	o := New(f, cache, Options{OnPriceUpdated: u.record, Logger: quietLogger()})
	o.Refresh([]domain.Metal{gold})
	<-started

	o.Close()

	if _, ok := cache.Read("gold"); ok {
		t.Error("cancelled fetch should record no value")
	}

	// Refresh after Close is a no-op.
	o.Refresh([]domain.Metal{gold})
	o.Wait()
	if cache.Len() != 1 {
		t.Errorf("cache.Len() = %d, want 1", cache.Len())
	}
}

func TestWaitWhileRunTicking(t *testing.T) {
	cache := pricecache.New()
	f := fetch.FetcherFunc(func(context.Context, string) (string, error) {
		time.Sleep(100 * time.Microsecond)
		return "1", nil
	})
	o := New(f, cache, Options{Interval: time.Millisecond, Logger: quietLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Run(ctx, func() []domain.Metal { return []domain.Metal{gold, gold, gold} })
		close(done)
	}()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deadline := time.Now().Add(200 * time.Millisecond)
			for time.Now().Before(deadline) {
				o.Wait()
			}
		}()
	}
	wg.Wait()

	cancel()
	<-done
	o.Close()

	if p, ok := cache.Read("gold"); !ok || p != "1" {
		t.Errorf("Read(gold) = (%q, %v), want (1, true)", p, ok)
	}
}
