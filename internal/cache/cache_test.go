package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"custos/internal/core"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUCache_TTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](4, 10*time.Minute)
	c.now = clock.now

	c.Set("a", 1)
	clock.advance(9 * time.Minute)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected hit before expiry, got %v %v", v, ok)
	}
	clock.advance(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected miss after expiry")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry should be removed on read")
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[string](2, time.Hour)
	c.Set("a", "A")
	c.Set("b", "B")
	c.Get("a")
	c.Set("c", "C")

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to survive")
	}
}

func TestLRUCache_ZeroTTLNeverExpires(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewLRUCache[int](1, 0)
	c.now = clock.now
	c.Set("k", 7)
	clock.advance(1000 * time.Hour)
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("zero ttl entries should not expire")
	}
}

func TestManager_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewLRUCache[int](8, time.Minute)
	c.now = clock.now
	c.Set("a", 1)
	c.Set("b", 2)
	clock.advance(2 * time.Minute)
	c.Set("c", 3)

	m := NewManager(nil)
	m.Register(c)
	if n := m.Sweep(); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}

func TestTableCache_SharesConcurrentFetch(t *testing.T) {
	tc := NewTableCache(4, time.Minute)
	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (core.RawTable, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return core.RawTable{Columns: []string{"Planta"}}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tc.Get(context.Background(), "k", fetch); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected one fetch, got %d", got)
	}
	if _, err := tc.Get(context.Background(), "k", fetch); err != nil || atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected cached hit, calls=%d err=%v", calls, err)
	}
}

func TestTableCache_ErrorsAreNotCached(t *testing.T) {
	tc := NewTableCache(4, time.Minute)
	var results []string
	tc.Observe(func(r string) { results = append(results, r) })

	boom := errors.New("boom")
	if _, err := tc.Get(context.Background(), "k", func(context.Context) (core.RawTable, error) {
		return core.RawTable{}, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if tc.Size() != 0 {
		t.Fatalf("error result should not be cached")
	}

	ok := func(context.Context) (core.RawTable, error) { return core.RawTable{Columns: []string{"x"}}, nil }
	tc.Get(context.Background(), "k", ok)
	tc.Get(context.Background(), "k", ok)
	if strings.Join(results, ",") != "miss,miss,hit" {
		t.Fatalf("unexpected lookups %v", results)
	}
}

func TestTableCache_Invalidate(t *testing.T) {
	tc := NewTableCache(4, time.Minute)
	var calls int
	fetch := func(context.Context) (core.RawTable, error) {
		calls++
		return core.RawTable{}, nil
	}
	tc.Get(context.Background(), "k", fetch)
	tc.Invalidate("k")
	tc.Get(context.Background(), "k", fetch)
	if calls != 2 {
		t.Fatalf("expected refetch after invalidate, got %d calls", calls)
	}
	tc.InvalidateAll()
	if tc.Size() != 0 {
		t.Fatalf("expected empty cache")
	}
}

func TestTableCache_CallerCancel(t *testing.T) {
	tc := NewTableCache(4, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	block := make(chan struct{})
	defer close(block)
	_, err := tc.Get(ctx, "k", func(context.Context) (core.RawTable, error) {
		<-block
		return core.RawTable{}, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSourceKey(t *testing.T) {
	a := SourceKey("https://example.com/x.xlsx", "secret-1")
	b := SourceKey("https://example.com/x.xlsx", "secret-2")
	if a == b {
		t.Fatalf("different tokens should yield different keys")
	}
	if strings.Contains(a, "secret") {
		t.Fatalf("token leaked into key %q", a)
	}
	if SourceKey("file:/tmp/x.xlsx", "") != "file:/tmp/x.xlsx" {
		t.Fatalf("tokenless key should be the url")
	}
}
