package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, size int, ttl time.Duration) (*LRUCache[int], *fakeClock, *[]string) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](size, ttl)
	c.now = clock.Now
	var evicted []string
	c.OnEvict(func(key string, _ int) { evicted = append(evicted, key) })
	return c, clock, &evicted
}

func TestLRUCache_SizeEviction(t *testing.T) {
	c, _, evicted := newTestCache(t, 2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b was least recently used and should be evicted")
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
	if len(*evicted) != 1 || (*evicted)[0] != "b" {
		t.Errorf("evicted = %v, want [b]", *evicted)
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c, clock, evicted := newTestCache(t, 10, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)

	clock.Advance(40 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should still be live")
	}

	// b idles past the ttl, a was refreshed by the read above
	clock.Advance(40 * time.Second)
	if n := c.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive the sweep")
	}
	if len(*evicted) != 1 || (*evicted)[0] != "b" {
		t.Errorf("evicted = %v, want [b]", *evicted)
	}

	clock.Advance(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if len(*evicted) != 2 {
		t.Errorf("expired read should run the callback, evicted = %v", *evicted)
	}
}

func TestLRUCache_GetOrCreate(t *testing.T) {
	c, clock, evicted := newTestCache(t, 10, time.Minute)
	calls := 0
	create := func() int { calls++; return calls }

	v, created := c.GetOrCreate("s", create)
	if !created || v != 1 {
		t.Fatalf("first GetOrCreate = %d, %v", v, created)
	}
	v, created = c.GetOrCreate("s", create)
	if created || v != 1 {
		t.Fatalf("second GetOrCreate = %d, %v", v, created)
	}

	clock.Advance(2 * time.Minute)
	v, created = c.GetOrCreate("s", create)
	if !created || v != 2 {
		t.Fatalf("after expiry GetOrCreate = %d, %v", v, created)
	}
	if len(*evicted) != 1 {
		t.Errorf("expired entry should be evicted once, got %v", *evicted)
	}
}

func TestLRUCache_DeleteAndClear(t *testing.T) {
	c, _, evicted := newTestCache(t, 10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Delete("a")
	c.Delete("missing")
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}

	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Size() after Clear = %d", c.Size())
	}
	if len(*evicted) != 3 {
		t.Errorf("evicted = %v, want 3 keys", *evicted)
	}
}

func TestManager_Sweep(t *testing.T) {
	c, clock, _ := newTestCache(t, 10, time.Minute)
	c.Set("a", 1)
	clock.Advance(2 * time.Minute)

	m := NewManager(nil)
	m.Register(c)
	if n := m.Sweep(); n != 1 {
		t.Errorf("Sweep() = %d, want 1", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
