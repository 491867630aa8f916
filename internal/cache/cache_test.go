package cache

import (
	"context"
	"testing"
	"time"
)

// fixed base instant for deterministic expiry checks.
var t0 = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

func newClockedMemory(capacity int) (*Memory, *time.Time) {
	m := NewMemory(capacity)
	now := t0
	m.now = func() time.Time { return now }
	return m, &now
}

func TestMemory_SetThenGet(t *testing.T) {
	m, _ := newClockedMemory(4)
	ctx := context.Background()

	m.Set(ctx, "stock_AAPL", []byte(`{"price":123}`), 5*time.Minute)
	got, ok := m.Get(ctx, "stock_AAPL")
	if !ok || string(got) != `{"price":123}` {
		t.Fatalf("expected fresh hit, got %q ok=%v", got, ok)
	}
}

func TestMemory_ExpiryIsAMissAndPurges(t *testing.T) {
	m, now := newClockedMemory(4)
	ctx := context.Background()

	m.Set(ctx, "k", []byte("v"), time.Minute)

	// One nanosecond past expiry must miss and purge.
	*now = t0.Add(time.Minute + time.Nanosecond)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatalf("expired entry must be a miss")
	}
	if m.Len() != 0 {
		t.Fatalf("expired entry should have been purged, len=%d", m.Len())
	}
}

func TestMemory_ExactExpiryStillFresh(t *testing.T) {
	m, now := newClockedMemory(4)
	ctx := context.Background()

	m.Set(ctx, "k", []byte("v"), time.Minute)
	*now = t0.Add(time.Minute) // now == expiry: still valid
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatalf("entry at exact expiry instant must still be returned")
	}
}

func TestMemory_LRUEviction(t *testing.T) {
	m, _ := newClockedMemory(2)
	ctx := context.Background()

	m.Set(ctx, "a", []byte("1"), time.Hour)
	m.Set(ctx, "b", []byte("2"), time.Hour)

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := m.Get(ctx, "a"); !ok {
		t.Fatalf("expected hit on a")
	}
	m.Set(ctx, "c", []byte("3"), time.Hour)

	if _, ok := m.Get(ctx, "b"); ok {
		t.Fatalf("b should have been evicted as least recently used")
	}
	if _, ok := m.Get(ctx, "a"); !ok {
		t.Fatalf("a should have survived eviction")
	}
	if _, ok := m.Get(ctx, "c"); !ok {
		t.Fatalf("c should be present")
	}
}

func TestMemory_OverwriteRefreshesExpiry(t *testing.T) {
	m, now := newClockedMemory(4)
	ctx := context.Background()

	m.Set(ctx, "k", []byte("old"), time.Minute)
	*now = t0.Add(30 * time.Second)
	m.Set(ctx, "k", []byte("new"), time.Minute)

	// Past the original expiry but within the refreshed one.
	*now = t0.Add(80 * time.Second)
	got, ok := m.Get(ctx, "k")
	if !ok || string(got) != "new" {
		t.Fatalf("overwrite should refresh value and expiry, got %q ok=%v", got, ok)
	}
	if m.Len() != 1 {
		t.Fatalf("overwrite must not duplicate entries, len=%d", m.Len())
	}
}

func TestMemory_NonPositiveTTLStoresNothing(t *testing.T) {
	m, _ := newClockedMemory(4)
	ctx := context.Background()

	m.Set(ctx, "k", []byte("v"), 0)
	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatalf("zero TTL must not store")
	}
}

func TestNewMemory_CapacityCoercion(t *testing.T) {
	m := NewMemory(0)
	if m.capacity != 1 {
		t.Fatalf("capacity should be coerced to 1, got %d", m.capacity)
	}
}
