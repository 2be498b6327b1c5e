package seen

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_MarkSeenOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	added, err := s.MarkSeen(ctx, "0xb1")
	if err != nil || !added {
		t.Fatalf("first MarkSeen = %v, %v; want true, nil", added, err)
	}
	for i := 0; i < 3; i++ {
		added, err = s.MarkSeen(ctx, "0xb1")
		if err != nil || added {
			t.Fatalf("repeat MarkSeen = %v, %v; want false, nil", added, err)
		}
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestMemoryStore_NoTTLNeverForgets(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewMemoryStore(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	s.MarkSeen(ctx, "0xb1")
	now = now.Add(365 * 24 * time.Hour)

	if added, _ := s.MarkSeen(ctx, "0xb1"); added {
		t.Error("id should be retained without a TTL")
	}
}

func TestMemoryStore_TTLEviction(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewMemoryStore(WithTTL(time.Hour), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	s.MarkSeen(ctx, "0xb1")

	now = now.Add(59 * time.Minute)
	if added, _ := s.MarkSeen(ctx, "0xb1"); added {
		t.Error("id should still be retained before the TTL")
	}

	now = now.Add(2 * time.Minute)
	if added, _ := s.MarkSeen(ctx, "0xb1"); !added {
		t.Error("id should be new again after the TTL")
	}
}

func TestMemoryStore_SweepDropsExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewMemoryStore(WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	s.MarkSeen(ctx, "a")
	s.MarkSeen(ctx, "b")
	now = now.Add(2 * time.Minute)
	s.MarkSeen(ctx, "c")

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after sweep", s.Len())
	}
}

func TestMemoryStore_ConcurrentMarkSeen(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		added int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.MarkSeen(ctx, "0xb1"); ok {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if added != 1 {
		t.Errorf("%d callers saw the id as new, want 1", added)
	}
}
