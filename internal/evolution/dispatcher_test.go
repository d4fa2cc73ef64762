package evolution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/internal/storage"
)

func TestDispatcher_ProcessesAllUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	const users, accepts = 8, 6
	counts := make(map[string][]int)
	for i := 0; i < accepts; i++ {
		createItem(t, store, fmt.Sprintf("job%d", i), []float32{float32(i%3) + 0.5, 1, float32(i)})
	}
	for u := 0; u < users; u++ {
		userID := fmt.Sprintf("user%d", u)
		createUser(t, store, userID, []float32{1, 0, 0})
		for i := 0; i < accepts; i++ {
			counts[userID] = append(counts[userID], accept(t, store, userID, fmt.Sprintf("job%d", i)))
		}
	}

	var mu sync.Mutex
	updated := make(map[string]int)
	engine := NewEngine(store, defaultConfig())
	d := NewDispatcher(engine, 3, 64, WithResultHook(func(r Result, err error) {
		if err != nil {
			t.Errorf("evolution error: %v", err)
			return
		}
		mu.Lock()
		if r.Outcome == OutcomeUpdated {
			updated[r.UserID]++
		}
		mu.Unlock()
	}))
	d.Start(ctx)

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			for i := 0; i < accepts; i++ {
				if err := d.Submit(userID, fmt.Sprintf("job%d", i), counts[userID][i]); err != nil {
					t.Errorf("submit: %v", err)
				}
			}
		}(fmt.Sprintf("user%d", u))
	}
	wg.Wait()
	d.Stop()

	// Threshold 5 with EveryN 1: counts 5 and 6 recompute.
	const wantUpdates = 2
	for u := 0; u < users; u++ {
		userID := fmt.Sprintf("user%d", u)
		if updated[userID] != wantUpdates {
			t.Errorf("%s: %d updates, want %d", userID, updated[userID], wantUpdates)
		}
		before, _ := store.GetUser(ctx, userID)
		if before.Generation != wantUpdates {
			t.Errorf("%s: generation=%d", userID, before.Generation)
		}
		if _, err := engine.Recompute(ctx, userID); err != nil {
			t.Fatal(err)
		}
		after, _ := store.GetUser(ctx, userID)
		for i := range before.CurrentEmbedding {
			if before.CurrentEmbedding[i] != after.CurrentEmbedding[i] {
				t.Errorf("%s: dispatcher result differs from a fresh recompute", userID)
				break
			}
		}
	}
	if engine.locks.size() != 0 {
		t.Errorf("keyed mutex retained %d entries", engine.locks.size())
	}
}

type blockingStore struct {
	storage.Storage
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.Storage.GetUser(ctx, id)
}

func TestDispatcher_BurstFollowsCadence(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		accepts     int
		wantUpdates int
	}{
		{"every accept from threshold", Config{Threshold: 5, EveryN: 1, BaseWeight: 0.3, HistoryWeight: 0.7}, 5, 1},
		{"every second accept", Config{Threshold: 5, EveryN: 2, BaseWeight: 0.3, HistoryWeight: 0.7}, 6, 1},
		{"every second accept, two due", Config{Threshold: 5, EveryN: 2, BaseWeight: 0.3, HistoryWeight: 0.7}, 7, 2},
		{"below threshold", Config{Threshold: 5, EveryN: 1, BaseWeight: 0.3, HistoryWeight: 0.7}, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			ctx := context.Background()
			createUser(t, store, "u1", []float32{1, 0, 0})
			counts := make([]int, tt.accepts)
			for i := range counts {
				createItem(t, store, fmt.Sprintf("job%d", i), []float32{0, 1, float32(i)})
				counts[i] = accept(t, store, "u1", fmt.Sprintf("job%d", i))
			}

			var mu sync.Mutex
			updates := 0
			d := NewDispatcher(NewEngine(store, tt.cfg), 1, 16, WithResultHook(func(r Result, err error) {
				if err != nil {
					t.Errorf("evolution error: %v", err)
					return
				}
				mu.Lock()
				if r.Outcome == OutcomeUpdated {
					updates++
				}
				mu.Unlock()
			}))
			d.Start(ctx)
			for i, n := range counts {
				if err := d.Submit("u1", fmt.Sprintf("job%d", i), n); err != nil {
					t.Fatal(err)
				}
			}
			d.Stop()

			if updates != tt.wantUpdates {
				t.Errorf("updates=%d, want %d", updates, tt.wantUpdates)
			}
			u, _ := store.GetUser(ctx, "u1")
			if u.Generation != int64(tt.wantUpdates) {
				t.Errorf("generation=%d, want %d", u.Generation, tt.wantUpdates)
			}
		})
	}
}

func TestDispatcher_QueueFull(t *testing.T) {
	store := newTestStore(t)
	createUser(t, store, "u1", []float32{1, 0})
	bs := &blockingStore{Storage: store, entered: make(chan struct{}, 8), release: make(chan struct{})}
	d := NewDispatcher(NewEngine(bs, defaultConfig()), 1, 1)
	d.Start(context.Background())

	if err := d.Submit("u1", "a", 1); err != nil {
		t.Fatal(err)
	}
	<-bs.entered
	if err := d.Submit("u1", "b", 2); err != nil {
		t.Fatal(err)
	}
	err := d.Submit("u1", "c", 3)
	if !errors.Is(err, ErrQueueFull) || !errors.Is(err, models.ErrUnavailable) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	close(bs.release)
	d.Stop()
}

func TestDispatcher_SubmitWhenStopped(t *testing.T) {
	d := NewDispatcher(NewEngine(newTestStore(t), defaultConfig()), 2, 4)
	if err := d.Submit("u1", "a", 1); !errors.Is(err, ErrDispatcherStopped) {
		t.Errorf("before start: %v", err)
	}
	d.Start(context.Background())
	d.Stop()
	d.Stop()
	if err := d.Submit("u1", "a", 1); !errors.Is(err, ErrDispatcherStopped) {
		t.Errorf("after stop: %v", err)
	}
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	counters := make([]int, 4)
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			unlock := k.Lock(fmt.Sprintf("k%d", slot))
			counters[slot]++
			unlock()
		}(i % 4)
	}
	wg.Wait()
	for slot, n := range counters {
		if n != 50 {
			t.Errorf("k%d=%d", slot, n)
		}
	}
	if k.size() != 0 {
		t.Errorf("size=%d", k.size())
	}
}
