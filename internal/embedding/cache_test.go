package embedding

import (
	"sync"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
}

func TestEmbeddingCache_ReturnsCopies(t *testing.T) {
	c := NewEmbeddingCache(4)
	in := []float32{1, 2}
	c.Set("k", in)
	in[0] = 99
	got, _ := c.Get("k")
	got[1] = 42
	again, _ := c.Get("k")
	if again[0] != 1 || again[1] != 2 {
		t.Errorf("cache entry mutated through caller slices: %v", again)
	}
}

func TestEmbeddingCache_ConcurrentGet(t *testing.T) {
	c := NewEmbeddingCache(8)
	for _, k := range []string{"a", "b", "c"} {
		c.Set(k, []float32{1})
	}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				c.Get([]string{"a", "b", "c"}[(i+j)%3])
			}
		}(i)
	}
	wg.Wait()
	if c.Len() != 3 {
		t.Errorf("Len=%d", c.Len())
	}
}
