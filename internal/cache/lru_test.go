package cache

import (
	"fmt"
	"sync"
	"testing"
)

// fill seeds the cache with entries idx -> "si<idx>", the shape the
// shared string table stores.
func fill(c *LRU, idxs ...int) {
	for _, i := range idxs {
		c.Set(i, fmt.Sprintf("si%d", i))
	}
}

func TestLRURecency(t *testing.T) {
	tests := []struct {
		name    string
		cap     int
		run     func(c *LRU)
		evicted []int
		kept    []int
	}{
		{
			name:    "oldest entry falls out",
			cap:     2,
			run:     func(c *LRU) { fill(c, 0, 1, 2) },
			evicted: []int{0},
			kept:    []int{1, 2},
		},
		{
			name: "get refreshes recency",
			cap:  2,
			run: func(c *LRU) {
				fill(c, 0, 1)
				c.Get(0)
				fill(c, 2)
			},
			evicted: []int{1},
			kept:    []int{0, 2},
		},
		{
			name: "set refreshes recency",
			cap:  2,
			run: func(c *LRU) {
				fill(c, 0, 1)
				c.Set(0, "si0")
				fill(c, 2)
			},
			evicted: []int{1},
			kept:    []int{0, 2},
		},
		{
			name: "eviction follows access order",
			cap:  3,
			run: func(c *LRU) {
				fill(c, 0, 1, 2)
				c.Get(1)
				c.Get(0)
				c.Get(2)
				fill(c, 3)
			},
			evicted: []int{1},
			kept:    []int{0, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.cap)
			tt.run(c)
			for _, i := range tt.evicted {
				if _, ok := c.Get(i); ok {
					t.Errorf("index %d still cached; want evicted", i)
				}
			}
			for _, i := range tt.kept {
				v, ok := c.Get(i)
				if !ok || v != fmt.Sprintf("si%d", i) {
					t.Errorf("Get(%d) = %q, %v; want cached entry", i, v, ok)
				}
			}
			if c.Len() > tt.cap {
				t.Errorf("Len() = %d exceeds capacity %d", c.Len(), tt.cap)
			}
		})
	}
}

func TestLRUMissAndUpdate(t *testing.T) {
	c := New(4)
	if v, ok := c.Get(7); ok {
		t.Errorf("Get on empty cache = %q, %v; want miss", v, ok)
	}

	c.Set(7, "first")
	c.Set(7, "second")
	if v, _ := c.Get(7); v != "second" {
		t.Errorf("Get(7) = %q; want the updated value", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d after updating one key; want 1", c.Len())
	}
}

func TestLRUClear(t *testing.T) {
	c := New(4)
	fill(c, 0, 1, 2)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d; want 0", c.Len())
	}
	if _, ok := c.Get(0); ok {
		t.Error("entry survived Clear")
	}
	// The cache stays usable after a Clear.
	fill(c, 5)
	if v, ok := c.Get(5); !ok || v != "si5" {
		t.Errorf("Get(5) after Clear = %q, %v", v, ok)
	}
}

func TestLRUCapacityFloor(t *testing.T) {
	if got := New(DefaultCapacity).Cap(); got != DefaultCapacity {
		t.Errorf("Cap() = %d; want %d", got, DefaultCapacity)
	}
	c := New(0)
	if c.Cap() != 1 {
		t.Fatalf("Cap() = %d; want capacities below 1 raised to 1", c.Cap())
	}
	fill(c, 0, 1)
	if _, ok := c.Get(0); ok {
		t.Error("single-slot cache kept two entries")
	}
	if v, ok := c.Get(1); !ok || v != "si1" {
		t.Errorf("Get(1) = %q, %v; want the surviving entry", v, ok)
	}
}

func TestLRUConcurrentResolvers(t *testing.T) {
	c := New(64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				idx := base*200 + i
				c.Set(idx, fmt.Sprintf("si%d", idx))
				c.Get(idx)
				c.Get(idx - 1)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 64 {
		t.Errorf("Len() = %d; must stay within capacity 64", c.Len())
	}
}
