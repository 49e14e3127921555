package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestFIFOEvictsOldest(t *testing.T) {
	c := NewFIFO[string, int](50)
	for i := 0; i < 51; i++ {
		c.Put(fmt.Sprintf("key-%d", i), i)
	}

	if c.Len() != 50 {
		t.Fatalf("Len = %d, want 50", c.Len())
	}
	if _, ok := c.Get("key-0"); ok {
		t.Error("first key should have been evicted")
	}
	if v, ok := c.Get("key-50"); !ok || v != 50 {
		t.Errorf("Get(key-50) = %d, %v", v, ok)
	}
}

func TestFIFORePutKeepsPosition(t *testing.T) {
	c := NewFIFO[string, string](2)
	c.Put("a", "1")
	c.Put("b", "2")
	c.Put("a", "updated")
	c.Put("c", "3")

	if _, ok := c.Get("a"); ok {
		t.Error("a was inserted first and should be evicted despite the update")
	}
	if v, _ := c.Get("b"); v != "2" {
		t.Errorf("b = %q", v)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestFIFOEvictionOrder(t *testing.T) {
	c := NewFIFO[string, int](3)
	for _, k := range []string{"a", "b", "c"} {
		c.Put(k, 1)
	}
	c.Put("d", 1) // evicts a
	c.Put("a", 2) // re-inserted as newest, evicts b

	tests := []struct {
		key  string
		want bool
	}{
		{"a", true},
		{"b", false},
		{"c", true},
		{"d", true},
	}
	for _, tt := range tests {
		if _, ok := c.Get(tt.key); ok != tt.want {
			t.Errorf("Get(%q) present = %v, want %v", tt.key, ok, tt.want)
		}
	}

	c.Put("e", 1)
	if _, ok := c.Get("c"); ok {
		t.Error("c should be the oldest entry and evicted next")
	}
}

func TestFIFOConcurrentPut(t *testing.T) {
	c := NewFIFO[int, int](10)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Put(g*1000+i, i)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() != 10 {
		t.Fatalf("Len = %d, want 10", c.Len())
	}
}
