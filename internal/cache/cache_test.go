package cache

import (
	"errors"
	"testing"
)

func TestGetOrCreateBuildsOnce(t *testing.T) {
	c := New[string, int](0)
	calls := 0
	create := func() (int, error) {
		calls++
		return 7, nil
	}

	for range 3 {
		v, err := c.GetOrCreate("vs", create)
		if err != nil {
			t.Fatalf("GetOrCreate: %v", err)
		}
		if v != 7 {
			t.Errorf("value = %d, want 7", v)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("stats = %+v, want 2 hits 1 miss", s)
	}
}

func TestGetOrCreateErrorNotStored(t *testing.T) {
	c := New[string, int](0)
	boom := errors.New("boom")

	if _, err := c.GetOrCreate("fs", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
	if _, ok := c.Get("fs"); ok {
		t.Error("failed entry should not be cached")
	}
}

func TestEvictionKeepsRecent(t *testing.T) {
	c := New[int, int](4)
	for i := range 4 {
		_, _ = c.GetOrCreate(i, func() (int, error) { return i, nil })
	}
	// Touch 0 so it is the most recent.
	if _, ok := c.Get(0); !ok {
		t.Fatal("entry 0 missing")
	}
	_, _ = c.GetOrCreate(4, func() (int, error) { return 4, nil })

	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if _, ok := c.Get(0); !ok {
		t.Error("recently used entry 0 was evicted")
	}
	if _, ok := c.Get(4); !ok {
		t.Error("new entry 4 was evicted")
	}
	if _, ok := c.Get(1); ok {
		t.Error("oldest entry 1 should have been evicted")
	}
}
