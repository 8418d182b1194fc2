package progress

import (
	"sync"
	"testing"
)

func TestCounterAddSetLoad(t *testing.T) {
	var c Counter
	c.Add(3)
	c.Add(4)
	if got := c.Load(); got != 7 {
		t.Fatalf("Load() = %d, want 7", got)
	}
	c.Set(100)
	if got := c.Load(); got != 100 {
		t.Fatalf("Load() = %d, want 100", got)
	}
}

func TestReporterStartStop(t *testing.T) {
	var mu sync.Mutex
	counter := &Counter{}
	counter.Set(5)

	r := Start(&mu, counter, 10, "Test")
	r.Stop() // must return promptly without deadlocking
}

func TestReporterZeroTotal(t *testing.T) {
	var mu sync.Mutex
	counter := &Counter{}
	r := Start(&mu, counter, 0, "Test")
	r.Stop()
}
