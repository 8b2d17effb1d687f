package kv

import (
	"testing"
	"time"
)

func TestIncrCounter_WindowRollover(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	key := "ratelimit:test"
	window := 50 * time.Millisecond

	count, _ := c.IncrCounter(key, window)
	c.Wait()
	if count != 1 {
		t.Fatalf("expected count 1 on first increment, got %d", count)
	}

	count, _ = c.IncrCounter(key, window)
	c.Wait()
	if count != 2 {
		t.Fatalf("expected count 2 within window, got %d", count)
	}

	time.Sleep(2 * window)

	count, retryAfter := c.IncrCounter(key, window)
	c.Wait()
	if count != 1 {
		t.Fatalf("expected counter to roll over to 1 after the window elapsed, got %d", count)
	}
	if retryAfter > int(window.Seconds())+1 {
		t.Fatalf("expected retryAfter to reflect a fresh window, got %d", retryAfter)
	}
}

func TestIncrCounter_SustainedTrafficStillRolls(t *testing.T) {
	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	key := "ratelimit:sustained"
	window := 30 * time.Millisecond

	// Increment every couple of milliseconds, never idle for anything near
	// a full window, and watch for the count to restart.
	prev := 0
	rolled := false
	deadline := time.Now().Add(3 * window)
	for time.Now().Before(deadline) {
		count, _ := c.IncrCounter(key, window)
		c.Wait()
		if count < prev {
			rolled = true
			break
		}
		prev = count
		time.Sleep(2 * time.Millisecond)
	}
	if !rolled {
		t.Fatalf("expected a sustained client to roll over to a fresh window, last count %d", prev)
	}
}
