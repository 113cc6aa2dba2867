package timer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleFires(t *testing.T) {
	c := NewCoordinator()
	fired := make(chan struct{}, 1)

	c.Schedule("ROOM/phase", 10*time.Millisecond, func() {
		fired <- struct{}{}
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	if got := c.Len(); got != 0 {
		t.Errorf("Len() after fire = %d, want 0", got)
	}
}

func TestCancelPreventsCallback(t *testing.T) {
	c := NewCoordinator()
	var fired atomic.Int32

	c.Schedule("ROOM/phase", 20*time.Millisecond, func() {
		fired.Add(1)
	})
	c.Cancel("ROOM/phase")

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("callback ran %d times after Cancel, want 0", got)
	}
	if c.Active("ROOM/phase") {
		t.Error("Active() = true after Cancel, want false")
	}
}

func TestScheduleReplacesPending(t *testing.T) {
	c := NewCoordinator()
	results := make(chan string, 2)

	c.Schedule("ROOM/phase", 50*time.Millisecond, func() {
		results <- "first"
	})
	c.Schedule("ROOM/phase", 10*time.Millisecond, func() {
		results <- "second"
	})

	select {
	case got := <-results:
		if got != "second" {
			t.Fatalf("fired callback = %q, want %q", got, "second")
		}
	case <-time.After(time.Second):
		t.Fatal("replacement timer did not fire")
	}

	select {
	case got := <-results:
		t.Fatalf("replaced callback %q still fired", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCancelPrefix(t *testing.T) {
	c := NewCoordinator()
	fired := make(chan string, 3)

	c.Schedule("AAAA/phase", 20*time.Millisecond, func() { fired <- "AAAA/phase" })
	c.Schedule("AAAA/reveal", 20*time.Millisecond, func() { fired <- "AAAA/reveal" })
	c.Schedule("BBBB/phase", 20*time.Millisecond, func() { fired <- "BBBB/phase" })

	c.CancelPrefix("AAAA/")

	if got := c.Len(); got != 1 {
		t.Errorf("Len() after CancelPrefix = %d, want 1", got)
	}

	select {
	case got := <-fired:
		if got != "BBBB/phase" {
			t.Fatalf("fired key = %q, want %q", got, "BBBB/phase")
		}
	case <-time.After(time.Second):
		t.Fatal("surviving timer did not fire")
	}

	select {
	case got := <-fired:
		t.Fatalf("cancelled key %q still fired", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConcurrentScheduleAndCancel(t *testing.T) {
	c := NewCoordinator()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Schedule("ROOM/phase", 5*time.Millisecond, func() {})
			c.Cancel("ROOM/phase")
		}()
	}
	wg.Wait()

	time.Sleep(50 * time.Millisecond)
	if got := c.Len(); got != 0 {
		t.Errorf("Len() after concurrent schedule/cancel = %d, want 0", got)
	}
}
