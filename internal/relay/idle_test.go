package relay

import (
	"sync"
	"testing"
	"time"
)

func TestIdleTimerFires(t *testing.T) {
	fired := make(chan struct{})
	timer := NewIdleTimer(50*time.Millisecond, func() { close(fired) })
	defer timer.Stop()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestIdleTimerTouchDefersFiring(t *testing.T) {
	fired := make(chan struct{})
	timer := NewIdleTimer(150*time.Millisecond, func() { close(fired) })
	defer timer.Stop()

	// Keep touching for well past the original deadline.
	deadline := time.Now().Add(400 * time.Millisecond)
	for time.Now().Before(deadline) {
		timer.Touch()
		select {
		case <-fired:
			t.Fatal("timer fired despite touches")
		case <-time.After(30 * time.Millisecond):
		}
	}

	// Stop touching; now it must fire.
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire after touches stopped")
	}
}

func TestIdleTimerStop(t *testing.T) {
	fired := make(chan struct{})
	timer := NewIdleTimer(50*time.Millisecond, func() { close(fired) })
	timer.Stop()

	select {
	case <-fired:
		t.Fatal("timer fired after Stop")
	case <-time.After(200 * time.Millisecond):
	}

	// Touch after Stop must not rearm.
	timer.Touch()
	select {
	case <-fired:
		t.Fatal("timer fired after Stop+Touch")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestIdleTimerFiresOnce(t *testing.T) {
	var mu sync.Mutex
	count := 0
	timer := NewIdleTimer(30*time.Millisecond, func() {
		mu.Lock()
		count++
		mu.Unlock()
	})
	defer timer.Stop()

	time.Sleep(300 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("fire count = %d, want 1", count)
	}
}

func TestIdleTimerConcurrentTouch(t *testing.T) {
	fired := make(chan struct{})
	timer := NewIdleTimer(20*time.Millisecond, func() { close(fired) })
	defer timer.Stop()

	// Hammer Touch from several goroutines around the firing window; the
	// timer must neither panic nor fire more than once.
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				timer.Touch()
				time.Sleep(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired after touches stopped")
	}
}
