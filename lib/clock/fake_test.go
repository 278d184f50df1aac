// Copyright 2026 The Skiff Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func testInitial() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestFakeNowAdvance(t *testing.T) {
	fake := Fake(testInitial())
	if got := fake.Now(); !got.Equal(testInitial()) {
		t.Fatalf("Now() = %v, want %v", got, testInitial())
	}

	fake.Advance(90 * time.Second)
	want := testInitial().Add(90 * time.Second)
	if got := fake.Now(); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeAfterFiresAtDeadline(t *testing.T) {
	fake := Fake(testInitial())
	ch := fake.After(10 * time.Second)

	fake.Advance(9 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired before its deadline")
	default:
	}

	fake.Advance(1 * time.Second)
	select {
	case fired := <-ch:
		want := testInitial().Add(10 * time.Second)
		if !fired.Equal(want) {
			t.Fatalf("fire time = %v, want %v", fired, want)
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
}

func TestFakeAfterNonPositiveFiresImmediately(t *testing.T) {
	fake := Fake(testInitial())
	select {
	case <-fake.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeTickerFiresPerInterval(t *testing.T) {
	fake := Fake(testInitial())
	ticker := fake.NewTicker(5 * time.Second)
	defer ticker.Stop()

	ticks := 0
	for i := 0; i < 3; i++ {
		fake.Advance(5 * time.Second)
		select {
		case <-ticker.C:
			ticks++
		default:
			t.Fatalf("no tick after advance %d", i+1)
		}
	}
	if ticks != 3 {
		t.Fatalf("ticks = %d, want 3", ticks)
	}
}

func TestFakeTickerStop(t *testing.T) {
	fake := Fake(testInitial())
	ticker := fake.NewTicker(time.Second)
	ticker.Stop()

	fake.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
	if got := fake.PendingCount(); got != 0 {
		t.Fatalf("PendingCount after Stop = %d, want 0", got)
	}
}

func TestFakeOverlappingAdvanceDropsOverflowTicks(t *testing.T) {
	fake := Fake(testInitial())
	ticker := fake.NewTicker(time.Second)
	defer ticker.Stop()

	// One advance spanning three intervals: the capacity-1 channel
	// keeps a single tick, the rest are dropped (time.Ticker parity).
	fake.Advance(3 * time.Second)
	received := 0
	for {
		select {
		case <-ticker.C:
			received++
			continue
		default:
		}
		break
	}
	if received != 1 {
		t.Fatalf("received = %d ticks, want 1", received)
	}
}

func TestFakeWaitForTimers(t *testing.T) {
	fake := Fake(testInitial())
	done := make(chan struct{})
	go func() {
		fake.Sleep(3 * time.Second)
		close(done)
	}()

	fake.WaitForTimers(1)
	fake.Advance(3 * time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep goroutine did not wake after Advance")
	}
}
