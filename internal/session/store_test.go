package session

import (
	"sync"
	"testing"
	"time"

	"github.com/zulandar/shiftline/internal/clock"
)

func fixedStore(ttl time.Duration) (*Store, *clock.Fixed) {
	clk := clock.NewFixed(time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))
	return NewStore(StoreOpts{TTL: ttl, Clock: clk}), clk
}

func TestStart_ReplacesPriorSession(t *testing.T) {
	store, _ := fixedStore(DefaultTTL)

	store.Start(1, "cover", "date")
	sess, _ := store.Get(1)
	sess.Fields["date"] = "05.07"
	store.Put(1, sess)

	// Starting a different flow drops everything, no merge.
	store.Start(1, "swap", "date")
	sess, _ = store.Get(1)
	if sess.Flow != "swap" {
		t.Errorf("Flow = %q, want swap", sess.Flow)
	}
	if len(sess.Fields) != 0 {
		t.Errorf("Fields = %v, want empty after restart", sess.Fields)
	}
}

func TestGet_Absent(t *testing.T) {
	store, _ := fixedStore(DefaultTTL)
	sess, expired := store.Get(42)
	if sess != nil {
		t.Errorf("Get = %+v, want nil", sess)
	}
	if expired {
		t.Error("expired should be false for a never-created session")
	}
}

func TestGet_LazyExpiryIsIdempotent(t *testing.T) {
	store, clk := fixedStore(15 * time.Minute)
	store.Start(1, "cover", "date")

	clk.Advance(16 * time.Minute)

	sess, expired := store.Get(1)
	if sess != nil {
		t.Fatalf("Get after TTL = %+v, want nil", sess)
	}
	if !expired {
		t.Error("first Get past TTL should report expiry")
	}

	// The entry is gone; a second Get sees plain absence.
	sess, expired = store.Get(1)
	if sess != nil || expired {
		t.Errorf("second Get = (%v, %v), want (nil, false)", sess, expired)
	}
	if store.Len() != 0 {
		t.Errorf("Len = %d, want 0", store.Len())
	}
}

func TestGet_JustUnderTTL(t *testing.T) {
	store, clk := fixedStore(15 * time.Minute)
	store.Start(1, "cover", "date")

	clk.Advance(15*time.Minute - time.Second)
	if sess, _ := store.Get(1); sess == nil {
		t.Fatal("session should survive just under the TTL")
	}
}

func TestPut_RefreshesTTL(t *testing.T) {
	store, clk := fixedStore(15 * time.Minute)
	store.Start(1, "cover", "date")

	clk.Advance(10 * time.Minute)
	sess, _ := store.Get(1)
	sess.Step = "start"
	sess.Fields["date"] = "05.07"
	store.Put(1, sess)

	// 10 more minutes: past the original window, inside the refreshed one.
	clk.Advance(10 * time.Minute)
	got, _ := store.Get(1)
	if got == nil {
		t.Fatal("Put should have refreshed the TTL window")
	}
	if got.Step != "start" || got.Fields["date"] != "05.07" {
		t.Errorf("session = %+v, want step start with date field", got)
	}
}

func TestTouch_RefreshesWithoutMutation(t *testing.T) {
	store, clk := fixedStore(15 * time.Minute)
	store.Start(1, "cover", "date")

	clk.Advance(10 * time.Minute)
	store.Touch(1)
	clk.Advance(10 * time.Minute)

	sess, _ := store.Get(1)
	if sess == nil {
		t.Fatal("Touch should have refreshed the TTL window")
	}
	if sess.Step != "date" || len(sess.Fields) != 0 {
		t.Errorf("Touch mutated session: %+v", sess)
	}
}

func TestClear(t *testing.T) {
	store, _ := fixedStore(DefaultTTL)
	store.Start(1, "cover", "date")
	store.Clear(1)
	if sess, _ := store.Get(1); sess != nil {
		t.Error("session should be gone after Clear")
	}
	// Clearing an absent session is a no-op.
	store.Clear(1)
}

func TestGet_ReturnsCopy(t *testing.T) {
	store, _ := fixedStore(DefaultTTL)
	store.Start(1, "cover", "date")

	sess, _ := store.Get(1)
	sess.Fields["date"] = "05.07"

	again, _ := store.Get(1)
	if _, ok := again.Fields["date"]; ok {
		t.Error("mutating a Get result should not affect stored state")
	}
}

func TestSweep(t *testing.T) {
	store, clk := fixedStore(15 * time.Minute)
	store.Start(1, "cover", "date")
	store.Start(2, "swap", "date")
	clk.Advance(10 * time.Minute)
	store.Start(3, "cover", "date")
	clk.Advance(6 * time.Minute)

	if n := store.Sweep(); n != 2 {
		t.Errorf("Sweep removed %d, want 2", n)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
	if sess, _ := store.Get(3); sess == nil {
		t.Error("fresh session should survive the sweep")
	}
}

func TestWith_SerializesPerUser(t *testing.T) {
	store, _ := fixedStore(DefaultTTL)
	store.Start(1, "cover", "date")

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.With(1, func() {
				// Unsynchronized increment; With must serialize it.
				counter++
				sess, _ := store.Get(1)
				sess.Fields["n"] = "x"
				store.Put(1, sess)
			})
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50 (With must serialize per user)", counter)
	}
}

func TestWith_DifferentUsersDoNotBlock(t *testing.T) {
	store, _ := fixedStore(DefaultTTL)

	release := make(chan struct{})
	entered := make(chan struct{})
	go store.With(1, func() {
		close(entered)
		<-release
	})
	<-entered

	// User 2 proceeds while user 1's handler is parked.
	done := make(chan struct{})
	go store.With(2, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("user 2 blocked behind user 1's lock")
	}
	close(release)
}

func TestNewStore_Defaults(t *testing.T) {
	store := NewStore(StoreOpts{})
	if store.ttl != DefaultTTL {
		t.Errorf("ttl = %v, want %v", store.ttl, DefaultTTL)
	}
	if store.clock == nil {
		t.Error("clock should default to the system clock")
	}
}
